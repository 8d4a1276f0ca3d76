package location

import (
	"context"

	"github.com/matzehuels/stickersmash/pkg/errors"
)

// GateResult is the outcome of one permission negotiation.
type GateResult struct {
	ServiceEnabled bool
	Permission     Permission
}

// PermissionGate wraps the service-availability check and the permission
// request into one call. It never retries; callers decide whether to call again.
type PermissionGate struct {
	svc Service
}

// NewPermissionGate creates a gate over svc.
func NewPermissionGate(svc Service) *PermissionGate {
	return &PermissionGate{svc: svc}
}

// CheckAndRequest queries service availability and, only when services are
// enabled, requests foreground permission.
func (g *PermissionGate) CheckAndRequest(ctx context.Context) (GateResult, error) {
	enabled, err := g.svc.ServicesEnabled(ctx)
	if err != nil {
		return GateResult{}, errors.Wrap(errors.ErrCodeFetch, err, "check location services")
	}
	if !enabled {
		return GateResult{ServiceEnabled: false, Permission: PermissionUndetermined}, nil
	}

	perm, err := g.svc.RequestForegroundPermission(ctx)
	if err != nil {
		return GateResult{ServiceEnabled: true}, errors.Wrap(errors.ErrCodeFetch, err, "request location permission")
	}
	if perm != PermissionGranted {
		// Anything short of an explicit grant counts as a refusal.
		perm = PermissionDenied
	}
	return GateResult{ServiceEnabled: true, Permission: perm}, nil
}
