package location

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/stickersmash/pkg/geo"
)

// DefaultMinInterval is the minimum spacing between underlying position
// samples requested from the positioning subsystem.
const DefaultMinInterval = 5000 * time.Millisecond

// Permission is the foreground location permission as reported to the user.
type Permission int

const (
	// PermissionUndetermined means no decision is known. Disabled location
	// services are reported this way too.
	PermissionUndetermined Permission = iota
	PermissionGranted
	PermissionDenied
)

// String returns the permission name.
func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "undetermined"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Permission) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Request parameterizes a single position fetch.
type Request struct {
	// Accuracy is the tier the acquirer selected for this host.
	Accuracy geo.Tier
	// MinInterval is a throttle hint for the provider: it should not take a
	// fresh sample more often than this. The acquirer never throttles itself.
	MinInterval time.Duration
}

// Service is the positioning boundary consumed by the acquirer.
//
// Implementations live in the provider package; tests use call-counting fakes.
type Service interface {
	// ServicesEnabled reports whether positioning is enabled at the OS level.
	ServicesEnabled(ctx context.Context) (bool, error)

	// RequestForegroundPermission asks for foreground location access. It
	// may prompt the user at most once per call and must return a stored
	// decision without prompting when one exists.
	RequestForegroundPermission(ctx context.Context) (Permission, error)

	// CurrentPosition fetches one fix.
	CurrentPosition(ctx context.Context, req Request) (geo.Fix, error)
}

// ParsePermission parses a permission name as produced by String.
func ParsePermission(s string) (Permission, error) {
	switch s {
	case "granted":
		return PermissionGranted, nil
	case "denied":
		return PermissionDenied, nil
	case "undetermined", "":
		return PermissionUndetermined, nil
	}
	return PermissionUndetermined, fmt.Errorf("unknown permission %q", s)
}
