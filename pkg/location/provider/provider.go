// Package provider implements the positioning boundary consumed by
// [location.Acquirer].
//
// Two providers are available:
//
//   - [Fixed] reports a configured coordinate; it stands in for a simulator
//     and for hosts without any positioning hardware.
//   - [IPGeo] resolves the host's public IP through an HTTP geolocation
//     endpoint and extracts latitude/longitude with gjson paths.
//
// Both share the same availability switch and the same [Permissions]
// requester backed by a [ConsentStore].
package provider

import (
	"context"
	"fmt"

	"github.com/matzehuels/stickersmash/pkg/errors"
	"github.com/matzehuels/stickersmash/pkg/location"
)

// Provider names accepted by New.
const (
	NameFixed = "fixed"
	NameIPGeo = "ipgeo"
)

// Config selects and configures a provider.
type Config struct {
	Name            string
	ServicesEnabled bool

	// Fixed
	Latitude  float64
	Longitude float64

	// IPGeo
	Endpoint string
	LatPath  string
	LonPath  string
}

// New creates the provider named by cfg.Name.
func New(cfg Config, perms *Permissions) (location.Service, error) {
	if perms == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "provider requires a permission requester")
	}
	switch cfg.Name {
	case NameFixed, "":
		return NewFixed(cfg.Latitude, cfg.Longitude, cfg.ServicesEnabled, perms)
	case NameIPGeo:
		return NewIPGeo(IPGeoConfig{
			Endpoint: cfg.Endpoint,
			LatPath:  cfg.LatPath,
			LonPath:  cfg.LonPath,
		}, cfg.ServicesEnabled, perms)
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown location provider %q (must be %q or %q)", cfg.Name, NameFixed, NameIPGeo)
	}
}

// gate holds the availability switch and permission requester shared by
// all providers.
type gate struct {
	enabled bool
	perms   *Permissions
}

// ServicesEnabled reports the configured availability.
func (g gate) ServicesEnabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return g.enabled, nil
}

// RequestForegroundPermission delegates to the permission requester.
func (g gate) RequestForegroundPermission(ctx context.Context) (location.Permission, error) {
	p, err := g.perms.Request(ctx)
	if err != nil {
		return location.PermissionUndetermined, fmt.Errorf("foreground permission: %w", err)
	}
	return p, nil
}
