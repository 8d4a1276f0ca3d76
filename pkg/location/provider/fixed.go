package provider

import (
	"context"
	"time"

	"github.com/matzehuels/stickersmash/pkg/errors"
	"github.com/matzehuels/stickersmash/pkg/geo"
	"github.com/matzehuels/stickersmash/pkg/location"
)

// Fixed reports a configured coordinate.
type Fixed struct {
	gate
	coord geo.Coordinate
	now   func() time.Time
}

// NewFixed creates a fixed provider at lat/lon.
func NewFixed(lat, lon float64, servicesEnabled bool, perms *Permissions) (*Fixed, error) {
	if err := errors.ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	return &Fixed{
		gate:  gate{enabled: servicesEnabled, perms: perms},
		coord: geo.Coordinate{Latitude: lat, Longitude: lon},
		now:   time.Now,
	}, nil
}

// CurrentPosition returns a new fix at the configured coordinate.
func (f *Fixed) CurrentPosition(ctx context.Context, req location.Request) (geo.Fix, error) {
	if err := ctx.Err(); err != nil {
		return geo.Fix{}, err
	}
	return geo.Fix{
		Latitude:   f.coord.Latitude,
		Longitude:  f.coord.Longitude,
		Accuracy:   req.Accuracy,
		CapturedAt: f.now(),
		Source:     NameFixed,
	}, nil
}

var _ location.Service = (*Fixed)(nil)
