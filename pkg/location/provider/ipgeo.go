package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/matzehuels/stickersmash/pkg/errors"
	"github.com/matzehuels/stickersmash/pkg/geo"
	"github.com/matzehuels/stickersmash/pkg/location"
)

// Defaults for the IP geolocation provider.
const (
	DefaultIPGeoEndpoint = "https://ipapi.co/json/"
	DefaultLatPath       = "latitude"
	DefaultLonPath       = "longitude"
	DefaultIPGeoAttempts = 3
	DefaultIPGeoDelay    = 250 * time.Millisecond

	maxResponseBytes = 64 << 10
)

// IPGeoConfig configures an IPGeo provider.
type IPGeoConfig struct {
	Endpoint string
	LatPath  string // gjson path to the latitude
	LonPath  string // gjson path to the longitude
	Client   *http.Client

	// Attempts and RetryDelay bound retries of network errors and 5xx
	// answers. The delay doubles after each attempt.
	Attempts   int
	RetryDelay time.Duration
}

// IPGeo resolves the host position from an HTTP geolocation endpoint.
//
// The MinInterval of each request is honored with a token bucket: when a
// sample is requested sooner than allowed, the previous sample is returned
// instead of hitting the network.
type IPGeo struct {
	gate
	cfg IPGeoConfig

	mu       sync.Mutex
	limiter  *rate.Limiter
	interval time.Duration
	last     *geo.Fix
}

// NewIPGeo creates an IPGeo provider. Empty config fields take defaults.
func NewIPGeo(cfg IPGeoConfig, servicesEnabled bool, perms *Permissions) (*IPGeo, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultIPGeoEndpoint
	}
	if cfg.LatPath == "" {
		cfg.LatPath = DefaultLatPath
	}
	if cfg.LonPath == "" {
		cfg.LonPath = DefaultLonPath
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultIPGeoAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultIPGeoDelay
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if err := errors.ValidateURL(cfg.Endpoint); err != nil {
		return nil, err
	}
	return &IPGeo{gate: gate{enabled: servicesEnabled, perms: perms}, cfg: cfg}, nil
}

// CurrentPosition returns a fix resolved from the endpoint, or the previous
// sample when called again within req.MinInterval.
func (p *IPGeo) CurrentPosition(ctx context.Context, req location.Request) (geo.Fix, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.limiter == nil || p.interval != req.MinInterval {
		p.limiter = rate.NewLimiter(rate.Every(req.MinInterval), 1)
		p.interval = req.MinInterval
	}
	if !p.limiter.Allow() && p.last != nil {
		fix := *p.last
		fix.Accuracy = req.Accuracy
		return fix, nil
	}

	var fix geo.Fix
	err := retry(ctx, p.cfg.Attempts, p.cfg.RetryDelay, func() error {
		var err error
		fix, err = p.lookup(ctx)
		return err
	})
	if err != nil {
		return geo.Fix{}, err
	}
	fix.Accuracy = req.Accuracy
	p.last = &fix
	return fix, nil
}

func (p *IPGeo) lookup(ctx context.Context) (geo.Fix, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.Endpoint, nil)
	if err != nil {
		return geo.Fix{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.cfg.Client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return geo.Fix{}, err
		}
		return geo.Fix{}, &transientError{err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return geo.Fix{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return geo.Fix{}, &transientError{fmt.Errorf("geolocation endpoint returned %s", resp.Status)}
	}
	if resp.StatusCode != http.StatusOK {
		return geo.Fix{}, fmt.Errorf("geolocation endpoint returned %s", resp.Status)
	}
	if !gjson.ValidBytes(body) {
		return geo.Fix{}, fmt.Errorf("geolocation endpoint returned invalid JSON")
	}

	lat := gjson.GetBytes(body, p.cfg.LatPath)
	lon := gjson.GetBytes(body, p.cfg.LonPath)
	if !lat.Exists() || !lon.Exists() {
		if reason := gjson.GetBytes(body, "reason"); reason.Exists() {
			return geo.Fix{}, fmt.Errorf("geolocation lookup failed: %s", reason.String())
		}
		return geo.Fix{}, fmt.Errorf("geolocation response missing %q or %q", p.cfg.LatPath, p.cfg.LonPath)
	}

	return geo.Fix{
		Latitude:   lat.Float(),
		Longitude:  lon.Float(),
		CapturedAt: time.Now(),
		Source:     NameIPGeo,
	}, nil
}

var _ location.Service = (*IPGeo)(nil)
