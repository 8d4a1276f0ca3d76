// Package geo defines the position values exchanged between the positioning
// boundary, the location acquirer and the map renderer.
package geo

import (
	"fmt"
	"time"
)

// Tier is a coarse quality setting for position requests, trading latency
// for precision.
type Tier int

const (
	// TierBalanced is the default accuracy for real devices.
	TierBalanced Tier = iota
	// TierLow is requested on simulated hosts that cannot produce precise fixes.
	TierLow
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierBalanced:
		return "balanced"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Coordinate is a WGS 84 latitude/longitude pair.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// String formats the coordinate with six decimals (~0.1m).
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f, %.6f", c.Latitude, c.Longitude)
}

// Fix is a single resolved position reading. Fixes are values: a newer reading
// supersedes an older one, it never mutates it.
type Fix struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   Tier      `json:"accuracy"`
	CapturedAt time.Time `json:"captured_at"`
	Source     string    `json:"source,omitempty"`
}

// Coordinate returns the fix position.
func (f Fix) Coordinate() Coordinate {
	return Coordinate{Latitude: f.Latitude, Longitude: f.Longitude}
}
