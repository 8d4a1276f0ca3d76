package location

import (
	"fmt"

	"github.com/matzehuels/stickersmash/pkg/geo"
)

// Messages surfaced through PermissionRefused and Failed.
const (
	MsgServicesDisabled = "Location services are disabled on your device"
	MsgPermissionDenied = "Permission to access location was denied"
	msgFetchPrefix      = "Failed to get location: "
	msgUnknownError     = "unknown error"
)

// State names the active variant of a Status.
type State int

const (
	StateLoading State = iota
	StatePermissionRefused
	StateFailed
	StateReady
)

// String returns the snake_case state name used in logs and JSON.
func (s State) String() string {
	switch s {
	case StatePermissionRefused:
		return "permission_refused"
	case StateFailed:
		return "failed"
	case StateReady:
		return "ready"
	default:
		return "loading"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(b []byte) error {
	for _, st := range []State{StateLoading, StatePermissionRefused, StateFailed, StateReady} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}

// Status is the acquisition status. It is a closed union: the only
// implementations are Loading, PermissionRefused, Failed and Ready.
type Status interface {
	State() State
	isStatus()
}

// Loading means an acquisition is in flight.
type Loading struct{}

// PermissionRefused means location services are off or permission was denied.
type PermissionRefused struct {
	Reason           string
	ServicesDisabled bool
}

// Failed means the positioning subsystem (or the permission boundary) errored.
type Failed struct {
	Message string
}

// Ready carries the acquired fix.
type Ready struct {
	Fix geo.Fix
}

func (Loading) State() State           { return StateLoading }
func (PermissionRefused) State() State { return StatePermissionRefused }
func (Failed) State() State            { return StateFailed }
func (Ready) State() State             { return StateReady }

func (Loading) isStatus()           {}
func (PermissionRefused) isStatus() {}
func (Failed) isStatus()            {}
func (Ready) isStatus()             {}
