// Package platform detects facts about the host the application runs on.
package platform

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/host"
)

// Info describes the host.
type Info struct {
	OS             string // runtime.GOOS
	Virtualization string // hypervisor or container system, empty on bare metal
	Simulated      bool   // true when running as a guest (VM, emulator, container)
}

// Detect inspects the host. Detection failures are not fatal: the host is
// then assumed to be a real device.
func Detect(ctx context.Context) Info {
	info := Info{OS: runtime.GOOS}
	system, role, err := host.VirtualizationWithContext(ctx)
	if err != nil {
		return info
	}
	info.Virtualization = system
	info.Simulated = isGuest(role)
	return info
}

func isGuest(role string) bool {
	return role == "guest"
}
