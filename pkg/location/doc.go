// Package location implements location acquisition: permission negotiation,
// service-availability check and a single position fetch, folded into one
// state machine.
//
// # Overview
//
// [PermissionGate] wraps the service check and the permission request.
// [Acquirer] drives the gate and the fetch and owns the resulting [Status]:
//
//	Loading → PermissionRefused | Failed | Ready
//
// The status is a closed union ([Loading], [PermissionRefused], [Failed],
// [Ready]); exactly one variant is in effect at any time and it is replaced
// wholesale on every transition.
//
// # Usage
//
//	acq := location.NewAcquirer(provider,
//	    location.WithEnvironment(location.Environment{Simulated: vm, DevBuild: buildinfo.IsDev()}),
//	    location.WithTimeout(15*time.Second),
//	    location.WithLogger(logger),
//	)
//	switch s := acq.Acquire(ctx).(type) {
//	case location.Ready:
//	    render(s.Fix)
//	case location.PermissionRefused:
//	    offerSettings(s.Reason)
//	case location.Failed:
//	    offerRetry(s.Message)
//	}
//
// # Failure semantics
//
// There is no automatic retry and no backoff. Disabled services and denied
// permission end in PermissionRefused; any error from the positioning
// boundary ends in Failed with a human-readable message. Each fetch is bounded
// by a timeout (15s by default) so a hung provider cannot pin the machine in
// Loading.
//
// # Concurrency
//
// Acquire may be called from several goroutines. A new call cancels the one
// in flight; transitions from superseded calls are discarded.
package location
