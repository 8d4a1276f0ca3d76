package location

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stickersmash/pkg/errors"
	"github.com/matzehuels/stickersmash/pkg/geo"
	"github.com/matzehuels/stickersmash/pkg/observability"
)

// DefaultTimeout bounds a single position fetch.
const DefaultTimeout = 15 * time.Second

// Environment describes the host the acquirer runs on.
type Environment struct {
	// Simulated is true on emulators, simulators and virtual machines.
	Simulated bool
	// DevBuild is true for development builds.
	DevBuild bool
}

// Tier returns the accuracy tier to request on this host: low on a simulated
// host running a development build, balanced everywhere else.
func (e Environment) Tier() geo.Tier {
	if e.Simulated && e.DevBuild {
		return geo.TierLow
	}
	return geo.TierBalanced
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithEnvironment sets the host environment used for tier selection.
func WithEnvironment(env Environment) Option {
	return func(a *Acquirer) { a.env = env }
}

// WithTimeout bounds each position fetch. Zero or negative disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(a *Acquirer) { a.timeout = d }
}

// WithMinInterval overrides the sample throttle hint passed to the provider.
func WithMinInterval(d time.Duration) Option {
	return func(a *Acquirer) { a.minInterval = d }
}

// WithLogger sets the logger. Nil keeps log.Default().
func WithLogger(l *log.Logger) Option {
	return func(a *Acquirer) {
		if l != nil {
			a.logger = l
		}
	}
}

// Acquirer owns the acquisition state machine:
//
//	Loading → PermissionRefused | Failed | Ready
//
// Every call to Acquire restarts at Loading. A newer call cancels the one in
// flight and transitions computed by the superseded call are dropped, so the
// observable status always belongs to the latest invocation.
type Acquirer struct {
	gate        *PermissionGate
	svc         Service
	env         Environment
	timeout     time.Duration
	minInterval time.Duration
	logger      *log.Logger

	mu         sync.Mutex
	status     Status
	permission Permission
	gen        uint64
	cancel     context.CancelFunc
}

// NewAcquirer creates an acquirer over svc. Its initial status is Loading.
func NewAcquirer(svc Service, opts ...Option) *Acquirer {
	a := &Acquirer{
		gate:        NewPermissionGate(svc),
		svc:         svc,
		timeout:     DefaultTimeout,
		minInterval: DefaultMinInterval,
		logger:      log.Default(),
		status:      Loading{},
		permission:  PermissionUndetermined,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Status returns the current acquisition status.
func (a *Acquirer) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Permission returns the last reported permission.
func (a *Acquirer) Permission() Permission {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.permission
}

// Acquire runs one acquisition and returns the status it produced. When the
// invocation is superseded by a newer one before finishing, the current
// status (owned by the newer invocation) is returned instead.
func (a *Acquirer) Acquire(ctx context.Context) Status {
	start := time.Now()
	runCtx, gen := a.begin(ctx)
	observability.Location().OnAcquireStart(ctx)

	next := a.run(runCtx, gen)

	applied, current := a.finish(gen, next)
	state := next.State().String()
	if !applied {
		state = "superseded"
	}
	observability.Location().OnAcquireComplete(ctx, state, time.Since(start))
	a.logger.Debug("acquisition finished", "generation", gen, "state", state, "duration", time.Since(start).Round(time.Millisecond))
	return current
}

// begin enters Loading, cancels any invocation in flight and returns the
// context and generation of the new one.
func (a *Acquirer) begin(ctx context.Context) (context.Context, uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		a.cancel()
	}
	a.gen++
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.status = Loading{}
	return runCtx, a.gen
}

// finish applies next if gen is still current. It returns whether it applied
// and the status now in effect.
func (a *Acquirer) finish(gen uint64, next Status) (bool, Status) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if gen != a.gen {
		return false, a.status
	}
	a.status = next
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	return true, next
}

// setPermission records the permission reported by gen, if still current.
func (a *Acquirer) setPermission(gen uint64, p Permission) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen == a.gen {
		a.permission = p
	}
}

func (a *Acquirer) run(ctx context.Context, gen uint64) Status {
	res, err := a.gate.CheckAndRequest(ctx)
	if err != nil {
		a.logger.Warn("permission check failed", "err", err)
		return Failed{Message: failureMessage(err)}
	}

	if !res.ServiceEnabled {
		a.setPermission(gen, PermissionUndetermined)
		return PermissionRefused{Reason: MsgServicesDisabled, ServicesDisabled: true}
	}

	a.setPermission(gen, res.Permission)
	if res.Permission != PermissionGranted {
		return PermissionRefused{Reason: MsgPermissionDenied}
	}

	req := Request{Accuracy: a.env.Tier(), MinInterval: a.minInterval}
	a.logger.Debug("fetching position", "accuracy", req.Accuracy, "min_interval", req.MinInterval)

	fetchCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	fix, err := a.svc.CurrentPosition(fetchCtx, req)
	if err != nil {
		a.logger.Warn("position fetch failed", "err", err)
		if stderrors.Is(fetchCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = errors.New(errors.ErrCodeTimeout, "timed out after %s", a.timeout)
		}
		return Failed{Message: failureMessage(err)}
	}
	if err := errors.ValidateCoordinates(fix.Latitude, fix.Longitude); err != nil {
		return Failed{Message: failureMessage(err)}
	}
	if fix.CapturedAt.IsZero() {
		fix.CapturedAt = time.Now()
	}

	a.logger.Info("location acquired", "lat", fix.Latitude, "lon", fix.Longitude, "accuracy", fix.Accuracy)
	return Ready{Fix: fix}
}

// failureMessage derives the user-facing Failed message from err, falling
// back to a generic text when err carries no message.
func failureMessage(err error) string {
	msg := ""
	if err != nil {
		msg = strings.TrimSpace(errors.UserMessage(err))
		var e *errors.Error
		if stderrors.As(err, &e) && e.Cause != nil {
			if cause := strings.TrimSpace(errors.UserMessage(e.Cause)); cause != "" {
				msg = joinMessage(msg, cause)
			}
		}
	}
	if msg == "" {
		msg = msgUnknownError
	}
	return msgFetchPrefix + msg
}

func joinMessage(outer, inner string) string {
	if outer == "" {
		return inner
	}
	return fmt.Sprintf("%s: %s", outer, inner)
}
