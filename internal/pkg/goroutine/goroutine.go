package goroutine

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/shandysiswandi/gocustody/internal/pkg/stacktrace"
)

// DefaultMaxGoroutine is used when NewManager receives a non-positive limit.
const DefaultMaxGoroutine int = 100

// ErrLimitReached is recorded when a task is dropped because the manager is full.
var ErrLimitReached = errors.New("goroutine: maximum goroutine limit reached")

// Manager runs background tasks with a concurrency limit.
//
// Tasks outlive the request that scheduled them: their context keeps the
// caller's values (correlation id, trace) but not its cancellation. Wait stops
// intake, blocks until running tasks finish and returns their joined errors.
type Manager struct {
	mu      sync.Mutex
	errs    []error
	wg      sync.WaitGroup
	sema    chan struct{}
	stateMu sync.RWMutex
	closed  bool
	timeout time.Duration
}

// NewManager creates a Manager running at most maxGoroutine tasks at once.
// Each task gets taskTimeout as its deadline when taskTimeout is positive.
func NewManager(maxGoroutine int, taskTimeout time.Duration) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = runtime.NumCPU() * DefaultMaxGoroutine
	}

	return &Manager{
		sema:    make(chan struct{}, maxGoroutine),
		timeout: taskTimeout,
	}
}

// Go schedules f. It returns false when the manager is closed or full, in
// which case f never runs.
func (g *Manager) Go(pCtx context.Context, f func(ctx context.Context) error) bool {
	if g == nil {
		return false
	}

	g.stateMu.RLock()
	defer g.stateMu.RUnlock()

	if g.closed {
		slog.WarnContext(pCtx, "goroutine manager is closed, skipping new goroutine")
		return false
	}

	select {
	case g.sema <- struct{}{}:
	default:
		slog.WarnContext(pCtx, "maximum goroutine limit reached, failed to start new goroutine")
		g.record(ErrLimitReached)
		return false
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() { <-g.sema }()
		defer g.recover(pCtx)

		ctx := context.WithoutCancel(pCtx)
		if g.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}

		if err := f(ctx); err != nil {
			g.record(err)
		}
	}()

	return true
}

// Wait blocks until all scheduled goroutines finish and returns any collected errors.
func (g *Manager) Wait() error {
	if g == nil {
		return nil
	}

	g.stateMu.Lock()
	g.closed = true
	g.stateMu.Unlock()

	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.errs...)
}

func (g *Manager) record(err error) {
	g.mu.Lock()
	g.errs = append(g.errs, err)
	g.mu.Unlock()
}

func (g *Manager) recover(ctx context.Context) {
	rvr := recover()
	if rvr == nil {
		return
	}

	stack := debug.Stack()
	if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
		slog.ErrorContext(ctx, "panic occurred in goroutine", "because", rvr, "stack", paths)
	} else {
		slog.ErrorContext(ctx, "panic occurred in goroutine", "because", rvr, "stack", string(stack))
	}
}
