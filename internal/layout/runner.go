package layout

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rendis/flowmon/pkg/schema"
)

// ErrNotStarted is returned by Wait before the first Start.
var ErrNotStarted = errors.New("layout: runner not started")

// Runner hosts simulations on a frame scheduler: one tick per frame, one
// goroutine per generation. Starting a new graph cancels and joins the
// previous generation first, so snapshots from a superseded graph are never
// published after those of its successor.
type Runner struct {
	cfg     Config
	publish Publisher
	logger  *slog.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
	state      atomic.Uint32
	latest     atomic.Pointer[Snapshot]
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithPublisher registers a callback for every published snapshot. It is
// called on the simulation goroutine and must not block for long.
func WithPublisher(p Publisher) RunnerOption {
	return func(r *Runner) { r.publish = p }
}

// WithLogger sets the runner logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// NewRunner validates cfg and returns an idle runner.
func NewRunner(cfg Config, opts ...RunnerOption) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, err.Error()).WithCause(err)
	}
	r := &Runner{cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return r, nil
}

// Start cancels any in-flight simulation and begins laying out g from
// scratch. Latest immediately reflects the new generation at iteration 0.
// It returns the new generation number.
func (r *Runner) Start(ctx context.Context, g *schema.Graph) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()

	r.generation++
	gen := r.generation
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done

	sim := NewSimulation(g, r.cfg)
	workflowID := ""
	if g != nil {
		workflowID = g.WorkflowID
	}
	r.state.Store(uint32(StateRunning))

	// Readers see the new graph's initial placement until the first publish.
	initial := takeSnapshot(sim.Arena(), StateRunning, gen)
	initial.WorkflowID = workflowID
	r.latest.Store(initial)

	r.logger.Debug("layout started",
		slog.String("workflow_id", workflowID),
		slog.Uint64("generation", gen),
		slog.Int("nodes", sim.Arena().Len()),
		slog.Int("skipped_edges", sim.Arena().Stats.SkippedEdges),
	)

	go r.loop(runCtx, done, sim, gen, workflowID)
	return gen
}

// Stop cancels the in-flight simulation, if any, and waits for it to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Runner) stopLocked() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel = nil
}

// Wait blocks until the current generation reaches a terminal state.
func (r *Runner) Wait(ctx context.Context) error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return ErrNotStarted
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Latest returns the most recently published snapshot, or nil.
func (r *Runner) Latest() *Snapshot {
	return r.latest.Load()
}

// State returns the lifecycle state of the current generation.
func (r *Runner) State() State {
	return State(r.state.Load())
}

// Generation returns the number of the current generation.
func (r *Runner) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

func (r *Runner) loop(ctx context.Context, done chan struct{}, sim *Simulation, gen uint64, workflowID string) {
	defer close(done)

	var frames <-chan time.Time
	if r.cfg.FrameInterval > 0 {
		ticker := time.NewTicker(r.cfg.FrameInterval)
		defer ticker.Stop()
		frames = ticker.C
	}

	for {
		if frames != nil {
			select {
			case <-ctx.Done():
				r.cancelled(sim, gen, workflowID)
				return
			case <-frames:
			}
		} else {
			if ctx.Err() != nil {
				r.cancelled(sim, gen, workflowID)
				return
			}
			runtime.Gosched()
		}

		res := sim.Step()
		r.state.Store(uint32(sim.State()))
		if res.Publish {
			snap := takeSnapshot(sim.Arena(), sim.State(), gen)
			snap.WorkflowID = workflowID
			r.latest.Store(snap)
			if r.publish != nil {
				r.publish(snap)
			}
		}
		if res.Final {
			r.logger.Debug("layout converged",
				slog.String("workflow_id", workflowID),
				slog.Uint64("generation", gen),
				slog.Int("iterations", res.Iteration),
				slog.Float64("energy", res.Energy),
			)
			return
		}
	}
}

func (r *Runner) cancelled(sim *Simulation, gen uint64, workflowID string) {
	sim.Cancel()
	r.state.Store(uint32(StateCancelled))
	r.logger.Debug("layout cancelled",
		slog.String("workflow_id", workflowID),
		slog.Uint64("generation", gen),
		slog.Int("iteration", sim.Arena().Iteration),
	)
}
