package layout

import "github.com/rendis/flowmon/pkg/schema"

// State is the lifecycle of one simulation generation.
type State uint8

const (
	StateIdle State = iota
	StateRunning
	StateConverged
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateConverged:
		return "converged"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further ticks will run.
func (s State) Terminal() bool {
	return s == StateConverged || s == StateCancelled
}

// TickResult describes what a single Step did.
type TickResult struct {
	Ticked    bool
	Iteration int
	Energy    float64
	Final     bool
	Publish   bool
}

// Simulation couples an arena with its state machine and a reusable force
// buffer. It is not safe for concurrent use; the Runner confines it to one
// goroutine.
type Simulation struct {
	cfg    Config
	arena  *Arena
	state  State
	forces []force
}

// NewSimulation prepares a simulation for g in the Idle state.
func NewSimulation(g *schema.Graph, cfg Config) *Simulation {
	return &Simulation{cfg: cfg, arena: NewArena(g, cfg), state: StateIdle}
}

// State returns the current lifecycle state.
func (s *Simulation) State() State { return s.state }

// Arena exposes the simulation state for snapshotting.
func (s *Simulation) Arena() *Arena { return s.arena }

// Step advances the simulation by one tick.
func (s *Simulation) Step() TickResult {
	var res TickResult
	s.state, res, s.forces = step(s.state, s.arena, s.cfg, s.forces)
	return res
}

// Cancel moves a live simulation to Cancelled. Terminal states are kept.
func (s *Simulation) Cancel() {
	if !s.state.Terminal() {
		s.state = StateCancelled
	}
}

// Step is the transition function of the simulation state machine. It runs
// at most one tick on a and returns the next state. An empty arena converges
// without ticking; terminal states are returned unchanged.
func Step(st State, a *Arena, cfg Config) (State, TickResult) {
	next, res, _ := step(st, a, cfg, nil)
	return next, res
}

func step(st State, a *Arena, cfg Config, buf []force) (State, TickResult, []force) {
	if st.Terminal() {
		return st, TickResult{Iteration: a.Iteration, Energy: a.Energy}, buf
	}
	if len(a.Bodies) == 0 {
		return StateConverged, TickResult{Final: true, Publish: true}, buf
	}

	buf = accumulate(a, cfg, buf)
	a.Energy = integrate(a, cfg, buf)
	a.Iteration++

	res := TickResult{Ticked: true, Iteration: a.Iteration, Energy: a.Energy}
	next := StateRunning
	if a.Energy < cfg.EnergyThreshold || a.Iteration >= cfg.MaxIterations {
		next = StateConverged
		res.Final = true
	}
	res.Publish = res.Final || a.Iteration%cfg.PublishEvery == 0
	return next, res, buf
}
