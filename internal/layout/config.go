package layout

import (
	"fmt"
	"time"
)

// Config holds every tunable constant of the simulation. The defaults are
// empirical; nothing in the engine depends on their exact values.
type Config struct {
	// Canvas geometry and anchor targets.
	CenterX        float64 `json:"center_x"`
	CenterY        float64 `json:"center_y"`
	StartY         float64 `json:"start_y"`
	EndY           float64 `json:"end_y"`
	StageBaseY     float64 `json:"stage_base_y"`
	StageSpacing   float64 `json:"stage_spacing"`
	SubstageOffset float64 `json:"substage_offset"`
	RandomSpread   float64 `json:"random_spread"`

	// Forces.
	Repulsion           float64 `json:"repulsion"`
	CollisionPadding    float64 `json:"collision_padding"`
	CollisionStrength   float64 `json:"collision_strength"`
	SpringStrength      float64 `json:"spring_strength"`
	SpringLength        float64 `json:"spring_length"`
	MaxSpringForce      float64 `json:"max_spring_force"`
	AnchorStrength      float64 `json:"anchor_strength"`
	StageAnchorStrength float64 `json:"stage_anchor_strength"`
	CenterStrength      float64 `json:"center_strength"`
	MaxVelocity         float64 `json:"max_velocity"`

	// Integration and termination.
	Damping         float64 `json:"damping"`
	EnergyThreshold float64 `json:"energy_threshold"`
	MaxIterations   int     `json:"max_iterations"`
	PublishEvery    int     `json:"publish_every"`

	// Seed drives placement jitter. Zero seeds from the clock.
	Seed uint64 `json:"seed"`

	// FrameInterval paces the Runner: one tick per frame. Zero runs ticks
	// back to back, yielding between them.
	FrameInterval time.Duration `json:"frame_interval"`
}

// DefaultConfig returns the stock tuning used by the dashboard.
func DefaultConfig() Config {
	return Config{
		CenterX:        600,
		CenterY:        500,
		StartY:         200,
		EndY:           800,
		StageBaseY:     300,
		StageSpacing:   150,
		SubstageOffset: 120,
		RandomSpread:   400,

		Repulsion:           5000,
		CollisionPadding:    20,
		CollisionStrength:   0.5,
		SpringStrength:      0.05,
		SpringLength:        150,
		MaxSpringForce:      10,
		AnchorStrength:      0.05,
		StageAnchorStrength: 0.02,
		CenterStrength:      0.005,
		MaxVelocity:         50,

		Damping:         0.92,
		EnergyThreshold: 0.5,
		MaxIterations:   200,
		PublishEvery:    3,

		FrameInterval: 16 * time.Millisecond,
	}
}

// Validate rejects configurations the integrator cannot run with.
func (c Config) Validate() error {
	if c.MaxIterations <= 0 {
		return fmt.Errorf("layout: max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.Damping <= 0 || c.Damping >= 1 {
		return fmt.Errorf("layout: damping must be in (0,1), got %g", c.Damping)
	}
	if c.PublishEvery <= 0 {
		return fmt.Errorf("layout: publish_every must be positive, got %d", c.PublishEvery)
	}
	if c.EnergyThreshold < 0 {
		return fmt.Errorf("layout: energy_threshold must not be negative, got %g", c.EnergyThreshold)
	}
	if c.MaxVelocity <= 0 {
		return fmt.Errorf("layout: max_velocity must be positive, got %g", c.MaxVelocity)
	}
	if c.FrameInterval < 0 {
		return fmt.Errorf("layout: frame_interval must not be negative, got %s", c.FrameInterval)
	}
	strengths := []struct {
		name string
		v    float64
	}{
		{"repulsion", c.Repulsion},
		{"collision_padding", c.CollisionPadding},
		{"collision_strength", c.CollisionStrength},
		{"spring_strength", c.SpringStrength},
		{"spring_length", c.SpringLength},
		{"max_spring_force", c.MaxSpringForce},
		{"anchor_strength", c.AnchorStrength},
		{"stage_anchor_strength", c.StageAnchorStrength},
		{"center_strength", c.CenterStrength},
		{"substage_offset", c.SubstageOffset},
		{"random_spread", c.RandomSpread},
	}
	for _, s := range strengths {
		if s.v < 0 {
			return fmt.Errorf("layout: %s must not be negative, got %g", s.name, s.v)
		}
	}
	return nil
}
