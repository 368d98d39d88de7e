package layout

import "math"

const (
	// minRepulsionDist floors the distance in the inverse-square term.
	minRepulsionDist = 10.0
	// coincidentDist is the distance below which two bodies have no usable axis.
	coincidentDist = 0.01
)

// force is the net force accumulated for one body during a tick.
type force struct {
	X, Y float64
}

// accumulate computes the net force on every body. The returned slice is
// indexed like a.Bodies.
func accumulate(a *Arena, cfg Config, out []force) []force {
	n := len(a.Bodies)
	if cap(out) < n {
		out = make([]force, n)
	}
	out = out[:n]
	for i := range out {
		out[i] = force{}
	}

	repel(a, cfg, out)
	attract(a, cfg, out)
	anchor(a, cfg, out)
	center(a, cfg, out)
	return out
}

// repel applies inverse-square repulsion to every pair, plus a linear
// collision correction when two circles (with padding) overlap.
func repel(a *Arena, cfg Config, f []force) {
	bodies := a.Bodies
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			dx := bodies[i].X - bodies[j].X
			dy := bodies[i].Y - bodies[j].Y
			dist := math.Hypot(dx, dy)
			var ux, uy float64
			if dist < coincidentDist {
				// Split coincident bodies along a fixed axis, lower index to the right.
				ux, uy, dist = 1, 0, coincidentDist
			} else {
				ux, uy = dx/dist, dy/dist
			}

			d := math.Max(dist, minRepulsionDist)
			mag := cfg.Repulsion / (d * d)

			minDist := bodies[i].Radius + bodies[j].Radius + cfg.CollisionPadding
			if dist < minDist {
				mag += (minDist - dist) * cfg.CollisionStrength
			}

			f[i].X += ux * mag
			f[i].Y += uy * mag
			f[j].X -= ux * mag
			f[j].Y -= uy * mag
		}
	}
}

// attract pulls the endpoints of every spring toward the rest length. The
// magnitude is capped so that very long edges cannot destabilize the system.
// Self loops have zero length and contribute nothing.
func attract(a *Arena, cfg Config, f []force) {
	for _, s := range a.Springs {
		if s.From == s.To {
			continue
		}
		from, to := &a.Bodies[s.From], &a.Bodies[s.To]
		dx := to.X - from.X
		dy := to.Y - from.Y
		dist := math.Hypot(dx, dy)
		if dist < coincidentDist {
			continue
		}
		mag := cfg.SpringStrength * (dist - cfg.SpringLength)
		mag = math.Max(-cfg.MaxSpringForce, math.Min(cfg.MaxSpringForce, mag))

		fx := dx / dist * mag
		fy := dy / dist * mag
		f[s.From].X += fx
		f[s.From].Y += fy
		f[s.To].X -= fx
		f[s.To].Y -= fy
	}
}

// anchor pulls start toward the top, end below the stage ladder and stages
// toward the center column and, weakly, their row.
func anchor(a *Arena, cfg Config, f []force) {
	for i := range a.Bodies {
		b := &a.Bodies[i]
		switch b.Kind {
		case KindStart:
			f[i].Y += (cfg.StartY - b.Y) * cfg.AnchorStrength
		case KindEnd:
			f[i].Y += (a.EndY - b.Y) * cfg.AnchorStrength
		case KindStage:
			f[i].X += (cfg.CenterX - b.X) * cfg.AnchorStrength
			if b.Row > 0 {
				f[i].Y += (stageY(cfg, b.Row) - b.Y) * cfg.StageAnchorStrength
			}
		}
	}
}

// center applies a weak pull toward the canvas center to every body.
func center(a *Arena, cfg Config, f []force) {
	for i := range a.Bodies {
		b := &a.Bodies[i]
		f[i].X += (cfg.CenterX - b.X) * cfg.CenterStrength
		f[i].Y += (cfg.CenterY - b.Y) * cfg.CenterStrength
	}
}

// integrate applies damped velocity updates and returns the tick energy:
// the sum of absolute velocity components.
func integrate(a *Arena, cfg Config, f []force) float64 {
	var energy float64
	for i := range a.Bodies {
		b := &a.Bodies[i]
		b.VX = clamp((b.VX+f[i].X)*cfg.Damping, cfg.MaxVelocity)
		b.VY = clamp((b.VY+f[i].Y)*cfg.Damping, cfg.MaxVelocity)
		b.X += b.VX
		b.Y += b.VY
		energy += math.Abs(b.VX) + math.Abs(b.VY)
	}
	return energy
}

func clamp(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}
