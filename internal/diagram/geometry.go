package diagram

import (
	"fmt"
	"math"
)

// curveOffsetRatio is the perpendicular offset of an edge control point as
// a fraction of the center-to-center distance.
const curveOffsetRatio = 0.15

type point struct {
	X, Y float64
}

// edgeCurve computes a quadratic Bézier from the boundary of the source
// circle to the boundary of the target circle. The control point sits on the
// perpendicular bisector, offset to the left of the source→target direction,
// so that a pair of opposite edges bow apart instead of overlapping. Extra
// clearance at the target leaves room for the arrowhead.
//
// ok is false when the circles overlap and no visible segment remains.
func edgeCurve(src, dst point, srcR, dstR, arrowGap float64) (start, ctrl, end point, ok bool) {
	dx, dy := dst.X-src.X, dst.Y-src.Y
	d := math.Hypot(dx, dy)
	if d <= srcR+dstR+arrowGap {
		return point{}, point{}, point{}, false
	}
	ux, uy := dx/d, dy/d
	// Left-hand normal of the direction vector.
	nx, ny := -uy, ux

	start = point{X: src.X + ux*srcR, Y: src.Y + uy*srcR}
	end = point{X: dst.X - ux*(dstR+arrowGap), Y: dst.Y - uy*(dstR+arrowGap)}

	offset := d * curveOffsetRatio
	ctrl = point{
		X: (src.X+dst.X)/2 + nx*offset,
		Y: (src.Y+dst.Y)/2 + ny*offset,
	}
	return start, ctrl, end, true
}

// quadPoint evaluates the quadratic Bézier at t.
func quadPoint(p0, p1, p2 point, t float64) point {
	mt := 1 - t
	return point{
		X: mt*mt*p0.X + 2*mt*t*p1.X + t*t*p2.X,
		Y: mt*mt*p0.Y + 2*mt*t*p1.Y + t*t*p2.Y,
	}
}

// selfLoopPath draws a small loop above a node for edges whose source and
// target coincide.
func selfLoopPath(c point, r float64) string {
	x1, y1 := c.X-r*0.5, c.Y-r*0.85
	x2, y2 := c.X+r*0.5, c.Y-r*0.85
	return fmt.Sprintf("M %s %s C %s %s, %s %s, %s %s",
		f(x1), f(y1), f(x1-r*0.6), f(y1-r*1.4), f(x2+r*0.6), f(y2-r*1.4), f(x2), f(y2))
}

// f formats a coordinate with two decimals, trimming noise from the output.
func f(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
