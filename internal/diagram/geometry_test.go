package diagram

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEdgeCurve_Horizontal(t *testing.T) {
	start, ctrl, end, ok := edgeCurve(point{0, 0}, point{200, 0}, 50, 40, 6)
	assert.True(t, ok)
	assert.InDelta(t, 50, start.X, 1e-9)
	assert.InDelta(t, 0, start.Y, 1e-9)
	assert.InDelta(t, 154, end.X, 1e-9)
	assert.InDelta(t, 100, ctrl.X, 1e-9)
	assert.InDelta(t, 30, ctrl.Y, 1e-9, "offset is 15 percent of the distance")
}

func TestEdgeCurve_BoundaryPoints(t *testing.T) {
	src, dst := point{10, 20}, point{310, 420}
	start, _, end, ok := edgeCurve(src, dst, 60, 40, 6)
	assert.True(t, ok)
	assert.InDelta(t, 60, math.Hypot(start.X-src.X, start.Y-src.Y), 1e-9)
	assert.InDelta(t, 46, math.Hypot(end.X-dst.X, end.Y-dst.Y), 1e-9)
}

func TestEdgeCurve_OppositeEdgesBowApart(t *testing.T) {
	a, b := point{0, 0}, point{0, 300}
	_, c1, _, _ := edgeCurve(a, b, 40, 40, 6)
	_, c2, _, _ := edgeCurve(b, a, 40, 40, 6)
	assert.InDelta(t, -c1.X, c2.X, 1e-9)
	assert.NotEqual(t, c1.X, c2.X)
}

func TestEdgeCurve_Overlap(t *testing.T) {
	_, _, _, ok := edgeCurve(point{0, 0}, point{80, 0}, 40, 40, 6)
	assert.False(t, ok)
	_, _, _, ok = edgeCurve(point{0, 0}, point{0, 0}, 40, 40, 6)
	assert.False(t, ok)
}

func TestQuadPoint(t *testing.T) {
	p0, p1, p2 := point{0, 0}, point{50, 100}, point{100, 0}
	assert.Equal(t, p0, quadPoint(p0, p1, p2, 0))
	assert.Equal(t, p2, quadPoint(p0, p1, p2, 1))
	mid := quadPoint(p0, p1, p2, 0.5)
	assert.InDelta(t, 50, mid.X, 1e-9)
	assert.InDelta(t, 50, mid.Y, 1e-9)
}

func TestFormatCoordinate(t *testing.T) {
	assert.Equal(t, "1.50", f(1.5))
	assert.Equal(t, "-0.33", f(-1.0/3))
}
