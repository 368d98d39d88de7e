package viewport

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewControllerDefaults(t *testing.T) {
	c := New()
	st := c.State()
	assert.Equal(t, 1.0, st.Zoom)
	assert.Equal(t, Point{}, st.Pan)
	assert.False(t, st.Dragging)
	assert.Equal(t, "scale(1) translate(0, 0)", c.Transform())
}

func TestZoomClamp(t *testing.T) {
	c := New()
	for range 100 {
		st := c.ZoomIn()
		assert.LessOrEqual(t, st.Zoom, MaxZoom)
	}
	assert.Equal(t, MaxZoom, c.State().Zoom)

	for range 100 {
		st := c.ZoomOut()
		assert.GreaterOrEqual(t, st.Zoom, MinZoom)
	}
	assert.Equal(t, MinZoom, c.State().Zoom)
}

func TestZoomStep(t *testing.T) {
	c := New()
	assert.Equal(t, 1.1, c.ZoomIn().Zoom)
	assert.Equal(t, 1.2, c.ZoomIn().Zoom)
	assert.Equal(t, 1.1, c.ZoomOut().Zoom)
}

func TestWheelRequiresModifier(t *testing.T) {
	c := New()
	st := c.Wheel(-200, false)
	assert.Equal(t, 1.0, st.Zoom)

	st = c.Wheel(-200, true)
	assert.InDelta(t, 1.2, st.Zoom, 1e-9)

	st = c.Wheel(100, true)
	assert.InDelta(t, 1.1, st.Zoom, 1e-9)

	for range 50 {
		st = c.Wheel(-1000, true)
	}
	assert.Equal(t, MaxZoom, st.Zoom)
	for range 50 {
		st = c.Wheel(1000, true)
	}
	assert.Equal(t, MinZoom, st.Zoom)
}

func TestDragPansIncrementally(t *testing.T) {
	c := New()

	st := c.PointerMove(50, 50)
	assert.Equal(t, Point{}, st.Pan, "move without press must not pan")

	st = c.PointerDown(10, 20, PrimaryButton)
	assert.True(t, st.Dragging)
	assert.False(t, st.Animated())

	c.PointerMove(15, 30)
	st = c.PointerMove(25, 25)
	assert.Equal(t, Point{X: 15, Y: 5}, st.Pan)

	st = c.PointerUp()
	assert.False(t, st.Dragging)
	assert.True(t, st.Animated())

	st = c.PointerMove(100, 100)
	assert.Equal(t, Point{X: 15, Y: 5}, st.Pan)

	c.PointerDown(0, 0, PrimaryButton)
	st = c.PointerMove(-5, 5)
	assert.Equal(t, Point{X: 10, Y: 10}, st.Pan)
}

func TestSecondaryButtonDoesNotDrag(t *testing.T) {
	c := New()
	st := c.PointerDown(0, 0, 2)
	assert.False(t, st.Dragging)
	st = c.PointerMove(40, 40)
	assert.Equal(t, Point{}, st.Pan)
}

func TestReset(t *testing.T) {
	c := New()
	c.ZoomIn()
	c.PointerDown(0, 0, PrimaryButton)
	c.PointerMove(30, -10)
	c.PointerUp()

	st := c.Reset()
	assert.Equal(t, 1.0, st.Zoom)
	assert.Equal(t, Point{}, st.Pan)
}

func TestTransformFormat(t *testing.T) {
	st := State{Zoom: 1.5, Pan: Point{X: -12.5, Y: 40}}
	assert.Equal(t, "scale(1.5) translate(-12.5, 40)", st.Transform())
}

func TestApply(t *testing.T) {
	c := New()
	events := []Event{
		{Kind: EventPointerDown, X: 0, Y: 0},
		{Kind: EventPointerMove, X: 20, Y: 10},
		{Kind: EventPointerUp},
		{Kind: EventZoomIn},
		{Kind: EventWheel, DeltaY: -100, Modifier: true},
	}
	var st State
	var err error
	for _, e := range events {
		st, err = c.Apply(e)
		require.NoError(t, err)
	}
	assert.Equal(t, Point{X: 20, Y: 10}, st.Pan)
	assert.InDelta(t, 1.2, st.Zoom, 1e-9)

	st, err = c.Apply(Event{Kind: EventReset})
	require.NoError(t, err)
	assert.Equal(t, 1.0, st.Zoom)

	_, err = c.Apply(Event{Kind: "pinch"})
	assert.Error(t, err)
}

func TestConcurrentInput(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.ZoomIn()
				c.ZoomOut()
			}
		}()
	}
	wg.Wait()
	st := c.State()
	assert.GreaterOrEqual(t, st.Zoom, MinZoom)
	assert.LessOrEqual(t, st.Zoom, MaxZoom)
}
