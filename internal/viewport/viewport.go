// Package viewport turns pointer and wheel gestures into a pan offset and a
// zoom factor. It knows nothing about the layout simulation; the two only
// meet when the renderer composes the transform.
package viewport

import (
	"fmt"
	"math"
	"strconv"
	"sync"
)

const (
	MinZoom = 0.3
	MaxZoom = 3.0

	// ZoomStep is the increment of the zoom-in and zoom-out controls.
	ZoomStep = 0.1
	// WheelScale converts a wheel delta into a zoom delta. Scrolling down
	// (positive delta) zooms out.
	WheelScale = -0.001

	// PrimaryButton is the button code of the main pointer button.
	PrimaryButton = 0
)

// Point is a 2-D offset in screen units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// State is a copy of the controller state.
type State struct {
	Zoom     float64 `json:"zoom"`
	Pan      Point   `json:"pan"`
	Dragging bool    `json:"dragging"`
}

// Transform returns the composed drawing transform for s.
func (s State) Transform() string {
	return fmt.Sprintf("scale(%s) translate(%s, %s)", num(s.Zoom), num(s.Pan.X), num(s.Pan.Y))
}

// Animated reports whether transform changes should be smoothed. Transitions
// are disabled during a drag so the surface tracks the pointer exactly.
func (s State) Animated() bool {
	return !s.Dragging
}

// Controller holds the viewport of one open diagram. It is safe for
// concurrent use.
type Controller struct {
	mu       sync.Mutex
	zoom     float64
	pan      Point
	dragging bool
	last     Point
}

// New returns a controller at zoom 1 with no pan.
func New() *Controller {
	return &Controller{zoom: 1}
}

// State returns a copy of the current viewport.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Transform is shorthand for State().Transform().
func (c *Controller) Transform() string {
	return c.State().Transform()
}

// PointerDown starts a drag when the primary button is pressed.
func (c *Controller) PointerDown(x, y float64, button int) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if button == PrimaryButton {
		c.dragging = true
		c.last = Point{X: x, Y: y}
	}
	return c.stateLocked()
}

// PointerMove pans by the delta since the last recorded pointer position
// while a drag is active.
func (c *Controller) PointerMove(x, y float64) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dragging {
		c.pan.X += x - c.last.X
		c.pan.Y += y - c.last.Y
		c.last = Point{X: x, Y: y}
	}
	return c.stateLocked()
}

// PointerUp ends a drag.
func (c *Controller) PointerUp() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dragging = false
	return c.stateLocked()
}

// Wheel zooms only when the ctrl/cmd modifier is held; plain wheel input is
// left for scrolling.
func (c *Controller) Wheel(deltaY float64, modifier bool) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if modifier {
		c.zoom = clampZoom(c.zoom + deltaY*WheelScale)
	}
	return c.stateLocked()
}

// ZoomIn steps the zoom up by ZoomStep.
func (c *Controller) ZoomIn() State {
	return c.stepZoom(ZoomStep)
}

// ZoomOut steps the zoom down by ZoomStep.
func (c *Controller) ZoomOut() State {
	return c.stepZoom(-ZoomStep)
}

// Reset restores zoom 1 and zero pan.
func (c *Controller) Reset() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoom = 1
	c.pan = Point{}
	return c.stateLocked()
}

func (c *Controller) stepZoom(delta float64) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoom = clampZoom(c.zoom + delta)
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	return State{Zoom: c.zoom, Pan: c.pan, Dragging: c.dragging}
}

// clampZoom bounds z to [MinZoom, MaxZoom] and rounds away the float noise
// that repeated 0.1 steps accumulate.
func clampZoom(z float64) float64 {
	z = math.Round(z*1e6) / 1e6
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
