package viewport

import "fmt"

// EventKind names an input gesture.
type EventKind string

const (
	EventPointerDown EventKind = "pointerdown"
	EventPointerMove EventKind = "pointermove"
	EventPointerUp   EventKind = "pointerup"
	EventWheel       EventKind = "wheel"
	EventZoomIn      EventKind = "zoom_in"
	EventZoomOut     EventKind = "zoom_out"
	EventReset       EventKind = "reset"
)

// Event is the wire form of a gesture posted by the diagram page.
type Event struct {
	Kind     EventKind `json:"kind"`
	X        float64   `json:"x,omitempty"`
	Y        float64   `json:"y,omitempty"`
	Button   int       `json:"button,omitempty"`
	DeltaY   float64   `json:"delta_y,omitempty"`
	Modifier bool      `json:"modifier,omitempty"`
}

// Apply dispatches e to the matching controller method.
func (c *Controller) Apply(e Event) (State, error) {
	switch e.Kind {
	case EventPointerDown:
		return c.PointerDown(e.X, e.Y, e.Button), nil
	case EventPointerMove:
		return c.PointerMove(e.X, e.Y), nil
	case EventPointerUp:
		return c.PointerUp(), nil
	case EventWheel:
		return c.Wheel(e.DeltaY, e.Modifier), nil
	case EventZoomIn:
		return c.ZoomIn(), nil
	case EventZoomOut:
		return c.ZoomOut(), nil
	case EventReset:
		return c.Reset(), nil
	default:
		return c.State(), fmt.Errorf("viewport: unknown event kind %q", e.Kind)
	}
}
