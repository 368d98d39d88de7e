package panel

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rendis/flowmon/internal/streaming"
)

// handleSSEView streams the snapshots and interactions of one view.
func (s *PanelServer) handleSSEView(w http.ResponseWriter, r *http.Request) {
	viewID := r.PathValue("view")
	if _, err := s.deps.Views.Get(viewID); err != nil {
		writeFlowError(w, err)
		return
	}
	s.serveSSE(w, r, streaming.EventFilter{ViewID: viewID, EventTypes: eventTypes(r)})
}

// handleSSEWorkflow streams events for every view of a workflow.
func (s *PanelServer) handleSSEWorkflow(w http.ResponseWriter, r *http.Request) {
	s.serveSSE(w, r, streaming.EventFilter{WorkflowID: r.PathValue("id"), EventTypes: eventTypes(r)})
}

// eventTypes reads repeated ?type= parameters.
func eventTypes(r *http.Request) []string {
	return r.URL.Query()["type"]
}

// serveSSE is the common SSE implementation.
func (s *PanelServer) serveSSE(w http.ResponseWriter, r *http.Request, filter streaming.EventFilter) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ch, cancel, err := s.deps.Hub.Subscribe(r.Context(), filter)
	if err != nil {
		s.deps.Logger.Error("SSE subscribe failed", "error", err)
		http.Error(w, "subscribe failed", http.StatusInternalServerError)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", event.Sequence, event.EventType, data)
			flusher.Flush()
		}
	}
}
