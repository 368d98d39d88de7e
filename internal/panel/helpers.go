package panel

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rendis/flowmon/pkg/schema"
)

// toJSON marshals a value to indented JSON for template rendering.
func toJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// timeAgo returns a human-readable relative time string.
// Accepts time.Time or *time.Time.
func timeAgo(v any) string {
	var t time.Time
	switch val := v.(type) {
	case time.Time:
		t = val
	case *time.Time:
		if val == nil {
			return ""
		}
		t = *val
	default:
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func add(a, b int) int { return a + b }

// subtract returns a - b, clamped to 0.
func subtract(a, b int) int {
	if a-b < 0 {
		return 0
	}
	return a - b
}

// statusBadge returns a CSS class name for a workflow or node status.
func statusBadge(status string) string {
	switch status {
	case "completed", "success":
		return "badge-success"
	case "failed", "error":
		return "badge-error"
	case "in-progress":
		return "badge-active"
	case "idle":
		return "badge-muted"
	default:
		return "badge-secondary"
	}
}

// truncate shortens a string to max runes, appending "..." if truncated.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFlowError maps err to a status code by its FlowError code.
func writeFlowError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), errorMessage(err))
}

func statusFor(err error) int {
	switch {
	case schema.IsCode(err, schema.ErrCodeValidation), schema.IsCode(err, schema.ErrCodeExpression):
		return http.StatusBadRequest
	case schema.IsCode(err, schema.ErrCodeNotFound):
		return http.StatusNotFound
	case schema.IsCode(err, schema.ErrCodeConflict):
		return http.StatusConflict
	case schema.IsCode(err, schema.ErrCodeCancelled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error) string {
	var fe *schema.FlowError
	if errors.As(err, &fe) {
		return fe.Message
	}
	return err.Error()
}

// queryInt extracts an integer query param with a default value.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// decodeJSON decodes the request body into v and reports failures as 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return false
	}
	return true
}
