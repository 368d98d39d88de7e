package schema

import (
	"fmt"
	"strings"
)

// ValidationSeverity separates problems that reject a graph from ones the
// layout engine tolerates.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue locates one problem by JSON path and, when it concerns a
// single node, by node id.
type ValidationIssue struct {
	Path     string             `json:"path"`
	NodeID   string             `json:"node_id,omitempty"`
	Code     string             `json:"code"`
	Message  string             `json:"message"`
	Severity ValidationSeverity `json:"severity"`
}

func (i ValidationIssue) String() string {
	if i.NodeID != "" {
		return fmt.Sprintf("%s (%s): %s", i.Path, i.NodeID, i.Message)
	}
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}

// ValidationResult collects issues from the structural, semantic and
// admission checks.
type ValidationResult struct {
	Errors   []ValidationIssue `json:"errors,omitempty"`
	Warnings []ValidationIssue `json:"warnings,omitempty"`
}

// Valid reports whether the result has no errors. Warnings never reject.
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) AddError(path, code, message string) {
	r.Errors = append(r.Errors, ValidationIssue{
		Path: path, Code: code, Message: message, Severity: SeverityError,
	})
}

func (r *ValidationResult) AddWarning(path, code, message string) {
	r.Warnings = append(r.Warnings, ValidationIssue{
		Path: path, Code: code, Message: message, Severity: SeverityWarning,
	})
}

// AddNodeWarning records a tolerated problem attributed to nodeID.
func (r *ValidationResult) AddNodeWarning(path, nodeID, message string) {
	r.Warnings = append(r.Warnings, ValidationIssue{
		Path: path, NodeID: nodeID, Code: ErrCodeValidation, Message: message, Severity: SeverityWarning,
	})
}

// Merge appends other's issues, keeping their order.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// Summary renders the issues one per line, errors first.
func (r *ValidationResult) Summary() string {
	var b strings.Builder
	for _, list := range [][]ValidationIssue{r.Errors, r.Warnings} {
		for _, issue := range list {
			fmt.Fprintf(&b, "%s %s\n", issue.Severity, issue)
		}
	}
	return b.String()
}

// ToError returns nil for a valid result, otherwise a VALIDATION_ERROR
// FlowError carrying every issue in its details. A single node-scoped
// error is attributed to that node.
func (r *ValidationResult) ToError() error {
	if r.Valid() {
		return nil
	}

	first := r.Errors[0]
	fe := NewError(ErrCodeValidation, first.Message)
	if len(r.Errors) > 1 {
		fe.Message = fmt.Sprintf("validation failed with %d errors", len(r.Errors))
	} else if first.NodeID != "" {
		fe.WithNode(first.NodeID)
	}

	return fe.WithDetails(map[string]any{
		"error_count":   len(r.Errors),
		"warning_count": len(r.Warnings),
		"errors":        r.Errors,
		"warnings":      r.Warnings,
	})
}
