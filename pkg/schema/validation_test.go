package schema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationResult_EmptyIsValid(t *testing.T) {
	r := &ValidationResult{}
	assert.True(t, r.Valid())
}

func TestValidationResult_AddError(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("nodes[0].id", ErrCodeValidation, "id is required")

	assert.False(t, r.Valid())
	require.Len(t, r.Errors, 1)
	assert.Equal(t, "nodes[0].id", r.Errors[0].Path)
	assert.Equal(t, ErrCodeValidation, r.Errors[0].Code)
	assert.Equal(t, "id is required", r.Errors[0].Message)
	assert.Equal(t, SeverityError, r.Errors[0].Severity)
}

func TestValidationResult_AddWarning(t *testing.T) {
	r := &ValidationResult{}
	r.AddWarning("edges[3].target", ErrCodeValidation, "target references unknown node")

	assert.True(t, r.Valid(), "warnings alone should not make result invalid")
	require.Len(t, r.Warnings, 1)
	assert.Equal(t, SeverityWarning, r.Warnings[0].Severity)
}

func TestValidationResult_Merge(t *testing.T) {
	r1 := &ValidationResult{}
	r1.AddError("/", ErrCodeValidation, "err1")
	r1.AddWarning("/", ErrCodeValidation, "warn1")

	r2 := &ValidationResult{}
	r2.AddError("nodes[2]", ErrCodeConflict, "err2")
	r2.AddWarning("edges[1]", ErrCodeValidation, "warn2")

	r1.Merge(r2)

	assert.Len(t, r1.Errors, 2)
	assert.Len(t, r1.Warnings, 2)
}

func TestValidationResult_MergeNil(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("/", ErrCodeValidation, "err")
	r.Merge(nil)
	assert.Len(t, r.Errors, 1)
}

func TestValidationResult_ToError_Valid(t *testing.T) {
	r := &ValidationResult{}
	r.AddWarning("/", ErrCodeValidation, "just a warning")
	assert.Nil(t, r.ToError())
}

func TestValidationResult_ToError_SingleError(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("nodes[0].id", ErrCodeValidation, "id is required")

	err := r.ToError()
	require.NotNil(t, err)

	flowErr, ok := err.(*FlowError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeValidation, flowErr.Code)
	assert.Equal(t, "id is required", flowErr.Message)
	assert.Equal(t, 1, flowErr.Details["error_count"])
}

func TestValidationResult_ToError_MultipleErrors(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("/", ErrCodeValidation, "err1")
	r.AddError("/", ErrCodeValidation, "err2")
	r.AddWarning("/", ErrCodeValidation, "warn1")

	err := r.ToError()
	require.NotNil(t, err)

	flowErr, ok := err.(*FlowError)
	require.True(t, ok)
	assert.Contains(t, flowErr.Message, "2 errors")
	assert.Equal(t, 2, flowErr.Details["error_count"])
	assert.Equal(t, 1, flowErr.Details["warning_count"])
}

func TestValidationResult_NodeAttribution(t *testing.T) {
	r := &ValidationResult{}
	r.AddNodeWarning("nodes[2].id", "stage-1", "duplicate node id")
	r.Errors = append(r.Errors, ValidationIssue{
		Path: "edges[0]", NodeID: "end", Code: ErrCodeValidation, Message: "bad edge", Severity: SeverityError,
	})

	assert.Equal(t, "error edges[0] (end): bad edge\nwarning nodes[2].id (stage-1): duplicate node id\n", r.Summary())

	var fe *FlowError
	require.ErrorAs(t, r.ToError(), &fe)
	assert.Equal(t, "end", fe.NodeID)
	assert.Equal(t, "[VALIDATION_ERROR] node end: bad edge", fe.Error())
}

func TestIsCode(t *testing.T) {
	base := NewError(ErrCodeNotFound, "workflow wf-1 not found")
	wrapped := fmt.Errorf("panel: %w", base)

	assert.True(t, IsCode(wrapped, ErrCodeNotFound))
	assert.False(t, IsCode(wrapped, ErrCodeValidation))
	assert.False(t, IsCode(errors.New("plain"), ErrCodeNotFound))
}

func TestFlowError_NodeInMessage(t *testing.T) {
	err := NewError(ErrCodeValidation, "duplicate id").WithNode("stage-1")
	assert.Equal(t, "[VALIDATION_ERROR] node stage-1: duplicate id", err.Error())
}

func TestDataString(t *testing.T) {
	n := DiagramNode{ID: "substage-4", Data: map[string]any{"stageId": float64(2), "processId": "pnl"}}
	assert.Equal(t, "2", n.DataString("stageId"))
	assert.Equal(t, "pnl", n.DataString("processId"))
	assert.Equal(t, "", n.DataString("missing"))

	var empty DiagramNode
	assert.Equal(t, "", empty.DataString("stageId"))
}
