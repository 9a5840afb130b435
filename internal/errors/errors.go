// Package errors provides structured error types for dossier.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Code represents a unique error code.
type Code string

// Error codes for dossier.
const (
	// Workflow errors
	CodeWorkflowNotFound     Code = "WORKFLOW_NOT_FOUND"
	CodeWorkflowInvalidState Code = "WORKFLOW_INVALID_STATE"
	CodeStageMismatch        Code = "STAGE_MISMATCH"
	CodeApproverNotAssigned  Code = "APPROVER_NOT_ASSIGNED"
	CodeQueueItemNotFound    Code = "QUEUE_ITEM_NOT_FOUND"

	// Entity errors
	CodeClientNotFound  Code = "CLIENT_NOT_FOUND"
	CodeProjectNotFound Code = "PROJECT_NOT_FOUND"

	// Input errors
	CodeValidationFailed Code = "VALIDATION_FAILED"
	CodeConflict         Code = "CONFLICT"

	// Config errors
	CodeConfigInvalid Code = "CONFIG_INVALID"
)

// Category groups error codes for HTTP status mapping.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryNotFound
	CategoryBadRequest
	CategoryConflict
	CategoryForbidden
	CategoryInternal
)

var codeCategories = map[Code]Category{
	CodeWorkflowNotFound:     CategoryNotFound,
	CodeWorkflowInvalidState: CategoryConflict,
	CodeStageMismatch:        CategoryConflict,
	CodeApproverNotAssigned:  CategoryForbidden,
	CodeQueueItemNotFound:    CategoryNotFound,
	CodeClientNotFound:       CategoryNotFound,
	CodeProjectNotFound:      CategoryNotFound,
	CodeValidationFailed:     CategoryBadRequest,
	CodeConflict:             CategoryConflict,
	CodeConfigInvalid:        CategoryBadRequest,
}

// HTTPStatus returns the HTTP status code for a category.
func (c Category) HTTPStatus() int {
	switch c {
	case CategoryNotFound:
		return 404
	case CategoryBadRequest:
		return 400
	case CategoryConflict:
		return 409
	case CategoryForbidden:
		return 403
	default:
		return 500
	}
}

// DossierError is the structured error type for dossier.
type DossierError struct {
	Code   Code              `json:"code"`
	What   string            `json:"what"`
	Why    string            `json:"why,omitempty"`
	Fix    string            `json:"fix,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
	Cause  error             `json:"-"`
}

// Error implements the error interface.
func (e *DossierError) Error() string {
	var b strings.Builder
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString(": ")
		b.WriteString(e.Why)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *DossierError) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly message for CLI output.
func (e *DossierError) UserMessage() string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString("\n\nWhy: ")
		b.WriteString(e.Why)
	}
	if e.Fix != "" {
		b.WriteString("\n\nFix: ")
		b.WriteString(e.Fix)
	}
	return b.String()
}

// Category returns the error category for HTTP status mapping.
func (e *DossierError) Category() Category {
	if cat, ok := codeCategories[e.Code]; ok {
		return cat
	}
	return CategoryUnknown
}

// HTTPStatus returns the appropriate HTTP status code for this error.
func (e *DossierError) HTTPStatus() int {
	return e.Category().HTTPStatus()
}

// MarshalJSON implements json.Marshaler.
func (e *DossierError) MarshalJSON() ([]byte, error) {
	type alias DossierError
	aux := struct {
		*alias
		CauseMsg string `json:"cause,omitempty"`
	}{
		alias: (*alias)(e),
	}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// Is reports whether target is a DossierError with the same code.
func (e *DossierError) Is(target error) bool {
	t, ok := target.(*DossierError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause.
func (e *DossierError) WithCause(err error) *DossierError {
	cp := *e
	cp.Cause = err
	return &cp
}

// --- Error constructors ---

// ErrWorkflowNotFound returns an error when a workflow doesn't exist.
func ErrWorkflowNotFound(id string) *DossierError {
	return &DossierError{
		Code: CodeWorkflowNotFound,
		What: fmt.Sprintf("workflow %s not found", id),
		Fix:  "Run 'dossier workflow list' to see existing workflows",
	}
}

// ErrWorkflowInvalidState returns an error when a workflow cannot take the requested action.
func ErrWorkflowInvalidState(id, current, action string) *DossierError {
	return &DossierError{
		Code: CodeWorkflowInvalidState,
		What: fmt.Sprintf("workflow %s is %s", id, current),
		Why:  fmt.Sprintf("cannot %s a workflow that is no longer in review", action),
	}
}

// ErrStageMismatch returns an error when a decision targets a stage the workflow is not at.
func ErrStageMismatch(id string, current, requested int) *DossierError {
	return &DossierError{
		Code: CodeStageMismatch,
		What: fmt.Sprintf("workflow %s is at stage %d, not stage %d", id, current, requested),
		Why:  "The workflow moved on since the decision was prepared",
		Fix:  "Reload the workflow and decide on its current stage",
	}
}

// ErrApproverNotAssigned returns an error when the acting approver holds no pending item.
func ErrApproverNotAssigned(id, approver string, stage int) *DossierError {
	return &DossierError{
		Code: CodeApproverNotAssigned,
		What: fmt.Sprintf("%s is not the assigned approver for workflow %s at stage %d", approver, id, stage),
		Fix:  "Check the approval queue, or reassign the item first",
	}
}

// ErrQueueItemNotFound returns an error when a queue item doesn't exist.
func ErrQueueItemNotFound(id string) *DossierError {
	return &DossierError{
		Code: CodeQueueItemNotFound,
		What: fmt.Sprintf("queue item %s not found", id),
	}
}

// ErrClientNotFound returns an error when a client doesn't exist.
func ErrClientNotFound(id string) *DossierError {
	return &DossierError{
		Code: CodeClientNotFound,
		What: fmt.Sprintf("client %s not found", id),
	}
}

// ErrProjectNotFound returns an error when a project doesn't exist.
func ErrProjectNotFound(id string) *DossierError {
	return &DossierError{
		Code: CodeProjectNotFound,
		What: fmt.Sprintf("project %s not found", id),
	}
}

// ErrValidation returns an input validation error with optional per-field messages.
func ErrValidation(what string, fields map[string]string) *DossierError {
	return &DossierError{
		Code:   CodeValidationFailed,
		What:   what,
		Fields: fields,
	}
}

// ErrConflict returns an error for a write that lost against a concurrent change
// or would break referential integrity.
func ErrConflict(what, why string) *DossierError {
	return &DossierError{
		Code: CodeConflict,
		What: what,
		Why:  why,
	}
}

// ErrConfigInvalid returns an error for invalid configuration.
func ErrConfigInvalid(field, reason string) *DossierError {
	return &DossierError{
		Code: CodeConfigInvalid,
		What: fmt.Sprintf("invalid configuration: %s", field),
		Why:  reason,
		Fix:  "Check dossier.yaml and fix the invalid field",
	}
}

// AsDossierError returns the first DossierError in err's chain, or nil.
func AsDossierError(err error) *DossierError {
	var de *DossierError
	if errors.As(err, &de) {
		return de
	}
	return nil
}

// HasCode reports whether err carries a DossierError with the given code.
func HasCode(err error, code Code) bool {
	de := AsDossierError(err)
	return de != nil && de.Code == code
}

// Wrap wraps a generic error into a DossierError with unknown code.
func Wrap(err error, what string) *DossierError {
	return &DossierError{
		Code:  Code("UNKNOWN"),
		What:  what,
		Cause: err,
	}
}
