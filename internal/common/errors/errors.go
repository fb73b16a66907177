// Package errors provides the standardized error taxonomy shared by the
// onboarding wizard, the workflow engine and the Zeebe workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Local validation and transition errors. Never retried, never reach a collaborator.
const (
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeIllegalTransition ErrorCode = "ILLEGAL_TRANSITION"
	ErrCodeStepNotSkippable  ErrorCode = "STEP_NOT_SKIPPABLE"
	ErrCodeTransitionBusy    ErrorCode = "TRANSITION_IN_FLIGHT"
	ErrCodeSessionClosed     ErrorCode = "SESSION_CLOSED"
	ErrCodeCloseNotConfirmed ErrorCode = "CLOSE_NOT_CONFIRMED"
)

// Collaborator failures.
const (
	ErrCodeProspectSaveFailed       ErrorCode = "PROSPECT_SAVE_FAILED"
	ErrCodeProspectNotFound         ErrorCode = "PROSPECT_NOT_FOUND"
	ErrCodeExpertAssignmentFailed   ErrorCode = "EXPERT_ASSIGNMENT_FAILED"
	ErrCodeMeetingCreationFailed    ErrorCode = "MEETING_CREATION_FAILED"
	ErrCodeCredentialEmailFailed    ErrorCode = "CREDENTIAL_EMAIL_FAILED"
	ErrCodeSimulationFailed         ErrorCode = "SIMULATION_FAILED"
	ErrCodeExpertDirectoryFailed    ErrorCode = "EXPERT_DIRECTORY_FAILED"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeExternalService          ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout                  ErrorCode = "TIMEOUT"
	ErrCodeResourceNotFound         ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeAuthentication           ErrorCode = "AUTHENTICATION_FAILED"
	ErrCodeBusinessRule             ErrorCode = "BUSINESS_RULE_VIOLATION"
)

// Dossier workflow errors.
const (
	ErrCodeUnknownAction        ErrorCode = "WORKFLOW_UNKNOWN_ACTION"
	ErrCodeWorkflowStepRejected ErrorCode = "WORKFLOW_STEP_REJECTED"
	ErrCodeWorkflowActionFailed ErrorCode = "WORKFLOW_ACTION_FAILED"
	ErrCodeWorkflowUpdateFailed ErrorCode = "WORKFLOW_UPDATE_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the collaborator error the StandardError was built from.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns e after adding a metadata entry.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewValidationError creates a non-retryable local validation error.
func NewValidationError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Validation failed", details, false, nil)
}

// NewFieldValidationError creates a validation error carrying the offending field.
func NewFieldValidationError(field, details string) *StandardError {
	return NewValidationError(details).WithMetadata("field", field)
}

// NewIllegalTransitionError reports a wizard or workflow move that is not allowed.
func NewIllegalTransitionError(details string) *StandardError {
	return newError(ErrCodeIllegalTransition, "Illegal transition", details, false, nil)
}

// NewStepNotSkippableError reports a skip attempt on a mandatory step.
func NewStepNotSkippableError(step int, title string) *StandardError {
	return newError(ErrCodeStepNotSkippable, "Step cannot be skipped",
		fmt.Sprintf("step %d (%s) is mandatory", step, title), false, nil)
}

// NewTransitionInFlightError reports a transition attempted while a step call is pending.
func NewTransitionInFlightError(step int) *StandardError {
	return newError(ErrCodeTransitionBusy, "A step action is already in progress",
		fmt.Sprintf("step %d", step), false, nil)
}

// NewSessionClosedError reports use of a terminated session.
func NewSessionClosedError() *StandardError {
	return newError(ErrCodeSessionClosed, "Wizard session is closed", "", false, nil)
}

// NewCloseNotConfirmedError reports a close without the confirmation gesture.
func NewCloseNotConfirmedError() *StandardError {
	return newError(ErrCodeCloseNotConfirmed, "Closing the wizard requires confirmation",
		"unsaved session data would be discarded", false, nil)
}

// NewProspectSaveFailedError creates a retryable blocking error for step 1.
func NewProspectSaveFailedError(err error) *StandardError {
	return newError(ErrCodeProspectSaveFailed, "Failed to save prospect", err.Error(), true, err)
}

// NewProspectNotFoundError creates a non-retryable lookup error.
func NewProspectNotFoundError(id string) *StandardError {
	return newError(ErrCodeProspectNotFound, "Prospect not found", fmt.Sprintf("prospectId: %s", id), false, nil)
}

// NewExpertAssignmentFailedError creates a retryable blocking error for step 3.
func NewExpertAssignmentFailedError(err error) *StandardError {
	return newError(ErrCodeExpertAssignmentFailed, "Failed to assign experts", err.Error(), true, err)
}

// NewMeetingCreationFailedError creates a retryable blocking error for step 4.
func NewMeetingCreationFailedError(err error) *StandardError {
	return newError(ErrCodeMeetingCreationFailed, "Failed to create meetings", err.Error(), true, err)
}

// NewCredentialEmailFailedError describes a soft failure of the credential email.
func NewCredentialEmailFailedError(err error) *StandardError {
	return newError(ErrCodeCredentialEmailFailed, "Failed to send credential email", err.Error(), true, err)
}

// NewSimulationFailedError describes a degraded simulation run.
func NewSimulationFailedError(err error) *StandardError {
	return newError(ErrCodeSimulationFailed, "Simulation unavailable", err.Error(), true, err)
}

// NewExpertDirectoryFailedError describes a degraded expert lookup.
func NewExpertDirectoryFailedError(err error) *StandardError {
	return newError(ErrCodeExpertDirectoryFailed, "Expert directory unavailable", err.Error(), true, err)
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true, err)
}

// NewUnknownActionError reports an action name outside the workflow table.
func NewUnknownActionError(action string) *StandardError {
	return newError(ErrCodeUnknownAction, "Unknown workflow action", fmt.Sprintf("action: %s", action), false, nil)
}

// NewWorkflowStepRejectedError reports a step update that would skip or rewind a dossier.
func NewWorkflowStepRejectedError(dossierID string, current, target int) *StandardError {
	return newError(ErrCodeWorkflowStepRejected, "Workflow step transition rejected",
		fmt.Sprintf("dossierId: %s, current: %d, target: %d", dossierID, current, target), false, nil)
}

// NewWorkflowActionFailedError reports a failed domain action; the step was not updated.
func NewWorkflowActionFailedError(action string, err error) *StandardError {
	return newError(ErrCodeWorkflowActionFailed, "Workflow action failed",
		fmt.Sprintf("action: %s, error: %s", action, err.Error()), true, err)
}

// NewWorkflowUpdateFailedError reports a domain action that succeeded but whose step update did not.
func NewWorkflowUpdateFailedError(dossierID string, step int) *StandardError {
	return newError(ErrCodeWorkflowUpdateFailed, "Workflow step update failed",
		fmt.Sprintf("dossierId: %s, step: %d", dossierID, step), true, nil)
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return newError(ErrCodeBusinessRule, message, details, false, nil)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("%s service error", service), err.Error(), true, err)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("%s timeout", service), err.Error(), true, err)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError(ErrCodeResourceNotFound, fmt.Sprintf("%s resource not found", service), details, false, nil)
}

func NewAuthenticationError(details string) *StandardError {
	return newError(ErrCodeAuthentication, "Authentication failed", details, false, nil)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeProspectSaveFailed,
		ErrCodeExpertAssignmentFailed,
		ErrCodeMeetingCreationFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeExternalService,
		ErrCodeWorkflowActionFailed,
		ErrCodeWorkflowUpdateFailed:
		return 3

	case ErrCodeTimeout,
		ErrCodeCredentialEmailFailed:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandard extracts a StandardError from err's chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// CodeOf returns the code of a StandardError in err's chain, or "" when there is none.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := AsStandard(err); ok {
		return stdErr.Code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsValidation reports whether err is a local error that never reached a collaborator.
func IsValidation(err error) bool {
	switch CodeOf(err) {
	case ErrCodeValidationFailed, ErrCodeIllegalTransition, ErrCodeStepNotSkippable,
		ErrCodeTransitionBusy, ErrCodeSessionClosed, ErrCodeCloseNotConfirmed:
		return true
	}
	return false
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "WORKFLOW"):
		return "WORKFLOW"
	case strings.Contains(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.Contains(codeStr, "EMAIL"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "SIMULATION") || strings.Contains(codeStr, "DIRECTORY") ||
		strings.Contains(codeStr, "EXTERNAL") || strings.Contains(codeStr, "TIMEOUT"):
		return "EXTERNAL"
	case strings.Contains(codeStr, "PROSPECT") || strings.Contains(codeStr, "ASSIGNMENT") ||
		strings.Contains(codeStr, "MEETING"):
		return "PERSISTENCE"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "TRANSITION") ||
		strings.Contains(codeStr, "SKIPPABLE") || strings.Contains(codeStr, "SESSION") ||
		strings.Contains(codeStr, "CLOSE"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
