package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrors_AreNotRetryable(t *testing.T) {
	for _, err := range []*StandardError{
		NewValidationError("companyName is required"),
		NewIllegalTransitionError("back from step 0"),
		NewStepNotSkippableError(1, "Prospect information"),
		NewTransitionInFlightError(3),
		NewSessionClosedError(),
		NewCloseNotConfirmedError(),
	} {
		t.Run(string(err.Code), func(t *testing.T) {
			assert.False(t, err.Retryable)
			assert.True(t, IsValidation(err))
			assert.Equal(t, "VALIDATION", GetErrorCategory(err.Code))
			assert.Equal(t, 0, ConvertToBPMNError(err).Retries)
		})
	}
}

func TestCollaboratorErrors_WrapCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewProspectSaveFailedError(cause)

	assert.True(t, err.Retryable)
	assert.False(t, IsValidation(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "connection refused", err.Details)
	assert.Equal(t, "PERSISTENCE", GetErrorCategory(err.Code))
}

func TestCodeOf_FindsWrappedStandardError(t *testing.T) {
	wrapped := fmt.Errorf("step 3: %w", NewExpertAssignmentFailedError(stderrors.New("timeout")))

	assert.Equal(t, ErrCodeExpertAssignmentFailed, CodeOf(wrapped))
	assert.True(t, HasCode(wrapped, ErrCodeExpertAssignmentFailed))
	assert.Equal(t, ErrorCode(""), CodeOf(stderrors.New("plain")))
}

func TestFieldValidationError_CarriesField(t *testing.T) {
	err := NewFieldValidationError("decisionMakerEmail", "invalid email")

	require.NotNil(t, err.Metadata)
	assert.Equal(t, "decisionMakerEmail", err.Metadata["field"])
}

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name    string
		err     *StandardError
		retries int
	}{
		{"meeting creation", NewMeetingCreationFailedError(stderrors.New("db down")), 3},
		{"credential email", NewCredentialEmailFailedError(stderrors.New("ses throttled")), 2},
		{"step rejected", NewWorkflowStepRejectedError("d-1", 2, 4), 0},
		{"unknown action", NewUnknownActionError("teleport"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, string(tt.err.Code), bpmn.Code)
			assert.Equal(t, tt.retries, bpmn.Retries)

			vars := bpmn.ToErrorVariables()
			assert.Equal(t, string(tt.err.Code), vars["errorCode"])
			assert.Equal(t, string(tt.err.Code), vars["originalErrorCode"])
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "WORKFLOW", GetErrorCategory(ErrCodeWorkflowActionFailed))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeDatabaseConnectionFailed))
	assert.Equal(t, "NOTIFICATION", GetErrorCategory(ErrCodeCredentialEmailFailed))
	assert.Equal(t, "EXTERNAL", GetErrorCategory(ErrCodeSimulationFailed))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeBusinessRule))
}
