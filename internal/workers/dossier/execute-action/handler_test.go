// internal/workers/dossier/execute-action/handler_test.go
package executeaction

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"prospect-onboarding/internal/common/errors"
	"prospect-onboarding/internal/common/logger"
	"prospect-onboarding/internal/onboarding/workflow"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryDossier is both the step store and the mutator of a single dossier.
type memoryDossier struct {
	step      int
	progress  int
	calls     []string
	mutateErr error
}

func (m *memoryDossier) CurrentStep(context.Context, string) (int, error) { return m.step, nil }

func (m *memoryDossier) UpdateStep(_ context.Context, _ string, step, progress int, _ map[string]interface{}) error {
	m.step, m.progress = step, progress
	return nil
}

func (m *memoryDossier) record(call string) error {
	if m.mutateErr != nil {
		return m.mutateErr
	}
	m.calls = append(m.calls, call)
	return nil
}

func (m *memoryDossier) SignCharter(context.Context, string) error { return m.record("charter") }

func (m *memoryDossier) ConfirmExpert(_ context.Context, _, expertID string) error {
	if expertID == "" {
		return errors.NewFieldValidationError("expertId", "expert is required to confirm an assignment")
	}
	return m.record("expert:" + expertID)
}

func (m *memoryDossier) SetStatus(_ context.Context, _, status string) error {
	return m.record("status:" + status)
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "dossier-lifecycle",
		ElementId:          "Activity_ExecuteAction",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func newHandler(t *testing.T, d *memoryDossier) *Handler {
	log := logger.NewTestLogger(t)
	return NewHandler(DefaultConfig(), workflow.NewExecutor(d, log), d, log)
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]interface{}
		wantErr bool
	}{
		{"valid", map[string]interface{}{"dossierId": "d-1", "action": "sign-charter", "clientId": "c-1"}, false},
		{"with expert", map[string]interface{}{"dossierId": "d-1", "action": "assign-expert", "expertId": "e-1"}, false},
		{"missing action", map[string]interface{}{"dossierId": "d-1"}, true},
		{"unknown action", map[string]interface{}{"dossierId": "d-1", "action": "archive"}, true},
		{"empty dossier", map[string]interface{}{"dossierId": "", "action": "sign-charter"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := parseInput(createMockJob(1, tt.vars))
			if tt.wantErr {
				assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.vars["dossierId"], input.DossierID)
		})
	}
}

func TestExecute_AdvancesOneStep(t *testing.T) {
	d := &memoryDossier{}
	h := newHandler(t, d)

	out, err := h.Execute(context.Background(), &Input{DossierID: "d-1", Action: "sign-charter"})

	require.NoError(t, err)
	assert.Equal(t, 0, out.PreviousStep)
	assert.Equal(t, 1, out.Step)
	assert.Equal(t, 25, out.Progress)
	assert.Equal(t, "Charter signed", out.Title)
	assert.False(t, out.WorkflowFinished)
	assert.Equal(t, []string{"charter"}, d.calls)
	assert.Equal(t, 1, d.step)
}

func TestExecute_FullLifecycle(t *testing.T) {
	d := &memoryDossier{}
	h := newHandler(t, d)
	ctx := context.Background()

	var last *Output
	for _, a := range []string{"sign-charter", "assign-expert", "complete-dossier", "validate-dossier", "finalize-dossier"} {
		out, err := h.Execute(ctx, &Input{DossierID: "d-1", Action: a, ExpertID: "e-7"})
		require.NoError(t, err, a)
		last = out
	}

	assert.True(t, last.WorkflowFinished)
	assert.Equal(t, 100, last.Progress)
	assert.Equal(t, []string{"charter", "expert:e-7", "status:completed", "status:validated", "status:finalized"}, d.calls)
}

func TestExecute_RejectsSkip(t *testing.T) {
	d := &memoryDossier{}

	_, err := newHandler(t, d).Execute(context.Background(), &Input{DossierID: "d-1", Action: "validate-dossier"})

	assert.True(t, errors.HasCode(err, errors.ErrCodeWorkflowStepRejected))
	assert.Empty(t, d.calls)
	assert.Equal(t, 0, d.step)
}

func TestExecute_FailedMutationKeepsStep(t *testing.T) {
	d := &memoryDossier{step: 1, mutateErr: stderrors.New("connection reset by peer")}

	_, err := newHandler(t, d).Execute(context.Background(), &Input{DossierID: "d-1", Action: "assign-expert", ExpertID: "e-1"})

	assert.True(t, errors.HasCode(err, errors.ErrCodeWorkflowActionFailed))
	assert.Equal(t, 1, d.step)
}

func TestExecute_AssignWithoutExpert(t *testing.T) {
	d := &memoryDossier{step: 1}

	_, err := newHandler(t, d).Execute(context.Background(), &Input{DossierID: "d-1", Action: "assign-expert"})

	assert.True(t, errors.HasCode(err, errors.ErrCodeWorkflowActionFailed))
	assert.Equal(t, 1, d.step)
}

func TestExecute_UnknownAction(t *testing.T) {
	_, err := newHandler(t, &memoryDossier{}).Execute(context.Background(), &Input{DossierID: "d-1", Action: "archive"})

	assert.True(t, errors.HasCode(err, errors.ErrCodeUnknownAction))
}
