package workflow

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"prospect-onboarding/internal/common/errors"
	"prospect-onboarding/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type MockStepStore struct {
	mock.Mock
}

func (m *MockStepStore) CurrentStep(ctx context.Context, dossierID string) (int, error) {
	args := m.Called(ctx, dossierID)
	return args.Int(0), args.Error(1)
}

func (m *MockStepStore) UpdateStep(ctx context.Context, dossierID string, step, progress int, metadata map[string]interface{}) error {
	args := m.Called(ctx, dossierID, step, progress, metadata)
	return args.Error(0)
}

type MockListener struct {
	mock.Mock
}

func (m *MockListener) StepChanged(ctx context.Context, dossierID string, d Descriptor) error {
	return m.Called(ctx, dossierID, d).Error(0)
}

type recordedAction struct {
	action, outcome string
}

type fakeRecorder struct {
	actions []recordedAction
}

func (r *fakeRecorder) RecordAction(_ context.Context, action, outcome string, _ time.Duration) {
	r.actions = append(r.actions, recordedAction{action, outcome})
}

var fixedNow = func() time.Time { return time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC) }

func newTestExecutor(t *testing.T, store StepStore, opts ...Option) *Executor {
	opts = append([]Option{WithClock(fixedNow)}, opts...)
	return NewExecutor(store, logger.NewTestLogger(t), opts...)
}

func TestExecuteAction_PerformsThenUpdates(t *testing.T) {
	ctx := context.Background()
	store := new(MockStepStore)
	listener := new(MockListener)
	recorder := &fakeRecorder{}

	var order []string
	store.On("CurrentStep", mock.Anything, "d-1").Return(0, nil)
	store.On("UpdateStep", mock.Anything, "d-1", 1, 25, mock.MatchedBy(func(md map[string]interface{}) bool {
		return md["action"] == "sign-charter" && md["previousStep"] == 0
	})).Run(func(mock.Arguments) { order = append(order, "update") }).Return(nil)
	listener.On("StepChanged", mock.Anything, "d-1", DescribeStep(1)).Return(nil)

	exec := newTestExecutor(t, store, WithListener(listener), WithRecorder(recorder))
	result, err := exec.ExecuteAction(ctx, "d-1", SignCharter, func(context.Context) error {
		order = append(order, "perform")
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.PreviousStep)
	assert.Equal(t, 1, result.Descriptor.Step)
	assert.Equal(t, 25, result.Descriptor.Progress)
	assert.Equal(t, []string{"perform", "update"}, order)
	assert.Equal(t, []recordedAction{{"sign-charter", "advanced"}}, recorder.actions)
	store.AssertExpectations(t)
	listener.AssertExpectations(t)
}

func TestExecuteAction_FailedPerformPreventsUpdate(t *testing.T) {
	ctx := context.Background()
	store := new(MockStepStore)
	store.On("CurrentStep", mock.Anything, "d-2").Return(1, nil)

	exec := newTestExecutor(t, store)
	_, err := exec.ExecuteAction(ctx, "d-2", AssignExpert, func(context.Context) error {
		return stderrors.New("expert declined")
	})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeWorkflowActionFailed))
	store.AssertNotCalled(t, "UpdateStep", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteAction_RejectsSkipsAndRewinds(t *testing.T) {
	tests := []struct {
		name    string
		current int
		action  Action
	}{
		{"skip ahead", 1, CompleteDossier},
		{"same step", 2, AssignExpert},
		{"backwards", 4, SignCharter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := new(MockStepStore)
			store.On("CurrentStep", mock.Anything, "d-3").Return(tt.current, nil)

			performed := false
			exec := newTestExecutor(t, store)
			_, err := exec.ExecuteAction(ctx, "d-3", tt.action, func(context.Context) error {
				performed = true
				return nil
			})

			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeWorkflowStepRejected))
			assert.False(t, performed)
			store.AssertNotCalled(t, "UpdateStep", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestExecuteAction_UpdateFailureIsReported(t *testing.T) {
	ctx := context.Background()
	store := new(MockStepStore)
	store.On("CurrentStep", mock.Anything, "d-4").Return(3, nil)
	store.On("UpdateStep", mock.Anything, "d-4", 4, 90, mock.Anything).Return(stderrors.New("deadlock detected"))

	recorder := &fakeRecorder{}
	exec := newTestExecutor(t, store, WithRecorder(recorder))
	_, err := exec.ExecuteAction(ctx, "d-4", ValidateDossier, nil)

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeWorkflowUpdateFailed))
	assert.Equal(t, "update_failed", recorder.actions[0].outcome)
}

func TestExecuteAction_ListenerFailureIsSoft(t *testing.T) {
	ctx := context.Background()
	store := new(MockStepStore)
	listener := new(MockListener)
	store.On("CurrentStep", mock.Anything, "d-5").Return(4, nil)
	store.On("UpdateStep", mock.Anything, "d-5", 5, 100, mock.Anything).Return(nil)
	listener.On("StepChanged", mock.Anything, "d-5", mock.Anything).Return(stderrors.New("broker unavailable"))

	exec := newTestExecutor(t, store, WithListener(listener))
	result, err := exec.ExecuteAction(ctx, "d-5", FinalizeDossier, nil)

	require.NoError(t, err)
	assert.Equal(t, 100, result.Descriptor.Progress)
}

func TestExecuteAction_StoreReadFailure(t *testing.T) {
	ctx := context.Background()
	store := new(MockStepStore)
	store.On("CurrentStep", mock.Anything, "d-6").Return(0, stderrors.New("connection refused"))

	_, err := newTestExecutor(t, store).ExecuteAction(ctx, "d-6", SignCharter, nil)

	assert.True(t, errors.HasCode(err, errors.ErrCodeDatabaseConnectionFailed))
}

func TestExecuteAction_InvalidAction(t *testing.T) {
	store := new(MockStepStore)

	_, err := newTestExecutor(t, store).ExecuteAction(context.Background(), "d-7", Action(9), nil)

	assert.True(t, errors.HasCode(err, errors.ErrCodeUnknownAction))
	store.AssertNotCalled(t, "CurrentStep", mock.Anything, mock.Anything)
}

func TestUpdateStep_ReportsFailureAsFalse(t *testing.T) {
	ctx := context.Background()
	store := new(MockStepStore)
	store.On("UpdateStep", mock.Anything, "d-8", 2, 50, map[string]interface{}(nil)).Return(stderrors.New("timeout")).Once()
	store.On("UpdateStep", mock.Anything, "d-8", 3, 75, map[string]interface{}(nil)).Return(nil).Once()

	exec := newTestExecutor(t, store)

	assert.False(t, exec.UpdateStep(ctx, "d-8", 2, 50, nil))
	assert.True(t, exec.UpdateStep(ctx, "d-8", 3, 75, nil))
}

func TestExecuteAction_RecordsSpan(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	store := new(MockStepStore)
	store.On("CurrentStep", mock.Anything, "d-9").Return(2, nil)

	_, err := newTestExecutor(t, store, WithTracer(tp.Tracer("test"))).
		ExecuteAction(context.Background(), "d-9", SignCharter, nil)
	require.Error(t, err)

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "dossier.action", ended[0].Name())
	assert.Contains(t, ended[0].Attributes(), attribute.String("dossier.id", "d-9"))
	assert.Contains(t, ended[0].Attributes(), attribute.String("dossier.outcome", "rejected"))
}
