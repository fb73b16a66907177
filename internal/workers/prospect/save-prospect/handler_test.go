// internal/workers/prospect/save-prospect/handler_test.go
package saveprospect

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"prospect-onboarding/internal/common/config"
	"prospect-onboarding/internal/common/errors"
	"prospect-onboarding/internal/common/logger"
	"prospect-onboarding/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProspectWriter struct {
	mock.Mock
}

func (m *MockProspectWriter) CreateProspect(ctx context.Context, f models.ProspectFields) (string, error) {
	args := m.Called(ctx, f)
	return args.String(0), args.Error(1)
}

func (m *MockProspectWriter) UpdateProspect(ctx context.Context, id string, f models.ProspectFields) error {
	return m.Called(ctx, id, f).Error(0)
}

var fields = models.ProspectFields{
	CompanyName:        "Garage Moreau",
	DecisionMakerName:  "Luc Moreau",
	DecisionMakerEmail: "luc@garage-moreau.fr",
}

func newHandler(t *testing.T, w ProspectWriter) *Handler {
	return NewHandler(config.WorkerConfig{Enabled: true, Timeout: 5000}, w, logger.NewTestLogger(t))
}

func TestParseInput(t *testing.T) {
	vars, _ := json.Marshal(map[string]interface{}{"prospect": fields})
	job := entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1, Type: TaskType, Retries: 3, Variables: string(vars)}}

	input, err := parseInput(job)
	require.NoError(t, err)
	assert.Equal(t, fields, input.Prospect)

	job.Variables = `{"prospect": {"companyName": "Garage Moreau"}}`
	_, err = parseInput(job)
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
}

func TestExecute_CreatesWhenNoID(t *testing.T) {
	w := new(MockProspectWriter)
	w.On("CreateProspect", mock.Anything, fields).Return("p-9", nil)

	out, err := newHandler(t, w).Execute(context.Background(), &Input{Prospect: fields})

	require.NoError(t, err)
	assert.Equal(t, &Output{ProspectID: "p-9", Created: true}, out)
	w.AssertExpectations(t)
}

func TestExecute_UpdatesExisting(t *testing.T) {
	w := new(MockProspectWriter)
	w.On("UpdateProspect", mock.Anything, "p-1", fields).Return(nil)

	out, err := newHandler(t, w).Execute(context.Background(), &Input{ProspectID: "p-1", Prospect: fields})

	require.NoError(t, err)
	assert.False(t, out.Created)
	w.AssertNotCalled(t, "CreateProspect", mock.Anything, mock.Anything)
}

func TestExecute_RejectsInvalidFields(t *testing.T) {
	w := new(MockProspectWriter)
	bad := fields
	bad.DecisionMakerEmail = "not-an-email"

	_, err := newHandler(t, w).Execute(context.Background(), &Input{Prospect: bad})

	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
	w.AssertNotCalled(t, "CreateProspect", mock.Anything, mock.Anything)
}

func TestExecute_StoreFailureIsRetryable(t *testing.T) {
	w := new(MockProspectWriter)
	w.On("CreateProspect", mock.Anything, fields).Return("", stderrors.New("connection refused"))

	_, err := newHandler(t, w).Execute(context.Background(), &Input{Prospect: fields})

	std, ok := errors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeProspectSaveFailed, std.Code)
	assert.True(t, std.Retryable)
}
