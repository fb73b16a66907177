// internal/workers/prospect/find-experts/handler_test.go
package findexperts

import (
	"context"
	stderrors "errors"
	"testing"

	"prospect-onboarding/internal/common/config"
	"prospect-onboarding/internal/common/logger"
	"prospect-onboarding/internal/models"

	"github.com/stretchr/testify/assert"
)

type directoryFunc func(ctx context.Context, productIDs []string) ([]models.Expert, error)

func (f directoryFunc) ExpertsForProducts(ctx context.Context, productIDs []string) ([]models.Expert, error) {
	return f(ctx, productIDs)
}

func TestExecute(t *testing.T) {
	h := NewHandler(config.WorkerConfig{Timeout: 1000}, directoryFunc(func(_ context.Context, ids []string) ([]models.Expert, error) {
		assert.Equal(t, []string{"ticpe"}, ids)
		return []models.Expert{{ID: "e-1", Name: "Sophie Laurent"}}, nil
	}), logger.NewTestLogger(t))

	out := h.Execute(context.Background(), &Input{ProductIDs: []string{"ticpe"}})

	assert.False(t, out.Degraded)
	assert.Len(t, out.Experts, 1)
}

func TestExecute_DegradesOnFailure(t *testing.T) {
	h := NewHandler(config.WorkerConfig{Timeout: 1000}, directoryFunc(func(context.Context, []string) ([]models.Expert, error) {
		return nil, stderrors.New("cluster_block_exception")
	}), logger.NewTestLogger(t))

	out := h.Execute(context.Background(), &Input{ProductIDs: []string{"ticpe"}})

	assert.True(t, out.Degraded)
	assert.NotNil(t, out.Experts)
	assert.Empty(t, out.Experts)
}
