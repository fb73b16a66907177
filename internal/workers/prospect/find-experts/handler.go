// internal/workers/prospect/find-experts/handler.go
package findexperts

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"prospect-onboarding/internal/common/config"
	"prospect-onboarding/internal/common/errors"
	"prospect-onboarding/internal/common/logger"
	"prospect-onboarding/internal/common/metrics"
	"prospect-onboarding/internal/common/validation"
	"prospect-onboarding/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "prospect.find-experts"

var schema = validation.MustCompileSchema(`{
	"type": "object",
	"required": ["productIds"],
	"properties": {
		"productIds": {"type": "array", "items": {"type": "string", "minLength": 1}}
	}
}`)

type Input struct {
	ProductIDs []string `json:"productIds"`
}

type Output struct {
	Experts  []models.Expert `json:"experts"`
	Degraded bool            `json:"expertsDegraded"`
}

type Directory interface {
	ExpertsForProducts(ctx context.Context, productIDs []string) ([]models.Expert, error)
}

type Handler struct {
	timeout      time.Duration
	directory    Directory
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(wcfg config.WorkerConfig, directory Directory, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		timeout:      config.GetDuration(wcfg.Timeout),
		directory:    directory,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	input, err := parseInput(job)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(h.Execute(ctx, input))
	if err == nil {
		_, err = cmd.Send(ctx)
	}
	if err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"jobKey": job.GetKey(), "error": err.Error()})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewValidationError("job variables are not a JSON object: " + err.Error())
	}
	result, err := schema.Validate(variables)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	if !result.Valid {
		return nil, errors.NewValidationError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	return &input, nil
}

// Execute never fails: an unavailable directory yields no candidates.
func (h *Handler) Execute(ctx context.Context, input *Input) *Output {
	experts, err := h.directory.ExpertsForProducts(ctx, input.ProductIDs)
	if err != nil {
		metrics.WizardCollaboratorFailures.WithLabelValues("expert_directory").Inc()
		h.logger.Warn("expert directory unavailable", map[string]interface{}{
			"products": input.ProductIDs,
			"error":    err.Error(),
		})
		return &Output{Experts: []models.Expert{}, Degraded: true}
	}
	if experts == nil {
		experts = []models.Expert{}
	}
	return &Output{Experts: experts}
}
