// internal/workers/prospect/save-prospect/handler.go
package saveprospect

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
	"prospect-onboarding/internal/onboarding/steps"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "prospect.save"

var schema = validation.MustCompileSchema(inputSchema)

// ProspectWriter is satisfied by the repository stores, with or without CRM
// mirroring.
type ProspectWriter interface {
	CreateProspect(ctx context.Context, f models.ProspectFields) (string, error)
	UpdateProspect(ctx context.Context, id string, f models.ProspectFields) error
}

type Handler struct {
	timeout      time.Duration
	prospects    ProspectWriter
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(wcfg config.WorkerConfig, prospects ProspectWriter, log logger.Logger) *Handler {
	timeout := 30 * time.Second
	if wcfg.Timeout > 0 {
		timeout = time.Duration(wcfg.Timeout) * time.Millisecond
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		timeout:      timeout,
		prospects:    prospects,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	output, err := h.handle(ctx, job)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err == nil {
		_, err = cmd.Send(ctx)
	}
	if err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) handle(ctx context.Context, job entities.Job) (*Output, error) {
	input, err := parseInput(job)
	if err != nil {
		return nil, err
	}
	return h.Execute(ctx, input)
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

// Execute applies the same field rules as the wizard's first step, then
// creates or updates the prospect.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := steps.ValidateProspect(input.Prospect); err != nil {
		return nil, err
	}

	if input.ProspectID != "" {
		if err := h.prospects.UpdateProspect(ctx, input.ProspectID, input.Prospect); err != nil {
			return nil, wrapSaveError(err)
		}
		return &Output{ProspectID: input.ProspectID}, nil
	}

	id, err := h.prospects.CreateProspect(ctx, input.Prospect)
	if err != nil {
		return nil, wrapSaveError(err)
	}
	h.logger.Info("prospect created", map[string]interface{}{"prospectId": id})
	return &Output{ProspectID: id, Created: true}, nil
}

func wrapSaveError(err error) error {
	if _, ok := errors.AsStandard(err); ok {
		return err
	}
	return errors.NewProspectSaveFailedError(err)
}
