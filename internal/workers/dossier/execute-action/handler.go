// internal/workers/dossier/execute-action/handler.go
package executeaction

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"prospect-onboarding/internal/common/errors"
	"prospect-onboarding/internal/common/logger"
	"prospect-onboarding/internal/common/metrics"
	"prospect-onboarding/internal/common/validation"
	"prospect-onboarding/internal/onboarding/workflow"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "dossier.execute-action"

var schema = validation.MustCompileSchema(inputSchema)

// DossierMutator performs the domain side effect of each action.
type DossierMutator interface {
	SignCharter(ctx context.Context, dossierID string) error
	ConfirmExpert(ctx context.Context, dossierID, expertID string) error
	SetStatus(ctx context.Context, dossierID, status string) error
}

type Handler struct {
	config       *Config
	executor     *workflow.Executor
	dossiers     DossierMutator
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(cfg *Config, executor *workflow.Executor, dossiers DossierMutator, log logger.Logger) *Handler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       cfg,
		executor:     executor,
		dossiers:     dossiers,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
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

// Execute advances the dossier by one action. The step moves only after the
// matching dossier mutation succeeded.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	action, ok := workflow.ParseAction(input.Action)
	if !ok {
		return nil, errors.NewUnknownActionError(input.Action)
	}

	result, err := h.executor.ExecuteAction(ctx, input.DossierID, action, h.perform(action, input))
	if err != nil {
		return nil, err
	}

	return &Output{
		DossierID:        result.DossierID,
		Action:           result.Action,
		PreviousStep:     result.PreviousStep,
		Step:             result.Descriptor.Step,
		Progress:         result.Descriptor.Progress,
		Title:            result.Descriptor.Title,
		Description:      result.Descriptor.Description,
		WorkflowFinished: result.Descriptor.Step == workflow.MaxStep,
	}, nil
}

func (h *Handler) perform(action workflow.Action, input *Input) workflow.Perform {
	id := input.DossierID
	switch action {
	case workflow.SignCharter:
		return func(ctx context.Context) error { return h.dossiers.SignCharter(ctx, id) }
	case workflow.AssignExpert:
		return func(ctx context.Context) error { return h.dossiers.ConfirmExpert(ctx, id, input.ExpertID) }
	case workflow.CompleteDossier:
		return func(ctx context.Context) error { return h.dossiers.SetStatus(ctx, id, StatusCompleted) }
	case workflow.ValidateDossier:
		return func(ctx context.Context) error { return h.dossiers.SetStatus(ctx, id, StatusValidated) }
	case workflow.FinalizeDossier:
		return func(ctx context.Context) error { return h.dossiers.SetStatus(ctx, id, StatusFinalized) }
	}
	return nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	h.logger.Info("dossier action completed", map[string]interface{}{
		"jobKey":    job.GetKey(),
		"dossierId": output.DossierID,
		"action":    output.Action,
		"step":      output.Step,
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}
