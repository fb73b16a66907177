// internal/workers/prospect/run-simulation/handler.go
package runsimulation

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

const TaskType = "prospect.run-simulation"

var schema = validation.MustCompileSchema(`{
	"type": "object",
	"required": ["prospectId"],
	"properties": {
		"prospectId": {"type": "string", "minLength": 1},
		"profile": {"type": "object"}
	}
}`)

type Input struct {
	ProspectID string              `json:"prospectId"`
	Profile    models.ProfileHints `json:"profile"`
}

type Output struct {
	SimulationID     string                   `json:"simulationId,omitempty"`
	Products         []models.EligibleProduct `json:"products"`
	EligibleProducts []string                 `json:"eligibleProductIds"`
	Degraded         bool                     `json:"simulationDegraded"`
}

type Simulator interface {
	Run(ctx context.Context, prospectID string, hints models.ProfileHints) (*models.SimulationResult, error)
}

type Handler struct {
	timeout      time.Duration
	simulator    Simulator
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(wcfg config.WorkerConfig, simulator Simulator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		timeout:      config.GetDuration(wcfg.Timeout),
		simulator:    simulator,
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

// Execute degrades to an empty product list when the simulation service is
// unavailable, so the process continues like the wizard does.
func (h *Handler) Execute(ctx context.Context, input *Input) *Output {
	result, err := h.simulator.Run(ctx, input.ProspectID, input.Profile)
	if err != nil || result == nil {
		fields := map[string]interface{}{"prospectId": input.ProspectID}
		if err != nil {
			fields["error"] = err.Error()
		}
		metrics.WizardCollaboratorFailures.WithLabelValues("simulation").Inc()
		h.logger.Warn("simulation unavailable", fields)
		return &Output{Products: []models.EligibleProduct{}, EligibleProducts: []string{}, Degraded: true}
	}

	products := result.Products
	if products == nil {
		products = []models.EligibleProduct{}
	}
	return &Output{SimulationID: result.SimulationID, Products: products, EligibleProducts: result.ProductIDs()}
}
