// internal/workers/meeting/schedule-meetings/handler.go
package schedulemeetings

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"prospect-onboarding/internal/common/errors"
	"prospect-onboarding/internal/common/logger"
	"prospect-onboarding/internal/common/metrics"
	"prospect-onboarding/internal/common/validation"
	"prospect-onboarding/internal/models"
	"prospect-onboarding/internal/onboarding/scheduler"
	"prospect-onboarding/internal/onboarding/steps"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const TaskType = "meeting.schedule"

var schema = validation.MustCompileSchema(inputSchema)

type MeetingStore interface {
	CreateMeetings(ctx context.Context, prospectID string, meetings []models.MeetingRequest) (int, error)
}

// Notifier sends the optional confirmation SMS.
type Notifier interface {
	Notify(ctx context.Context, phone, company string, slots []time.Time) (bool, error)
}

type Handler struct {
	config       *Config
	store        MeetingStore
	notifier     Notifier
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
	newID        func() string
}

// NewHandler builds the worker. notifier may be nil when SMS is disabled.
func NewHandler(cfg *Config, store MeetingStore, notifier Notifier, log logger.Logger) *Handler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       cfg,
		store:        store,
		notifier:     notifier,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
		newID:        uuid.NewString,
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

// Execute resolves every meeting's offset against the start date, persists
// the batch and then texts the prospect. The SMS is best effort.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	start, err := scheduler.ParseStart(input.StartDate, h.config.Location)
	if err != nil {
		return nil, errors.NewFieldValidationError("startDate", err.Error())
	}

	delays := make([]int, len(input.Meetings))
	for i, m := range input.Meetings {
		if m.DelayDays == nil {
			return nil, errors.NewFieldValidationError("meetings", "every meeting needs delayDays")
		}
		delays[i] = *m.DelayDays
	}
	slots, err := scheduler.Compute(start, delays)
	if err != nil {
		return nil, errors.NewFieldValidationError("meetings", err.Error())
	}

	drafts := make([]models.MeetingDraft, len(input.Meetings))
	for i, m := range input.Meetings {
		if m.ID == "" {
			m.ID = h.newID()
		}
		if m.DurationMinutes == 0 {
			m.DurationMinutes = h.config.DefaultDuration
		}
		m.ScheduledDate = slots[i].Format(models.DateLayout)
		m.ScheduledTime = slots[i].Format(models.TimeLayout)
		drafts[i] = m
	}
	if err := steps.ValidateMeetings(drafts); err != nil {
		return nil, err
	}

	requests := make([]models.MeetingRequest, len(drafts))
	for i, d := range drafts {
		requests[i] = d.Request()
	}
	created, err := h.store.CreateMeetings(ctx, input.ProspectID, requests)
	if err != nil {
		if _, ok := errors.AsStandard(err); ok {
			return nil, err
		}
		return nil, errors.NewMeetingCreationFailedError(err).WithMetadata("prospectId", input.ProspectID)
	}

	out := &Output{ProspectID: input.ProspectID, Created: created}
	for i, d := range drafts {
		out.Meetings = append(out.Meetings, ScheduledMeeting{
			ID:            d.ID,
			ParticipantID: d.ParticipantID,
			DelayDays:     delays[i],
			ScheduledDate: d.ScheduledDate,
			ScheduledTime: d.ScheduledTime,
		})
	}

	if h.notifier != nil && input.NotifyPhone != "" {
		sent, err := h.notifier.Notify(ctx, input.NotifyPhone, input.CompanyName, slots)
		if err != nil {
			out.Warning = "meeting confirmation SMS could not be sent"
			h.logger.Warn("meeting confirmation failed", map[string]interface{}{
				"prospectId": input.ProspectID,
				"error":      err.Error(),
			})
		}
		out.SMSSent = sent
	}
	return out, nil
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
	h.logger.Info("meetings scheduled", map[string]interface{}{
		"jobKey":     job.GetKey(),
		"prospectId": output.ProspectID,
		"created":    output.Created,
		"smsSent":    output.SMSSent,
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}
