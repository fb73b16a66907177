package workflow

import (
	"context"
	"strconv"
	"time"

	"prospect-onboarding/internal/common/errors"
	"prospect-onboarding/internal/common/logger"
	"prospect-onboarding/internal/common/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StepStore persists the dossier's step. The dossier is shared with other
// writers; the executor reads and writes it without locking.
type StepStore interface {
	CurrentStep(ctx context.Context, dossierID string) (int, error)
	UpdateStep(ctx context.Context, dossierID string, step, progress int, metadata map[string]interface{}) error
}

// StepListener is told about every committed step change.
type StepListener interface {
	StepChanged(ctx context.Context, dossierID string, descriptor Descriptor) error
}

// Recorder receives per-action measurements.
type Recorder interface {
	RecordAction(ctx context.Context, action, outcome string, duration time.Duration)
}

// Perform is the domain side effect of an action (the charter signature,
// the expert confirmation, ...). It runs before any step update.
type Perform func(ctx context.Context) error

// Result describes a committed action.
type Result struct {
	DossierID    string     `json:"dossierId"`
	Action       string     `json:"action"`
	PreviousStep int        `json:"previousStep"`
	Descriptor   Descriptor `json:"descriptor"`
}

type Executor struct {
	store    StepStore
	logger   logger.Logger
	listener StepListener
	recorder Recorder
	tracer   trace.Tracer
	now      func() time.Time
}

type Option func(*Executor)

func WithListener(l StepListener) Option {
	return func(e *Executor) { e.listener = l }
}

func WithRecorder(r Recorder) Option {
	return func(e *Executor) { e.recorder = r }
}

// WithTracer overrides the tracer taken from the global otel provider.
func WithTracer(t trace.Tracer) Option {
	return func(e *Executor) { e.tracer = t }
}

func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

func NewExecutor(store StepStore, log logger.Logger, opts ...Option) *Executor {
	e := &Executor{
		store:  store,
		logger: log,
		tracer: otel.Tracer("prospect-onboarding/workflow"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// UpdateStep persists the tuple and reports whether it succeeded. Failures
// are logged; the caller decides whether to proceed.
func (e *Executor) UpdateStep(ctx context.Context, dossierID string, step, progress int, metadata map[string]interface{}) bool {
	if err := e.store.UpdateStep(ctx, dossierID, step, progress, metadata); err != nil {
		e.logger.Error("dossier step update failed", map[string]interface{}{
			"dossierId": dossierID,
			"step":      step,
			"progress":  progress,
			"error":     err.Error(),
		})
		return false
	}
	e.logger.Info("dossier step updated", map[string]interface{}{
		"dossierId": dossierID,
		"step":      step,
		"progress":  progress,
	})
	return true
}

// ExecuteAction checks that action moves the dossier exactly one step
// forward, runs perform, and only then persists the new step. A failed
// perform leaves the step untouched.
func (e *Executor) ExecuteAction(ctx context.Context, dossierID string, action Action, perform Perform) (*Result, error) {
	start := e.now()
	outcome := "advanced"
	ctx, span := e.tracer.Start(ctx, "dossier.action", trace.WithAttributes(
		attribute.String("dossier.id", dossierID),
		attribute.String("dossier.action", action.String()),
	))
	defer func() {
		span.SetAttributes(attribute.String("dossier.outcome", outcome))
		span.End()
		metrics.WorkflowActions.WithLabelValues(action.String(), outcome).Inc()
		if e.recorder != nil {
			e.recorder.RecordAction(ctx, action.String(), outcome, e.now().Sub(start))
		}
	}()

	if !action.Valid() {
		outcome = "rejected"
		return nil, errors.NewUnknownActionError(strconv.Itoa(int(action)))
	}

	current, err := e.store.CurrentStep(ctx, dossierID)
	if err != nil {
		outcome = "action_failed"
		if _, ok := errors.AsStandard(err); ok {
			return nil, err
		}
		return nil, errors.NewDatabaseConnectionFailedError(err).WithMetadata("dossierId", dossierID)
	}

	target := NextStep(current, action)
	if !CanAdvance(current, target) {
		outcome = "rejected"
		e.logger.Warn("dossier action rejected", map[string]interface{}{
			"dossierId": dossierID,
			"action":    action.String(),
			"current":   current,
			"target":    target,
		})
		return nil, errors.NewWorkflowStepRejectedError(dossierID, current, target)
	}

	if perform != nil {
		if err := perform(ctx); err != nil {
			outcome = "action_failed"
			e.logger.Warn("dossier action failed, step not updated", map[string]interface{}{
				"dossierId": dossierID,
				"action":    action.String(),
				"error":     err.Error(),
			})
			return nil, errors.NewWorkflowActionFailedError(action.String(), err)
		}
	}

	descriptor := DescribeStep(target)
	metadata := map[string]interface{}{
		"action":       action.String(),
		"previousStep": current,
		"title":        descriptor.Title,
		"updatedAt":    e.now().UTC().Format(time.RFC3339),
	}
	if !e.UpdateStep(ctx, dossierID, target, descriptor.Progress, metadata) {
		outcome = "update_failed"
		return nil, errors.NewWorkflowUpdateFailedError(dossierID, target)
	}

	if e.listener != nil {
		if err := e.listener.StepChanged(ctx, dossierID, descriptor); err != nil {
			e.logger.Warn("step change notification failed", map[string]interface{}{
				"dossierId": dossierID,
				"step":      target,
				"error":     err.Error(),
			})
		}
	}

	return &Result{
		DossierID:    dossierID,
		Action:       action.String(),
		PreviousStep: current,
		Descriptor:   descriptor,
	}, nil
}
