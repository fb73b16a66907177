package camunda

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// JobRecorder is satisfied by observability.Observability.
type JobRecorder interface {
	StartSpan(ctx context.Context, name string) (context.Context, trace.Span)
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
}

// outcomeClient remembers which terminal command the handler issued.
type outcomeClient struct {
	worker.JobClient
	status string
}

func (c *outcomeClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	c.status = "completed"
	return c.JobClient.NewCompleteJobCommand()
}

func (c *outcomeClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	c.status = "failed"
	return c.JobClient.NewFailJobCommand()
}

func (c *outcomeClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	c.status = "bpmn_error"
	return c.JobClient.NewThrowErrorCommand()
}

type instrumented struct {
	taskType string
	handler  JobHandler
	recorder JobRecorder
	now      func() time.Time
}

// Instrument wraps handler so every job is counted, timed and traced under
// taskType. A job the handler leaves unanswered is recorded as "abandoned".
func Instrument(taskType string, handler JobHandler, recorder JobRecorder) JobHandler {
	if recorder == nil {
		return handler
	}
	return &instrumented{taskType: taskType, handler: handler, recorder: recorder, now: time.Now}
}

func (h *instrumented) Handle(client worker.JobClient, job entities.Job) {
	ctx, span := h.recorder.StartSpan(context.Background(), h.taskType)
	defer span.End()
	span.SetAttributes(
		attribute.Int64("job.key", job.GetKey()),
		attribute.Int64("process.instance.key", job.GetProcessInstanceKey()),
	)

	oc := &outcomeClient{JobClient: client, status: "abandoned"}
	start := h.now()
	h.handler.Handle(oc, job)

	span.SetAttributes(attribute.String("job.status", oc.status))
	h.recorder.RecordJobProcessed(ctx, h.taskType, oc.status)
	h.recorder.RecordJobDuration(ctx, h.taskType, h.now().Sub(start), oc.status)
}
