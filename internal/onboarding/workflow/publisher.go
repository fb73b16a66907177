package workflow

import (
	"context"
)

// StepChangedMessage is the message name correlated with the dossier id.
const StepChangedMessage = "dossier-step-changed"

// MessagePublisher is satisfied by the Zeebe client wrapper.
type MessagePublisher interface {
	PublishMessage(ctx context.Context, name, correlationKey string, variables map[string]interface{}) error
}

// StepPublisher forwards committed step changes to the process engine so a
// running onboarding process can wait on them.
type StepPublisher struct {
	publisher MessagePublisher
}

func NewStepPublisher(p MessagePublisher) *StepPublisher {
	return &StepPublisher{publisher: p}
}

func (s *StepPublisher) StepChanged(ctx context.Context, dossierID string, d Descriptor) error {
	return s.publisher.PublishMessage(ctx, StepChangedMessage, dossierID, map[string]interface{}{
		"dossierId":        dossierID,
		"currentStep":      d.Step,
		"stepTitle":        d.Title,
		"progress":         d.Progress,
		"workflowFinished": d.Step == MaxStep,
	})
}
