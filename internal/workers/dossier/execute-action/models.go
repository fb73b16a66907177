// internal/workers/dossier/execute-action/models.go
package executeaction

type Input struct {
	DossierID string `json:"dossierId"`
	Action    string `json:"action"`
	ExpertID  string `json:"expertId,omitempty"`
}

type Output struct {
	DossierID        string `json:"dossierId"`
	Action           string `json:"action"`
	PreviousStep     int    `json:"previousStep"`
	Step             int    `json:"step"`
	Progress         int    `json:"progress"`
	Title            string `json:"stepTitle"`
	Description      string `json:"stepDescription"`
	WorkflowFinished bool   `json:"workflowFinished"`
}

// Business statuses written by the last three actions.
const (
	StatusCompleted = "completed"
	StatusValidated = "validated"
	StatusFinalized = "finalized"
)

const inputSchema = `{
	"type": "object",
	"required": ["dossierId", "action"],
	"properties": {
		"dossierId": {"type": "string", "minLength": 1},
		"action": {
			"type": "string",
			"enum": ["sign-charter", "assign-expert", "complete-dossier", "validate-dossier", "finalize-dossier"]
		},
		"expertId": {"type": "string"}
	}
}`
