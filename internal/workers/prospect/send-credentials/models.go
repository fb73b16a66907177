// internal/workers/prospect/send-credentials/models.go
package sendcredentials

import "prospect-onboarding/internal/models"

type Input struct {
	ProspectID string             `json:"prospectId"`
	EmailType  models.EmailChoice `json:"emailType"`
}

type Output struct {
	ProspectID string `json:"prospectId"`
	EmailType  string `json:"emailType"`
	Sent       bool   `json:"credentialsSent"`
	MessageID  string `json:"messageId,omitempty"`
	Warning    string `json:"warning,omitempty"`
}

const inputSchema = `{
	"type": "object",
	"required": ["prospectId", "emailType"],
	"properties": {
		"prospectId": {"type": "string", "minLength": 1},
		"emailType": {"type": "string", "enum": ["none", "exchange", "presentation"]}
	}
}`
