// internal/workers/prospect/save-prospect/models.go
package saveprospect

import "prospect-onboarding/internal/models"

// Input saves a prospect from a process. An empty ProspectID creates it.
type Input struct {
	ProspectID string                `json:"prospectId,omitempty"`
	Prospect   models.ProspectFields `json:"prospect"`
}

type Output struct {
	ProspectID string `json:"prospectId"`
	Created    bool   `json:"prospectCreated"`
}

const inputSchema = `{
	"type": "object",
	"required": ["prospect"],
	"properties": {
		"prospectId": {"type": "string"},
		"prospect": {
			"type": "object",
			"required": ["companyName", "decisionMakerName", "decisionMakerEmail"],
			"properties": {
				"companyName": {"type": "string", "maxLength": 200},
				"decisionMakerName": {"type": "string", "maxLength": 100},
				"decisionMakerEmail": {"type": "string", "maxLength": 255},
				"decisionMakerPhone": {"type": "string", "maxLength": 50},
				"website": {"type": "string"},
				"interestLevel": {"type": "string"},
				"timeline": {"type": "string"}
			}
		}
	}
}`
