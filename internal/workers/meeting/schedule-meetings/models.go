// internal/workers/meeting/schedule-meetings/models.go
package schedulemeetings

import "prospect-onboarding/internal/models"

// Input carries meetings planned with day offsets. Their date and time are
// always recomputed here from startDate, whatever the caller sent.
type Input struct {
	ProspectID  string                `json:"prospectId"`
	StartDate   string                `json:"startDate"`
	CompanyName string                `json:"companyName,omitempty"`
	NotifyPhone string                `json:"notifyPhone,omitempty"`
	Meetings    []models.MeetingDraft `json:"meetings"`
}

type ScheduledMeeting struct {
	ID            string `json:"id"`
	ParticipantID string `json:"participantId"`
	DelayDays     int    `json:"delayDays"`
	ScheduledDate string `json:"scheduledDate"`
	ScheduledTime string `json:"scheduledTime"`
}

type Output struct {
	ProspectID string             `json:"prospectId"`
	Created    int                `json:"meetingsCreated"`
	Meetings   []ScheduledMeeting `json:"meetings"`
	SMSSent    bool               `json:"smsSent"`
	Warning    string             `json:"warning,omitempty"`
}

const inputSchema = `{
	"type": "object",
	"required": ["prospectId", "startDate", "meetings"],
	"properties": {
		"prospectId": {"type": "string", "minLength": 1},
		"startDate": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
		"companyName": {"type": "string"},
		"notifyPhone": {"type": "string"},
		"meetings": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["participantType", "participantId", "medium", "delayDays"],
				"properties": {
					"participantType": {"type": "string", "enum": ["expert", "referrer"]},
					"participantId": {"type": "string", "minLength": 1},
					"medium": {"type": "string", "enum": ["physical", "video", "phone"]},
					"delayDays": {"type": "integer", "minimum": 0},
					"durationMinutes": {"type": "integer", "minimum": 0},
					"productIds": {"type": "array", "items": {"type": "string"}}
				}
			}
		}
	}
}`
