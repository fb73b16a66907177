// internal/models/meeting.go
package models

import (
	"fmt"
	"strings"
	"time"
)

// ParticipantType identifies the single non-prospect participant of a meeting.
type ParticipantType string

const (
	ParticipantExpert   ParticipantType = "expert"
	ParticipantReferrer ParticipantType = "referrer"
)

// Medium is how a meeting takes place.
type Medium string

const (
	MediumInPerson Medium = "physical"
	MediumVideo    Medium = "video"
	MediumPhone    Medium = "phone"
)

// Date and time layouts used on the wire.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

const DefaultMeetingDuration = 60

// MeetingOption is a candidate participant offered by the meeting planning step.
type MeetingOption struct {
	ParticipantType ParticipantType `json:"participantType"`
	ParticipantID   string          `json:"participantId"`
	Name            string          `json:"name"`
	Company         string          `json:"company,omitempty"`
	ProductIDs      []string        `json:"productIds"`
}

// MeetingDraft is one meeting being planned in the wizard. Submitted is set
// once persistence accepted it, so it is never sent twice.
type MeetingDraft struct {
	ID                 string          `json:"id"`
	ParticipantType    ParticipantType `json:"participantType"`
	ParticipantID      string          `json:"participantId"`
	ParticipantName    string          `json:"participantName,omitempty"`
	ParticipantCompany string          `json:"participantCompany,omitempty"`
	Medium             Medium          `json:"medium"`
	DelayDays          *int            `json:"delayDays,omitempty"`
	ScheduledDate      string          `json:"scheduledDate"`
	ScheduledTime      string          `json:"scheduledTime"`
	Location           string          `json:"location,omitempty"`
	MeetingURL         string          `json:"meetingUrl,omitempty"`
	PhoneNumber        string          `json:"phoneNumber,omitempty"`
	Notes              string          `json:"notes,omitempty"`
	DurationMinutes    int             `json:"durationMinutes"`
	ProductIDs         []string        `json:"productIds"`
	Submitted          bool            `json:"submitted,omitempty"`
}

// Validate checks the fields required before a draft can be submitted.
func (m MeetingDraft) Validate() error {
	if strings.TrimSpace(m.ParticipantID) == "" {
		return fmt.Errorf("meeting %s: participant is required", m.ID)
	}
	if m.ParticipantType != ParticipantExpert && m.ParticipantType != ParticipantReferrer {
		return fmt.Errorf("meeting %s: unknown participant type %q", m.ID, m.ParticipantType)
	}
	if strings.TrimSpace(m.ScheduledDate) == "" || strings.TrimSpace(m.ScheduledTime) == "" {
		return fmt.Errorf("meeting %s: date and time are required", m.ID)
	}
	if _, err := time.Parse(DateLayout, m.ScheduledDate); err != nil {
		return fmt.Errorf("meeting %s: invalid date %q", m.ID, m.ScheduledDate)
	}
	if _, err := time.Parse(TimeLayout, m.ScheduledTime); err != nil {
		return fmt.Errorf("meeting %s: invalid time %q", m.ID, m.ScheduledTime)
	}
	if m.DurationMinutes <= 0 {
		return fmt.Errorf("meeting %s: duration must be positive", m.ID)
	}
	switch m.Medium {
	case MediumInPerson:
		if strings.TrimSpace(m.Location) == "" {
			return fmt.Errorf("meeting %s: location is required for in-person meetings", m.ID)
		}
	case MediumVideo:
		if strings.TrimSpace(m.MeetingURL) == "" {
			return fmt.Errorf("meeting %s: meeting url is required for video meetings", m.ID)
		}
	case MediumPhone:
		if strings.TrimSpace(m.PhoneNumber) == "" {
			return fmt.Errorf("meeting %s: phone number is required for phone meetings", m.ID)
		}
	default:
		return fmt.Errorf("meeting %s: unknown medium %q", m.ID, m.Medium)
	}
	return nil
}

// MeetingRequest is the persisted shape of a meeting, resolved to participant ids.
type MeetingRequest struct {
	ExpertID          string   `json:"expert_id,omitempty"`
	ReferrerID        string   `json:"apporteur_id,omitempty"`
	MeetingType       Medium   `json:"meeting_type"`
	ScheduledDate     string   `json:"scheduled_date"`
	ScheduledTime     string   `json:"scheduled_time"`
	Location          string   `json:"location,omitempty"`
	MeetingURL        string   `json:"meeting_url,omitempty"`
	PhoneNumber       string   `json:"phone_number,omitempty"`
	Notes             string   `json:"notes,omitempty"`
	EstimatedDuration int      `json:"estimated_duration"`
	ProductIDs        []string `json:"product_ids"`
}

// Request resolves the draft into its persisted shape. Only the field matching the medium is kept.
func (m MeetingDraft) Request() MeetingRequest {
	req := MeetingRequest{
		MeetingType:       m.Medium,
		ScheduledDate:     m.ScheduledDate,
		ScheduledTime:     m.ScheduledTime,
		Notes:             m.Notes,
		EstimatedDuration: m.DurationMinutes,
		ProductIDs:        append([]string{}, m.ProductIDs...),
	}
	if m.ParticipantType == ParticipantExpert {
		req.ExpertID = m.ParticipantID
	} else {
		req.ReferrerID = m.ParticipantID
	}
	switch m.Medium {
	case MediumInPerson:
		req.Location = m.Location
	case MediumVideo:
		req.MeetingURL = m.MeetingURL
	case MediumPhone:
		req.PhoneNumber = m.PhoneNumber
	}
	return req
}
