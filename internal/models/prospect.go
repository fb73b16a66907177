// internal/models/prospect.go
package models

// Interest levels accepted on a prospect.
const (
	InterestHigh   = "high"
	InterestMedium = "medium"
	InterestLow    = "low"
)

// Timelines accepted on a prospect.
const (
	TimelineImmediate  = "immediate"
	TimelineOneToThree = "1-3 months"
	TimelineThreeToSix = "3-6 months"
	TimelineSixPlus    = "6 months+"
)

var (
	InterestLevels = []string{InterestHigh, InterestMedium, InterestLow}
	Timelines      = []string{TimelineImmediate, TimelineOneToThree, TimelineThreeToSix, TimelineSixPlus}
)

// ProspectFields are the contact and qualification fields owned by step 1.
type ProspectFields struct {
	CompanyName        string `json:"companyName"`
	RegistrationNumber string `json:"registrationNumber,omitempty"`
	Address            string `json:"address,omitempty"`
	Website            string `json:"website,omitempty"`
	DecisionMakerName  string `json:"decisionMakerName"`
	DecisionMakerEmail string `json:"decisionMakerEmail"`
	DecisionMakerPhone string `json:"decisionMakerPhone,omitempty"`
	DecisionMakerRole  string `json:"decisionMakerRole,omitempty"`
	InterestLevel      string `json:"interestLevel,omitempty"`
	Timeline           string `json:"timeline,omitempty"`
}

// ProspectDraft is the record accumulated across a wizard session.
// ID is empty until step 1 has been persisted.
type ProspectDraft struct {
	ID string `json:"id,omitempty"`
	ProspectFields
}

// Persisted reports whether the draft has been assigned an identity.
func (p ProspectDraft) Persisted() bool {
	return p.ID != ""
}

// ProfileHints is the minimal profile handed to the simulation service.
type ProfileHints struct {
	CompanyName        string                 `json:"companyName"`
	RegistrationNumber string                 `json:"registrationNumber,omitempty"`
	InterestLevel      string                 `json:"interestLevel,omitempty"`
	Timeline           string                 `json:"timeline,omitempty"`
	Answers            map[string]interface{} `json:"answers,omitempty"`
}

// Hints derives simulation hints from the draft.
func (p ProspectDraft) Hints() ProfileHints {
	return ProfileHints{
		CompanyName:        p.CompanyName,
		RegistrationNumber: p.RegistrationNumber,
		InterestLevel:      p.InterestLevel,
		Timeline:           p.Timeline,
	}
}
