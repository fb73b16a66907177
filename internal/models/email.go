// internal/models/email.go
package models

// EmailChoice is the step 5 decision.
type EmailChoice string

const (
	EmailNone             EmailChoice = "none"
	EmailWarmFollowUp     EmailChoice = "exchange"
	EmailColdIntroduction EmailChoice = "presentation"
)

// Valid reports whether the choice is one of the three known values.
func (c EmailChoice) Valid() bool {
	switch c {
	case EmailNone, EmailWarmFollowUp, EmailColdIntroduction:
		return true
	}
	return false
}

// Sends reports whether the choice dispatches a credential email.
func (c EmailChoice) Sends() bool {
	return c == EmailWarmFollowUp || c == EmailColdIntroduction
}

// CredentialEmail is the rendered credential message for a prospect.
type CredentialEmail struct {
	ProspectID string      `json:"prospectId"`
	To         string      `json:"to"`
	Variant    EmailChoice `json:"variant"`
	Subject    string      `json:"subject"`
	Body       string      `json:"body"`
}
