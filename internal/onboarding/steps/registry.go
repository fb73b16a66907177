// Package steps is the fixed catalogue of wizard steps and the completion
// contract each one must satisfy before the wizard may advance past it.
package steps

import (
	"fmt"
	"strings"

	"prospect-onboarding/internal/common/errors"
	"prospect-onboarding/internal/common/validation"
	"prospect-onboarding/internal/models"
)

type ID int

const (
	ProspectInfo ID = iota + 1
	Simulation
	ExpertSelection
	MeetingPlanning
	EmailOption
)

const (
	// Count is the number of steps in the wizard.
	Count = int(EmailOption)
	// Terminal is the position a finished or closed session rests on.
	Terminal = EmailOption + 1
)

type Step struct {
	ID        ID
	Title     string
	Skippable bool
}

var catalogue = [Count]Step{
	{ProspectInfo, "Prospect information", false},
	{Simulation, "Simulation", true},
	{ExpertSelection, "Expert selection", true},
	{MeetingPlanning, "Meeting planning", true},
	{EmailOption, "Email option", true},
}

// All returns the steps in order.
func All() []Step {
	out := make([]Step, Count)
	copy(out, catalogue[:])
	return out
}

// Get returns the step at a 1-based position.
func Get(id ID) (Step, bool) {
	if id < ProspectInfo || id > EmailOption {
		return Step{}, false
	}
	return catalogue[id-1], true
}

func (id ID) String() string {
	if s, ok := Get(id); ok {
		return s.Title
	}
	if id == Terminal {
		return "terminal"
	}
	return fmt.Sprintf("step(%d)", int(id))
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// ValidateProspect checks the step 1 contract: company name and a reachable
// decision maker are mandatory, the rest is checked only when present.
func ValidateProspect(f models.ProspectFields) error {
	switch {
	case strings.TrimSpace(f.CompanyName) == "":
		return errors.NewFieldValidationError("companyName", "company name is required")
	case strings.TrimSpace(f.DecisionMakerName) == "":
		return errors.NewFieldValidationError("decisionMakerName", "decision maker name is required")
	case strings.TrimSpace(f.DecisionMakerEmail) == "":
		return errors.NewFieldValidationError("decisionMakerEmail", "decision maker email is required")
	case !validation.ValidateEmail(f.DecisionMakerEmail):
		return errors.NewFieldValidationError("decisionMakerEmail", "decision maker email is not a valid address")
	}
	if f.DecisionMakerPhone != "" && !validation.ValidatePhone(f.DecisionMakerPhone) {
		return errors.NewFieldValidationError("decisionMakerPhone", "decision maker phone is not a valid number")
	}
	if f.Website != "" && !validation.ValidateURL(f.Website) {
		return errors.NewFieldValidationError("website", "website must be an http or https url")
	}
	if f.InterestLevel != "" && !contains(models.InterestLevels, f.InterestLevel) {
		return errors.NewFieldValidationError("interestLevel",
			fmt.Sprintf("interest level must be one of %s", strings.Join(models.InterestLevels, ", ")))
	}
	if f.Timeline != "" && !contains(models.Timelines, f.Timeline) {
		return errors.NewFieldValidationError("timeline",
			fmt.Sprintf("timeline must be one of %s", strings.Join(models.Timelines, ", ")))
	}
	return nil
}

// ValidateAssignments checks the step 3 contract. Products must come from the
// simulation when one ran; an assigned entry needs an expert.
func ValidateAssignments(m models.AssignmentMap, sim *models.SimulationResult) error {
	var known map[string]bool
	if sim != nil {
		known = make(map[string]bool)
		for _, id := range sim.ProductIDs() {
			known[id] = true
		}
	}
	for productID, a := range m {
		if productID == "" {
			return errors.NewFieldValidationError("productId", "assignment without product")
		}
		if known != nil && !known[productID] {
			return errors.NewFieldValidationError("productId",
				fmt.Sprintf("product %s is not eligible", productID))
		}
		if a.State == models.Assigned && a.ExpertID == "" {
			return errors.NewFieldValidationError("expertId",
				fmt.Sprintf("product %s is assigned without an expert", productID))
		}
	}
	return nil
}

// ValidateMeetings checks the step 4 contract on every draft.
func ValidateMeetings(drafts []models.MeetingDraft) error {
	for i, d := range drafts {
		if err := d.Validate(); err != nil {
			return errors.NewFieldValidationError(fmt.Sprintf("meetings[%d]", i), err.Error()).
				WithMetadata("meetingId", d.ID)
		}
	}
	return nil
}

// ValidateEmailChoice checks the step 5 contract.
func ValidateEmailChoice(c models.EmailChoice) error {
	if !c.Valid() {
		return errors.NewFieldValidationError("emailType", fmt.Sprintf("unknown email option %q", c))
	}
	return nil
}
