// internal/models/product.go
package models

// EligibilityStatus is the simulation verdict for a product.
type EligibilityStatus string

const (
	StatusEligible    EligibilityStatus = "eligible"
	StatusToConfirm   EligibilityStatus = "to_confirm"
	StatusNonEligible EligibilityStatus = "non_eligible"
)

// Expert is a candidate expert returned by the expert directory.
type Expert struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	CompanyName    string   `json:"companyName,omitempty"`
	Email          string   `json:"email,omitempty"`
	Specialties    []string `json:"specialties,omitempty"`
	ProductIDs     []string `json:"productIds,omitempty"`
	Rating         float64  `json:"rating,omitempty"`
	CompletedCount int      `json:"completedCount,omitempty"`
}

// SuggestedExpert is the system recommendation attached to a product.
type SuggestedExpert struct {
	Expert
	MatchScore float64 `json:"matchScore"`
}

// EligibleProduct is produced by the simulation service and consumed read-only.
type EligibleProduct struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Status           EligibilityStatus `json:"status"`
	EstimatedBenefit float64           `json:"estimatedBenefit"`
	Priority         int               `json:"priority"`
	SuggestedExpert  *SuggestedExpert  `json:"suggestedExpert,omitempty"`
}

// SimulationResult is the step 2 artifact.
type SimulationResult struct {
	SimulationID string            `json:"simulationId,omitempty"`
	Products     []EligibleProduct `json:"products"`
	Degraded     bool              `json:"degraded,omitempty"`
}

// Eligible returns the products that can receive an expert, in priority order as received.
func (r *SimulationResult) Eligible() []EligibleProduct {
	if r == nil {
		return nil
	}
	out := make([]EligibleProduct, 0, len(r.Products))
	for _, p := range r.Products {
		if p.Status == StatusEligible || p.Status == StatusToConfirm {
			out = append(out, p)
		}
	}
	return out
}

// ProductIDs lists the identifiers of the eligible products.
func (r *SimulationResult) ProductIDs() []string {
	eligible := r.Eligible()
	ids := make([]string, 0, len(eligible))
	for _, p := range eligible {
		ids = append(ids, p.ID)
	}
	return ids
}
