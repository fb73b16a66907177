// internal/repository/crm_sync.go
package repository

import (
	"context"
	"strings"

	"prospect-onboarding/internal/common/logger"
	"prospect-onboarding/internal/common/zoho"
	"prospect-onboarding/internal/models"
)

// LeadClient is the subset of the Zoho CRM client used for mirroring.
type LeadClient interface {
	CreateLead(ctx context.Context, lead *zoho.Lead) (string, error)
	UpdateLead(ctx context.Context, id string, lead *zoho.Lead) error
}

// CRMSyncStore mirrors prospect saves into the CRM as leads. The database
// stays the system of record: CRM failures are logged, never returned.
type CRMSyncStore struct {
	*ProspectStore
	crm    LeadClient
	logger logger.Logger
}

func NewCRMSyncStore(store *ProspectStore, crm LeadClient, log logger.Logger) *CRMSyncStore {
	return &CRMSyncStore{
		ProspectStore: store,
		crm:           crm,
		logger:        log.WithFields(map[string]interface{}{"store": "crm-sync"}),
	}
}

func (s *CRMSyncStore) CreateProspect(ctx context.Context, f models.ProspectFields) (string, error) {
	id, err := s.ProspectStore.CreateProspect(ctx, f)
	if err != nil {
		return "", err
	}
	s.createLead(ctx, id, f)
	return id, nil
}

func (s *CRMSyncStore) UpdateProspect(ctx context.Context, id string, f models.ProspectFields) error {
	if err := s.ProspectStore.UpdateProspect(ctx, id, f); err != nil {
		return err
	}

	leadID, err := s.ProspectStore.CRMLeadID(ctx, id)
	if err != nil {
		s.warn("crm lead lookup failed", id, err)
		return nil
	}
	if leadID == "" {
		s.createLead(ctx, id, f)
		return nil
	}
	if err := s.crm.UpdateLead(ctx, leadID, LeadFromProspect(f)); err != nil {
		s.warn("crm lead update failed", id, err)
	}
	return nil
}

func (s *CRMSyncStore) createLead(ctx context.Context, prospectID string, f models.ProspectFields) {
	leadID, err := s.crm.CreateLead(ctx, LeadFromProspect(f))
	if err != nil {
		s.warn("crm lead creation failed", prospectID, err)
		return
	}
	if err := s.ProspectStore.SetCRMLeadID(ctx, prospectID, leadID); err != nil {
		s.warn("crm lead id not stored", prospectID, err)
		return
	}
	s.logger.Info("prospect mirrored to crm", map[string]interface{}{
		"prospectId": prospectID,
		"leadId":     leadID,
	})
}

func (s *CRMSyncStore) warn(msg, prospectID string, err error) {
	s.logger.Warn(msg, map[string]interface{}{
		"prospectId": prospectID,
		"error":      err.Error(),
	})
}

// LeadFromProspect maps prospect fields onto a CRM lead. The last word of the
// decision maker's name is the lead's last name.
func LeadFromProspect(f models.ProspectFields) *zoho.Lead {
	lead := &zoho.Lead{
		Company:     f.CompanyName,
		LastName:    f.DecisionMakerName,
		Email:       f.DecisionMakerEmail,
		Phone:       f.DecisionMakerPhone,
		Website:     f.Website,
		Designation: f.DecisionMakerRole,
		Street:      f.Address,
		Source:      "Onboarding wizard",
	}
	if parts := strings.Fields(f.DecisionMakerName); len(parts) > 1 {
		lead.FirstName = strings.Join(parts[:len(parts)-1], " ")
		lead.LastName = parts[len(parts)-1]
	}
	var notes []string
	if f.InterestLevel != "" {
		notes = append(notes, "interest: "+f.InterestLevel)
	}
	if f.Timeline != "" {
		notes = append(notes, "timeline: "+f.Timeline)
	}
	lead.Description = strings.Join(notes, "; ")
	return lead
}
