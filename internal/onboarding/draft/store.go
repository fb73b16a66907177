// Package draft holds everything a wizard session accumulates: the prospect
// record and the artifacts of each step. It is a working cache; every
// meaningful mutation is also sent to persistence by the wizard controller.
package draft

import (
	"fmt"
	"sort"

	"prospect-onboarding/internal/models"
)

// Store is a value type. Clone before handing it to code that may mutate it.
type Store struct {
	Prospect    models.ProspectDraft
	Simulation  *models.SimulationResult
	Assignments models.AssignmentMap
	Meetings    []models.MeetingDraft
	Email       models.EmailChoice
	// StartDate (YYYY-MM-DD) anchors the meeting day offsets.
	StartDate string
	// Experts caches profiles seen during the session, keyed by id.
	Experts map[string]models.Expert
}

// New returns an empty draft.
func New() Store {
	return Store{
		Assignments: models.AssignmentMap{},
		Email:       models.EmailNone,
		Experts:     map[string]models.Expert{},
	}
}

// FromProspect returns a draft pre-populated from a persisted record.
func FromProspect(p models.ProspectDraft) Store {
	s := New()
	s.Prospect = p
	return s
}

func (s Store) Clone() Store {
	out := s
	out.Assignments = s.Assignments.Clone()
	if out.Assignments == nil {
		out.Assignments = models.AssignmentMap{}
	}
	if s.Simulation != nil {
		sim := *s.Simulation
		sim.Products = append([]models.EligibleProduct(nil), s.Simulation.Products...)
		out.Simulation = &sim
	}
	out.Meetings = make([]models.MeetingDraft, len(s.Meetings))
	for i, m := range s.Meetings {
		out.Meetings[i] = cloneMeeting(m)
	}
	out.Experts = make(map[string]models.Expert, len(s.Experts))
	for k, v := range s.Experts {
		out.Experts[k] = v
	}
	return out
}

func cloneMeeting(m models.MeetingDraft) models.MeetingDraft {
	m.ProductIDs = append([]string(nil), m.ProductIDs...)
	if m.DelayDays != nil {
		d := *m.DelayDays
		m.DelayDays = &d
	}
	return m
}

// SetIdentity assigns the prospect id. Once set it cannot change.
func (s *Store) SetIdentity(id string) error {
	if id == "" {
		return fmt.Errorf("empty prospect identity")
	}
	if s.Prospect.ID != "" && s.Prospect.ID != id {
		return fmt.Errorf("prospect identity already assigned: %s", s.Prospect.ID)
	}
	s.Prospect.ID = id
	return nil
}

// SetProspectFields overwrites the step 1 fields in place.
func (s *Store) SetProspectFields(f models.ProspectFields) {
	s.Prospect.ProspectFields = f
}

// SetSimulation replaces the result. Assignments of products the new result
// no longer lists as eligible are dropped.
func (s *Store) SetSimulation(r *models.SimulationResult) {
	s.Simulation = r
	if r == nil {
		return
	}
	s.Assignments.Retain(r.ProductIDs())
	for _, p := range r.Products {
		if p.SuggestedExpert != nil {
			s.RememberExperts(p.SuggestedExpert.Expert)
		}
	}
}

// RememberExperts caches expert profiles for meeting option labels.
func (s *Store) RememberExperts(experts ...models.Expert) {
	if s.Experts == nil {
		s.Experts = map[string]models.Expert{}
	}
	for _, e := range experts {
		if e.ID != "" {
			s.Experts[e.ID] = e
		}
	}
}

func (s *Store) Assign(productID string, a models.Assignment) {
	if s.Assignments == nil {
		s.Assignments = models.AssignmentMap{}
	}
	s.Assignments[productID] = a
}

// ReplaceAssignments overwrites the entries present in m; other products keep their decision.
func (s *Store) ReplaceAssignments(m models.AssignmentMap) {
	for productID, a := range m {
		s.Assign(productID, a)
	}
}

// Meeting returns the draft with the given id.
func (s Store) Meeting(id string) (models.MeetingDraft, bool) {
	for _, m := range s.Meetings {
		if m.ID == id {
			return cloneMeeting(m), true
		}
	}
	return models.MeetingDraft{}, false
}

// HasMeetingWith reports whether a draft already targets the participant.
func (s Store) HasMeetingWith(t models.ParticipantType, participantID string) bool {
	for _, m := range s.Meetings {
		if m.ParticipantType == t && m.ParticipantID == participantID {
			return true
		}
	}
	return false
}

// PutMeeting inserts or replaces a draft by id, keeping insertion order.
func (s *Store) PutMeeting(m models.MeetingDraft) {
	m = cloneMeeting(m)
	for i := range s.Meetings {
		if s.Meetings[i].ID == m.ID {
			s.Meetings[i] = m
			return
		}
	}
	s.Meetings = append(s.Meetings, m)
}

func (s *Store) RemoveMeeting(id string) bool {
	for i := range s.Meetings {
		if s.Meetings[i].ID == id {
			s.Meetings = append(s.Meetings[:i], s.Meetings[i+1:]...)
			return true
		}
	}
	return false
}

// PendingMeetings returns the drafts not yet accepted by persistence.
func (s Store) PendingMeetings() []models.MeetingDraft {
	var out []models.MeetingDraft
	for _, m := range s.Meetings {
		if !m.Submitted {
			out = append(out, cloneMeeting(m))
		}
	}
	return out
}

// MarkSubmitted flags the given drafts as persisted.
func (s *Store) MarkSubmitted(ids []string) {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	for i := range s.Meetings {
		if set[s.Meetings[i].ID] {
			s.Meetings[i].Submitted = true
		}
	}
}

// AssignedExpertIDs lists the experts referenced by an Assigned entry, sorted.
func (s Store) AssignedExpertIDs() []string {
	byExpert := s.Assignments.ProductsByExpert()
	ids := make([]string, 0, len(byExpert))
	for id := range byExpert {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
