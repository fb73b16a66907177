// Package wizard sequences the five onboarding steps. Session is a value and
// Apply is its pure transition function; Controller drives the collaborators
// and feeds their results back through Apply.
package wizard

import (
	"fmt"
	"time"

	"prospect-onboarding/internal/common/errors"
	"prospect-onboarding/internal/models"
	"prospect-onboarding/internal/onboarding/draft"
	"prospect-onboarding/internal/onboarding/scheduler"
	"prospect-onboarding/internal/onboarding/steps"
)

type Outcome string

const (
	OutcomeOpen           Outcome = ""
	OutcomeFinished       Outcome = "finished"
	OutcomeSavedAndClosed Outcome = "saved_and_closed"
	OutcomeCancelled      Outcome = "cancelled"
)

// Session is the transient state of one wizard instance.
type Session struct {
	Step     steps.ID
	Closed   bool
	Outcome  Outcome
	EditMode bool
	Draft    draft.Store
	Warnings []string
	// PendingAssignments holds step 3 choices not yet acknowledged by
	// persistence. They reach Draft.Assignments only with ExpertsAssigned.
	PendingAssignments models.AssignmentMap
}

// NewSession opens a wizard on an empty draft.
func NewSession() Session {
	return Session{Step: steps.ProspectInfo, Draft: draft.New()}
}

// EditSession opens a wizard on an existing prospect; saving step 1 updates it.
func EditSession(p models.ProspectDraft) Session {
	return Session{Step: steps.ProspectInfo, EditMode: true, Draft: draft.FromProspect(p)}
}

func (s Session) clone() Session {
	out := s
	out.Draft = s.Draft.Clone()
	out.Warnings = append([]string(nil), s.Warnings...)
	if s.PendingAssignments != nil {
		out.PendingAssignments = s.PendingAssignments.Clone()
	}
	return out
}

// Event is anything that moves or edits a session.
type Event interface {
	event()
}

// ProspectSaved records a persisted step 1. Close ends the session afterwards.
type ProspectSaved struct {
	ID     string
	Fields models.ProspectFields
	Close  bool
}

// SimulationCompleted carries the simulation result; a degraded run has an
// empty product list and a warning.
type SimulationCompleted struct {
	Result  *models.SimulationResult
	Warning string
}

// ExpertsAssigned records the batch acknowledged by persistence.
type ExpertsAssigned struct {
	Assignments models.AssignmentMap
}

// MeetingsCreated records the drafts persistence accepted.
type MeetingsCreated struct {
	IDs []string
}

// EmailResolved ends the session. Warning is set when the send failed.
type EmailResolved struct {
	Choice  models.EmailChoice
	Warning string
}

type Skipped struct{}

type SteppedBack struct{}

// CloseRequested discards the session; Confirmed is the explicit gesture.
type CloseRequested struct {
	Confirmed bool
}

// ExpertChosen records one product's pending decision on step 3.
type ExpertChosen struct {
	ProductID  string
	Assignment models.Assignment
}

// MeetingPut inserts or replaces a pending meeting draft.
type MeetingPut struct {
	Meeting models.MeetingDraft
}

type MeetingRemoved struct {
	ID string
}

// StartDateSet anchors the meeting offsets and reschedules every pending
// draft that carries one.
type StartDateSet struct {
	Start time.Time
}

// ExpertsDiscovered caches profiles returned by the expert directory.
type ExpertsDiscovered struct {
	Experts []models.Expert
}

func (ProspectSaved) event()       {}
func (SimulationCompleted) event() {}
func (ExpertsAssigned) event()     {}
func (MeetingsCreated) event()     {}
func (EmailResolved) event()       {}
func (Skipped) event()             {}
func (SteppedBack) event()         {}
func (CloseRequested) event()      {}
func (ExpertChosen) event()        {}
func (MeetingPut) event()          {}
func (MeetingRemoved) event()      {}
func (StartDateSet) event()        {}
func (ExpertsDiscovered) event()   {}

// Apply returns the session after ev. On error the input session is returned
// untouched.
func Apply(s Session, ev Event) (Session, error) {
	if s.Closed {
		return s, errors.NewSessionClosedError()
	}
	next := s.clone()
	if err := apply(&next, ev); err != nil {
		return s, err
	}
	return next, nil
}

func apply(s *Session, ev Event) error {
	switch e := ev.(type) {
	case ProspectSaved:
		if err := expectStep(s, steps.ProspectInfo, "save prospect"); err != nil {
			return err
		}
		if err := steps.ValidateProspect(e.Fields); err != nil {
			return err
		}
		if err := s.Draft.SetIdentity(e.ID); err != nil {
			return errors.NewIllegalTransitionError(err.Error())
		}
		s.Draft.SetProspectFields(e.Fields)
		if e.Close {
			finish(s, OutcomeSavedAndClosed)
			return nil
		}
		s.Step = steps.Simulation

	case SimulationCompleted:
		if err := expectStep(s, steps.Simulation, "complete simulation"); err != nil {
			return err
		}
		result := e.Result
		if result == nil {
			result = &models.SimulationResult{Degraded: true}
		}
		s.Draft.SetSimulation(result)
		s.PendingAssignments.Retain(result.ProductIDs())
		warn(s, e.Warning)
		s.Step = steps.ExpertSelection

	case ExpertsAssigned:
		if err := expectStep(s, steps.ExpertSelection, "assign experts"); err != nil {
			return err
		}
		if err := steps.ValidateAssignments(e.Assignments, s.Draft.Simulation); err != nil {
			return err
		}
		s.Draft.ReplaceAssignments(e.Assignments)
		s.PendingAssignments = nil
		s.Step = steps.MeetingPlanning

	case MeetingsCreated:
		if err := expectStep(s, steps.MeetingPlanning, "create meetings"); err != nil {
			return err
		}
		for _, id := range e.IDs {
			if _, ok := s.Draft.Meeting(id); !ok {
				return errors.NewFieldValidationError("meetingId", fmt.Sprintf("unknown meeting %s", id))
			}
		}
		s.Draft.MarkSubmitted(e.IDs)
		s.Step = steps.EmailOption

	case EmailResolved:
		if err := expectStep(s, steps.EmailOption, "resolve email option"); err != nil {
			return err
		}
		if err := steps.ValidateEmailChoice(e.Choice); err != nil {
			return err
		}
		s.Draft.Email = e.Choice
		warn(s, e.Warning)
		finish(s, OutcomeFinished)

	case Skipped:
		step, _ := steps.Get(s.Step)
		if !step.Skippable {
			return errors.NewStepNotSkippableError(int(step.ID), step.Title)
		}
		s.PendingAssignments = nil
		if s.Step == steps.EmailOption {
			finish(s, OutcomeFinished)
			return nil
		}
		s.Step++

	case SteppedBack:
		if s.Step <= steps.ProspectInfo {
			return errors.NewIllegalTransitionError("cannot go back from the first step")
		}
		s.PendingAssignments = nil
		s.Step--

	case CloseRequested:
		if !e.Confirmed {
			return errors.NewCloseNotConfirmedError()
		}
		finish(s, OutcomeCancelled)

	case ExpertChosen:
		if err := expectStep(s, steps.ExpertSelection, "choose expert"); err != nil {
			return err
		}
		candidate := models.AssignmentMap{e.ProductID: e.Assignment}
		if err := steps.ValidateAssignments(candidate, s.Draft.Simulation); err != nil {
			return err
		}
		if s.PendingAssignments == nil {
			s.PendingAssignments = models.AssignmentMap{}
		}
		s.PendingAssignments[e.ProductID] = e.Assignment

	case MeetingPut:
		if err := expectStep(s, steps.MeetingPlanning, "edit meeting"); err != nil {
			return err
		}
		if e.Meeting.ID == "" {
			return errors.NewFieldValidationError("meetingId", "meeting draft without id")
		}
		existing, ok := s.Draft.Meeting(e.Meeting.ID)
		if ok && existing.Submitted {
			return errors.NewFieldValidationError("meetingId", "meeting already scheduled")
		}
		if !ok && s.Draft.HasMeetingWith(e.Meeting.ParticipantType, e.Meeting.ParticipantID) {
			return errors.NewFieldValidationError("participantId", "a meeting with this participant is already planned")
		}
		m := e.Meeting
		m.Submitted = false
		s.Draft.PutMeeting(m)

	case MeetingRemoved:
		if err := expectStep(s, steps.MeetingPlanning, "remove meeting"); err != nil {
			return err
		}
		existing, ok := s.Draft.Meeting(e.ID)
		if !ok {
			return errors.NewFieldValidationError("meetingId", fmt.Sprintf("unknown meeting %s", e.ID))
		}
		if existing.Submitted {
			return errors.NewFieldValidationError("meetingId", "meeting already scheduled")
		}
		s.Draft.RemoveMeeting(e.ID)

	case StartDateSet:
		if e.Start.IsZero() {
			return errors.NewFieldValidationError("startDate", "start date is required")
		}
		s.Draft.StartDate = e.Start.Format(models.DateLayout)
		for _, m := range s.Draft.PendingMeetings() {
			if m.DelayDays != nil {
				s.Draft.PutMeeting(Reschedule(m, e.Start, *m.DelayDays))
			}
		}

	case ExpertsDiscovered:
		s.Draft.RememberExperts(e.Experts...)

	default:
		return errors.NewIllegalTransitionError(fmt.Sprintf("unsupported event %T", ev))
	}
	return nil
}

// Reschedule sets the draft's offset and the date and time it resolves to.
func Reschedule(m models.MeetingDraft, start time.Time, delay int) models.MeetingDraft {
	at := scheduler.At(start, delay)
	d := delay
	m.DelayDays = &d
	m.ScheduledDate = at.Format(models.DateLayout)
	m.ScheduledTime = at.Format(models.TimeLayout)
	return m
}

func expectStep(s *Session, want steps.ID, what string) error {
	if s.Step != want {
		return errors.NewIllegalTransitionError(
			fmt.Sprintf("cannot %s on step %d (%s)", what, int(s.Step), s.Step))
	}
	return nil
}

func warn(s *Session, msg string) {
	if msg != "" {
		s.Warnings = append(s.Warnings, msg)
	}
}

func finish(s *Session, outcome Outcome) {
	s.Step = steps.Terminal
	s.Closed = true
	s.Outcome = outcome
}
