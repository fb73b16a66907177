package wizard

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"prospect-onboarding/internal/common/errors"
	"prospect-onboarding/internal/common/logger"
	"prospect-onboarding/internal/common/metrics"
	"prospect-onboarding/internal/models"
	"prospect-onboarding/internal/onboarding/scheduler"
	"prospect-onboarding/internal/onboarding/steps"

	"github.com/google/uuid"
)

// ProspectService is the persistence collaborator.
type ProspectService interface {
	CreateProspect(ctx context.Context, fields models.ProspectFields) (string, error)
	UpdateProspect(ctx context.Context, id string, fields models.ProspectFields) error
	GetProspect(ctx context.Context, id string) (*models.ProspectDraft, error)
	AssignExperts(ctx context.Context, prospectID string, entries []models.ExpertAssignmentEntry) error
	CreateMeetings(ctx context.Context, prospectID string, meetings []models.MeetingRequest) (int, error)
}

type SimulationService interface {
	Run(ctx context.Context, prospectID string, hints models.ProfileHints) (*models.SimulationResult, error)
}

type ExpertDirectory interface {
	ExpertsForProducts(ctx context.Context, productIDs []string) ([]models.Expert, error)
}

type CredentialSender interface {
	SendCredentials(ctx context.Context, prospectID string, variant models.EmailChoice) error
}

// Operator is the authenticated user driving the wizard. It is offered as
// the participant of the qualification call-back meeting.
type Operator struct {
	ID   string
	Name string
}

const (
	selfMeetingCompany = "Qualification call-back"
	selfMeetingNotes   = "Prospect qualification call-back"
)

// Dependencies wires a Controller. Simulation, Experts and Credentials may be
// nil; the matching steps then degrade or send nothing.
type Dependencies struct {
	Prospects       ProspectService
	Simulation      SimulationService
	Experts         ExpertDirectory
	Credentials     CredentialSender
	Operator        Operator
	Logger          logger.Logger
	Location        *time.Location
	MeetingDuration int
	NewID           func() string
}

// StepOutput is what the user submits with Next.
type StepOutput interface {
	step() steps.ID
}

// ProspectOutput submits step 1. Close selects "save and close".
type ProspectOutput struct {
	Fields models.ProspectFields
	Close  bool
}

// SimulationOutput submits the questionnaire answers of step 2.
type SimulationOutput struct {
	Answers map[string]interface{}
}

// AssignmentsOutput submits step 3. Entries override the decisions already
// made with ChooseExpert.
type AssignmentsOutput struct {
	Assignments models.AssignmentMap
}

// MeetingsOutput submits the drafts built with AddMeeting.
type MeetingsOutput struct{}

type EmailOutput struct {
	Choice models.EmailChoice
}

func (ProspectOutput) step() steps.ID    { return steps.ProspectInfo }
func (SimulationOutput) step() steps.ID  { return steps.Simulation }
func (AssignmentsOutput) step() steps.ID { return steps.ExpertSelection }
func (MeetingsOutput) step() steps.ID    { return steps.MeetingPlanning }
func (EmailOutput) step() steps.ID       { return steps.EmailOption }

// Controller owns one Session. Only one side-effecting step call may be in
// flight at a time; Close stays available and discards its late result.
type Controller struct {
	deps     Dependencies
	logger   logger.Logger
	mu       sync.Mutex
	session  Session
	inFlight atomic.Bool
}

// Open starts a wizard for a new prospect.
func Open(deps Dependencies) *Controller {
	return newController(deps, NewSession())
}

// OpenExisting starts a wizard in edit mode on a persisted prospect.
func OpenExisting(ctx context.Context, deps Dependencies, prospectID string) (*Controller, error) {
	p, err := deps.Prospects.GetProspect(ctx, prospectID)
	if err != nil {
		if _, ok := errors.AsStandard(err); ok {
			return nil, err
		}
		return nil, errors.NewDatabaseConnectionFailedError(err).WithMetadata("prospectId", prospectID)
	}
	if p == nil {
		return nil, errors.NewProspectNotFoundError(prospectID)
	}
	return newController(deps, EditSession(*p)), nil
}

func newController(deps Dependencies, s Session) *Controller {
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.MeetingDuration <= 0 {
		deps.MeetingDuration = models.DefaultMeetingDuration
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	c := &Controller{deps: deps, session: s}
	c.logger = deps.Logger.WithFields(map[string]interface{}{
		"component": "wizard",
		"editMode":  s.EditMode,
	})
	return c
}

// Session returns a copy of the current state.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.clone()
}

func (c *Controller) Step() steps.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Step
}

// Next completes the current step with out and advances.
func (c *Controller) Next(ctx context.Context, out StepOutput) error {
	if !c.inFlight.CompareAndSwap(false, true) {
		return errors.NewTransitionInFlightError(int(c.Step()))
	}
	defer c.inFlight.Store(false)

	snapshot := c.Session()
	if snapshot.Closed {
		return errors.NewSessionClosedError()
	}
	if out == nil || out.step() != snapshot.Step {
		return errors.NewIllegalTransitionError(
			fmt.Sprintf("output %T does not belong to step %d", out, int(snapshot.Step)))
	}

	var (
		ev  Event
		err error
	)
	switch o := out.(type) {
	case ProspectOutput:
		ev, err = c.saveProspect(ctx, snapshot, o)
	case SimulationOutput:
		ev = c.runSimulation(ctx, snapshot, o)
	case AssignmentsOutput:
		ev, err = c.assignExperts(ctx, snapshot, o)
	case MeetingsOutput:
		ev, err = c.createMeetings(ctx, snapshot)
	case EmailOutput:
		ev, err = c.resolveEmail(ctx, snapshot, o)
	}
	if err != nil {
		return err
	}
	return c.commit(snapshot.Step, "next", ev)
}

// Skip advances past an optional step without producing its output.
func (c *Controller) Skip() error {
	return c.guarded(func() error {
		return c.commit(c.Step(), "skip", Skipped{})
	})
}

// Back moves one step backwards. Data of later steps is kept.
func (c *Controller) Back() error {
	return c.guarded(func() error {
		return c.commit(c.Step(), "back", SteppedBack{})
	})
}

// guarded runs fn unless a step call is in flight.
func (c *Controller) guarded(fn func() error) error {
	if !c.inFlight.CompareAndSwap(false, true) {
		return errors.NewTransitionInFlightError(int(c.Step()))
	}
	defer c.inFlight.Store(false)
	return fn()
}

// Close discards the session. Server-side writes already made are kept. A
// step call still in flight is not cancelled; its result is ignored.
func (c *Controller) Close(confirmed bool) error {
	return c.commit(c.Step(), "close", CloseRequested{Confirmed: confirmed})
}

// commit applies ev if the session is still on the step the caller saw.
func (c *Controller) commit(from steps.ID, kind string, ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.Closed {
		if kind == "next" {
			c.logger.Warn("step result discarded, session closed while in flight", map[string]interface{}{
				"step": int(from),
			})
		}
		return errors.NewSessionClosedError()
	}
	if c.session.Step != from {
		return errors.NewIllegalTransitionError(
			fmt.Sprintf("session moved from step %d to %d", int(from), int(c.session.Step)))
	}

	next, err := Apply(c.session, ev)
	if err != nil {
		c.logger.Debug("wizard transition rejected", map[string]interface{}{
			"step":  int(from),
			"kind":  kind,
			"error": err.Error(),
		})
		return err
	}
	c.session = next

	metrics.WizardTransitions.WithLabelValues(strconv.Itoa(int(from)), kind).Inc()
	fields := map[string]interface{}{
		"from":       int(from),
		"to":         int(next.Step),
		"kind":       kind,
		"prospectId": next.Draft.Prospect.ID,
	}
	if next.Closed {
		fields["outcome"] = string(next.Outcome)
		c.logger.Info("wizard session ended", fields)
	} else {
		c.logger.Info("wizard transition", fields)
	}
	return nil
}

func (c *Controller) collaboratorFailed(collaborator string, err error, fields map[string]interface{}) {
	metrics.WizardCollaboratorFailures.WithLabelValues(collaborator).Inc()
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["collaborator"] = collaborator
	fields["error"] = err.Error()
	c.logger.Warn("wizard collaborator call failed", fields)
}

func (c *Controller) saveProspect(ctx context.Context, s Session, o ProspectOutput) (Event, error) {
	if err := steps.ValidateProspect(o.Fields); err != nil {
		return nil, err
	}

	id := s.Draft.Prospect.ID
	if id == "" {
		created, err := c.deps.Prospects.CreateProspect(ctx, o.Fields)
		if err != nil {
			c.collaboratorFailed("prospects", err, nil)
			return nil, errors.NewProspectSaveFailedError(err)
		}
		id = created
	} else if err := c.deps.Prospects.UpdateProspect(ctx, id, o.Fields); err != nil {
		c.collaboratorFailed("prospects", err, map[string]interface{}{"prospectId": id})
		return nil, errors.NewProspectSaveFailedError(err).WithMetadata("prospectId", id)
	}
	return ProspectSaved{ID: id, Fields: o.Fields, Close: o.Close}, nil
}

func (c *Controller) runSimulation(ctx context.Context, s Session, o SimulationOutput) Event {
	if c.deps.Simulation == nil {
		return SimulationCompleted{Result: &models.SimulationResult{Degraded: true}, Warning: "simulation unavailable"}
	}
	hints := s.Draft.Prospect.Hints()
	hints.Answers = o.Answers
	result, err := c.deps.Simulation.Run(ctx, s.Draft.Prospect.ID, hints)
	if err != nil {
		c.collaboratorFailed("simulation", err, map[string]interface{}{"prospectId": s.Draft.Prospect.ID})
		return SimulationCompleted{
			Result:  &models.SimulationResult{Degraded: true},
			Warning: errors.NewSimulationFailedError(err).Message,
		}
	}
	if result == nil {
		result = &models.SimulationResult{}
	}
	return SimulationCompleted{Result: result}
}

func (c *Controller) assignExperts(ctx context.Context, s Session, o AssignmentsOutput) (Event, error) {
	merged := s.Draft.Assignments.Clone()
	for productID, a := range s.PendingAssignments {
		merged[productID] = a
	}
	for productID, a := range o.Assignments {
		merged[productID] = a
	}
	if err := steps.ValidateAssignments(merged, s.Draft.Simulation); err != nil {
		return nil, err
	}

	entries := merged.Entries()
	if len(entries) > 0 {
		if err := c.deps.Prospects.AssignExperts(ctx, s.Draft.Prospect.ID, entries); err != nil {
			c.collaboratorFailed("prospects", err, map[string]interface{}{
				"prospectId": s.Draft.Prospect.ID,
				"entries":    len(entries),
			})
			return nil, errors.NewExpertAssignmentFailedError(err)
		}
	}
	return ExpertsAssigned{Assignments: merged}, nil
}

func (c *Controller) createMeetings(ctx context.Context, s Session) (Event, error) {
	pending := s.Draft.PendingMeetings()
	if err := steps.ValidateMeetings(pending); err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return MeetingsCreated{}, nil
	}

	requests := make([]models.MeetingRequest, len(pending))
	ids := make([]string, len(pending))
	for i, m := range pending {
		requests[i] = m.Request()
		ids[i] = m.ID
	}
	created, err := c.deps.Prospects.CreateMeetings(ctx, s.Draft.Prospect.ID, requests)
	if err != nil {
		c.collaboratorFailed("prospects", err, map[string]interface{}{
			"prospectId": s.Draft.Prospect.ID,
			"meetings":   len(requests),
		})
		return nil, errors.NewMeetingCreationFailedError(err)
	}
	c.logger.Info("meetings created", map[string]interface{}{
		"prospectId": s.Draft.Prospect.ID,
		"created":    created,
	})
	return MeetingsCreated{IDs: ids}, nil
}

func (c *Controller) resolveEmail(ctx context.Context, s Session, o EmailOutput) (Event, error) {
	if err := steps.ValidateEmailChoice(o.Choice); err != nil {
		return nil, err
	}
	if !o.Choice.Sends() {
		return EmailResolved{Choice: o.Choice}, nil
	}
	if c.deps.Credentials == nil {
		return EmailResolved{Choice: o.Choice, Warning: "credential email not configured"}, nil
	}
	if err := c.deps.Credentials.SendCredentials(ctx, s.Draft.Prospect.ID, o.Choice); err != nil {
		c.collaboratorFailed("credentials", err, map[string]interface{}{
			"prospectId": s.Draft.Prospect.ID,
			"variant":    string(o.Choice),
		})
		return EmailResolved{Choice: o.Choice, Warning: errors.NewCredentialEmailFailedError(err).Message}, nil
	}
	return EmailResolved{Choice: o.Choice}, nil
}

// edit applies a non-advancing event on the current step.
func (c *Controller) edit(kind string, ev Event) error {
	return c.guarded(func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		next, err := Apply(c.session, ev)
		if err != nil {
			return err
		}
		c.session = next
		c.logger.Debug("wizard draft edited", map[string]interface{}{"kind": kind, "step": int(next.Step)})
		return nil
	})
}

// ExpertCandidates looks up experts for the eligible products. A directory
// failure is reported as degraded with no candidates.
func (c *Controller) ExpertCandidates(ctx context.Context) (experts []models.Expert, degraded bool) {
	s := c.Session()
	productIDs := s.Draft.Simulation.ProductIDs()
	if len(productIDs) == 0 || c.deps.Experts == nil {
		return nil, c.deps.Experts == nil
	}
	experts, err := c.deps.Experts.ExpertsForProducts(ctx, productIDs)
	if err != nil {
		c.collaboratorFailed("experts", errors.NewExpertDirectoryFailedError(err), map[string]interface{}{
			"products": len(productIDs),
		})
		return nil, true
	}
	// The session may have moved on; the cache is a best effort.
	_ = c.edit("experts", ExpertsDiscovered{Experts: experts})
	return experts, false
}

// ChooseExpert records one product's decision on step 3. It is sent with the
// batch on Next and forgotten on Skip or Back.
func (c *Controller) ChooseExpert(productID string, a models.Assignment) error {
	return c.edit("assignment", ExpertChosen{ProductID: productID, Assignment: a})
}

// MeetingOptions lists one option per distinct assigned expert and the
// operator's own call-back slot.
func (c *Controller) MeetingOptions() []models.MeetingOption {
	s := c.Session()
	byExpert := s.Draft.Assignments.ProductsByExpert()
	ids := make([]string, 0, len(byExpert))
	for id := range byExpert {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	options := make([]models.MeetingOption, 0, len(ids)+1)
	for _, id := range ids {
		opt := models.MeetingOption{
			ParticipantType: models.ParticipantExpert,
			ParticipantID:   id,
			Name:            id,
			ProductIDs:      byExpert[id],
		}
		if e, ok := s.Draft.Experts[id]; ok {
			if e.Name != "" {
				opt.Name = e.Name
			}
			opt.Company = e.CompanyName
		}
		options = append(options, opt)
	}
	return append(options, models.MeetingOption{
		ParticipantType: models.ParticipantReferrer,
		ParticipantID:   c.deps.Operator.ID,
		Name:            c.deps.Operator.Name,
		Company:         selfMeetingCompany,
		ProductIDs:      []string{},
	})
}

// AddMeeting instantiates a draft from an option with default medium,
// duration and notes. Date and time stay empty until set.
func (c *Controller) AddMeeting(opt models.MeetingOption) (models.MeetingDraft, error) {
	notes := selfMeetingNotes
	if opt.ParticipantType == models.ParticipantExpert {
		notes = fmt.Sprintf("Meeting with %s for %d product(s)", opt.Name, len(opt.ProductIDs))
	}
	m := models.MeetingDraft{
		ID:                 c.deps.NewID(),
		ParticipantType:    opt.ParticipantType,
		ParticipantID:      opt.ParticipantID,
		ParticipantName:    opt.Name,
		ParticipantCompany: opt.Company,
		Medium:             models.MediumVideo,
		Notes:              notes,
		DurationMinutes:    c.deps.MeetingDuration,
		ProductIDs:         append([]string{}, opt.ProductIDs...),
	}
	if err := c.edit("meeting.add", MeetingPut{Meeting: m}); err != nil {
		return models.MeetingDraft{}, err
	}
	return m, nil
}

// UpdateMeeting replaces a pending draft.
func (c *Controller) UpdateMeeting(m models.MeetingDraft) error {
	if _, ok := c.Session().Draft.Meeting(m.ID); !ok {
		return errors.NewFieldValidationError("meetingId", fmt.Sprintf("unknown meeting %s", m.ID))
	}
	return c.edit("meeting.update", MeetingPut{Meeting: m})
}

func (c *Controller) RemoveMeeting(id string) error {
	return c.edit("meeting.remove", MeetingRemoved{ID: id})
}

// SetStartDate anchors day offsets on a YYYY-MM-DD date in the configured location.
func (c *Controller) SetStartDate(value string) error {
	start, err := scheduler.ParseStart(value, c.deps.Location)
	if err != nil {
		return errors.NewFieldValidationError("startDate", err.Error())
	}
	return c.edit("start-date", StartDateSet{Start: start})
}

// SetMeetingOffset schedules a draft delay days after the start date, moved
// off weekends and pinned to the send hour.
func (c *Controller) SetMeetingOffset(id string, delay int) error {
	if delay < 0 {
		return errors.NewFieldValidationError("delayDays", "delay must not be negative")
	}
	s := c.Session()
	m, ok := s.Draft.Meeting(id)
	if !ok {
		return errors.NewFieldValidationError("meetingId", fmt.Sprintf("unknown meeting %s", id))
	}
	start, err := c.startDate(s)
	if err != nil {
		return err
	}
	return c.edit("meeting.offset", MeetingPut{Meeting: Reschedule(m, start, delay)})
}

// SchedulePreview computes the timestamps of every pending draft that has an
// offset, in draft order. It is the same computation the server repeats.
func (c *Controller) SchedulePreview() ([]scheduler.Entry, error) {
	s := c.Session()
	start, err := c.startDate(s)
	if err != nil {
		return nil, err
	}
	var delays []int
	for _, m := range s.Draft.PendingMeetings() {
		if m.DelayDays != nil {
			delays = append(delays, *m.DelayDays)
		}
	}
	return scheduler.Preview(start, delays)
}

func (c *Controller) startDate(s Session) (time.Time, error) {
	if s.Draft.StartDate == "" {
		return time.Time{}, errors.NewFieldValidationError("startDate", "start date is required")
	}
	start, err := scheduler.ParseStart(s.Draft.StartDate, c.deps.Location)
	if err != nil {
		return time.Time{}, errors.NewFieldValidationError("startDate", err.Error())
	}
	return start, nil
}
