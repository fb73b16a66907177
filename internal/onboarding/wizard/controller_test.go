package wizard

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"prospect-onboarding/internal/common/errors"
	"prospect-onboarding/internal/common/logger"
	"prospect-onboarding/internal/models"
	"prospect-onboarding/internal/onboarding/steps"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type MockProspectService struct {
	mock.Mock
}

func (m *MockProspectService) CreateProspect(ctx context.Context, fields models.ProspectFields) (string, error) {
	args := m.Called(ctx, fields)
	return args.String(0), args.Error(1)
}

func (m *MockProspectService) UpdateProspect(ctx context.Context, id string, fields models.ProspectFields) error {
	return m.Called(ctx, id, fields).Error(0)
}

func (m *MockProspectService) GetProspect(ctx context.Context, id string) (*models.ProspectDraft, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProspectDraft), args.Error(1)
}

func (m *MockProspectService) AssignExperts(ctx context.Context, prospectID string, entries []models.ExpertAssignmentEntry) error {
	return m.Called(ctx, prospectID, entries).Error(0)
}

func (m *MockProspectService) CreateMeetings(ctx context.Context, prospectID string, meetings []models.MeetingRequest) (int, error) {
	args := m.Called(ctx, prospectID, meetings)
	return args.Int(0), args.Error(1)
}

type fakeSimulation struct {
	run func(ctx context.Context, prospectID string, hints models.ProfileHints) (*models.SimulationResult, error)
}

func (f *fakeSimulation) Run(ctx context.Context, prospectID string, hints models.ProfileHints) (*models.SimulationResult, error) {
	return f.run(ctx, prospectID, hints)
}

type fakeDirectory struct {
	experts func(ctx context.Context, productIDs []string) ([]models.Expert, error)
}

func (f *fakeDirectory) ExpertsForProducts(ctx context.Context, productIDs []string) ([]models.Expert, error) {
	return f.experts(ctx, productIDs)
}

type fakeCredentials struct {
	calls []models.EmailChoice
	err   error
}

func (f *fakeCredentials) SendCredentials(_ context.Context, _ string, variant models.EmailChoice) error {
	f.calls = append(f.calls, variant)
	return f.err
}

func validProspect() models.ProspectFields {
	return models.ProspectFields{
		CompanyName:        "Transports Dupuis",
		DecisionMakerName:  "Marc Dupuis",
		DecisionMakerEmail: "marc@transports-dupuis.fr",
		InterestLevel:      models.InterestMedium,
		Timeline:           models.TimelineImmediate,
	}
}

func simulationWith(products ...models.EligibleProduct) *fakeSimulation {
	return &fakeSimulation{run: func(context.Context, string, models.ProfileHints) (*models.SimulationResult, error) {
		return &models.SimulationResult{SimulationID: "sim-1", Products: products}, nil
	}}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("m-%d", n)
	}
}

func newTestController(t *testing.T, prospects *MockProspectService, mutate ...func(*Dependencies)) *Controller {
	deps := Dependencies{
		Prospects: prospects,
		Operator:  Operator{ID: "op-7", Name: "Julie Bernard"},
		Logger:    logger.NewTestLogger(t),
		NewID:     sequentialIDs(),
	}
	for _, m := range mutate {
		m(&deps)
	}
	return Open(deps)
}

func TestNext_StepOneRejectsMissingEmail(t *testing.T) {
	prospects := new(MockProspectService)
	c := newTestController(t, prospects)

	fields := validProspect()
	fields.DecisionMakerEmail = ""
	err := c.Next(context.Background(), ProspectOutput{Fields: fields})

	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	s := c.Session()
	assert.Equal(t, steps.ProspectInfo, s.Step)
	assert.Empty(t, s.Draft.Prospect.DecisionMakerEmail)
	assert.Empty(t, s.Draft.Prospect.CompanyName)
	prospects.AssertNotCalled(t, "CreateProspect", mock.Anything, mock.Anything)
}

func TestSkip_StepOneIsMandatory(t *testing.T) {
	c := newTestController(t, new(MockProspectService))

	err := c.Skip()

	assert.True(t, errors.HasCode(err, errors.ErrCodeStepNotSkippable))
	assert.Equal(t, steps.ProspectInfo, c.Step())
}

func TestWizard_EndToEndWithSkips(t *testing.T) {
	ctx := context.Background()
	prospects := new(MockProspectService)
	prospects.On("CreateProspect", ctx, validProspect()).Return("p-100", nil).Once()
	credentials := &fakeCredentials{}

	c := newTestController(t, prospects, func(d *Dependencies) { d.Credentials = credentials })

	require.NoError(t, c.Next(ctx, ProspectOutput{Fields: validProspect()}))
	require.NoError(t, c.Skip())
	require.NoError(t, c.Skip())
	require.NoError(t, c.Skip())
	require.NoError(t, c.Next(ctx, EmailOutput{Choice: models.EmailNone}))

	s := c.Session()
	assert.True(t, s.Closed)
	assert.Equal(t, OutcomeFinished, s.Outcome)
	assert.Equal(t, "p-100", s.Draft.Prospect.ID)
	assert.Nil(t, s.Draft.Simulation)
	assert.Empty(t, s.Draft.Assignments)
	assert.Empty(t, s.Draft.Meetings)
	assert.Empty(t, credentials.calls)
	prospects.AssertExpectations(t)
	prospects.AssertNotCalled(t, "AssignExperts", mock.Anything, mock.Anything, mock.Anything)
	prospects.AssertNotCalled(t, "CreateMeetings", mock.Anything, mock.Anything, mock.Anything)
}

func TestNext_SaveAndClose(t *testing.T) {
	ctx := context.Background()
	prospects := new(MockProspectService)
	prospects.On("CreateProspect", ctx, validProspect()).Return("p-1", nil)
	c := newTestController(t, prospects)

	require.NoError(t, c.Next(ctx, ProspectOutput{Fields: validProspect(), Close: true}))

	s := c.Session()
	assert.Equal(t, OutcomeSavedAndClosed, s.Outcome)
	assert.Equal(t, steps.Terminal, s.Step)
	assert.True(t, errors.HasCode(c.Skip(), errors.ErrCodeSessionClosed))
}

func TestNext_ResubmittingStepOneUpdates(t *testing.T) {
	ctx := context.Background()
	prospects := new(MockProspectService)
	prospects.On("CreateProspect", ctx, validProspect()).Return("p-1", nil).Once()

	changed := validProspect()
	changed.Timeline = models.TimelineThreeToSix
	prospects.On("UpdateProspect", ctx, "p-1", changed).Return(nil).Once()

	c := newTestController(t, prospects)
	require.NoError(t, c.Next(ctx, ProspectOutput{Fields: validProspect()}))
	require.NoError(t, c.Back())
	require.NoError(t, c.Next(ctx, ProspectOutput{Fields: changed}))

	s := c.Session()
	assert.Equal(t, steps.Simulation, s.Step)
	assert.Equal(t, models.TimelineThreeToSix, s.Draft.Prospect.Timeline)
	prospects.AssertExpectations(t)
}

func TestNext_ProspectSaveFailureBlocks(t *testing.T) {
	ctx := context.Background()
	prospects := new(MockProspectService)
	prospects.On("CreateProspect", ctx, validProspect()).Return("", stderrors.New("503 service unavailable"))
	c := newTestController(t, prospects)

	err := c.Next(ctx, ProspectOutput{Fields: validProspect()})

	assert.True(t, errors.HasCode(err, errors.ErrCodeProspectSaveFailed))
	assert.Equal(t, steps.ProspectInfo, c.Step())
	assert.False(t, c.Session().Draft.Prospect.Persisted())
}

func TestOpenExisting_EditModeUpdates(t *testing.T) {
	ctx := context.Background()
	prospects := new(MockProspectService)
	existing := &models.ProspectDraft{ID: "p-9", ProspectFields: validProspect()}
	prospects.On("GetProspect", ctx, "p-9").Return(existing, nil)
	prospects.On("UpdateProspect", ctx, "p-9", validProspect()).Return(nil)

	c, err := OpenExisting(ctx, Dependencies{Prospects: prospects, Logger: logger.NewTestLogger(t)}, "p-9")
	require.NoError(t, err)

	s := c.Session()
	assert.True(t, s.EditMode)
	assert.Equal(t, "Transports Dupuis", s.Draft.Prospect.CompanyName)

	require.NoError(t, c.Next(ctx, ProspectOutput{Fields: s.Draft.Prospect.ProspectFields}))
	prospects.AssertNotCalled(t, "CreateProspect", mock.Anything, mock.Anything)
	prospects.AssertExpectations(t)
}

func TestOpenExisting_UnknownProspect(t *testing.T) {
	ctx := context.Background()
	prospects := new(MockProspectService)
	prospects.On("GetProspect", ctx, "p-0").Return(nil, nil)

	_, err := OpenExisting(ctx, Dependencies{Prospects: prospects}, "p-0")

	assert.True(t, errors.HasCode(err, errors.ErrCodeProspectNotFound))
}

func TestNext_SimulationFailureDegrades(t *testing.T) {
	ctx := context.Background()
	prospects := new(MockProspectService)
	prospects.On("CreateProspect", ctx, mock.Anything).Return("p-1", nil)
	sim := &fakeSimulation{run: func(context.Context, string, models.ProfileHints) (*models.SimulationResult, error) {
		return nil, stderrors.New("engine timeout")
	}}
	c := newTestController(t, prospects, func(d *Dependencies) { d.Simulation = sim })

	require.NoError(t, c.Next(ctx, ProspectOutput{Fields: validProspect()}))
	require.NoError(t, c.Next(ctx, SimulationOutput{}))

	s := c.Session()
	assert.Equal(t, steps.ExpertSelection, s.Step)
	require.NotNil(t, s.Draft.Simulation)
	assert.Empty(t, s.Draft.Simulation.Products)
	assert.True(t, s.Draft.Simulation.Degraded)
	assert.Len(t, s.Warnings, 1)
}

func TestNext_SimulationReceivesHints(t *testing.T) {
	ctx := context.Background()
	prospects := new(MockProspectService)
	prospects.On("CreateProspect", ctx, mock.Anything).Return("p-1", nil)

	var gotID string
	var gotHints models.ProfileHints
	sim := &fakeSimulation{run: func(_ context.Context, id string, hints models.ProfileHints) (*models.SimulationResult, error) {
		gotID, gotHints = id, hints
		return &models.SimulationResult{}, nil
	}}
	c := newTestController(t, prospects, func(d *Dependencies) { d.Simulation = sim })

	require.NoError(t, c.Next(ctx, ProspectOutput{Fields: validProspect()}))
	require.NoError(t, c.Next(ctx, SimulationOutput{Answers: map[string]interface{}{"fleetSize": 12}}))

	assert.Equal(t, "p-1", gotID)
	assert.Equal(t, "Transports Dupuis", gotHints.CompanyName)
	assert.Equal(t, 12, gotHints.Answers["fleetSize"])
}

// toExpertSelection runs steps 1 and 2 with two eligible products.
func toExpertSelection(t *testing.T, prospects *MockProspectService, mutate ...func(*Dependencies)) *Controller {
	t.Helper()
	ctx := context.Background()
	prospects.On("CreateProspect", ctx, mock.Anything).Return("p-1", nil)
	sim := simulationWith(
		models.EligibleProduct{ID: "productA", Name: "TICPE", Status: models.StatusEligible,
			SuggestedExpert: &models.SuggestedExpert{Expert: models.Expert{ID: "expertX", Name: "Sophie Laurent", CompanyName: "Cabinet Laurent"}, MatchScore: 0.92}},
		models.EligibleProduct{ID: "productB", Name: "URSSAF", Status: models.StatusToConfirm},
	)
	mutate = append([]func(*Dependencies){func(d *Dependencies) { d.Simulation = sim }}, mutate...)
	c := newTestController(t, prospects, mutate...)
	require.NoError(t, c.Next(ctx, ProspectOutput{Fields: validProspect()}))
	require.NoError(t, c.Next(ctx, SimulationOutput{}))
	require.Equal(t, steps.ExpertSelection, c.Step())
	return c
}

func TestMeetingOptions_OnePerAssignedExpertPlusSelf(t *testing.T) {
	ctx := context.Background()
	prospects := new(MockProspectService)
	c := toExpertSelection(t, prospects)
	prospects.On("AssignExperts", ctx, "p-1", []models.ExpertAssignmentEntry{
		{ProductID: "productA", ExpertID: "expertX"},
	}).Return(nil).Once()

	require.NoError(t, c.Next(ctx, AssignmentsOutput{Assignments: models.AssignmentMap{
		"productA": models.AssignTo("expertX"),
		"productB": models.AssignTo(""),
	}}))

	options := c.MeetingOptions()
	require.Len(t, options, 2)
	assert.Equal(t, models.MeetingOption{
		ParticipantType: models.ParticipantExpert,
		ParticipantID:   "expertX",
		Name:            "Sophie Laurent",
		Company:         "Cabinet Laurent",
		ProductIDs:      []string{"productA"},
	}, options[0])
	assert.Equal(t, models.ParticipantReferrer, options[1].ParticipantType)
	assert.Equal(t, "op-7", options[1].ParticipantID)
	assert.Equal(t, "Qualification call-back", options[1].Company)
	assert.Empty(t, options[1].ProductIDs)
	prospects.AssertExpectations(t)
}

func TestNext_EmptyAssignmentsMakeNoCall(t *testing.T) {
	prospects := new(MockProspectService)
	c := toExpertSelection(t, prospects)

	require.NoError(t, c.Next(context.Background(), AssignmentsOutput{}))

	assert.Equal(t, steps.MeetingPlanning, c.Step())
	prospects.AssertNotCalled(t, "AssignExperts", mock.Anything, mock.Anything, mock.Anything)
}

func TestNext_AssignmentBatchFailureBlocks(t *testing.T) {
	ctx := context.Background()
	prospects := new(MockProspectService)
	c := toExpertSelection(t, prospects)
	prospects.On("AssignExperts", ctx, "p-1", mock.Anything).Return(stderrors.New("constraint violation"))

	require.NoError(t, c.ChooseExpert("productB", models.LetClientChoose()))
	err := c.Next(ctx, AssignmentsOutput{Assignments: models.AssignmentMap{"productA": models.AssignTo("expertX")}})

	assert.True(t, errors.HasCode(err, errors.ErrCodeExpertAssignmentFailed))
	assert.Equal(t, steps.ExpertSelection, c.Step())
	assert.Equal(t, models.Unassigned, c.Session().Draft.Assignments["productA"].State)
	assert.Equal(t, models.LetClientChoose(), c.Session().PendingAssignments["productB"])
	prospects.AssertCalled(t, "AssignExperts", ctx, "p-1", []models.ExpertAssignmentEntry{
		{ProductID: "productA", ExpertID: "expertX"},
		{ProductID: "productB"},
	})
}

func TestSkip_ForgetsUnsentChoices(t *testing.T) {
	prospects := new(MockProspectService)
	c := toExpertSelection(t, prospects)

	require.NoError(t, c.ChooseExpert("productA", models.AssignTo("expertX")))
	require.NoError(t, c.Skip())

	s := c.Session()
	assert.Empty(t, s.Draft.Assignments)
	assert.Nil(t, s.PendingAssignments)
	options := c.MeetingOptions()
	require.Len(t, options, 1)
	assert.Equal(t, models.ParticipantReferrer, options[0].ParticipantType)
	prospects.AssertNotCalled(t, "AssignExperts", mock.Anything, mock.Anything, mock.Anything)
}

func TestNext_ChoicesAreSentWithTheBatch(t *testing.T) {
	ctx := context.Background()
	prospects := new(MockProspectService)
	c := toExpertSelection(t, prospects)
	prospects.On("AssignExperts", ctx, "p-1", []models.ExpertAssignmentEntry{
		{ProductID: "productA", ExpertID: "expertX"},
	}).Return(nil).Once()

	require.NoError(t, c.ChooseExpert("productA", models.AssignTo("expertX")))
	require.NoError(t, c.Next(ctx, AssignmentsOutput{}))

	s := c.Session()
	assert.Equal(t, steps.MeetingPlanning, s.Step)
	assert.Equal(t, "expertX", s.Draft.Assignments["productA"].ExpertID)
	assert.Nil(t, s.PendingAssignments)
	prospects.AssertExpectations(t)
}

func TestNext_AssignAfterSimulationRerun(t *testing.T) {
	ctx := context.Background()
	prospects := new(MockProspectService)
	prospects.On("CreateProspect", ctx, mock.Anything).Return("p-1", nil)
	prospects.On("AssignExperts", ctx, "p-1", []models.ExpertAssignmentEntry{
		{ProductID: "productA", ExpertID: "expertX"},
	}).Return(nil).Once()
	prospects.On("AssignExperts", ctx, "p-1", []models.ExpertAssignmentEntry{
		{ProductID: "productB", ExpertID: "expertY"},
	}).Return(nil).Once()

	runs := [][]models.EligibleProduct{
		{{ID: "productA", Name: "TICPE", Status: models.StatusEligible}},
		{{ID: "productB", Name: "URSSAF", Status: models.StatusEligible}},
	}
	sim := &fakeSimulation{run: func(context.Context, string, models.ProfileHints) (*models.SimulationResult, error) {
		products := runs[0]
		runs = runs[1:]
		return &models.SimulationResult{Products: products}, nil
	}}
	c := newTestController(t, prospects, func(d *Dependencies) { d.Simulation = sim })

	require.NoError(t, c.Next(ctx, ProspectOutput{Fields: validProspect()}))
	require.NoError(t, c.Next(ctx, SimulationOutput{}))
	require.NoError(t, c.Next(ctx, AssignmentsOutput{Assignments: models.AssignmentMap{
		"productA": models.AssignTo("expertX"),
	}}))
	require.NoError(t, c.Back())
	require.NoError(t, c.Back())
	require.NoError(t, c.Next(ctx, SimulationOutput{}))

	require.NoError(t, c.Next(ctx, AssignmentsOutput{Assignments: models.AssignmentMap{
		"productB": models.AssignTo("expertY"),
	}}))

	s := c.Session()
	assert.Equal(t, steps.MeetingPlanning, s.Step)
	assert.Equal(t, models.AssignmentMap{"productB": models.AssignTo("expertY")}, s.Draft.Assignments)
	prospects.AssertExpectations(t)
}

func TestExpertCandidates_DegradesOnDirectoryFailure(t *testing.T) {
	prospects := new(MockProspectService)
	dir := &fakeDirectory{experts: func(context.Context, []string) ([]models.Expert, error) {
		return nil, stderrors.New("index missing")
	}}
	c := toExpertSelection(t, prospects, func(d *Dependencies) { d.Experts = dir })

	experts, degraded := c.ExpertCandidates(context.Background())

	assert.Empty(t, experts)
	assert.True(t, degraded)
	require.NoError(t, c.Skip())
}

func TestExpertCandidates_CachesProfiles(t *testing.T) {
	prospects := new(MockProspectService)
	var asked []string
	dir := &fakeDirectory{experts: func(_ context.Context, ids []string) ([]models.Expert, error) {
		asked = ids
		return []models.Expert{{ID: "expertY", Name: "Paul Girard"}}, nil
	}}
	c := toExpertSelection(t, prospects, func(d *Dependencies) { d.Experts = dir })

	experts, degraded := c.ExpertCandidates(context.Background())

	assert.False(t, degraded)
	assert.Len(t, experts, 1)
	assert.Equal(t, []string{"productA", "productB"}, asked)
	assert.Equal(t, "Paul Girard", c.Session().Draft.Experts["expertY"].Name)
}

// toMeetingPlanning assigns productA to expertX and stops on step 4.
func toMeetingPlanning(t *testing.T, prospects *MockProspectService, mutate ...func(*Dependencies)) *Controller {
	t.Helper()
	c := toExpertSelection(t, prospects, mutate...)
	prospects.On("AssignExperts", mock.Anything, "p-1", mock.Anything).Return(nil)
	require.NoError(t, c.Next(context.Background(), AssignmentsOutput{Assignments: models.AssignmentMap{
		"productA": models.AssignTo("expertX"),
	}}))
	require.Equal(t, steps.MeetingPlanning, c.Step())
	return c
}

func TestAddMeeting_Defaults(t *testing.T) {
	c := toMeetingPlanning(t, new(MockProspectService))
	options := c.MeetingOptions()

	expert, err := c.AddMeeting(options[0])
	require.NoError(t, err)
	self, err := c.AddMeeting(options[1])
	require.NoError(t, err)

	assert.Equal(t, models.MediumVideo, expert.Medium)
	assert.Equal(t, 60, expert.DurationMinutes)
	assert.Equal(t, "Meeting with Sophie Laurent for 1 product(s)", expert.Notes)
	assert.Empty(t, expert.ScheduledDate)
	assert.Empty(t, expert.ScheduledTime)
	assert.Equal(t, "Prospect qualification call-back", self.Notes)

	_, err = c.AddMeeting(options[0])
	assert.True(t, errors.IsValidation(err))
	assert.Len(t, c.Session().Draft.Meetings, 2)
}

func TestNext_MeetingWithoutDateMakesNoCall(t *testing.T) {
	prospects := new(MockProspectService)
	c := toMeetingPlanning(t, prospects)
	_, err := c.AddMeeting(c.MeetingOptions()[0])
	require.NoError(t, err)

	err = c.Next(context.Background(), MeetingsOutput{})

	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, steps.MeetingPlanning, c.Step())
	prospects.AssertNotCalled(t, "CreateMeetings", mock.Anything, mock.Anything, mock.Anything)
}

func TestNext_MeetingsSubmittedOnceAsBatch(t *testing.T) {
	ctx := context.Background()
	prospects := new(MockProspectService)
	c := toMeetingPlanning(t, prospects)

	options := c.MeetingOptions()
	expert, err := c.AddMeeting(options[0])
	require.NoError(t, err)
	self, err := c.AddMeeting(options[1])
	require.NoError(t, err)

	require.NoError(t, c.SetStartDate("2025-01-15"))
	require.NoError(t, c.SetMeetingOffset(expert.ID, 3))
	require.NoError(t, c.SetMeetingOffset(self.ID, 0))
	expert, _ = c.Session().Draft.Meeting(expert.ID)
	expert.MeetingURL = "https://meet.example.com/laurent"
	require.NoError(t, c.UpdateMeeting(expert))
	self, _ = c.Session().Draft.Meeting(self.ID)
	self.Medium = models.MediumPhone
	self.PhoneNumber = "+33 1 23 45 67 89"
	require.NoError(t, c.UpdateMeeting(self))

	prospects.On("CreateMeetings", ctx, "p-1", mock.MatchedBy(func(reqs []models.MeetingRequest) bool {
		return len(reqs) == 2 &&
			reqs[0].ExpertID == "expertX" && reqs[0].ScheduledDate == "2025-01-20" && reqs[0].ScheduledTime == "09:00" &&
			reqs[1].ReferrerID == "op-7" && reqs[1].PhoneNumber == "+33 1 23 45 67 89" && reqs[1].MeetingURL == ""
	})).Return(2, nil).Once()

	require.NoError(t, c.Next(ctx, MeetingsOutput{}))
	assert.Equal(t, steps.EmailOption, c.Step())

	require.NoError(t, c.Back())
	require.NoError(t, c.Next(ctx, MeetingsOutput{}))

	prospects.AssertNumberOfCalls(t, "CreateMeetings", 1)
	assert.Len(t, c.Session().Draft.Meetings, 2)
}

func TestSchedulePreview_ShiftsWeekends(t *testing.T) {
	c := toMeetingPlanning(t, new(MockProspectService))
	m, err := c.AddMeeting(c.MeetingOptions()[1])
	require.NoError(t, err)

	assert.True(t, errors.IsValidation(c.SetMeetingOffset(m.ID, 4)))
	require.NoError(t, c.SetStartDate("2025-01-15"))
	require.NoError(t, c.SetMeetingOffset(m.ID, 4))

	preview, err := c.SchedulePreview()
	require.NoError(t, err)
	require.Len(t, preview, 1)
	assert.True(t, preview[0].Shifted)
	assert.Equal(t, "2025-01-20", preview[0].At.Format(models.DateLayout))

	again, err := c.SchedulePreview()
	require.NoError(t, err)
	assert.Equal(t, preview, again)
}

func TestBack_KeepsLaterStepData(t *testing.T) {
	c := toMeetingPlanning(t, new(MockProspectService))
	_, err := c.AddMeeting(c.MeetingOptions()[1])
	require.NoError(t, err)

	require.NoError(t, c.Back())
	require.NoError(t, c.Back())
	require.Equal(t, steps.Simulation, c.Step())
	require.NoError(t, c.Skip())
	require.NoError(t, c.Skip())

	s := c.Session()
	assert.Equal(t, steps.MeetingPlanning, s.Step)
	assert.Len(t, s.Draft.Meetings, 1)
	assert.Equal(t, "expertX", s.Draft.Assignments["productA"].ExpertID)
	assert.NotNil(t, s.Draft.Simulation)
}

func TestNext_EmailFailureIsSoft(t *testing.T) {
	ctx := context.Background()
	prospects := new(MockProspectService)
	prospects.On("CreateProspect", ctx, mock.Anything).Return("p-1", nil)
	credentials := &fakeCredentials{err: stderrors.New("ses throttled")}
	log, logs := logger.NewObserved(zapcore.WarnLevel)
	c := newTestController(t, prospects, func(d *Dependencies) {
		d.Credentials = credentials
		d.Logger = log
	})

	require.NoError(t, c.Next(ctx, ProspectOutput{Fields: validProspect()}))
	require.NoError(t, c.Skip())
	require.NoError(t, c.Skip())
	require.NoError(t, c.Skip())
	require.NoError(t, c.Next(ctx, EmailOutput{Choice: models.EmailWarmFollowUp}))

	s := c.Session()
	assert.Equal(t, OutcomeFinished, s.Outcome)
	assert.Equal(t, models.EmailWarmFollowUp, s.Draft.Email)
	assert.Equal(t, []models.EmailChoice{models.EmailWarmFollowUp}, credentials.calls)
	assert.Len(t, s.Warnings, 1)
	assert.Equal(t, 1, logs.FilterMessage("wizard collaborator call failed").Len())
}

func TestClose_RequiresConfirmation(t *testing.T) {
	c := newTestController(t, new(MockProspectService))

	assert.True(t, errors.HasCode(c.Close(false), errors.ErrCodeCloseNotConfirmed))
	assert.False(t, c.Session().Closed)

	require.NoError(t, c.Close(true))
	assert.Equal(t, OutcomeCancelled, c.Session().Outcome)
	assert.True(t, errors.HasCode(c.Close(true), errors.ErrCodeSessionClosed))
}

func TestNext_InFlightBlocksTransitionsButNotClose(t *testing.T) {
	ctx := context.Background()
	prospects := new(MockProspectService)
	started := make(chan struct{})
	release := make(chan struct{})
	prospects.On("CreateProspect", ctx, validProspect()).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return("p-1", nil)

	c := newTestController(t, prospects)
	done := make(chan error, 1)
	go func() { done <- c.Next(ctx, ProspectOutput{Fields: validProspect()}) }()
	<-started

	assert.True(t, errors.HasCode(c.Next(ctx, ProspectOutput{Fields: validProspect()}), errors.ErrCodeTransitionBusy))
	assert.True(t, errors.HasCode(c.Skip(), errors.ErrCodeTransitionBusy))
	assert.True(t, errors.HasCode(c.Back(), errors.ErrCodeTransitionBusy))
	require.NoError(t, c.Close(true))

	close(release)
	err := <-done

	assert.True(t, errors.HasCode(err, errors.ErrCodeSessionClosed))
	s := c.Session()
	assert.Equal(t, OutcomeCancelled, s.Outcome)
	assert.False(t, s.Draft.Prospect.Persisted())
	prospects.AssertNumberOfCalls(t, "CreateProspect", 1)
}

func TestNext_OutputMustMatchStep(t *testing.T) {
	c := newTestController(t, new(MockProspectService))

	err := c.Next(context.Background(), EmailOutput{Choice: models.EmailNone})

	assert.True(t, errors.HasCode(err, errors.ErrCodeIllegalTransition))
}
