// Package wizard_test contains tests for the chat wizard flow.
package wizard_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edumate-api/internal/models"
	"edumate-api/internal/wizard"
)

type fakePrograms struct {
	programs   []*models.Program
	extracted  *models.Program
	extractErr error
	listErr    error
}

func (f *fakePrograms) ListByUniversity(_ context.Context, university, _ string) ([]*models.Program, error) {
	return f.programs, f.listErr
}

func (f *fakePrograms) ExtractCustomProgram(_ context.Context, university, freeText string) (*models.Program, error) {
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	return f.extracted, nil
}

type fakeOTP struct {
	mu        sync.Mutex
	sends     int
	verifyErr error
	lastPhone string
}

func (f *fakeOTP) Send(_ context.Context, countryCode, phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	f.lastPhone = phone
	return nil
}

func (f *fakeOTP) Verify(_ context.Context, phone, code string) error {
	return f.verifyErr
}

func (f *fakeOTP) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sends
}

type fakeRates struct {
	rates map[string]float64
	err   error
}

func (f *fakeRates) GetRates(_ context.Context) (map[string]float64, error) {
	return f.rates, f.err
}

type fakeContacts struct {
	mu     sync.Mutex
	upsert *models.ContactUpsert
	err    error
}

func (f *fakeContacts) Upsert(_ context.Context, c *models.ContactUpsert) (*models.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsert = c
	if f.err != nil {
		return nil, f.err
	}
	return &models.Contact{ID: "c1", Phone: c.Phone, Verified: c.Verified}, nil
}

func (f *fakeContacts) last() *models.ContactUpsert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upsert
}

func testManager(programs *fakePrograms, otp *fakeOTP, rates *fakeRates, contacts *fakeContacts) *wizard.Manager {
	if programs == nil {
		programs = &fakePrograms{}
	}
	if otp == nil {
		otp = &fakeOTP{}
	}
	if rates == nil {
		rates = &fakeRates{}
	}
	if contacts == nil {
		contacts = &fakeContacts{}
	}
	m := wizard.NewManager(programs, otp, rates, contacts)
	m.SetTypingDelay(0)
	return m
}

func TestStartSession_WelcomePositioning(t *testing.T) {
	m := testManager(nil, nil, nil, nil)
	s := m.StartSession()

	snap := s.Snapshot()
	assert.Equal(t, models.StepStudyLevel, snap.Step)
	require.Len(t, snap.Messages, 1)
	assert.False(t, snap.Messages[0].IsUser)
	assert.Equal(t, models.StepWelcome, snap.Messages[0].Step)
	assert.Equal(t, models.CurrencyDisplayBoth, snap.CurrencyDisplayMode)
}

func TestSubmitStudyLevel_AdvancesAndNormalizes(t *testing.T) {
	m := testManager(nil, nil, nil, nil)
	s := m.StartSession()

	_, err := m.SubmitStudyLevel(s.ID, "Masters")
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, models.StepAdmitStatus, snap.Step)
	assert.Equal(t, "postgraduate", snap.FormData.StudyLevel)
	// User message then assistant reply.
	require.Len(t, snap.Messages, 3)
	assert.True(t, snap.Messages[1].IsUser)
	assert.Equal(t, models.StepStudyLevel, snap.Messages[1].Step)
	assert.False(t, snap.Messages[2].IsUser)
}

func TestSubmitStudyLevel_WrongStepRejected(t *testing.T) {
	m := testManager(nil, nil, nil, nil)
	s := m.StartSession()

	_, err := m.SubmitAdmitStatus(s.ID, "yes")
	assert.ErrorIs(t, err, models.ErrInvalidStep)
}

func TestGet_UnknownSession(t *testing.T) {
	m := testManager(nil, nil, nil, nil)
	_, err := m.Get("nope")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

// advanceToUniversity walks a session to the university step.
func advanceToUniversity(t *testing.T, m *wizard.Manager, s *wizard.Session) {
	t.Helper()
	_, err := m.SubmitStudyLevel(s.ID, "masters")
	require.NoError(t, err)
	_, err = m.SubmitAdmitStatus(s.ID, "admitted")
	require.NoError(t, err)
	_, err = m.SubmitIntendedDate(s.ID, "september", 2027)
	require.NoError(t, err)
}

func TestSubmitUniversity_LoadsProgramsAndRates(t *testing.T) {
	programs := &fakePrograms{programs: []*models.Program{
		{ID: "pr1", Name: "MS CS", TuitionFee: 120000, CostOfLiving: 45000, Currency: "USD"},
	}}
	rates := &fakeRates{rates: map[string]float64{"INR": 83.2}}
	m := testManager(programs, nil, rates, nil)
	s := m.StartSession()
	advanceToUniversity(t, m, s)

	_, err := m.SubmitUniversity(context.Background(), s.ID, "Stanford University")
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, models.StepPrograms, snap.Step)
	assert.Equal(t, "Stanford University", snap.FormData.UniversityName)
	require.Len(t, snap.ProgramData, 1)
	assert.Equal(t, map[string]float64{"INR": 83.2}, snap.ExchangeRates)
	assert.False(t, snap.IsTyping)
}

func TestSubmitUniversity_EmptyProgramsStaysOnStep(t *testing.T) {
	m := testManager(&fakePrograms{}, nil, nil, nil)
	s := m.StartSession()
	advanceToUniversity(t, m, s)

	_, err := m.SubmitUniversity(context.Background(), s.ID, "Unknown College")
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, models.StepUniversity, snap.Step)
}

func TestSubmitUniversity_RateFailureIsNotFatal(t *testing.T) {
	programs := &fakePrograms{programs: []*models.Program{{ID: "pr1", Name: "MS CS"}}}
	rates := &fakeRates{err: errors.New("rate API down")}
	m := testManager(programs, nil, rates, nil)
	s := m.StartSession()
	advanceToUniversity(t, m, s)

	_, err := m.SubmitUniversity(context.Background(), s.ID, "Stanford University")
	require.NoError(t, err)
	assert.Equal(t, models.StepPrograms, s.Snapshot().Step)
}

func TestSubmitUniversity_ProgramFailureKeepsStep(t *testing.T) {
	programs := &fakePrograms{listErr: errors.New("catalog down")}
	m := testManager(programs, nil, nil, nil)
	s := m.StartSession()
	advanceToUniversity(t, m, s)

	_, err := m.SubmitUniversity(context.Background(), s.ID, "Stanford University")
	require.Error(t, err)

	snap := s.Snapshot()
	assert.Equal(t, models.StepUniversity, snap.Step)
	assert.False(t, snap.IsTyping)
}

func TestSelectProgram_CapturesCostBreakdown(t *testing.T) {
	programs := &fakePrograms{programs: []*models.Program{
		{ID: "pr1", Name: "MS CS", TuitionFee: 120000, CostOfLiving: 45000, Currency: "USD"},
	}}
	m := testManager(programs, nil, nil, nil)
	s := m.StartSession()
	advanceToUniversity(t, m, s)
	_, err := m.SubmitUniversity(context.Background(), s.ID, "Stanford University")
	require.NoError(t, err)

	_, err = m.SelectProgram(s.ID, "pr1")
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, models.StepLoanAmount, snap.Step)
	assert.Equal(t, "pr1", snap.FormData.ProgramID)
	assert.Equal(t, "MS CS", snap.FormData.ProgramName)
	assert.Equal(t, 165000.0, snap.FormData.TotalCost)
	assert.Equal(t, "INR", snap.FormData.Currency)
}

func TestSelectProgram_UnknownID(t *testing.T) {
	programs := &fakePrograms{programs: []*models.Program{{ID: "pr1", Name: "MS CS"}}}
	m := testManager(programs, nil, nil, nil)
	s := m.StartSession()
	advanceToUniversity(t, m, s)
	_, err := m.SubmitUniversity(context.Background(), s.ID, "Stanford University")
	require.NoError(t, err)

	_, err = m.SelectProgram(s.ID, "missing")
	assert.ErrorIs(t, err, models.ErrProgramNotFound)
	assert.Equal(t, models.StepPrograms, s.Snapshot().Step)
}

func TestSubmitCustomProgram_JoinsCatalogPath(t *testing.T) {
	programs := &fakePrograms{
		programs:  []*models.Program{{ID: "pr1", Name: "MS CS"}},
		extracted: &models.Program{ID: "pr-x", Name: "MEng Robotics", TuitionFee: 90000, CostOfLiving: 30000, Currency: "USD"},
	}
	m := testManager(programs, nil, nil, nil)
	s := m.StartSession()
	advanceToUniversity(t, m, s)
	_, err := m.SubmitUniversity(context.Background(), s.ID, "Stanford University")
	require.NoError(t, err)

	_, err = m.SubmitCustomProgram(context.Background(), s.ID, "robotics masters")
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, models.StepLoanAmount, snap.Step)
	assert.Equal(t, "pr-x", snap.FormData.ProgramID)
	assert.Equal(t, 120000.0, snap.FormData.TotalCost)
	// Extracted program joins the session catalog.
	require.Len(t, snap.ProgramData, 2)
}

func TestSubmitCustomProgram_ExtractionFailureKeepsStep(t *testing.T) {
	programs := &fakePrograms{
		programs:   []*models.Program{{ID: "pr1", Name: "MS CS"}},
		extractErr: errors.New("LLM unavailable"),
	}
	m := testManager(programs, nil, nil, nil)
	s := m.StartSession()
	advanceToUniversity(t, m, s)
	_, err := m.SubmitUniversity(context.Background(), s.ID, "Stanford University")
	require.NoError(t, err)

	_, err = m.SubmitCustomProgram(context.Background(), s.ID, "robotics masters")
	require.Error(t, err)

	snap := s.Snapshot()
	assert.Equal(t, models.StepPrograms, snap.Step)
	assert.False(t, snap.IsTyping)
}

// advanceToOTP walks a session up to the otp step.
func advanceToOTP(t *testing.T, m *wizard.Manager, s *wizard.Session) {
	t.Helper()
	advanceToUniversity(t, m, s)
	_, err := m.SubmitUniversity(context.Background(), s.ID, "Stanford University")
	require.NoError(t, err)
	_, err = m.SelectProgram(s.ID, "pr1")
	require.NoError(t, err)
	_, err = m.SubmitLoanAmount(s.ID, 5000000)
	require.NoError(t, err)
	_, err = m.SubmitLoanType(s.ID, "secured")
	require.NoError(t, err)
}

func otpPrograms() *fakePrograms {
	return &fakePrograms{programs: []*models.Program{
		{ID: "pr1", Name: "MS CS", TuitionFee: 120000, CostOfLiving: 45000, Currency: "USD"},
	}}
}

func TestSubmitLoanAmount_RejectsNonPositive(t *testing.T) {
	m := testManager(nil, nil, nil, nil)
	s := m.StartSession()

	_, err := m.SubmitLoanAmount(s.ID, 0)
	assert.ErrorIs(t, err, models.ErrInvalidLoanAmount)
	_, err = m.SubmitLoanAmount(s.ID, -100)
	assert.ErrorIs(t, err, models.ErrInvalidLoanAmount)
}

func TestSubmitLoanType_RejectsUnknown(t *testing.T) {
	m := testManager(nil, nil, nil, nil)
	s := m.StartSession()

	_, err := m.SubmitLoanType(s.ID, "collateralized")
	assert.ErrorIs(t, err, models.ErrInvalidLoanType)
}

func TestSubmitPhone_InvalidNumberNoSend(t *testing.T) {
	otp := &fakeOTP{}
	m := testManager(otpPrograms(), otp, nil, nil)
	s := m.StartSession()
	advanceToOTP(t, m, s)

	_, err := m.SubmitPhone(context.Background(), s.ID, "+91", "98765")
	require.NoError(t, err)

	snap := s.Snapshot()
	require.NotNil(t, snap.PhoneValidation)
	assert.False(t, snap.PhoneValidation.IsValid)
	assert.Contains(t, snap.PhoneValidation.Error, "please enter more digits")
	assert.Zero(t, otp.sendCount())
	assert.Equal(t, models.StepOTP, snap.Step)
	assert.Empty(t, snap.FormData.Phone)
}

func TestSubmitPhone_ValidSendsAndStartsCountdown(t *testing.T) {
	otp := &fakeOTP{}
	m := testManager(otpPrograms(), otp, nil, nil)
	s := m.StartSession()
	advanceToOTP(t, m, s)

	_, err := m.SubmitPhone(context.Background(), s.ID, "+91", "9876543210")
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, 1, otp.sendCount())
	assert.Equal(t, "9876543210", snap.FormData.Phone)
	assert.Equal(t, 30, snap.OTPCountdown)
	assert.True(t, s.AwaitingOTPEntry())
	assert.False(t, s.CanResendOTP())
}

func TestCountdown_TicksToZeroAndEnablesResend(t *testing.T) {
	otp := &fakeOTP{}
	m := testManager(otpPrograms(), otp, nil, nil)
	m.SetCountdownInterval(time.Millisecond)
	s := m.StartSession()
	advanceToOTP(t, m, s)

	_, err := m.SubmitPhone(context.Background(), s.ID, "+91", "9876543210")
	require.NoError(t, err)

	require.Eventually(t, s.CanResendOTP, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, s.Snapshot().OTPCountdown)

	_, err = m.ResendOTP(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, otp.sendCount())
	assert.Equal(t, 30, s.Snapshot().OTPCountdown)
}

func TestResendOTP_RejectedWhileCountdownRunning(t *testing.T) {
	otp := &fakeOTP{}
	m := testManager(otpPrograms(), otp, nil, nil)
	s := m.StartSession()
	advanceToOTP(t, m, s)

	_, err := m.SubmitPhone(context.Background(), s.ID, "+91", "9876543210")
	require.NoError(t, err)

	_, err = m.ResendOTP(context.Background(), s.ID)
	assert.ErrorIs(t, err, models.ErrResendNotReady)
	assert.Equal(t, 1, otp.sendCount())
}

func TestVerifyOTP_SuccessUpsertsContactAndAdvances(t *testing.T) {
	otp := &fakeOTP{}
	contacts := &fakeContacts{}
	m := testManager(otpPrograms(), otp, nil, contacts)
	s := m.StartSession()
	advanceToOTP(t, m, s)
	_, err := m.SubmitPhone(context.Background(), s.ID, "+91", "9876543210")
	require.NoError(t, err)

	_, err = m.VerifyOTP(context.Background(), s.ID, "123456")
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, models.StepVerified, snap.Step)
	assert.Zero(t, snap.OTPCountdown)

	upsert := contacts.last()
	require.NotNil(t, upsert)
	assert.Equal(t, "+919876543210", upsert.Phone)
	assert.True(t, upsert.Verified)
	assert.Equal(t, "postgraduate", upsert.StudyLevel)
	assert.Equal(t, "Stanford University", upsert.UniversityName)
	assert.Equal(t, 5000000.0, upsert.LoanAmount)
	assert.Equal(t, "secured", upsert.LoanType)

	// The stored contact rides on the session for downstream consumers.
	require.NotNil(t, snap.Contact)
	assert.Equal(t, "c1", snap.Contact.ID)
	assert.True(t, snap.Contact.Verified)
}

func TestVerifyOTP_MismatchKeepsStep(t *testing.T) {
	otp := &fakeOTP{verifyErr: models.ErrOTPCodeMismatch}
	m := testManager(otpPrograms(), otp, nil, nil)
	s := m.StartSession()
	advanceToOTP(t, m, s)
	_, err := m.SubmitPhone(context.Background(), s.ID, "+91", "9876543210")
	require.NoError(t, err)

	_, err = m.VerifyOTP(context.Background(), s.ID, "000000")
	assert.ErrorIs(t, err, models.ErrOTPCodeMismatch)

	snap := s.Snapshot()
	assert.Equal(t, models.StepOTP, snap.Step)
	assert.False(t, snap.IsTyping)
}

func TestVerifyOTP_ContactFailureDoesNotBlock(t *testing.T) {
	otp := &fakeOTP{}
	contacts := &fakeContacts{err: errors.New("db down")}
	m := testManager(otpPrograms(), otp, nil, contacts)
	s := m.StartSession()
	advanceToOTP(t, m, s)
	_, err := m.SubmitPhone(context.Background(), s.ID, "+91", "9876543210")
	require.NoError(t, err)

	_, err = m.VerifyOTP(context.Background(), s.ID, "123456")
	require.NoError(t, err)
	assert.Equal(t, models.StepVerified, s.Snapshot().Step)
}

func TestVerifyOTP_MalformedCode(t *testing.T) {
	m := testManager(otpPrograms(), nil, nil, nil)
	s := m.StartSession()

	_, err := m.VerifyOTP(context.Background(), s.ID, "12ab")
	assert.ErrorIs(t, err, models.ErrInvalidOTPCode)
}

func TestEditMessage_RewindsStepKeepsFormData(t *testing.T) {
	m := testManager(otpPrograms(), nil, nil, nil)
	s := m.StartSession()
	advanceToUniversity(t, m, s)

	snap := s.Snapshot()
	var studyLevelMsg string
	for _, msg := range snap.Messages {
		if msg.IsUser && msg.Step == models.StepStudyLevel {
			studyLevelMsg = msg.ID
		}
	}
	require.NotEmpty(t, studyLevelMsg)

	_, err := m.EditMessage(s.ID, studyLevelMsg)
	require.NoError(t, err)

	snap = s.Snapshot()
	assert.Equal(t, models.StepStudyLevel, snap.Step)
	// Later answers survive the rewind.
	assert.Equal(t, "admitted", snap.FormData.AdmitStatus)
	assert.Equal(t, "september", snap.FormData.IntendedMonth)
}

func TestEditMessage_AssistantMessageNotEditable(t *testing.T) {
	m := testManager(nil, nil, nil, nil)
	s := m.StartSession()

	welcomeID := s.Snapshot().Messages[0].ID
	_, err := m.EditMessage(s.ID, welcomeID)
	assert.ErrorIs(t, err, models.ErrMessageNotFound)
}

func TestReset_FreshWelcome(t *testing.T) {
	m := testManager(otpPrograms(), nil, nil, nil)
	s := m.StartSession()
	advanceToUniversity(t, m, s)

	_, err := m.Reset(s.ID)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, models.StepStudyLevel, snap.Step)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, models.FormData{}, snap.FormData)
	assert.Zero(t, snap.OTPCountdown)
}

func TestSetOTPCountdown_OverridesDefault(t *testing.T) {
	otp := &fakeOTP{}
	m := testManager(otpPrograms(), otp, nil, nil)
	m.SetOTPCountdown(45)
	s := m.StartSession()
	advanceToOTP(t, m, s)

	_, err := m.SubmitPhone(context.Background(), s.ID, "+91", "9876543210")
	require.NoError(t, err)
	assert.Equal(t, 45, s.Snapshot().OTPCountdown)
}

func TestSuggestUniversities_PopulatesSessionAfterDebounce(t *testing.T) {
	source := &fakeSuggestSource{}
	m := testManager(otpPrograms(), nil, nil, nil)
	m.SetSuggestionSource(source)
	m.SetSuggestDebounce(5 * time.Millisecond)
	s := m.StartSession()
	advanceToUniversity(t, m, s)

	_, err := m.SuggestUniversities(context.Background(), s.ID, "stan")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return snap.SuggestionsVisible && len(snap.Suggestions) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "stan University", s.Snapshot().Suggestions[0].Description)
}

func TestSuggestUniversities_WrongStepRejected(t *testing.T) {
	m := testManager(nil, nil, nil, nil)
	m.SetSuggestionSource(&fakeSuggestSource{})
	s := m.StartSession()

	_, err := m.SuggestUniversities(context.Background(), s.ID, "stan")
	assert.ErrorIs(t, err, models.ErrInvalidStep)
}

func TestSuggestUniversities_NoSourceIsNoop(t *testing.T) {
	m := testManager(nil, nil, nil, nil)
	s := m.StartSession()

	_, err := m.SuggestUniversities(context.Background(), s.ID, "stan")
	require.NoError(t, err)
	assert.False(t, s.Snapshot().SuggestionsVisible)
}

func TestSuggestUniversities_ShortQueryClears(t *testing.T) {
	source := &fakeSuggestSource{}
	m := testManager(otpPrograms(), nil, nil, nil)
	m.SetSuggestionSource(source)
	m.SetSuggestDebounce(5 * time.Millisecond)
	s := m.StartSession()
	advanceToUniversity(t, m, s)

	_, err := m.SuggestUniversities(context.Background(), s.ID, "stan")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return s.Snapshot().SuggestionsVisible
	}, 2*time.Second, 5*time.Millisecond)

	_, err = m.SuggestUniversities(context.Background(), s.ID, "s")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return !s.Snapshot().SuggestionsVisible
	}, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, s.Snapshot().Suggestions)
	assert.Len(t, source.queryLog(), 1)
}

func TestSubmitUniversity_ClearsSuggestions(t *testing.T) {
	source := &fakeSuggestSource{}
	m := testManager(otpPrograms(), nil, nil, nil)
	m.SetSuggestionSource(source)
	m.SetSuggestDebounce(5 * time.Millisecond)
	s := m.StartSession()
	advanceToUniversity(t, m, s)

	_, err := m.SuggestUniversities(context.Background(), s.ID, "stan")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return s.Snapshot().SuggestionsVisible
	}, 2*time.Second, 5*time.Millisecond)

	_, err = m.SubmitUniversity(context.Background(), s.ID, "Stanford University")
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.False(t, snap.SuggestionsVisible)
	assert.Empty(t, snap.Suggestions)
}

func TestSetCurrencyDisplayMode(t *testing.T) {
	m := testManager(nil, nil, nil, nil)
	s := m.StartSession()

	_, err := m.SetCurrencyDisplayMode(s.ID, models.CurrencyDisplayConverted)
	require.NoError(t, err)
	assert.Equal(t, models.CurrencyDisplayConverted, s.Snapshot().CurrencyDisplayMode)

	_, err = m.SetCurrencyDisplayMode(s.ID, models.CurrencyDisplayMode("euros"))
	assert.Error(t, err)
}
