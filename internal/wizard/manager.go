package wizard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"edumate-api/internal/models"
	"edumate-api/internal/utils"
)

const welcomeText = "Hi! I'm your Edumate loan assistant. Let's find the right education loan for you. What level are you planning to study at?"

// typingDelay simulates assistant latency; the typing indicator toggles
// around it.
const defaultTypingDelay = 400 * time.Millisecond

// ProgramSource supplies program catalogs and free-text extraction.
type ProgramSource interface {
	ListByUniversity(ctx context.Context, university, studyLevel string) ([]*models.Program, error)
	ExtractCustomProgram(ctx context.Context, university, freeText string) (*models.Program, error)
}

// OTPService sends and verifies phone verification codes.
type OTPService interface {
	Send(ctx context.Context, countryCode, phone string) error
	Verify(ctx context.Context, phone, code string) error
}

// RateSource supplies currency conversion multipliers.
type RateSource interface {
	GetRates(ctx context.Context) (map[string]float64, error)
}

// ContactStore persists borrower contact records.
type ContactStore interface {
	Upsert(ctx context.Context, contact *models.ContactUpsert) (*models.Contact, error)
}

// Manager drives wizard sessions through the step sequence. Each step
// handler appends exactly one user message and updates the form data
// synchronously before any remote call; a failed call leaves the step
// unchanged so the user can retry the same input.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	programs ProgramSource
	otp      OTPService
	rates    RateSource
	contacts ContactStore

	suggest         SuggestionSource
	suggestInterval time.Duration

	typingDelay         time.Duration
	countdownInterval   time.Duration
	otpCountdownSeconds int
}

// NewManager creates a wizard manager over the given collaborators.
func NewManager(programs ProgramSource, otp OTPService, rates RateSource, contacts ContactStore) *Manager {
	return &Manager{
		sessions:            make(map[string]*Session),
		programs:            programs,
		otp:                 otp,
		rates:               rates,
		contacts:            contacts,
		suggestInterval:     suggestDebounce,
		typingDelay:         defaultTypingDelay,
		countdownInterval:   time.Second,
		otpCountdownSeconds: 30,
	}
}

// SetSuggestionSource enables the debounced university autocomplete on
// sessions. Without a source the suggest action is a no-op.
func (m *Manager) SetSuggestionSource(src SuggestionSource) {
	m.suggest = src
}

// SetSuggestDebounce overrides the autocomplete keystroke debounce.
func (m *Manager) SetSuggestDebounce(d time.Duration) {
	m.suggestInterval = d
}

// SetOTPCountdown overrides the resend countdown length in seconds.
func (m *Manager) SetOTPCountdown(seconds int) {
	if seconds > 0 {
		m.otpCountdownSeconds = seconds
	}
}

// SetTypingDelay overrides the assistant typing delay.
func (m *Manager) SetTypingDelay(d time.Duration) {
	m.typingDelay = d
}

// SetCountdownInterval overrides the OTP countdown tick interval.
func (m *Manager) SetCountdownInterval(d time.Duration) {
	m.countdownInterval = d
}

// StartSession creates a fresh session at the study-level step.
func (m *Manager) StartSession() *Session {
	s := newSession(welcomeText)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	utils.GetLogger().Info("Started wizard session", zap.String("session_id", s.ID))
	return s
}

// Get returns a session by id.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return s, nil
}

// reply types out an assistant response and advances the step.
func (m *Manager) reply(s *Session, text string, next models.Step) {
	s.mu.Lock()
	s.IsTyping = true
	s.mu.Unlock()

	time.Sleep(m.typingDelay)

	s.mu.Lock()
	s.appendAssistant(text, next)
	s.Step = next
	s.IsTyping = false
	s.mu.Unlock()
}

// failTyping clears the typing indicator after a failed remote call.
func (m *Manager) failTyping(s *Session) {
	s.mu.Lock()
	s.IsTyping = false
	s.mu.Unlock()
}

// SubmitStudyLevel records the study level and moves to admit status.
func (m *Manager) SubmitStudyLevel(sessionID, level string) (*Session, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.Step != models.StepStudyLevel {
		s.mu.Unlock()
		return nil, models.ErrInvalidStep
	}
	s.appendUser(level)
	s.FormData.StudyLevel = models.NormalizeStudyLevel(level)
	s.mu.Unlock()

	m.reply(s, "Great choice! Have you already been admitted to a university?", models.StepAdmitStatus)
	return s, nil
}

// SubmitAdmitStatus records the admission status and moves to intake date.
func (m *Manager) SubmitAdmitStatus(sessionID, status string) (*Session, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.Step != models.StepAdmitStatus {
		s.mu.Unlock()
		return nil, models.ErrInvalidStep
	}
	s.appendUser(status)
	s.FormData.AdmitStatus = status
	s.mu.Unlock()

	m.reply(s, "When do you intend to start your program?", models.StepIntendedDate)
	return s, nil
}

// SubmitIntendedDate records the intake month and year and moves to the
// university step.
func (m *Manager) SubmitIntendedDate(sessionID, month string, year int) (*Session, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.Step != models.StepIntendedDate {
		s.mu.Unlock()
		return nil, models.ErrInvalidStep
	}
	s.appendUser(fmt.Sprintf("%s %d", month, year))
	s.FormData.IntendedMonth = month
	s.FormData.IntendedYear = year
	s.mu.Unlock()

	m.reply(s, "Which university are you planning to attend?", models.StepUniversity)
	return s, nil
}

// SuggestUniversities feeds a keystroke from the university input into the
// session's debounced autocomplete. Results land on the session
// asynchronously; stale responses are dropped by the suggester.
func (m *Manager) SuggestUniversities(ctx context.Context, sessionID, query string) (*Session, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if m.suggest == nil {
		return s, nil
	}

	s.mu.Lock()
	if s.Step != models.StepUniversity {
		s.mu.Unlock()
		return nil, models.ErrInvalidStep
	}
	if s.suggester == nil {
		s.suggester = NewSuggester(m.suggest, func(suggestions []models.UniversitySuggestion, visible bool) {
			s.mu.Lock()
			s.Suggestions = suggestions
			s.SuggestionsVisible = visible
			s.mu.Unlock()
		})
		s.suggester.SetDebounce(m.suggestInterval)
	}
	suggester := s.suggester
	s.mu.Unlock()

	suggester.Query(ctx, query)
	return s, nil
}

// SubmitUniversity resolves the university and fetches its program list,
// warming the exchange-rate cache alongside. An empty program list keeps
// the user on the university step.
func (m *Manager) SubmitUniversity(ctx context.Context, sessionID, universityName string) (*Session, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.Step != models.StepUniversity {
		s.mu.Unlock()
		return nil, models.ErrInvalidStep
	}
	s.appendUser(universityName)
	s.FormData.UniversityName = universityName
	s.clearSuggestionsLocked()
	studyLevel := s.FormData.StudyLevel
	s.IsTyping = true
	s.mu.Unlock()

	var programs []*models.Program
	var rates map[string]float64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var perr error
		programs, perr = m.programs.ListByUniversity(gctx, universityName, studyLevel)
		return perr
	})
	g.Go(func() error {
		// Rate warm-up is best-effort; conversion falls back gracefully.
		r, rerr := m.rates.GetRates(gctx)
		if rerr != nil {
			utils.GetLogger().Warn("exchange rate warm-up failed", zap.Error(rerr))
			return nil
		}
		rates = r
		return nil
	})

	if err := g.Wait(); err != nil {
		m.failTyping(s)
		return nil, fmt.Errorf("failed to fetch programs: %w", err)
	}

	s.mu.Lock()
	if rates != nil {
		s.ExchangeRates = rates
	}
	s.ProgramData = programs
	s.mu.Unlock()

	if len(programs) == 0 {
		m.reply(s, fmt.Sprintf("I couldn't find programs for %s. Could you try another university name?", universityName), models.StepUniversity)
		return s, nil
	}

	m.reply(s, fmt.Sprintf("Found %d programs at %s. Pick yours, or tell me its name if it's not listed.", len(programs), universityName), models.StepPrograms)
	return s, nil
}

// SelectProgram captures a catalog program's cost breakdown and moves to
// the loan amount step.
func (m *Manager) SelectProgram(sessionID, programID string) (*Session, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.Step != models.StepPrograms {
		s.mu.Unlock()
		return nil, models.ErrInvalidStep
	}

	var program *models.Program
	for _, p := range s.ProgramData {
		if p.ID == programID {
			program = p
			break
		}
	}
	if program == nil {
		s.mu.Unlock()
		return nil, models.ErrProgramNotFound
	}

	s.appendUser(program.Name)
	s.FormData.ProgramID = program.ID
	s.FormData.ProgramName = program.Name
	s.FormData.TotalCost = program.TotalCost()
	if s.FormData.Currency == "" {
		s.FormData.Currency = "INR"
	}
	s.mu.Unlock()

	cost := s.FormatCurrency(program.TotalCost(), program.Currency)
	m.reply(s, fmt.Sprintf("The total cost of attendance is about %s. How much would you like to borrow?", cost), models.StepLoanAmount)
	return s, nil
}

// SubmitCustomProgram handles the "Other" path: a free-text program name
// is run through extraction, and on success joins the same cost-breakdown
// path as a catalog program. Failure keeps the user in program selection.
func (m *Manager) SubmitCustomProgram(ctx context.Context, sessionID, freeText string) (*Session, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.Step != models.StepPrograms {
		s.mu.Unlock()
		return nil, models.ErrInvalidStep
	}
	s.appendUser(freeText)
	universityName := s.FormData.UniversityName
	s.IsTyping = true
	s.mu.Unlock()

	program, err := m.programs.ExtractCustomProgram(ctx, universityName, freeText)
	if err != nil {
		m.failTyping(s)
		return nil, fmt.Errorf("failed to extract program details: %w", err)
	}

	s.mu.Lock()
	s.ProgramData = append(s.ProgramData, program)
	s.FormData.ProgramID = program.ID
	s.FormData.ProgramName = program.Name
	s.FormData.TotalCost = program.TotalCost()
	if s.FormData.Currency == "" {
		s.FormData.Currency = "INR"
	}
	s.mu.Unlock()

	cost := s.FormatCurrency(program.TotalCost(), program.Currency)
	m.reply(s, fmt.Sprintf("Got it — %s. The total cost of attendance is about %s. How much would you like to borrow?", program.Name, cost), models.StepLoanAmount)
	return s, nil
}

// SubmitLoanAmount records the desired amount and moves to loan type.
func (m *Manager) SubmitLoanAmount(sessionID string, amount float64) (*Session, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, models.ErrInvalidLoanAmount
	}

	s.mu.Lock()
	if s.Step != models.StepLoanAmount {
		s.mu.Unlock()
		return nil, models.ErrInvalidStep
	}
	s.appendUser(fmt.Sprintf("%.0f", amount))
	s.FormData.LoanAmount = amount
	s.mu.Unlock()

	m.reply(s, "Would you prefer a secured loan (with collateral) or an unsecured one?", models.StepLoanType)
	return s, nil
}

// SubmitLoanType records the collateral preference and moves to the OTP
// step.
func (m *Manager) SubmitLoanType(sessionID, loanType string) (*Session, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if !models.LoanType(loanType).IsValid() {
		return nil, models.ErrInvalidLoanType
	}

	s.mu.Lock()
	if s.Step != models.StepLoanType {
		s.mu.Unlock()
		return nil, models.ErrInvalidStep
	}
	s.appendUser(loanType)
	s.FormData.LoanType = loanType
	s.mu.Unlock()

	m.reply(s, "Almost there! Share your mobile number so I can verify it with an OTP.", models.StepOTP)
	return s, nil
}

// SubmitPhone validates the number and, when valid, sends an OTP and
// starts the resend countdown. Invalid numbers produce an inline
// validation error with no network call; the step does not change either
// way — the OTP entry sub-view is keyed on the phone being recorded.
func (m *Manager) SubmitPhone(ctx context.Context, sessionID, countryCode, phone string) (*Session, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.Step != models.StepOTP {
		s.mu.Unlock()
		return nil, models.ErrInvalidStep
	}

	validation := models.ValidatePhone(countryCode, phone)
	s.PhoneValidation = &validation
	if !validation.IsValid {
		s.mu.Unlock()
		return s, nil
	}

	s.appendUser(countryCode + " " + phone)
	s.IsTyping = true
	s.mu.Unlock()

	if err := m.otp.Send(ctx, countryCode, phone); err != nil {
		m.failTyping(s)
		return nil, fmt.Errorf("failed to send OTP: %w", err)
	}

	s.mu.Lock()
	s.FormData.CountryCode = countryCode
	s.FormData.Phone = phone
	s.IsTyping = false
	s.mu.Unlock()

	m.startCountdown(s, m.otpCountdownSeconds)

	utils.GetLogger().Info("OTP sent",
		zap.String("session_id", s.ID),
		zap.String("country_code", countryCode),
	)
	return s, nil
}

// ResendOTP re-sends the code. It is rejected while the countdown is
// still running.
func (m *Manager) ResendOTP(ctx context.Context, sessionID string) (*Session, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.Step != models.StepOTP || s.FormData.Phone == "" {
		s.mu.Unlock()
		return nil, models.ErrInvalidStep
	}
	if s.OTPCountdown > 0 {
		s.mu.Unlock()
		return nil, models.ErrResendNotReady
	}
	countryCode := s.FormData.CountryCode
	phone := s.FormData.Phone
	s.mu.Unlock()

	if err := m.otp.Send(ctx, countryCode, phone); err != nil {
		return nil, fmt.Errorf("failed to resend OTP: %w", err)
	}

	m.startCountdown(s, m.otpCountdownSeconds)
	return s, nil
}

// VerifyOTP checks the 6-digit code. On success the contact is upserted
// best-effort (a failure is logged, never blocking) and the session lands
// on verified. On failure the step does not advance.
func (m *Manager) VerifyOTP(ctx context.Context, sessionID, code string) (*Session, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateOTPCode(code); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.Step != models.StepOTP || s.FormData.Phone == "" {
		s.mu.Unlock()
		return nil, models.ErrInvalidStep
	}
	s.appendUser(code)
	phone := s.FormData.Phone
	form := s.FormData
	s.IsTyping = true
	s.mu.Unlock()

	if err := m.otp.Verify(ctx, phone, code); err != nil {
		m.failTyping(s)
		return nil, err
	}

	// Best-effort: a failed upsert must not block verification.
	contact, err := m.contacts.Upsert(ctx, &models.ContactUpsert{
		Phone:          form.CountryCode + form.Phone,
		StudyLevel:     form.StudyLevel,
		UniversityName: form.UniversityName,
		LoanAmount:     form.LoanAmount,
		LoanType:       form.LoanType,
		Verified:       true,
	})
	if err != nil {
		utils.GetLogger().Error("contact upsert failed after verification",
			zap.String("session_id", s.ID),
			zap.Error(err),
		)
	}

	s.mu.Lock()
	s.stopCountdownLocked()
	s.OTPCountdown = 0
	if contact != nil {
		s.Contact = contact
	}
	s.mu.Unlock()

	m.reply(s, "Your number is verified! You can now check your eligible loans or calculate your repayment.", models.StepVerified)
	return s, nil
}

// EditMessage rewinds the step to the one recorded on a past user
// message. Form data captured after that step is intentionally not rolled
// back.
func (m *Manager) EditMessage(sessionID, messageID string) (*Session, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, msg := range s.Messages {
		if msg.ID == messageID && msg.IsUser {
			s.Step = msg.Step
			return s, nil
		}
	}
	return nil, models.ErrMessageNotFound
}

// SetCurrencyDisplayMode updates how program costs are rendered.
func (m *Manager) SetCurrencyDisplayMode(sessionID string, mode models.CurrencyDisplayMode) (*Session, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("invalid currency display mode: %q", mode)
	}

	s.mu.Lock()
	s.CurrencyDisplayMode = mode
	s.mu.Unlock()
	return s, nil
}

// Reset discards the conversation and starts over with a fresh welcome.
func (m *Manager) Reset(sessionID string) (*Session, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.stopCountdownLocked()
	s.clearSuggestionsLocked()
	s.Step = models.StepStudyLevel
	s.Messages = nil
	s.FormData = models.FormData{}
	s.IsTyping = false
	s.OTPCountdown = 0
	s.PhoneValidation = nil
	s.ProgramData = nil
	s.Contact = nil
	s.appendAssistant(welcomeText, models.StepWelcome)
	s.mu.Unlock()

	return s, nil
}

// startCountdown starts (or restarts) the 1 Hz OTP resend countdown.
func (m *Manager) startCountdown(s *Session, seconds int) {
	s.mu.Lock()
	s.stopCountdownLocked()
	s.OTPCountdown = seconds
	stop := make(chan struct{})
	s.countdownStop = stop
	s.mu.Unlock()

	ticker := time.NewTicker(m.countdownInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if s.TickOTPCountdown() == 0 {
					return
				}
			}
		}
	}()
}
