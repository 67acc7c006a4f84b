// Package wizard implements the AI loan path chat flow: a strictly
// ordered sequence of borrower data-collection steps with OTP phone
// verification as a hard gate before completion.
package wizard

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"edumate-api/internal/models"
)

// Session holds the full state of one wizard conversation. Messages are
// append-only: past entries are never mutated or removed except by Reset.
type Session struct {
	mu sync.Mutex

	ID                  string                        `json:"id"`
	Step                models.Step                   `json:"step"`
	Messages            []models.Message              `json:"messages"`
	FormData            models.FormData               `json:"form_data"`
	IsTyping            bool                          `json:"is_typing"`
	OTPCountdown        int                           `json:"otp_countdown"`
	PhoneValidation     *models.PhoneValidation       `json:"phone_validation,omitempty"`
	ProgramData         []*models.Program             `json:"program_data,omitempty"`
	Contact             *models.Contact               `json:"contact,omitempty"`
	Suggestions         []models.UniversitySuggestion `json:"suggestions,omitempty"`
	SuggestionsVisible  bool                          `json:"suggestions_visible"`
	CurrencyDisplayMode models.CurrencyDisplayMode    `json:"currency_display_mode"`
	ExchangeRates       map[string]float64            `json:"exchange_rates,omitempty"`
	CreatedAt           time.Time                     `json:"created_at"`

	countdownStop chan struct{}
	suggester     *Suggester
}

// newSession creates a session positioned at the first collection step,
// with the assistant's welcome message already appended.
func newSession(welcomeText string) *Session {
	s := &Session{
		ID:                  uuid.New().String(),
		Step:                models.StepStudyLevel,
		CurrencyDisplayMode: models.CurrencyDisplayBoth,
		CreatedAt:           time.Now().UTC(),
	}
	s.Messages = append(s.Messages, models.Message{
		ID:        uuid.New().String(),
		Text:      welcomeText,
		IsUser:    false,
		Step:      models.StepWelcome,
		CreatedAt: s.CreatedAt,
	})
	return s
}

// appendUser records a user-authored message tagged with the current step.
// Callers hold s.mu.
func (s *Session) appendUser(text string) {
	s.Messages = append(s.Messages, models.Message{
		ID:        uuid.New().String(),
		Text:      text,
		IsUser:    true,
		Step:      s.Step,
		CreatedAt: time.Now().UTC(),
	})
}

// appendAssistant records an assistant reply tagged with a step.
// Callers hold s.mu.
func (s *Session) appendAssistant(text string, step models.Step) {
	s.Messages = append(s.Messages, models.Message{
		ID:        uuid.New().String(),
		Text:      text,
		IsUser:    false,
		Step:      step,
		CreatedAt: time.Now().UTC(),
	})
}

// Snapshot returns a copy of the session safe to serialize.
func (s *Session) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := Session{
		ID:                  s.ID,
		Step:                s.Step,
		FormData:            s.FormData,
		IsTyping:            s.IsTyping,
		OTPCountdown:        s.OTPCountdown,
		SuggestionsVisible:  s.SuggestionsVisible,
		CurrencyDisplayMode: s.CurrencyDisplayMode,
		CreatedAt:           s.CreatedAt,
	}
	copied.Messages = append([]models.Message{}, s.Messages...)
	copied.ProgramData = append([]*models.Program{}, s.ProgramData...)
	copied.Suggestions = append([]models.UniversitySuggestion{}, s.Suggestions...)
	if s.PhoneValidation != nil {
		pv := *s.PhoneValidation
		copied.PhoneValidation = &pv
	}
	if s.Contact != nil {
		c := *s.Contact
		copied.Contact = &c
	}
	if s.ExchangeRates != nil {
		copied.ExchangeRates = make(map[string]float64, len(s.ExchangeRates))
		for k, v := range s.ExchangeRates {
			copied.ExchangeRates[k] = v
		}
	}
	return copied
}

// SetOTPCountdown sets the resend countdown to a number of seconds.
func (s *Session) SetOTPCountdown(seconds int) {
	s.mu.Lock()
	s.OTPCountdown = seconds
	s.mu.Unlock()
}

// TickOTPCountdown decrements the countdown by one second, stopping at
// zero. It returns the remaining seconds.
func (s *Session) TickOTPCountdown() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.OTPCountdown > 0 {
		s.OTPCountdown--
	}
	return s.OTPCountdown
}

// CanResendOTP reports whether the resend action is enabled. Resend is
// gated purely on this client-side counter reaching zero.
func (s *Session) CanResendOTP() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.OTPCountdown == 0
}

// AwaitingOTPEntry reports whether the OTP entry sub-view is active: the
// step is otp and a phone number has been captured.
func (s *Session) AwaitingOTPEntry() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Step == models.StepOTP && s.FormData.Phone != ""
}

// clearSuggestionsLocked hides the autocomplete list and cancels any
// pending fetch. Callers hold s.mu.
func (s *Session) clearSuggestionsLocked() {
	if s.suggester != nil {
		s.suggester.Select()
	}
	s.Suggestions = nil
	s.SuggestionsVisible = false
}

// stopCountdownLocked cancels a running countdown ticker. Callers hold s.mu.
func (s *Session) stopCountdownLocked() {
	if s.countdownStop != nil {
		close(s.countdownStop)
		s.countdownStop = nil
	}
}
