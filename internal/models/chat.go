// Package models defines the data structures for the Edumate platform.
package models

import (
	"time"
)

// Step represents a stage of the loan-path chat wizard.
type Step string

const (
	StepWelcome      Step = "welcome"
	StepStudyLevel   Step = "study-level"
	StepAdmitStatus  Step = "admit-status"
	StepIntendedDate Step = "intended-date"
	StepUniversity   Step = "university"
	StepPrograms     Step = "programs"
	StepLoanAmount   Step = "loan-amount"
	StepLoanType     Step = "loan-type"
	StepOTP          Step = "otp"
	StepVerified     Step = "verified"

	// StepLoans is a legacy branch kept for old sessions; no transition
	// produces it anymore.
	StepLoans Step = "loans"
)

// ValidSteps returns every step in wizard order.
func ValidSteps() []Step {
	return []Step{
		StepWelcome,
		StepStudyLevel,
		StepAdmitStatus,
		StepIntendedDate,
		StepUniversity,
		StepPrograms,
		StepLoanAmount,
		StepLoanType,
		StepOTP,
		StepVerified,
		StepLoans,
	}
}

// IsValid checks if the step is a known wizard step.
func (s Step) IsValid() bool {
	for _, valid := range ValidSteps() {
		if s == valid {
			return true
		}
	}
	return false
}

// Message is one entry in a wizard conversation. Messages are append-only;
// past entries are never mutated or removed except on a full reset.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	IsUser    bool      `json:"is_user"`
	Step      Step      `json:"step"`
	CreatedAt time.Time `json:"created_at"`
}

// FormData accumulates everything the wizard collects. Fields are only
// ever written by step handlers; an edit that rewinds the step does not
// roll these back.
type FormData struct {
	StudyLevel     string  `json:"study_level,omitempty"`
	AdmitStatus    string  `json:"admit_status,omitempty"`
	IntendedMonth  string  `json:"intended_month,omitempty"`
	IntendedYear   int     `json:"intended_year,omitempty"`
	UniversityName string  `json:"university_name,omitempty"`
	ProgramID      string  `json:"program_id,omitempty"`
	ProgramName    string  `json:"program_name,omitempty"`
	TotalCost      float64 `json:"total_cost,omitempty"`
	LoanAmount     float64 `json:"loan_amount,omitempty"`
	LoanType       string  `json:"loan_type,omitempty"`
	CountryCode    string  `json:"country_code,omitempty"`
	Phone          string  `json:"phone,omitempty"`
	Currency       string  `json:"currency,omitempty"`
}

// PhoneValidation is the synchronous result of phone-format validation.
type PhoneValidation struct {
	IsValid bool   `json:"is_valid"`
	Error   string `json:"error,omitempty"`
}

// CurrencyDisplayMode controls how program costs are rendered.
type CurrencyDisplayMode string

const (
	CurrencyDisplayOriginal  CurrencyDisplayMode = "original"
	CurrencyDisplayConverted CurrencyDisplayMode = "converted"
	CurrencyDisplayBoth      CurrencyDisplayMode = "both"
)

// IsValid checks if the display mode is valid.
func (m CurrencyDisplayMode) IsValid() bool {
	switch m {
	case CurrencyDisplayOriginal, CurrencyDisplayConverted, CurrencyDisplayBoth:
		return true
	}
	return false
}
