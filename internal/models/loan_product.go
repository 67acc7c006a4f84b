// Package models defines the data structures for the Edumate platform.
package models

import (
	"fmt"
	"time"
)

// LoanType represents the collateral class of an education loan.
type LoanType string

const (
	LoanTypeSecured   LoanType = "secured"
	LoanTypeUnsecured LoanType = "unsecured"
)

// IsValid checks if the loan type is valid.
func (t LoanType) IsValid() bool {
	return t == LoanTypeSecured || t == LoanTypeUnsecured
}

// FinancialTerms holds the rate and amount terms of a loan product.
type FinancialTerms struct {
	InterestRateMin      float64 `json:"interest_rate_min" db:"interest_rate_min"`
	InterestRateMax      float64 `json:"interest_rate_max" db:"interest_rate_max"`
	MaxAmountSecured     float64 `json:"max_loan_amount_secured" db:"max_loan_amount_secured"`
	MaxAmountUnsecured   float64 `json:"max_loan_amount_unsecured" db:"max_loan_amount_unsecured"`
	ProcessingFeePercent float64 `json:"processing_fee_percent" db:"processing_fee_percent"`
}

// RepaymentTerms holds the repayment schedule terms of a loan product.
type RepaymentTerms struct {
	MaxPeriodMonths   int    `json:"max_period_months" db:"max_period_months"`
	MoratoriumMonths  int    `json:"moratorium_months" db:"moratorium_months"`
	PrepaymentAllowed bool   `json:"prepayment_allowed" db:"prepayment_allowed"`
	Notes             string `json:"notes,omitempty"`
}

// PerformanceMetrics holds lender quality signals.
type PerformanceMetrics struct {
	SatisfactionRating float64 `json:"satisfaction_rating" db:"satisfaction_rating"`
	ApprovalTimeDays   int     `json:"approval_time_days,omitempty"`
}

// LoanProduct is the API-shaped read model for a lender's education loan
// offer. Nested term groups are optional; consumers must go through
// ExtractLoanData rather than dereferencing these directly.
type LoanProduct struct {
	ID                  string              `json:"id" db:"id"`
	LenderID            string              `json:"lender_id" db:"lender_id"`
	LenderName          string              `json:"lender_name" db:"lender_name"`
	FinancialTerms      *FinancialTerms     `json:"financial_terms,omitempty"`
	RepaymentTerms      *RepaymentTerms     `json:"repayment_terms,omitempty"`
	EligibilityCriteria []string            `json:"eligibility_criteria,omitempty"`
	CollateralSecurity  []string            `json:"collateral_security,omitempty"`
	SpecialFeatures     []string            `json:"special_features,omitempty"`
	PerformanceMetrics  *PerformanceMetrics `json:"performance_metrics,omitempty"`
	CreatedAt           time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at" db:"updated_at"`
	IsActive            bool                `json:"is_active" db:"is_active"`
}

// LoanCardView is the normalized display model derived from a LoanProduct.
// Every field is safe to render: numerics default to 0, strings to a
// placeholder, slices are never nil.
type LoanCardView struct {
	ID                  string   `json:"id"`
	LenderName          string   `json:"lender_name"`
	InterestRate        float64  `json:"interest_rate"`
	MaxLoanAmount       float64  `json:"max_loan_amount"`
	RepaymentPeriod     string   `json:"repayment_period"`
	ProcessingFee       float64  `json:"processing_fee"`
	Rating              float64  `json:"rating"`
	Features            []string `json:"features"`
	EligibilityCriteria []string `json:"eligibility_criteria"`
}

// ExtractLoanData normalizes an API-shaped product into a LoanCardView.
// It is total: any combination of missing nested groups yields defaults,
// never a panic.
func ExtractLoanData(p *LoanProduct) LoanCardView {
	view := LoanCardView{
		ID:                  "",
		LenderName:          "Lender",
		RepaymentPeriod:     "N/A",
		Features:            []string{},
		EligibilityCriteria: []string{},
	}

	if p == nil {
		return view
	}

	view.ID = p.ID
	if p.LenderName != "" {
		view.LenderName = p.LenderName
	}

	if ft := p.FinancialTerms; ft != nil {
		view.InterestRate = ft.InterestRateMin
		view.MaxLoanAmount = ft.MaxAmountSecured
		if ft.MaxAmountUnsecured > view.MaxLoanAmount {
			view.MaxLoanAmount = ft.MaxAmountUnsecured
		}
		view.ProcessingFee = ft.ProcessingFeePercent
	}

	if rt := p.RepaymentTerms; rt != nil && rt.MaxPeriodMonths > 0 {
		view.RepaymentPeriod = fmt.Sprintf("%d years", rt.MaxPeriodMonths/12)
	}

	if pm := p.PerformanceMetrics; pm != nil {
		rating := pm.SatisfactionRating
		if rating < 0 {
			rating = 0
		}
		if rating > 5 {
			rating = 5
		}
		view.Rating = rating
	}

	if len(p.SpecialFeatures) > 0 {
		view.Features = append(view.Features, p.SpecialFeatures...)
	}
	if len(p.EligibilityCriteria) > 0 {
		view.EligibilityCriteria = append(view.EligibilityCriteria, p.EligibilityCriteria...)
	}

	return view
}

// MaxAmountInLakhs converts the max loan amount to lakhs for display.
func (v LoanCardView) MaxAmountInLakhs() float64 {
	return v.MaxLoanAmount / 100000
}
