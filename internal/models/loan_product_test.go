// Package models_test contains tests for the models package
package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"edumate-api/internal/models"
)

func TestLoanType_IsValid(t *testing.T) {
	tests := []struct {
		loanType models.LoanType
		expected bool
	}{
		{models.LoanTypeSecured, true},
		{models.LoanTypeUnsecured, true},
		{models.LoanType("invalid"), false},
		{models.LoanType(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.loanType), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.loanType.IsValid())
		})
	}
}

func TestExtractLoanData_NilProduct(t *testing.T) {
	view := models.ExtractLoanData(nil)

	assert.Equal(t, "Lender", view.LenderName)
	assert.Equal(t, "N/A", view.RepaymentPeriod)
	assert.Zero(t, view.InterestRate)
	assert.Zero(t, view.MaxLoanAmount)
	assert.Zero(t, view.Rating)
	assert.NotNil(t, view.Features)
	assert.NotNil(t, view.EligibilityCriteria)
	assert.Empty(t, view.Features)
}

func TestExtractLoanData_MissingNestedGroups(t *testing.T) {
	// A product with every optional group absent must still render.
	product := &models.LoanProduct{ID: "p1", LenderName: "SBI"}

	view := models.ExtractLoanData(product)

	assert.Equal(t, "p1", view.ID)
	assert.Equal(t, "SBI", view.LenderName)
	assert.Equal(t, "N/A", view.RepaymentPeriod)
	assert.Zero(t, view.InterestRate)
	assert.Zero(t, view.ProcessingFee)
}

func TestExtractLoanData_FullProduct(t *testing.T) {
	product := &models.LoanProduct{
		ID:         "p2",
		LenderName: "HDFC Credila",
		FinancialTerms: &models.FinancialTerms{
			InterestRateMin:      9.55,
			InterestRateMax:      13.25,
			MaxAmountSecured:     7500000,
			MaxAmountUnsecured:   4500000,
			ProcessingFeePercent: 1.0,
		},
		RepaymentTerms: &models.RepaymentTerms{
			MaxPeriodMonths: 144,
		},
		PerformanceMetrics: &models.PerformanceMetrics{
			SatisfactionRating: 4.0,
		},
		SpecialFeatures:     []string{"Doorstep service"},
		EligibilityCriteria: []string{"Co-applicant required"},
	}

	view := models.ExtractLoanData(product)

	assert.Equal(t, 9.55, view.InterestRate)
	assert.Equal(t, 7500000.0, view.MaxLoanAmount) // secured is the larger
	assert.Equal(t, "12 years", view.RepaymentPeriod)
	assert.Equal(t, 1.0, view.ProcessingFee)
	assert.Equal(t, 4.0, view.Rating)
	assert.Equal(t, []string{"Doorstep service"}, view.Features)
}

func TestExtractLoanData_UnsecuredLarger(t *testing.T) {
	product := &models.LoanProduct{
		FinancialTerms: &models.FinancialTerms{
			MaxAmountSecured:   1000000,
			MaxAmountUnsecured: 2000000,
		},
	}

	view := models.ExtractLoanData(product)
	assert.Equal(t, 2000000.0, view.MaxLoanAmount)
}

func TestExtractLoanData_RatingClamped(t *testing.T) {
	tests := []struct {
		name     string
		rating   float64
		expected float64
	}{
		{"negative clamps to zero", -1.5, 0},
		{"above five clamps to five", 7.2, 5},
		{"in range passes through", 3.7, 3.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product := &models.LoanProduct{
				PerformanceMetrics: &models.PerformanceMetrics{SatisfactionRating: tt.rating},
			}
			assert.Equal(t, tt.expected, models.ExtractLoanData(product).Rating)
		})
	}
}

func TestExtractLoanData_ZeroPeriodIsNA(t *testing.T) {
	product := &models.LoanProduct{
		RepaymentTerms: &models.RepaymentTerms{MaxPeriodMonths: 0},
	}
	assert.Equal(t, "N/A", models.ExtractLoanData(product).RepaymentPeriod)
}

func TestLoanCardView_MaxAmountInLakhs(t *testing.T) {
	view := models.LoanCardView{MaxLoanAmount: 7500000}
	assert.Equal(t, 75.0, view.MaxAmountInLakhs())
}
