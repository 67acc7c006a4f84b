// Package compare implements the client-side comparison tray: a bounded
// selection of loans, per-field "best" badges and an overall winner.
package compare

import (
	"edumate-api/internal/models"
)

// MaxCompare is the comparison tray capacity.
const MaxCompare = 4

// Tray holds the ids of the loans currently selected for comparison.
// The zero value is ready to use. Tray is not safe for concurrent use;
// callers serialize access the way a UI dispatch queue would.
type Tray struct {
	ids []string
}

// IDs returns the selected ids in insertion order.
func (t *Tray) IDs() []string {
	out := make([]string, len(t.ids))
	copy(out, t.ids)
	return out
}

// Size returns the number of selected loans.
func (t *Tray) Size() int {
	return len(t.ids)
}

// Contains reports whether the id is selected.
func (t *Tray) Contains(id string) bool {
	for _, existing := range t.ids {
		if existing == id {
			return true
		}
	}
	return false
}

// Toggle adds or removes a loan from the tray. Adding a fifth loan is
// rejected with ErrComparisonFull and leaves the tray unchanged; the
// caller surfaces that as a toast. The returned bool reports whether the
// id is selected after the call.
func (t *Tray) Toggle(id string) (bool, error) {
	for i, existing := range t.ids {
		if existing == id {
			t.ids = append(t.ids[:i], t.ids[i+1:]...)
			return false, nil
		}
	}

	if len(t.ids) >= MaxCompare {
		return false, models.ErrComparisonFull
	}

	t.ids = append(t.ids, id)
	return true, nil
}

// Clear empties the tray.
func (t *Tray) Clear() {
	t.ids = nil
}

// Comparison fields badged independently.
const (
	FieldInterestRate  = "interest_rate"
	FieldMaxLoanAmount = "max_loan_amount"
	FieldProcessingFee = "processing_fee"
)

// fieldValue extracts the numeric comparison field from a card view.
func fieldValue(v models.LoanCardView, field string) float64 {
	switch field {
	case FieldInterestRate:
		return v.InterestRate
	case FieldMaxLoanAmount:
		return v.MaxLoanAmount
	case FieldProcessingFee:
		return v.ProcessingFee
	default:
		return 0
	}
}

// FindBest computes the min (preferLower) or max of a numeric field across
// the compared loans, ignoring zero values. All-zero input returns 0.
func FindBest(views []models.LoanCardView, field string, preferLower bool) float64 {
	best := 0.0
	found := false

	for _, v := range views {
		val := fieldValue(v, field)
		if val == 0 {
			continue
		}
		if !found {
			best = val
			found = true
			continue
		}
		if preferLower && val < best {
			best = val
		}
		if !preferLower && val > best {
			best = val
		}
	}

	return best
}

// BestCount tallies how many "best" badges a loan earns across the
// compared set: lowest interest rate, highest max amount, lowest fee.
func BestCount(v models.LoanCardView, views []models.LoanCardView) int {
	count := 0
	if v.InterestRate != 0 && v.InterestRate == FindBest(views, FieldInterestRate, true) {
		count++
	}
	if v.MaxLoanAmount != 0 && v.MaxLoanAmount == FindBest(views, FieldMaxLoanAmount, false) {
		count++
	}
	if v.ProcessingFee != 0 && v.ProcessingFee == FindBest(views, FieldProcessingFee, true) {
		count++
	}
	return count
}

// BestOverall returns the id of the loan with the most badges. Ties are
// not broken: the first loan in tray order with the maximum tally wins.
func BestOverall(views []models.LoanCardView) string {
	bestID := ""
	bestCount := -1

	for _, v := range views {
		count := BestCount(v, views)
		if count > bestCount {
			bestCount = count
			bestID = v.ID
		}
	}

	return bestID
}
