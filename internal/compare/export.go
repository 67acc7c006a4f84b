package compare

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"edumate-api/internal/models"
)

// exportHeader defines the CSV columns for a comparison export.
var exportHeader = []string{
	"lender",
	"interest_rate",
	"max_loan_amount",
	"repayment_period",
	"processing_fee",
	"rating",
	"special_features",
	"eligibility_criteria",
}

// ExportCSV builds an in-memory CSV of the compared loans, one row per
// card view, in tray order. The frontend turns this into a Blob download;
// no server round-trip is involved beyond this call.
func ExportCSV(views []models.LoanCardView) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, v := range views {
		row := []string{
			v.LenderName,
			fmt.Sprintf("%.2f%%", v.InterestRate),
			fmt.Sprintf("%.0f", v.MaxLoanAmount),
			v.RepaymentPeriod,
			fmt.Sprintf("%.2f%%", v.ProcessingFee),
			fmt.Sprintf("%.1f", v.Rating),
			strings.Join(v.Features, "; "),
			strings.Join(v.EligibilityCriteria, "; "),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}

	return buf.Bytes(), nil
}
