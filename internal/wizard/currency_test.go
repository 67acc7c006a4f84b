package wizard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"edumate-api/internal/models"
	"edumate-api/internal/wizard"
)

func TestFormatCurrencyWithConversion(t *testing.T) {
	rates := map[string]float64{"INR": 83.0, "EUR": 0.0}

	tests := []struct {
		name     string
		amount   float64
		original string
		target   string
		rates    map[string]float64
		mode     models.CurrencyDisplayMode
		expected string
	}{
		{
			name:     "both mode shows original and converted",
			amount:   1000,
			original: "USD",
			target:   "INR",
			rates:    rates,
			mode:     models.CurrencyDisplayBoth,
			expected: "USD 1000.00 (≈ INR 83000.00)",
		},
		{
			name:     "converted mode shows target only",
			amount:   1000,
			original: "USD",
			target:   "INR",
			rates:    rates,
			mode:     models.CurrencyDisplayConverted,
			expected: "INR 83000.00",
		},
		{
			name:     "original mode ignores the rate",
			amount:   1000,
			original: "USD",
			target:   "INR",
			rates:    rates,
			mode:     models.CurrencyDisplayOriginal,
			expected: "USD 1000.00",
		},
		{
			name:     "missing rate falls back to original",
			amount:   1000,
			original: "USD",
			target:   "GBP",
			rates:    rates,
			mode:     models.CurrencyDisplayBoth,
			expected: "USD 1000.00",
		},
		{
			name:     "zero rate falls back to original",
			amount:   1000,
			original: "USD",
			target:   "EUR",
			rates:    rates,
			mode:     models.CurrencyDisplayBoth,
			expected: "USD 1000.00",
		},
		{
			name:     "same currency skips conversion",
			amount:   1000,
			original: "INR",
			target:   "INR",
			rates:    rates,
			mode:     models.CurrencyDisplayBoth,
			expected: "INR 1000.00",
		},
		{
			name:     "empty target skips conversion",
			amount:   1000,
			original: "USD",
			target:   "",
			rates:    rates,
			mode:     models.CurrencyDisplayBoth,
			expected: "USD 1000.00",
		},
		{
			name:     "nil rates fall back to original",
			amount:   1000,
			original: "USD",
			target:   "INR",
			rates:    nil,
			mode:     models.CurrencyDisplayConverted,
			expected: "USD 1000.00",
		},
		{
			name:     "empty original currency renders bare amount",
			amount:   42.5,
			original: "",
			target:   "",
			rates:    nil,
			mode:     models.CurrencyDisplayOriginal,
			expected: "42.50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wizard.FormatCurrencyWithConversion(tt.amount, tt.original, tt.target, tt.rates, tt.mode)
			assert.Equal(t, tt.expected, got)
		})
	}
}
