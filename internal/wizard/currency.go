package wizard

import (
	"fmt"

	"edumate-api/internal/models"
)

// FormatCurrencyWithConversion renders an amount in its original currency,
// the contact's preferred currency, or both, depending on the display
// mode. Conversion is a multiplication against the cached rate for the
// target currency; when no rate is cached (or the currencies match) the
// unconverted amount is rendered instead.
func FormatCurrencyWithConversion(amount float64, originalCurrency, targetCurrency string, rates map[string]float64, mode models.CurrencyDisplayMode) string {
	original := formatMoney(amount, originalCurrency)

	rate, ok := rates[targetCurrency]
	if !ok || rate == 0 || targetCurrency == "" || targetCurrency == originalCurrency {
		return original
	}

	converted := formatMoney(amount*rate, targetCurrency)

	switch mode {
	case models.CurrencyDisplayConverted:
		return converted
	case models.CurrencyDisplayBoth:
		return fmt.Sprintf("%s (≈ %s)", original, converted)
	default:
		return original
	}
}

func formatMoney(amount float64, currency string) string {
	if currency == "" {
		return fmt.Sprintf("%.2f", amount)
	}
	return fmt.Sprintf("%s %.2f", currency, amount)
}

// FormatCurrency renders an amount for this session using its cached
// exchange rates, display mode and the contact's preferred currency.
func (s *Session) FormatCurrency(amount float64, originalCurrency string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FormatCurrencyWithConversion(amount, originalCurrency, s.FormData.Currency, s.ExchangeRates, s.CurrencyDisplayMode)
}
