// Package models_test contains tests for the models package
package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"edumate-api/internal/models"
)

func TestValidatePhone_India(t *testing.T) {
	tests := []struct {
		name      string
		phone     string
		valid     bool
		errSubstr string
	}{
		{"valid 10 digits", "9876543210", true, ""},
		{"nine digits asks for more", "987654321", false, "please enter more digits"},
		{"eleven digits rejects", "98765432100", false, "must be 10 digits"},
		{"landline prefix rejects", "2876543210", false, "start with 6, 7, 8 or 9"},
		{"letters reject", "98765abc10", false, "digits only"},
		{"empty rejects", "", false, "cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := models.ValidatePhone("+91", tt.phone)
			assert.Equal(t, tt.valid, result.IsValid)
			if tt.errSubstr != "" {
				assert.Contains(t, result.Error, tt.errSubstr)
			}
		})
	}
}

func TestValidatePhone_OtherCountries(t *testing.T) {
	tests := []struct {
		name        string
		countryCode string
		phone       string
		valid       bool
	}{
		{"US ten digits", "+1", "2025550123", true},
		{"UK eleven digits", "+44", "20755501234", true},
		{"seven digit minimum", "+65", "1234567", true},
		{"six digits too short", "+65", "123456", false},
		{"fifteen digits too long", "+49", "123456789012345", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := models.ValidatePhone(tt.countryCode, tt.phone)
			assert.Equal(t, tt.valid, result.IsValid)
		})
	}
}

func TestValidatePhone_CountryCodePrefixIgnored(t *testing.T) {
	// "+91" and "91" behave identically.
	withPlus := models.ValidatePhone("+91", "9876543210")
	withoutPlus := models.ValidatePhone("91", "9876543210")
	assert.Equal(t, withPlus, withoutPlus)
}

func TestValidateOTPCode(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{"123456", true},
		{"000000", true},
		{"12345", false},
		{"1234567", false},
		{"12345a", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := models.ValidateOTPCode(tt.code)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, models.ErrInvalidOTPCode)
			}
		})
	}
}

func TestNormalizeStudyLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"undergraduate", "undergraduate"},
		{"Bachelors", "undergraduate"},
		{"UG", "undergraduate"},
		{"Masters", "postgraduate"},
		{"MBA", "postgraduate"},
		{"graduate", "postgraduate"},
		{"PhD", "doctorate"},
		{"Doctoral", "doctorate"},
		{"  masters  ", "postgraduate"},
		{"vocational", "vocational"}, // unmapped passes through lowercased
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, models.NormalizeStudyLevel(tt.input))
		})
	}
}

func TestStep_IsValid(t *testing.T) {
	for _, step := range models.ValidSteps() {
		assert.True(t, step.IsValid(), string(step))
	}
	assert.False(t, models.Step("unknown").IsValid())
}

func TestCurrencyDisplayMode_IsValid(t *testing.T) {
	assert.True(t, models.CurrencyDisplayOriginal.IsValid())
	assert.True(t, models.CurrencyDisplayConverted.IsValid())
	assert.True(t, models.CurrencyDisplayBoth.IsValid())
	assert.False(t, models.CurrencyDisplayMode("euros").IsValid())
}
