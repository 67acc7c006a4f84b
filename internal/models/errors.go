// Package models defines the data structures for the Edumate platform.
package models

import (
	"errors"
	"strings"
)

// Common errors
var (
	ErrInvalidStep         = errors.New("invalid wizard step")
	ErrInvalidLoanType     = errors.New("loan type must be secured or unsecured")
	ErrInvalidLoanAmount   = errors.New("loan amount must be greater than zero")
	ErrInvalidOTPCode      = errors.New("OTP code must be 6 digits")
	ErrOTPCodeMismatch     = errors.New("incorrect verification code")
	ErrOTPExpired          = errors.New("verification code has expired")
	ErrResendNotReady      = errors.New("please wait before requesting another code")
	ErrComparisonFull      = errors.New("you can compare up to 4 loans at a time")
	ErrEmptyPhone          = errors.New("phone number cannot be empty")
	ErrSessionNotFound     = errors.New("chat session not found")
	ErrMessageNotFound     = errors.New("message not found")
	ErrProgramNotFound     = errors.New("program not found")
)

// NormalizeStudyLevel converts free-form study level input to canonical
// values used by the catalog filters.
func NormalizeStudyLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")

	levelMap := map[string]string{
		"undergraduate": "undergraduate",
		"undergrad":     "undergraduate",
		"ug":            "undergraduate",
		"bachelors":     "undergraduate",
		"bachelor":      "undergraduate",
		"graduate":      "postgraduate",
		"postgraduate":  "postgraduate",
		"postgrad":      "postgraduate",
		"pg":            "postgraduate",
		"masters":       "postgraduate",
		"master":        "postgraduate",
		"mba":           "postgraduate",
		"phd":           "doctorate",
		"doctorate":     "doctorate",
		"doctoral":      "doctorate",
	}

	if mapped, ok := levelMap[normalized]; ok {
		return mapped
	}

	// Return as-is if no mapping found
	return normalized
}

// ValidatePhone performs country-code-aware phone format validation.
// India (+91) requires exactly 10 digits starting 6-9; every other country
// accepts 7-14 digits. Validation is purely local; no network call happens
// for an invalid number.
func ValidatePhone(countryCode, phone string) PhoneValidation {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return PhoneValidation{IsValid: false, Error: "phone number cannot be empty"}
	}

	for _, r := range phone {
		if r < '0' || r > '9' {
			return PhoneValidation{IsValid: false, Error: "phone number must contain digits only"}
		}
	}

	code := strings.TrimPrefix(strings.TrimSpace(countryCode), "+")
	if code == "91" {
		if len(phone) < 10 {
			return PhoneValidation{IsValid: false, Error: "please enter more digits: Indian mobile numbers have 10 digits"}
		}
		if len(phone) > 10 {
			return PhoneValidation{IsValid: false, Error: "Indian mobile numbers must be 10 digits"}
		}
		if phone[0] < '6' || phone[0] > '9' {
			return PhoneValidation{IsValid: false, Error: "Indian mobile numbers start with 6, 7, 8 or 9"}
		}
		return PhoneValidation{IsValid: true}
	}

	if len(phone) < 7 {
		return PhoneValidation{IsValid: false, Error: "phone number is too short"}
	}
	if len(phone) > 14 {
		return PhoneValidation{IsValid: false, Error: "phone number is too long"}
	}

	return PhoneValidation{IsValid: true}
}

// ValidateOTPCode checks that a submitted verification code is 6 digits.
func ValidateOTPCode(code string) error {
	if len(code) != 6 {
		return ErrInvalidOTPCode
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return ErrInvalidOTPCode
		}
	}
	return nil
}
