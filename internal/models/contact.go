// Package models defines the data structures for the Edumate platform.
package models

import (
	"time"
)

// Contact represents a borrower contact record. Favourite and Interested
// hold loan product ids the contact has marked from the aggregator.
type Contact struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Email      string    `json:"email" db:"email"`
	Phone      string    `json:"phone" db:"phone"`
	Verified   bool      `json:"verified" db:"verified"`
	Favourite  []string  `json:"favourite" db:"favourite"`
	Interested []string  `json:"interested" db:"interested"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// ContactUpsert represents the data needed to create or refresh a contact.
// Phone is the conflict key; the wizard fires this after OTP verification.
type ContactUpsert struct {
	Name           string  `json:"name,omitempty"`
	Email          string  `json:"email,omitempty"`
	Phone          string  `json:"phone" validate:"required"`
	StudyLevel     string  `json:"study_level,omitempty"`
	UniversityName string  `json:"university_name,omitempty"`
	LoanAmount     float64 `json:"loan_amount,omitempty"`
	LoanType       string  `json:"loan_type,omitempty"`
	Verified       bool    `json:"verified"`
}

// IsAuthenticated reports whether the contact can toggle favourites
// directly; without an id and email the frontend collects identity first.
func (c *Contact) IsAuthenticated() bool {
	return c != nil && c.ID != "" && c.Email != ""
}
