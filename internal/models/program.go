// Package models defines the data structures for the Edumate platform.
package models

// Program represents a university program with its cost breakdown.
type Program struct {
	ID             string  `json:"id" db:"id"`
	UniversityName string  `json:"university_name" db:"university_name"`
	Name           string  `json:"name" db:"name"`
	StudyLevel     string  `json:"study_level" db:"study_level"`
	TuitionFee     float64 `json:"tuition_fee" db:"tuition_fee"`
	CostOfLiving   float64 `json:"cost_of_living" db:"cost_of_living"`
	Currency       string  `json:"currency" db:"currency"`
	DurationMonths int     `json:"duration_months" db:"duration_months"`
}

// TotalCost is the full cost of attendance for the program.
func (p *Program) TotalCost() float64 {
	return p.TuitionFee + p.CostOfLiving
}

// UniversitySuggestion is one autocomplete entry for a university query.
type UniversitySuggestion struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}
