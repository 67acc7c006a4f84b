// Package catalog defines the loan discovery descriptor: search, filters,
// sort and pagination for the aggregator listing.
package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FilterInput carries the UI-layer filter fields. Zero values mean "not
// set" and are dropped when translated to query parameters.
type FilterInput struct {
	IntakeMonth     string  `json:"intake_month,omitempty"`
	IntakeYear      int     `json:"intake_year,omitempty"`
	StudyLevel      string  `json:"study_level,omitempty"`
	SchoolName      string  `json:"school_name,omitempty"`
	ProgramName     string  `json:"program_name,omitempty"`
	LoanAmountMin   float64 `json:"loan_amount_min,omitempty"`
	LoanAmountMax   float64 `json:"loan_amount_max,omitempty"`
	TotalTuitionFee float64 `json:"total_tuition_fee,omitempty"`
	CostOfLiving    float64 `json:"cost_of_living,omitempty"`
}

// ApplyFilters maps UI-layer field names to API field names one-to-one.
// A key is omitted entirely when its UI value is falsy; no empty-string or
// zero filters are ever emitted, and no keys are invented.
func ApplyFilters(in FilterInput) map[string]string {
	out := make(map[string]string)

	if in.IntakeMonth != "" {
		out["intake_month"] = in.IntakeMonth
	}
	if in.IntakeYear != 0 {
		out["intake_year"] = strconv.Itoa(in.IntakeYear)
	}
	if in.StudyLevel != "" {
		out["study_level"] = in.StudyLevel
	}
	if in.SchoolName != "" {
		out["school_name"] = in.SchoolName
	}
	if in.ProgramName != "" {
		out["program_name"] = in.ProgramName
	}
	if in.LoanAmountMin != 0 {
		out["loan_amount_min"] = formatAmount(in.LoanAmountMin)
	}
	if in.LoanAmountMax != 0 {
		out["loan_amount_max"] = formatAmount(in.LoanAmountMax)
	}
	if in.TotalTuitionFee != 0 {
		out["total_tuition_fee"] = formatAmount(in.TotalTuitionFee)
	}
	if in.CostOfLiving != 0 {
		out["cost_of_living"] = formatAmount(in.CostOfLiving)
	}

	return out
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// SortDir is the sort direction.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// Sort describes the requested ordering of the listing.
type Sort struct {
	Key string  `json:"sort_key"`
	Dir SortDir `json:"sort_dir"`
}

// sortKeys maps allowed sort keys to catalog columns. Anything outside
// this list falls back to the default ordering.
var sortKeys = map[string]string{
	"interest_rate":   "interest_rate_min",
	"max_loan_amount": "max_loan_amount_secured",
	"processing_fee":  "processing_fee_percent",
	"rating":          "satisfaction_rating",
	"lender_name":     "lender_name",
}

// Column returns the catalog column for the sort key, or "" if the key is
// not allowed.
func (s Sort) Column() string {
	return sortKeys[s.Key]
}

// Direction returns a normalized SQL direction, defaulting to ascending.
func (s Sort) Direction() string {
	if s.Dir == SortDesc {
		return "DESC"
	}
	return "ASC"
}

// Pagination carries the page window and, on responses, the totals.
type Pagination struct {
	Page       int `json:"page"`
	Size       int `json:"size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Normalize clamps the window to sane defaults.
func (p *Pagination) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size < 1 {
		p.Size = 10
	}
	if p.Size > 100 {
		p.Size = 100
	}
}

// Offset returns the LIMIT/OFFSET offset for the current page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Size
}

// SetTotal records the result total and derives the page count.
func (p *Pagination) SetTotal(total int) {
	p.Total = total
	p.TotalPages = (total + p.Size - 1) / p.Size
}

// Descriptor bundles everything that drives a listing fetch. Changing any
// part of it changes its identity and triggers a re-fetch.
type Descriptor struct {
	Search            string
	Filters           FilterInput
	Sort              Sort
	Pagination        Pagination
	ShowFavoritesOnly bool
}

// Identity serializes the descriptor into a stable string so callers can
// detect "something changed" cheaply.
func (d Descriptor) Identity() string {
	params := ApplyFilters(d.Filters)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "search=%s", d.Search)
	for _, k := range keys {
		fmt.Fprintf(&b, "&%s=%s", k, params[k])
	}
	fmt.Fprintf(&b, "&sort=%s:%s", d.Sort.Key, d.Sort.Dir)
	fmt.Fprintf(&b, "&page=%d&size=%d", d.Pagination.Page, d.Pagination.Size)
	fmt.Fprintf(&b, "&favorites=%t", d.ShowFavoritesOnly)
	return b.String()
}
