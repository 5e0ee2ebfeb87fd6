package model

// PeriodType classifies a fact as covering a span of time or a single
// balance-sheet date.
type PeriodType string

const (
	PeriodDuration PeriodType = "duration"
	PeriodInstant  PeriodType = "instant"
)

// Form is a disclosure form type. Only annual and quarterly reports
// participate in reconciliation.
type Form string

const (
	FormAnnual    Form = "10-K"
	FormQuarterly Form = "10-Q"
)

// RecognizedForms lists the disclosure types eligible for
// reconciliation, in preference order (annual before quarterly).
var RecognizedForms = []Form{FormAnnual, FormQuarterly}

// FilingRecord is one disclosed numeric fact for a concept. Records
// are immutable inputs to the reconciliation engine.
type FilingRecord struct {
	Concept   Concept `json:"concept"`
	Value     float64 `json:"value"`
	HasValue  bool    `json:"has_value"` // false when the filing row carried a null
	Unit      string  `json:"unit"`
	FY        int     `json:"fy"`
	FP        string  `json:"fp"`
	Form      Form    `json:"form"`
	Filed     string  `json:"filed"` // ISO date, lexicographic order == chronological
	Accession string  `json:"accn"`
	Start     string  `json:"start,omitempty"` // absent for instant facts
	End       string  `json:"end"`
}

// PeriodType derives the record's period classification from the
// presence of a start date. Records without an end date cannot be
// classified and return ok=false; callers exclude them.
func (r FilingRecord) PeriodType() (PeriodType, bool) {
	if r.End == "" {
		return "", false
	}
	if r.Start != "" {
		return PeriodDuration, true
	}
	return PeriodInstant, true
}
