package model

// SourceClass is the provenance of a canonical fact's value.
type SourceClass string

const (
	SourcePrimary     SourceClass = "primary"
	SourceAlternative SourceClass = "alternative"
	SourceCarried     SourceClass = "carried"
	SourceDerived     SourceClass = "derived"
)

// CanonicalFact is the reconciled value for one (entity, metric,
// fiscal year). Exactly one fact survives per fiscal year; years with
// no evidence are simply absent from the result map.
type CanonicalFact struct {
	FY       int         `json:"fy"`
	Value    float64     `json:"value"`
	HasValue bool        `json:"has_value"`
	Concept  Concept     `json:"concept"` // target or accepted substitute
	Unit     string      `json:"unit"`
	Form     Form        `json:"form,omitempty"`
	Filed    string      `json:"filed,omitempty"`
	Source   SourceClass `json:"source"`

	// CarriedFromFY is the fiscal year the value was copied from when
	// Source is "carried".
	CarriedFromFY int `json:"carried_from_fy,omitempty"`

	// Inputs lists which derivation inputs were available when Source
	// is "derived"; a derived fact with missing inputs keeps
	// HasValue=false rather than erroring.
	Inputs []string `json:"inputs,omitempty"`
}

// FactTable maps fiscal year to the reconciled fact for one metric.
type FactTable map[int]CanonicalFact

// Years returns the fiscal years present, ascending.
func (t FactTable) Years() []int {
	years := make([]int, 0, len(t))
	for fy := range t {
		years = append(years, fy)
	}
	for i := 1; i < len(years); i++ {
		for j := i; j > 0 && years[j] < years[j-1]; j-- {
			years[j], years[j-1] = years[j-1], years[j]
		}
	}
	return years
}
