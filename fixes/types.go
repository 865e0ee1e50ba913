/*
Package fixes turns a classification into remediation suggestions.

PURPOSE:
  Tells the payroll team what to do about a result: pay arrears, escalate,
  clarify data, review deductions, or simply record that the period passed.

EMISSION ORDER:
  RED:   ARREARS_TOP_UP, URGENT_REVIEW, HOURS_REVIEW, RATE_BREAKDOWN
  AMBER: one suggestion per flag, MANUAL_REVIEW for anything unknown
  GREEN: COMPLIANCE_CONFIRMED, LOW_MARGIN

  The primary suggestion is the first one that requires action, or the
  first suggestion when none does.

SEE ALSO:
  - generator.go: The rules above
  - rag: Produces the result being explained
*/
package fixes

// Type identifies a kind of suggestion.
type Type string

const (
	TypeArrearsTopUp        Type = "ARREARS_TOP_UP"
	TypeUrgentReview        Type = "URGENT_REVIEW"
	TypeHoursReview         Type = "HOURS_REVIEW"
	TypeRateBreakdown       Type = "RATE_BREAKDOWN"
	TypeDataClarification   Type = "DATA_CLARIFICATION"
	TypeMissingData         Type = "MISSING_DATA"
	TypeDataError           Type = "DATA_ERROR"
	TypeDeductionReview     Type = "DEDUCTION_REVIEW"
	TypeAccommodationReview Type = "ACCOMMODATION_REVIEW"
	TypeManualReview        Type = "MANUAL_REVIEW"
	TypeComplianceConfirmed Type = "COMPLIANCE_CONFIRMED"
	TypeLowMargin           Type = "LOW_MARGIN"
)

// Severity grades how urgently a suggestion should be acted on.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Suggestion is one remediation step. Details values are preformatted
// strings so the output is stable across encoders.
type Suggestion struct {
	Type           Type              `json:"type"`
	Severity       Severity          `json:"severity"`
	Message        string            `json:"message"`
	ActionRequired bool              `json:"action_required"`
	Details        map[string]string `json:"details,omitempty"`
}

// Set is the full output of a generation.
type Set struct {
	Suggestions []Suggestion `json:"suggestions"`
	Primary     *Suggestion  `json:"primary_suggestion"`
}

// Types returns the suggestion types in emission order.
func (s Set) Types() []Type {
	out := make([]Type, 0, len(s.Suggestions))
	for _, sg := range s.Suggestions {
		out = append(out, sg.Type)
	}
	return out
}

// Find returns the first suggestion of type t.
func (s Set) Find(t Type) (Suggestion, bool) {
	for _, sg := range s.Suggestions {
		if sg.Type == t {
			return sg, true
		}
	}
	return Suggestion{}, false
}

func newSet(suggestions []Suggestion) Set {
	set := Set{Suggestions: suggestions}
	for i := range set.Suggestions {
		if set.Suggestions[i].ActionRequired {
			set.Primary = &set.Suggestions[i]
			return set
		}
	}
	if len(set.Suggestions) > 0 {
		set.Primary = &set.Suggestions[0]
	}
	return set
}
