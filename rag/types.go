/*
Package rag classifies a pay reference period as GREEN, AMBER or RED.

PURPOSE:
  Turns an aggregation into a compliance verdict. Every call is a fresh
  classification; nothing is remembered across periods.

CLASSIFICATION:
  1. Amber pre-conditions are collected first. Any of them forces AMBER and
     no rate comparison is made:
       zero_hours_with_pay, no_hours_recorded, missing_worker_age,
       negative_effective_rate, excessive_deductions,
       accommodation_offset_violations
  2. Otherwise the required rate is resolved from the current rate
     snapshot. effective >= required is GREEN, anything less is RED with a
     severity band on the shortfall percentage.

FAILURES:
  A lookup or validation failure yields Success=false with RAGStatus AMBER
  and an error code, so "could not determine" is never mistaken for a
  confirmed amber condition and never reported as GREEN.

SEE ALSO:
  - classifier.go: The two steps
  - severity.go: Shortfall bands
  - prp: Produces the aggregation
  - fixes: Consumes the result
*/
package rag

import (
	"github.com/shopspring/decimal"

	"github.com/warp/wage-compliance/rates"
)

// Status is the RAG colour of a result.
type Status string

const (
	StatusGreen Status = "GREEN"
	StatusAmber Status = "AMBER"
	StatusRed   Status = "RED"
)

func (s Status) Valid() bool {
	return s == StatusGreen || s == StatusAmber || s == StatusRed
}

// Amber flags, in detection order.
const (
	FlagZeroHoursWithPay              = "zero_hours_with_pay"
	FlagNoHoursRecorded               = "no_hours_recorded"
	FlagMissingWorkerAge              = "missing_worker_age"
	FlagNegativeEffectiveRate         = "negative_effective_rate"
	FlagExcessiveDeductions           = "excessive_deductions"
	FlagAccommodationOffsetViolations = "accommodation_offset_violations"
)

var flagReasons = map[string]string{
	FlagZeroHoursWithPay:              "Zero hours recorded with non-zero pay",
	FlagNoHoursRecorded:               "No hours or pay recorded for the period",
	FlagMissingWorkerAge:              "Worker age could not be determined",
	FlagNegativeEffectiveRate:         "Deductions exceed pay, effective hourly rate is negative",
	FlagExcessiveDeductions:           "Deductions exceed the configured share of pay",
	FlagAccommodationOffsetViolations: "Offsets charged above their statutory daily limit",
}

// RateComparison holds the figures behind a GREEN or RED verdict.
type RateComparison struct {
	// Difference is effective minus required; negative on a shortfall.
	Difference           *decimal.Decimal `json:"difference,omitempty"`
	PercentageOfRequired *decimal.Decimal `json:"percentage_of_required,omitempty"`
	ShortfallPercentage  *decimal.Decimal `json:"shortfall_percentage,omitempty"`
}

// Result is the outcome of one classification. It carries no timestamps or
// identifiers, so identical inputs produce identical results.
type Result struct {
	Success   bool   `json:"success"`
	ErrorCode string `json:"error_code,omitempty"`

	EffectiveHourlyRate *decimal.Decimal   `json:"effective_hourly_rate"`
	RequiredHourlyRate  *decimal.Decimal   `json:"required_hourly_rate"`
	RateCategory        rates.Category     `json:"rate_category,omitempty"`
	RateReason          rates.LookupReason `json:"rate_reason,omitempty"`
	RateVersion         string             `json:"rate_version,omitempty"`

	RAGStatus Status    `json:"rag_status"`
	Severity  *Severity `json:"severity"`
	Reason    string    `json:"reason"`
	Flags     []string  `json:"flags"`

	RateComparison RateComparison `json:"rate_comparison"`
}

// HasFlag reports whether flag was raised.
func (r Result) HasFlag(flag string) bool {
	for _, f := range r.Flags {
		if f == flag {
			return true
		}
	}
	return false
}
