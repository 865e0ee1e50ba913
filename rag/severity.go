package rag

import (
	"github.com/shopspring/decimal"
)

// Severity grades a RED result by its shortfall percentage.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank orders severities from LOW (1) to CRITICAL (4). Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// severityBands are lower bounds, highest first. Each band is [lower, next).
var severityBands = []struct {
	lower    decimal.Decimal
	severity Severity
}{
	{decimal.NewFromInt(20), SeverityCritical},
	{decimal.NewFromInt(10), SeverityHigh},
	{decimal.NewFromInt(5), SeverityMedium},
}

// SeverityFor maps a shortfall percentage to its band:
// <5 LOW, [5,10) MEDIUM, [10,20) HIGH, >=20 CRITICAL.
func SeverityFor(shortfallPct decimal.Decimal) Severity {
	for _, b := range severityBands {
		if shortfallPct.GreaterThanOrEqual(b.lower) {
			return b.severity
		}
	}
	return SeverityLow
}
