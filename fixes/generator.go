package fixes

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/wage-compliance/generic"
	"github.com/warp/wage-compliance/payroll"
	"github.com/warp/wage-compliance/prp"
	"github.com/warp/wage-compliance/rag"
)

// Config holds the thresholds the generator reacts to.
type Config struct {
	// NegligibleShortfallPerHour suppresses arrears below this per-hour gap.
	NegligibleShortfallPerHour decimal.Decimal
	// UrgentShortfallPercent triggers URGENT_REVIEW at or above this shortfall.
	UrgentShortfallPercent decimal.Decimal
	// WeeklyHoursCeiling triggers HOURS_REVIEW above this weekly equivalent.
	WeeklyHoursCeiling decimal.Decimal
	// LowMarginPerHour triggers LOW_MARGIN below this cushion.
	LowMarginPerHour decimal.Decimal
}

func DefaultConfig() Config {
	return Config{
		NegligibleShortfallPerHour: decimal.RequireFromString("0.01"),
		UrgentShortfallPercent:     decimal.NewFromInt(20),
		WeeklyHoursCeiling:         decimal.NewFromInt(48),
		LowMarginPerHour:           decimal.RequireFromString("0.50"),
	}
}

var daysPerWeek = decimal.NewFromInt(7)

// Generator is stateless and safe for concurrent use.
type Generator struct {
	cfg Config
}

func NewGenerator(cfg Config) *Generator {
	return &Generator{cfg: cfg}
}

// Generate returns the suggestions for one classified period. agg may be nil
// when aggregation failed.
func (g *Generator) Generate(worker payroll.Worker, period payroll.PayPeriod, result rag.Result, agg *prp.Aggregation) Set {
	if !result.Success {
		return newSet([]Suggestion{manualReview(result)})
	}
	switch result.RAGStatus {
	case rag.StatusRed:
		return newSet(g.red(period, result, agg))
	case rag.StatusGreen:
		return newSet(g.green(result, agg))
	default:
		return newSet(g.amber(worker, result, agg))
	}
}

// =============================================================================
// RED
// =============================================================================

func (g *Generator) red(period payroll.PayPeriod, result rag.Result, agg *prp.Aggregation) []Suggestion {
	required, effective, ok := rates(result, agg)
	if !ok {
		return []Suggestion{manualReview(result)}
	}
	hours := period.TotalHours
	perHour := required.Sub(effective)

	var out []Suggestion

	if perHour.GreaterThanOrEqual(g.cfg.NegligibleShortfallPerHour) {
		total := generic.RoundMoney(perHour.Mul(hours))
		out = append(out, Suggestion{
			Type:           TypeArrearsTopUp,
			Severity:       arrearsSeverity(result.Severity),
			ActionRequired: true,
			Message: fmt.Sprintf("Pay arrears of £%s: %s hours at £%s/hour below the required rate",
				total.StringFixed(2), hours.String(), perHour.StringFixed(2)),
			Details: map[string]string{
				"total_shortfall":    total.StringFixed(2),
				"shortfall_per_hour": perHour.StringFixed(4),
				"hours_worked":       hours.String(),
				"required_rate":      required.StringFixed(2),
				"effective_rate":     effective.StringFixed(2),
			},
		})
	}

	// Gate on the unrounded shortfall so 19.996% stays below a 20% threshold.
	if shortfall := generic.Percent(perHour, required); shortfall.GreaterThanOrEqual(g.cfg.UrgentShortfallPercent) {
		pct := generic.RoundPercent(shortfall)
		out = append(out, Suggestion{
			Type:           TypeUrgentReview,
			Severity:       SeverityCritical,
			ActionRequired: true,
			Message:        fmt.Sprintf("Shortfall of %s%% of the required rate needs immediate review", pct.StringFixed(2)),
			Details: map[string]string{
				"shortfall_percentage": pct.StringFixed(2),
				"threshold_percentage": g.cfg.UrgentShortfallPercent.String(),
			},
		})
	}

	if weekly, ok := weeklyHours(period); ok && weekly.GreaterThan(g.cfg.WeeklyHoursCeiling) {
		out = append(out, Suggestion{
			Type:           TypeHoursReview,
			Severity:       SeverityMedium,
			ActionRequired: true,
			Message: fmt.Sprintf("%s hours per week exceeds the %s hour Working Time Regulations limit; check recorded hours and opt-out status",
				weekly.StringFixed(1), g.cfg.WeeklyHoursCeiling.String()),
			Details: map[string]string{
				"weekly_hours":  weekly.StringFixed(2),
				"hours_ceiling": g.cfg.WeeklyHoursCeiling.String(),
			},
		})
	}

	out = append(out, Suggestion{
		Type:     TypeRateBreakdown,
		Severity: SeverityInfo,
		Message: fmt.Sprintf("Effective rate £%s against required £%s (%s)",
			effective.StringFixed(2), required.StringFixed(2), result.RateCategory),
		Details: breakdownDetails(result, agg, required, effective),
	})
	return out
}

func arrearsSeverity(s *rag.Severity) Severity {
	if s == nil {
		return SeverityHigh
	}
	switch *s {
	case rag.SeverityLow:
		return SeverityLow
	case rag.SeverityMedium:
		return SeverityMedium
	case rag.SeverityCritical:
		return SeverityCritical
	}
	return SeverityHigh
}

// weeklyHours scales the period's hours to a 7-day equivalent.
func weeklyHours(period payroll.PayPeriod) (decimal.Decimal, bool) {
	days := period.Range().Days()
	if days <= 0 {
		return decimal.Zero, false
	}
	weeks := decimal.NewFromInt(int64(days)).Div(daysPerWeek)
	return period.TotalHours.Div(weeks), true
}

func breakdownDetails(result rag.Result, agg *prp.Aggregation, required, effective decimal.Decimal) map[string]string {
	d := map[string]string{
		"required_rate":  required.StringFixed(2),
		"effective_rate": effective.StringFixed(2),
		"rate_category":  string(result.RateCategory),
	}
	if result.RateReason != "" {
		d["rate_reason"] = string(result.RateReason)
	}
	if agg != nil {
		d["total_pay"] = agg.TotalPay.StringFixed(2)
		d["eligible_pay"] = agg.EligiblePay.StringFixed(2)
		d["deductions"] = agg.Deductions.StringFixed(2)
		d["included_allowances"] = agg.IncludedAllowances.StringFixed(2)
		d["excluded_allowances"] = agg.ExcludedAllowances.StringFixed(2)
		d["offset_excess"] = agg.OffsetExcess.StringFixed(2)
	}
	return d
}

// =============================================================================
// GREEN
// =============================================================================

func (g *Generator) green(result rag.Result, agg *prp.Aggregation) []Suggestion {
	required, effective, ok := rates(result, agg)
	if !ok {
		return []Suggestion{manualReview(result)}
	}
	cushion := effective.Sub(required)
	cushionPct := generic.RoundPercent(generic.Percent(cushion, required))

	out := []Suggestion{{
		Type:     TypeComplianceConfirmed,
		Severity: SeverityInfo,
		Message: fmt.Sprintf("Compliant: £%s/hour (%s%%) above the required £%s",
			cushion.StringFixed(2), cushionPct.StringFixed(2), required.StringFixed(2)),
		Details: map[string]string{
			"cushion_per_hour":   cushion.StringFixed(4),
			"cushion_percentage": cushionPct.StringFixed(2),
			"required_rate":      required.StringFixed(2),
			"effective_rate":     effective.StringFixed(2),
		},
	}}

	if cushion.LessThan(g.cfg.LowMarginPerHour) {
		out = append(out, Suggestion{
			Type:     TypeLowMargin,
			Severity: SeverityLow,
			Message: fmt.Sprintf("Margin of £%s/hour is below £%s; the next rate increase may cause a breach",
				cushion.StringFixed(2), g.cfg.LowMarginPerHour.StringFixed(2)),
			Details: map[string]string{
				"cushion_per_hour": cushion.StringFixed(4),
				"margin_threshold": g.cfg.LowMarginPerHour.StringFixed(2),
			},
		})
	}
	return out
}

// =============================================================================
// AMBER
// =============================================================================

func (g *Generator) amber(worker payroll.Worker, result rag.Result, agg *prp.Aggregation) []Suggestion {
	if len(result.Flags) == 0 {
		return []Suggestion{manualReview(result)}
	}
	out := make([]Suggestion, 0, len(result.Flags))
	for _, flag := range result.Flags {
		out = append(out, flagSuggestion(flag, worker, result, agg))
	}
	return out
}

func flagSuggestion(flag string, worker payroll.Worker, result rag.Result, agg *prp.Aggregation) Suggestion {
	switch flag {
	case rag.FlagZeroHoursWithPay:
		return Suggestion{
			Type:           TypeDataClarification,
			Severity:       SeverityMedium,
			ActionRequired: true,
			Message:        "Pay was recorded with zero hours; confirm the hours worked in the period",
			Details:        payDetails(agg),
		}
	case rag.FlagNoHoursRecorded:
		return Suggestion{
			Type:           TypeMissingData,
			Severity:       SeverityMedium,
			ActionRequired: true,
			Message:        "No hours or pay recorded; confirm the worker was active in the period",
		}
	case rag.FlagMissingWorkerAge:
		d := map[string]string{}
		if worker.ID != "" {
			d["worker_id"] = worker.ID
		}
		return Suggestion{
			Type:           TypeMissingData,
			Severity:       SeverityHigh,
			ActionRequired: true,
			Message:        "Worker age or date of birth is missing; the required rate cannot be determined",
			Details:        d,
		}
	case rag.FlagNegativeEffectiveRate:
		return Suggestion{
			Type:           TypeDataError,
			Severity:       SeverityHigh,
			ActionRequired: true,
			Message:        "Deductions exceed pay; check the deduction amounts for data entry errors",
			Details:        payDetails(agg),
		}
	case rag.FlagExcessiveDeductions:
		d := payDetails(agg)
		if agg != nil {
			d["deduction_ratio"] = generic.RoundPercent(agg.DeductionRatio.Mul(decimal.NewFromInt(100))).StringFixed(2)
		}
		return Suggestion{
			Type:           TypeDeductionReview,
			Severity:       SeverityHigh,
			ActionRequired: true,
			Message:        "Deductions take an unusually large share of pay; check each is lawful and for the worker's benefit",
			Details:        d,
		}
	case rag.FlagAccommodationOffsetViolations:
		return accommodationReview(agg)
	}
	return manualReviewFlag(flag, result)
}

func accommodationReview(agg *prp.Aggregation) Suggestion {
	s := Suggestion{
		Type:           TypeAccommodationReview,
		Severity:       SeverityHigh,
		ActionRequired: true,
		Message:        "Offsets exceed the statutory daily limit; refund the excess or reduce the charge",
		Details:        map[string]string{},
	}
	if agg == nil {
		return s
	}
	s.Details["total_excess"] = agg.OffsetExcess.StringFixed(2)
	for _, v := range agg.OffsetViolations {
		s.Details[string(v.Type)+"_charged"] = v.Charged.StringFixed(2)
		s.Details[string(v.Type)+"_cap"] = v.Cap.StringFixed(2)
		s.Details[string(v.Type)+"_excess"] = v.Excess.StringFixed(2)
		s.Details[string(v.Type)+"_days"] = fmt.Sprintf("%d", v.Days)
	}
	s.Message = fmt.Sprintf("Offsets exceed the statutory daily limit by £%s; refund the excess or reduce the charge",
		agg.OffsetExcess.StringFixed(2))
	return s
}

func payDetails(agg *prp.Aggregation) map[string]string {
	d := map[string]string{}
	if agg == nil {
		return d
	}
	d["total_pay"] = agg.TotalPay.StringFixed(2)
	d["total_hours"] = agg.TotalHours.String()
	d["deductions"] = agg.Deductions.StringFixed(2)
	return d
}

// =============================================================================
// FALLBACKS
// =============================================================================

func manualReview(result rag.Result) Suggestion {
	d := map[string]string{}
	if result.ErrorCode != "" {
		d["error_code"] = result.ErrorCode
	}
	return Suggestion{
		Type:           TypeManualReview,
		Severity:       SeverityHigh,
		ActionRequired: true,
		Message:        "Compliance could not be determined: " + result.Reason,
		Details:        d,
	}
}

func manualReviewFlag(flag string, result rag.Result) Suggestion {
	return Suggestion{
		Type:           TypeManualReview,
		Severity:       SeverityMedium,
		ActionRequired: true,
		Message:        result.Reason,
		Details:        map[string]string{"flag": flag},
	}
}

// rates prefers the unrounded aggregation rate over the rounded one on the
// result.
func rates(result rag.Result, agg *prp.Aggregation) (required, effective decimal.Decimal, ok bool) {
	if result.RequiredHourlyRate == nil {
		return decimal.Zero, decimal.Zero, false
	}
	switch {
	case agg != nil && agg.EffectiveHourlyRate != nil:
		effective = *agg.EffectiveHourlyRate
	case result.EffectiveHourlyRate != nil:
		effective = *result.EffectiveHourlyRate
	default:
		return decimal.Zero, decimal.Zero, false
	}
	return *result.RequiredHourlyRate, effective, true
}
