package rag

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/wage-compliance/generic"
	"github.com/warp/wage-compliance/payroll"
	"github.com/warp/wage-compliance/prp"
	"github.com/warp/wage-compliance/rates"
)

// DefaultDeductionRatioThreshold is the share of gross pay above which
// deductions are considered excessive.
var DefaultDeductionRatioThreshold = decimal.RequireFromString("0.3")

// Config tunes the amber pre-conditions.
type Config struct {
	DeductionRatioThreshold decimal.Decimal
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{DeductionRatioThreshold: DefaultDeductionRatioThreshold}
}

// =============================================================================
// CLASSIFIER
// =============================================================================

// Classifier is stateless apart from its configuration; it is safe for
// concurrent use.
type Classifier struct {
	source rates.Source
	cfg    Config
}

func NewClassifier(source rates.Source, cfg Config) *Classifier {
	return &Classifier{source: source, cfg: cfg}
}

// Config returns the thresholds in use.
func (c *Classifier) Config() Config {
	return c.cfg
}

// Classify classifies against the source's current snapshot.
func (c *Classifier) Classify(worker payroll.Worker, period payroll.PayPeriod, agg *prp.Aggregation) Result {
	var snap *rates.Snapshot
	if c.source != nil {
		snap = c.source.Current()
	}
	return c.ClassifyAt(snap, worker, period, agg)
}

// ClassifyAt classifies against an explicit snapshot. A panic during
// classification is returned as a COMPUTATION_ERROR result.
func (c *Classifier) ClassifyAt(snap *rates.Snapshot, worker payroll.Worker, period payroll.PayPeriod, agg *prp.Aggregation) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Failed(&generic.ComputationError{Op: "classify", Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	if agg == nil {
		return Failed(&generic.ComputationError{Op: "classify", Err: errors.New("missing aggregation")})
	}

	res = Result{
		Success: true,
		Flags:   []string{},
	}
	if agg.EffectiveHourlyRate != nil {
		res.EffectiveHourlyRate = generic.DecimalPtr(generic.RoundRate(*agg.EffectiveHourlyRate))
	}

	// Step 1: amber pre-conditions
	if flags := c.amberFlags(worker, period, agg); len(flags) > 0 {
		res.RAGStatus = StatusAmber
		res.Flags = flags
		res.Reason = flagReasons[flags[0]]
		if len(flags) > 1 {
			res.Reason = fmt.Sprintf("%s (+%d more)", res.Reason, len(flags)-1)
		}
		return res
	}

	// Step 2: rate comparison
	if snap == nil {
		return c.failed(res, &generic.ConfigurationError{Source: "rates", Err: errors.New("no rate snapshot loaded")})
	}
	payDate := period.PayDate()
	age, _ := worker.AgeOn(payDate)
	lookup, err := snap.RequiredRate(age, payDate, worker.IsApprentice, worker.ApprenticeshipStart)
	if err != nil {
		return c.failed(res, err)
	}

	res.RequiredHourlyRate = generic.DecimalPtr(lookup.HourlyRate)
	res.RateCategory = lookup.Category
	res.RateReason = lookup.Reason
	res.RateVersion = snap.Version

	effective := *agg.EffectiveHourlyRate
	required := lookup.HourlyRate
	res.RateComparison.Difference = generic.DecimalPtr(generic.RoundRate(effective.Sub(required)))

	if effective.GreaterThanOrEqual(required) {
		res.RAGStatus = StatusGreen
		res.Reason = fmt.Sprintf("Effective rate %s meets or exceeds required rate %s (%s)",
			effective.StringFixed(2), required.StringFixed(2), lookup.Category)
		res.RateComparison.PercentageOfRequired = generic.DecimalPtr(generic.RoundPercent(generic.Percent(effective, required)))
		return res
	}

	shortfall := generic.Percent(required.Sub(effective), required)
	severity := SeverityFor(shortfall)
	res.RAGStatus = StatusRed
	res.Severity = &severity
	res.Reason = fmt.Sprintf("Effective rate %s is below required rate %s (%s)",
		effective.StringFixed(2), required.StringFixed(2), lookup.Category)
	res.RateComparison.ShortfallPercentage = generic.DecimalPtr(generic.RoundPercent(shortfall))
	return res
}

// amberFlags returns every amber pre-condition in detection order.
func (c *Classifier) amberFlags(worker payroll.Worker, period payroll.PayPeriod, agg *prp.Aggregation) []string {
	var flags []string

	if agg.ZeroHours() {
		if agg.TotalPay.IsPositive() {
			flags = append(flags, FlagZeroHoursWithPay)
		} else {
			flags = append(flags, FlagNoHoursRecorded)
		}
	}
	if _, ok := worker.AgeOn(period.PayDate()); !ok {
		flags = append(flags, FlagMissingWorkerAge)
	}
	if agg.EffectiveHourlyRate != nil && agg.EffectiveHourlyRate.IsNegative() {
		flags = append(flags, FlagNegativeEffectiveRate)
	}
	if agg.DeductionRatio.GreaterThan(c.cfg.DeductionRatioThreshold) {
		flags = append(flags, FlagExcessiveDeductions)
	}
	if len(agg.OffsetViolations) > 0 {
		flags = append(flags, FlagAccommodationOffsetViolations)
	}
	return flags
}

// failed keeps the effective rate on the failure result so callers can
// still see what was computed.
func (c *Classifier) failed(partial Result, err error) Result {
	res := Failed(err)
	res.EffectiveHourlyRate = partial.EffectiveHourlyRate
	return res
}

// Failed builds the fail-safe result for an error that prevented
// classification.
func Failed(err error) Result {
	return Result{
		Success:   false,
		ErrorCode: generic.ErrorCode(err),
		RAGStatus: StatusAmber,
		Reason:    err.Error(),
		Flags:     []string{},
	}
}
