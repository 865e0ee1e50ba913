// Package payroll holds the input records of a compliance calculation:
// the worker, the pay reference period and its itemized components.
package payroll

import (
	"github.com/shopspring/decimal"

	"github.com/warp/wage-compliance/generic"
)

// =============================================================================
// WORKER
// =============================================================================

// Worker is the subject of a calculation. Either Age or DateOfBirth should be set.
type Worker struct {
	ID                  string
	Age                 *int
	DateOfBirth         *generic.TimePoint
	IsApprentice        bool
	ApprenticeshipStart *generic.TimePoint
}

// AgeOn returns the worker's age at date. An explicit Age wins over
// DateOfBirth. ok is false when neither is known.
func (w Worker) AgeOn(date generic.TimePoint) (age int, ok bool) {
	if w.Age != nil {
		return *w.Age, true
	}
	if w.DateOfBirth != nil && !w.DateOfBirth.IsZero() {
		return generic.AgeOn(*w.DateOfBirth, date), true
	}
	return 0, false
}

// =============================================================================
// PAY PERIOD
// =============================================================================

// PayPeriod is one pay reference period for one worker.
type PayPeriod struct {
	ID         string
	WorkerID   string
	Start      generic.TimePoint
	End        generic.TimePoint
	TotalHours generic.Hours
	TotalPay   generic.Money
}

// Range returns the closed date interval of the period.
func (p PayPeriod) Range() generic.Period {
	return generic.Period{Start: p.Start, End: p.End}
}

// PayDate is the date rates and ages are resolved against.
func (p PayPeriod) PayDate() generic.TimePoint {
	return p.End
}

// =============================================================================
// COMPONENTS
// =============================================================================

// Offset is an amount the employer deducts or offsets against pay.
type Offset struct {
	Type        OffsetType
	Amount      generic.Money
	DailyRate   *decimal.Decimal
	DaysApplied *int
}

// Allowance is an amount paid on top of basic pay.
type Allowance struct {
	Type   AllowanceType
	Amount generic.Money
}
