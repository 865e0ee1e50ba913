/*
Package factory converts calculation request JSON into domain records.

PURPOSE:
  The HTTP API and the CLI both accept calculation requests as JSON. The
  factory is the one place that JSON becomes a compliance.Request, so
  boundary validation (dates, numbers, component labels) happens once.

JSON SCHEMA:
  {
    "worker": {
      "id": "emp-001",
      "age": 25,                          // or "date_of_birth": "1999-05-01"
      "is_apprentice": false,
      "apprenticeship_start": "2024-01-15"
    },
    "pay_period": {
      "id": "2024-w23",
      "start": "2024-06-03",
      "end": "2024-06-09",
      "total_hours": 40,
      "total_pay": "400.00"               // numbers or strings
    },
    "offsets": [
      {"type": "accommodation", "amount": 60, "daily_rate": 12, "days_applied": 5}
    ],
    "allowances": [
      {"type": "tips", "amount": 35}
    ]
  }

VALIDATION:
  - Malformed JSON, bad dates and non-numeric amounts are rejected
  - Negative hours, pay and component amounts are rejected, never clamped
  - Component labels are normalized ("shiftPremium" == "shift_premium")
  - Every failure is a *generic.ValidationError naming the field

USAGE:
  f := factory.NewRequestFactory()
  req, err := f.ParseRequest(body)
  resp := engine.Check(req)

SEE ALSO:
  - compliance/engine.go: Consumes the request
  - payroll/components.go: Label normalization
*/
package factory

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/warp/wage-compliance/compliance"
	"github.com/warp/wage-compliance/generic"
	"github.com/warp/wage-compliance/payroll"
	"github.com/warp/wage-compliance/rates"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RequestJSON is the JSON representation of a calculation request.
type RequestJSON struct {
	Worker     WorkerJSON      `json:"worker"`
	PayPeriod  PayPeriodJSON   `json:"pay_period"`
	Offsets    []OffsetJSON    `json:"offsets,omitempty"`
	Allowances []AllowanceJSON `json:"allowances,omitempty"`
}

// WorkerJSON represents the worker. Age wins over DateOfBirth when both are set.
type WorkerJSON struct {
	ID                  string `json:"id,omitempty"`
	Age                 *int   `json:"age,omitempty"`
	DateOfBirth         string `json:"date_of_birth,omitempty"`
	IsApprentice        bool   `json:"is_apprentice,omitempty"`
	ApprenticeshipStart string `json:"apprenticeship_start,omitempty"`
}

// PayPeriodJSON represents one pay reference period.
type PayPeriodJSON struct {
	ID         string           `json:"id,omitempty"`
	Start      string           `json:"start"`
	End        string           `json:"end"`
	TotalHours *decimal.Decimal `json:"total_hours"`
	TotalPay   *decimal.Decimal `json:"total_pay"`
}

// OffsetJSON represents a deduction or benefit-in-kind offset.
type OffsetJSON struct {
	Type        string           `json:"type"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	DailyRate   *decimal.Decimal `json:"daily_rate,omitempty"`
	DaysApplied *int             `json:"days_applied,omitempty"`
}

// AllowanceJSON represents a payment on top of basic pay.
type AllowanceJSON struct {
	Type   string           `json:"type"`
	Amount *decimal.Decimal `json:"amount"`
}

// BatchJSON wraps several requests.
type BatchJSON struct {
	Requests []RequestJSON `json:"requests"`
}

// =============================================================================
// REQUEST FACTORY
// =============================================================================

// RequestFactory converts JSON requests to compliance.Request values.
type RequestFactory struct{}

func NewRequestFactory() *RequestFactory {
	return &RequestFactory{}
}

// ParseRequest decodes and validates one request.
func (f *RequestFactory) ParseRequest(data []byte) (compliance.Request, error) {
	var rj RequestJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return compliance.Request{}, generic.NewValidationError("body", nil, fmt.Sprintf("malformed JSON: %v", err))
	}
	return f.FromJSON(rj)
}

// ParseBatch decodes and validates a batch. The first invalid request fails
// the whole batch; its field is prefixed with its index.
func (f *RequestFactory) ParseBatch(data []byte) ([]compliance.Request, error) {
	var bj BatchJSON
	if err := json.Unmarshal(data, &bj); err != nil {
		return nil, generic.NewValidationError("body", nil, fmt.Sprintf("malformed JSON: %v", err))
	}
	if len(bj.Requests) == 0 {
		return nil, generic.NewValidationError("requests", nil, "at least one request is required")
	}
	out := make([]compliance.Request, 0, len(bj.Requests))
	for i, rj := range bj.Requests {
		req, err := f.FromJSON(rj)
		if err != nil {
			return nil, prefixField(err, fmt.Sprintf("requests[%d].", i))
		}
		out = append(out, req)
	}
	return out, nil
}

// FromJSON converts and validates a RequestJSON.
func (f *RequestFactory) FromJSON(rj RequestJSON) (compliance.Request, error) {
	worker, err := parseWorker(rj.Worker)
	if err != nil {
		return compliance.Request{}, err
	}
	period, err := parsePayPeriod(rj.PayPeriod, worker.ID)
	if err != nil {
		return compliance.Request{}, err
	}

	req := compliance.Request{Worker: worker, Period: period}

	for i, oj := range rj.Offsets {
		off, err := parseOffset(oj, fmt.Sprintf("offsets[%d]", i))
		if err != nil {
			return compliance.Request{}, err
		}
		req.Offsets = append(req.Offsets, off)
	}
	for i, aj := range rj.Allowances {
		al, err := parseAllowance(aj, fmt.Sprintf("allowances[%d]", i))
		if err != nil {
			return compliance.Request{}, err
		}
		req.Allowances = append(req.Allowances, al)
	}
	return req, nil
}

// ToJSON converts a request back to its JSON form.
func (f *RequestFactory) ToJSON(req compliance.Request) RequestJSON {
	rj := RequestJSON{
		Worker: WorkerJSON{
			ID:           req.Worker.ID,
			Age:          req.Worker.Age,
			IsApprentice: req.Worker.IsApprentice,
		},
		PayPeriod: PayPeriodJSON{
			ID:         req.Period.ID,
			Start:      req.Period.Start.String(),
			End:        req.Period.End.String(),
			TotalHours: generic.DecimalPtr(req.Period.TotalHours),
			TotalPay:   generic.DecimalPtr(req.Period.TotalPay),
		},
	}
	if req.Worker.DateOfBirth != nil {
		rj.Worker.DateOfBirth = req.Worker.DateOfBirth.String()
	}
	if req.Worker.ApprenticeshipStart != nil {
		rj.Worker.ApprenticeshipStart = req.Worker.ApprenticeshipStart.String()
	}
	for _, off := range req.Offsets {
		rj.Offsets = append(rj.Offsets, OffsetJSON{
			Type:        string(off.Type),
			Amount:      generic.DecimalPtr(off.Amount),
			DailyRate:   off.DailyRate,
			DaysApplied: off.DaysApplied,
		})
	}
	for _, al := range req.Allowances {
		rj.Allowances = append(rj.Allowances, AllowanceJSON{
			Type:   string(al.Type),
			Amount: generic.DecimalPtr(al.Amount),
		})
	}
	return rj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseWorker(wj WorkerJSON) (payroll.Worker, error) {
	w := payroll.Worker{
		ID:           wj.ID,
		Age:          wj.Age,
		IsApprentice: wj.IsApprentice,
	}
	if wj.Age != nil && (*wj.Age < 0 || *wj.Age > rates.MaxAge) {
		return w, generic.NewValidationError("worker.age", *wj.Age, fmt.Sprintf("must be between 0 and %d", rates.MaxAge))
	}
	var err error
	if w.DateOfBirth, err = optionalDate(wj.DateOfBirth, "worker.date_of_birth"); err != nil {
		return w, err
	}
	if w.ApprenticeshipStart, err = optionalDate(wj.ApprenticeshipStart, "worker.apprenticeship_start"); err != nil {
		return w, err
	}
	return w, nil
}

func parsePayPeriod(pj PayPeriodJSON, workerID string) (payroll.PayPeriod, error) {
	p := payroll.PayPeriod{ID: pj.ID, WorkerID: workerID}

	var err error
	if p.Start, err = requiredDate(pj.Start, "pay_period.start"); err != nil {
		return p, err
	}
	if p.End, err = requiredDate(pj.End, "pay_period.end"); err != nil {
		return p, err
	}
	if p.End.Before(p.Start) {
		return p, generic.NewValidationError("pay_period.end", pj.End, "before pay_period.start")
	}
	if p.TotalHours, err = requiredAmount(pj.TotalHours, "pay_period.total_hours"); err != nil {
		return p, err
	}
	if p.TotalPay, err = requiredAmount(pj.TotalPay, "pay_period.total_pay"); err != nil {
		return p, err
	}
	return p, nil
}

func parseOffset(oj OffsetJSON, field string) (payroll.Offset, error) {
	t, err := payroll.ParseOffsetType(oj.Type)
	if err != nil {
		return payroll.Offset{}, generic.NewValidationError(field+".type", oj.Type, "unknown offset type")
	}
	off := payroll.Offset{Type: t, DaysApplied: oj.DaysApplied}

	if oj.Amount == nil && oj.DailyRate == nil {
		return off, generic.NewValidationError(field+".amount", nil, "amount or daily_rate is required")
	}
	if oj.Amount != nil {
		if oj.Amount.IsNegative() {
			return off, generic.NewValidationError(field+".amount", oj.Amount.String(), "must not be negative")
		}
		off.Amount = *oj.Amount
	}
	if oj.DailyRate != nil {
		if oj.DailyRate.IsNegative() {
			return off, generic.NewValidationError(field+".daily_rate", oj.DailyRate.String(), "must not be negative")
		}
		off.DailyRate = generic.DecimalPtr(*oj.DailyRate)
	}
	if oj.DaysApplied != nil && *oj.DaysApplied < 0 {
		return off, generic.NewValidationError(field+".days_applied", *oj.DaysApplied, "must not be negative")
	}
	return off, nil
}

func parseAllowance(aj AllowanceJSON, field string) (payroll.Allowance, error) {
	t, err := payroll.ParseAllowanceType(aj.Type)
	if err != nil {
		return payroll.Allowance{}, generic.NewValidationError(field+".type", aj.Type, "unknown allowance type")
	}
	amount, err := requiredAmount(aj.Amount, field+".amount")
	if err != nil {
		return payroll.Allowance{}, err
	}
	return payroll.Allowance{Type: t, Amount: amount}, nil
}

func requiredDate(s, field string) (generic.TimePoint, error) {
	if s == "" {
		return generic.TimePoint{}, generic.NewValidationError(field, nil, "required")
	}
	tp, err := generic.ParseDate(s)
	if err != nil {
		return generic.TimePoint{}, generic.NewValidationError(field, s, "expected YYYY-MM-DD")
	}
	return tp, nil
}

func optionalDate(s, field string) (*generic.TimePoint, error) {
	if s == "" {
		return nil, nil
	}
	tp, err := requiredDate(s, field)
	if err != nil {
		return nil, err
	}
	return &tp, nil
}

func requiredAmount(d *decimal.Decimal, field string) (decimal.Decimal, error) {
	if d == nil {
		return decimal.Zero, generic.NewValidationError(field, nil, "required")
	}
	if d.IsNegative() {
		return decimal.Zero, generic.NewValidationError(field, d.String(), "must not be negative")
	}
	return *d, nil
}

func prefixField(err error, prefix string) error {
	if vErr, ok := err.(*generic.ValidationError); ok {
		return generic.NewValidationError(prefix+vErr.Field, vErr.Value, vErr.Reason)
	}
	return err
}
