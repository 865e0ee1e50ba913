/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Check requests use
  factory.RequestJSON directly; the types here wrap engine output and
  stored records so the internal model can change without breaking
  clients.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Response: Complex response wrappers

TYPES:
  Checks:
    CheckResponse, BatchResponse

  Records:
    CalculationDTO, CalculationSummaryDTO

  Rates:
    RatesDTO, RatePeriodDTO, RateBandDTO, AccommodationRuleDTO,
    RateLookupDTO, RateVersionDTO, ReloadResponse

DECIMALS:
  Money, hours and rates are serialized as JSON strings ("11.44") by
  shopspring/decimal, never as floats.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/request.go: RequestJSON type
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/wage-compliance/compliance"
	"github.com/warp/wage-compliance/fixes"
	"github.com/warp/wage-compliance/prp"
	"github.com/warp/wage-compliance/rag"
	"github.com/warp/wage-compliance/rates"
)

// =============================================================================
// CHECK TYPES
// =============================================================================

// CheckResponse is the outcome of one check plus the ID it was stored under.
type CheckResponse struct {
	CalculationID string           `json:"calculation_id,omitempty"`
	Result        rag.Result       `json:"result"`
	Fixes         fixes.Set        `json:"fixes"`
	Aggregation   *prp.Aggregation `json:"aggregation,omitempty"`
}

func toCheckResponse(id string, resp compliance.Response) CheckResponse {
	return CheckResponse{
		CalculationID: id,
		Result:        resp.Result,
		Fixes:         resp.Fixes,
		Aggregation:   resp.Aggregation,
	}
}

// BatchResponse holds results in request order plus status counts.
type BatchResponse struct {
	Results []CheckResponse `json:"results"`
	Summary BatchSummaryDTO `json:"summary"`
}

type BatchSummaryDTO struct {
	Total  int `json:"total"`
	Green  int `json:"green"`
	Amber  int `json:"amber"`
	Red    int `json:"red"`
	Failed int `json:"failed"`
}

func (s *BatchSummaryDTO) add(r rag.Result) {
	s.Total++
	if !r.Success {
		s.Failed++
	}
	switch r.RAGStatus {
	case rag.StatusGreen:
		s.Green++
	case rag.StatusAmber:
		s.Amber++
	case rag.StatusRed:
		s.Red++
	}
}

// =============================================================================
// RECORD TYPES
// =============================================================================

// CalculationSummaryDTO is one row of the calculation history.
type CalculationSummaryDTO struct {
	ID          string     `json:"id"`
	WorkerID    string     `json:"worker_id"`
	PeriodID    string     `json:"period_id,omitempty"`
	PeriodStart string     `json:"period_start"`
	PeriodEnd   string     `json:"period_end"`
	RAGStatus   rag.Status `json:"rag_status"`
	Success     bool       `json:"success"`
	ErrorCode   string     `json:"error_code,omitempty"`
	RateVersion string     `json:"rate_version,omitempty"`
	CreatedAt   string     `json:"created_at"`
}

// CalculationDTO is a stored calculation with its request and response.
type CalculationDTO struct {
	CalculationSummaryDTO
	Request  any           `json:"request,omitempty"`
	Response CheckResponse `json:"response"`
}

func toSummaryDTO(r compliance.Record) CalculationSummaryDTO {
	return CalculationSummaryDTO{
		ID:          r.ID,
		WorkerID:    r.WorkerID,
		PeriodID:    r.PeriodID,
		PeriodStart: r.PeriodStart.String(),
		PeriodEnd:   r.PeriodEnd.String(),
		RAGStatus:   r.Status,
		Success:     r.Success,
		ErrorCode:   r.ErrorCode,
		RateVersion: r.RateVersion,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
}

func toCalculationDTO(r compliance.Record) CalculationDTO {
	dto := CalculationDTO{
		CalculationSummaryDTO: toSummaryDTO(r),
		Response:              toCheckResponse(r.ID, r.Response),
	}
	if len(r.Request) > 0 {
		dto.Request = r.Request
	}
	return dto
}

// =============================================================================
// RATE TYPES
// =============================================================================

// RatesDTO describes the loaded rate snapshot.
type RatesDTO struct {
	Version            string                 `json:"version"`
	Source             string                 `json:"source"`
	LoadedAt           string                 `json:"loaded_at,omitempty"`
	Periods            []RatePeriodDTO        `json:"periods"`
	AccommodationRules []AccommodationRuleDTO `json:"accommodation_offsets"`
}

type RatePeriodDTO struct {
	EffectiveFrom string        `json:"effective_from"`
	EffectiveTo   string        `json:"effective_to,omitempty"`
	Bands         []RateBandDTO `json:"bands"`
}

type RateBandDTO struct {
	Key         string          `json:"key"`
	MinAge      int             `json:"min_age"`
	MaxAge      *int            `json:"max_age,omitempty"`
	HourlyRate  decimal.Decimal `json:"hourly_rate"`
	Category    rates.Category  `json:"category"`
	Description string          `json:"description,omitempty"`
}

type AccommodationRuleDTO struct {
	EffectiveFrom string          `json:"effective_from"`
	DailyLimit    decimal.Decimal `json:"daily_limit"`
}

func toRatesDTO(snap *rates.Snapshot) RatesDTO {
	dto := RatesDTO{
		Version:            snap.Version,
		Source:             snap.Source,
		Periods:            []RatePeriodDTO{},
		AccommodationRules: []AccommodationRuleDTO{},
	}
	if !snap.LoadedAt.IsZero() {
		dto.LoadedAt = snap.LoadedAt.Format(time.RFC3339)
	}
	for _, p := range snap.Periods() {
		pd := RatePeriodDTO{EffectiveFrom: p.Range.From.String()}
		if p.Range.To != nil {
			pd.EffectiveTo = p.Range.To.String()
		}
		for _, b := range append(p.AgeBands(), p.ApprenticeBand()) {
			pd.Bands = append(pd.Bands, RateBandDTO{
				Key:         b.Key,
				MinAge:      b.MinAge,
				MaxAge:      b.MaxAge,
				HourlyRate:  b.HourlyRate,
				Category:    b.Category,
				Description: b.Description,
			})
		}
		dto.Periods = append(dto.Periods, pd)
	}
	for _, r := range snap.AccommodationRules() {
		dto.AccommodationRules = append(dto.AccommodationRules, AccommodationRuleDTO{
			EffectiveFrom: r.EffectiveFrom.String(),
			DailyLimit:    r.DailyLimit,
		})
	}
	return dto
}

// RateLookupDTO is the required rate for one worker on one date.
type RateLookupDTO struct {
	Age              int                `json:"age"`
	PayDate          string             `json:"pay_date"`
	HourlyRate       decimal.Decimal    `json:"hourly_rate"`
	Category         rates.Category     `json:"category"`
	BandKey          string             `json:"band"`
	Reason           rates.LookupReason `json:"reason"`
	RatePeriod       string             `json:"rate_period"`
	RateVersion      string             `json:"rate_version"`
	AccommodationCap *decimal.Decimal   `json:"accommodation_daily_limit,omitempty"`
}

type RateVersionDTO struct {
	Version  string `json:"version"`
	Source   string `json:"source"`
	LoadedAt string `json:"loaded_at"`
}

// ReloadResponse reports the outcome of POST /api/rates/reload.
type ReloadResponse struct {
	Changed bool   `json:"changed"`
	Version string `json:"version"`
	Rates   string `json:"rates"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}
