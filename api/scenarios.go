/*
scenarios.go - Demo scenarios for testing and demonstrations

PURPOSE:

	Provides pre-built check requests that demonstrate the engine's
	behaviour on the reference UK rates: an underpaid adult, an
	apprentice in the first year, a zero-hours period, an accommodation
	charge over the statutory limit, and the April 2024 rate change.

AVAILABLE SCENARIOS:

	underpaid-adult:        Age 25, 40h for 400.00 (RED, HIGH)
	apprentice-first-year:  Age 19 apprentice on the apprentice rate (GREEN)
	zero-hours:             Pay recorded against zero hours (AMBER)
	accommodation-excess:   12.00/day accommodation over 9.99 limit (AMBER)
	age-22-march-2024:      Age 22 on the 21-22 NMW band (GREEN)
	age-22-april-2024:      Same pay after NLW moved to 21+ (RED)

HOW SCENARIOS WORK:
 1. The request JSON goes through the same factory as POST /api/compliance/check
 2. The engine checks it against the currently loaded rates
 3. The calculation is stored like any other check

USAGE VIA API:

	GET  /api/scenarios
	GET  /api/scenarios/{id}
	POST /api/scenarios/{id}/run

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description, request JSON
 2. Set Expected to the RAG status it shows on the embedded rates

SEE ALSO:
  - handlers.go: Check handler
  - factory/request.go: Request JSON schema
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/warp/wage-compliance/rag"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Expected    rag.Status      `json:"expected_status"`
	Request     json.RawMessage `json:"request,omitempty"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "underpaid-adult",
		Name:        "Underpaid Adult",
		Description: "Age 25, 40 hours for 400.00: 10.00/h against 11.44/h NLW",
		Expected:    rag.StatusRed,
		Request: json.RawMessage(`{
			"worker": {"id": "demo-adult", "age": 25},
			"pay_period": {"id": "2024-w23", "start": "2024-06-03", "end": "2024-06-09", "total_hours": 40, "total_pay": "400.00"}
		}`),
	},
	{
		ID:          "apprentice-first-year",
		Name:        "Apprentice, First Year",
		Description: "Age 19 apprentice six months in, paid 8.60/h against the 6.40/h apprentice rate",
		Expected:    rag.StatusGreen,
		Request: json.RawMessage(`{
			"worker": {"id": "demo-apprentice", "age": 19, "is_apprentice": true, "apprenticeship_start": "2023-12-09"},
			"pay_period": {"id": "2024-w23", "start": "2024-06-03", "end": "2024-06-09", "total_hours": 35, "total_pay": "301.00"}
		}`),
	},
	{
		ID:          "zero-hours",
		Name:        "Zero Hours With Pay",
		Description: "150.00 paid against zero recorded hours; no rate comparison is possible",
		Expected:    rag.StatusAmber,
		Request: json.RawMessage(`{
			"worker": {"id": "demo-zero-hours", "age": 25},
			"pay_period": {"id": "2024-w23", "start": "2024-06-03", "end": "2024-06-09", "total_hours": 0, "total_pay": "150.00"}
		}`),
	},
	{
		ID:          "accommodation-excess",
		Name:        "Accommodation Over the Limit",
		Description: "Accommodation charged at 12.00/day for 5 days against the 9.99/day offset limit",
		Expected:    rag.StatusAmber,
		Request: json.RawMessage(`{
			"worker": {"id": "demo-accommodation", "age": 25},
			"pay_period": {"id": "2024-w23", "start": "2024-06-03", "end": "2024-06-09", "total_hours": 40, "total_pay": "500.00"},
			"offsets": [{"type": "accommodation", "daily_rate": "12.00", "days_applied": 5}]
		}`),
	},
	{
		ID:          "age-22-march-2024",
		Name:        "Age 22, March 2024",
		Description: "10.50/h for a 22 year old before April 2024, when the 21-22 band was 10.18/h",
		Expected:    rag.StatusGreen,
		Request: json.RawMessage(`{
			"worker": {"id": "demo-age-22", "age": 22},
			"pay_period": {"id": "2024-w13", "start": "2024-03-25", "end": "2024-03-31", "total_hours": 40, "total_pay": "420.00"}
		}`),
	},
	{
		ID:          "age-22-april-2024",
		Name:        "Age 22, April 2024",
		Description: "The same 10.50/h after April 2024, when the NLW of 11.44/h covers age 21 and over",
		Expected:    rag.StatusRed,
		Request: json.RawMessage(`{
			"worker": {"id": "demo-age-22", "age": 22},
			"pay_period": {"id": "2024-w14", "start": "2024-04-01", "end": "2024-04-07", "total_hours": 40, "total_pay": "420.00"}
		}`),
	},
}

func findScenario(id string) (ScenarioDTO, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return ScenarioDTO{}, false
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns available scenarios without their requests.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		s.Request = nil
		out[i] = s
	}
	writeJSON(w, http.StatusOK, out)
}

// GetScenario returns one scenario with its request.
// GET /api/scenarios/{id}
func (h *Handler) GetScenario(w http.ResponseWriter, r *http.Request) {
	s, ok := findScenario(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Scenario not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// RunScenario checks the scenario's request and stores the calculation.
// POST /api/scenarios/{id}/run
func (h *Handler) RunScenario(w http.ResponseWriter, r *http.Request) {
	s, ok := findScenario(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Scenario not found", nil)
		return
	}

	req, err := h.Requests.ParseRequest(s.Request)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Scenario request is invalid", err)
		return
	}

	resp := h.Engine.Check(req)
	id := h.record(r.Context(), req, resp)
	writeJSON(w, http.StatusOK, toCheckResponse(id, resp))
}
