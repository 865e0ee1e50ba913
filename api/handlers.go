/*
handlers.go - HTTP API handlers for the wage compliance engine

PURPOSE:
  Exposes the compliance engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the engine and
  the record store.

ENDPOINTS:
  Checks:
    POST   /api/compliance/check        Check one pay period
    POST   /api/compliance/batch        Check many pay periods

  Calculations:
    GET    /api/calculations            History (worker_id, status, limit)
    GET    /api/calculations/{id}       One stored calculation

  Rates:
    GET    /api/rates                   Loaded rate snapshot
    GET    /api/rates/lookup            Required rate (age, date, apprentice,
                                        apprenticeship_start)
    GET    /api/rates/versions          Snapshots loaded so far
    POST   /api/rates/reload            Re-read the rate document

  Scenarios:
    GET    /api/scenarios               List demo scenarios
    GET    /api/scenarios/{id}          One scenario with its request
    POST   /api/scenarios/{id}/run      Check a scenario's request

  Health:
    GET    /healthz                     Liveness and loaded rate version

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Engine: Aggregation, classification, fix suggestions
  - Store: Append-only calculation records
  - Requests: JSON to compliance.Request conversion
  - Reloader: File-backed rate source (optional)

REQUEST FLOW:
  1. Read and parse the body (factory.RequestFactory)
  2. Run the engine
  3. Append a calculation record
  4. Serialize response

ERROR HANDLING:
  A check that the engine could not complete is still a 200: the result
  carries success=false and an error_code. Errors outside the engine are
  returned as JSON with an HTTP status:
  - 400: Malformed or invalid input
  - 404: Unknown calculation
  - 422: Input outside the configured rate coverage
  - 503: No rates loaded
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. Put the service behind a gateway
  that handles both.

SEE ALSO:
  - dto.go: Response data structures
  - scenarios.go: Demo scenarios
  - scheduler.go: Periodic rate reload
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/warp/wage-compliance/compliance"
	"github.com/warp/wage-compliance/factory"
	"github.com/warp/wage-compliance/generic"
	"github.com/warp/wage-compliance/rag"
)

const (
	maxBodyBytes     = 8 << 20
	defaultListLimit = 50
	maxListLimit     = 500
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine   *compliance.Engine
	Store    compliance.RecordStore
	Requests *factory.RequestFactory

	// Reloader is nil when rates are not file-backed.
	Reloader RateReloader

	batchWorkers int
	maxBatch     int
	logger       *zap.Logger
	now          func() time.Time
}

// Options configures a Handler. Zero values fall back to defaults.
type Options struct {
	Reloader         RateReloader
	BatchWorkers     int
	MaxBatchRequests int
	Logger           *zap.Logger
}

// NewHandler creates a new handler.
func NewHandler(engine *compliance.Engine, store compliance.RecordStore, opts Options) *Handler {
	if opts.BatchWorkers < 1 {
		opts.BatchWorkers = 8
	}
	if opts.MaxBatchRequests < 1 {
		opts.MaxBatchRequests = 1000
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Handler{
		Engine:       engine,
		Store:        store,
		Requests:     factory.NewRequestFactory(),
		Reloader:     opts.Reloader,
		batchWorkers: opts.BatchWorkers,
		maxBatch:     opts.MaxBatchRequests,
		logger:       opts.Logger.Named("api"),
		now:          time.Now,
	}
}

// =============================================================================
// CHECK HANDLERS
// =============================================================================

// Check runs one compliance check and stores it.
// POST /api/compliance/check
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}

	req, err := h.Requests.ParseRequest(body)
	if err != nil {
		writeDomainError(w, "Invalid request", err)
		return
	}

	resp := h.Engine.Check(req)
	id := h.record(r.Context(), req, resp)

	writeJSON(w, http.StatusOK, toCheckResponse(id, resp))
}

// CheckBatch runs a batch of checks concurrently. Results keep request order.
// POST /api/compliance/batch
func (h *Handler) CheckBatch(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}

	reqs, err := h.Requests.ParseBatch(body)
	if err != nil {
		writeDomainError(w, "Invalid batch", err)
		return
	}
	if len(reqs) > h.maxBatch {
		writeDomainError(w, "Batch too large",
			generic.NewValidationError("requests", len(reqs), fmt.Sprintf("at most %d requests per batch", h.maxBatch)))
		return
	}

	resps, err := h.Engine.CheckBatch(r.Context(), reqs, h.batchWorkers)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Batch cancelled", err)
		return
	}

	out := BatchResponse{Results: make([]CheckResponse, len(resps))}
	for i, resp := range resps {
		id := h.record(r.Context(), reqs[i], resp)
		out.Results[i] = toCheckResponse(id, resp)
		out.Summary.add(resp.Result)
	}

	h.logger.Info("batch checked",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Int("total", out.Summary.Total),
		zap.Int("red", out.Summary.Red),
		zap.Int("amber", out.Summary.Amber),
		zap.Int("failed", out.Summary.Failed),
	)
	writeJSON(w, http.StatusOK, out)
}

// record appends the calculation and returns its ID. A store failure does
// not fail the check; the ID is empty instead.
func (h *Handler) record(ctx context.Context, req compliance.Request, resp compliance.Response) string {
	if h.Store == nil {
		return ""
	}
	requestJSON, err := json.Marshal(h.Requests.ToJSON(req))
	if err != nil {
		h.logger.Error("failed to encode request for record", zap.Error(err))
		requestJSON = nil
	}
	rec := compliance.NewRecord(req, resp, requestJSON, h.now())
	if err := h.Store.SaveRecord(ctx, rec); err != nil {
		h.logger.Error("failed to save calculation",
			zap.String("worker_id", rec.WorkerID),
			zap.String("request_id", middleware.GetReqID(ctx)),
			zap.Error(err))
		return ""
	}
	return rec.ID
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// ListCalculations returns stored calculations, newest first.
// GET /api/calculations?worker_id=&status=&limit=
func (h *Handler) ListCalculations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := compliance.RecordFilter{
		WorkerID: q.Get("worker_id"),
		Limit:    defaultListLimit,
	}

	if s := q.Get("status"); s != "" {
		status := rag.Status(strings.ToUpper(s))
		if !status.Valid() {
			writeDomainError(w, "Invalid status", generic.NewValidationError("status", s, "must be GREEN, AMBER or RED"))
			return
		}
		filter.Status = status
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxListLimit {
			writeDomainError(w, "Invalid limit",
				generic.NewValidationError("limit", s, fmt.Sprintf("must be between 1 and %d", maxListLimit)))
			return
		}
		filter.Limit = n
	}

	records, err := h.Store.ListRecords(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list calculations", err)
		return
	}

	dtos := make([]CalculationSummaryDTO, len(records))
	for i, rec := range records {
		dtos[i] = toSummaryDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCalculation returns one stored calculation.
// GET /api/calculations/{id}
func (h *Handler) GetCalculation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.Store.GetRecord(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Calculation not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toCalculationDTO(*rec))
}

// =============================================================================
// RATE HANDLERS
// =============================================================================

// GetRates returns the loaded rate snapshot.
// GET /api/rates
func (h *Handler) GetRates(w http.ResponseWriter, r *http.Request) {
	snap := h.Engine.Source().Current()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "No rates loaded", nil)
		return
	}
	writeJSON(w, http.StatusOK, toRatesDTO(snap))
}

// LookupRate resolves the required rate for one worker on one date.
// GET /api/rates/lookup?age=21&date=2024-06-09&apprentice=false&apprenticeship_start=
func (h *Handler) LookupRate(w http.ResponseWriter, r *http.Request) {
	snap := h.Engine.Source().Current()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "No rates loaded", nil)
		return
	}

	q := r.URL.Query()
	age, err := strconv.Atoi(q.Get("age"))
	if err != nil {
		writeDomainError(w, "Invalid age", generic.NewValidationError("age", q.Get("age"), "must be an integer"))
		return
	}
	date, err := generic.ParseDate(q.Get("date"))
	if err != nil {
		writeDomainError(w, "Invalid date", generic.NewValidationError("date", q.Get("date"), "must be YYYY-MM-DD"))
		return
	}
	apprentice := false
	if s := q.Get("apprentice"); s != "" {
		if apprentice, err = strconv.ParseBool(s); err != nil {
			writeDomainError(w, "Invalid apprentice flag", generic.NewValidationError("apprentice", s, "must be true or false"))
			return
		}
	}
	var start *generic.TimePoint
	if s := q.Get("apprenticeship_start"); s != "" {
		tp, err := generic.ParseDate(s)
		if err != nil {
			writeDomainError(w, "Invalid apprenticeship_start",
				generic.NewValidationError("apprenticeship_start", s, "must be YYYY-MM-DD"))
			return
		}
		start = &tp
	}

	lookup, err := snap.RequiredRate(age, date, apprentice, start)
	if err != nil {
		writeDomainError(w, "No required rate", err)
		return
	}

	dto := RateLookupDTO{
		Age:         lookup.Age,
		PayDate:     lookup.PayDate.String(),
		HourlyRate:  lookup.HourlyRate,
		Category:    lookup.Category,
		BandKey:     lookup.BandKey,
		Reason:      lookup.Reason,
		RatePeriod:  lookup.Period.String(),
		RateVersion: snap.Version,
	}
	if limit, err := snap.AccommodationOffsetLimit(date); err == nil {
		dto.AccommodationCap = &limit
	}
	writeJSON(w, http.StatusOK, dto)
}

// ListRateVersions returns the rate snapshots loaded so far, newest first.
// GET /api/rates/versions
func (h *Handler) ListRateVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.Store.ListRateVersions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rate versions", err)
		return
	}
	dtos := make([]RateVersionDTO, len(versions))
	for i, v := range versions {
		dtos[i] = RateVersionDTO{
			Version:  v.Version,
			Source:   v.Source,
			LoadedAt: v.LoadedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ReloadRates re-reads the rate document. A rejected document leaves the
// previous snapshot serving.
// POST /api/rates/reload
func (h *Handler) ReloadRates(w http.ResponseWriter, r *http.Request) {
	if h.Reloader == nil {
		writeError(w, http.StatusNotImplemented, "Rates are not file-backed", nil)
		return
	}

	changed, err := h.Reloader.Reload()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "Rate document rejected",
			Code:    generic.ErrorCode(err),
			Details: err.Error(),
		})
		return
	}
	if changed {
		recordRateVersion(r.Context(), h.Store, h.Reloader.Current(), h.logger)
	}

	resp := ReloadResponse{Changed: changed, Rates: h.Reloader.Describe()}
	if snap := h.Reloader.Current(); snap != nil {
		resp.Version = snap.Version
	}
	writeJSON(w, http.StatusOK, resp)
}

// Healthz reports whether rates are loaded.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	snap := h.Engine.Source().Current()
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "no rates loaded"})
		return
	}
	if p, ok := h.Store.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "store unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "rate_version": snap.Version})
}

// =============================================================================
// HELPERS
// =============================================================================

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps an error from the domain packages to a status.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	resp := ErrorResponse{
		Error:   message,
		Code:    generic.ErrorCode(err),
		Details: err.Error(),
	}
	var ve *generic.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	writeJSON(w, statusFor(err), resp)
}

func statusFor(err error) int {
	switch {
	case generic.IsClientError(err):
		return http.StatusBadRequest
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsConfigurationError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
