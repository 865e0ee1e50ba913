/*
Package compliance wires the four calculation steps into one call.

PURPOSE:
  Check runs aggregate -> classify -> suggest for one worker and pay
  period. CheckBatch runs many checks on a bounded worker pool.

GUARANTEES:
  - Nothing escapes as a panic or an error: every failure becomes a failed
    rag.Result (AMBER) with a MANUAL_REVIEW suggestion.
  - A batch reads the rate snapshot once, so a reload during the batch
    never mixes rate versions.
  - The engine holds no mutable state; one Engine serves all goroutines.

SEE ALSO:
  - prp, rag, fixes: The steps
  - rates.Loader: The snapshot source
*/
package compliance

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/warp/wage-compliance/fixes"
	"github.com/warp/wage-compliance/generic"
	"github.com/warp/wage-compliance/payroll"
	"github.com/warp/wage-compliance/prp"
	"github.com/warp/wage-compliance/rag"
	"github.com/warp/wage-compliance/rates"
)

// =============================================================================
// REQUEST / RESPONSE
// =============================================================================

// Request is one worker's pay period with its itemized components.
type Request struct {
	Worker     payroll.Worker
	Period     payroll.PayPeriod
	Offsets    []payroll.Offset
	Allowances []payroll.Allowance
}

// Response is the outcome of one check. Aggregation is nil when the input
// was rejected before aggregation.
type Response struct {
	Result      rag.Result       `json:"result"`
	Fixes       fixes.Set        `json:"fixes"`
	Aggregation *prp.Aggregation `json:"aggregation,omitempty"`
}

// =============================================================================
// ENGINE
// =============================================================================

// Options configures an Engine. Zero values fall back to the defaults.
type Options struct {
	Rules      *prp.Rules
	Classifier rag.Config
	Fixes      fixes.Config
	Logger     *zap.Logger
}

type Engine struct {
	source     rates.Source
	rules      *prp.Rules
	aggregator *prp.Aggregator
	classifier *rag.Classifier
	generator  *fixes.Generator
	logger     *zap.Logger
}

// NewEngine builds an engine reading rates from source.
func NewEngine(source rates.Source, opts Options) *Engine {
	if opts.Rules == nil {
		opts.Rules = prp.MustDefaultRules()
	}
	if opts.Classifier.DeductionRatioThreshold.IsZero() {
		opts.Classifier = rag.DefaultConfig()
	}
	if opts.Fixes == (fixes.Config{}) {
		opts.Fixes = fixes.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Engine{
		source:     source,
		rules:      opts.Rules,
		aggregator: prp.NewAggregator(opts.Rules),
		classifier: rag.NewClassifier(source, opts.Classifier),
		generator:  fixes.NewGenerator(opts.Fixes),
		logger:     opts.Logger.Named("engine"),
	}
}

// Source returns the rate source the engine reads.
func (e *Engine) Source() rates.Source {
	return e.source
}

// Check evaluates one request against the current rate snapshot.
func (e *Engine) Check(req Request) Response {
	return e.checkAt(e.source.Current(), req)
}

// CheckBatch evaluates requests concurrently with at most workers in flight
// (workers <= 0 means unbounded). Responses keep request order. The only
// error is the context's.
func (e *Engine) CheckBatch(ctx context.Context, reqs []Request, workers int) ([]Response, error) {
	snap := e.source.Current()
	out := make([]Response, len(reqs))

	g, gCtx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i := range reqs {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			out[i] = e.checkAt(snap, reqs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.logger.Debug("batch checked", zap.Int("requests", len(reqs)), zap.Int("workers", workers), zap.String("rates_version", versionOf(snap)))
	return out, nil
}

func (e *Engine) checkAt(snap *rates.Snapshot, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			err := &generic.ComputationError{Op: "check", Err: fmt.Errorf("panic: %v", r)}
			e.logger.Error("check panicked", zap.String("worker_id", req.Worker.ID), zap.Any("panic", r))
			resp = e.failed(req, err)
		}
	}()

	if snap == nil {
		return e.failed(req, &generic.ConfigurationError{Source: "rates", Err: errors.New("no rate snapshot loaded")})
	}

	in := prp.Input{
		Period:     req.Period,
		Offsets:    req.Offsets,
		Allowances: req.Allowances,
	}
	if !req.Period.End.IsZero() && e.rules.NeedsStatutoryLimit(req.Offsets) {
		limit, err := snap.AccommodationOffsetLimit(req.Period.PayDate())
		if err != nil {
			return e.failed(req, err)
		}
		in.AccommodationDailyLimit = limit
	}

	agg, err := e.aggregator.Aggregate(in)
	if err != nil {
		return e.failed(req, err)
	}

	result := e.classifier.ClassifyAt(snap, req.Worker, req.Period, agg)
	resp = Response{
		Result:      result,
		Fixes:       e.generator.Generate(req.Worker, req.Period, result, agg),
		Aggregation: agg,
	}
	e.log(req, result)
	return resp
}

func (e *Engine) failed(req Request, err error) Response {
	result := rag.Failed(err)
	e.log(req, result)
	return Response{
		Result: result,
		Fixes:  e.generator.Generate(req.Worker, req.Period, result, nil),
	}
}

func (e *Engine) log(req Request, result rag.Result) {
	fields := []zap.Field{
		zap.String("worker_id", req.Worker.ID),
		zap.String("period_id", req.Period.ID),
		zap.String("status", string(result.RAGStatus)),
	}
	if !result.Success {
		e.logger.Warn("check failed", append(fields, zap.String("error_code", result.ErrorCode), zap.String("reason", result.Reason))...)
		return
	}
	e.logger.Debug("check complete", append(fields, zap.Strings("flags", result.Flags))...)
}

func versionOf(snap *rates.Snapshot) string {
	if snap == nil {
		return ""
	}
	return snap.Version
}
