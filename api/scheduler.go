/*
scheduler.go - Automated rate document reload

PURPOSE:
  Periodically checks the rate document on disk and swaps in a new
  snapshot when it changed. Every snapshot that gets loaded is recorded
  in the store so stored calculations can be traced back to the rates
  they were checked against.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Reload only re-reads the file when its modification time moved
  - A rejected document keeps the previous snapshot serving
  - In-flight checks keep the snapshot they started with

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 minute)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewRateReloadScheduler(loader, store, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: ReloadRates endpoint (manual reload)
  - rates/loader.go: Loader
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/wage-compliance/compliance"
	"github.com/warp/wage-compliance/rates"
)

// RateReloader is a rate source that can re-read its document.
type RateReloader interface {
	rates.Source
	Reload() (changed bool, err error)
	Describe() string
}

// RateReloadScheduler reloads rates on a fixed interval.
type RateReloadScheduler struct {
	Reloader      RateReloader
	Store         compliance.RecordStore
	CheckInterval time.Duration
	Enabled       bool

	logger *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex // guards ticker and stop

	// lastRun has its own lock so a tick never waits on Start or Stop.
	runMu   sync.Mutex
	lastRun time.Time
}

// NewRateReloadScheduler creates a new scheduler.
func NewRateReloadScheduler(reloader RateReloader, store compliance.RecordStore, logger *zap.Logger) *RateReloadScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateReloadScheduler{
		Reloader:      reloader,
		Store:         store,
		CheckInterval: time.Minute,
		Enabled:       true,
		logger:        logger.Named("scheduler"),
	}
}

// Start begins the scheduler.
func (rs *RateReloadScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled || rs.CheckInterval <= 0 {
		rs.logger.Info("rate reload disabled")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run(rs.ticker, rs.stop)

	rs.logger.Info("rate reload started", zap.Duration("interval", rs.CheckInterval))
}

// Stop stops the scheduler and waits for an in-progress reload.
func (rs *RateReloadScheduler) Stop() {
	rs.mu.Lock()
	ticker, stop := rs.ticker, rs.stop
	rs.ticker, rs.stop = nil, nil
	rs.mu.Unlock()

	if ticker == nil {
		return
	}
	ticker.Stop()
	close(stop)
	rs.wg.Wait()
	rs.logger.Info("rate reload stopped")
}

func (rs *RateReloadScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer rs.wg.Done()

	for {
		select {
		case <-ticker.C:
			rs.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow checks the document once. changed reports whether a new snapshot
// was swapped in.
func (rs *RateReloadScheduler) RunNow(ctx context.Context) (changed bool, err error) {
	changed, err = rs.Reloader.Reload()
	rs.runMu.Lock()
	rs.lastRun = time.Now()
	rs.runMu.Unlock()

	if err != nil {
		rs.logger.Warn("rate reload failed, keeping previous snapshot", zap.Error(err))
		return false, err
	}
	if changed {
		recordRateVersion(ctx, rs.Store, rs.Reloader.Current(), rs.logger)
	}
	return changed, nil
}

// GetNextRunTime returns when the next check is due, or the zero time when
// the scheduler has not run yet.
func (rs *RateReloadScheduler) GetNextRunTime() time.Time {
	rs.runMu.Lock()
	defer rs.runMu.Unlock()
	if rs.lastRun.IsZero() {
		return time.Time{}
	}
	return rs.lastRun.Add(rs.CheckInterval)
}

// recordRateVersion stores snap's version. Failures are logged only; the
// snapshot is already serving.
func recordRateVersion(ctx context.Context, store compliance.RecordStore, snap *rates.Snapshot, logger *zap.Logger) {
	if store == nil || snap == nil {
		return
	}
	loadedAt := snap.LoadedAt
	if loadedAt.IsZero() {
		loadedAt = time.Now()
	}
	err := store.SaveRateVersion(ctx, compliance.RateVersionRecord{
		Version:  snap.Version,
		Source:   snap.Source,
		LoadedAt: loadedAt,
	})
	if err != nil {
		logger.Error("failed to record rate version", zap.String("version", snap.Version), zap.Error(err))
	}
}
