package api

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/warp/wage-compliance/rates"
	"github.com/warp/wage-compliance/store/memory"
)

func TestRateReloadScheduler_RunNow(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	reloader := &fakeReloader{snap: rates.MustDefault()}
	rs := NewRateReloadScheduler(reloader, store, zaptest.NewLogger(t))

	// GIVEN: Nothing changed
	changed, err := rs.RunNow(ctx)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, rs.GetNextRunTime().IsZero())

	// GIVEN: A new snapshot
	next, err := rates.Parse(rates.DefaultDocument(), "reloaded")
	require.NoError(t, err)
	next.Version = "next"
	reloader.next = next

	changed, err = rs.RunNow(ctx)
	require.NoError(t, err)
	assert.True(t, changed)

	versions, err := store.ListRateVersions(ctx)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "next", versions[0].Version)
	assert.Equal(t, "reloaded", versions[0].Source)

	// GIVEN: A failing reload
	reloader.err = errors.New("boom")
	_, err = rs.RunNow(ctx)
	assert.Error(t, err)
	assert.Equal(t, "next", reloader.Current().Version)
}

func TestRateReloadScheduler_StartStop(t *testing.T) {
	reloader := &fakeReloader{snap: rates.MustDefault()}
	rs := NewRateReloadScheduler(reloader, memory.New(), zaptest.NewLogger(t))
	rs.CheckInterval = time.Hour

	rs.Start()
	rs.Start() // second start is a no-op
	rs.Stop()
	rs.Stop()

	rs.Enabled = false
	rs.Start()
	rs.Stop()
	assert.Zero(t, reloader.reloads)
}

// blockingReloader holds every Reload until release is closed.
type blockingReloader struct {
	snap    *rates.Snapshot
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingReloader) Current() *rates.Snapshot { return b.snap }
func (b *blockingReloader) Describe() string         { return "blocking" }

func (b *blockingReloader) Reload() (bool, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return false, nil
}

func TestRateReloadScheduler_StopDuringReload(t *testing.T) {
	reloader := &blockingReloader{
		snap:    rates.MustDefault(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	rs := NewRateReloadScheduler(reloader, memory.New(), zaptest.NewLogger(t))
	rs.CheckInterval = 5 * time.Millisecond

	// GIVEN: A tick is inside Reload
	rs.Start()
	select {
	case <-reloader.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never ticked")
	}

	// WHEN: Stop is called while the reload is still running
	stopped := make(chan struct{})
	go func() {
		rs.Stop()
		close(stopped)
	}()

	// THEN: Stop waits for the reload to finish
	select {
	case <-stopped:
		t.Fatal("Stop returned before the in-flight reload finished")
	case <-time.After(50 * time.Millisecond):
	}

	// AND: Returns once it does
	close(reloader.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked after the reload finished")
	}
	assert.False(t, rs.GetNextRunTime().IsZero())
}
