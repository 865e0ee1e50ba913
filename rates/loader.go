package rates

import (
	_ "embed"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/warp/wage-compliance/generic"
)

//go:embed default_rates.yaml
var defaultDocument []byte

// EmbeddedSource is the Snapshot.Source of the built-in document.
const EmbeddedSource = "embedded"

// Source provides the current rate snapshot. Implementations must return a
// snapshot that is never mutated afterwards.
type Source interface {
	Current() *Snapshot
}

// Default parses the built-in rate document.
func Default() (*Snapshot, error) {
	return Parse(defaultDocument, EmbeddedSource)
}

// MustDefault is Default for tests and static wiring.
func MustDefault() *Snapshot {
	s, err := Default()
	if err != nil {
		panic(err)
	}
	return s
}

// DefaultDocument returns a copy of the built-in YAML document.
func DefaultDocument() []byte {
	return append([]byte(nil), defaultDocument...)
}

// Static is a Source that always returns the same snapshot.
type Static struct {
	Snapshot *Snapshot
}

func (s Static) Current() *Snapshot { return s.Snapshot }

// =============================================================================
// LOADER - File-backed source with mod-time reload
// =============================================================================

// Loader reads a rate document from disk and keeps the latest valid snapshot.
// A failed reload keeps serving the previous snapshot.
type Loader struct {
	path   string
	logger *zap.Logger

	current atomic.Pointer[Snapshot]

	mu      sync.Mutex // serializes reloads
	modTime time.Time
}

// NewLoader creates a loader for path. An empty path serves the built-in document.
func NewLoader(path string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{path: path, logger: logger}
}

// Current returns the latest snapshot, or nil before the first Load.
func (l *Loader) Current() *Snapshot {
	return l.current.Load()
}

// Load reads the document unconditionally.
func (l *Loader) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.load(true)
	return err
}

// Reload reads the document only if its modification time is newer than the
// one currently loaded. changed reports whether a new snapshot was swapped in.
func (l *Loader) Reload() (changed bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(false)
}

func (l *Loader) load(force bool) (bool, error) {
	if l.path == "" {
		if !force && l.current.Load() != nil {
			return false, nil
		}
		snap, err := Default()
		if err != nil {
			return false, err
		}
		l.swap(snap)
		return true, nil
	}

	info, err := os.Stat(l.path)
	if err != nil {
		return false, &generic.ConfigurationError{Source: l.path, Err: err}
	}
	if !force && !info.ModTime().After(l.modTime) {
		return false, nil
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return false, &generic.ConfigurationError{Source: l.path, Err: err}
	}
	snap, err := Parse(data, l.path)
	if err != nil {
		l.logger.Error("rate document rejected, keeping previous snapshot",
			zap.String("path", l.path), zap.Error(err))
		return false, err
	}

	l.modTime = info.ModTime()
	l.swap(snap)
	return true, nil
}

func (l *Loader) swap(snap *Snapshot) {
	prev := l.current.Swap(snap)
	fields := []zap.Field{
		zap.String("source", snap.Source),
		zap.String("version", snap.Version),
		zap.Int("periods", len(snap.periods)),
	}
	if prev != nil {
		fields = append(fields, zap.String("previous_version", prev.Version))
	}
	l.logger.Info("rate snapshot loaded", fields...)
}

// Describe returns a short human-readable summary of the current snapshot.
func (l *Loader) Describe() string {
	snap := l.Current()
	if snap == nil {
		return "no rates loaded"
	}
	return fmt.Sprintf("%s (version %s, %d periods)", snap.Source, snap.Version, len(snap.periods))
}
