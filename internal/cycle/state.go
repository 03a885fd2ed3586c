package cycle

import (
	"github.com/instagibbs/anticycle/internal/feerate"
)

// Engine is the single owner of all replacement-cycling detection state.
// It is not safe for concurrent use: the caller must drive it from one
// goroutine, strictly in event-source order (spec §5).
type Engine struct {
	fetcher     TxFetcher
	entries     EntryFetcher
	resubmitter Resubmitter
	oracle      RateOracle
	log         Logger

	allowPackages bool
	byteBudget    uint64

	dummyCache  map[string]RawTx // txid -> recently seen top-block tx
	dummyBytes  uint64

	protectedCache map[string]RawTx // txid -> tx chosen for possible resubmission
	protectedBytes uint64

	utxoCache map[UTXO]string // UTXO -> txid (key of protectedCache)

	utxoCycledCount map[UTXO]uint32

	utxosBeingDoublespent map[UTXO]string // UTXO -> replaced txid, transient

	cycledInputSet map[UTXO]struct{}

	topblockRate feerate.Rate

	eventCount uint64

	hooks Hooks
}

// Hooks lets callers observe engine decisions (dashboard broadcast, audit
// log, metrics) without the engine importing any of those concerns
// directly. All hooks are optional and best-effort: a nil hook is skipped,
// and hooks must never be allowed to block or panic the event loop.
type Hooks struct {
	OnCycleDetected   func(u UTXO, count uint32)
	OnResubmit        func(u UTXO, txid string, ok bool)
	OnEpochWipe       func(reason string)
	OnAdmissionRefuse func(u UTXO, txid string)
}

// Option configures a new Engine.
type Option func(*Engine)

// WithAllowPackages enables the extended (non-singleton) classification
// variant from spec.md §4.1.
func WithAllowPackages(allow bool) Option {
	return func(e *Engine) { e.allowPackages = allow }
}

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithHooks registers observation hooks.
func WithHooks(h Hooks) Option {
	return func(e *Engine) { e.hooks = h }
}

// NewEngine constructs an Engine with a hard cache byte budget and the
// external collaborators it needs. byteBudget is in bytes (already scaled
// from the megabyte CLI argument per spec §6).
func NewEngine(fetcher TxFetcher, entries EntryFetcher, resubmitter Resubmitter, oracle RateOracle, byteBudget uint64, opts ...Option) *Engine {
	e := &Engine{
		fetcher:               fetcher,
		entries:               entries,
		resubmitter:           resubmitter,
		oracle:                oracle,
		log:                   NopLogger{},
		byteBudget:            byteBudget,
		dummyCache:            make(map[string]RawTx),
		protectedCache:        make(map[string]RawTx),
		utxoCache:             make(map[UTXO]string),
		utxoCycledCount:       make(map[UTXO]uint32),
		utxosBeingDoublespent: make(map[UTXO]string),
		cycledInputSet:        make(map[UTXO]struct{}),
		topblockRate:          feerate.Zero,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stats is a read-only snapshot for /status and the stats log line.
type Stats struct {
	DummyCacheSize    int
	DummyBytes        uint64
	ProtectedCacheSize int
	ProtectedBytes    uint64
	UTXOCacheSize     int
	TopblockRate      string
	EventCount        uint64
}

func (e *Engine) Stats() Stats {
	return Stats{
		DummyCacheSize:     len(e.dummyCache),
		DummyBytes:         e.dummyBytes,
		ProtectedCacheSize: len(e.protectedCache),
		ProtectedBytes:     e.protectedBytes,
		UTXOCacheSize:      len(e.utxoCache),
		TopblockRate:       e.topblockRate.String(),
		EventCount:         e.eventCount,
	}
}

func (e *Engine) cycledCount(u UTXO) uint32 {
	return e.utxoCycledCount[u] // absent key returns zero value, per spec §9.
}

func (e *Engine) logStatsIfDue() {
	if e.eventCount%StatsLogInterval != 0 {
		return
	}
	s := e.Stats()
	e.log.Printf("stats: dummy=%d (%d bytes) protected=%d (%d bytes) utxo_cache=%d rate=%s events=%d",
		s.DummyCacheSize, s.DummyBytes, s.ProtectedCacheSize, s.ProtectedBytes,
		s.UTXOCacheSize, s.TopblockRate, s.EventCount)
}
