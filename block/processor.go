// Package block implements the RaptorQ block processor: memory-bounded
// block partitioning, per-block encode/decode around the RaptorQ
// primitive, the content-addressed on-disk layout and its manifest, and
// the concurrency/admission model that keeps peak memory under a
// configured ceiling.
package block

import (
	"sync"

	"github.com/raptorfec/rqblock/codec"
	"github.com/raptorfec/rqblock/rqlog"
	"github.com/raptorfec/rqblock/storage"
)

// Version identifies this build of the codec.
const Version = "1.0.0"

// Processor owns a config, a concurrency admission counter, and a slot for
// the most recent human-readable error. It is safe for concurrent use from
// multiple goroutines; the only state shared across calls is the admission
// counter and the error slot.
type Processor struct {
	config    ProcessorConfig
	store     *storage.Store
	admission *admission
	logger    *rqlog.Logger

	mu        sync.Mutex
	lastError string
}

// Option customizes a Processor at construction time.
type Option func(*Processor)

// WithStore overrides the default OS-backed storage, for tests and
// non-native hosts.
func WithStore(store *storage.Store) Option {
	return func(p *Processor) { p.store = store }
}

// WithLogger overrides the default silent-except-errors logger.
func WithLogger(l *rqlog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// NewProcessor builds a Processor from config, backed by the real
// filesystem unless WithStore overrides it.
func NewProcessor(config ProcessorConfig, opts ...Option) *Processor {
	p := &Processor{
		config:    config,
		store:     storage.NewOS(),
		admission: newAdmission(config.ConcurrencyLimit),
		logger:    rqlog.New(rqlog.LevelError),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Close releases the processor. There is no session handle to free in this
// implementation; it exists for parity with the control surface's
// free_processor operation and to give callers a single place to hook
// cleanup if one is ever needed.
func (p *Processor) Close() bool {
	return true
}

// LastError returns the most recent fatal error message recorded on this
// processor. Under concurrent callers this may lag behind; callers that
// need precise correlation must serialize calls.
func (p *Processor) LastError() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastError
}

func (p *Processor) setLastError(err error) {
	if err == nil {
		return
	}
	p.mu.Lock()
	p.lastError = err.Error()
	p.mu.Unlock()
}

// ProcessResult is the return value of Encode and CreateMetadata.
type ProcessResult struct {
	TotalSymbolsCount  uint64
	TotalRepairSymbols uint64
	SymbolsDirectory   string
	Blocks             []BlockSummary
	LayoutFilePath     string
	// LayoutContent is populated only when the caller requested the
	// manifest inlined rather than written to disk.
	LayoutContent string
}

// BlockSummary is one block's entry in a ProcessResult.
type BlockSummary struct {
	BlockID            uint64
	OTI                codec.OTI
	OriginalOffset     uint64
	Size               uint64
	SymbolsCount       uint64
	SourceSymbolsCount uint64
	Hash               string
}
