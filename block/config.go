package block

import "github.com/raptorfec/rqblock/cfg"

// ProcessorConfig is the immutable configuration a Processor is built with.
type ProcessorConfig struct {
	// SymbolSize is the per-symbol byte count, bounded by the codec at 65535.
	SymbolSize uint16
	// RedundancyFactor is the ratio of total emitted symbols to source
	// symbols (4 means roughly 4x source symbols emitted).
	RedundancyFactor uint8
	// MaxMemoryMB is the peak working-set ceiling per in-flight operation.
	MaxMemoryMB uint64
	// ConcurrencyLimit is the max simultaneous encode/decode operations.
	ConcurrencyLimit uint64
}

// DefaultProcessorConfig returns the package's recommended defaults.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		SymbolSize:       cfg.DefaultSymbolSize,
		RedundancyFactor: cfg.DefaultRedundancyFactor,
		MaxMemoryMB:      cfg.DefaultMaxMemoryMB,
		ConcurrencyLimit: cfg.DefaultConcurrencyLimit,
	}
}
