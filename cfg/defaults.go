// Package cfg holds the package-level tunables for the RaptorQ block codec:
// default symbol size, redundancy factor, memory ceiling, and concurrency
// limit, plus the planner/estimator constants those defaults are checked
// against.
package cfg

import "log"

const (
	// DefaultSymbolSize is the per-symbol byte count used when a caller does
	// not specify one. It is set to 65535, the largest symbol size the
	// codec allows.
	DefaultSymbolSize uint16 = 65535

	// DefaultRedundancyFactor is the ratio of total emitted symbols to
	// source symbols absent an explicit override.
	DefaultRedundancyFactor uint8 = 4

	// DefaultMaxMemoryMB is the peak working-set ceiling per in-flight
	// operation, in MiB.
	DefaultMaxMemoryMB uint64 = 1024

	// DefaultConcurrencyLimit is the maximum number of simultaneous
	// encode/decode operations per processor.
	DefaultConcurrencyLimit uint64 = 4
)

const (
	// BytesPerMiB converts MiB-denominated config values to bytes.
	BytesPerMiB uint64 = 1 << 20

	// MemorySafetyMargin is the planner's safety factor for codec overhead
	// and ancillary allocations: the configured ceiling is divided by this
	// factor, so the planner works within two thirds of it.
	MemorySafetyMargin = 1.5

	// MemoryOverheadFactor is the multiplier applied to raw data size to
	// estimate the codec's peak working set for one block.
	MemoryOverheadFactor = 2.5
)

func init() {
	if DefaultSymbolSize == 0 {
		log.Fatal("cfg: DefaultSymbolSize must be non-zero")
	}
	if DefaultRedundancyFactor < 1 {
		log.Fatal("cfg: DefaultRedundancyFactor must be at least 1")
	}
	if DefaultMaxMemoryMB == 0 {
		log.Fatal("cfg: DefaultMaxMemoryMB must be non-zero")
	}
	if DefaultConcurrencyLimit == 0 {
		log.Fatal("cfg: DefaultConcurrencyLimit must be non-zero")
	}
}
