package block

import (
	"math"

	"github.com/raptorfec/rqblock/cfg"
)

// RecommendedBlockSize derives a block size from fileSize and the
// processor's memory ceiling. A return of 0 is a sentinel meaning "do not
// partition; encode as one block", not a size.
func (p *Processor) RecommendedBlockSize(fileSize uint64) uint64 {
	ceilingBytes := p.config.MaxMemoryMB * cfg.BytesPerMiB
	safe := uint64(float64(ceilingBytes) / cfg.MemorySafetyMargin)

	if fileSize < safe {
		return 0
	}

	target := safe / 4
	symbolSize := uint64(p.config.SymbolSize)
	blocks := target / symbolSize
	if blocks < 1 {
		blocks = 1
	}
	return blocks * symbolSize
}

// estimateMemoryMB is the peak-memory estimator. It is consulted only in
// forced single-block mode; planner-chosen and caller-requested block sizes
// are not checked against it.
func estimateMemoryMB(dataSize uint64) uint64 {
	dataMB := math.Ceil(float64(dataSize) / float64(cfg.BytesPerMiB))
	return uint64(math.Ceil(dataMB * cfg.MemoryOverheadFactor))
}
