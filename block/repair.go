package block

import "math"

// repairSymbolCount computes the number of repair symbols for a block of
// size bytes, given a symbol size and redundancy factor.
func repairSymbolCount(size uint64, symbolSize uint16, redundancy uint8) uint64 {
	s := uint64(symbolSize)
	if size <= s {
		return uint64(redundancy)
	}
	d := float64(size)
	r := float64(redundancy)
	return uint64(math.Ceil(d * (r - 1) / float64(s)))
}

// sourceSymbolCount computes the number of source symbols the codec derives
// from a block's OTI.
func sourceSymbolCount(size uint64, symbolSize uint16) uint64 {
	s := uint64(symbolSize)
	return (size + s - 1) / s
}
