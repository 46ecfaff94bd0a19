// Package manifest serializes and parses the layout manifest: the single
// JSON document listing every block an encode produced, their OTIs,
// offsets, sizes, symbol identifiers, and integrity hashes.
package manifest

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Filename is the manifest's canonical name at the root of a symbols
// directory.
const Filename = "_raptorq_layout.json"

// OctetArray renders as a JSON array of small integers rather than
// encoding/json's default base64 string, matching the manifest schema's
// "array of 12 octets" shape for encoder_parameters.
type OctetArray []byte

// MarshalJSON implements json.Marshaler.
func (a OctetArray) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(a))
	for i, b := range a {
		ints[i] = int(b)
	}
	return json.Marshal(ints)
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *OctetArray) UnmarshalJSON(data []byte) error {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return fmt.Errorf("manifest: encoder_parameters: %w", err)
	}
	buf := make([]byte, len(ints))
	for i, v := range ints {
		buf[i] = byte(v)
	}
	*a = buf
	return nil
}

// BlockRecord is one block's entry in the layout manifest.
type BlockRecord struct {
	BlockID        uint64     `json:"block_id"`
	EncoderParams  OctetArray `json:"encoder_parameters"`
	OriginalOffset uint64     `json:"original_offset"`
	Size           uint64     `json:"size"`
	Symbols        []string   `json:"symbols"`
	Hash           string     `json:"hash"`
}

// Layout is the top-level manifest document.
type Layout struct {
	Blocks []BlockRecord `json:"blocks"`
}

// Marshal renders a layout as pretty-printed, UTF-8 JSON.
func Marshal(l Layout) ([]byte, error) {
	body, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("manifest: marshal: %w", err)
	}
	return body, nil
}

// Parse reads a layout document, rejecting one whose blocks array is
// missing or empty.
func Parse(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("manifest: parse: %w", err)
	}
	if len(l.Blocks) == 0 {
		return Layout{}, fmt.Errorf("manifest: blocks array is missing or empty")
	}
	return l, nil
}

// SortedBlocks returns a copy of the layout's blocks ordered ascending by
// block_id; the on-disk order is not significant.
func SortedBlocks(l Layout) []BlockRecord {
	blocks := make([]BlockRecord, len(l.Blocks))
	copy(blocks, l.Blocks)
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].BlockID < blocks[j].BlockID })
	return blocks
}
