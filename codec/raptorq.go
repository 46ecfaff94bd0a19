// Package codec wraps the RaptorQ (RFC 6330) primitive the block processor
// runs each block through: github.com/xssnick/raptorq. It is treated as an
// opaque collaborator — this package owns only the OTI encoding, the
// on-disk symbol packet format, and panic containment around decode.
package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/xssnick/raptorq"
)

// OTISize is the fixed length of the object transmission information this
// package derives for a block.
const OTISize = 12

// OTI is the 12-byte object transmission information a decoder needs to
// reconstruct a block's codec state. It is opaque to callers outside this
// package beyond its two constituent fields.
type OTI [OTISize]byte

// NewOTI derives an OTI from a block's plaintext size and the symbol size
// the codec is configured with.
func NewOTI(dataSize uint64, symbolSize uint16) OTI {
	var o OTI
	binary.BigEndian.PutUint64(o[0:8], dataSize)
	binary.BigEndian.PutUint16(o[8:10], symbolSize)
	return o
}

// ParseOTI reads an OTI from at least OTISize leading bytes.
func ParseOTI(b []byte) (OTI, error) {
	if len(b) < OTISize {
		return OTI{}, fmt.Errorf("codec: encoder parameters too short: need %d bytes, got %d", OTISize, len(b))
	}
	var o OTI
	copy(o[:], b[:OTISize])
	return o, nil
}

// Bytes returns the OTI's wire representation.
func (o OTI) Bytes() []byte {
	return o[:]
}

// DataSize returns the plaintext block size the OTI was derived from.
func (o OTI) DataSize() uint64 {
	return binary.BigEndian.Uint64(o[0:8])
}

// SymbolSize returns the per-symbol byte count the OTI was derived with.
func (o OTI) SymbolSize() uint16 {
	return binary.BigEndian.Uint16(o[8:10])
}

// Packet is the on-disk form of one RaptorQ encoding symbol: its encoding
// symbol ID (ESI) followed by the raw symbol payload the codec produced.
// The codec's own AddSymbol/GenSymbol API takes the ESI and payload as
// separate arguments, so this package's own framing carries the ESI
// alongside the bytes that get hashed and stored.
type Packet struct {
	ESI  uint32
	Data []byte
}

// Serialize renders a packet to its stored byte form.
func (p Packet) Serialize() []byte {
	buf := make([]byte, 4+len(p.Data))
	binary.BigEndian.PutUint32(buf[0:4], p.ESI)
	copy(buf[4:], p.Data)
	return buf
}

// DeserializePacket parses bytes previously produced by Packet.Serialize.
func DeserializePacket(raw []byte) (Packet, error) {
	if len(raw) < 4 {
		return Packet{}, fmt.Errorf("codec: symbol packet too short: %d bytes", len(raw))
	}
	data := make([]byte, len(raw)-4)
	copy(data, raw[4:])
	return Packet{ESI: binary.BigEndian.Uint32(raw[0:4]), Data: data}, nil
}

// symbolEncoder is the subset of github.com/xssnick/raptorq's encoder API
// this package depends on.
type symbolEncoder interface {
	GenSymbol(esi uint32) []byte
}

// symbolDecoder is the subset of github.com/xssnick/raptorq's decoder API
// this package depends on.
type symbolDecoder interface {
	AddSymbol(symbolID uint32, data []byte) (bool, error)
	Decode() (bool, []byte, error)
}

// BlockEncoder produces RaptorQ source and repair symbols for one block's
// plaintext bytes.
type BlockEncoder struct {
	oti OTI
}

// NewBlockEncoder builds an encoder bound to the symbol size recorded in oti.
func NewBlockEncoder(oti OTI) *BlockEncoder {
	return &BlockEncoder{oti: oti}
}

// Encode returns sourceCount source symbols (ESI 0..sourceCount-1) followed
// by repairCount repair symbols (ESI sourceCount..sourceCount+repairCount-1).
// GenSymbol(i) itself decides source-vs-repair by whether i is below the
// codec's internal source-symbol count, which this package always keeps in
// lockstep with sourceCount.
func (e *BlockEncoder) Encode(data []byte, sourceCount, repairCount uint32) ([]Packet, error) {
	rq := raptorq.NewRaptorQ(e.oti.SymbolSize())
	enc, err := rq.CreateEncoder(data)
	if err != nil {
		return nil, fmt.Errorf("codec: create encoder: %w", err)
	}
	var sym symbolEncoder = enc

	total := sourceCount + repairCount
	packets := make([]Packet, 0, total)
	for esi := uint32(0); esi < total; esi++ {
		packets = append(packets, Packet{ESI: esi, Data: sym.GenSymbol(esi)})
	}
	return packets, nil
}

// BlockDecoder reassembles one block's plaintext bytes from a stream of
// symbols fed in any order, stopping as soon as the underlying codec
// reports it holds enough information to recover the original data.
type BlockDecoder struct {
	dec symbolDecoder
}

// NewBlockDecoder initializes decoder state from an OTI.
func NewBlockDecoder(oti OTI) (*BlockDecoder, error) {
	rq := raptorq.NewRaptorQ(oti.SymbolSize())
	dec, err := rq.CreateDecoder(oti.DataSize())
	if err != nil {
		return nil, fmt.Errorf("codec: create decoder: %w", err)
	}
	return &BlockDecoder{dec: dec}, nil
}

// Feed submits one packet to the decoder. It never panics: a codec-internal
// panic while ingesting a malformed packet is converted into (false, nil),
// which callers treat as "this symbol did not help, move on".
func (d *BlockDecoder) Feed(pkt Packet) (done bool, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			done, data = false, nil
		}
	}()

	canTry, err := d.dec.AddSymbol(pkt.ESI, pkt.Data)
	if err != nil || !canTry {
		return false, nil
	}
	ok, result, err := d.dec.Decode()
	if err != nil || !ok {
		return false, nil
	}
	return true, result
}
