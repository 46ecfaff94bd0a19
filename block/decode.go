package block

import (
	"fmt"

	"github.com/raptorfec/rqblock/codec"
	"github.com/raptorfec/rqblock/hash"
	"github.com/raptorfec/rqblock/manifest"
	"github.com/raptorfec/rqblock/storage"
)

// Decode reads the manifest at manifestPath, locates each block's symbols
// under symbolsDir, decodes, verifies integrity, and writes the result to
// outputPath. On error, outputPath's contents are unspecified and should
// be discarded by the caller.
func (p *Processor) Decode(symbolsDir, outputPath, manifestPath string) error {
	sl, ok := p.admission.acquire()
	if !ok {
		err := &Error{Kind: KindConcurrencyLimitReached, Message: "concurrency limit reached"}
		p.setLastError(err)
		return err
	}
	defer sl.release()

	manifestBytes, err := p.store.ReadFile(manifestPath)
	if err != nil {
		e := &Error{Kind: KindFileNotFound, Message: fmt.Sprintf("manifest not found: %s", manifestPath), Err: err}
		p.setLastError(e)
		return e
	}

	layout, err := manifest.Parse(manifestBytes)
	if err != nil {
		e := &Error{Kind: KindDecodingFailed, Message: "parse manifest", Err: err}
		p.setLastError(e)
		return e
	}

	if exists, err := p.store.DirExists(symbolsDir); err != nil || !exists {
		e := &Error{Kind: KindInvalidPath, Message: fmt.Sprintf("symbols directory not found: %s", symbolsDir)}
		p.setLastError(e)
		return e
	}

	writer, err := p.store.CreateWriter(outputPath)
	if err != nil {
		e := &Error{Kind: KindIO, Message: "create output file", Err: err}
		p.setLastError(e)
		return e
	}
	defer writer.Close()

	for _, rec := range manifest.SortedBlocks(layout) {
		recovered, err := p.decodeBlock(symbolsDir, rec)
		if err != nil {
			p.setLastError(err)
			return err
		}

		if err := writer.WriteAt(int64(rec.OriginalOffset), recovered); err != nil {
			e := &Error{Kind: KindIO, Message: fmt.Sprintf("write block %d to output", rec.BlockID), Err: err}
			p.setLastError(e)
			return e
		}
	}

	if err := writer.Flush(); err != nil {
		e := &Error{Kind: KindIO, Message: "flush output", Err: err}
		p.setLastError(e)
		return e
	}
	return nil
}

// decodeBlock recovers one block's plaintext bytes, tolerant of missing or
// corrupt symbol files: it fails only when no symbol for the block was
// reachable at all, or the codec never reports completion.
func (p *Processor) decodeBlock(symbolsDir string, rec manifest.BlockRecord) ([]byte, error) {
	if len(rec.Symbols) == 0 {
		p.logger.Debug.Printf("block %d: empty symbol list, skipping", rec.BlockID)
		return nil, nil
	}

	oti, err := codec.ParseOTI(rec.EncoderParams)
	if err != nil {
		return nil, &Error{Kind: KindDecodingFailed, Message: fmt.Sprintf("block %d: %v", rec.BlockID, err)}
	}

	blockDir := storage.Join(symbolsDir, fmt.Sprintf("block_%d", rec.BlockID))
	if ok, _ := p.store.DirExists(blockDir); !ok {
		blockDir = symbolsDir
	}

	dec, err := codec.NewBlockDecoder(oti)
	if err != nil {
		return nil, &Error{Kind: KindDecodingFailed, Message: fmt.Sprintf("block %d: init decoder", rec.BlockID), Err: err}
	}

	var (
		reachedAny bool
		recovered  []byte
		completed  bool
	)

	for _, symbolID := range rec.Symbols {
		raw, err := p.store.ReadFile(storage.Join(blockDir, symbolID))
		if err != nil {
			continue
		}
		reachedAny = true

		pkt, err := codec.DeserializePacket(raw)
		if err != nil {
			p.logger.Debug.Printf("block %d: symbol %s failed to deserialize, skipping", rec.BlockID, symbolID)
			continue
		}

		done, data := dec.Feed(pkt)
		if done {
			recovered = data
			completed = true
			break
		}
	}

	if !reachedAny {
		return nil, &Error{Kind: KindDecodingFailed, Message: fmt.Sprintf("no symbols reachable for block %d", rec.BlockID)}
	}
	if !completed {
		return nil, &Error{Kind: KindDecodingFailed, Message: fmt.Sprintf("unable to recover block %d from available symbols", rec.BlockID)}
	}
	if uint64(len(recovered)) < rec.Size {
		return nil, &Error{Kind: KindDecodingFailed, Message: fmt.Sprintf("block %d: decoded %d bytes, expected at least %d", rec.BlockID, len(recovered), rec.Size)}
	}
	recovered = recovered[:rec.Size]

	if rec.Hash != "" {
		if hash.Sum(recovered) != rec.Hash {
			return nil, &Error{Kind: KindDecodingFailed, Message: fmt.Sprintf("hash mismatch for block %d", rec.BlockID)}
		}
	}

	return recovered, nil
}
