package block

import (
	"fmt"

	"github.com/raptorfec/rqblock/codec"
	"github.com/raptorfec/rqblock/hash"
	"github.com/raptorfec/rqblock/manifest"
	"github.com/raptorfec/rqblock/storage"
)

// EncodeOptions controls one Encode call.
type EncodeOptions struct {
	// RequestedBlockSize, if non-zero, overrides the memory planner's
	// recommendation.
	RequestedBlockSize uint64
	// ForceSingleBlock, if set, encodes the entire file as one block
	// regardless of the planner, subject to the memory-ceiling check.
	ForceSingleBlock bool
}

// MetadataOptions controls one CreateMetadata call.
type MetadataOptions struct {
	RequestedBlockSize uint64
	// ReturnLayoutInline, if set, returns the manifest body in the result
	// instead of writing it to disk.
	ReturnLayoutInline bool
}

// Encode partitions inputPath into blocks, encodes each with RaptorQ, and
// writes symbol files and a manifest under outputDir.
func (p *Processor) Encode(inputPath, outputDir string, opts EncodeOptions) (*ProcessResult, error) {
	return p.process(inputPath, outputDir, opts.RequestedBlockSize, opts.ForceSingleBlock, false, false)
}

// CreateMetadata performs every step Encode does except writing symbol
// files; the manifest still records every symbol_id, since identifiers are
// a deterministic function of the encoded bytes.
func (p *Processor) CreateMetadata(inputPath, outputDir string, opts MetadataOptions) (*ProcessResult, error) {
	return p.process(inputPath, outputDir, opts.RequestedBlockSize, false, true, opts.ReturnLayoutInline)
}

func (p *Processor) process(inputPath, outputDir string, requestedBlockSize uint64, forceSingleBlock, metadataOnly, inlineLayout bool) (*ProcessResult, error) {
	sl, ok := p.admission.acquire()
	if !ok {
		err := &Error{Kind: KindConcurrencyLimitReached, Message: "concurrency limit reached"}
		p.setLastError(err)
		return nil, err
	}
	defer sl.release()

	reader, err := p.store.OpenReader(inputPath)
	if err != nil {
		e := &Error{Kind: KindFileNotFound, Message: fmt.Sprintf("input file not found: %s", inputPath), Err: err}
		p.setLastError(e)
		return nil, e
	}
	defer reader.Close()

	fileSize := uint64(reader.Size())
	if fileSize == 0 {
		e := &Error{Kind: KindEncodingFailed, Message: fmt.Sprintf("input file is empty: %s", inputPath)}
		p.setLastError(e)
		return nil, e
	}

	blockSize, err := p.resolveBlockSize(fileSize, requestedBlockSize, forceSingleBlock)
	if err != nil {
		p.setLastError(err)
		return nil, err
	}

	if !metadataOnly {
		if err := p.store.CreateDirAll(outputDir); err != nil {
			e := &Error{Kind: KindIO, Message: "create output directory", Err: err}
			p.setLastError(e)
			return nil, e
		}
	}

	var (
		summaries          []BlockSummary
		records            []manifest.BlockRecord
		totalSymbols       uint64
		totalRepairSymbols uint64
	)

	blockID := uint64(0)
	for offset := uint64(0); offset < fileSize; offset += blockSize {
		size := blockSize
		if remaining := fileSize - offset; size > remaining {
			size = remaining
		}
		if size == 0 {
			break
		}

		blockDir := storage.Join(outputDir, fmt.Sprintf("block_%d", blockID))
		if !metadataOnly {
			if err := p.store.CreateDirAll(blockDir); err != nil {
				e := &Error{Kind: KindIO, Message: "create block directory", Err: err}
				p.setLastError(e)
				return nil, e
			}
		}

		data := make([]byte, size)
		if _, err := reader.ReadAt(int64(offset), data); err != nil {
			e := &Error{Kind: KindIO, Message: fmt.Sprintf("read block %d", blockID), Err: err}
			p.setLastError(e)
			return nil, e
		}

		blockHash := hash.Sum(data)
		oti := codec.NewOTI(size, p.config.SymbolSize)
		sourceCount := sourceSymbolCount(size, p.config.SymbolSize)
		repairCount := repairSymbolCount(size, p.config.SymbolSize, p.config.RedundancyFactor)

		enc := codec.NewBlockEncoder(oti)
		packets, err := enc.Encode(data, uint32(sourceCount), uint32(repairCount))
		if err != nil {
			e := &Error{Kind: KindEncodingFailed, Message: fmt.Sprintf("raptorq encode failed for block %d", blockID), Err: err}
			p.setLastError(e)
			return nil, e
		}

		symbolIDs := make([]string, 0, len(packets))
		for _, pkt := range packets {
			raw := pkt.Serialize()
			symbolID := hash.Sum(raw)

			if !metadataOnly {
				w, err := p.store.CreateWriter(storage.Join(blockDir, symbolID))
				if err != nil {
					e := &Error{Kind: KindIO, Message: "create symbol file", Err: err}
					p.setLastError(e)
					return nil, e
				}
				if err := w.WriteAt(0, raw); err != nil {
					w.Close()
					e := &Error{Kind: KindIO, Message: "write symbol file", Err: err}
					p.setLastError(e)
					return nil, e
				}
				if err := w.Flush(); err != nil {
					w.Close()
					e := &Error{Kind: KindIO, Message: "flush symbol file", Err: err}
					p.setLastError(e)
					return nil, e
				}
				w.Close()
			}

			symbolIDs = append(symbolIDs, symbolID)
		}

		p.logger.Debug.Printf("block %d: offset=%d size=%d source=%d repair=%d symbols=%d", blockID, offset, size, sourceCount, repairCount, len(symbolIDs))

		summaries = append(summaries, BlockSummary{
			BlockID:            blockID,
			OTI:                oti,
			OriginalOffset:     offset,
			Size:               size,
			SymbolsCount:       uint64(len(symbolIDs)),
			SourceSymbolsCount: sourceCount,
			Hash:               blockHash,
		})
		records = append(records, manifest.BlockRecord{
			BlockID:        blockID,
			EncoderParams:  manifest.OctetArray(oti.Bytes()),
			OriginalOffset: offset,
			Size:           size,
			Symbols:        symbolIDs,
			Hash:           blockHash,
		})

		totalSymbols += uint64(len(symbolIDs))
		totalRepairSymbols += repairCount
		blockID++
	}

	if len(records) == 0 {
		e := &Error{Kind: KindEncodingFailed, Message: "no blocks produced"}
		p.setLastError(e)
		return nil, e
	}

	body, err := manifest.Marshal(manifest.Layout{Blocks: records})
	if err != nil {
		e := &Error{Kind: KindEncodingFailed, Message: "serialize manifest", Err: err}
		p.setLastError(e)
		return nil, e
	}

	layoutPath := storage.Join(outputDir, manifest.Filename)
	result := &ProcessResult{
		TotalSymbolsCount:  totalSymbols,
		TotalRepairSymbols: totalRepairSymbols,
		SymbolsDirectory:   outputDir,
		Blocks:             summaries,
		LayoutFilePath:     layoutPath,
	}

	if inlineLayout {
		result.LayoutContent = string(body)
		return result, nil
	}

	if err := p.store.WriteFile(layoutPath, body); err != nil {
		e := &Error{Kind: KindIO, Message: "write manifest", Err: err}
		p.setLastError(e)
		return nil, e
	}
	return result, nil
}

// resolveBlockSize implements §4.5's block-size resolution order.
func (p *Processor) resolveBlockSize(fileSize, requested uint64, forceSingle bool) (uint64, error) {
	if forceSingle {
		required := estimateMemoryMB(fileSize)
		if required > p.config.MaxMemoryMB {
			return 0, &Error{Kind: KindMemoryLimitExceeded, Required: required, Available: p.config.MaxMemoryMB}
		}
		return fileSize, nil
	}

	if requested == 0 {
		recommended := p.RecommendedBlockSize(fileSize)
		if recommended == 0 {
			return fileSize, nil
		}
		return recommended, nil
	}

	return requested, nil
}
