// Command rqblock is a CLI wrapper around the RaptorQ block processor: it
// exercises the same encode/metadata/decode/plan operations the control
// surface exposes to language-neutral callers.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/raptorfec/rqblock/block"
	"github.com/raptorfec/rqblock/rqlog"
)

const (
	exitSuccess = 0
	exitUsage   = 1
	exitFailure = 2
)

func printUsage() {
	fmt.Fprintf(os.Stderr, `rqblock %s

Usage:
  rqblock encode   -in <file> -out <dir> [-block-size N] [-force-single]
  rqblock metadata -in <file> -out <dir> [-block-size N] [-inline]
  rqblock decode   -symbols <dir> -manifest <file> -out <file>
  rqblock plan     -in <file>
  rqblock version

Common flags:
  -symbol-size N        (default %d)
  -redundancy N          (default %d)
  -max-memory-mb N       (default %d)
  -concurrency N         (default %d)
  -verbose
`, block.Version, defaultConfig().SymbolSize, defaultConfig().RedundancyFactor, defaultConfig().MaxMemoryMB, defaultConfig().ConcurrencyLimit)
}

func defaultConfig() block.ProcessorConfig {
	return block.DefaultProcessorConfig()
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitUsage)
	}

	cmd := os.Args[1]
	if cmd == "version" {
		fmt.Println(block.Version)
		os.Exit(exitSuccess)
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	in := fs.String("in", "", "input file path")
	out := fs.String("out", "", "output directory or file path")
	symbolsDir := fs.String("symbols", "", "symbols directory")
	manifestPath := fs.String("manifest", "", "manifest path")
	blockSize := fs.Uint64("block-size", 0, "requested block size in bytes (0 = let the planner decide)")
	forceSingle := fs.Bool("force-single", false, "force single-block encoding")
	inline := fs.Bool("inline", false, "return manifest content inline instead of writing it to disk")
	symbolSize := fs.Uint("symbol-size", uint(defaultConfig().SymbolSize), "bytes per symbol")
	redundancy := fs.Uint("redundancy", uint(defaultConfig().RedundancyFactor), "redundancy factor")
	maxMemoryMB := fs.Uint64("max-memory-mb", defaultConfig().MaxMemoryMB, "peak memory ceiling in MiB")
	concurrency := fs.Uint64("concurrency", defaultConfig().ConcurrencyLimit, "max concurrent operations")
	verbose := fs.Bool("verbose", false, "enable debug logging")

	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(exitUsage)
	}

	config := block.ProcessorConfig{
		SymbolSize:       uint16(*symbolSize),
		RedundancyFactor: uint8(*redundancy),
		MaxMemoryMB:      *maxMemoryMB,
		ConcurrencyLimit: *concurrency,
	}

	level := rqlog.LevelError
	if *verbose {
		level = rqlog.LevelDebug
	}
	p := block.NewProcessor(config, block.WithLogger(rqlog.New(level)))

	var err error
	switch cmd {
	case "encode":
		err = runEncode(p, *in, *out, *blockSize, *forceSingle)
	case "metadata":
		err = runMetadata(p, *in, *out, *blockSize, *inline)
	case "decode":
		err = runDecode(p, *symbolsDir, *out, *manifestPath)
	case "plan":
		err = runPlan(p, *in)
	default:
		printUsage()
		os.Exit(exitUsage)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "rqblock: %v\n", err)
		os.Exit(exitFailure)
	}
}

func runEncode(p *block.Processor, in, out string, blockSize uint64, forceSingle bool) error {
	if in == "" || out == "" {
		return fmt.Errorf("encode requires -in and -out")
	}
	result, err := p.Encode(in, out, block.EncodeOptions{RequestedBlockSize: blockSize, ForceSingleBlock: forceSingle})
	if err != nil {
		return err
	}
	return printResult(result)
}

func runMetadata(p *block.Processor, in, out string, blockSize uint64, inline bool) error {
	if in == "" || out == "" {
		return fmt.Errorf("metadata requires -in and -out")
	}
	result, err := p.CreateMetadata(in, out, block.MetadataOptions{RequestedBlockSize: blockSize, ReturnLayoutInline: inline})
	if err != nil {
		return err
	}
	return printResult(result)
}

func runDecode(p *block.Processor, symbolsDir, out, manifestPath string) error {
	if symbolsDir == "" || out == "" || manifestPath == "" {
		return fmt.Errorf("decode requires -symbols, -out, and -manifest")
	}
	return p.Decode(symbolsDir, out, manifestPath)
}

func runPlan(p *block.Processor, in string) error {
	if in == "" {
		return fmt.Errorf("plan requires -in")
	}
	info, err := os.Stat(in)
	if err != nil {
		return fmt.Errorf("stat %s: %w", in, err)
	}
	recommended := p.RecommendedBlockSize(uint64(info.Size()))
	fmt.Println(recommended)
	return nil
}

func printResult(result *block.ProcessResult) error {
	body, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("render result: %w", err)
	}
	fmt.Println(string(body))
	return nil
}
