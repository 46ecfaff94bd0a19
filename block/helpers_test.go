package block

import (
	"github.com/raptorfec/rqblock/storage"
	"github.com/spf13/afero"
)

// generate produces the deterministic test generator spec scenarios use:
// byte i -> i mod 256.
func generate(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 256)
	}
	return data
}

func newMemProcessor(config ProcessorConfig) (*Processor, afero.Fs) {
	fs := afero.NewMemMapFs()
	p := NewProcessor(config, WithStore(storage.New(fs)))
	return p, fs
}
