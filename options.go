package spillover

import (
	"github.com/imdario/mergo"
	"github.com/pkg/errors"

	"spillover/compress"
)

// Options configures one container. Zero fields take defaults.
type Options struct {
	// RAMBudget bounds the total encoded size of resident entries, in bytes.
	RAMBudget int64

	// Path of the backing file. Empty means an anonymous temp file. The file
	// is scratch state either way: truncated on open, removed on Close.
	Path string

	// Codec is a registered codec name.
	Codec string

	// Compression is a registered compressor name applied to spilled
	// records. Defaults to noop.
	Compression string

	// Slack is the capacity rounding unit of the disk store.
	Slack int

	// KeyCacheSize bounds the memo of key encodings kept by the Dict and
	// Set facades. Zero keeps the default; negative disables the memo.
	KeyCacheSize int

	// CompactionRatio is the fragmentation ratio above which
	// CompactIfNeeded rewrites the backing file.
	CompactionRatio float64

	// OnSpill fires after an entry's bytes land on disk.
	OnSpill func(key string, size int64)
	// OnPromote fires after a spilled entry is decoded back into memory.
	OnPromote func(key string, size int64)
	// OnEvict fires when a persisted victim leaves the hot cache.
	OnEvict func(key string, size int64)
}

var defaultOptions = Options{
	RAMBudget:       10000,
	Codec:           JSONCodecName,
	Compression:     compress.NoopName,
	Slack:           64,
	KeyCacheSize:    256,
	CompactionRatio: 0.5,
}

func (o *Options) valid() error {
	err := mergo.Merge(o, defaultOptions)
	if err != nil {
		return errors.Wrap(err, "merge default options fail")
	}

	if o.RAMBudget < 0 {
		return errors.Wrap(ErrOutOfBudget, "negative ram budget")
	}

	return nil
}
