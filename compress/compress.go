package compress

import (
	"io"

	"github.com/klauspost/compress/s2"
	"github.com/pkg/errors"

	"spillover/registry"
)

// Compressor shrinks spilled records on their way to the backing file.
type Compressor interface {
	Name() string

	Compress(src io.Reader, dst io.Writer) error
	Decompress(src io.Reader, dst io.Writer) error
}

var registryName = "_compressors"

var (
	S2Name   = "s2"
	NoopName = "noop"
)

var (
	s2compressor   Compressor = &S2Compressor{}
	noopcompressor Compressor = &NoopCompressor{}
)

var r = registry.MustGet(registryName)

func init() {
	if err := Register(s2compressor); err != nil {
		panic(errors.Wrap(err, "register compressor fail"))
	}
	if err := Register(noopcompressor); err != nil {
		panic(errors.Wrap(err, "register compressor fail"))
	}
}

func Register(c Compressor) error {
	return r.Register(c.Name(), c)
}

// Get returns the named compressor, falling back to noop.
func Get(name string) Compressor {
	v, ok := r.Get(name)
	if ok {
		return v.(Compressor)
	}

	return noopcompressor
}

// ====== snappy2 ========

type S2Compressor struct{}

func (sc *S2Compressor) Name() string {
	return S2Name
}

func (sc *S2Compressor) Compress(src io.Reader, dst io.Writer) error {
	enc := s2.NewWriter(dst)
	_, err := io.Copy(enc, src)
	if err != nil {
		enc.Close()
		return err
	}

	return enc.Close()
}

func (sc *S2Compressor) Decompress(src io.Reader, dst io.Writer) error {
	dec := s2.NewReader(src)
	_, err := io.Copy(dst, dec)
	return err
}

// ========= noop ==========

type NoopCompressor struct{}

func (nc *NoopCompressor) Name() string {
	return NoopName
}

func (nc *NoopCompressor) Compress(src io.Reader, dst io.Writer) error {
	_, err := io.Copy(dst, src)
	return err
}

func (nc *NoopCompressor) Decompress(src io.Reader, dst io.Writer) error {
	_, err := io.Copy(dst, src)
	return err
}
