package spillover

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"spillover/registry"
)

// Codec turns a value into a byte record and back. Decode(Encode(v)) must be
// equal to v for every value the codec supports; identity is not preserved.
// The engine leans on that to hand every caller a value of its own.
type Codec interface {
	Name() string

	Encode(v interface{}) ([]byte, error)
	Decode(b []byte) (interface{}, error)
}

var codecRegistryName = "_codecs"

var (
	JSONCodecName = "json"
	RawCodecName  = "raw"
)

var codecs = registry.MustGet(codecRegistryName)

func init() {
	berr := BundleErr{}

	berr.
		Add(RegisterCodec(&JSONCodec{})).
		Add(RegisterCodec(&RawCodec{}))

	if berr.Error() != nil {
		panic(errors.Wrap(berr.Error(), "register codec fail"))
	}
}

func RegisterCodec(c Codec) error {
	return codecs.Register(c.Name(), c)
}

func GetCodec(name string) (Codec, error) {
	v, ok := codecs.Get(name)
	if !ok {
		return nil, errors.Errorf("no such codec : %s", name)
	}

	return v.(Codec), nil
}

// ====== json ========

// JSONCodec is the default codec. Its supported domain is JSON-native
// values: nil, bool, float64, string, []interface{} and
// map[string]interface{}. Other Go values encode fine but decode to their
// JSON-native shape.
type JSONCodec struct{}

func (jc *JSONCodec) Name() string {
	return JSONCodecName
}

func (jc *JSONCodec) Encode(v interface{}) ([]byte, error) {
	b, err := jsoniter.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(ErrUnsupportedValue, err.Error())
	}

	return b, nil
}

func (jc *JSONCodec) Decode(b []byte) (interface{}, error) {
	var v interface{}

	err := jsoniter.Unmarshal(b, &v)
	if err != nil {
		return nil, errors.Wrap(ErrUnsupportedValue, err.Error())
	}

	return v, nil
}

// ========= raw ==========

// RawCodec passes []byte values through untouched.
type RawCodec struct{}

func (rc *RawCodec) Name() string {
	return RawCodecName
}

func (rc *RawCodec) Encode(v interface{}) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, errors.Wrap(ErrUnsupportedValue, "raw codec wants []byte")
	}

	tb := make([]byte, len(b))
	copy(tb, b)

	return tb, nil
}

func (rc *RawCodec) Decode(b []byte) (interface{}, error) {
	tb := make([]byte, len(b))
	copy(tb, b)

	return tb, nil
}
