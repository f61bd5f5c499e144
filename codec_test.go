package spillover

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestJSONCodecRoundTrip(t *testing.T) {
	c, err := GetCodec(JSONCodecName)
	assert.Nil(t, err)

	vals := []interface{}{
		nil,
		true,
		float64(42),
		"hello longstore",
		[]interface{}{"a", float64(1), nil},
		map[string]interface{}{"k": "v", "n": float64(3)},
	}

	for _, v := range vals {
		b, err := c.Encode(v)
		assert.Nil(t, err)

		got, err := c.Decode(b)
		assert.Nil(t, err)
		assert.Equal(t, v, got)
	}
}

func TestJSONCodecUnsupported(t *testing.T) {
	c, err := GetCodec(JSONCodecName)
	assert.Nil(t, err)

	_, err = c.Encode(make(chan int))
	assert.True(t, errors.Is(err, ErrUnsupportedValue))
}

func TestRawCodec(t *testing.T) {
	c, err := GetCodec(RawCodecName)
	assert.Nil(t, err)

	ov := []byte("raw bytes 001")

	b, err := c.Encode(ov)
	assert.Nil(t, err)
	assert.Equal(t, ov, b)

	// encode copies, mutation of the source must not leak through
	ov[0] = 'X'
	assert.NotEqual(t, ov, b)

	got, err := c.Decode(b)
	assert.Nil(t, err)
	assert.Equal(t, b, got.([]byte))

	_, err = c.Encode("not bytes")
	assert.True(t, errors.Is(err, ErrUnsupportedValue))
}

func TestGetCodecUnknown(t *testing.T) {
	_, err := GetCodec("no-such-codec")
	assert.NotNil(t, err)
}
