package compress

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestS2RoundTrip(t *testing.T) {
	c := Get(S2Name)
	assert.Equal(t, S2Name, c.Name())

	src := strings.Repeat("hello longalong ", 100)

	packed := &bytes.Buffer{}
	err := c.Compress(strings.NewReader(src), packed)
	assert.Nil(t, err)
	assert.Less(t, packed.Len(), len(src))

	unpacked := &bytes.Buffer{}
	err = c.Decompress(packed, unpacked)
	assert.Nil(t, err)
	assert.Equal(t, src, unpacked.String())
}

func TestNoopRoundTrip(t *testing.T) {
	c := Get(NoopName)

	src := "untouched bytes"

	packed := &bytes.Buffer{}
	err := c.Compress(strings.NewReader(src), packed)
	assert.Nil(t, err)
	assert.Equal(t, src, packed.String())

	unpacked := &bytes.Buffer{}
	err = c.Decompress(packed, unpacked)
	assert.Nil(t, err)
	assert.Equal(t, src, unpacked.String())
}

func TestGetFallsBackToNoop(t *testing.T) {
	c := Get("no-such-compressor")
	assert.Equal(t, NoopName, c.Name())
}
