package spillover

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetAddContainsDiscard(t *testing.T) {
	ctx := context.Background()

	s, err := NewSet(Options{RAMBudget: 1 << 10})
	assert.Nil(t, err)
	defer s.Close(ctx)

	assert.Nil(t, s.Add(ctx, "a"))
	assert.Nil(t, s.Add(ctx, float64(7)))
	assert.Nil(t, s.Add(ctx, "a")) // duplicate, no-op

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains(ctx, "a"))
	assert.True(t, s.Contains(ctx, float64(7)))
	assert.False(t, s.Contains(ctx, "b"))

	assert.Nil(t, s.Discard(ctx, "a"))
	assert.False(t, s.Contains(ctx, "a"))
	assert.Equal(t, 1, s.Len())

	// discarding an absent member is fine
	assert.Nil(t, s.Discard(ctx, "a"))
	assert.Equal(t, 1, s.Len())
}

func TestSetRange(t *testing.T) {
	ctx := context.Background()

	s, err := NewSet(Options{RAMBudget: 1 << 10})
	assert.Nil(t, err)
	defer s.Close(ctx)

	members := []interface{}{"x", "y", "z"}
	for _, m := range members {
		assert.Nil(t, s.Add(ctx, m))
	}

	var got []interface{}
	err = s.Range(ctx, func(ctx context.Context, member interface{}) bool {
		got = append(got, member)
		return true
	})
	assert.Nil(t, err)
	assert.Equal(t, members, got)
}

func TestSetSpillsUnderPressure(t *testing.T) {
	ctx := context.Background()

	s, err := NewSet(Options{RAMBudget: 32})
	assert.Nil(t, err)
	defer s.Close(ctx)

	for i := 0; i < 26; i++ {
		assert.Nil(t, s.Add(ctx, val6(byte('a'+i))))
	}

	assert.Equal(t, 26, s.Len())

	for i := 0; i < 26; i++ {
		assert.True(t, s.Contains(ctx, val6(byte('a'+i))))
	}

	assert.Nil(t, s.Clear(ctx))
	assert.Equal(t, 0, s.Len())
}
