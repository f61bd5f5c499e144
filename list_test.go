package spillover

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestListAppendGetSet(t *testing.T) {
	ctx := context.Background()

	l, err := NewList(Options{RAMBudget: 1 << 10})
	assert.Nil(t, err)
	defer l.Close(ctx)

	assert.Nil(t, l.Append(ctx, "a"))
	assert.Nil(t, l.Append(ctx, "b"))
	assert.Nil(t, l.Append(ctx, "c"))
	assert.Equal(t, 3, l.Len())

	v, err := l.Get(ctx, 1)
	assert.Nil(t, err)
	assert.Equal(t, "b", v)

	assert.Nil(t, l.Set(ctx, 1, "B"))
	v, err = l.Get(ctx, 1)
	assert.Nil(t, err)
	assert.Equal(t, "B", v)

	_, err = l.Get(ctx, 3)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	_, err = l.Get(ctx, -1)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestListPopRenumbers(t *testing.T) {
	ctx := context.Background()

	l, err := NewList(Options{RAMBudget: 1 << 10})
	assert.Nil(t, err)
	defer l.Close(ctx)

	assert.Nil(t, l.Append(ctx, "a"))
	assert.Nil(t, l.Append(ctx, "b"))
	assert.Nil(t, l.Append(ctx, "c"))

	// pop the middle: [a b c] -> [a c], positions 0 and 1
	v, err := l.Pop(ctx, 1)
	assert.Nil(t, err)
	assert.Equal(t, "b", v)
	assert.Equal(t, 2, l.Len())

	v, err = l.Get(ctx, 0)
	assert.Nil(t, err)
	assert.Equal(t, "a", v)
	v, err = l.Get(ctx, 1)
	assert.Nil(t, err)
	assert.Equal(t, "c", v)

	// negative pops count from the end
	v, err = l.Pop(ctx, -1)
	assert.Nil(t, err)
	assert.Equal(t, "c", v)
	assert.Equal(t, 1, l.Len())
}

func TestListInsertShifts(t *testing.T) {
	ctx := context.Background()

	l, err := NewList(Options{RAMBudget: 1 << 10})
	assert.Nil(t, err)
	defer l.Close(ctx)

	assert.Nil(t, l.Append(ctx, "a"))
	assert.Nil(t, l.Append(ctx, "c"))

	assert.Nil(t, l.Insert(ctx, 1, "b"))

	var got []interface{}
	err = l.Range(ctx, func(ctx context.Context, pos int, val interface{}) bool {
		got = append(got, val)
		return true
	})
	assert.Nil(t, err)
	assert.Equal(t, []interface{}{"a", "b", "c"}, got)

	err = l.Insert(ctx, 5, "x")
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestListIndex(t *testing.T) {
	ctx := context.Background()

	l, err := NewList(Options{RAMBudget: 1 << 10})
	assert.Nil(t, err)
	defer l.Close(ctx)

	assert.Nil(t, l.Append(ctx, "a"))
	assert.Nil(t, l.Append(ctx, float64(7)))
	assert.Nil(t, l.Append(ctx, "a"))

	pos, err := l.Index(ctx, float64(7))
	assert.Nil(t, err)
	assert.Equal(t, 1, pos)

	// first match wins
	pos, err = l.Index(ctx, "a")
	assert.Nil(t, err)
	assert.Equal(t, 0, pos)

	_, err = l.Index(ctx, "ghost")
	assert.True(t, errors.Is(err, ErrKeyNotFound))
}

func TestListOrderSurvivesSpills(t *testing.T) {
	ctx := context.Background()

	l, err := NewList(Options{RAMBudget: 32})
	assert.Nil(t, err)
	defer l.Close(ctx)

	for i := 0; i < 20; i++ {
		assert.Nil(t, l.Append(ctx, val6(byte('a'+i))))
	}

	var got []interface{}
	err = l.Range(ctx, func(ctx context.Context, pos int, val interface{}) bool {
		assert.Equal(t, len(got), pos)
		got = append(got, val)
		return true
	})
	assert.Nil(t, err)
	assert.Len(t, got, 20)

	for i, v := range got {
		assert.Equal(t, val6(byte('a'+i)), v)
	}
}
