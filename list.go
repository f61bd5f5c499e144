package spillover

import (
	"bytes"
	"context"

	"github.com/pkg/errors"
)

// List is a sequence-shaped container over one engine. Elements are
// addressed by position; inserting or removing shifts every subsequent
// position in one directory update, so positions stay contiguous.
type List struct {
	engine *Engine
}

func NewList(opt Options) (*List, error) {
	eng, err := NewEngine(opt)
	if err != nil {
		return nil, err
	}

	return &List{engine: eng}, nil
}

func (l *List) Append(ctx context.Context, val interface{}) error {
	return l.engine.Append(ctx, val)
}

func (l *List) Insert(ctx context.Context, pos int, val interface{}) error {
	return l.engine.InsertAt(ctx, pos, val)
}

func (l *List) Get(ctx context.Context, pos int) (interface{}, error) {
	return l.engine.GetAt(ctx, pos)
}

func (l *List) Set(ctx context.Context, pos int, val interface{}) error {
	return l.engine.SetAt(ctx, pos, val)
}

// Pop removes and returns the element at pos. A negative pos counts from
// the end, so -1 pops the last element.
func (l *List) Pop(ctx context.Context, pos int) (interface{}, error) {
	if pos < 0 {
		pos += l.engine.Len()
	}

	return l.engine.PopAt(ctx, pos)
}

// Index returns the position of the first element equal to val. Equality is
// judged on codec encodings, so values compare the way they round-trip.
func (l *List) Index(ctx context.Context, val interface{}) (int, error) {
	want, err := l.engine.codec.Encode(val)
	if err != nil {
		return 0, err
	}

	found := -1
	pos := 0

	err = l.engine.Range(ctx, func(ctx context.Context, _ string, v interface{}) bool {
		b, cerr := l.engine.codec.Encode(v)
		if cerr == nil && bytes.Equal(b, want) {
			found = pos
			return false
		}

		pos++
		return true
	})
	if err != nil {
		return 0, err
	}

	if found < 0 {
		return 0, errors.Wrap(ErrKeyNotFound, "value not in list")
	}

	return found, nil
}

func (l *List) Len() int {
	return l.engine.Len()
}

// Range walks elements in position order. The callback must not mutate the
// list.
func (l *List) Range(ctx context.Context, f func(ctx context.Context, pos int, val interface{}) bool) error {
	pos := 0

	return l.engine.Range(ctx, func(ctx context.Context, _ string, val interface{}) bool {
		ok := f(ctx, pos, val)
		pos++
		return ok
	})
}

func (l *List) Clear(ctx context.Context) error {
	return l.engine.Clear(ctx)
}

func (l *List) ClearCache(ctx context.Context) error {
	return l.engine.ClearCache(ctx)
}

func (l *List) SetBudget(ctx context.Context, budget int64) error {
	return l.engine.SetBudget(ctx, budget)
}

func (l *List) Compact(ctx context.Context) error {
	return l.engine.Compact(ctx)
}

func (l *List) Close(ctx context.Context) error {
	return l.engine.Close(ctx)
}
