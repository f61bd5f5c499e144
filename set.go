package spillover

import (
	"context"

	"github.com/bluele/gcache"
	"github.com/pkg/errors"
)

// Set is a set-shaped container over one engine. The member's encoding is
// the directory key and the member itself is the stored value, so iteration
// hands back the members.
type Set struct {
	engine *Engine

	keys gcache.Cache
}

func NewSet(opt Options) (*Set, error) {
	eng, err := NewEngine(opt)
	if err != nil {
		return nil, err
	}

	return &Set{
		engine: eng,
		keys:   newKeyCache(eng.opt.KeyCacheSize),
	}, nil
}

func (s *Set) Add(ctx context.Context, member interface{}) error {
	k, err := encodeKey(s.engine.codec, s.keys, member)
	if err != nil {
		return err
	}

	if s.engine.Has(ctx, k) {
		return nil
	}

	return s.engine.Set(ctx, k, member)
}

// Discard removes the member if present; absent members are not an error.
func (s *Set) Discard(ctx context.Context, member interface{}) error {
	k, err := encodeKey(s.engine.codec, s.keys, member)
	if err != nil {
		return err
	}

	err = s.engine.Delete(ctx, k)
	if errors.Is(err, ErrKeyNotFound) {
		return nil
	}

	return err
}

func (s *Set) Contains(ctx context.Context, member interface{}) bool {
	k, err := encodeKey(s.engine.codec, s.keys, member)
	if err != nil {
		return false
	}

	return s.engine.Has(ctx, k)
}

func (s *Set) Len() int {
	return s.engine.Len()
}

// Range walks members in insertion order. The callback must not mutate the
// set.
func (s *Set) Range(ctx context.Context, f func(ctx context.Context, member interface{}) bool) error {
	return s.engine.Range(ctx, func(ctx context.Context, _ string, val interface{}) bool {
		return f(ctx, val)
	})
}

func (s *Set) Clear(ctx context.Context) error {
	return s.engine.Clear(ctx)
}

func (s *Set) ClearCache(ctx context.Context) error {
	return s.engine.ClearCache(ctx)
}

func (s *Set) SetBudget(ctx context.Context, budget int64) error {
	return s.engine.SetBudget(ctx, budget)
}

func (s *Set) Compact(ctx context.Context) error {
	return s.engine.Compact(ctx)
}

func (s *Set) Close(ctx context.Context) error {
	return s.engine.Close(ctx)
}
