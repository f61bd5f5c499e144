package spillover

import (
	"context"
	"reflect"

	"github.com/bluele/gcache"
)

// Dict is a mapping-shaped container over one engine. Keys are arbitrary
// codec-encodable values; they are encoded to strings for the directory the
// same way values are encoded for disk.
type Dict struct {
	engine *Engine

	// memo of key encodings for comparable keys
	keys gcache.Cache
}

func NewDict(opt Options) (*Dict, error) {
	eng, err := NewEngine(opt)
	if err != nil {
		return nil, err
	}

	return &Dict{
		engine: eng,
		keys:   newKeyCache(eng.opt.KeyCacheSize),
	}, nil
}

func (d *Dict) Set(ctx context.Context, key, val interface{}) error {
	k, err := encodeKey(d.engine.codec, d.keys, key)
	if err != nil {
		return err
	}

	return d.engine.Set(ctx, k, val)
}

func (d *Dict) Get(ctx context.Context, key interface{}) (interface{}, error) {
	k, err := encodeKey(d.engine.codec, d.keys, key)
	if err != nil {
		return nil, err
	}

	return d.engine.Get(ctx, k)
}

func (d *Dict) Has(ctx context.Context, key interface{}) bool {
	k, err := encodeKey(d.engine.codec, d.keys, key)
	if err != nil {
		return false
	}

	return d.engine.Has(ctx, k)
}

func (d *Dict) Del(ctx context.Context, key interface{}) error {
	k, err := encodeKey(d.engine.codec, d.keys, key)
	if err != nil {
		return err
	}

	return d.engine.Delete(ctx, k)
}

func (d *Dict) Len() int {
	return d.engine.Len()
}

// Range walks entries in insertion order, decoding each key back to the
// caller's shape. The callback must not mutate the dict.
func (d *Dict) Range(ctx context.Context, f func(ctx context.Context, key, val interface{}) bool) error {
	var kerr error

	err := d.engine.Range(ctx, func(ctx context.Context, k string, val interface{}) bool {
		key, err := d.engine.codec.Decode([]byte(k))
		if err != nil {
			kerr = err
			return false
		}

		return f(ctx, key, val)
	})
	if err != nil {
		return err
	}

	return kerr
}

func (d *Dict) Clear(ctx context.Context) error {
	return d.engine.Clear(ctx)
}

// ClearCache dumps every resident entry to disk.
func (d *Dict) ClearCache(ctx context.Context) error {
	return d.engine.ClearCache(ctx)
}

func (d *Dict) SetBudget(ctx context.Context, budget int64) error {
	return d.engine.SetBudget(ctx, budget)
}

func (d *Dict) Compact(ctx context.Context) error {
	return d.engine.Compact(ctx)
}

func (d *Dict) Close(ctx context.Context) error {
	return d.engine.Close(ctx)
}

// ===== key encoding =====

func newKeyCache(size int) gcache.Cache {
	if size <= 0 {
		return nil
	}

	return gcache.New(size).LRU().Build()
}

// encodeKey turns an arbitrary key into the directory's string form. The
// gcache memo only ever holds comparable keys; losing an entry to its
// internal eviction is harmless since encoding is deterministic.
func encodeKey(c Codec, memo gcache.Cache, key interface{}) (string, error) {
	cacheable := memo != nil && comparableKey(key)

	if cacheable {
		if v, err := memo.Get(key); err == nil {
			return v.(string), nil
		}
	}

	b, err := c.Encode(key)
	if err != nil {
		return "", err
	}

	s := string(b)

	if cacheable {
		// memo failure only costs a re-encode next time
		_ = memo.Set(key, s)
	}

	return s, nil
}

func comparableKey(key interface{}) bool {
	if key == nil {
		return true
	}

	return reflect.TypeOf(key).Comparable()
}
