package spillover

import (
	"bytes"
	"context"
	"log"
	"runtime"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"spillover/compress"
)

// RangeFunc visits one entry during iteration. Returning false stops the
// walk. The callback runs with the engine lock held and must not call back
// into the container.
type RangeFunc = func(ctx context.Context, key string, val interface{}) bool

// Engine is the storage core under every container: the entry directory
// resolves a logical key, resident values are served from the hot cache,
// spilled ones are read from the disk store and promoted. Every completed
// operation leaves the resident byte total at or under the budget.
//
// One mutex serializes all logical operations on an engine instance.
type Engine struct {
	mu sync.Mutex

	opt   Options
	dir   *Directory
	cache *HotCache
	store *DiskStore
	codec Codec
	comp  compress.Compressor

	budget int64
	seq    uint64
	closed bool
}

func NewEngine(opt Options) (*Engine, error) {
	err := opt.valid()
	if err != nil {
		return nil, err
	}

	codec, err := GetCodec(opt.Codec)
	if err != nil {
		return nil, err
	}

	store, err := NewDiskStore(DiskStoreOpt{Path: opt.Path, Slack: opt.Slack})
	if err != nil {
		return nil, errors.Wrap(err, "open backing store fail")
	}

	e := &Engine{
		opt:    opt,
		dir:    NewDirectory(),
		cache:  NewHotCache(),
		store:  store,
		codec:  codec,
		comp:   compress.Get(opt.Compression),
		budget: opt.RAMBudget,
	}

	// best effort only; Close is the real teardown
	runtime.SetFinalizer(e, func(e *Engine) { e.Close(context.Background()) })

	return e, nil
}

func (e *Engine) Has(ctx context.Context, key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false
	}

	_, ok := e.dir.Lookup(key)
	return ok
}

func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0
	}

	return e.dir.Len()
}

// Bytes reports the current resident byte total.
func (e *Engine) Bytes() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0
	}

	return e.cache.Bytes()
}

func (e *Engine) Budget() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.budget
}

// Get returns the value for key, promoting it when spilled.
func (e *Engine) Get(ctx context.Context, key string) (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}

	return e.get(ctx, key)
}

// GetAt returns the value at a sequence position.
func (e *Engine) GetAt(ctx context.Context, pos int) (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}

	key, ok := e.dir.KeyAt(pos)
	if !ok {
		return nil, errors.Wrap(ErrIndexOutOfRange, strconv.Itoa(pos))
	}

	return e.get(ctx, key)
}

// Set stores val under key, inserting or overwriting.
func (e *Engine) Set(ctx context.Context, key string, val interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	return e.set(ctx, key, val)
}

// SetAt overwrites the value at a sequence position.
func (e *Engine) SetAt(ctx context.Context, pos int, val interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	key, ok := e.dir.KeyAt(pos)
	if !ok {
		return errors.Wrap(ErrIndexOutOfRange, strconv.Itoa(pos))
	}

	return e.set(ctx, key, val)
}

// Append adds val at the end of the sequence.
func (e *Engine) Append(ctx context.Context, val interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	return e.insertAt(ctx, e.dir.Len(), val)
}

// InsertAt adds val at position pos, shifting subsequent positions up.
func (e *Engine) InsertAt(ctx context.Context, pos int, val interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	if pos < 0 || pos > e.dir.Len() {
		return errors.Wrap(ErrIndexOutOfRange, strconv.Itoa(pos))
	}

	return e.insertAt(ctx, pos, val)
}

// PopAt removes and returns the value at position pos, shifting subsequent
// positions down.
func (e *Engine) PopAt(ctx context.Context, pos int) (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}

	key, ok := e.dir.KeyAt(pos)
	if !ok {
		return nil, errors.Wrap(ErrIndexOutOfRange, strconv.Itoa(pos))
	}

	v, err := e.get(ctx, key)
	if err != nil {
		return nil, err
	}

	e.deleteEntry(e.dir.RemoveAt(pos))

	return v, nil
}

// Delete removes key. ErrKeyNotFound when absent.
func (e *Engine) Delete(ctx context.Context, key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	ent, ok := e.dir.Delete(key)
	if !ok {
		return errors.Wrap(ErrKeyNotFound, key)
	}

	e.deleteEntry(ent)

	return nil
}

// Range walks entries in order, promoting spilled ones as it visits them.
// Restartable: each call walks a fresh snapshot of the order.
func (e *Engine) Range(ctx context.Context, f RangeFunc) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	for _, key := range e.dir.Keys() {
		v, err := e.get(ctx, key)
		if err != nil {
			return err
		}

		if !f(ctx, key, v) {
			return nil
		}
	}

	return nil
}

// ClearCache spills every resident entry to disk.
func (e *Engine) ClearCache(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	return e.evictUntil(ctx, 0)
}

// SetBudget changes the RAM budget and trims immediately.
func (e *Engine) SetBudget(ctx context.Context, budget int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	if budget < 0 {
		return errors.Wrap(ErrOutOfBudget, "negative ram budget")
	}

	e.budget = budget

	return e.evictUntil(ctx, e.budget)
}

// Compact rewrites the backing file without gaps and remaps every spilled
// entry's slot. Never triggered mid-operation; callers decide when.
func (e *Engine) Compact(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	remap, err := e.store.Compact(e.dir.LiveSlots())
	if err != nil {
		// records may already have moved; the old slot refs cannot be trusted
		return errors.Wrap(ErrCorruptState, err.Error())
	}

	e.dir.RemapSlots(remap)

	return nil
}

// CompactIfNeeded compacts once fragmentation passes the configured ratio.
func (e *Engine) CompactIfNeeded(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	fr := e.store.FragRatio()
	e.mu.Unlock()

	if fr <= e.opt.CompactionRatio {
		return nil
	}

	return e.Compact(ctx)
}

func (e *Engine) FragRatio() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0
	}

	return e.store.FragRatio()
}

func (e *Engine) DiskSize() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0
	}

	return e.store.Size()
}

// Clear drops every entry, resident and spilled.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	for _, key := range e.dir.Keys() {
		ent, ok := e.dir.Delete(key)
		if ok {
			e.deleteEntry(ent)
		}
	}

	return nil
}

// Close removes the backing file and makes every later call fail ErrClosed.
// Safe to call twice.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	e.closed = true
	runtime.SetFinalizer(e, nil)

	err := e.store.Close()
	if err != nil {
		return errors.Wrap(err, "close backing store fail")
	}

	return nil
}

// nextID hands out a fresh internal key for sequence entries.
func (e *Engine) nextID() string {
	e.seq++
	return "#" + strconv.FormatUint(e.seq, 36)
}

// ===== internals, engine lock held =====

func (e *Engine) get(ctx context.Context, key string) (interface{}, error) {
	ent, ok := e.dir.Lookup(key)
	if !ok {
		return nil, errors.Wrap(ErrKeyNotFound, key)
	}

	if ent.State == StateResident {
		v, ok := e.cache.Get(key)
		if !ok {
			return nil, errors.Wrap(ErrCorruptState, "resident entry missing from cache")
		}

		return e.copyValue(v)
	}

	return e.promote(ctx, ent)
}

// copyValue hands out a decoded copy. Cached values are never shared with
// callers, so a caller mutating what it got back cannot skew the recorded
// entry sizes.
func (e *Engine) copyValue(v interface{}) (interface{}, error) {
	b, err := e.codec.Encode(v)
	if err != nil {
		return nil, err
	}

	return e.codec.Decode(b)
}

// promote moves a spilled entry back to resident. Exactly one copy remains:
// the slot is freed once the decoded value is cached.
func (e *Engine) promote(ctx context.Context, ent *Entry) (interface{}, error) {
	payload, err := e.store.Read(ent.Slot)
	if err != nil {
		return nil, errors.Wrap(err, "read spilled record fail")
	}

	b, err := e.decompress(payload)
	if err != nil {
		return nil, errors.Wrap(err, "decompress spilled record fail")
	}

	if int64(len(b)) != ent.Size {
		return nil, errors.Wrap(ErrCorruptState, "spilled record length mismatch")
	}

	v, err := e.codec.Decode(b)
	if err != nil {
		return nil, errors.Wrap(err, "decode spilled record fail")
	}

	// second decode: the cache keeps v, the caller gets its own copy
	out, err := e.codec.Decode(b)
	if err != nil {
		return nil, errors.Wrap(err, "decode spilled record fail")
	}

	key := ent.Key
	size := ent.Size

	e.store.Free(ent.Slot)
	e.dir.MarkResident(key, size)
	e.cache.Put(key, v, size)

	if e.opt.OnPromote != nil {
		e.opt.OnPromote(key, size)
	}

	// a failed trim here leaves a transient overshoot; the promotion itself
	// stands and the next successful eviction resolves it
	err = e.evictUntil(ctx, e.budget)
	if err != nil {
		log.Printf("spillover: trim after promote fail: %s", err)
	}

	return out, nil
}

// set overwrites or inserts at the end of the order.
func (e *Engine) set(ctx context.Context, key string, val interface{}) error {
	b, err := e.codec.Encode(val)
	if err != nil {
		return err
	}

	size := int64(len(b))
	if size > e.budget {
		return errors.Wrap(ErrOutOfBudget, key)
	}

	// the cache owns its value outright; the caller keeps val
	owned, err := e.codec.Decode(b)
	if err != nil {
		return err
	}

	prev, existed := e.dir.Lookup(key)
	if !existed {
		e.dir.InsertResident(key, size)
		e.cache.Put(key, owned, size)

		err = e.evictUntil(ctx, e.budget)
		if err != nil {
			// roll the insert back so the container keeps its prior state;
			// the key may itself have been spilled before the failure
			if ent, ok := e.dir.Delete(key); ok {
				e.deleteEntry(ent)
			}
			return err
		}

		return nil
	}

	prevState := prev.State
	prevSlot := prev.Slot
	prevSize := prev.Size
	prevVal, _ := e.cache.Peek(key)

	e.cache.Put(key, owned, size)
	e.dir.MarkResident(key, size)

	err = e.evictUntil(ctx, e.budget)
	if err != nil {
		// the key may have been spilled to a fresh slot before the failure;
		// that slot must not leak when the old state comes back
		if cur, ok := e.dir.Lookup(key); ok && cur.State == StateSpilled && cur.Slot != prevSlot {
			e.store.Free(cur.Slot)
		}

		if prevState == StateResident {
			e.cache.Put(key, prevVal, prevSize)
			e.dir.MarkResident(key, prevSize)
		} else {
			e.cache.Remove(key)
			e.dir.MarkSpilled(key, prevSlot, prevSize)
		}
		return err
	}

	// old record only released once the overwrite fully committed
	if prevState == StateSpilled {
		e.store.Free(prevSlot)
	}

	return nil
}

// insertAt inserts a fresh sequence entry at pos.
func (e *Engine) insertAt(ctx context.Context, pos int, val interface{}) error {
	b, err := e.codec.Encode(val)
	if err != nil {
		return err
	}

	size := int64(len(b))
	if size > e.budget {
		return errors.Wrap(ErrOutOfBudget, strconv.Itoa(pos))
	}

	owned, err := e.codec.Decode(b)
	if err != nil {
		return err
	}

	key := e.nextID()

	e.dir.InsertResidentAt(pos, key, size)
	e.cache.Put(key, owned, size)

	err = e.evictUntil(ctx, e.budget)
	if err != nil {
		if ent, ok := e.dir.Delete(key); ok {
			e.deleteEntry(ent)
		}
		return err
	}

	return nil
}

// evictUntil spills least-recently-used victims until the resident total is
// at or under target. Two-phase per victim: the bytes land on disk and the
// directory flips to spilled before the cache lets go of the value, so a
// failed write loses nothing.
func (e *Engine) evictUntil(ctx context.Context, target int64) error {
	for e.cache.Bytes() > target {
		key, val, size, ok := e.cache.Victim()
		if !ok {
			return nil
		}

		err := e.spill(ctx, key, val, size)
		if err != nil {
			return err
		}

		e.cache.Remove(key)

		if e.opt.OnEvict != nil {
			e.opt.OnEvict(key, size)
		}
	}

	return nil
}

func (e *Engine) spill(ctx context.Context, key string, val interface{}, size int64) error {
	b, err := e.codec.Encode(val)
	if err != nil {
		return err
	}

	// the directory records what actually went to disk
	size = int64(len(b))

	payload, err := e.compress(b)
	if err != nil {
		return errors.Wrap(err, "compress record fail")
	}

	sl, err := e.store.Alloc(len(payload))
	if err != nil {
		return errors.Wrap(err, "alloc spill slot fail")
	}

	wsl, err := e.store.Write(sl, payload)
	if err != nil {
		e.store.Free(sl)
		return errors.Wrap(err, "write spill record fail")
	}

	e.dir.MarkSpilled(key, wsl, size)

	if e.opt.OnSpill != nil {
		e.opt.OnSpill(key, size)
	}

	return nil
}

func (e *Engine) deleteEntry(ent *Entry) {
	if ent.State == StateResident {
		e.cache.Remove(ent.Key)
		return
	}

	e.store.Free(ent.Slot)
}

func (e *Engine) compress(b []byte) ([]byte, error) {
	buf := &bytes.Buffer{}

	err := e.comp.Compress(bytes.NewReader(b), buf)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (e *Engine) decompress(b []byte) ([]byte, error) {
	buf := &bytes.Buffer{}

	err := e.comp.Decompress(bytes.NewReader(b), buf)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
