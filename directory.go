package spillover

// EntryState says where an entry's value currently lives.
type EntryState uint8

const (
	// StateResident: the decoded value is in the hot cache.
	StateResident EntryState = iota + 1
	// StateSpilled: the encoded bytes are at Entry.Slot in the disk store.
	StateSpilled
)

// Entry is the directory's record for one logical key. The directory owns
// these exclusively; callers must not hold onto them across operations.
type Entry struct {
	Key   string
	State EntryState
	Size  int64
	Slot  Slot // valid only while spilled

	pos int
}

// Directory is the authoritative key -> entry mapping plus the position
// table giving every entry a contiguous, gap-free ordering. For mapping and
// set containers the order is insertion order; for sequence containers it is
// the sequence position itself.
//
// The engine serializes all access, so there is no lock here.
type Directory struct {
	entries map[string]*Entry
	order   []string
}

func NewDirectory() *Directory {
	return &Directory{
		entries: make(map[string]*Entry),
	}
}

func (d *Directory) Lookup(key string) (*Entry, bool) {
	e, ok := d.entries[key]
	return e, ok
}

func (d *Directory) Len() int {
	return len(d.order)
}

// InsertResident records a new resident entry at the end of the order.
func (d *Directory) InsertResident(key string, size int64) *Entry {
	return d.InsertResidentAt(len(d.order), key, size)
}

// InsertResidentAt records a new resident entry at position pos, shifting
// every subsequent position up by one in a single pass.
func (d *Directory) InsertResidentAt(pos int, key string, size int64) *Entry {
	e := &Entry{Key: key, State: StateResident, Size: size, pos: pos}

	d.order = append(d.order, "")
	copy(d.order[pos+1:], d.order[pos:])
	d.order[pos] = key

	for _, k := range d.order[pos+1:] {
		d.entries[k].pos++
	}

	d.entries[key] = e

	return e
}

// Delete removes the entry and shifts every subsequent position down by one.
// The removed entry is returned so the caller can release its slot.
func (d *Directory) Delete(key string) (*Entry, bool) {
	e, ok := d.entries[key]
	if !ok {
		return nil, false
	}

	return d.RemoveAt(e.pos), true
}

// RemoveAt removes the entry at position pos, shifting subsequent positions
// down by one.
func (d *Directory) RemoveAt(pos int) *Entry {
	key := d.order[pos]
	e := d.entries[key]

	d.order = append(d.order[:pos], d.order[pos+1:]...)
	for _, k := range d.order[pos:] {
		d.entries[k].pos--
	}

	delete(d.entries, key)

	return e
}

func (d *Directory) KeyAt(pos int) (string, bool) {
	if pos < 0 || pos >= len(d.order) {
		return "", false
	}

	return d.order[pos], true
}

func (d *Directory) Position(key string) (int, bool) {
	e, ok := d.entries[key]
	if !ok {
		return 0, false
	}

	return e.pos, true
}

// Keys returns the current order as a fresh slice, safe to iterate while
// the directory mutates.
func (d *Directory) Keys() []string {
	keys := make([]string, len(d.order))
	copy(keys, d.order)
	return keys
}

// MarkSpilled flips an entry to spilled with its slot, as one update.
func (d *Directory) MarkSpilled(key string, sl Slot, size int64) {
	e := d.entries[key]
	e.State = StateSpilled
	e.Slot = sl
	e.Size = size
}

// MarkResident flips an entry back to resident and drops its slot ref.
func (d *Directory) MarkResident(key string, size int64) {
	e := d.entries[key]
	e.State = StateResident
	e.Slot = Slot{}
	e.Size = size
}

// LiveSlots collects the slots of all spilled entries, for compaction.
func (d *Directory) LiveSlots() []Slot {
	slots := make([]Slot, 0, len(d.entries))
	for _, e := range d.entries {
		if e.State == StateSpilled {
			slots = append(slots, e.Slot)
		}
	}

	return slots
}

// RemapSlots rewrites every spilled entry's slot from the compaction remap
// table, keyed by old offset. Applied in one pass so no lookup can observe
// a half-remapped directory.
func (d *Directory) RemapSlots(remap map[int64]Slot) {
	for _, e := range d.entries {
		if e.State != StateSpilled {
			continue
		}

		if nsl, ok := remap[e.Slot.Off]; ok {
			e.Slot = nsl
		}
	}
}
