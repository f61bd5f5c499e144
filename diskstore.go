package spillover

import (
	"io"
	"os"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Slot addresses one serialized record inside the backing file. Cap is the
// reserved span, Len the bytes actually stored; a record may be overwritten
// in place while its length stays within Cap.
type Slot struct {
	Off int64
	Len int
	Cap int
}

type span struct {
	off int64
	cap int
}

type DiskStoreOpt struct {
	// Path of the backing file. Empty means an anonymous temp file.
	Path string

	// Slack is the capacity rounding unit for new spans. Rounding up leaves
	// room for records to grow without relocating on every rewrite.
	Slack int
}

// DiskStore is a flat-file allocator of variable-length byte spans. Freed
// spans go to a best-fit free list and are reused before the file grows.
// The file is scratch state: truncated on open, removed on Close.
type DiskStore struct {
	mu sync.Mutex

	file  *os.File
	path  string
	size  int64
	slack int

	// free spans sorted by capacity, best fit wins
	free      []span
	freeBytes int64
}

func NewDiskStore(opt DiskStoreOpt) (*DiskStore, error) {
	if opt.Slack <= 0 {
		opt.Slack = 64
	}

	var f *os.File
	var err error

	if opt.Path == "" {
		f, err = os.CreateTemp("", "spillover-*.db")
	} else {
		f, err = os.OpenFile(opt.Path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	}
	if err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}

	return &DiskStore{
		file:  f,
		path:  f.Name(),
		slack: opt.Slack,
	}, nil
}

// Alloc reserves a span able to hold n bytes and returns its Slot with
// Len = n. The span comes from the free list when any reclaimed span fits,
// otherwise the file grows by n rounded up to the slack unit.
func (ds *DiskStore) Alloc(n int) (Slot, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	return ds.alloc(n)
}

func (ds *DiskStore) alloc(n int) (Slot, error) {
	// best fit: the free list is sorted by capacity
	i := sort.Search(len(ds.free), func(i int) bool { return ds.free[i].cap >= n })
	if i < len(ds.free) {
		sp := ds.free[i]
		ds.free = append(ds.free[:i], ds.free[i+1:]...)
		ds.freeBytes -= int64(sp.cap)

		return Slot{Off: sp.off, Len: n, Cap: sp.cap}, nil
	}

	c := roundUp(n, ds.slack)
	off := ds.size

	err := ds.file.Truncate(off + int64(c))
	if err != nil {
		return Slot{}, errors.Wrap(ErrIO, err.Error())
	}

	ds.size = off + int64(c)

	return Slot{Off: off, Len: n, Cap: c}, nil
}

// Read returns the Len bytes stored at the slot.
func (ds *DiskStore) Read(sl Slot) ([]byte, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	return ds.read(sl)
}

func (ds *DiskStore) read(sl Slot) ([]byte, error) {
	b := make([]byte, sl.Len)

	n, err := ds.file.ReadAt(b, sl.Off)
	if err == io.EOF || (err == nil && n < sl.Len) {
		return nil, errors.Wrap(ErrCorruptState, "slot read came up short")
	}
	if err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}

	return b, nil
}

// Write stores b at the slot, in place when it fits the reserved capacity.
// When it does not, a new span is allocated and written first and the old
// one freed after, so a failed write leaves the old record intact. The
// returned Slot supersedes the one passed in.
func (ds *DiskStore) Write(sl Slot, b []byte) (Slot, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if len(b) <= sl.Cap {
		_, err := ds.file.WriteAt(b, sl.Off)
		if err != nil {
			return Slot{}, errors.Wrap(ErrIO, err.Error())
		}

		sl.Len = len(b)
		return sl, nil
	}

	nsl, err := ds.alloc(len(b))
	if err != nil {
		return Slot{}, err
	}

	_, err = ds.file.WriteAt(b, nsl.Off)
	if err != nil {
		ds.release(nsl)
		return Slot{}, errors.Wrap(ErrIO, err.Error())
	}

	ds.release(sl)

	return nsl, nil
}

// Free returns the slot's span to the free list.
func (ds *DiskStore) Free(sl Slot) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.release(sl)
}

func (ds *DiskStore) release(sl Slot) {
	i := sort.Search(len(ds.free), func(i int) bool { return ds.free[i].cap >= sl.Cap })

	ds.free = append(ds.free, span{})
	copy(ds.free[i+1:], ds.free[i:])
	ds.free[i] = span{off: sl.Off, cap: sl.Cap}

	ds.freeBytes += int64(sl.Cap)
}

// Compact rewrites the live slots front-to-back with no gaps, truncates the
// file and empties the free list. It returns a remap table keyed by old
// offset; the caller must rewrite its slot references from it before any
// further access.
func (ds *DiskStore) Compact(live []Slot) (map[int64]Slot, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	sorted := make([]Slot, len(live))
	copy(sorted, live)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Off < sorted[j].Off })

	remap := make(map[int64]Slot, len(sorted))

	var cursor int64
	for _, sl := range sorted {
		b, err := ds.read(sl)
		if err != nil {
			return nil, err
		}

		if sl.Off != cursor {
			_, err = ds.file.WriteAt(b, cursor)
			if err != nil {
				return nil, errors.Wrap(ErrIO, err.Error())
			}
		}

		c := roundUp(sl.Len, ds.slack)
		remap[sl.Off] = Slot{Off: cursor, Len: sl.Len, Cap: c}
		cursor += int64(c)
	}

	err := ds.file.Truncate(cursor)
	if err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}

	ds.size = cursor
	ds.free = nil
	ds.freeBytes = 0

	return remap, nil
}

// FragRatio reports the fraction of the file held by freed spans.
func (ds *DiskStore) FragRatio() float64 {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.size == 0 {
		return 0
	}

	return float64(ds.freeBytes) / float64(ds.size)
}

func (ds *DiskStore) Size() int64 {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	return ds.size
}

func (ds *DiskStore) Path() string {
	return ds.path
}

// Close closes and removes the backing file.
func (ds *DiskStore) Close() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	berr := BundleErr{}

	berr.
		Add(ds.file.Close()).
		Add(os.Remove(ds.path))

	return berr.Error()
}

func roundUp(n, unit int) int {
	if n <= 0 {
		return unit
	}

	return (n + unit - 1) / unit * unit
}
