package spillover

import (
	"container/list"
)

// HotCache holds the decoded values of resident entries and tracks their
// byte cost. Recency follows least-recently-used order: Get and Put refresh
// an entry, Victim reports the stalest one. The cache never drops a victim
// on its own; the engine persists it first and calls Remove after, so a
// failed spill leaves the value in memory.
//
// The engine serializes all access, so there is no lock here.
type HotCache struct {
	entries map[string]*list.Element
	lru     *list.List // front = most recently used
	bytes   int64
}

type cacheEntry struct {
	key   string
	value interface{}
	size  int64
}

func NewHotCache() *HotCache {
	return &HotCache{
		entries: make(map[string]*list.Element),
		lru:     list.New(),
	}
}

func (hc *HotCache) Get(key string) (interface{}, bool) {
	el, ok := hc.entries[key]
	if !ok {
		return nil, false
	}

	hc.lru.MoveToFront(el)

	return el.Value.(*cacheEntry).value, true
}

// Peek reads without refreshing recency.
func (hc *HotCache) Peek(key string) (interface{}, bool) {
	el, ok := hc.entries[key]
	if !ok {
		return nil, false
	}

	return el.Value.(*cacheEntry).value, true
}

func (hc *HotCache) Put(key string, value interface{}, size int64) {
	if el, ok := hc.entries[key]; ok {
		ce := el.Value.(*cacheEntry)
		hc.bytes += size - ce.size
		ce.value = value
		ce.size = size
		hc.lru.MoveToFront(el)
		return
	}

	el := hc.lru.PushFront(&cacheEntry{key: key, value: value, size: size})
	hc.entries[key] = el
	hc.bytes += size
}

func (hc *HotCache) Remove(key string) {
	el, ok := hc.entries[key]
	if !ok {
		return
	}

	hc.bytes -= el.Value.(*cacheEntry).size
	hc.lru.Remove(el)
	delete(hc.entries, key)
}

// Victim reports the least recently used entry without removing it.
func (hc *HotCache) Victim() (key string, value interface{}, size int64, ok bool) {
	el := hc.lru.Back()
	if el == nil {
		return "", nil, 0, false
	}

	ce := el.Value.(*cacheEntry)
	return ce.key, ce.value, ce.size, true
}

func (hc *HotCache) Bytes() int64 {
	return hc.bytes
}

func (hc *HotCache) Len() int {
	return len(hc.entries)
}
