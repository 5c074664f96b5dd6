package filecache

import (
	"container/list"
	"sync"
	"time"

	"github.com/tokenbar/tokenbar/internal/usage"
)

// Rough per-entry accounting for the byte budget. Records are small fixed
// structs plus two short string headers; precision doesn't matter here,
// monotonicity does.
const (
	entryOverheadBytes = 256
	recordCostBytes    = 160
)

type memEntry struct {
	key     string
	modTime time.Time
	records []usage.Record
	cost    int64
}

// memoryTier is an LRU map bounded by a total byte budget. Workers hit it
// concurrently during a pass, so every method takes the mutex.
type memoryTier struct {
	mu     sync.Mutex
	budget int64
	used   int64
	order  *list.List // front = most recently used
	items  map[string]*list.Element
}

func newMemoryTier(budget int64) *memoryTier {
	return &memoryTier{
		budget: budget,
		order:  list.New(),
		items:  make(map[string]*list.Element),
	}
}

func entryCost(key string, records []usage.Record) int64 {
	return entryOverheadBytes + int64(len(key)) + recordCostBytes*int64(len(records))
}

func (m *memoryTier) get(key string) (memEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		return memEntry{}, false
	}
	m.order.MoveToFront(el)
	return *el.Value.(*memEntry), true
}

func (m *memoryTier) put(key string, modTime time.Time, records []usage.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		m.used -= el.Value.(*memEntry).cost
		m.order.Remove(el)
		delete(m.items, key)
	}

	entry := &memEntry{key: key, modTime: modTime, records: records, cost: entryCost(key, records)}
	m.items[key] = m.order.PushFront(entry)
	m.used += entry.cost

	for m.used > m.budget {
		back := m.order.Back()
		if back == nil {
			break
		}
		evicted := back.Value.(*memEntry)
		m.used -= evicted.cost
		m.order.Remove(back)
		delete(m.items, evicted.key)
	}
}

func (m *memoryTier) remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		return
	}
	m.used -= el.Value.(*memEntry).cost
	m.order.Remove(el)
	delete(m.items, key)
}

func (m *memoryTier) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.order.Init()
	m.items = make(map[string]*list.Element)
	m.used = 0
}

func (m *memoryTier) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
