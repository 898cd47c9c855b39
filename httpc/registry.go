package httpc

import (
	"sort"
	"sync"
	"time"

	"github.com/liangmanlin/gopost/gate"
)

// Entry is a pooled connection with its own lock.
type Entry struct {
	key string

	mux      sync.Mutex
	conn     *Conn
	lastUsed time.Time
	evicted  bool
}

func (e *Entry) Key() string {
	return e.key
}

// With runs f on the connection under the entry lock. It returns false
// without calling f when the entry was evicted; callers then look it up again.
func (e *Entry) With(f func(c *Conn)) bool {
	e.mux.Lock()
	defer e.mux.Unlock()
	if e.evicted {
		return false
	}
	f(e.conn)
	return true
}

// touch marks the entry as used now.
func (e *Entry) touch(now time.Time) {
	e.lastUsed = now
}

func (e *Entry) info() ConnInfo {
	e.mux.Lock()
	defer e.mux.Unlock()
	return ConnInfo{
		Key:         e.key,
		Addr:        e.conn.Addr(),
		Connected:   e.conn.Connected(),
		Outstanding: e.conn.Outstanding(),
		LastUsed:    e.lastUsed,
	}
}

// Registry maps a destination key to its pooled connection. The registry
// lock only guards the map; it is always taken before an entry lock.
type Registry struct {
	dialer  gate.Dialer
	handler Handler

	mux     sync.Mutex
	entries map[string]*Entry
	closed  bool
}

func NewRegistry(dialer gate.Dialer, handler Handler) *Registry {
	return &Registry{dialer: dialer, handler: handler, entries: make(map[string]*Entry)}
}

// GetOrCreate returns the entry for key, creating it on first use. It returns
// nil once the registry is closed.
func (r *Registry) GetOrCreate(key, host string, port int) *Entry {
	r.mux.Lock()
	defer r.mux.Unlock()
	if r.closed {
		return nil
	}
	if e, ok := r.entries[key]; ok {
		return e
	}
	e := &Entry{key: key, conn: NewConn(host, port, r.dialer, r.handler), lastUsed: time.Now()}
	r.entries[key] = e
	return e
}

// Snapshot copies the current entries, ordered by key.
func (r *Registry) Snapshot() []*Entry {
	r.mux.Lock()
	list := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		list = append(list, e)
	}
	r.mux.Unlock()
	sort.Slice(list, func(i, j int) bool { return list[i].key < list[j].key })
	return list
}

func (r *Registry) Len() int {
	r.mux.Lock()
	defer r.mux.Unlock()
	return len(r.entries)
}

// Evict removes and closes every entry for which pred holds. pred runs under
// the entry lock. It returns the number evicted.
func (r *Registry) Evict(pred func(c *Conn, lastUsed time.Time) bool) int {
	r.mux.Lock()
	var evicted []*Entry
	for k, e := range r.entries {
		e.mux.Lock()
		if pred(e.conn, e.lastUsed) {
			e.evicted = true
			delete(r.entries, k)
			evicted = append(evicted, e)
		}
		e.mux.Unlock()
	}
	r.mux.Unlock()
	for _, e := range evicted {
		e.mux.Lock()
		e.conn.Close()
		e.mux.Unlock()
	}
	return len(evicted)
}

// EvictIdle drops connections unused for longer than ttl with nothing outstanding.
func (r *Registry) EvictIdle(ttl time.Duration, now time.Time) int {
	if ttl <= 0 {
		return 0
	}
	return r.Evict(func(c *Conn, lastUsed time.Time) bool {
		return c.Outstanding() == 0 && now.Sub(lastUsed) > ttl
	})
}

// Close evicts everything and refuses new entries.
func (r *Registry) Close() {
	r.mux.Lock()
	r.closed = true
	r.mux.Unlock()
	r.Evict(func(*Conn, time.Time) bool { return true })
}
