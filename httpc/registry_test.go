package httpc

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetOrCreateIsShared(t *testing.T) {
	r := NewRegistry(&fakeDialer{}, nil)
	var wg sync.WaitGroup
	entries := make([]*Entry, 50)
	for i := range entries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entries[i] = r.GetOrCreate("http://h:80", "h", 80)
		}(i)
	}
	wg.Wait()
	for _, e := range entries {
		assert.Same(t, entries[0], e)
	}
	assert.Equal(t, 1, r.Len())
	r.GetOrCreate("http://other:80", "other", 80)
	keys := []string{}
	for _, e := range r.Snapshot() {
		keys = append(keys, e.Key())
	}
	assert.Equal(t, []string{"http://h:80", "http://other:80"}, keys)
}

func TestRegistryEvictIdle(t *testing.T) {
	d := &fakeDialer{}
	r := NewRegistry(d, nil)
	idle := r.GetOrCreate("http://idle:80", "idle", 80)
	busy := r.GetOrCreate("http://busy:80", "busy", 80)
	fresh := r.GetOrCreate("http://fresh:80", "fresh", 80)

	long := time.Now().Add(-time.Minute)
	require.True(t, idle.With(func(c *Conn) {
		require.NoError(t, c.Connect())
		idle.touch(long)
	}))
	require.True(t, busy.With(func(c *Conn) {
		require.NoError(t, c.Do(&Request{Method: "POST", Target: "/"}))
		busy.touch(long)
	}))

	assert.Equal(t, 0, r.EvictIdle(0, time.Now()), "0 disables eviction")
	assert.Equal(t, 1, r.EvictIdle(30*time.Second, time.Now()))
	assert.Equal(t, 2, r.Len())
	assert.False(t, idle.With(func(*Conn) { t.Fatal("evicted entry used") }))
	assert.True(t, fresh.With(func(*Conn) {}))

	s := d.sockets[0]
	assert.True(t, s.closed)

	again := r.GetOrCreate("http://idle:80", "idle", 80)
	assert.NotSame(t, idle, again)
}

func TestRegistryClose(t *testing.T) {
	cs := &completions{}
	r := NewRegistry(&fakeDialer{}, cs.handler())
	e := r.GetOrCreate("http://h:80", "h", 80)
	e.With(func(c *Conn) {
		_ = c.Do(&Request{Method: "POST", Target: "/", Tag: "x"})
	})
	r.Close()
	assert.Equal(t, 0, r.Len())
	assert.Nil(t, r.GetOrCreate("http://h:80", "h", 80))
	require.Len(t, cs.list, 1)
	assert.ErrorIs(t, cs.list[0].err, ErrConnClosed)
}
