package httpc

import (
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/liangmanlin/gopost/ejson"
	"github.com/liangmanlin/gopost/gate"
	"github.com/liangmanlin/gopost/kernel"
)

var jsonHeaders = []Header{
	{Key: "Accept", Value: "application/json"},
	{Key: "Content-Type", Value: "application/json"},
	{Key: "charset", Value: "utf-8"},
}

type post struct {
	id    string
	url   string
	value ejson.Value
}

type counters struct {
	enqueued, sent, failed, dropped, completed, errored atomic.Uint64
}

// Dispatcher delivers json posts in the background, best effort. A post
// worker drains the queue onto pooled connections and a pump worker feeds
// socket bytes to the outstanding responses.
type Dispatcher struct {
	opt       *optStruct
	dialer    gate.Dialer
	ownDialer bool
	registry  *Registry
	headers   []Header

	mux      sync.Mutex
	cond     *sync.Cond
	pending  []post
	stopping bool

	stopped      atomic.Bool
	stop         chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once

	stats counters
}

// New starts both workers. Without WithDialer it owns an nbio engine, or a
// net dialer with WithNetDialer, and closes it on Shutdown.
func New(opt ...optFun) (*Dispatcher, error) {
	o := parseOpt(opt)
	d := &Dispatcher{
		opt:     o,
		stop:    make(chan struct{}),
		headers: append(append([]Header(nil), jsonHeaders...), o.extraHeaders...),
	}
	d.cond = sync.NewCond(&d.mux)
	switch {
	case o.dialer != nil:
		d.dialer = o.dialer
	case o.useNetDialer:
		d.dialer = gate.NewNetDialer(gate.WithDialTimeout(o.dialTimeout), gate.WithWriteTimeout(o.writeTimeout))
		d.ownDialer = true
	default:
		e, err := gate.NewEngine(gate.WithDialTimeout(o.dialTimeout), gate.WithWriteTimeout(o.writeTimeout))
		if err != nil {
			return nil, transportError("start engine", "", err)
		}
		d.dialer = e
		d.ownDialer = true
	}
	d.registry = NewRegistry(d.dialer, &countingHandler{d: d, next: o.handler})
	d.wg.Add(2)
	go d.postLoop()
	go d.pumpLoop()
	return d, nil
}

// Enqueue queues a post and returns at once. After Shutdown the post is
// counted as dropped.
func (d *Dispatcher) Enqueue(url string, value ejson.Value) {
	p := post{id: uuid.New().String(), url: url, value: value}
	d.mux.Lock()
	if d.stopping {
		d.mux.Unlock()
		d.stats.dropped.Add(1)
		kernel.ErrorLog("httpc post %s to %s dropped: dispatcher stopped", p.id, url)
		return
	}
	d.pending = append(d.pending, p)
	d.stats.enqueued.Add(1)
	d.mux.Unlock()
	d.cond.Signal()
}

// Pending is the number of posts waiting for the post worker.
func (d *Dispatcher) Pending() int {
	d.mux.Lock()
	defer d.mux.Unlock()
	return len(d.pending)
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Enqueued:  d.stats.enqueued.Load(),
		Sent:      d.stats.sent.Load(),
		Failed:    d.stats.failed.Load(),
		Dropped:   d.stats.dropped.Load(),
		Completed: d.stats.completed.Load(),
		Errored:   d.stats.errored.Load(),
	}
}

func (d *Dispatcher) Conns() []ConnInfo {
	list := d.registry.Snapshot()
	infos := make([]ConnInfo, 0, len(list))
	for _, e := range list {
		infos = append(infos, e.info())
	}
	return infos
}

// Flush waits until every queued post has been handled and every response
// has completed. It reports false on timeout.
func (d *Dispatcher) Flush(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if d.idle() {
			return true
		}
		if time.Now().After(deadline) || d.stopped.Load() {
			return d.idle()
		}
		time.Sleep(d.opt.pumpInterval)
	}
}

func (d *Dispatcher) idle() bool {
	s := d.Stats()
	if s.Sent+s.Failed+s.Dropped < s.Enqueued {
		return false
	}
	for _, ci := range d.Conns() {
		if ci.Outstanding > 0 {
			return false
		}
	}
	return true
}

// ResetConnections closes every pooled connection and returns how many there were.
func (d *Dispatcher) ResetConnections() int {
	return d.registry.Evict(func(*Conn, time.Time) bool { return true })
}

// Shutdown stops both workers, then closes every connection. Posts still
// queued are dropped. Calling it again does nothing.
func (d *Dispatcher) Shutdown() {
	d.shutdownOnce.Do(func() {
		d.stopped.Store(true)
		d.mux.Lock()
		d.stopping = true
		d.mux.Unlock()
		d.cond.Broadcast()
		close(d.stop)
		d.wg.Wait()
		d.registry.Close()
		if d.ownDialer {
			_ = d.dialer.Close()
		}
		s := d.Stats()
		kernel.ErrorLog("httpc dispatcher stopped, sent:%d failed:%d dropped:%d", s.Sent, s.Failed, s.Dropped)
	})
}

func (d *Dispatcher) postLoop() {
	defer d.wg.Done()
	var batch []post
	for {
		d.mux.Lock()
		for len(d.pending) == 0 && !d.stopping {
			d.cond.Wait()
		}
		if d.stopping {
			d.stats.dropped.Add(uint64(len(d.pending)))
			d.pending = nil
			d.mux.Unlock()
			return
		}
		batch, d.pending = d.pending, batch[:0]
		d.mux.Unlock()
		kernel.DebugLog("httpc drain %d posts", len(batch))
		for i := range batch {
			if d.stopped.Load() {
				d.stats.dropped.Add(uint64(len(batch) - i))
				break
			}
			d.send(&batch[i])
			batch[i] = post{}
		}
	}
}

func (d *Dispatcher) send(p *post) {
	defer func() {
		if e := recover(); e != nil {
			d.stats.failed.Add(1)
			kernel.ErrorLog("catch error:%s,Stack:%s", e, debug.Stack())
		}
	}()
	u, err := ParseURL(p.url)
	if err == nil && u.Scheme != "http" {
		err = usageError("post", "unsupported scheme %q", u.Scheme)
	}
	if err != nil {
		d.fail(p, err)
		return
	}
	body := p.value.Styled()
	kernel.DebugLog("httpc post %s to %s body:%s", p.id, p.url, body)
	req := &Request{Method: "POST", Target: u.RequestURI(), Headers: d.headers, Body: []byte(body), Tag: p.id}
	for {
		e := d.registry.GetOrCreate(u.Key(), u.Host, u.Port)
		if e == nil {
			d.stats.dropped.Add(1)
			return
		}
		ok := e.With(func(c *Conn) {
			err = c.Do(req)
			e.touch(time.Now())
		})
		if ok {
			break
		}
		// evicted between lookup and lock
	}
	if err != nil {
		d.fail(p, err)
		return
	}
	d.stats.sent.Add(1)
}

func (d *Dispatcher) fail(p *post, err error) {
	d.stats.failed.Add(1)
	kernel.ErrorLog("httpc post %s to %s err:%s", p.id, p.url, err)
}

func (d *Dispatcher) pumpLoop() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.opt.pumpInterval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			d.pumpAll()
		}
	}
}

func (d *Dispatcher) pumpAll() {
	defer func() {
		if e := recover(); e != nil {
			kernel.ErrorLog("catch error:%s,Stack:%s", e, debug.Stack())
		}
	}()
	now := time.Now()
	for _, e := range d.registry.Snapshot() {
		e.With(func(c *Conn) {
			if c.Pump() > 0 {
				e.touch(now)
			}
		})
	}
	if n := d.registry.EvictIdle(d.opt.idleTimeout, now); n > 0 {
		kernel.DebugLog("httpc evicted %d idle connections", n)
	}
}

// countingHandler keeps the response counters before passing events on.
type countingHandler struct {
	d    *Dispatcher
	next Handler
}

func (h *countingHandler) OnBegin(r *Response) {
	kernel.DebugLog("httpc post %s answered %d %s", r.Tag(), r.Status(), r.Reason())
	if h.next != nil {
		h.next.OnBegin(r)
	}
}

func (h *countingHandler) OnData(r *Response, data []byte) {
	if h.next != nil {
		h.next.OnData(r, data)
	}
}

func (h *countingHandler) OnComplete(r *Response, err error) {
	if err != nil {
		h.d.stats.errored.Add(1)
		kernel.DebugLog("httpc post %s response err:%s", r.Tag(), err)
	} else {
		h.d.stats.completed.Add(1)
	}
	if h.next != nil {
		h.next.OnComplete(r, err)
	}
}
