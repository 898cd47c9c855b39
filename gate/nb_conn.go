package gate

import (
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/lesismal/nbio"
	"github.com/liangmanlin/gopost/kernel"
)

// Engine dials outbound connections and hands them to an nbio poller, so
// reads cost no goroutine per connection.
type Engine struct {
	opt *optStruct
	g   *nbio.Gopher

	mux     sync.Mutex
	pending map[string]*Inbox // local addr -> inbox, until the session is set
	stopped bool
}

type ConnNbio struct {
	*nbio.Conn
	writeTimeout time.Duration
}

func NewEngine(opt ...optFun) (*Engine, error) {
	o := parseOpt(opt)
	e := &Engine{opt: o, pending: make(map[string]*Inbox)}
	g := nbio.NewGopher(nbio.Config{
		Name:           o.name,
		Network:        "tcp",
		ReadBufferSize: o.readBufferSize,
	})
	g.OnData(func(c *nbio.Conn, data []byte) {
		if in := e.inbox(c); in != nil {
			in.Push(data)
		}
	})
	g.OnClose(func(c *nbio.Conn, err error) {
		if in := e.inbox(c); in != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			in.CloseWithError(err)
		}
		e.mux.Lock()
		delete(e.pending, c.LocalAddr().String())
		e.mux.Unlock()
	})
	if err := g.Start(); err != nil {
		return nil, err
	}
	e.g = g
	kernel.DebugLog("gate engine start on nbio")
	return e, nil
}

func (e *Engine) inbox(c *nbio.Conn) *Inbox {
	if s := c.Session(); s != nil {
		return s.(*Inbox)
	}
	// data can arrive before Dial gets to SetSession
	e.mux.Lock()
	in := e.pending[c.LocalAddr().String()]
	e.mux.Unlock()
	if in != nil {
		c.SetSession(in)
	}
	return in
}

func (e *Engine) Dial(host string, port int, in *Inbox) (Socket, error) {
	e.mux.Lock()
	if e.stopped {
		e.mux.Unlock()
		return nil, ErrDialerClosed
	}
	e.mux.Unlock()
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), e.opt.dialTimeout)
	if err != nil {
		return nil, err
	}
	local := conn.LocalAddr().String()
	e.mux.Lock()
	e.pending[local] = in
	e.mux.Unlock()
	// the pinned nbio poller.addConn races poller.getConn under -race
	c, err := e.g.AddConn(conn)
	if err != nil {
		e.mux.Lock()
		delete(e.pending, local)
		e.mux.Unlock()
		_ = conn.Close()
		return nil, err
	}
	c.SetSession(in)
	e.mux.Lock()
	delete(e.pending, local)
	e.mux.Unlock()
	return &ConnNbio{Conn: c, writeTimeout: e.opt.writeTimeout}, nil
}

// Close stops the poller, which closes every connection it owns.
func (e *Engine) Close() error {
	e.mux.Lock()
	if e.stopped {
		e.mux.Unlock()
		return nil
	}
	e.stopped = true
	e.mux.Unlock()
	e.g.Stop()
	return nil
}

func (c *ConnNbio) Write(buf []byte) (int, error) {
	if c.writeTimeout > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(buf)
}

func (c *ConnNbio) RemoteAddr() string {
	return c.Conn.RemoteAddr().String()
}
