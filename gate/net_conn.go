package gate

import (
	"errors"
	"io"
	"net"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/liangmanlin/gopost/bpool"
	"github.com/liangmanlin/gopost/kernel"
)

// NetDialer dials with the net package and runs one reader goroutine per
// connection.
type NetDialer struct {
	opt *optStruct

	mux    sync.Mutex
	conns  map[*ConnNet]struct{}
	closed bool
}

func NewNetDialer(opt ...optFun) *NetDialer {
	return &NetDialer{opt: parseOpt(opt), conns: make(map[*ConnNet]struct{})}
}

type ConnNet struct {
	net.Conn
	owner        *NetDialer
	writeTimeout time.Duration
	closeOnce    sync.Once
}

func (d *NetDialer) Dial(host string, port int, in *Inbox) (Socket, error) {
	d.mux.Lock()
	if d.closed {
		d.mux.Unlock()
		return nil, ErrDialerClosed
	}
	d.mux.Unlock()
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), d.opt.dialTimeout)
	if err != nil {
		return nil, err
	}
	c := &ConnNet{Conn: conn, owner: d, writeTimeout: d.opt.writeTimeout}
	d.mux.Lock()
	if d.closed {
		d.mux.Unlock()
		_ = conn.Close()
		return nil, ErrDialerClosed
	}
	d.conns[c] = struct{}{}
	d.mux.Unlock()
	go startReader(c, in, d.opt.readBufferSize)
	return c, nil
}

// Close shuts every connection it dialed.
func (d *NetDialer) Close() error {
	d.mux.Lock()
	d.closed = true
	conns := d.conns
	d.conns = make(map[*ConnNet]struct{})
	d.mux.Unlock()
	for c := range conns {
		_ = c.Close()
	}
	return nil
}

func (c *ConnNet) Write(buf []byte) (int, error) {
	if c.writeTimeout > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(buf)
}

func (c *ConnNet) RemoteAddr() string {
	return c.Conn.RemoteAddr().String()
}

func (c *ConnNet) Close() (err error) {
	c.closeOnce.Do(func() {
		err = c.Conn.Close()
		c.owner.mux.Lock()
		delete(c.owner.conns, c)
		c.owner.mux.Unlock()
	})
	return
}

func startReader(c *ConnNet, in *Inbox, size int) {
	defer func() {
		p := recover()
		if p != nil {
			kernel.ErrorLog("catch error:%s,Stack:%s", p, debug.Stack())
			in.CloseWithError(ErrSocketClosed)
		}
	}()
	buf := bpool.New(size)
	defer buf.Free()
	b := buf.ToBytes()[:buf.Cap()]
	for {
		n, err := c.Conn.Read(b)
		if n > 0 {
			in.Push(b[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			in.CloseWithError(err)
			return
		}
	}
}
