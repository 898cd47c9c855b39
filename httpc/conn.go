package httpc

import (
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/liangmanlin/gopost/bpool"
	"github.com/liangmanlin/gopost/gate"
	"github.com/liangmanlin/gopost/kernel"
	"github.com/liangmanlin/gopost/ringbuffer"
)

// Conn is one http/1.x client connection to host:port. Requests are written
// in order and their responses complete in the same order. Conn is not safe
// for concurrent use; the registry entry lock serializes callers.
type Conn struct {
	host    string
	port    int
	dialer  gate.Dialer
	handler Handler

	socket gate.Socket
	inbox  *gate.Inbox

	state  connState
	lines  []string
	method string
	target string
	tag    string

	outstanding *ringbuffer.SingleRingBuffer[*Response]
}

// NewConn does not connect; the first request or Connect does.
func NewConn(host string, port int, dialer gate.Dialer, handler Handler) *Conn {
	if handler == nil {
		handler = nopHandler{}
	}
	return &Conn{
		host:        host,
		port:        port,
		dialer:      dialer,
		handler:     handler,
		outstanding: ringbuffer.NewSingleRingBuffer[*Response](8, 8),
	}
}

func (c *Conn) Addr() string {
	return net.JoinHostPort(c.dialHost(), strconv.Itoa(c.port))
}

func (c *Conn) Connected() bool {
	return c.socket != nil
}

// Outstanding is the number of responses not yet complete.
func (c *Conn) Outstanding() int {
	return c.outstanding.Size()
}

// Connect opens the socket unless it is already open. A socket the peer has
// already closed is reaped first and redialed. It blocks for at most the
// dialer's timeout.
func (c *Conn) Connect() error {
	if c.socket != nil && c.inbox != nil && c.inbox.Closed() {
		c.Pump()
	}
	if c.socket != nil {
		return nil
	}
	in := gate.NewInbox()
	s, err := c.dialer.Dial(c.dialHost(), c.port, in)
	if err != nil {
		return transportError("connect", c.Addr(), err)
	}
	c.socket, c.inbox = s, in
	kernel.DebugLog("httpc connected %s", c.Addr())
	return nil
}

// Close drops the socket. Every unfinished response completes with ErrConnClosed.
func (c *Conn) Close() {
	c.closeWith(ErrConnClosed)
}

// PutRequest starts composing a request. Host and Accept-Encoding are added.
func (c *Conn) PutRequest(method, target string) error {
	if c.state == stateReqStarted {
		return usageError("put request", "request already started")
	}
	if target == "" {
		target = "/"
	}
	c.state = stateReqStarted
	c.method, c.target = method, target
	c.lines = append(c.lines[:0], method+" "+target+" HTTP/1.1")
	host := c.host
	if c.port != DefaultPort {
		host += ":" + strconv.Itoa(c.port)
	}
	c.lines = append(c.lines, "Host: "+host, "Accept-Encoding: identity")
	return nil
}

func (c *Conn) PutHeader(key, value string) error {
	if c.state != stateReqStarted {
		return usageError("put header", "no request started, state %s", c.state)
	}
	c.lines = append(c.lines, key+": "+value)
	return nil
}

func (c *Conn) PutHeaderInt(key string, value int) error {
	return c.PutHeader(key, strconv.Itoa(value))
}

// EndHeaders connects if needed, writes the request head and queues its response.
func (c *Conn) EndHeaders() error {
	if c.state != stateReqStarted {
		return usageError("end headers", "no request started, state %s", c.state)
	}
	lines := c.lines
	c.lines = c.lines[:0]
	c.state = stateIdle
	if err := c.Connect(); err != nil {
		return err
	}
	buf := bpool.New(256)
	for _, l := range lines {
		buf = buf.AppendString(l).AppendString("\r\n")
	}
	buf = buf.AppendString("\r\n")
	err := c.write(buf.ToBytes())
	buf.Free()
	if err != nil {
		return err
	}
	r := NewResponse(c.method, c.target, c.handler)
	r.tag = c.tag
	c.tag = ""
	c.outstanding.Put(r)
	c.state = stateReqSent
	return nil
}

// Send writes body bytes of the request whose headers were just ended.
func (c *Conn) Send(body []byte) error {
	if c.state != stateReqSent {
		return usageError("send", "headers not sent, state %s", c.state)
	}
	if len(body) == 0 {
		return nil
	}
	return c.write(body)
}

// Request composes and sends a whole request, adding Content-Length when
// there is a body.
func (c *Conn) Request(method, target string, headers []Header, body []byte) error {
	if err := c.PutRequest(method, target); err != nil {
		return err
	}
	for _, h := range headers {
		_ = c.PutHeader(h.Key, h.Value)
	}
	if body != nil {
		_ = c.PutHeaderInt(contentLengthHeader, len(body))
	}
	if err := c.EndHeaders(); err != nil {
		return err
	}
	return c.Send(body)
}

func (c *Conn) Do(req *Request) error {
	if req == nil {
		return usageError("do", "nil request")
	}
	if c.state == stateReqStarted {
		return usageError("do", "request already started")
	}
	c.tag = req.Tag
	return c.Request(req.Method, req.Target, req.Headers, req.Body)
}

// Pump feeds whatever the socket delivered since the last call into the
// outstanding responses. It never blocks and returns the bytes processed.
func (c *Conn) Pump() int {
	if c.inbox == nil {
		return 0
	}
	buf, closed, err := c.inbox.Drain()
	n := 0
	if buf != nil {
		n = buf.Size()
		c.feed(buf.ToBytes())
		buf.Free()
	}
	if closed && c.inbox != nil {
		c.peerClosed(err)
	}
	return n
}

func (c *Conn) feed(data []byte) {
	for len(data) > 0 {
		r, ok := c.outstanding.Peek()
		if !ok {
			kernel.DebugLog("httpc %s discard %d unsolicited bytes", c.Addr(), len(data))
			return
		}
		n, err := r.Feed(data)
		data = data[n:]
		if !r.Complete() {
			continue
		}
		c.outstanding.Pop()
		if err != nil {
			// every violation is treated as lost framing on a byte stream, so the
			// connection goes and the rest get ErrConnClosed
			kernel.DebugLog("httpc %s protocol violation: %s", c.Addr(), err)
			c.closeWith(ErrConnClosed)
			return
		}
		if r.WillClose() {
			c.closeWith(ErrConnClosed)
			return
		}
	}
}

func (c *Conn) peerClosed(err error) {
	if err != nil {
		kernel.DebugLog("httpc %s read error: %s", c.Addr(), err)
	}
	c.dropSocket()
	for {
		r, ok := c.outstanding.Pop()
		if !ok {
			break
		}
		_ = r.ConnClosed()
	}
}

func (c *Conn) closeWith(err error) {
	c.dropSocket()
	for {
		r, ok := c.outstanding.Pop()
		if !ok {
			break
		}
		r.Abort(err)
	}
}

func (c *Conn) dropSocket() {
	if c.socket != nil {
		_ = c.socket.Close()
	}
	c.socket, c.inbox = nil, nil
	c.state = stateIdle
	c.lines = c.lines[:0]
}

func (c *Conn) write(buf []byte) error {
	for len(buf) > 0 {
		n, err := c.socket.Write(buf)
		if err == nil && n <= 0 {
			err = io.ErrShortWrite
		}
		if err != nil {
			werr := transportError("write", c.Addr(), err)
			c.closeWith(ErrConnClosed)
			return werr
		}
		buf = buf[n:]
	}
	return nil
}

// ipv6 literals keep their brackets in the url host
func (c *Conn) dialHost() string {
	return strings.TrimSuffix(strings.TrimPrefix(c.host, "["), "]")
}
