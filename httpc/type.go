package httpc

import (
	"time"

	"github.com/liangmanlin/gopost/gate"
)

type Header struct {
	Key, Value string
}

// Request is one message for Conn.Do. Tag is carried onto the Response.
type Request struct {
	Method  string
	Target  string
	Headers []Header
	Body    []byte
	Tag     string
}

// Handler receives the notifications of a Response in order: OnBegin once the
// headers are known, OnData for every body slice, OnComplete exactly once.
// Slices passed to OnData are only valid during the call.
type Handler interface {
	OnBegin(r *Response)
	OnData(r *Response, data []byte)
	OnComplete(r *Response, err error)
}

// HandlerFuncs adapts plain funcs to a Handler, nil fields are skipped.
type HandlerFuncs struct {
	Begin    func(r *Response)
	Data     func(r *Response, data []byte)
	Complete func(r *Response, err error)
}

func (h HandlerFuncs) OnBegin(r *Response) {
	if h.Begin != nil {
		h.Begin(r)
	}
}

func (h HandlerFuncs) OnData(r *Response, data []byte) {
	if h.Data != nil {
		h.Data(r, data)
	}
}

func (h HandlerFuncs) OnComplete(r *Response, err error) {
	if h.Complete != nil {
		h.Complete(r, err)
	}
}

type nopHandler struct{}

func (nopHandler) OnBegin(*Response)           {}
func (nopHandler) OnData(*Response, []byte)    {}
func (nopHandler) OnComplete(*Response, error) {}

type connState int8

const (
	stateIdle connState = iota
	stateReqStarted
	stateReqSent
)

func (s connState) String() string {
	switch s {
	case stateIdle:
		return "IDLE"
	case stateReqStarted:
		return "REQUEST_STARTED"
	case stateReqSent:
		return "REQUEST_SENT"
	}
	return "UNKNOWN"
}

// Stats are monotonic counters of a Dispatcher.
type Stats struct {
	Enqueued  uint64 // accepted by Enqueue
	Sent      uint64 // request written to a socket
	Failed    uint64 // dropped on url, connect or write failure
	Dropped   uint64 // never processed because of shutdown
	Completed uint64 // response completed normally
	Errored   uint64 // response completed with an error
}

// ConnInfo describes one pooled connection.
type ConnInfo struct {
	Key         string
	Addr        string
	Connected   bool
	Outstanding int
	LastUsed    time.Time
}

type optStruct struct {
	dialer       gate.Dialer
	useNetDialer bool
	pumpInterval time.Duration
	idleTimeout  time.Duration
	dialTimeout  time.Duration
	writeTimeout time.Duration
	extraHeaders []Header
	handler      Handler
}

type optFun func(o *optStruct)

// Option is an optFun for callers that collect options before calling New.
type Option = optFun
