package gate

import (
	"sync"

	"github.com/liangmanlin/gopost/bpool"
)

// Inbox collects bytes read off a socket until the owner drains them.
// Readers push from their own goroutine; the owner polls with Drain.
type Inbox struct {
	mux    sync.Mutex
	buffer *bpool.Buff
	closed bool
	err    error
}

func NewInbox() *Inbox {
	return &Inbox{}
}

// Push copies data into the inbox. Data pushed after close is dropped.
func (in *Inbox) Push(data []byte) {
	if len(data) == 0 {
		return
	}
	in.mux.Lock()
	defer in.mux.Unlock()
	if in.closed {
		return
	}
	if in.buffer == nil {
		in.buffer = bpool.NewBuf(data)
		return
	}
	in.buffer = in.buffer.Append(data...)
}

// CloseWithError marks the peer side as gone. Only the first call counts.
func (in *Inbox) CloseWithError(err error) {
	in.mux.Lock()
	defer in.mux.Unlock()
	if in.closed {
		return
	}
	in.closed = true
	in.err = err
}

// Drain hands over everything buffered so far. The caller owns the returned
// buffer and must Free it; it is nil when nothing arrived.
func (in *Inbox) Drain() (buf *bpool.Buff, closed bool, err error) {
	in.mux.Lock()
	buf = in.buffer
	in.buffer = nil
	closed, err = in.closed, in.err
	in.mux.Unlock()
	return
}

func (in *Inbox) Closed() bool {
	in.mux.Lock()
	defer in.mux.Unlock()
	return in.closed
}
