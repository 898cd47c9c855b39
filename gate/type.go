package gate

import (
	"errors"
	"time"
)

var (
	ErrSocketClosed = errors.New("socket closed")
	ErrDialerClosed = errors.New("dialer closed")
)

// Socket is the write half of an outbound connection. Inbound bytes land in
// the Inbox handed to Dial.
type Socket interface {
	Write(buf []byte) (int, error)
	Close() error
	RemoteAddr() string
}

// Dialer opens outbound tcp connections whose reads are delivered into an Inbox.
type Dialer interface {
	Dial(host string, port int, in *Inbox) (Socket, error)
	Close() error
}

type optStruct struct {
	dialTimeout    time.Duration
	writeTimeout   time.Duration
	readBufferSize int
	name           string
}

type optFun func(o *optStruct)

func parseOpt(opt []optFun) *optStruct {
	df := &optStruct{
		dialTimeout:    10 * time.Second,
		writeTimeout:   10 * time.Second,
		readBufferSize: 4 * 1024,
		name:           "gopost",
	}
	for _, f := range opt {
		f(df)
	}
	return df
}
