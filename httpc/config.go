package httpc

import (
	"time"

	"github.com/liangmanlin/gopost/gate"
)

const (
	DefaultPumpInterval = 100 * time.Millisecond
	DefaultIdleTimeout  = 30 * time.Second
	DefaultDialTimeout  = 5 * time.Second
	DefaultWriteTimeout = 5 * time.Second
)

func parseOpt(opt []optFun) *optStruct {
	df := &optStruct{
		pumpInterval: DefaultPumpInterval,
		idleTimeout:  DefaultIdleTimeout,
		dialTimeout:  DefaultDialTimeout,
		writeTimeout: DefaultWriteTimeout,
	}
	for _, f := range opt {
		f(df)
	}
	return df
}

// WithDialer makes the dispatcher use d instead of owning an nbio engine.
// The dispatcher does not close a dialer it was given.
func WithDialer(d gate.Dialer) optFun {
	return func(o *optStruct) {
		o.dialer = d
	}
}

// 用标准库net拨号，每个连接一个读协程
func WithNetDialer() optFun {
	return func(o *optStruct) {
		o.useNetDialer = true
	}
}

func WithPumpInterval(d time.Duration) optFun {
	return func(o *optStruct) {
		if d > 0 {
			o.pumpInterval = d
		}
	}
}

// 0 keeps idle connections forever
func WithIdleTimeout(d time.Duration) optFun {
	return func(o *optStruct) {
		if d >= 0 {
			o.idleTimeout = d
		}
	}
}

func WithDialTimeout(d time.Duration) optFun {
	return func(o *optStruct) {
		if d > 0 {
			o.dialTimeout = d
		}
	}
}

func WithWriteTimeout(d time.Duration) optFun {
	return func(o *optStruct) {
		o.writeTimeout = d
	}
}

// WithHeader adds a header to every post, after the fixed json headers.
func WithHeader(key, value string) optFun {
	return func(o *optStruct) {
		o.extraHeaders = append(o.extraHeaders, Header{Key: key, Value: value})
	}
}

// WithHandler observes every response after the dispatcher has counted it.
func WithHandler(h Handler) optFun {
	return func(o *optStruct) {
		o.handler = h
	}
}
