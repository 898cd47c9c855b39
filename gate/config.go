package gate

import "time"

func WithDialTimeout(d time.Duration) optFun {
	return func(o *optStruct) {
		if d > 0 {
			o.dialTimeout = d
		}
	}
}

// 0 disables the write deadline
func WithWriteTimeout(d time.Duration) optFun {
	return func(o *optStruct) {
		o.writeTimeout = d
	}
}

func WithReadBufferSize(size int) optFun {
	return func(o *optStruct) {
		if size > 0 {
			o.readBufferSize = size
		}
	}
}

func WithName(name string) optFun {
	return func(o *optStruct) {
		o.name = name
	}
}
