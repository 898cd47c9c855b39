package ringbuffer

/*
	Growable ring buffer, used instead of container/list to avoid per-element garbage.
	Not safe for concurrent use: the owner serializes access.
*/

type SingleRingBuffer[T any] struct {
	head   int
	tail   int
	cap    int
	maxCap int // when the queue drains it shrinks back to maxCap
	cache  []T
}

// size and maxSize must be powers of two
func NewSingleRingBuffer[T any](size, maxSize int) *SingleRingBuffer[T] {
	if !isPower(size) || !isPower(maxSize) {
		return nil
	}
	return &SingleRingBuffer[T]{
		cap:    size,
		maxCap: maxSize,
		cache:  make([]T, size),
	}
}

func (s *SingleRingBuffer[T]) Size() int {
	if s.head > s.tail {
		return s.cap - s.head + s.tail
	}
	return s.tail - s.head
}

// Put appends value, growing the buffer when it is full.
func (s *SingleRingBuffer[T]) Put(value T) {
	next := (s.tail + 1) & (s.cap - 1)
	if next == s.head {
		s.expand()
		next = (s.tail + 1) & (s.cap - 1)
	}
	s.cache[s.tail] = value
	s.tail = next
}

// Peek returns the oldest value without removing it.
func (s *SingleRingBuffer[T]) Peek() (v T, ok bool) {
	if s == nil || s.tail == s.head {
		return v, false
	}
	return s.cache[s.head], true
}

func (s *SingleRingBuffer[T]) Pop() (v T, ok bool) {
	if s == nil || s.tail == s.head {
		return v, false
	}
	var zero T
	v = s.cache[s.head]
	s.cache[s.head] = zero // gc
	s.head = (s.head + 1) & (s.cap - 1)
	if s.tail == s.head && s.cap > s.maxCap {
		s.narrow()
	}
	return v, true
}

func (s *SingleRingBuffer[T]) expand() {
	newCap := s.cap * 2
	cache := make([]T, newCap)
	var size int
	if s.head > s.tail {
		idx := s.cap - s.head
		size = idx + s.tail
		copy(cache, s.cache[s.head:])
		copy(cache[idx:], s.cache[0:s.tail])
	} else {
		size = s.tail - s.head
		copy(cache, s.cache[s.head:s.tail])
	}
	s.head = 0
	s.tail = size
	s.cache = cache
	s.cap = newCap
}

func (s *SingleRingBuffer[T]) narrow() {
	s.cache = make([]T, s.maxCap)
	s.cap = s.maxCap
	s.head = 0
	s.tail = 0
}

func isPower(v int) bool {
	return v > 0 && v&(v-1) == 0
}
