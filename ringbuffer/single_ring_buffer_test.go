package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsNonPower(t *testing.T) {
	assert.Nil(t, NewSingleRingBuffer[int](3, 4))
	assert.Nil(t, NewSingleRingBuffer[int](4, 6))
	assert.NotNil(t, NewSingleRingBuffer[int](4, 8))
}

func TestFIFOAcrossGrowth(t *testing.T) {
	q := NewSingleRingBuffer[int](2, 4)
	for i := 0; i < 3; i++ {
		q.Put(i)
	}
	v, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 0, v)
	// wrap the tail before growing
	for i := 3; i < 20; i++ {
		q.Put(i)
	}
	assert.Equal(t, 19, q.Size())
	head, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, 1, head)

	for want := 1; want < 20; want++ {
		v, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, want, v)
	}
	_, ok = q.Pop()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Size())
	assert.Equal(t, 4, q.cap, "drained queue shrinks back to maxCap")
}

func TestNilQueue(t *testing.T) {
	var q *SingleRingBuffer[string]
	_, ok := q.Pop()
	assert.False(t, ok)
	_, ok = q.Peek()
	assert.False(t, ok)
}
