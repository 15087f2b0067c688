package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFOOrder(t *testing.T) {
	q := New[int](3)
	require.True(t, q.TryWrite(1))
	require.True(t, q.TryWrite(2))
	require.True(t, q.TryWrite(3))

	for _, want := range []int{1, 2, 3} {
		got, ok := q.TryRead()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := q.TryRead()
	assert.False(t, ok, "drained queue should report empty")
}

func TestFullRejectsWrite(t *testing.T) {
	q := New[string](2)
	require.True(t, q.TryWrite("a"))
	require.True(t, q.TryWrite("b"))
	assert.False(t, q.TryWrite("c"))
	assert.Equal(t, 2, q.Len())

	v, ok := q.TryRead()
	require.True(t, ok)
	assert.Equal(t, "a", v)
	assert.True(t, q.TryWrite("c"), "read should free a slot")

	v, _ = q.TryRead()
	assert.Equal(t, "b", v)
	v, _ = q.TryRead()
	assert.Equal(t, "c", v)
}

func TestCursorResetsWhenDrained(t *testing.T) {
	q := New[int](4)
	for round := 0; round < 5; round++ {
		require.True(t, q.TryWrite(round))
		require.True(t, q.TryWrite(round+100))
		assert.Equal(t, 2, q.Len())
		a, _ := q.TryRead()
		b, _ := q.TryRead()
		assert.Equal(t, round, a)
		assert.Equal(t, round+100, b)
		assert.Equal(t, empty, q.readEnd)
		assert.Equal(t, 0, q.Len())
	}
}

func TestWrapAround(t *testing.T) {
	q := New[int](3)
	next := 0
	want := 0
	// Keep the queue partially full while the cursors wrap many times.
	for i := 0; i < 20; i++ {
		for q.TryWrite(next) {
			next++
		}
		assert.Equal(t, 3, q.Len())
		got, ok := q.TryRead()
		require.True(t, ok)
		assert.Equal(t, want, got)
		want++
	}
}

func TestCapacityOne(t *testing.T) {
	q := New[int](1)
	assert.Equal(t, 1, q.Cap())
	require.True(t, q.TryWrite(7))
	assert.False(t, q.TryWrite(8))
	v, ok := q.TryRead()
	require.True(t, ok)
	assert.Equal(t, 7, v)
	_, ok = q.TryRead()
	assert.False(t, ok)
}

func TestNewPanicsOnZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { New[int](0) })
}

func TestChannelDrain(t *testing.T) {
	c := NewChannel[int](5)
	for i := 1; i <= 4; i++ {
		require.True(t, c.Write(i))
	}
	var seen []int
	n := c.Drain(func(v int) { seen = append(seen, v) })
	assert.Equal(t, 4, n)
	assert.Equal(t, []int{1, 2, 3, 4}, seen)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 5, c.Cap())

	_, ok := c.Read()
	assert.False(t, ok)
}
