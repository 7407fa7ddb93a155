package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingChannelDropsOldestWhenFull(t *testing.T) {
	rc := NewRingChannel[int](2)

	rc.Send(1)
	rc.Send(2)
	rc.Send(3) // 1 is dropped

	v, ok := rc.Receive()
	require.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = rc.Receive()
	require.True(t, ok)
	assert.Equal(t, 3, v)

	assert.Zero(t, rc.Len())
}

func TestRingChannelSendNeverBlocks(t *testing.T) {
	rc := NewRingChannel[string](1)

	// Repeated sends with no consumer must not block.
	for i := 0; i < 100; i++ {
		rc.Send("x")
	}
	assert.Equal(t, 1, rc.Len())
}

func TestRingChannelCloseDrains(t *testing.T) {
	rc := NewRingChannel[int](4)
	rc.Send(7)
	rc.Close()

	v, ok := rc.Receive()
	require.True(t, ok)
	assert.Equal(t, 7, v)

	_, ok = rc.Receive()
	assert.False(t, ok)
}

func TestRingChannelCapacity(t *testing.T) {
	rc := NewRingChannel[int](3)
	assert.Equal(t, 3, rc.Cap())

	assert.Panics(t, func() { NewRingChannel[int](0) })
}
