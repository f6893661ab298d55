package network

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestPending(t *testing.T) *PendingChannels {
	t.Helper()

	p := NewPendingChannels()
	p.Start()
	t.Cleanup(p.Stop)

	return p
}

// TestPendingStoreExistsRemove walks an entry through its lifecycle.
func TestPendingStoreExistsRemove(t *testing.T) {
	t.Parallel()

	p := newTestPending(t)

	channel := newMockChannel(testAuthority)
	channel.SetNonce(0x1234)

	require.False(t, p.Exists(0x1234))
	require.NoError(t, p.Store(channel))
	require.True(t, p.Exists(0x1234))

	require.NoError(t, p.Remove(channel))
	require.False(t, p.Exists(0x1234))
}

// TestPendingDuplicateNonce asserts that at most one entry may pend under a
// nonce at any instant.
func TestPendingDuplicateNonce(t *testing.T) {
	t.Parallel()

	p := newTestPending(t)

	first := newMockChannel(testAuthority)
	first.SetNonce(0x42)
	second := newMockChannel(testAuthority)
	second.SetNonce(0x42)

	require.NoError(t, p.Store(first))
	require.ErrorIs(t, p.Store(second), ErrOperationFailed)

	// Removing by a nonce held by a different channel must not evict the
	// holder.
	require.ErrorIs(t, p.Remove(second), ErrNotFound)
	require.True(t, p.Exists(0x42))

	require.NoError(t, p.Remove(first))
	require.NoError(t, p.Store(second))
}

// TestPendingZeroNonce asserts that the zero nonce, reserved to mean "not
// pending", cannot be stored.
func TestPendingZeroNonce(t *testing.T) {
	t.Parallel()

	p := newTestPending(t)

	channel := newMockChannel(testAuthority)
	require.ErrorIs(t, p.Store(channel), ErrOperationFailed)
	require.False(t, p.Exists(0))
}

// TestPendingRemoveMissing asserts that removing an absent channel fails
// with ErrNotFound.
func TestPendingRemoveMissing(t *testing.T) {
	t.Parallel()

	p := newTestPending(t)

	channel := newMockChannel(testAuthority)
	channel.SetNonce(0x99)
	require.ErrorIs(t, p.Remove(channel), ErrNotFound)
}

// TestPendingStopped asserts the registry's behavior before Start and after
// Stop.
func TestPendingStopped(t *testing.T) {
	t.Parallel()

	p := NewPendingChannels()

	channel := newMockChannel(testAuthority)
	channel.SetNonce(0x7)

	require.ErrorIs(t, p.Store(channel), ErrServiceStopped)
	require.False(t, p.Exists(0x7))
	require.ErrorIs(t, p.Remove(channel), ErrServiceStopped)

	p.Start()
	require.NoError(t, p.Store(channel))

	p.Stop()
	require.ErrorIs(t, p.Store(channel), ErrServiceStopped)
	require.False(t, p.Exists(0x7))
	require.ErrorIs(t, p.Remove(channel), ErrServiceStopped)
}

// TestPendingConcurrent asserts that concurrent mutations are serialized
// without losing entries.
func TestPendingConcurrent(t *testing.T) {
	t.Parallel()

	p := newTestPending(t)

	const numChannels = 32

	var wg sync.WaitGroup
	channels := make([]*mockChannel, numChannels)
	for i := 0; i < numChannels; i++ {
		channel := newMockChannel(
			NewAuthority(fmt.Sprintf("10.0.0.%d", i), 8333))
		channel.SetNonce(uint64(i) + 1)
		channels[i] = channel

		wg.Add(1)
		go func(channel *mockChannel) {
			defer wg.Done()
			require.NoError(t, p.Store(channel))
		}(channel)
	}
	wg.Wait()

	for i := 0; i < numChannels; i++ {
		require.True(t, p.Exists(uint64(i)+1))
	}

	for _, channel := range channels {
		wg.Add(1)
		go func(channel *mockChannel) {
			defer wg.Done()
			require.NoError(t, p.Remove(channel))
		}(channel)
	}
	wg.Wait()

	for i := 0; i < numChannels; i++ {
		require.False(t, p.Exists(uint64(i)+1))
	}
}
