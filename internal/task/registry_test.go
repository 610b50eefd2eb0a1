package task

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lookup returns the live handle for id, for tests that need to observe a
// cancellation.
func (r *Registry) lookup(id uuid.UUID) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handles[id]
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	id := uuid.New()

	require.NoError(t, r.Register(id, NewHandle()))
	assert.True(t, r.IsRunning(id))
	assert.Equal(t, 1, r.Len())

	err := r.Register(id, NewHandle())
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryCancelUnknown(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Cancel(context.Background(), uuid.New()))
}

func TestRegistryCancelWaitsForDeregister(t *testing.T) {
	r := NewRegistry()
	id := uuid.New()
	h := NewHandle()
	require.NoError(t, r.Register(id, h))

	cleaned := make(chan struct{})
	go func() {
		<-h.cancel
		// the run writes its final state before deregistering
		time.Sleep(20 * time.Millisecond)
		close(cleaned)
		r.Deregister(id)
	}()

	assert.True(t, r.Cancel(context.Background(), id))
	select {
	case <-cleaned:
	default:
		t.Fatal("Cancel returned before the run cleaned up")
	}
	assert.False(t, r.IsRunning(id))
	assert.True(t, h.Cancelled())
}

func TestRegistryCancelRespectsContext(t *testing.T) {
	r := NewRegistry()
	id := uuid.New()
	h := NewHandle()
	require.NoError(t, r.Register(id, h))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.True(t, r.Cancel(ctx, id))
	assert.True(t, h.Cancelled())
	assert.True(t, r.IsRunning(id), "entry stays until the run deregisters")
}

func TestRegistryDeregisterIdempotent(t *testing.T) {
	r := NewRegistry()
	id := uuid.New()
	h := NewHandle()
	require.NoError(t, r.Register(id, h))

	r.Deregister(id)
	r.Deregister(id)
	r.Deregister(uuid.New())

	assert.Equal(t, 0, r.Len())
	select {
	case <-h.Done():
	default:
		t.Fatal("done channel should be closed")
	}
}

func TestRegistryCancelAll(t *testing.T) {
	r := NewRegistry()
	handles := []*Handle{NewHandle(), NewHandle(), NewHandle()}
	for _, h := range handles {
		require.NoError(t, r.Register(uuid.New(), h))
	}

	assert.Equal(t, 3, r.CancelAll())
	for _, h := range handles {
		assert.True(t, h.Cancelled())
	}

	// a second request is harmless
	handles[0].Cancel()
}
