// internal/registry/registry_test.go
package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayNameDisambiguation(t *testing.T) {
	r := New()
	r.Register(3, "Alice")
	r.Register(7, "Alice")
	r.Register(9, "Bob")

	assert.True(t, r.IsDuplicate("Alice"))
	assert.False(t, r.IsDuplicate("Bob"))
	assert.Equal(t, "Alice(3)", r.DisplayName(3))
	assert.Equal(t, "Alice(7)", r.DisplayName(7))
	assert.Equal(t, "Bob", r.DisplayName(9))

	// Once one Alice leaves the other renders unadorned again.
	r.Unregister(7)
	assert.False(t, r.IsDuplicate("Alice"))
	assert.Equal(t, "Alice", r.DisplayName(3))
}

func TestRenameMovesReference(t *testing.T) {
	r := New()
	r.Register(1, "")
	r.Register(2, "Carol")

	require.True(t, r.Rename(1, "Carol"))
	assert.True(t, r.IsDuplicate("Carol"))

	require.True(t, r.Rename(2, "Dave"))
	assert.False(t, r.IsDuplicate("Carol"))
	assert.Equal(t, "Dave", r.DisplayName(2))

	name, ok := r.Name(1)
	require.True(t, ok)
	assert.Equal(t, "Carol", name)

	assert.False(t, r.Rename(42, "nobody"))
}

func TestUnregisterUnknownIsNoop(t *testing.T) {
	r := New()
	r.Unregister(5)
	assert.Zero(t, r.Len())
}

func TestIDGenReusesSmallestReleased(t *testing.T) {
	g := NewIDGen(5)
	for want := 1; want <= 5; want++ {
		id, ok := g.Next()
		require.True(t, ok)
		assert.Equal(t, want, id)
	}
	_, ok := g.Next()
	assert.False(t, ok, "generator should be exhausted")

	g.Release(4)
	g.Release(2)
	g.Release(2) // double release is ignored

	id, ok := g.Next()
	require.True(t, ok)
	assert.Equal(t, 2, id)
	id, ok = g.Next()
	require.True(t, ok)
	assert.Equal(t, 4, id)
	_, ok = g.Next()
	assert.False(t, ok)
}

func TestIDGenNeverHandsOutLiveID(t *testing.T) {
	g := NewIDGen(1000)
	var mu sync.Mutex
	seen := make(map[int]bool)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id, ok := g.Next()
				assert.True(t, ok)
				mu.Lock()
				assert.False(t, seen[id], "id %d handed out twice", id)
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, g.InUse())
}
