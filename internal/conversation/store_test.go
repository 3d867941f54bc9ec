package conversation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CreateAndAppend(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	id, err := store.Create(ctx)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	history, err := store.History(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, history)

	now := time.Now()
	require.NoError(t, store.Append(ctx, id, Turn{Query: "q1", Answer: "a1", Timestamp: now}))
	require.NoError(t, store.Append(ctx, id, Turn{Query: "q2", Answer: "a2", Timestamp: now.Add(time.Second)}))

	history, err = store.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "q1", history[0].Query)
	assert.Equal(t, "a2", history[1].Answer)
}

func TestMemoryStore_UnknownID(t *testing.T) {
	store := NewMemoryStore()

	history, err := store.History(context.Background(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestMemoryStore_HistoryIsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Append(ctx, "c1", Turn{Query: "q", Answer: "a"}))

	history, err := store.History(ctx, "c1")
	require.NoError(t, err)
	history[0].Answer = "changed"

	again, err := store.History(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "a", again[0].Answer)
}

func TestMemoryStore_IsolationAndClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Append(ctx, "a", Turn{Query: "qa"}))
	require.NoError(t, store.Append(ctx, "b", Turn{Query: "qb"}))

	require.NoError(t, store.Clear(ctx, "a"))

	ha, err := store.History(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, ha)

	hb, err := store.History(ctx, "b")
	require.NoError(t, err)
	require.Len(t, hb, 1)
	assert.Equal(t, "qb", hb[0].Query)
}

func TestMemoryStore_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	const conversations, turns = 4, 50
	var wg sync.WaitGroup
	for c := 0; c < conversations; c++ {
		for i := 0; i < turns; i++ {
			wg.Add(1)
			go func(c, i int) {
				defer wg.Done()
				_ = store.Append(ctx, fmt.Sprintf("conv-%d", c), Turn{Query: fmt.Sprintf("q%d", i)})
			}(c, i)
		}
	}
	wg.Wait()

	for c := 0; c < conversations; c++ {
		history, err := store.History(ctx, fmt.Sprintf("conv-%d", c))
		require.NoError(t, err)
		assert.Len(t, history, turns)
	}
}
