package popularity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreTopN(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, key := range []string{"projects", "skills", "skills", "contact", "skills", "projects"} {
		require.NoError(t, s.Increment(ctx, key))
	}

	top, err := s.TopN(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"skills", "projects"}, top)

	all, err := s.TopN(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"skills", "projects", "contact"}, all)
}

func TestMemoryStoreTiesKeepFirstSeenOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Increment(ctx, "b"))
	require.NoError(t, s.Increment(ctx, "a"))

	top, err := s.TopN(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, top)
}

func TestMemoryStoreEmpty(t *testing.T) {
	top, err := NewMemoryStore().TopN(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestRedisStoreTopNZero(t *testing.T) {
	s := NewRedisStoreFromClient(nil, "")
	assert.Equal(t, "folio:suggestions", s.key)

	top, err := s.TopN(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, top)
}
