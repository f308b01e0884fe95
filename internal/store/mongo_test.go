package store

import (
	"context"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selfcaststudios/sitecast/internal/content"
)

// mongoTestStore connects to the server named by SITECAST_MONGO_URI and
// skips otherwise, so the suite stays green without a local mongod.
func mongoTestStore(t *testing.T) *MongoStore {
	t.Helper()
	uri := os.Getenv("SITECAST_MONGO_URI")
	if uri == "" {
		t.Skip("SITECAST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := NewMongoStore(ctx, uri, "sitecast_test")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.coll.Drop(context.Background())
		_ = s.Close(context.Background())
	})
	return s
}

func TestMongoUpsertConcurrentSameKey(t *testing.T) {
	s := mongoTestStore(t)
	ctx := context.Background()

	// Concurrent writers racing on one key must each land a write: the
	// guarded push admits exactly one element, and the losers fall back
	// to the positional overwrite instead of dropping their value.
	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			updated, err := s.UpsertContent(ctx, "race", []content.ContentItem{
				{Key: "shared", Value: strconv.Itoa(i)},
			})
			assert.NoError(t, err)
			assert.Equal(t, 1, updated)
		}(i)
	}
	wg.Wait()

	p, err := s.GetProject(ctx, "race")
	require.NoError(t, err)

	occurrences := 0
	for _, item := range p.Content {
		if item.Key == "shared" {
			occurrences++
		}
	}
	assert.Equal(t, 1, occurrences)
}

func TestMongoUpsertRoundTrip(t *testing.T) {
	s := mongoTestStore(t)
	ctx := context.Background()

	updated, err := s.UpsertContent(ctx, "rt", []content.ContentItem{
		{Key: "rendered_title", Value: "Ada"},
		{Key: "primary_color", Value: "#112233"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	updated, err = s.UpsertContent(ctx, "rt", []content.ContentItem{
		{Key: "rendered_title", Value: "Grace"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	p, err := s.GetProject(ctx, "rt")
	require.NoError(t, err)
	value, ok := p.Item("rendered_title")
	require.True(t, ok)
	assert.Equal(t, "Grace", value)
	assert.Len(t, p.Content, 2)
}
