package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selfcaststudios/sitecast/internal/content"
	"github.com/selfcaststudios/sitecast/internal/errors"
)

func item(key, value string) content.ContentItem {
	return content.ContentItem{Key: key, Value: value}
}

func TestCreateAndGetProject(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	created, err := s.CreateProject(ctx, "demo-1", []content.ContentItem{item("rendered_title", "Hi")})
	require.NoError(t, err)
	assert.Equal(t, "demo-1", created.ProjectID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := s.GetProject(ctx, "demo-1")
	require.NoError(t, err)
	assert.Equal(t, []content.ContentItem{item("rendered_title", "Hi")}, got.Content)
}

func TestGetProjectNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetProject(context.Background(), "nope")
	assert.ErrorIs(t, err, errors.ErrProjectNotFound)
}

func TestCreateProjectDuplicate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.CreateProject(ctx, "demo-1", nil)
	require.NoError(t, err)

	_, err = s.CreateProject(ctx, "demo-1", nil)
	assert.ErrorIs(t, err, errors.ErrDuplicateProject)
}

func TestCreateProjectDedupesInitialItems(t *testing.T) {
	s := NewMemoryStore()
	created, err := s.CreateProject(context.Background(), "demo-1", []content.ContentItem{
		item("a", "1"), item("a", "2"), item("b", "3"),
	})
	require.NoError(t, err)
	assert.Equal(t, []content.ContentItem{item("a", "2"), item("b", "3")}, created.Content)
}

func TestListProjectIDs(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ids, err := s.ListProjectIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = s.CreateProject(ctx, "beta", nil)
	require.NoError(t, err)
	_, err = s.CreateProject(ctx, "alpha", nil)
	require.NoError(t, err)

	ids, err = s.ListProjectIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, ids)
}

func TestUpsertContentCreatesProject(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	updated, err := s.UpsertContent(ctx, "fresh", []content.ContentItem{item("k", "v")})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	p, err := s.GetProject(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, []content.ContentItem{item("k", "v")}, p.Content)
}

func TestUpsertContentOverwritesAndAppends(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.CreateProject(ctx, "demo-1", []content.ContentItem{item("a", "1")})
	require.NoError(t, err)

	updated, err := s.UpsertContent(ctx, "demo-1", []content.ContentItem{
		item("a", "updated"),
		item("b", "new"),
		{Key: "", Value: "skipped"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	p, err := s.GetProject(ctx, "demo-1")
	require.NoError(t, err)
	assert.Equal(t, []content.ContentItem{item("a", "updated"), item("b", "new")}, p.Content)
}

func TestUpsertContentBumpsUpdatedAt(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	created, err := s.CreateProject(ctx, "demo-1", nil)
	require.NoError(t, err)

	_, err = s.UpsertContent(ctx, "demo-1", []content.ContentItem{item("k", "v")})
	require.NoError(t, err)

	p, err := s.GetProject(ctx, "demo-1")
	require.NoError(t, err)
	assert.False(t, p.UpdatedAt.Before(created.UpdatedAt))
}

// Concurrent upserts to different keys of the same project must both be
// retained.
func TestUpsertContentConcurrentKeyIsolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.CreateProject(ctx, "demo-1", []content.ContentItem{item("a", "1"), item("b", "2")})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = s.UpsertContent(ctx, "demo-1", []content.ContentItem{item("a", "9")})
	}()
	go func() {
		defer wg.Done()
		_, _ = s.UpsertContent(ctx, "demo-1", []content.ContentItem{item("c", "3")})
	}()
	wg.Wait()

	p, err := s.GetProject(ctx, "demo-1")
	require.NoError(t, err)

	values := map[string]string{}
	for _, it := range p.Content {
		values[it.Key] = it.Value
	}
	assert.Equal(t, map[string]string{"a": "9", "b": "2", "c": "3"}, values)
}

func TestReplaceContent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.CreateProject(ctx, "demo-1", []content.ContentItem{item("a", "1"), item("b", "2")})
	require.NoError(t, err)

	require.NoError(t, s.ReplaceContent(ctx, "demo-1", []content.ContentItem{item("c", "3")}))

	p, err := s.GetProject(ctx, "demo-1")
	require.NoError(t, err)
	assert.Equal(t, []content.ContentItem{item("c", "3")}, p.Content)
}

func TestGetProjectReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.CreateProject(ctx, "demo-1", []content.ContentItem{item("a", "1")})
	require.NoError(t, err)

	p, err := s.GetProject(ctx, "demo-1")
	require.NoError(t, err)
	p.Content[0].Value = "mutated"

	fresh, err := s.GetProject(ctx, "demo-1")
	require.NoError(t, err)
	assert.Equal(t, "1", fresh.Content[0].Value)
}
