package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/selfcaststudios/sitecast/internal/content"
	"github.com/selfcaststudios/sitecast/internal/errors"
)

// MemoryStore is an in-process Store used by tests and the "memory"
// backend. Per-key upsert runs under a single lock, so concurrent
// different-key writes to the same project are never lost.
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string]*content.Project
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{projects: make(map[string]*content.Project)}
}

// GetProject returns a copy of the stored project.
func (s *MemoryStore) GetProject(ctx context.Context, projectID string) (*content.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[projectID]
	if !ok {
		return nil, errors.NotFound("project_not_found", "project not found").
			WithContext("project_id", projectID)
	}
	return cloneProject(p), nil
}

// ListProjectIDs returns all project ids in lexical order.
func (s *MemoryStore) ListProjectIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.projects))
	for id := range s.projects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// CreateProject creates a new project, failing on duplicate ids.
func (s *MemoryStore) CreateProject(ctx context.Context, projectID string, items []content.ContentItem) (*content.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.projects[projectID]; exists {
		return nil, errors.Validation("duplicate_project", "project id already exists").
			WithContext("project_id", projectID)
	}

	now := time.Now()
	p := &content.Project{
		ProjectID: projectID,
		Content:   dedupeItems(items),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.projects[projectID] = p
	return cloneProject(p), nil
}

// UpsertContent applies per-key upsert semantics, creating the project
// when missing.
func (s *MemoryStore) UpsertContent(ctx context.Context, projectID string, items []content.ContentItem) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	p, ok := s.projects[projectID]
	if !ok {
		p = &content.Project{ProjectID: projectID, CreatedAt: now}
		s.projects[projectID] = p
	}

	updated := 0
	for _, item := range items {
		if item.Key == "" {
			continue
		}
		replaced := false
		for i := range p.Content {
			if p.Content[i].Key == item.Key {
				p.Content[i].Value = item.Value
				replaced = true
				break
			}
		}
		if !replaced {
			p.Content = append(p.Content, item)
		}
		updated++
	}
	p.UpdatedAt = now
	return updated, nil
}

// ReplaceContent swaps the entire content collection atomically.
func (s *MemoryStore) ReplaceContent(ctx context.Context, projectID string, items []content.ContentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	p, ok := s.projects[projectID]
	if !ok {
		p = &content.Project{ProjectID: projectID, CreatedAt: now}
		s.projects[projectID] = p
	}
	p.Content = dedupeItems(items)
	p.UpdatedAt = now
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

func cloneProject(p *content.Project) *content.Project {
	clone := *p
	clone.Content = make([]content.ContentItem, len(p.Content))
	copy(clone.Content, p.Content)
	return &clone
}

// dedupeItems keeps the last value per key while preserving first-seen
// order, mirroring the key-uniqueness invariant.
func dedupeItems(items []content.ContentItem) []content.ContentItem {
	out := make([]content.ContentItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		if item.Key == "" {
			continue
		}
		if i, seen := index[item.Key]; seen {
			out[i].Value = item.Value
			continue
		}
		index[item.Key] = len(out)
		out = append(out, item)
	}
	return out
}
