// Package store provides access to the project document store. The
// Store interface is the only persistence surface the rest of sitecast
// sees; mongo.go backs it with MongoDB and memory.go with an in-process
// map for tests and ephemeral runs.
package store

import (
	"context"

	"github.com/selfcaststudios/sitecast/internal/content"
)

// Store is the content store accessor.
type Store interface {
	// GetProject returns the project or errors.ErrProjectNotFound.
	GetProject(ctx context.Context, projectID string) (*content.Project, error)

	// ListProjectIDs returns every known project id.
	ListProjectIDs(ctx context.Context) ([]string, error)

	// CreateProject creates a project with the given initial items and
	// fails with errors.ErrDuplicateProject if the id already exists.
	CreateProject(ctx context.Context, projectID string, items []content.ContentItem) (*content.Project, error)

	// UpsertContent applies per-key upsert semantics: overwrite the value
	// on key match, append otherwise. The project is created when it does
	// not exist yet. Concurrent calls for the same project touching
	// different keys must both be retained. Returns the number of items
	// processed.
	UpsertContent(ctx context.Context, projectID string, items []content.ContentItem) (int, error)

	// ReplaceContent atomically replaces the entire content collection.
	// This is the documented bulk mode for large batch updates.
	ReplaceContent(ctx context.Context, projectID string, items []content.ContentItem) error

	// Close releases underlying connections.
	Close(ctx context.Context) error
}
