// Package registry owns one vector store per entity type: lazy construction,
// bulk builds from the backing relational store, incremental mutation, and the
// optional time-based refresh policy.
package registry

import (
	"context"

	"github.com/pawlink/recall/internal/models"
)

// Seed is one entity rendered for indexing: its id, the text handed to the
// embedding provider, and the denormalized metadata stored alongside.
type Seed struct {
	ID       int64
	Text     string
	Metadata models.Metadata
}

// EntitySource supplies the entity-specific half of a store: which rows are
// index-eligible and how each renders to embedding text. LoadAll must skip
// ineligible entities (private accounts, private archives) entirely.
type EntitySource interface {
	Entity() string
	LoadAll(ctx context.Context) ([]Seed, error)
}
