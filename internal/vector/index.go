// Package vector provides an in-memory vector index and similarity helpers.
package vector

import "context"

// Filter reports whether the vector with the given id may appear in results.
// A nil Filter admits every id.
type Filter func(id string) bool

// Index defines vector storage and similarity search.
type Index interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int, filter Filter) ([]*Result, error)
	Remove(ctx context.Context, ids []string) error
	Size() int
	Close() error
}

// Result is a single vector search hit. ID is the passage id.
type Result struct {
	ID    string
	Score float64 // inner product, equal to cosine similarity for normalized vectors
}
