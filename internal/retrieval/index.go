// Package retrieval implements the similarity index that ingestion writes to and
// the chat pipeline queries. Documents are split into passages and ranked by
// keyword (Bleve BM25), embedding similarity, or a weighted fusion of both.
package retrieval

import (
	"context"

	"github.com/hyperjump/kiku/internal/models"
)

// QueryOptions narrows a Query.
type QueryOptions struct {
	// AssetID restricts results to one document. Empty searches every document.
	AssetID string
	// TopK is the maximum number of passages returned.
	TopK int
}

// Index stores document text as passages and returns the passages most similar to a query.
type Index interface {
	// Add indexes text under assetID. Text without words adds no passages.
	Add(ctx context.Context, assetID, text string) error
	// Query returns at most opts.TopK passages ordered by descending score.
	Query(ctx context.Context, text string, opts QueryOptions) ([]models.Passage, error)
	// Remove deletes every passage of assetID. Unknown ids are ignored.
	Remove(ctx context.Context, assetID string) error
	// Size returns the number of indexed passages.
	Size() int
	Close() error
}
