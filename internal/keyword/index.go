// Package keyword provides keyword (BM25) indexing and search over passages.
package keyword

import "context"

// Passage is the unit stored in the keyword index.
type Passage struct {
	AssetID string
	Text    string
}

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// AssetID restricts hits to passages of one asset. Empty searches every asset.
	AssetID string
	// Fuzziness is the maximum Levenshtein edit distance per query term (1 or 2).
	// Zero disables fuzzy matching.
	Fuzziness int
}

// Index defines keyword search operations.
type Index interface {
	Index(ctx context.Context, id string, p Passage) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error)
	Delete(ctx context.Context, id string) error
	DeleteAsset(ctx context.Context, assetID string) error
	DocCount() (uint64, error)
	Close() error
}

// Result is a single keyword search hit.
type Result struct {
	ID      string
	AssetID string
	Text    string
	Score   float64
}
