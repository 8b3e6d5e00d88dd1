// Package models defines core data structures for assets, chat sessions, and history.
package models

import "time"

// Asset is a single ingested document. It is immutable once stored.
type Asset struct {
	ID        string    `json:"asset_id" db:"id"`
	Filename  string    `json:"filename" db:"filename"`
	Text      string    `json:"text" db:"text"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Passage is one ranked hit returned by a similarity index.
type Passage struct {
	AssetID string  `json:"asset_id"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
}
