package retrieval

import (
	"fmt"
	"strings"
)

// Chunk is one passage of a document.
type Chunk struct {
	ID      string
	AssetID string
	Text    string
	Index   int
}

// Chunker splits text into overlapping word-based chunks.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in words).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 200
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Chunk splits text into chunks with overlapping windows. Whitespace inside a chunk
// is collapsed to single spaces. Chunk IDs are "<assetID>#<index>".
func (c *Chunker) Chunk(assetID, text string) []Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	step := c.chunkSize - c.chunkOverlap
	if step <= 0 {
		step = 1
	}
	var chunks []Chunk
	for i := 0; i < len(words); i += step {
		end := i + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, Chunk{
			ID:      ChunkID(assetID, len(chunks)),
			AssetID: assetID,
			Text:    strings.Join(words[i:end], " "),
			Index:   len(chunks),
		})
		if end >= len(words) {
			break
		}
	}
	return chunks
}

// ChunkID returns the passage id of the n-th chunk of assetID.
func ChunkID(assetID string, n int) string {
	return fmt.Sprintf("%s#%d", assetID, n)
}
