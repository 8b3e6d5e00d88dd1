package keyword

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

const (
	fieldAssetID = "asset_id"
	fieldText    = "text"

	// maxFuzziness is the largest edit distance Bleve accepts for fuzzy queries.
	maxFuzziness = 2
	deleteBatch  = 500
)

// BleveIndex implements Index using an in-memory Bleve index.
type BleveIndex struct {
	index bleve.Index
}

var _ Index = (*BleveIndex)(nil)

// NewBleveIndex creates a memory-only Bleve index. Passage text uses the standard
// analyzer; the asset id is a stored keyword field used for scoped queries.
func NewBleveIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func buildMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	textFieldMapping.Store = true
	docMapping.AddFieldMappingsAt(fieldText, textFieldMapping)

	assetFieldMapping := bleve.NewKeywordFieldMapping()
	assetFieldMapping.Store = true
	docMapping.AddFieldMappingsAt(fieldAssetID, assetFieldMapping)

	im.DefaultMapping = docMapping
	return im
}

// Index stores a passage under id, replacing any passage with the same id.
func (b *BleveIndex) Index(ctx context.Context, id string, p Passage) error {
	doc := map[string]interface{}{
		fieldAssetID: p.AssetID,
		fieldText:    p.Text,
	}
	if err := b.index.Index(id, doc); err != nil {
		return fmt.Errorf("failed to index passage %s: %w", id, err)
	}
	return nil
}

// Search runs a match query over passage text and returns up to limit hits by descending score.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error) {
	if limit <= 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var assetID string
	fuzziness := 0
	if opts != nil {
		assetID = opts.AssetID
		fuzziness = opts.Fuzziness
	}
	if fuzziness > maxFuzziness {
		fuzziness = maxFuzziness
	}

	var q blevequery.Query
	if fuzziness > 0 {
		q = buildFuzzyQuery(query, fuzziness)
	} else {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(fieldText)
		q = mq
	}
	if assetID != "" {
		tq := bleve.NewTermQuery(assetID)
		tq.SetField(fieldAssetID)
		q = bleve.NewConjunctionQuery(q, tq)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{fieldAssetID, fieldText}
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*Result, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &Result{
			ID:      hit.ID,
			AssetID: stringField(hit.Fields, fieldAssetID),
			Text:    stringField(hit.Fields, fieldText),
			Score:   hit.Score,
		}
	}
	return out, nil
}

func stringField(fields map[string]interface{}, name string) string {
	s, _ := fields[name].(string)
	return s
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries, one per query term.
func buildFuzzyQuery(queryStr string, fuzziness int) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		mq.SetField(fieldText)
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(strings.Trim(term, ".,;:!?\"'()"))
		fq.SetFuzziness(fuzziness)
		fq.SetField(fieldText)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Delete removes a passage from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// DeleteAsset removes every passage belonging to assetID.
func (b *BleveIndex) DeleteAsset(ctx context.Context, assetID string) error {
	tq := bleve.NewTermQuery(assetID)
	tq.SetField(fieldAssetID)
	for {
		req := bleve.NewSearchRequest(tq)
		req.Size = deleteBatch
		results, err := b.index.SearchInContext(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to find passages of asset %s: %w", assetID, err)
		}
		if len(results.Hits) == 0 {
			return nil
		}
		batch := b.index.NewBatch()
		for _, hit := range results.Hits {
			batch.Delete(hit.ID)
		}
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("failed to delete passages of asset %s: %w", assetID, err)
		}
	}
}

// DocCount returns the total number of passages in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
