package retrieval

import (
	"sort"

	"github.com/hyperjump/kiku/internal/models"
)

// fusedPassage holds a passage and its fused keyword/semantic scores.
type fusedPassage struct {
	ID            string
	Passage       models.Passage
	Score         float64
	KeywordScore  float64
	SemanticScore float64
}

// normalizeByMax scales scores to [0,1] by the maximum score.
func normalizeByMax(scores map[string]float64) map[string]float64 {
	var maxScore float64
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	normalized := make(map[string]float64, len(scores))
	for id, s := range scores {
		if maxScore > 0 {
			normalized[id] = s / maxScore
		} else {
			normalized[id] = 0
		}
	}
	return normalized
}

// fuse merges keyword and semantic hits with weights and returns them sorted by
// fused score. Keyword scores are max-normalized; semantic scores are cosine
// similarities and used as-is. Ties are broken by passage id.
func fuse(keywordHits, semanticHits map[string]models.Passage, keywordWeight float64) []*fusedPassage {
	semanticWeight := 1 - keywordWeight

	kwScores := make(map[string]float64, len(keywordHits))
	for id, p := range keywordHits {
		kwScores[id] = p.Score
	}
	kwScores = normalizeByMax(kwScores)

	scoreMap := make(map[string]*fusedPassage)
	for id, p := range keywordHits {
		scoreMap[id] = &fusedPassage{ID: id, Passage: p, KeywordScore: kwScores[id]}
	}
	for id, p := range semanticHits {
		if result, exists := scoreMap[id]; exists {
			result.SemanticScore = p.Score
		} else {
			scoreMap[id] = &fusedPassage{ID: id, Passage: p, SemanticScore: p.Score}
		}
	}
	results := make([]*fusedPassage, 0, len(scoreMap))
	for _, result := range scoreMap {
		result.Score = (keywordWeight * result.KeywordScore) + (semanticWeight * result.SemanticScore)
		result.Passage.Score = result.Score
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	return results
}
