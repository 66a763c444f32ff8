// -----------------------------------------------------------------------
// Reranker - Lexical fine-grained reordering of retrieval candidates
// -----------------------------------------------------------------------

package query

import (
	"sort"
	"strings"
	"unicode"

	"github.com/corvus-labs/gnosis/internal/models"
)

// rerank reorders candidates by a finer lexical relevance score,
// independent of the coarse vector similarity, and truncates to topK.
// Ties are stable: equal scores preserve the retriever's relative order.
// When the candidate set is already topK or smaller, everything passes
// through reordered.
func rerank(query string, candidates []models.ScoredChunk, topK int) []models.ScoredChunk {
	if len(candidates) == 0 {
		return nil
	}

	queryTerms := tokenize(query)

	reranked := make([]models.ScoredChunk, len(candidates))
	for i, candidate := range candidates {
		reranked[i] = candidate
		reranked[i].Score = relevanceScore(queryTerms, candidate.Chunk.Text)
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})

	if len(reranked) > topK {
		reranked = reranked[:topK]
	}
	return reranked
}

// relevanceScore measures how well a chunk covers the query's terms: the
// fraction of distinct query terms present, plus a small density bonus for
// repeated matches so equal coverage still differentiates.
func relevanceScore(queryTerms []string, text string) float32 {
	if len(queryTerms) == 0 {
		return 0
	}

	chunkTerms := tokenize(text)
	if len(chunkTerms) == 0 {
		return 0
	}

	counts := make(map[string]int, len(chunkTerms))
	for _, term := range chunkTerms {
		counts[term]++
	}

	distinct := make(map[string]bool, len(queryTerms))
	for _, term := range queryTerms {
		distinct[term] = true
	}

	matched := 0
	occurrences := 0
	for term := range distinct {
		if counts[term] > 0 {
			matched++
			occurrences += counts[term]
		}
	}

	coverage := float32(matched) / float32(len(distinct))
	density := float32(occurrences) / float32(len(chunkTerms))
	return coverage + 0.1*density
}

// tokenize lowercases and splits on non-alphanumeric runes, dropping terms
// too short to carry signal.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	terms := make([]string, 0, len(fields))
	for _, field := range fields {
		if len(field) >= 2 {
			terms = append(terms, field)
		}
	}
	return terms
}
