// -----------------------------------------------------------------------
// Context Assembler - Prompt context construction under a size budget
// -----------------------------------------------------------------------

package query

import (
	"fmt"
	"strings"

	"github.com/corvus-labs/gnosis/internal/models"
)

// assembleContext concatenates the reranked chunks into one context block,
// each prefixed with its source attribution, in rank order and subject to
// the character budget. Chunks that would exceed the budget are dropped
// whole from the tail, never truncated mid-chunk. The returned slice holds
// exactly the chunks included in the block, in assembly order.
func assembleContext(chunks []models.ScoredChunk, budget int) (string, []models.ScoredChunk) {
	var (
		segments []string
		included []models.ScoredChunk
		total    int
	)

	for _, chunk := range chunks {
		segment := fmt.Sprintf("[Source: %s]\n%s", sourceLabel(chunk.Chunk.Metadata), chunk.Chunk.Text)

		cost := len(segment)
		if len(segments) > 0 {
			cost += len("\n\n")
		}
		if total+cost > budget {
			break
		}

		segments = append(segments, segment)
		included = append(included, chunk)
		total += cost
	}

	return strings.Join(segments, "\n\n"), included
}

// sourceLabel picks the human-readable origin of a chunk for the context
// prefix: the source descriptor, falling back to the crawled URL.
func sourceLabel(meta models.ChunkMetadata) string {
	if meta.Source != "" {
		return meta.Source
	}
	if meta.URL != "" {
		return meta.URL
	}
	return "unknown"
}
