// -----------------------------------------------------------------------
// Chunker - Fixed-size overlapping text segmentation
// -----------------------------------------------------------------------

package chunker

import (
	"fmt"

	"github.com/corvus-labs/gnosis/internal/models"
)

// Chunker splits normalized text into overlapping fixed-size segments. It is
// purely character/offset based: span i starts at offset i*(size-overlap) and
// covers up to size runes, with the final span truncated to the remaining
// text. Not sentence- or token-aware by contract.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker. Overlap must be strictly smaller than size;
// violating that is a configuration error rejected before any work runs.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrConfiguration, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", models.ErrConfiguration, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap (%d) must be less than chunk size (%d)", models.ErrConfiguration, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split produces the ordered sequence of text spans for one input. Empty
// input yields zero spans, not an error. Offsets are rune based so
// multi-byte input never splits inside a code point.
func (c *Chunker) Split(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	stride := c.size - c.overlap

	var spans []string
	for start := 0; start < len(runes); start += stride {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		spans = append(spans, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return spans
}

// Size returns the configured chunk size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }
