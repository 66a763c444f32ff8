package extractors

import (
	"regexp"
	"strings"

	"github.com/corvus-labs/gnosis/internal/models"
)

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// normalizeText collapses line endings and surplus blank lines. Chunk
// offsets are computed over this normalized form.
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// extractText treats the payload as UTF-8 plain text. Empty input yields
// zero units, which downstream turns into zero chunks rather than an error.
func extractText(payload []byte, source string) []Unit {
	text := normalizeText(string(payload))
	if text == "" {
		return nil
	}
	return []Unit{{
		Text: text,
		Meta: models.ChunkMetadata{Source: source},
	}}
}
