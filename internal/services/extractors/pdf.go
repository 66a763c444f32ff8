// -----------------------------------------------------------------------
// PDF Extractor - Per-page text extraction using pdfcpu
// -----------------------------------------------------------------------

package extractors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/corvus-labs/gnosis/internal/models"
)

// pdfExtractor extracts text content from PDF payloads, one unit per page.
// pdfcpu works on files, so each extraction round-trips through a scratch
// directory that is removed when the call returns.
type pdfExtractor struct {
	tempDir string
	logger  arbor.ILogger
}

func newPDFExtractor(logger arbor.ILogger) *pdfExtractor {
	tempDir := filepath.Join(os.TempDir(), "gnosis-pdf")
	os.MkdirAll(tempDir, 0755)

	return &pdfExtractor{
		tempDir: tempDir,
		logger:  logger,
	}
}

// extract writes the payload to a scratch file, reads the page count, and
// pulls per-page content. Unreadable input is an extraction error; pages
// without recoverable text are skipped rather than emitted empty.
func (e *pdfExtractor) extract(ctx context.Context, payload []byte, source string) ([]Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Unique scratch names so concurrent ingestion jobs never collide.
	runID := uuid.NewString()
	tempFile := filepath.Join(e.tempDir, fmt.Sprintf("extract_%s.pdf", runID))
	if err := os.WriteFile(tempFile, payload, 0644); err != nil {
		return nil, fmt.Errorf("%w: failed to write temp PDF file: %v", models.ErrExtraction, err)
	}
	defer os.Remove(tempFile)

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read PDF: %v", models.ErrExtraction, err)
	}
	pageCount := pdfCtx.PageCount

	outDir := filepath.Join(e.tempDir, fmt.Sprintf("pages_%s", runID))
	os.MkdirAll(outDir, 0755)
	defer os.RemoveAll(outDir)

	if err := api.ExtractContentFile(tempFile, outDir, nil, conf); err != nil {
		return nil, fmt.Errorf("%w: failed to extract PDF content: %v", models.ErrExtraction, err)
	}

	pageTexts := make(map[int]string)
	files, _ := os.ReadDir(outDir)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(file.Name(), "Content_page_%d", &pageNum); err == nil {
			pageTexts[pageNum] = string(content)
		}
	}

	units := make([]Unit, 0, pageCount)
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		text := normalizeText(pageTexts[pageNum])
		if text == "" {
			continue
		}
		units = append(units, Unit{
			Text: text,
			Meta: models.ChunkMetadata{
				Source: source,
				Page:   pageNum,
			},
		})
	}

	e.logger.Debug().
		Str("source", source).
		Int("page_count", pageCount).
		Int("units", len(units)).
		Msg("Extracted PDF pages")

	return units, nil
}
