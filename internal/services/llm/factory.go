// -----------------------------------------------------------------------
// LLM Factory - Provider selection for answer generation
// -----------------------------------------------------------------------

package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/corvus-labs/gnosis/internal/common"
	"github.com/corvus-labs/gnosis/internal/interfaces"
	"github.com/corvus-labs/gnosis/internal/models"
)

// NewGenerationService creates the generation service for the configured
// provider. Embedding always goes through Gemini regardless of this choice.
func NewGenerationService(config *common.Config, logger arbor.ILogger) (interfaces.GenerationService, error) {
	switch common.LLMProvider(config.LLM.DefaultProvider) {
	case common.LLMProviderClaude:
		return NewClaudeService(&config.Claude, logger)
	case common.LLMProviderGemini:
		return NewGeminiService(&config.Gemini, logger)
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", models.ErrConfiguration, config.LLM.DefaultProvider)
	}
}

// formatPrompt combines the assembled context and the user's question into
// the single-turn prompt both providers consume. An empty context block
// still produces the same shape so the model is told there is nothing to
// ground on.
func formatPrompt(contextBlock, query string) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s\n\nAnswer:", contextBlock, query)
}
