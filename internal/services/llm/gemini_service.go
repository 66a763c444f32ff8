package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/corvus-labs/gnosis/internal/common"
	"github.com/corvus-labs/gnosis/internal/interfaces"
	"github.com/corvus-labs/gnosis/internal/models"
)

// GeminiService implements answer generation using the Google Gemini API.
type GeminiService struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	timeout time.Duration
}

// Compile-time interface assertion
var _ interfaces.GenerationService = (*GeminiService)(nil)

// NewGeminiService creates a Gemini generation service.
func NewGeminiService(config *common.GeminiConfig, logger arbor.ILogger) (*GeminiService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: Gemini API key is required (set GEMINI_API_KEY or gemini.api_key)", models.ErrConfiguration)
	}

	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid gemini timeout %q: %v", models.ErrConfiguration, config.Timeout, err)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiService{
		config:  config,
		logger:  logger,
		client:  client,
		timeout: timeout,
	}

	logger.Debug().
		Str("model", config.Model).
		Dur("timeout", timeout).
		Msg("Gemini generation service initialized")

	return service, nil
}

// Generate produces the answer for one query using a single GenerateContent
// call with the instruction as system instruction.
func (s *GeminiService) Generate(ctx context.Context, instruction, contextBlock, query string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()

	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.config.Temperature),
	}
	if instruction != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(instruction, genai.RoleUser)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(formatPrompt(contextBlock, query), genai.RoleUser),
	}

	resp, err := s.client.Models.GenerateContent(timeoutCtx, s.config.Model, contents, genConfig)
	if err != nil {
		return "", fmt.Errorf("%w: Gemini API call failed: %v", models.ErrGenerationService, err)
	}

	var answer strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					answer.WriteString(part.Text)
				}
			}
			if answer.Len() > 0 {
				break
			}
		}
	}
	if answer.Len() == 0 {
		return "", fmt.Errorf("%w: no response generated", models.ErrGenerationService)
	}

	s.logger.Debug().
		Int("answer_length", answer.Len()).
		Dur("duration", time.Since(start)).
		Msg("Gemini generation completed")

	return answer.String(), nil
}

// HealthCheck verifies the service can reach the Gemini API.
func (s *GeminiService) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("gemini client is not initialized")
	}

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	contents := []*genai.Content{genai.NewContentFromText("ping", genai.RoleUser)}
	_, err := s.client.Models.GenerateContent(probeCtx, s.config.Model, contents, nil)
	if err != nil {
		return fmt.Errorf("gemini health check failed: %w", err)
	}
	return nil
}

// Close releases resources. The genai client needs no explicit cleanup.
func (s *GeminiService) Close() error {
	s.client = nil
	return nil
}
