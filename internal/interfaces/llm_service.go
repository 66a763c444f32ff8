package interfaces

import "context"

// GenerationService wraps the external LLM inference endpoint. Single-shot;
// no streaming contract is required by the core.
type GenerationService interface {
	// Generate produces the final answer text from the instruction, the
	// assembled context block, and the user's query.
	Generate(ctx context.Context, instruction, contextBlock, query string) (string, error)

	// HealthCheck verifies the service is operational and can handle requests
	HealthCheck(ctx context.Context) error

	// Close releases resources and performs cleanup operations
	Close() error
}
