package interfaces

import (
	"context"

	"github.com/corvus-labs/gnosis/internal/models"
)

// QueryService answers a natural-language question against the caller's
// knowledge base. Pipeline failures populate the result's Error field; no
// error crosses the caller boundary.
type QueryService interface {
	Run(ctx context.Context, req *models.QueryRequest) *models.QueryResult
}
