package retrieval

import (
	"context"

	"github.com/kailas-cloud/nfagent/internal/domain"
)

// Searcher invokes the external search capability.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)
}
