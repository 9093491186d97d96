// Package vectorsearch answers top-k similarity queries over products and
// troubleshooting guides.
package vectorsearch

import (
	"context"
	"fmt"

	"github.com/avvvet/partsbuddy-agent/internal/catalog"
	"github.com/avvvet/partsbuddy-agent/internal/models"
)

// Searcher is the vector-similarity collaborator. An empty applianceType
// searches every category.
type Searcher interface {
	SearchProducts(ctx context.Context, query string, k int, applianceType string) ([]models.ProductHit, error)
	SearchGuides(ctx context.Context, query string, k int, applianceType string) ([]models.GuideHit, error)
}

// PgvectorSearcher embeds the query and delegates to the Postgres catalog
type PgvectorSearcher struct {
	catalog *catalog.GormCatalog
	embed   catalog.EmbedFunc
}

func NewPgvectorSearcher(c *catalog.GormCatalog, embed catalog.EmbedFunc) *PgvectorSearcher {
	return &PgvectorSearcher{catalog: c, embed: embed}
}

func (s *PgvectorSearcher) SearchProducts(ctx context.Context, query string, k int, applianceType string) ([]models.ProductHit, error) {
	if blank(query) || k <= 0 {
		return nil, nil
	}
	vec, err := s.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.catalog.SearchProducts(ctx, vec, k, applianceType)
}

func (s *PgvectorSearcher) SearchGuides(ctx context.Context, query string, k int, applianceType string) ([]models.GuideHit, error) {
	if blank(query) || k <= 0 {
		return nil, nil
	}
	vec, err := s.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.catalog.SearchGuides(ctx, vec, k, applianceType)
}
