// Package catalog is the read-only product and troubleshooting store.
package catalog

import (
	"context"
	"errors"

	"github.com/avvvet/partsbuddy-agent/internal/models"
)

var ErrNotFound = errors.New("part not found")

// Catalog answers exact lookups. Semantic lookups live in vectorsearch.
type Catalog interface {
	GetProduct(ctx context.Context, partNumber string) (*models.Product, error)
	ProductsForModel(ctx context.Context, modelNumber string) ([]models.Product, error)
	Products(ctx context.Context) ([]models.Product, error)
	Guides(ctx context.Context) ([]models.TroubleshootingGuide, error)
}
