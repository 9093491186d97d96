package catalog

import (
	"context"
	"strings"

	"github.com/avvvet/partsbuddy-agent/internal/models"
)

// MemoryCatalog serves a fixed product list from memory
type MemoryCatalog struct {
	products []models.Product
	byPart   map[string]int
	guides   []models.TroubleshootingGuide
}

func NewMemoryCatalog(products []models.Product, guides []models.TroubleshootingGuide) *MemoryCatalog {
	c := &MemoryCatalog{
		products: products,
		byPart:   make(map[string]int, len(products)),
		guides:   guides,
	}
	for i, p := range products {
		c.byPart[strings.ToUpper(p.PartNumber)] = i
	}
	return c
}

// NewSeedCatalog builds a MemoryCatalog from the embedded seed data
func NewSeedCatalog() (*MemoryCatalog, error) {
	products, guides, err := LoadSeed()
	if err != nil {
		return nil, err
	}
	return NewMemoryCatalog(products, guides), nil
}

func (c *MemoryCatalog) GetProduct(ctx context.Context, partNumber string) (*models.Product, error) {
	i, ok := c.byPart[strings.ToUpper(partNumber)]
	if !ok {
		return nil, ErrNotFound
	}
	p := c.products[i]
	return &p, nil
}

func (c *MemoryCatalog) ProductsForModel(ctx context.Context, modelNumber string) ([]models.Product, error) {
	var out []models.Product
	for _, p := range c.products {
		if p.FitsModel(modelNumber) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *MemoryCatalog) Products(ctx context.Context) ([]models.Product, error) {
	return append([]models.Product(nil), c.products...), nil
}

func (c *MemoryCatalog) Guides(ctx context.Context) ([]models.TroubleshootingGuide, error) {
	return append([]models.TroubleshootingGuide(nil), c.guides...), nil
}
