package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/avvvet/partsbuddy-agent/internal/catalog"
	"github.com/avvvet/partsbuddy-agent/internal/models"
	"github.com/avvvet/partsbuddy-agent/internal/vectorsearch"
)

// productSearch lists exact catalog matches first, then semantic neighbours
type productSearch struct {
	catalog  catalog.Catalog
	searcher vectorsearch.Searcher
	topK     int
}

func (t *productSearch) Run(ctx context.Context, args map[string]string) (any, error) {
	query := args[ArgQuery]
	var hits []models.ProductHit
	seen := make(map[string]bool)
	add := func(h models.ProductHit) {
		id := strings.ToUpper(h.Product.PartNumber)
		if seen[id] {
			return
		}
		seen[id] = true
		hits = append(hits, h)
	}

	requested := splitList(args[ArgPartNumbers])
	for _, partNumber := range requested {
		p, err := t.catalog.GetProduct(ctx, partNumber)
		if errors.Is(err, catalog.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		add(models.ProductHit{Product: *p, Score: 1, ExactMatch: true})
	}

	if modelNumber := args[ArgModelNumber]; modelNumber != "" {
		products, err := t.catalog.ProductsForModel(ctx, modelNumber)
		if err != nil {
			return nil, err
		}
		for _, p := range products {
			if appliance := args[ArgApplianceType]; appliance != "" && p.ApplianceType != appliance {
				continue
			}
			add(models.ProductHit{Product: p, Score: 1, ExactMatch: true})
		}
	}

	semantic, err := t.searcher.SearchProducts(ctx, query, t.topK, args[ArgApplianceType])
	if err != nil {
		// exact matches still answer the question
		if len(hits) > 0 {
			return models.ProductSearchPayload{Query: query, Hits: hits}, nil
		}
		return nil, err
	}

	wanted := make(map[string]bool, len(requested))
	for _, pn := range requested {
		wanted[pn] = true
	}
	for _, h := range semantic {
		id := strings.ToUpper(h.Product.PartNumber)
		if seen[id] {
			continue
		}
		if wanted[id] {
			// the index knows a requested part the catalog missed
			seen[id] = true
			h.ExactMatch = true
			hits = append([]models.ProductHit{h}, hits...)
			continue
		}
		add(h)
	}

	return models.ProductSearchPayload{Query: query, Hits: hits}, nil
}

func (t *productSearch) Decode(data []byte) (any, error) {
	return decode[models.ProductSearchPayload](data)
}
