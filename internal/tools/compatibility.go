package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/avvvet/partsbuddy-agent/internal/catalog"
	"github.com/avvvet/partsbuddy-agent/internal/models"
	"github.com/avvvet/partsbuddy-agent/internal/vectorsearch"
)

const maxAlternatives = 3

type compatibilityCheck struct {
	catalog  catalog.Catalog
	searcher vectorsearch.Searcher
	topK     int
}

func (t *compatibilityCheck) Run(ctx context.Context, args map[string]string) (any, error) {
	partNumber := strings.ToUpper(args[ArgPartNumber])
	modelNumber := strings.ToUpper(args[ArgModelNumber])
	payload := models.CompatibilityPayload{PartNumber: partNumber, ModelNumber: modelNumber}

	p, err := t.catalog.GetProduct(ctx, partNumber)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		payload.PartFound = true
		payload.Product = p
		payload.Compatible = p.FitsModel(modelNumber)
	}

	if !payload.Compatible {
		alternatives, err := t.alternatives(ctx, p, partNumber, modelNumber)
		if err != nil {
			return nil, err
		}
		payload.Alternatives = alternatives
	}
	return payload, nil
}

// alternatives prefers semantic neighbours of the part that fit the model,
// then falls back to any catalog part listed for the model.
func (t *compatibilityCheck) alternatives(ctx context.Context, p *models.Product, partNumber, modelNumber string) ([]models.Product, error) {
	var out []models.Product
	seen := map[string]bool{partNumber: true}

	if p != nil {
		hits, err := t.searcher.SearchProducts(ctx, p.Name+" "+p.Description, t.topK*2, p.ApplianceType)
		if err == nil {
			for _, h := range hits {
				id := strings.ToUpper(h.Product.PartNumber)
				if seen[id] || !h.Product.FitsModel(modelNumber) {
					continue
				}
				seen[id] = true
				out = append(out, h.Product)
				if len(out) == maxAlternatives {
					return out, nil
				}
			}
		}
	}

	products, err := t.catalog.ProductsForModel(ctx, modelNumber)
	if err != nil {
		if len(out) > 0 {
			return out, nil
		}
		return nil, err
	}
	for _, candidate := range products {
		id := strings.ToUpper(candidate.PartNumber)
		if seen[id] {
			continue
		}
		if p != nil && candidate.ApplianceType != p.ApplianceType {
			continue
		}
		seen[id] = true
		out = append(out, candidate)
		if len(out) == maxAlternatives {
			break
		}
	}
	return out, nil
}

func (t *compatibilityCheck) Decode(data []byte) (any, error) {
	return decode[models.CompatibilityPayload](data)
}
