package tools

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/avvvet/partsbuddy-agent/internal/catalog"
	"github.com/avvvet/partsbuddy-agent/internal/models"
	"github.com/avvvet/partsbuddy-agent/internal/vectorsearch"
)

const (
	maxGuides       = 3
	maxRelatedParts = 5
	brandBoost      = 0.05
)

type troubleshooting struct {
	catalog  catalog.Catalog
	searcher vectorsearch.Searcher
	topK     int
}

func (t *troubleshooting) Run(ctx context.Context, args map[string]string) (any, error) {
	query := args[ArgQuery]
	hits, err := t.searcher.SearchGuides(ctx, query, t.topK, args[ArgApplianceType])
	if err != nil {
		return nil, err
	}

	// brand is a soft preference: it reorders, never filters
	if brand := args[ArgBrand]; brand != "" {
		for i := range hits {
			if strings.EqualFold(hits[i].Guide.Brand, brand) {
				hits[i].Score += brandBoost
			}
		}
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	}
	if len(hits) > maxGuides {
		hits = hits[:maxGuides]
	}

	payload := models.TroubleshootingPayload{Query: query}
	seen := make(map[string]bool)
	for _, h := range hits {
		payload.Guides = append(payload.Guides, h.Guide)
		for _, partNumber := range h.Guide.RelatedParts {
			id := strings.ToUpper(partNumber)
			if seen[id] || len(payload.RelatedParts) == maxRelatedParts {
				continue
			}
			seen[id] = true
			p, err := t.catalog.GetProduct(ctx, id)
			if errors.Is(err, catalog.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			payload.RelatedParts = append(payload.RelatedParts, *p)
		}
	}
	return payload, nil
}

func (t *troubleshooting) Decode(data []byte) (any, error) {
	return decode[models.TroubleshootingPayload](data)
}
