package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/avvvet/partsbuddy-agent/internal/catalog"
	"github.com/avvvet/partsbuddy-agent/internal/models"
)

type installationGuide struct {
	catalog catalog.Catalog
}

func (t *installationGuide) Run(ctx context.Context, args map[string]string) (any, error) {
	partNumber := strings.ToUpper(args[ArgPartNumber])
	p, err := t.catalog.GetProduct(ctx, partNumber)
	if errors.Is(err, catalog.ErrNotFound) {
		return models.InstallationPayload{PartNumber: partNumber}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("part %s: %w", partNumber, err)
	}

	return models.InstallationPayload{
		PartNumber: p.PartNumber,
		PartFound:  true,
		Steps:      p.InstallationSteps,
		GuideURL:   p.InstallationGuideURL,
		VideoURL:   p.VideoURL,
		Product:    *p,
	}, nil
}

func (t *installationGuide) Decode(data []byte) (any, error) {
	return decode[models.InstallationPayload](data)
}
