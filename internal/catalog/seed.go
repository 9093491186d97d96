package catalog

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/avvvet/partsbuddy-agent/internal/models"
)

//go:embed seed/products.json seed/troubleshooting.json
var seedFS embed.FS

// LoadSeed reads the catalog bundled with the binary
func LoadSeed() ([]models.Product, []models.TroubleshootingGuide, error) {
	var products []models.Product
	if err := readSeed("seed/products.json", &products); err != nil {
		return nil, nil, err
	}
	var guides []models.TroubleshootingGuide
	if err := readSeed("seed/troubleshooting.json", &guides); err != nil {
		return nil, nil, err
	}
	return products, guides, nil
}

func readSeed(name string, v any) error {
	data, err := seedFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}
