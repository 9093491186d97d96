package models

import "strings"

// Product is a catalog record. Read-only to the agent.
type Product struct {
	PartNumber           string    `json:"part_number"`
	Name                 string    `json:"name"`
	Description          string    `json:"description"`
	Brand                string    `json:"brand,omitempty"`
	ApplianceType        string    `json:"appliance_type"`
	Price                float64   `json:"price"`
	ImageURL             string    `json:"image_url,omitempty"`
	CompatibleModels     []string  `json:"compatible_models,omitempty"`
	InstallationSteps    []string  `json:"installation_steps,omitempty"`
	InstallationGuideURL string    `json:"installation_guide_url,omitempty"`
	VideoURL             string    `json:"video_url,omitempty"`
	Embedding            []float32 `json:"-"`
}

// FitsModel reports whether modelNumber is on the compatible list
func (p Product) FitsModel(modelNumber string) bool {
	for _, m := range p.CompatibleModels {
		if strings.EqualFold(m, modelNumber) {
			return true
		}
	}
	return false
}

// SearchText is the text indexed for semantic search
func (p Product) SearchText() string {
	return strings.Join([]string{p.Name, p.Description, p.Brand, p.ApplianceType, p.PartNumber}, " ")
}

// TroubleshootingGuide is a diagnostic article for a common problem
type TroubleshootingGuide struct {
	ID            string   `json:"id"`
	Problem       string   `json:"problem"`
	ApplianceType string   `json:"appliance_type"`
	Brand         string   `json:"brand,omitempty"`
	Causes        []string `json:"causes"`
	Steps         []string `json:"steps"`
	RelatedParts  []string `json:"related_parts,omitempty"`
}

func (g TroubleshootingGuide) SearchText() string {
	return strings.Join(append([]string{g.Problem, g.ApplianceType, g.Brand}, g.Causes...), " ")
}

// GuideHit is a troubleshooting search candidate with its similarity score
type GuideHit struct {
	Guide TroubleshootingGuide `json:"guide"`
	Score float32              `json:"score"`
}
