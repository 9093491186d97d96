package models

// ToolName is the closed set of tools the orchestrator can invoke
type ToolName string

const (
	ToolProductSearch      ToolName = "product_search"
	ToolCompatibilityCheck ToolName = "compatibility_check"
	ToolInstallationGuide  ToolName = "installation_guide"
	ToolTroubleshooting    ToolName = "troubleshooting"
)

// ToolResult is the outcome of one tool call (or of a refused call
// whose precondition was not met).
type ToolResult struct {
	Tool               ToolName `json:"tool"`
	Success            bool     `json:"success"`
	Payload            any      `json:"payload,omitempty"`
	Error              string   `json:"error,omitempty"`
	NeedsClarification bool     `json:"needs_clarification,omitempty"`
	Missing            []Field  `json:"missing,omitempty"`
	Cached             bool     `json:"cached,omitempty"`
}

// ProductHit is a search candidate with its similarity score
type ProductHit struct {
	Product    Product `json:"product"`
	Score      float32 `json:"score"`
	ExactMatch bool    `json:"exact_match"`
}

type ProductSearchPayload struct {
	Query string       `json:"query"`
	Hits  []ProductHit `json:"hits"`
}

type CompatibilityPayload struct {
	PartNumber   string    `json:"part_number"`
	ModelNumber  string    `json:"model_number"`
	PartFound    bool      `json:"part_found"`
	Compatible   bool      `json:"compatible"`
	Product      *Product  `json:"product,omitempty"`
	Alternatives []Product `json:"alternatives,omitempty"`
}

type InstallationPayload struct {
	PartNumber string   `json:"part_number"`
	PartFound  bool     `json:"part_found"`
	Steps      []string `json:"steps"`
	GuideURL   string   `json:"guide_url,omitempty"`
	VideoURL   string   `json:"video_url,omitempty"`
	Product    Product  `json:"product"`
}

type TroubleshootingPayload struct {
	Query        string                 `json:"query"`
	Guides       []TroubleshootingGuide `json:"guides"`
	RelatedParts []Product              `json:"related_parts,omitempty"`
}

// Products returns the product cards carried by a successful result
func (r ToolResult) Products() []Product {
	if !r.Success {
		return nil
	}
	switch p := r.Payload.(type) {
	case ProductSearchPayload:
		out := make([]Product, 0, len(p.Hits))
		for _, h := range p.Hits {
			out = append(out, h.Product)
		}
		return out
	case CompatibilityPayload:
		var out []Product
		if p.Product != nil {
			out = append(out, *p.Product)
		}
		return append(out, p.Alternatives...)
	case InstallationPayload:
		if !p.PartFound {
			return nil
		}
		return []Product{p.Product}
	case TroubleshootingPayload:
		return p.RelatedParts
	}
	return nil
}
