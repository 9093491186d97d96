package response

import (
	"fmt"
	"strings"

	"github.com/avvvet/partsbuddy-agent/internal/models"
)

var fieldPrompts = map[models.Field]string{
	models.FieldPartNumber:    "the part number (it starts with PS, for example PS11752778)",
	models.FieldModelNumber:   "your appliance's model number (usually on a sticker inside the door)",
	models.FieldSymptom:       "what the problem is",
	models.FieldApplianceType: "whether it's your refrigerator or your dishwasher",
	models.FieldBrand:         "the brand of your appliance",
}

var clarifyLeads = map[models.ToolName]string{
	models.ToolCompatibilityCheck: "I can check whether a part fits your appliance. Please tell me ",
	models.ToolTroubleshooting:    "I can help you troubleshoot. Please tell me ",
	models.ToolInstallationGuide:  "I can walk you through the installation. Please tell me ",
}

// Clarify asks for the fields a tool needs before it can run
func Clarify(tool models.ToolName, missing []models.Field) string {
	lead, ok := clarifyLeads[tool]
	if !ok {
		lead = "Could you tell me a bit more? Please tell me "
	}

	asks := make([]string, 0, len(missing))
	for _, f := range missing {
		if p, ok := fieldPrompts[f]; ok {
			asks = append(asks, p)
		}
	}
	if len(asks) == 0 {
		return UnknownMessage
	}
	return lead + strings.Join(asks, " and ") + "."
}

// Draft is the deterministic reply built from successful results alone
func Draft(intent models.IntentType, results []models.ToolResult) string {
	var sections []string
	failed := false
	for _, r := range results {
		if !r.Success {
			failed = true
			continue
		}
		if s := section(intent, r); s != "" {
			sections = append(sections, s)
		}
	}
	if failed {
		sections = append(sections, partialNote)
	}
	if len(sections) == 0 {
		return FailureMessage
	}
	return strings.Join(sections, "\n\n")
}

func section(intent models.IntentType, r models.ToolResult) string {
	switch p := r.Payload.(type) {
	case models.ProductSearchPayload:
		return searchSection(intent, p)
	case models.CompatibilityPayload:
		return compatibilitySection(p)
	case models.InstallationPayload:
		return installationSection(p)
	case models.TroubleshootingPayload:
		return troubleshootingSection(p)
	}
	return ""
}

func searchSection(intent models.IntentType, p models.ProductSearchPayload) string {
	if len(p.Hits) == 0 {
		if intent == models.IntentTroubleshoot {
			return ""
		}
		return fmt.Sprintf("I couldn't find any parts matching %q. Could you share the part number or your model number?", p.Query)
	}

	var b strings.Builder
	switch intent {
	case models.IntentTroubleshoot:
		b.WriteString("Parts that may help:\n")
	case models.IntentInstallationGuide:
		b.WriteString("Which part are you installing? Here are some matches:\n")
	default:
		b.WriteString("Here are the parts I found:\n")
	}
	for i, h := range p.Hits {
		if i == MaxProducts {
			break
		}
		b.WriteString("- " + productLine(h.Product) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func compatibilitySection(p models.CompatibilityPayload) string {
	var b strings.Builder
	switch {
	case !p.PartFound:
		fmt.Fprintf(&b, "I couldn't find part %s in our catalog. Please double-check the part number.", p.PartNumber)
	case p.Compatible:
		fmt.Fprintf(&b, "Yes, the %s (%s) is compatible with model %s.", p.Product.Name, p.PartNumber, p.ModelNumber)
	default:
		fmt.Fprintf(&b, "No, the %s (%s) is not listed as compatible with model %s.", p.Product.Name, p.PartNumber, p.ModelNumber)
	}

	if len(p.Alternatives) > 0 {
		fmt.Fprintf(&b, "\n\nParts that fit model %s:", p.ModelNumber)
		for _, alt := range p.Alternatives {
			b.WriteString("\n- " + productLine(alt))
		}
	}
	return b.String()
}

func installationSection(p models.InstallationPayload) string {
	if !p.PartFound {
		return fmt.Sprintf("I couldn't find part %s in our catalog. Please double-check the part number.", p.PartNumber)
	}

	var b strings.Builder
	if len(p.Steps) == 0 {
		fmt.Fprintf(&b, "I don't have step-by-step instructions for the %s (%s).", p.Product.Name, p.PartNumber)
	} else {
		fmt.Fprintf(&b, "Here's how to install the %s (%s):", p.Product.Name, p.PartNumber)
		for i, step := range p.Steps {
			fmt.Fprintf(&b, "\n%d. %s", i+1, step)
		}
	}
	if p.GuideURL != "" {
		b.WriteString("\n\nFull guide: " + p.GuideURL)
	}
	if p.VideoURL != "" {
		b.WriteString("\nVideo: " + p.VideoURL)
	}
	return b.String()
}

func troubleshootingSection(p models.TroubleshootingPayload) string {
	if len(p.Guides) == 0 {
		return "I couldn't find a troubleshooting guide for that problem. Could you describe what the appliance is doing?"
	}

	g := p.Guides[0]
	var b strings.Builder
	fmt.Fprintf(&b, "%s. Common causes:", strings.TrimSuffix(g.Problem, "."))
	for _, c := range g.Causes {
		b.WriteString("\n- " + c)
	}
	if len(g.Steps) > 0 {
		b.WriteString("\n\nTry these steps:")
		for i, step := range g.Steps {
			fmt.Fprintf(&b, "\n%d. %s", i+1, step)
		}
	}
	if len(p.Guides) > 1 {
		var others []string
		for _, other := range p.Guides[1:] {
			others = append(others, other.Problem)
		}
		b.WriteString("\n\nRelated issues: " + strings.Join(others, "; "))
	}
	return b.String()
}

func productLine(p models.Product) string {
	return fmt.Sprintf("%s (%s), $%.2f", p.Name, p.PartNumber, p.Price)
}
