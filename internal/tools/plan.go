package tools

import (
	"strings"

	"github.com/avvvet/partsbuddy-agent/internal/models"
)

// Argument names shared by the planner and the tools
const (
	ArgQuery         = "query"
	ArgPartNumbers   = "part_numbers"
	ArgPartNumber    = "part_number"
	ArgModelNumber   = "model_number"
	ArgApplianceType = "appliance_type"
	ArgBrand         = "brand"
	ArgSymptom       = "symptom"
)

// Step is one planned tool call. A step with Missing fields is not invoked;
// it becomes a clarification result.
type Step struct {
	Tool    models.ToolName
	Args    map[string]string
	Missing []models.Field
}

// Plan maps an intent to its tool calls. Each intent has one precondition.
func Plan(intent models.IntentType, entities models.Entities, query string) []Step {
	switch intent {
	case models.IntentFindPart:
		return []Step{searchStep(entities, query)}

	case models.IntentCheckCompatibility:
		var missing []models.Field
		if !entities.Has(models.FieldPartNumber) {
			missing = append(missing, models.FieldPartNumber)
		}
		if !entities.Has(models.FieldModelNumber) {
			missing = append(missing, models.FieldModelNumber)
		}
		return []Step{{
			Tool: models.ToolCompatibilityCheck,
			Args: map[string]string{
				ArgPartNumber:  entities.PartNumber(),
				ArgModelNumber: entities.ModelNumber(),
			},
			Missing: missing,
		}}

	case models.IntentInstallationGuide:
		if !entities.Has(models.FieldPartNumber) {
			// no part yet: search so the user can pick one
			return []Step{searchStep(entities, query)}
		}
		return []Step{{
			Tool: models.ToolInstallationGuide,
			Args: map[string]string{ArgPartNumber: entities.PartNumber()},
		}}

	case models.IntentTroubleshoot:
		if !entities.Has(models.FieldSymptom) && !entities.Has(models.FieldApplianceType) {
			return []Step{{
				Tool:    models.ToolTroubleshooting,
				Missing: []models.Field{models.FieldSymptom, models.FieldApplianceType},
			}}
		}
		problem := query
		if entities.Symptom != "" {
			problem = strings.TrimSpace(entities.Symptom + " " + entities.ApplianceType)
		}
		return []Step{
			{
				Tool: models.ToolTroubleshooting,
				Args: map[string]string{
					ArgQuery:         problem,
					ArgSymptom:       entities.Symptom,
					ArgApplianceType: entities.ApplianceType,
					ArgBrand:         entities.Brand,
				},
			},
			{
				Tool: models.ToolProductSearch,
				Args: map[string]string{
					ArgQuery:         problem,
					ArgApplianceType: entities.ApplianceType,
					ArgBrand:         entities.Brand,
				},
			},
		}
	}

	// out_of_scope and unknown call nothing
	return nil
}

func searchStep(entities models.Entities, query string) Step {
	return Step{
		Tool: models.ToolProductSearch,
		Args: map[string]string{
			ArgQuery:         query,
			ArgPartNumbers:   strings.Join(entities.PartNumbers, ","),
			ArgModelNumber:   entities.ModelNumber(),
			ArgApplianceType: entities.ApplianceType,
			ArgBrand:         entities.Brand,
		},
	}
}

func splitList(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, strings.ToUpper(v))
		}
	}
	return out
}
