package models

import "strings"

// IntentType is the closed set of things a user can want
type IntentType string

const (
	IntentFindPart           IntentType = "find_part"
	IntentCheckCompatibility IntentType = "check_compatibility"
	IntentInstallationGuide  IntentType = "get_installation_guide"
	IntentTroubleshoot       IntentType = "troubleshoot"
	IntentOutOfScope         IntentType = "out_of_scope"
	IntentUnknown            IntentType = "unknown"
)

// IntentTypes lists every valid intent, in prompt order
var IntentTypes = []IntentType{
	IntentFindPart,
	IntentCheckCompatibility,
	IntentInstallationGuide,
	IntentTroubleshoot,
	IntentOutOfScope,
	IntentUnknown,
}

// ParseIntentType maps a label to the enum; anything unrecognised is unknown.
func ParseIntentType(label string) IntentType {
	label = strings.ToLower(strings.TrimSpace(label))
	label = strings.Trim(label, "\"'`.")
	for _, t := range IntentTypes {
		if string(t) == label {
			return t
		}
	}
	return IntentUnknown
}

// Provenance records how an intent was decided
type Provenance string

const (
	ProvenanceRule     Provenance = "rule"
	ProvenanceModel    Provenance = "model"
	ProvenanceFallback Provenance = "fallback"
)

type Intent struct {
	Type       IntentType `json:"type"`
	Confidence float64    `json:"confidence"`
	Provenance Provenance `json:"provenance"`
	Rule       string     `json:"rule,omitempty"`
}
