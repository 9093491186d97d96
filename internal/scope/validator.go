// Package scope decides whether a classified turn is something the agent answers.
package scope

import (
	"fmt"
	"strings"

	"github.com/avvvet/partsbuddy-agent/internal/models"
)

// OutOfScopeMessage is the reply for anything outside supported appliance parts
const OutOfScopeMessage = "I apologize, but I can only help with questions about refrigerator and dishwasher parts. " +
	"Is there anything related to these appliances I can help you with?"

// DefaultAppliances are the categories the catalog covers
var DefaultAppliances = []string{"refrigerator", "dishwasher"}

type Decision struct {
	InScope bool   `json:"in_scope"`
	Reason  string `json:"reason,omitempty"`
}

type Validator struct {
	supported map[string]bool
	names     []string
}

func NewValidator(appliances []string) *Validator {
	if len(appliances) == 0 {
		appliances = DefaultAppliances
	}
	v := &Validator{supported: make(map[string]bool, len(appliances))}
	for _, a := range appliances {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" || v.supported[a] {
			continue
		}
		v.supported[a] = true
		v.names = append(v.names, a)
	}
	return v
}

// Supports reports whether appliance is one of the configured categories
func (v *Validator) Supports(appliance string) bool {
	return v.supported[strings.ToLower(appliance)]
}

// Validate is deterministic and has no side effects
func (v *Validator) Validate(intent models.Intent, entities models.Entities) Decision {
	if intent.Type == models.IntentOutOfScope {
		return Decision{InScope: false, Reason: OutOfScopeMessage}
	}

	if appliance := entities.ApplianceType; appliance != "" && !v.Supports(appliance) {
		return Decision{
			InScope: false,
			Reason:  fmt.Sprintf("%s parts are outside what I cover. %s", capitalize(appliance), v.message()),
		}
	}

	return Decision{InScope: true}
}

func (v *Validator) message() string {
	if sameSet(v.names, DefaultAppliances) {
		return OutOfScopeMessage
	}
	return fmt.Sprintf("I can only help with questions about %s parts. "+
		"Is there anything related to these appliances I can help you with?", strings.Join(v.names, " and "))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, x := range a {
		seen[x] = true
	}
	for _, x := range b {
		if !seen[x] {
			return false
		}
	}
	return true
}
