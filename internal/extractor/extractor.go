// Package extractor pulls structured fields out of free text with
// deterministic pattern rules. It never fails: unmatched fields are omitted.
package extractor

import (
	"sort"
	"strings"

	"github.com/avvvet/partsbuddy-agent/internal/models"
)

type span struct{ start, end int }

func (s span) overlaps(o span) bool {
	return s.start < o.end && o.start < s.end
}

type match struct {
	span
	value string
}

// Extract returns the entities found in text
func Extract(text string) models.Entities {
	norm := normalize(text)

	parts, claimed := findCodes(norm, nil, partPatternsMatches)
	modelNumbers, _ := findCodes(norm, claimed, modelMatches)

	entities := models.Entities{
		PartNumbers:  values(parts),
		ModelNumbers: values(modelNumbers),
	}

	if m, ok := earliest(norm, brandKeywords); ok {
		entities.Brand = m.value
	}
	if m, ok := earliest(norm, applianceKeywords); ok {
		entities.ApplianceType = m.value
	}
	entities.Symptom = symptom(norm)

	return entities
}

// ExtractHistory derives context entities from earlier user messages, most
// recent first: the first message that mentions a field supplies it.
// keepAppliance, when set, skips appliance types it rejects so an
// unsupported mention never carries into later turns.
func ExtractHistory(userMessages []string, keepAppliance func(string) bool) models.Entities {
	var merged models.Entities
	for i := len(userMessages) - 1; i >= 0; i-- {
		e := Extract(userMessages[i])
		if keepAppliance != nil && e.ApplianceType != "" && !keepAppliance(e.ApplianceType) {
			e.ApplianceType = ""
		}
		if len(merged.PartNumbers) == 0 {
			merged.PartNumbers = e.PartNumbers
		}
		if len(merged.ModelNumbers) == 0 {
			merged.ModelNumbers = e.ModelNumbers
		}
		if merged.ApplianceType == "" {
			merged.ApplianceType = e.ApplianceType
		}
		if merged.Brand == "" {
			merged.Brand = e.Brand
		}
	}
	return merged
}

// KnownAppliance reports whether value is one of the appliance categories the extractor emits
func KnownAppliance(value string) bool {
	for _, k := range applianceKeywords {
		if k.value == value {
			return true
		}
	}
	return false
}

func normalize(text string) string {
	r := strings.NewReplacer("’", "'", "‘", "'")
	return r.Replace(text)
}

func partPatternsMatches(text string) []match {
	var out []match
	for _, re := range partPatterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			out = append(out, match{span: span{loc[0], loc[1]}, value: strings.ToUpper(text[loc[0]:loc[1]])})
		}
	}
	return out
}

func modelMatches(text string) []match {
	var out []match
	for _, loc := range modelPattern.FindAllStringIndex(text, -1) {
		out = append(out, match{span: span{loc[0], loc[1]}, value: strings.ToUpper(text[loc[0]:loc[1]])})
	}
	return out
}

// findCodes keeps matches that do not overlap an already claimed token,
// ordered by position and de-duplicated. It also returns every span it claimed,
// repeats included.
func findCodes(text string, claimed []span, finder func(string) []match) ([]match, []span) {
	candidates := finder(text)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].start < candidates[j].start
	})

	var out []match
	seen := make(map[string]bool)
	taken := append([]span(nil), claimed...)
	for _, c := range candidates {
		if overlapsAny(c.span, taken) {
			continue
		}
		taken = append(taken, c.span)
		if seen[c.value] {
			continue
		}
		seen[c.value] = true
		out = append(out, c)
	}
	return out, taken
}

func overlapsAny(s span, spans []span) bool {
	for _, o := range spans {
		if s.overlaps(o) {
			return true
		}
	}
	return false
}

func values(ms []match) []string {
	if len(ms) == 0 {
		return nil
	}
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.value
	}
	return out
}

// earliest finds the keyword mentioned first; on the same position the longer phrase wins.
func earliest(text string, keywords []keyword) (match, bool) {
	var best match
	found := false
	for _, k := range keywords {
		loc := k.pattern.FindStringIndex(text)
		if loc == nil {
			continue
		}
		m := match{span: span{loc[0], loc[1]}, value: k.value}
		if !found || m.start < best.start || (m.start == best.start && m.end > best.end) {
			best = m
			found = true
		}
	}
	return best, found
}

func symptom(text string) string {
	problem, ok := earliest(text, problemKeywords)
	if !ok {
		return ""
	}
	if component, ok := earliest(text, componentKeywords); ok {
		return component.value + " " + problem.value
	}
	return problem.value
}
