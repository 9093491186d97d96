package intent

import (
	"regexp"

	"github.com/avvvet/partsbuddy-agent/internal/models"
)

// Threshold is the confidence a rule needs to skip the language model
const Threshold = 0.7

var (
	installWords    = regexp.MustCompile(`(?i)\b(install|installation|installing|put in|mount|attach|step by step|instructions?|guide|how do i (?:change|swap))\b`)
	compatWords     = regexp.MustCompile(`(?i)\b(compatible|compatibility|fits?|work with|works with|match(?:es)?)\b`)
	troubleWords    = regexp.MustCompile(`(?i)\b(fix|repair|not working|broken|problem|issue|trouble(?:shoot)?|won'?t|doesn'?t|isn'?t|stopped|leak(?:ing|s)?|noisy)\b`)
	findWords       = regexp.MustCompile(`(?i)\b(find|search|looking for|need|buy|order|price|cost|how much|in stock|available|replacement|replace|sell)\b`)
	offTopicWords   = regexp.MustCompile(`(?i)\b(weather|recipe|joke|news|stock market|sports?|movies?|politics?|political|poem|song|homework|translate)\b`)
	helpWords       = regexp.MustCompile(`(?i)\b(help|assist|support|question)\b`)
	apostropheFixer = regexp.MustCompile(`[’‘]`)
)

// Rule maps keyword and entity conditions to a candidate intent.
type Rule struct {
	Name       string
	Intent     models.IntentType
	Confidence float64
	Requires   []models.Field // every field must be present
	Keywords   *regexp.Regexp // nil means no keyword condition
	NoEntities bool           // only fires when nothing was extracted
}

func (r Rule) Matches(text string, entities models.Entities) bool {
	for _, f := range r.Requires {
		if !entities.Has(f) {
			return false
		}
	}
	if r.NoEntities && !entities.Empty() {
		return false
	}
	if r.Keywords != nil && !r.Keywords.MatchString(text) {
		return false
	}
	return true
}

// Rules is the priority order, most specific first. The highest confidence
// match wins and on equal confidence the earlier rule wins, so the slice
// order is the tie-break.
var Rules = []Rule{
	{
		Name:       "part-model-compatibility",
		Intent:     models.IntentCheckCompatibility,
		Confidence: 0.95,
		Requires:   []models.Field{models.FieldPartNumber, models.FieldModelNumber},
		Keywords:   compatWords,
	},
	{
		Name:       "part-installation",
		Intent:     models.IntentInstallationGuide,
		Confidence: 0.95,
		Requires:   []models.Field{models.FieldPartNumber},
		Keywords:   installWords,
	},
	{
		Name:       "model-compatibility",
		Intent:     models.IntentCheckCompatibility,
		Confidence: 0.9,
		Requires:   []models.Field{models.FieldModelNumber},
		Keywords:   compatWords,
	},
	{
		Name:       "part-compatibility",
		Intent:     models.IntentCheckCompatibility,
		Confidence: 0.85,
		Requires:   []models.Field{models.FieldPartNumber},
		Keywords:   compatWords,
	},
	{
		Name:       "symptom",
		Intent:     models.IntentTroubleshoot,
		Confidence: 0.9,
		Requires:   []models.Field{models.FieldSymptom},
	},
	{
		Name:       "installation-keyword",
		Intent:     models.IntentInstallationGuide,
		Confidence: 0.8,
		Keywords:   installWords,
	},
	{
		Name:       "compatibility-keyword",
		Intent:     models.IntentCheckCompatibility,
		Confidence: 0.75,
		Keywords:   compatWords,
	},
	{
		Name:       "appliance-trouble",
		Intent:     models.IntentTroubleshoot,
		Confidence: 0.85,
		Requires:   []models.Field{models.FieldApplianceType},
		Keywords:   troubleWords,
	},
	{
		Name:       "trouble-keyword",
		Intent:     models.IntentTroubleshoot,
		Confidence: 0.7,
		Keywords:   troubleWords,
	},
	{
		Name:       "part-lookup",
		Intent:     models.IntentFindPart,
		Confidence: 0.85,
		Requires:   []models.Field{models.FieldPartNumber},
	},
	{
		Name:       "part-search",
		Intent:     models.IntentFindPart,
		Confidence: 0.75,
		Keywords:   findWords,
	},
	{
		Name:       "off-topic",
		Intent:     models.IntentOutOfScope,
		Confidence: 0.9,
		Keywords:   offTopicWords,
		NoEntities: true,
	},
	{
		Name:       "appliance-help",
		Intent:     models.IntentFindPart,
		Confidence: 0.5,
		Requires:   []models.Field{models.FieldApplianceType},
		Keywords:   helpWords,
	},
}

// Match returns the winning rule for text, if any rule fires
func Match(rules []Rule, text string, entities models.Entities) (Rule, bool) {
	text = apostropheFixer.ReplaceAllString(text, "'")

	var best Rule
	found := false
	for _, r := range rules {
		if !r.Matches(text, entities) {
			continue
		}
		if !found || r.Confidence > best.Confidence {
			best = r
			found = true
		}
	}
	return best, found
}
