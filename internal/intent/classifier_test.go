package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/avvvet/partsbuddy-agent/internal/extractor"
	"github.com/avvvet/partsbuddy-agent/internal/llm"
	"github.com/avvvet/partsbuddy-agent/internal/llm/llmtest"
	"github.com/avvvet/partsbuddy-agent/internal/logger"
	"github.com/avvvet/partsbuddy-agent/internal/models"
	"github.com/stretchr/testify/assert"
)

func input(text string) Input {
	return Input{Text: text, Entities: extractor.Extract(text)}
}

func TestClassifyRules(t *testing.T) {
	tests := []struct {
		text string
		want models.IntentType
		rule string
	}{
		{"How can I install part number PS11752778?", models.IntentInstallationGuide, "part-installation"},
		{"Is this part compatible with my WDT780SAEM1 model?", models.IntentCheckCompatibility, "model-compatibility"},
		{"The ice maker on my Whirlpool fridge is not working", models.IntentTroubleshoot, "symptom"},
		{"Does PS11752778 fit WDT780SAEM1?", models.IntentCheckCompatibility, "part-model-compatibility"},
		{"What is the price of PS11752778?", models.IntentFindPart, "part-lookup"},
		{"I'm looking for a dishwasher rack", models.IntentFindPart, "part-search"},
		{"Tell me a joke", models.IntentOutOfScope, "off-topic"},
		{"Where can I find installation instructions?", models.IntentInstallationGuide, "installation-keyword"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			stub := &llmtest.Stub{Content: `{"intent": "unknown"}`}
			c := NewClassifier(stub, logger.NewNop())

			got := c.Classify(context.Background(), input(tt.text))

			assert.Equal(t, tt.want, got.Type)
			assert.Equal(t, models.ProvenanceRule, got.Provenance)
			assert.Equal(t, tt.rule, got.Rule)
			assert.GreaterOrEqual(t, got.Confidence, Threshold)
			assert.Zero(t, stub.Calls())
		})
	}
}

func TestRuleMatchesDoNotDependOnModel(t *testing.T) {
	texts := []string{
		"How can I install part number PS11752778?",
		"Is this part compatible with my WDT780SAEM1 model?",
		"My dishwasher won't drain",
		"Tell me a joke about the weather",
	}
	providers := map[string]llm.Provider{
		"healthy": &llmtest.Stub{Content: "troubleshoot"},
		"failing": &llmtest.Stub{Err: errors.New("connection refused")},
		"absent":  nil,
	}

	for _, text := range texts {
		var results []models.Intent
		for _, p := range providers {
			results = append(results, NewClassifier(p, logger.NewNop()).Classify(context.Background(), input(text)))
		}
		for _, r := range results[1:] {
			assert.Equal(t, results[0], r, text)
		}
	}
}

func TestEqualConfidenceGoesToEarlierRule(t *testing.T) {
	// part-model-compatibility and part-installation both score 0.95
	text := "install PS11752778, is it compatible with WDT780SAEM1?"

	got := NewClassifier(nil, logger.NewNop()).Classify(context.Background(), input(text))

	assert.Equal(t, models.IntentCheckCompatibility, got.Type)
	assert.Equal(t, "part-model-compatibility", got.Rule)
}

func TestClassifyFallsBackToModel(t *testing.T) {
	stub := &llmtest.Stub{Content: `{"intent": "find_part"}`}
	c := NewClassifier(stub, logger.NewNop())
	in := input("Can you help with my washing machine?")
	in.History = []llm.Message{{Role: "user", Content: "hi"}}

	got := c.Classify(context.Background(), in)

	assert.Equal(t, models.IntentFindPart, got.Type)
	assert.Equal(t, models.ProvenanceModel, got.Provenance)
	assert.Equal(t, ModelConfidence, got.Confidence)
	assert.Equal(t, 1, stub.Calls())
	assert.Contains(t, stub.Requests[0].Prompt, "washing machine")
}

func TestClassifyModelLabelOutsideEnum(t *testing.T) {
	stub := &llmtest.Stub{Content: `{"intent": "cancel_order"}`}

	got := NewClassifier(stub, logger.NewNop()).Classify(context.Background(), input("hello there"))

	assert.Equal(t, models.IntentUnknown, got.Type)
	assert.Equal(t, models.ProvenanceModel, got.Provenance)
}

func TestClassifyModelFailure(t *testing.T) {
	tests := []struct {
		name     string
		provider llm.Provider
		text     string
		want     models.IntentType
		rule     string
	}{
		{"error keeps weak rule", &llmtest.Stub{Err: context.DeadlineExceeded}, "Can you help with my washing machine?", models.IntentFindPart, "appliance-help"},
		{"broken json keeps weak rule", &llmtest.Stub{Content: `{"intent": `}, "Can you help with my washing machine?", models.IntentFindPart, "appliance-help"},
		{"error without candidate", &llmtest.Stub{Err: errors.New("boom")}, "hello there", models.IntentUnknown, ""},
		{"no provider", nil, "hello there", models.IntentUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewClassifier(tt.provider, logger.NewNop()).Classify(context.Background(), input(tt.text))

			assert.Equal(t, tt.want, got.Type)
			assert.Equal(t, models.ProvenanceFallback, got.Provenance)
			assert.Equal(t, tt.rule, got.Rule)
		})
	}
}

func TestMatchRequiresEntities(t *testing.T) {
	_, ok := Match(Rules, "is it compatible?", models.Entities{})
	assert.True(t, ok)

	r, ok := Match(Rules, "is it compatible?", models.Entities{ModelNumbers: []string{"WDT780SAEM1"}})
	assert.True(t, ok)
	assert.Equal(t, "model-compatibility", r.Name)

	_, ok = Match(Rules, "good morning", models.Entities{})
	assert.False(t, ok)
}
