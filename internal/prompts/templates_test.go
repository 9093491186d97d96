package prompts

import (
	"testing"

	"github.com/avvvet/partsbuddy-agent/internal/llm"
	"github.com/avvvet/partsbuddy-agent/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntentLabel(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    models.IntentType
		wantErr bool
	}{
		{"json", `{"intent": "troubleshoot"}`, models.IntentTroubleshoot, false},
		{"json in prose", "Sure! {\"intent\": \"find_part\"} hope that helps", models.IntentFindPart, false},
		{"bare label", "check_compatibility", models.IntentCheckCompatibility, false},
		{"quoted label", `"out_of_scope"`, models.IntentOutOfScope, false},
		{"label outside enum", `{"intent": "order_support"}`, models.IntentUnknown, false},
		{"sentence", "I think the user wants help", models.IntentUnknown, false},
		{"broken json", `{"intent": }`, models.IntentUnknown, true},
		{"empty", "  ", models.IntentUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIntentLabel(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildClassifierRequestListsEveryIntent(t *testing.T) {
	req := BuildClassifierRequest("hello", models.Entities{Brand: "Whirlpool"}, []llm.Message{
		{Role: "user", Content: "my dishwasher"},
	})

	for _, intent := range models.IntentTypes {
		assert.Contains(t, req.SystemPrompt, string(intent))
	}
	assert.Contains(t, req.Prompt, "User: my dishwasher")
	assert.Contains(t, req.Prompt, "- brand: Whirlpool")
	assert.Contains(t, req.Prompt, "hello")
	assert.Zero(t, req.Temperature)
}

func TestBuildGroundingRequest(t *testing.T) {
	facts := map[string]any{"part_number": "PS11752778"}
	req, err := BuildGroundingRequest("how do I install it", "Steps: ...", facts, nil)
	require.NoError(t, err)

	assert.Equal(t, AssistantSystemPrompt, req.SystemPrompt)
	assert.Contains(t, req.Prompt, `"part_number": "PS11752778"`)
	assert.Contains(t, req.Prompt, "Steps: ...")
}

func TestBuildConversationSectionEmpty(t *testing.T) {
	assert.Equal(t, "No previous conversation.\n", BuildConversationSection(nil))
}
