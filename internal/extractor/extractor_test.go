package extractor

import (
	"testing"

	"github.com/avvvet/partsbuddy-agent/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want models.Entities
	}{
		{
			name: "installation question",
			text: "How can I install part number PS11752778?",
			want: models.Entities{PartNumbers: []string{"PS11752778"}},
		},
		{
			name: "compatibility without part",
			text: "Is this part compatible with my WDT780SAEM1 model?",
			want: models.Entities{ModelNumbers: []string{"WDT780SAEM1"}},
		},
		{
			name: "troubleshooting with component",
			text: "The ice maker on my Whirlpool fridge is not working",
			want: models.Entities{
				Brand:         "Whirlpool",
				ApplianceType: ApplianceRefrigerator,
				Symptom:       "ice maker not working",
			},
		},
		{
			name: "unsupported appliance",
			text: "Can you help with my washing machine?",
			want: models.Entities{ApplianceType: "washing machine"},
		},
		{
			name: "dishwasher is not a washer",
			text: "My dishwasher won't drain",
			want: models.Entities{ApplianceType: ApplianceDishwasher, Symptom: "not draining"},
		},
		{
			name: "curly apostrophe",
			text: "my dishwasher won’t drain",
			want: models.Entities{ApplianceType: ApplianceDishwasher, Symptom: "not draining"},
		},
		{
			name: "part and model together",
			text: "Is PS11752778 compatible with Whirlpool model WDT780SAEM1?",
			want: models.Entities{
				PartNumbers:  []string{"PS11752778"},
				ModelNumbers: []string{"WDT780SAEM1"},
				Brand:        "Whirlpool",
			},
		},
		{
			name: "brand is word bounded",
			text: "My Samsung fridge is broken",
			want: models.Entities{Brand: "Samsung", ApplianceType: ApplianceRefrigerator, Symptom: "not working"},
		},
		{
			name: "several parts in order, de-duplicated",
			text: "Do you have PS11757302 or ps11752778, or PS11757302 again?",
			want: models.Entities{PartNumbers: []string{"PS11757302", "PS11752778"}},
		},
		{
			name: "manufacturer part formats",
			text: "I have W10295370A, WR30X10093 and DA97-07549B",
			want: models.Entities{PartNumbers: []string{"W10295370A", "WR30X10093", "DA97-07549B"}},
		},
		{
			name: "component and problem",
			text: "the door seal on my LG refrigerator is leaking",
			want: models.Entities{Brand: "LG", ApplianceType: ApplianceRefrigerator, Symptom: "door gasket leaking"},
		},
		{
			name: "nothing to extract",
			text: "hello there",
			want: models.Entities{},
		},
		{
			name: "empty",
			text: "",
			want: models.Entities{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text))
		})
	}
}

func TestPartNumberTokenIsNeverClaimedTwice(t *testing.T) {
	texts := []string{
		"PS11752778",
		"need PS11752778 for model WDT780SAEM1",
		"WPW10321304 fits KDTE334GPS0?",
		"WR30X10093",
	}
	for _, text := range texts {
		e := Extract(text)
		for _, part := range e.PartNumbers {
			assert.NotContains(t, e.ModelNumbers, part, text)
			assert.NotEqual(t, part, e.Brand, text)
			assert.NotEqual(t, part, e.ApplianceType, text)
			assert.NotContains(t, e.Symptom, part, text)
		}
		assert.NotEmpty(t, e.PartNumbers, text)
	}
}

func TestExtractHistoryPrefersMostRecent(t *testing.T) {
	history := []string{
		"I have a Whirlpool fridge, part PS11752778",
		"Actually my model is WDT780SAEM1",
		"and what about PS11757302?",
	}

	got := ExtractHistory(history, nil)

	assert.Equal(t, []string{"PS11757302"}, got.PartNumbers)
	assert.Equal(t, []string{"WDT780SAEM1"}, got.ModelNumbers)
	assert.Equal(t, "Whirlpool", got.Brand)
	assert.Equal(t, ApplianceRefrigerator, got.ApplianceType)
	assert.Empty(t, got.Symptom)
}

func TestExtractHistorySkipsRejectedAppliances(t *testing.T) {
	history := []string{
		"My dishwasher is leaking",
		"Can you help with my washing machine?",
	}
	supported := func(a string) bool { return a == ApplianceRefrigerator || a == ApplianceDishwasher }

	assert.Equal(t, "washing machine", ExtractHistory(history, nil).ApplianceType)
	assert.Equal(t, ApplianceDishwasher, ExtractHistory(history, supported).ApplianceType)
	assert.Empty(t, ExtractHistory(history[1:], supported).ApplianceType)
}

func TestKnownAppliance(t *testing.T) {
	assert.True(t, KnownAppliance(ApplianceRefrigerator))
	assert.True(t, KnownAppliance("washing machine"))
	assert.False(t, KnownAppliance("toaster"))
}
