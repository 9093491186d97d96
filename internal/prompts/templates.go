package prompts

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/avvvet/partsbuddy-agent/internal/llm"
	"github.com/avvvet/partsbuddy-agent/internal/models"
)

const ClassifierSystemPrompt = `You are an intent classifier for PartSelect, a store selling refrigerator and dishwasher replacement parts.

Pick exactly ONE intent for the user's latest message:
%s
RESPONSE FORMAT:
Respond with a valid JSON object and nothing else:
{"intent": "<one of the intents above>"}`

const classifierPromptTemplate = `Recent conversation:
%s
Extracted entities:
%s
Latest user message:
%s`

const AssistantSystemPrompt = `You are a helpful customer service agent for PartSelect, an e-commerce website specializing in refrigerator and dishwasher parts.

Important guidelines:
- ONLY discuss refrigerator and dishwasher parts.
- Use ONLY the facts in the TOOL RESULTS. Never invent part numbers, prices, models or steps that are not there.
- If the facts do not answer the question, say so and suggest contacting customer service.
- Be concise. Use numbered lists (1., 2., 3.) for steps and bullet points (-) for other items.
- Mention part number, name and price when you refer to a product.`

const groundingPromptTemplate = `TOOL RESULTS (JSON):
%s

DRAFT ANSWER:
%s

Customer question:
%s

Rewrite the draft answer as a friendly reply to the customer, using only the tool results.`

var intentDescriptions = map[models.IntentType]string{
	models.IntentFindPart:           "the user wants to find or buy a part, or asks about a part's price or details",
	models.IntentCheckCompatibility: "the user wants to know whether a part fits their appliance model",
	models.IntentInstallationGuide:  "the user wants instructions to install or replace a part",
	models.IntentTroubleshoot:       "the user describes a problem with their refrigerator or dishwasher",
	models.IntentOutOfScope:         "the request is unrelated to refrigerator or dishwasher parts",
	models.IntentUnknown:            "the request is too vague to tell",
}

// BuildClassifierRequest builds the constrained prompt for intent fallback
func BuildClassifierRequest(message string, entities models.Entities, history []llm.Message) *llm.Request {
	var intents strings.Builder
	for _, t := range models.IntentTypes {
		intents.WriteString(fmt.Sprintf("- %s: %s\n", t, intentDescriptions[t]))
	}

	return &llm.Request{
		SystemPrompt: fmt.Sprintf(ClassifierSystemPrompt, intents.String()),
		Prompt: fmt.Sprintf(classifierPromptTemplate,
			BuildConversationSection(history),
			buildEntitiesSection(entities),
			message),
		MaxTokens:   50,
		Temperature: 0, // deterministic labels
	}
}

// BuildGroundingRequest asks the model to phrase an answer from tool facts only
func BuildGroundingRequest(message, draft string, facts any, history []llm.Message) (*llm.Request, error) {
	data, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool results: %w", err)
	}

	return &llm.Request{
		SystemPrompt:        AssistantSystemPrompt,
		Prompt:              fmt.Sprintf(groundingPromptTemplate, string(data), draft, message),
		ConversationHistory: history,
		MaxTokens:           1000,
		Temperature:         0.3,
	}, nil
}

func BuildConversationSection(history []llm.Message) string {
	if len(history) == 0 {
		return "No previous conversation.\n"
	}

	var builder strings.Builder
	for _, msg := range history {
		builder.WriteString(fmt.Sprintf("%s: %s\n", roleLabel(msg.Role), msg.Content))
	}
	return builder.String()
}

func buildEntitiesSection(entities models.Entities) string {
	m := entities.AsMap()
	if len(m) == 0 {
		return "none\n"
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for _, k := range keys {
		builder.WriteString(fmt.Sprintf("- %s: %s\n", k, m[k]))
	}
	return builder.String()
}

func roleLabel(role string) string {
	switch role {
	case "user":
		return "User"
	case "assistant":
		return "Assistant"
	case "system":
		return "System"
	}
	return role
}

// ParseIntentLabel reads the model's answer. JSON is preferred; a bare label
// is accepted. Anything outside the intent set is unknown.
func ParseIntentLabel(content string) (models.IntentType, error) {
	if jsonContent := extractJSON(content); jsonContent != "" {
		var answer struct {
			Intent string `json:"intent"`
		}
		if err := json.Unmarshal([]byte(jsonContent), &answer); err != nil {
			return models.IntentUnknown, fmt.Errorf("failed to parse JSON: %w", err)
		}
		return models.ParseIntentType(answer.Intent), nil
	}

	label := strings.TrimSpace(content)
	if label == "" {
		return models.IntentUnknown, fmt.Errorf("empty classifier answer")
	}
	if fields := strings.Fields(label); len(fields) == 1 {
		return models.ParseIntentType(fields[0]), nil
	}
	return models.IntentUnknown, nil
}

func extractJSON(content string) string {
	start := strings.Index(content, "{")
	if start == -1 {
		return ""
	}

	end := strings.LastIndex(content, "}")
	if end == -1 || end <= start {
		return ""
	}

	return content[start : end+1]
}
