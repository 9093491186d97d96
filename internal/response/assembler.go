// Package response turns tool results into the reply the customer sees.
package response

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avvvet/partsbuddy-agent/internal/llm"
	"github.com/avvvet/partsbuddy-agent/internal/logger"
	"github.com/avvvet/partsbuddy-agent/internal/models"
	"github.com/avvvet/partsbuddy-agent/internal/prompts"
	"github.com/avvvet/partsbuddy-agent/internal/scope"
)

const module = "response"

// MaxProducts caps the product cards attached to one reply
const MaxProducts = 5

const (
	UnknownMessage = "I'm not sure what you're looking for. I can help you find refrigerator and dishwasher parts, check whether a part fits your model, walk you through installing a part, or troubleshoot a problem. What would you like to do?"
	FailureMessage = "I'm sorry, I couldn't look that up right now. Please try again in a moment, or contact PartSelect customer service for help."
	partialNote    = "Some information is temporarily unavailable, so this answer may be incomplete."
)

type Input struct {
	Intent   models.Intent
	Decision scope.Decision
	Entities models.Entities
	Results  []models.ToolResult
	Query    string
	History  []llm.Message
}

type Output struct {
	Reply            string
	Products         []models.Product
	SuggestedActions []string
	Grounded         bool // reply was phrased by the model
}

type Assembler struct {
	provider llm.Provider
	timeout  time.Duration
	logger   logger.ILogger
}

// NewAssembler builds an assembler. A nil provider means template replies only.
func NewAssembler(provider llm.Provider, timeout time.Duration, log logger.ILogger) *Assembler {
	return &Assembler{provider: provider, timeout: timeout, logger: log}
}

// Assemble never fails: every path ends in a non-empty reply.
func (a *Assembler) Assemble(ctx context.Context, in Input) Output {
	if !in.Decision.InScope {
		return Output{
			Reply:            in.Decision.Reason,
			SuggestedActions: SuggestedActions(models.IntentOutOfScope, nil),
		}
	}

	if missing, tool, ok := clarification(in.Results); ok {
		return Output{
			Reply:            Clarify(tool, missing),
			SuggestedActions: SuggestedActions(in.Intent.Type, nil),
		}
	}

	var succeeded []models.ToolResult
	for _, r := range in.Results {
		if r.Success {
			succeeded = append(succeeded, r)
		}
	}

	switch {
	case len(in.Results) == 0:
		return Output{Reply: UnknownMessage, SuggestedActions: SuggestedActions(models.IntentUnknown, nil)}
	case len(succeeded) == 0:
		return Output{Reply: FailureMessage, SuggestedActions: SuggestedActions(models.IntentUnknown, nil)}
	}

	products := collectProducts(succeeded)
	out := Output{
		Reply:            Draft(in.Intent.Type, in.Results),
		Products:         products,
		SuggestedActions: SuggestedActions(in.Intent.Type, products),
	}

	if reply, err := a.ground(ctx, in, out.Reply, succeeded); err != nil {
		a.logger.Warn(module, "grounding failed, using template reply", map[string]interface{}{
			"intent": in.Intent.Type,
			"error":  err.Error(),
		})
	} else {
		out.Reply = reply
		out.Grounded = true
	}
	return out
}

type fact struct {
	Tool    models.ToolName `json:"tool"`
	Payload any             `json:"result"`
}

func (a *Assembler) ground(ctx context.Context, in Input, draft string, results []models.ToolResult) (string, error) {
	if a.provider == nil {
		return "", fmt.Errorf("no language model configured")
	}

	facts := make([]fact, 0, len(results))
	for _, r := range results {
		facts = append(facts, fact{Tool: r.Tool, Payload: r.Payload})
	}
	request, err := prompts.BuildGroundingRequest(in.Query, draft, facts, in.History)
	if err != nil {
		return "", err
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	response, err := a.provider.Complete(ctx, request)
	if err != nil {
		return "", err
	}
	reply := strings.TrimSpace(response.Content)
	if reply == "" {
		return "", llm.ErrEmptyResponse
	}
	return reply, nil
}

// clarification returns the first refused call, if any
func clarification(results []models.ToolResult) ([]models.Field, models.ToolName, bool) {
	for _, r := range results {
		if r.NeedsClarification {
			return r.Missing, r.Tool, true
		}
	}
	return nil, "", false
}

func collectProducts(results []models.ToolResult) []models.Product {
	var out []models.Product
	seen := make(map[string]bool)
	for _, r := range results {
		for _, p := range r.Products() {
			id := strings.ToUpper(p.PartNumber)
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, p)
			if len(out) == MaxProducts {
				return out
			}
		}
	}
	return out
}

// SuggestedActions lists follow-ups for the UI
func SuggestedActions(intent models.IntentType, products []models.Product) []string {
	switch intent {
	case models.IntentFindPart:
		if len(products) > 0 {
			return []string{"View product details", "Check compatibility", "Add to cart"}
		}
	case models.IntentCheckCompatibility:
		return []string{"View compatible models", "Find alternative parts"}
	case models.IntentInstallationGuide:
		return []string{"Watch installation video", "Download PDF guide", "View required tools"}
	case models.IntentTroubleshoot:
		return []string{"See common solutions", "Order replacement part", "Contact support"}
	case models.IntentOutOfScope:
		return []string{"Browse refrigerator parts", "Browse dishwasher parts"}
	}
	return []string{"Browse parts catalog", "Talk to support"}
}
