// Package intent maps a user message to one closed-set intent. Rules run
// first; the language model is only consulted when no rule is confident.
package intent

import (
	"context"
	"errors"

	"github.com/avvvet/partsbuddy-agent/internal/llm"
	"github.com/avvvet/partsbuddy-agent/internal/logger"
	"github.com/avvvet/partsbuddy-agent/internal/models"
	"github.com/avvvet/partsbuddy-agent/internal/prompts"
)

const module = "intent"

// ModelConfidence is attached to labels chosen by the language model
const ModelConfidence = 0.6

var errNoProvider = errors.New("no language model configured")

type Input struct {
	Text     string
	Entities models.Entities
	History  []llm.Message
}

type Classifier struct {
	rules     []Rule
	threshold float64
	provider  llm.Provider
	logger    logger.ILogger
}

// NewClassifier uses the default rule table. provider may be nil, in which
// case sub-threshold messages go straight to the fallback path.
func NewClassifier(provider llm.Provider, log logger.ILogger) *Classifier {
	return &Classifier{
		rules:     Rules,
		threshold: Threshold,
		provider:  provider,
		logger:    log,
	}
}

// Classify never fails; model trouble degrades to the best rule candidate or unknown
func (c *Classifier) Classify(ctx context.Context, in Input) models.Intent {
	candidate, matched := Match(c.rules, in.Text, in.Entities)
	if matched && candidate.Confidence >= c.threshold {
		c.logger.Debug(module, "rule matched", map[string]interface{}{
			"rule":       candidate.Name,
			"intent":     candidate.Intent,
			"confidence": candidate.Confidence,
		})
		return models.Intent{
			Type:       candidate.Intent,
			Confidence: candidate.Confidence,
			Provenance: models.ProvenanceRule,
			Rule:       candidate.Name,
		}
	}

	label, err := c.askModel(ctx, in)
	if err == nil {
		return models.Intent{
			Type:       label,
			Confidence: ModelConfidence,
			Provenance: models.ProvenanceModel,
		}
	}

	c.logger.Warn(module, "model classification failed, using fallback", map[string]interface{}{
		"error":     err.Error(),
		"candidate": candidate.Name,
	})
	if matched {
		return models.Intent{
			Type:       candidate.Intent,
			Confidence: candidate.Confidence,
			Provenance: models.ProvenanceFallback,
			Rule:       candidate.Name,
		}
	}
	return models.Intent{Type: models.IntentUnknown, Provenance: models.ProvenanceFallback}
}

func (c *Classifier) askModel(ctx context.Context, in Input) (models.IntentType, error) {
	if c.provider == nil {
		return models.IntentUnknown, errNoProvider
	}
	request := prompts.BuildClassifierRequest(in.Text, in.Entities, in.History)
	response, err := c.provider.Complete(ctx, request)
	if err != nil {
		return models.IntentUnknown, err
	}
	return prompts.ParseIntentLabel(response.Content)
}
