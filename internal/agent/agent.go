// Package agent runs one conversational turn through the whole pipeline:
// extraction, classification, scope, tools and reply assembly.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/avvvet/partsbuddy-agent/internal/conversation"
	"github.com/avvvet/partsbuddy-agent/internal/extractor"
	"github.com/avvvet/partsbuddy-agent/internal/intent"
	"github.com/avvvet/partsbuddy-agent/internal/logger"
	"github.com/avvvet/partsbuddy-agent/internal/models"
	"github.com/avvvet/partsbuddy-agent/internal/response"
	"github.com/avvvet/partsbuddy-agent/internal/scope"
	"github.com/avvvet/partsbuddy-agent/internal/tools"
)

const module = "agent"

// DefaultHistoryExcerpt is how many recent messages the model sees
const DefaultHistoryExcerpt = 10

// Recorder receives per-turn measurements
type Recorder interface {
	ObserveTurn(intent models.Intent, inScope, grounded bool, elapsed time.Duration)
	ObserveTurnError()
}

type Agent struct {
	conversations  *conversation.Manager
	classifier     *intent.Classifier
	validator      *scope.Validator
	orchestrator   *tools.Orchestrator
	assembler      *response.Assembler
	recorder       Recorder
	historyExcerpt int
	logger         logger.ILogger
}

func New(
	conversations *conversation.Manager,
	classifier *intent.Classifier,
	validator *scope.Validator,
	orchestrator *tools.Orchestrator,
	assembler *response.Assembler,
	log logger.ILogger,
) *Agent {
	return &Agent{
		conversations:  conversations,
		classifier:     classifier,
		validator:      validator,
		orchestrator:   orchestrator,
		assembler:      assembler,
		historyExcerpt: DefaultHistoryExcerpt,
		logger:         log,
	}
}

func (a *Agent) WithRecorder(r Recorder) *Agent {
	a.recorder = r
	return a
}

func (a *Agent) WithHistoryExcerpt(n int) *Agent {
	if n > 0 {
		a.historyExcerpt = n
	}
	return a
}

// HandleTurn answers one user message. The only error is failing to open the
// session's conversation; every later failure degrades into the reply.
func (a *Agent) HandleTurn(ctx context.Context, sessionID, text string) (*models.AgentResponse, error) {
	start := time.Now()

	turn, err := a.conversations.Begin(ctx, sessionID)
	if err != nil {
		if a.recorder != nil {
			a.recorder.ObserveTurnError()
		}
		return nil, fmt.Errorf("failed to open conversation %s: %w", sessionID, err)
	}
	defer turn.End()

	current := extractor.Extract(text)
	entities := current.Inherit(extractor.ExtractHistory(turn.UserMessages(), a.validator.Supports))

	history, err := turn.Excerpt(ctx, a.historyExcerpt)
	if err != nil {
		a.logger.Warn(module, "history excerpt unavailable", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		history = nil
	}

	// rules see this message only; earlier turns reach the model through history
	classified := a.classifier.Classify(ctx, intent.Input{Text: text, Entities: current, History: history})
	decision := a.validator.Validate(classified, entities)

	userSaved := true
	if err := turn.AppendUser(ctx, text); err != nil {
		userSaved = false
		a.logger.Error(module, "failed to save user message", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}

	var results []models.ToolResult
	if decision.InScope {
		results = a.orchestrator.Run(ctx, classified.Type, entities, text)
	}

	out := a.assembler.Assemble(ctx, response.Input{
		Intent:   classified,
		Decision: decision,
		Entities: entities,
		Results:  results,
		Query:    text,
		History:  history,
	})

	// an assistant message without its question would break the pairing
	if userSaved {
		if err := turn.AppendAssistant(ctx, out.Reply); err != nil {
			a.logger.Error(module, "failed to save assistant message", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
	}

	elapsed := time.Since(start)
	if a.recorder != nil {
		a.recorder.ObserveTurn(classified, decision.InScope, out.Grounded, elapsed)
	}
	a.logger.Info(module, "turn handled", map[string]interface{}{
		"session_id": sessionID,
		"intent":     classified.Type,
		"provenance": classified.Provenance,
		"in_scope":   decision.InScope,
		"tools":      len(results),
		"products":   len(out.Products),
		"grounded":   out.Grounded,
		"elapsed_ms": elapsed.Milliseconds(),
	})

	products := out.Products
	if products == nil {
		products = []models.Product{}
	}
	return &models.AgentResponse{
		SessionID:        sessionID,
		Reply:            out.Reply,
		Products:         products,
		Intent:           classified,
		InScope:          decision.InScope,
		Entities:         entities,
		SuggestedActions: out.SuggestedActions,
		ToolResults:      results,
	}, nil
}

// History returns the stored conversation, oldest first
func (a *Agent) History(ctx context.Context, sessionID string) ([]models.Message, error) {
	return a.conversations.History(ctx, sessionID)
}

// Clear deletes the conversation once in-flight turns finish
func (a *Agent) Clear(ctx context.Context, sessionID string) error {
	return a.conversations.Clear(ctx, sessionID)
}

func (a *Agent) Exists(ctx context.Context, sessionID string) (bool, error) {
	return a.conversations.Exists(ctx, sessionID)
}
