// Package tools plans and runs the catalog tools for a classified turn.
package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avvvet/partsbuddy-agent/internal/cache"
	"github.com/avvvet/partsbuddy-agent/internal/catalog"
	"github.com/avvvet/partsbuddy-agent/internal/logger"
	"github.com/avvvet/partsbuddy-agent/internal/models"
	"github.com/avvvet/partsbuddy-agent/internal/retry"
	"github.com/avvvet/partsbuddy-agent/internal/vectorsearch"
	"golang.org/x/sync/errgroup"
)

const module = "tools"

// Tool outcomes reported to the Observer
const (
	OutcomeSuccess       = "success"
	OutcomeError         = "error"
	OutcomeCached        = "cached"
	OutcomeClarification = "clarification"
)

type tool interface {
	Run(ctx context.Context, args map[string]string) (any, error)
	Decode(data []byte) (any, error)
}

// Observer receives one event per planned step
type Observer interface {
	ObserveTool(tool models.ToolName, outcome string, elapsed time.Duration)
}

type Config struct {
	Timeout  time.Duration // per attempt
	CacheTTL time.Duration
	TopK     int
}

type Orchestrator struct {
	tools    map[models.ToolName]tool
	cache    cache.Cache
	cacheTTL time.Duration
	policy   retry.Policy
	observer Observer
	logger   logger.ILogger
}

func NewOrchestrator(c catalog.Catalog, s vectorsearch.Searcher, ch cache.Cache, cfg Config, log logger.ILogger) *Orchestrator {
	if ch == nil {
		ch = cache.Nop{}
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	return &Orchestrator{
		tools: map[models.ToolName]tool{
			models.ToolProductSearch:      &productSearch{catalog: c, searcher: s, topK: cfg.TopK},
			models.ToolCompatibilityCheck: &compatibilityCheck{catalog: c, searcher: s, topK: cfg.TopK},
			models.ToolInstallationGuide:  &installationGuide{catalog: c},
			models.ToolTroubleshooting:    &troubleshooting{catalog: c, searcher: s, topK: cfg.TopK},
		},
		cache:    ch,
		cacheTTL: cfg.CacheTTL,
		policy:   retry.DefaultPolicy(cfg.Timeout),
		logger:   log,
	}
}

// WithObserver reports every step outcome, e.g. to metrics
func (o *Orchestrator) WithObserver(obs Observer) *Orchestrator {
	o.observer = obs
	return o
}

// Run executes the plan for intent. Calls run concurrently and all of them
// are awaited; a failed call is recorded in its result and never cancels the
// others. Results keep plan order.
func (o *Orchestrator) Run(ctx context.Context, intent models.IntentType, entities models.Entities, query string) []models.ToolResult {
	steps := Plan(intent, entities, query)
	results := make([]models.ToolResult, len(steps))

	var g errgroup.Group
	for i, step := range steps {
		if len(step.Missing) > 0 {
			results[i] = models.ToolResult{
				Tool:               step.Tool,
				NeedsClarification: true,
				Missing:            step.Missing,
			}
			o.observe(step.Tool, OutcomeClarification, 0)
			continue
		}
		g.Go(func() error {
			results[i] = o.invoke(ctx, step)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (o *Orchestrator) invoke(ctx context.Context, step Step) models.ToolResult {
	start := time.Now()
	t, ok := o.tools[step.Tool]
	if !ok {
		return models.ToolResult{Tool: step.Tool, Error: "unknown tool"}
	}

	key := cache.Key(string(step.Tool), step.Args)
	if payload, ok := o.fromCache(ctx, key, t); ok {
		o.observe(step.Tool, OutcomeCached, time.Since(start))
		return models.ToolResult{Tool: step.Tool, Success: true, Payload: payload, Cached: true}
	}

	payload, err := retry.Do(ctx, o.policy, func(ctx context.Context) (any, error) {
		return t.Run(ctx, step.Args)
	})
	if err != nil {
		o.logger.Warn(module, "tool call failed", map[string]interface{}{
			"tool":  step.Tool,
			"args":  step.Args,
			"error": err.Error(),
		})
		o.observe(step.Tool, OutcomeError, time.Since(start))
		return models.ToolResult{Tool: step.Tool, Error: err.Error()}
	}

	o.toCache(ctx, key, payload)
	o.observe(step.Tool, OutcomeSuccess, time.Since(start))
	return models.ToolResult{Tool: step.Tool, Success: true, Payload: payload}
}

// fromCache treats every cache problem as a miss
func (o *Orchestrator) fromCache(ctx context.Context, key string, t tool) (any, bool) {
	data, ok, err := o.cache.Get(ctx, key)
	if err != nil {
		o.logger.Warn(module, "cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		return nil, false
	}
	if !ok {
		return nil, false
	}
	payload, err := t.Decode(data)
	if err != nil {
		o.logger.Warn(module, "discarding undecodable cache entry", map[string]interface{}{"key": key, "error": err.Error()})
		return nil, false
	}
	return payload, true
}

func (o *Orchestrator) toCache(ctx context.Context, key string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := o.cache.Set(ctx, key, data, o.cacheTTL); err != nil {
		o.logger.Warn(module, "cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

func (o *Orchestrator) observe(t models.ToolName, outcome string, elapsed time.Duration) {
	if o.observer != nil {
		o.observer.ObserveTool(t, outcome, elapsed)
	}
}

func decode[T any](data []byte) (any, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
