package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/partsbuddy-agent/internal/catalog"
	"github.com/avvvet/partsbuddy-agent/internal/conversation"
	"github.com/avvvet/partsbuddy-agent/internal/intent"
	"github.com/avvvet/partsbuddy-agent/internal/llm"
	"github.com/avvvet/partsbuddy-agent/internal/llm/llmtest"
	"github.com/avvvet/partsbuddy-agent/internal/logger"
	"github.com/avvvet/partsbuddy-agent/internal/models"
	"github.com/avvvet/partsbuddy-agent/internal/response"
	"github.com/avvvet/partsbuddy-agent/internal/scope"
	"github.com/avvvet/partsbuddy-agent/internal/tools"
	"github.com/avvvet/partsbuddy-agent/internal/vectorsearch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	turns  []models.Intent
	errors int
}

func (r *recorder) ObserveTurn(intent models.Intent, inScope, grounded bool, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns = append(r.turns, intent)
}

func (r *recorder) ObserveTurnError() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors++
}

func newAgent(t *testing.T, provider llm.Provider, store conversation.Store) (*Agent, *recorder) {
	t.Helper()
	products, guides, err := catalog.LoadSeed()
	require.NoError(t, err)

	searcher, err := vectorsearch.NewChromemSearcher(vectorsearch.ChromemConfig{}, vectorsearch.HashEmbedding(256), logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, searcher.IndexProducts(context.Background(), products))
	require.NoError(t, searcher.IndexGuides(context.Background(), guides))

	if store == nil {
		store = conversation.NewMemoryStore(time.Hour)
	}
	log := logger.NewNop()
	rec := &recorder{}
	a := New(
		conversation.NewManager(store, time.Minute, log),
		intent.NewClassifier(provider, log),
		scope.NewValidator(scope.DefaultAppliances),
		tools.NewOrchestrator(catalog.NewMemoryCatalog(products, guides), searcher, nil, tools.Config{Timeout: time.Second, TopK: 5}, log),
		response.NewAssembler(provider, time.Second, log),
		log,
	).WithRecorder(rec)
	return a, rec
}

func offline() *llmtest.Stub {
	return &llmtest.Stub{Err: errors.New("model unavailable")}
}

func TestInstallationScenario(t *testing.T) {
	a, rec := newAgent(t, offline(), nil)

	resp, err := a.HandleTurn(context.Background(), "s1", "How can I install part number PS11752778?")
	require.NoError(t, err)

	assert.Equal(t, []string{"PS11752778"}, resp.Entities.PartNumbers)
	assert.Equal(t, models.IntentInstallationGuide, resp.Intent.Type)
	assert.Equal(t, models.ProvenanceRule, resp.Intent.Provenance)
	assert.True(t, resp.InScope)

	require.Len(t, resp.ToolResults, 1)
	assert.Equal(t, models.ToolInstallationGuide, resp.ToolResults[0].Tool)
	assert.True(t, resp.ToolResults[0].Success)

	assert.Contains(t, resp.Reply, "1. Turn off the refrigerator and shut off the water supply")
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "PS11752778", resp.Products[0].PartNumber)
	assert.Equal(t, []models.Intent{resp.Intent}, rec.turns)
}

func TestInstallationUnknownPart(t *testing.T) {
	a, _ := newAgent(t, offline(), nil)

	resp, err := a.HandleTurn(context.Background(), "s1", "How do I install PS99999999?")
	require.NoError(t, err)

	assert.Equal(t, models.IntentInstallationGuide, resp.Intent.Type)
	require.Len(t, resp.ToolResults, 1)
	assert.True(t, resp.ToolResults[0].Success)
	assert.Contains(t, resp.Reply, "I couldn't find part PS99999999 in our catalog")
	assert.NotContains(t, resp.Reply, response.FailureMessage)
	assert.Empty(t, resp.Products)
}

func TestCompatibilityNeedsPartNumber(t *testing.T) {
	stub := &llmtest.Stub{Content: "unused"}
	a, _ := newAgent(t, stub, nil)

	resp, err := a.HandleTurn(context.Background(), "s1", "Is this part compatible with my WDT780SAEM1 model?")
	require.NoError(t, err)

	assert.Equal(t, models.IntentCheckCompatibility, resp.Intent.Type)
	require.Len(t, resp.ToolResults, 1)
	assert.True(t, resp.ToolResults[0].NeedsClarification)
	assert.False(t, resp.ToolResults[0].Success)
	assert.Equal(t, []models.Field{models.FieldPartNumber}, resp.ToolResults[0].Missing)
	assert.Contains(t, resp.Reply, "part number")
	assert.Empty(t, resp.Products)
	assert.Zero(t, stub.Calls())
}

func TestTroubleshootingScenario(t *testing.T) {
	a, _ := newAgent(t, offline(), nil)

	resp, err := a.HandleTurn(context.Background(), "s1", "The ice maker on my Whirlpool fridge is not working")
	require.NoError(t, err)

	assert.Equal(t, "Whirlpool", resp.Entities.Brand)
	assert.Equal(t, "refrigerator", resp.Entities.ApplianceType)
	assert.Equal(t, "ice maker not working", resp.Entities.Symptom)
	assert.Equal(t, models.IntentTroubleshoot, resp.Intent.Type)

	require.NotEmpty(t, resp.ToolResults)
	assert.Equal(t, models.ToolTroubleshooting, resp.ToolResults[0].Tool)
	require.True(t, resp.ToolResults[0].Success)
	payload := resp.ToolResults[0].Payload.(models.TroubleshootingPayload)
	require.NotEmpty(t, payload.Guides)
	assert.Equal(t, "refrigerator-ice-maker-not-working", payload.Guides[0].ID)

	assert.Contains(t, resp.Reply, "Common causes:")
	assert.NotEmpty(t, resp.Products)
}

func TestUnsupportedApplianceScenario(t *testing.T) {
	a, _ := newAgent(t, offline(), nil)

	resp, err := a.HandleTurn(context.Background(), "s1", "Can you help with my washing machine?")
	require.NoError(t, err)

	assert.False(t, resp.InScope)
	assert.Contains(t, resp.Reply, scope.OutOfScopeMessage)
	assert.Empty(t, resp.ToolResults)
	assert.Empty(t, resp.Products)
	assert.NotNil(t, resp.Products)
	// the classified intent is reported as is
	assert.Equal(t, models.IntentFindPart, resp.Intent.Type)
	assert.Equal(t, models.ProvenanceFallback, resp.Intent.Provenance)
}

func TestRejectedApplianceDoesNotCarryOver(t *testing.T) {
	a, _ := newAgent(t, offline(), nil)
	ctx := context.Background()

	first, err := a.HandleTurn(ctx, "s1", "Can you help with my washing machine?")
	require.NoError(t, err)
	require.False(t, first.InScope)

	second, err := a.HandleTurn(ctx, "s1", "How can I install part number PS11752778?")
	require.NoError(t, err)
	assert.True(t, second.InScope)
	assert.Empty(t, second.Entities.ApplianceType)
	assert.False(t, second.Entities.Inherited[models.FieldApplianceType])
	require.Len(t, second.ToolResults, 1)
	assert.True(t, second.ToolResults[0].Success)
	assert.Contains(t, second.Reply, "1. Turn off the refrigerator and shut off the water supply")

	// a supported appliance named earlier is still inherited
	_, err = a.HandleTurn(ctx, "s2", "My dishwasher needs a part")
	require.NoError(t, err)
	_, err = a.HandleTurn(ctx, "s2", "or maybe my washing machine")
	require.NoError(t, err)
	third, err := a.HandleTurn(ctx, "s2", "How do I find a spray arm?")
	require.NoError(t, err)
	assert.True(t, third.InScope)
	assert.Equal(t, "dishwasher", third.Entities.ApplianceType)
	assert.True(t, third.Entities.Inherited[models.FieldApplianceType])
}

func TestOffTopicScenario(t *testing.T) {
	a, _ := newAgent(t, offline(), nil)

	resp, err := a.HandleTurn(context.Background(), "s1", "Tell me a joke about the weather")
	require.NoError(t, err)
	assert.Equal(t, models.IntentOutOfScope, resp.Intent.Type)
	assert.False(t, resp.InScope)
	assert.Equal(t, scope.OutOfScopeMessage, resp.Reply)
}

func TestGroundedReply(t *testing.T) {
	stub := &llmtest.Stub{Content: "Here's how to install your new ice maker."}
	a, _ := newAgent(t, stub, nil)

	resp, err := a.HandleTurn(context.Background(), "s1", "How can I install part number PS11752778?")
	require.NoError(t, err)
	assert.Equal(t, "Here's how to install your new ice maker.", resp.Reply)
	require.Equal(t, 1, stub.Calls())
	assert.Contains(t, stub.Requests[0].Prompt, "PS11752778")
}

func TestFollowUpInheritsEntities(t *testing.T) {
	a, _ := newAgent(t, offline(), nil)
	ctx := context.Background()

	_, err := a.HandleTurn(ctx, "s1", "I need a part for my WDT780SAEM1")
	require.NoError(t, err)

	resp, err := a.HandleTurn(ctx, "s1", "Is PS11722130 compatible?")
	require.NoError(t, err)
	assert.Equal(t, models.IntentCheckCompatibility, resp.Intent.Type)
	assert.Equal(t, []string{"WDT780SAEM1"}, resp.Entities.ModelNumbers)
	assert.True(t, resp.Entities.Inherited[models.FieldModelNumber])

	require.Len(t, resp.ToolResults, 1)
	require.True(t, resp.ToolResults[0].Success)
	payload := resp.ToolResults[0].Payload.(models.CompatibilityPayload)
	assert.True(t, payload.Compatible)
	assert.Contains(t, resp.Reply, "is compatible with model WDT780SAEM1")

	// other sessions see none of it
	resp, err = a.HandleTurn(ctx, "s2", "Is PS11722130 compatible?")
	require.NoError(t, err)
	assert.Empty(t, resp.Entities.ModelNumbers)
	assert.True(t, resp.ToolResults[0].NeedsClarification)
}

func TestHistoryIsAppendOnly(t *testing.T) {
	a, _ := newAgent(t, offline(), nil)
	ctx := context.Background()

	questions := []string{
		"How can I install part number PS11752778?",
		"Can you help with my washing machine?",
		"Is this part compatible with my WDT780SAEM1 model?",
	}
	var replies []string
	for _, q := range questions {
		resp, err := a.HandleTurn(ctx, "s1", q)
		require.NoError(t, err)
		replies = append(replies, resp.Reply)
	}

	history, err := a.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 2*len(questions))
	for i, q := range questions {
		assert.Equal(t, models.RoleUser, history[2*i].Role)
		assert.Equal(t, q, history[2*i].Content)
		assert.Equal(t, models.RoleAssistant, history[2*i+1].Role)
		assert.Equal(t, replies[i], history[2*i+1].Content)
	}

	require.NoError(t, a.Clear(ctx, "s1"))
	exists, err := a.Exists(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestConcurrentTurnsInOneSession(t *testing.T) {
	a, rec := newAgent(t, offline(), nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := a.HandleTurn(ctx, "s1", fmt.Sprintf("What is the price of PS1175277%d?", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	history, err := a.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 16)
	for i := 0; i < len(history); i += 2 {
		assert.Equal(t, models.RoleUser, history[i].Role)
		assert.Equal(t, models.RoleAssistant, history[i+1].Role)
	}
	assert.Len(t, rec.turns, 8)
}

type downStore struct{}

func (downStore) Load(ctx context.Context, sessionID string) (*models.Conversation, error) {
	return nil, errors.New("redis unavailable")
}
func (downStore) Append(ctx context.Context, sessionID string, msg models.Message) error {
	return errors.New("redis unavailable")
}
func (downStore) Delete(ctx context.Context, sessionID string) error { return nil }
func (downStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	return false, nil
}
func (downStore) Touch(ctx context.Context, sessionID string) error { return nil }

func TestStoreFailureIsTheOnlyError(t *testing.T) {
	a, rec := newAgent(t, offline(), downStore{})

	_, err := a.HandleTurn(context.Background(), "s1", "How can I install part number PS11752778?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis unavailable")
	assert.Equal(t, 1, rec.errors)
}

// appendFailStore opens sessions but cannot save messages
type appendFailStore struct {
	conversation.Store
}

func (appendFailStore) Append(ctx context.Context, sessionID string, msg models.Message) error {
	return errors.New("disk full")
}

func TestAppendFailureStillAnswers(t *testing.T) {
	a, _ := newAgent(t, offline(), appendFailStore{Store: conversation.NewMemoryStore(time.Hour)})

	resp, err := a.HandleTurn(context.Background(), "s1", "How can I install part number PS11752778?")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Reply)

	history, err := a.History(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, history)
}
