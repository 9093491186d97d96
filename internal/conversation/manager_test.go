package conversation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/avvvet/partsbuddy-agent/internal/logger"
	"github.com/avvvet/partsbuddy-agent/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return NewManager(NewMemoryStore(time.Hour), time.Minute, logger.NewNop())
}

func queued(m *Manager, sessionID string) int {
	m.mapMu.Lock()
	s := m.sessions[sessionID]
	m.mapMu.Unlock()
	if s == nil {
		return 0
	}
	return s.lock.waiting()
}

func TestTurnAppendsAndReloads(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	turn, err := m.Begin(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, turn.History())
	require.NoError(t, turn.AppendUser(ctx, "my fridge is warm"))
	require.NoError(t, turn.AppendAssistant(ctx, "let's check the fan"))
	turn.End()

	// drop live state so the next turn reads from the store
	assert.Equal(t, 1, m.Sweep(time.Now().Add(time.Hour)))
	assert.Zero(t, m.ActiveSessions())

	turn, err = m.Begin(ctx, "s1")
	require.NoError(t, err)
	defer turn.End()

	history := turn.History()
	require.Len(t, history, 2)
	assert.Equal(t, models.RoleUser, history[0].Role)
	assert.Equal(t, "let's check the fan", history[1].Content)
	assert.Equal(t, []string{"my fridge is warm"}, turn.UserMessages())
}

func TestLiveSessionFollowsStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	m := NewManager(store, time.Hour, logger.NewNop())
	ctx := context.Background()

	turn, err := m.Begin(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, turn.AppendUser(ctx, "my fridge is warm"))
	require.NoError(t, turn.AppendAssistant(ctx, "let's check the fan"))
	turn.End()

	// the stored record expires while the session is still live in memory
	mr.FastForward(2 * time.Minute)
	assert.Equal(t, 1, m.ActiveSessions())

	turn, err = m.Begin(ctx, "s1")
	require.NoError(t, err)
	defer turn.End()

	assert.Empty(t, turn.History())
	excerpt, err := turn.Excerpt(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, excerpt)

	stored, err := m.History(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestLiveSessionRefreshesStoreTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	m := NewManager(store, time.Hour, logger.NewNop())
	ctx := context.Background()

	turn, err := m.Begin(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, turn.AppendUser(ctx, "hi"))
	turn.End()

	mr.FastForward(30 * time.Second)
	turn, err = m.Begin(ctx, "s1")
	require.NoError(t, err)
	defer turn.End()

	assert.Len(t, turn.History(), 1)
	assert.Equal(t, time.Minute, mr.TTL("session:s1"))
}

func TestExcerpt(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	turn, err := m.Begin(ctx, "s1")
	require.NoError(t, err)
	defer turn.End()

	for i := 0; i < 6; i++ {
		require.NoError(t, turn.AppendUser(ctx, fmt.Sprintf("question %d", i)))
		require.NoError(t, turn.AppendAssistant(ctx, fmt.Sprintf("answer %d", i)))
	}

	excerpt, err := turn.Excerpt(ctx, 3)
	require.NoError(t, err)
	require.Len(t, excerpt, 3)
	assert.Equal(t, "assistant", excerpt[0].Role)
	assert.Equal(t, "answer 4", excerpt[0].Content)
	assert.Equal(t, "user", excerpt[1].Role)
	assert.Equal(t, "answer 5", excerpt[2].Content)
}

func TestTurnsRunInArrivalOrder(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	first, err := m.Begin(ctx, "s1")
	require.NoError(t, err)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			turn, err := m.Begin(ctx, "s1")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			turn.End()
		}(i)
		require.Eventually(t, func() bool { return queued(m, "s1") == i+1 }, time.Second, time.Millisecond)
	}

	first.End()
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestConcurrentTurnsKeepMessagePairsTogether(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			turn, err := m.Begin(ctx, "s1")
			if !assert.NoError(t, err) {
				return
			}
			defer turn.End()
			assert.NoError(t, turn.AppendUser(ctx, fmt.Sprintf("q%d", i)))
			assert.NoError(t, turn.AppendAssistant(ctx, fmt.Sprintf("a%d", i)))
		}(i)
	}
	wg.Wait()

	history, err := m.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 20)
	for i := 0; i < len(history); i += 2 {
		assert.Equal(t, models.RoleUser, history[i].Role)
		assert.Equal(t, models.RoleAssistant, history[i+1].Role)
		assert.Equal(t, "a"+history[i].Content[1:], history[i+1].Content)
	}
}

func TestIndependentSessionsDoNotBlock(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	held, err := m.Begin(ctx, "s1")
	require.NoError(t, err)
	defer held.End()

	ctx2, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	other, err := m.Begin(ctx2, "s2")
	require.NoError(t, err)
	other.End()
}

func TestBeginGivesUpWhenContextEnds(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	held, err := m.Begin(ctx, "s1")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = m.Begin(waitCtx, "s1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, queued(m, "s1"))

	held.End()
	held.End() // ignored

	next, err := m.Begin(ctx, "s1")
	require.NoError(t, err)
	next.End()
}

func TestSweepSkipsBusySessions(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	idle, err := m.Begin(ctx, "idle")
	require.NoError(t, err)
	idle.End()

	busy, err := m.Begin(ctx, "busy")
	require.NoError(t, err)

	later := time.Now().Add(time.Hour)
	assert.Equal(t, 1, m.Sweep(later))
	assert.Equal(t, 1, m.ActiveSessions())

	busy.End()
	assert.Equal(t, 1, m.Sweep(later.Add(time.Hour)))
	assert.Zero(t, m.ActiveSessions())
}

func TestSweepKeepsRecentSessions(t *testing.T) {
	m := newTestManager()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	turn, err := m.Begin(context.Background(), "s1")
	require.NoError(t, err)
	turn.End()

	assert.Zero(t, m.Sweep(now.Add(30*time.Second)))
	assert.Equal(t, 1, m.Sweep(now.Add(time.Minute)))
}

func TestStartSweeper(t *testing.T) {
	m := NewManager(NewMemoryStore(time.Hour), time.Millisecond, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	turn, err := m.Begin(ctx, "s1")
	require.NoError(t, err)
	turn.End()

	m.StartSweeper(ctx, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return m.ActiveSessions() == 0 }, time.Second, 5*time.Millisecond)
}

func TestClear(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	turn, err := m.Begin(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, turn.AppendUser(ctx, "hello"))
	turn.End()

	require.NoError(t, m.Clear(ctx, "s1"))

	exists, err := m.Exists(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, exists)

	turn, err = m.Begin(ctx, "s1")
	require.NoError(t, err)
	defer turn.End()
	assert.Empty(t, turn.History())
	excerpt, err := turn.Excerpt(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, excerpt)
}

type failingStore struct {
	MemoryStore
}

func (f *failingStore) Load(ctx context.Context, sessionID string) (*models.Conversation, error) {
	return nil, fmt.Errorf("store down")
}

func TestBeginFailsWhenStoreFails(t *testing.T) {
	m := NewManager(&failingStore{}, time.Minute, logger.NewNop())

	_, err := m.Begin(context.Background(), "s1")
	require.Error(t, err)

	// the failed turn released the session
	m.mapMu.Lock()
	active := m.sessions["s1"].active
	m.mapMu.Unlock()
	assert.Zero(t, active)
}
