package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avvvet/partsbuddy-agent/internal/llm"
	"github.com/avvvet/partsbuddy-agent/internal/logger"
	"github.com/avvvet/partsbuddy-agent/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
)

const module = "conversation"

// session is the live, in-process state of a conversation
type session struct {
	lock     *turnLock
	buffer   *memory.ConversationBuffer // nil until the first turn loads it
	messages []models.Message

	// guarded by Manager.mapMu
	active   int // turns holding or queued on lock
	lastUsed time.Time
}

// Manager orchestrates conversation memory: a Store for persistence and a
// LangChainGo buffer per live session for prompt excerpts.
type Manager struct {
	store  Store
	idle   time.Duration
	logger logger.ILogger
	now    func() time.Time

	mapMu    sync.Mutex
	sessions map[string]*session
}

// NewManager evicts live sessions after idle without a turn
func NewManager(store Store, idle time.Duration, log logger.ILogger) *Manager {
	return &Manager{
		store:    store,
		idle:     idle,
		logger:   log,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Turn is exclusive access to one session. It must be ended exactly once;
// extra End calls are ignored.
type Turn struct {
	manager   *Manager
	sessionID string
	session   *session
	endOnce   sync.Once
}

// Begin waits for the session's earlier turns to finish, in arrival order,
// and creates the session on first use.
func (m *Manager) Begin(ctx context.Context, sessionID string) (*Turn, error) {
	m.mapMu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		s = &session{lock: newTurnLock()}
		m.sessions[sessionID] = s
	}
	s.active++
	s.lastUsed = m.now()
	m.mapMu.Unlock()

	if err := s.lock.Acquire(ctx); err != nil {
		m.leave(s)
		return nil, fmt.Errorf("waiting for session %s: %w", sessionID, err)
	}

	turn := &Turn{manager: m, sessionID: sessionID, session: s}
	if s.buffer == nil {
		if err := m.load(ctx, sessionID, s); err != nil {
			turn.End()
			return nil, err
		}
	} else if err := m.refresh(ctx, sessionID, s); err != nil {
		turn.End()
		return nil, err
	}
	return turn, nil
}

// refresh keeps a live session in step with the store. A session whose stored
// record has expired is reloaded so memory never holds messages the store lost.
func (m *Manager) refresh(ctx context.Context, sessionID string, s *session) error {
	if len(s.messages) > 0 {
		exists, err := m.store.Exists(ctx, sessionID)
		if err != nil {
			m.logger.Warn(module, "failed to check session", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		} else if !exists {
			m.logger.Info(module, "session expired in store, reloading", map[string]interface{}{
				"session_id": sessionID,
				"messages":   len(s.messages),
			})
			return m.load(ctx, sessionID, s)
		}
	}

	if err := m.store.Touch(ctx, sessionID); err != nil {
		m.logger.Warn(module, "failed to refresh session", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
	return nil
}

// load fills the LangChainGo buffer from the store
func (m *Manager) load(ctx context.Context, sessionID string, s *session) error {
	conv, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	buffer := memory.NewConversationBuffer()
	for _, msg := range conv.Messages {
		chatMsg, ok := toChatMessage(msg)
		if !ok {
			m.logger.Warn(module, "unknown message role, skipping", map[string]interface{}{
				"session_id": sessionID,
				"role":       msg.Role,
			})
			continue
		}
		if err := buffer.ChatHistory.AddMessage(ctx, chatMsg); err != nil {
			return fmt.Errorf("failed to add message to memory: %w", err)
		}
	}

	s.buffer = buffer
	s.messages = conv.Messages
	m.logger.Debug(module, "loaded session", map[string]interface{}{
		"session_id": sessionID,
		"messages":   len(conv.Messages),
	})
	return nil
}

func (m *Manager) leave(s *session) {
	m.mapMu.Lock()
	s.active--
	s.lastUsed = m.now()
	m.mapMu.Unlock()
}

func (t *Turn) SessionID() string {
	return t.sessionID
}

// History returns every message before this point, oldest first
func (t *Turn) History() []models.Message {
	return append([]models.Message(nil), t.session.messages...)
}

// UserMessages returns the text of earlier user messages, oldest first
func (t *Turn) UserMessages() []string {
	var out []string
	for _, msg := range t.session.messages {
		if msg.Role == models.RoleUser {
			out = append(out, msg.Content)
		}
	}
	return out
}

// Excerpt returns the last n messages from the buffer in provider form
func (t *Turn) Excerpt(ctx context.Context, n int) ([]llm.Message, error) {
	msgs, err := t.session.buffer.ChatHistory.Messages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	if n >= 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}

	out := make([]llm.Message, 0, len(msgs))
	for _, msg := range msgs {
		role := "user"
		switch msg.GetType() {
		case llms.ChatMessageTypeAI:
			role = "assistant"
		case llms.ChatMessageTypeSystem:
			role = "system"
		}
		out = append(out, llm.Message{Role: role, Content: msg.GetContent()})
	}
	return out, nil
}

func (t *Turn) AppendUser(ctx context.Context, content string) error {
	return t.append(ctx, models.RoleUser, content)
}

func (t *Turn) AppendAssistant(ctx context.Context, content string) error {
	return t.append(ctx, models.RoleAssistant, content)
}

// append persists first so memory never runs ahead of the store
func (t *Turn) append(ctx context.Context, role models.Role, content string) error {
	msg := models.Message{Role: role, Content: content, Timestamp: t.manager.now()}
	if err := t.manager.store.Append(ctx, t.sessionID, msg); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	chatMsg, _ := toChatMessage(msg)
	if err := t.session.buffer.ChatHistory.AddMessage(ctx, chatMsg); err != nil {
		return fmt.Errorf("failed to add message to memory: %w", err)
	}
	t.session.messages = append(t.session.messages, msg)
	return nil
}

// End releases the session to the next queued turn
func (t *Turn) End() {
	t.endOnce.Do(func() {
		t.session.lock.Release()
		t.manager.leave(t.session)
	})
}

// History reads a session's stored messages without taking a turn
func (m *Manager) History(ctx context.Context, sessionID string) ([]models.Message, error) {
	conv, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return conv.Messages, nil
}

func (m *Manager) Exists(ctx context.Context, sessionID string) (bool, error) {
	return m.store.Exists(ctx, sessionID)
}

// Clear waits for in-flight turns, then drops the session everywhere
func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	turn, err := m.Begin(ctx, sessionID)
	if err != nil {
		return err
	}
	defer turn.End()

	if err := m.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	if err := turn.session.buffer.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear memory: %w", err)
	}
	turn.session.messages = nil

	m.logger.Info(module, "cleared session", map[string]interface{}{"session_id": sessionID})
	return nil
}

// Sweep evicts live sessions idle since before now-idle. A session with a
// turn in flight or queued is kept until a later sweep.
func (m *Manager) Sweep(now time.Time) int {
	m.mapMu.Lock()
	defer m.mapMu.Unlock()

	evicted := 0
	for id, s := range m.sessions {
		if s.active > 0 || now.Sub(s.lastUsed) < m.idle {
			continue
		}
		delete(m.sessions, id)
		evicted++
	}
	return evicted
}

// StartSweeper runs Sweep every interval until ctx is done
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.Sweep(m.now()); n > 0 {
					m.logger.Info(module, "evicted idle sessions", map[string]interface{}{
						"evicted": n,
						"live":    m.ActiveSessions(),
					})
				}
			}
		}
	}()
}

// ActiveSessions returns the number of live sessions
func (m *Manager) ActiveSessions() int {
	m.mapMu.Lock()
	defer m.mapMu.Unlock()
	return len(m.sessions)
}

// Close closes the underlying store
func (m *Manager) Close() error {
	if closer, ok := m.store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func toChatMessage(msg models.Message) (llms.ChatMessage, bool) {
	switch msg.Role {
	case models.RoleUser:
		return llms.HumanChatMessage{Content: msg.Content}, true
	case models.RoleAssistant:
		return llms.AIChatMessage{Content: msg.Content}, true
	case models.RoleSystem:
		return llms.SystemChatMessage{Content: msg.Content}, true
	}
	return nil, false
}
