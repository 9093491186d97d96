package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/avvvet/partsbuddy-agent/internal/models"
	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps sessions in process with a sliding TTL
type MemoryStore struct {
	mu    sync.Mutex
	items *gocache.Cache
	ttl   time.Duration
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		items: gocache.New(ttl, ttl/2+time.Second),
		ttl:   ttl,
	}
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.get(sessionID)
	if !ok {
		return models.NewConversation(sessionID, time.Now()), nil
	}
	return conv, nil
}

func (s *MemoryStore) Append(ctx context.Context, sessionID string, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.get(sessionID)
	if !ok {
		conv = models.NewConversation(sessionID, msg.Timestamp)
	}
	conv.Append(msg)
	s.items.Set(sessionID, conv, s.ttl)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.items.Delete(sessionID)
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	_, ok := s.items.Get(sessionID)
	return ok, nil
}

func (s *MemoryStore) Touch(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv, ok := s.get(sessionID); ok {
		conv.Metadata.LastActivity = time.Now()
		s.items.Set(sessionID, conv, s.ttl)
	}
	return nil
}

// get returns a copy so callers never share the stored slice
func (s *MemoryStore) get(sessionID string) (*models.Conversation, bool) {
	v, ok := s.items.Get(sessionID)
	if !ok {
		return nil, false
	}
	stored := v.(*models.Conversation)
	conv := *stored
	conv.Messages = append([]models.Message(nil), stored.Messages...)
	return &conv, true
}
