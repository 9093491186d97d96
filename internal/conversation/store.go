// Package conversation owns per-session history and serialises turns.
package conversation

import (
	"context"

	"github.com/avvvet/partsbuddy-agent/internal/models"
)

// Store defines the interface for conversation storage.
// Implementations expire idle sessions on their own TTL.
type Store interface {
	// Load returns the session, or an empty conversation when it does not exist
	Load(ctx context.Context, sessionID string) (*models.Conversation, error)

	// Append adds a message to the session and refreshes its TTL
	Append(ctx context.Context, sessionID string, msg models.Message) error

	Delete(ctx context.Context, sessionID string) error

	Exists(ctx context.Context, sessionID string) (bool, error)

	// Touch refreshes the last activity timestamp and TTL
	Touch(ctx context.Context, sessionID string) error
}
