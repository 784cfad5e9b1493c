package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Store defines how sessions are stored and retrieved. Implementations
// must be safe for concurrent use; Get returns (nil, nil) for unknown
// or expired session IDs.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// GenerateID generates a cryptographically secure session ID
// (32 bytes = 256 bits of entropy).
func GenerateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: failed to generate id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
