// Package token keeps the user's GitHub personal access token in local storage.
package token

import (
	"context"
	"fmt"

	"github.com/naka-gawa/gitgraph/internal/notify"
	"github.com/naka-gawa/gitgraph/internal/store"
)

// Key is the storage key the token is kept under.
const Key = "github_token"

// Store reads and writes the token. The token is stored and returned verbatim.
type Store struct {
	kv       store.KV
	notifier notify.Notifier
}

func NewStore(kv store.KV, notifier notify.Notifier) *Store {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Store{kv: kv, notifier: notifier}
}

// Get returns the stored token. ok is false when no token was ever set or it was removed.
func (s *Store) Get(ctx context.Context) (string, bool, error) {
	tok, ok, err := s.kv.Get(ctx, Key)
	if err != nil {
		return "", false, fmt.Errorf("read token: %w", err)
	}
	return tok, ok, nil
}

func (s *Store) Set(ctx context.Context, tok string) error {
	if err := s.kv.Set(ctx, Key, tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	s.notifier.Success("Token added successfully")
	return nil
}

func (s *Store) Remove(ctx context.Context) error {
	if err := s.kv.Delete(ctx, Key); err != nil {
		return fmt.Errorf("remove token: %w", err)
	}
	s.notifier.Success("Token removed successfully")
	return nil
}
