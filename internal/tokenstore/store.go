// Package tokenstore persists the session's access and refresh tokens between runs.
// Every operation is best-effort: failures are logged and swallowed, and the in-memory
// session stays authoritative for the life of the process.
package tokenstore

import (
	"context"

	"go.uber.org/zap"

	"inventory-mobile/client/internal/logging"
	"inventory-mobile/client/internal/security"
	"inventory-mobile/client/internal/tokenstore/repository"
)

const (
	KeyAccess  = "access_token"
	KeyRefresh = "refresh_token"
	// KeyLegacy held the only token before refresh tokens existed. It is read as a fallback.
	KeyLegacy = "token"
)

// Tokens is what Load returns. Empty strings mean absent.
type Tokens struct {
	Access  string
	Refresh string
}

// Store reads and writes tokens through a Repository, optionally sealing values at rest.
type Store struct {
	repo   repository.Repository
	sealer *security.Sealer
	logger *zap.Logger
}

// New returns a Store. sealer may be nil to store values as-is.
func New(repo repository.Repository, sealer *security.Sealer, logger *zap.Logger) *Store {
	return &Store{repo: repo, sealer: sealer, logger: logging.OrNop(logger)}
}

// Save persists access and refresh. An empty value deletes its key. The legacy key is
// removed once the current keys are written.
func (s *Store) Save(ctx context.Context, access, refresh string) {
	s.put(ctx, KeyAccess, access)
	s.put(ctx, KeyRefresh, refresh)
	if access != "" {
		s.delete(ctx, KeyLegacy)
	}
}

// Load returns the stored tokens. When no access token is stored under the current key the
// legacy key is used as the access token, with no refresh token.
func (s *Store) Load(ctx context.Context) Tokens {
	access, ok := s.get(ctx, KeyAccess, true)
	if !ok {
		legacy, ok := s.get(ctx, KeyLegacy, false)
		if !ok {
			return Tokens{}
		}
		s.logger.Info("token store: using legacy token key", zap.String("fingerprint", security.Fingerprint(legacy)))
		return Tokens{Access: legacy}
	}
	refresh, _ := s.get(ctx, KeyRefresh, true)
	return Tokens{Access: access, Refresh: refresh}
}

// Clear deletes the current and legacy keys.
func (s *Store) Clear(ctx context.Context) {
	s.delete(ctx, KeyAccess, KeyRefresh, KeyLegacy)
}

func (s *Store) put(ctx context.Context, key, value string) {
	if value == "" {
		s.delete(ctx, key)
		return
	}
	if s.sealer != nil {
		sealed, err := s.sealer.Seal(value)
		if err != nil {
			s.logger.Warn("token store: seal failed", zap.String("key", key), zap.Error(err))
			return
		}
		value = sealed
	}
	if err := s.repo.Put(ctx, key, value); err != nil {
		s.logger.Warn("token store: write failed", zap.String("key", key), zap.Error(err))
	}
}

// get reads key. Legacy values were written before sealing existed and are read as-is.
func (s *Store) get(ctx context.Context, key string, sealed bool) (string, bool) {
	raw, ok, err := s.repo.Get(ctx, key)
	if err != nil {
		s.logger.Warn("token store: read failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	if !ok || raw == "" {
		return "", false
	}
	if !sealed || s.sealer == nil {
		return raw, true
	}
	plain, err := s.sealer.Open(raw)
	if err != nil {
		s.logger.Warn("token store: stored value cannot be opened, ignoring", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return plain, true
}

func (s *Store) delete(ctx context.Context, keys ...string) {
	if err := s.repo.Delete(ctx, keys...); err != nil {
		s.logger.Warn("token store: delete failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
