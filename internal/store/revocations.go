package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nrednav/cuid2"
)

// revocationCache remembers logged-out token ids until they would have
// expired anyway. It lives in its own in-memory database and does not
// survive a restart.
type revocationCache struct {
	db    *sqlx.DB
	clock Clock
}

func NewRevocationCache(clock Clock) (*revocationCache, error) {
	db, err := sqlx.Connect("sqlite3", "file:revocations-"+cuid2.Generate()+"?mode=memory&cache=shared")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	cache := &revocationCache{db, clock}
	cache.init()

	return cache, nil
}

func (s *revocationCache) init() {
	s.db.MustExec(`create table if not exists revoked_token (
		token_id text primary key,
		expires_at DATETIME not null
	)`)
}

func (s *revocationCache) Close() error {
	return s.db.Close()
}

// Revoke also drops entries that have expired, so the table stays bounded
// without a background sweeper.
func (s *revocationCache) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM revoked_token WHERE expires_at < ?", s.clock.Now().UTC())
	if err != nil {
		return fmt.Errorf("purging expired revocations: %w", err)
	}
	_, err = s.db.ExecContext(ctx, "INSERT OR IGNORE INTO revoked_token (token_id, expires_at) VALUES (?, ?)", tokenID, expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

func (s *revocationCache) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT count(*) FROM revoked_token WHERE token_id = ?", tokenID)
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return count > 0, nil
}

func (s *revocationCache) Len(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT count(*) FROM revoked_token"); err != nil {
		return 0, fmt.Errorf("counting revocations: %w", err)
	}
	return count, nil
}
