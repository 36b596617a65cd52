// Package sweeper collects expired rows from the refresh-token table
// and the revocation ledger. Pure housekeeping: a delayed sweep only
// grows storage, expired tokens are rejected with or without it.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/cinetalk/cinetalk/services/auth/internal/repo"
)

type Sweeper struct {
	Repo     repo.GormRepo
	Interval time.Duration
	Logger   *slog.Logger
}

// Run sweeps on the interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	now := time.Now()

	revoked, err := s.Repo.DeleteExpiredRevokedTokens(ctx, now)
	if err != nil {
		s.Logger.Error("sweep_revoked_failed", "error", err)
	}
	refresh, err := s.Repo.DeleteExpiredRefreshTokens(ctx, now)
	if err != nil {
		s.Logger.Error("sweep_refresh_failed", "error", err)
	}

	if revoked > 0 || refresh > 0 {
		s.Logger.Info("token_sweep", "revoked_removed", revoked, "refresh_removed", refresh)
	}
}
