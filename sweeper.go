package storeauth

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopforge/storeauth/domain"
)

// StartExpirySweeper periodically deletes expired authorization codes and
// tokens. Expiry checks in the read paths are authoritative; the sweeper
// only keeps the collections from growing without bound. It returns when
// ctx is cancelled.
func StartExpirySweeper(ctx context.Context, repo domain.OAuthRepository, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := repo.DeleteExpiredAuthCodes(ctx); err != nil {
				log.Error().Err(err).Msg("failed to sweep expired authorization codes")
			}
			if err := repo.DeleteExpiredTokens(ctx); err != nil {
				log.Error().Err(err).Msg("failed to sweep expired tokens")
			}
		case <-ctx.Done():
			return
		}
	}
}
