package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"eventtrack-api/internal/apperr"
	"eventtrack-api/internal/db"
	"eventtrack-api/internal/metrics"
)

// ValidateAPIKey resolves an API key to its channel and org.
// Absent, malformed, unknown and EXPIRED keys all fail with apperr.ErrInvalidCredential,
// as does an ACTIVE key whose channel row is gone.
func (s *Service) ValidateAPIKey(ctx context.Context, key string) (KeyContext, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return s.reject("missing api key")
	}
	if _, err := uuid.Parse(key); err != nil {
		return s.reject("malformed api key")
	}
	if s.cache != nil {
		switch kc, state := s.cache.Get(ctx, key); state {
		case CacheHit:
			return kc, nil
		case CacheRevoked:
			return s.reject("api key revoked")
		}
	}

	k, err := s.keyByID(ctx, s.drv, key)
	if db.IsNoRows(err) {
		return s.reject("unknown api key")
	}
	if err != nil {
		return KeyContext{}, fmt.Errorf("lookup api key: %w", err)
	}
	if k.Status != KeyActive {
		return s.reject("api key not active")
	}

	ch, err := s.channelByID(ctx, s.drv, k.ChannelID)
	if db.IsNoRows(err) {
		s.log.Error("active api key references a missing channel",
			zap.String("key_id", k.ID),
			zap.String("channel_id", k.ChannelID),
			zap.Error(apperr.ErrDataIntegrity),
		)
		return s.reject("channel missing")
	}
	if err != nil {
		return KeyContext{}, fmt.Errorf("lookup channel: %w", err)
	}

	kc := KeyContext{KeyID: k.ID, ChannelID: ch.ID, OrgID: ch.OrgID}
	if s.cache != nil {
		s.cache.Set(ctx, key, kc)
	}
	return kc, nil
}

func (s *Service) reject(reason string) (KeyContext, error) {
	metrics.APIKeyRejections.Inc()
	s.log.Debug("api key rejected", zap.String("reason", reason))
	return KeyContext{}, apperr.ErrInvalidCredential
}
