package events

import (
	"context"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
	"go.uber.org/zap"

	"eventtrack-api/internal/apperr"
	"eventtrack-api/internal/db"
)

// CreatedChannel is returned once, when a channel and its first key are created.
type CreatedChannel struct {
	ChannelID string `json:"channel_id"`
	APIKey    string `json:"api_key"`
}

// CreateChannel creates a channel in orgID and its first ACTIVE key. The caller
// must be an ACTIVE member of the org.
func (s *Service) CreateChannel(ctx context.Context, orgID, accountID, name string) (CreatedChannel, error) {
	name = strings.TrimSpace(name)
	if name == "" || orgID == "" {
		return CreatedChannel{}, fmt.Errorf("%w: org_id and name are required", apperr.ErrInvalidInput)
	}
	ok, err := s.members.IsMember(ctx, accountID, orgID, "")
	if err != nil {
		return CreatedChannel{}, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return CreatedChannel{}, apperr.ErrUnauthorized
	}

	now := s.now()
	ch := Channel{ID: s.newID(), OrgID: orgID, AccountID: accountID, Name: name, CreatedAt: now}
	key := APIKey{ID: s.newID(), ChannelID: ch.ID, Status: KeyActive, CreatedAt: now}
	err = db.WithTx(ctx, s.drv, func(tx dialect.Tx) error {
		if err := s.insertChannel(ctx, tx, ch); err != nil {
			return fmt.Errorf("insert channel: %w", err)
		}
		if err := s.insertKey(ctx, tx, key); err != nil {
			return fmt.Errorf("insert api key: %w", err)
		}
		return nil
	})
	if err != nil {
		return CreatedChannel{}, err
	}
	s.log.Info("channel created", zap.String("channel_id", ch.ID), zap.String("org_id", orgID))
	return CreatedChannel{ChannelID: ch.ID, APIKey: key.ID}, nil
}

// RotateAPIKey expires the channel's ACTIVE key (if any) and issues a new one.
// Only the channel's creator may rotate, and only while an ACTIVE OWNER of its org.
// Expired keys are revoked in the key cache before the transaction commits; a
// failed revocation aborts the rotation.
func (s *Service) RotateAPIKey(ctx context.Context, channelID, accountID string) (string, error) {
	ch, err := s.channelByID(ctx, s.drv, channelID)
	if db.IsNoRows(err) || (err == nil && ch.AccountID != accountID) {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup channel: %w", err)
	}
	owner, err := s.members.IsMember(ctx, accountID, ch.OrgID, RoleOwner)
	if err != nil {
		return "", fmt.Errorf("check membership: %w", err)
	}
	if !owner {
		s.log.Warn("non-owner attempted key rotation", zap.String("channel_id", channelID), zap.String("account_id", accountID))
		return "", apperr.ErrUnauthorized
	}

	var expired []string
	key := APIKey{ID: s.newID(), ChannelID: ch.ID, Status: KeyActive, CreatedAt: s.now()}
	err = db.WithTx(ctx, s.drv, func(tx dialect.Tx) error {
		ids, err := s.activeKeyIDs(ctx, tx, ch.ID)
		if err != nil {
			return fmt.Errorf("select active keys: %w", err)
		}
		if _, err := s.expireActiveKeys(ctx, tx, ch.ID); err != nil {
			return fmt.Errorf("expire keys: %w", err)
		}
		if err := s.insertKey(ctx, tx, key); err != nil {
			return fmt.Errorf("insert api key: %w", err)
		}
		if s.cache != nil && len(ids) > 0 {
			if err := s.cache.Revoke(ctx, ids...); err != nil {
				return fmt.Errorf("revoke cached keys: %w", err)
			}
		}
		expired = ids
		return nil
	})
	if err != nil {
		return "", err
	}
	s.log.Info("api key rotated", zap.String("channel_id", ch.ID), zap.Int("expired", len(expired)))
	return key.ID, nil
}

// GetChannel returns the channel behind kc if accountID created it.
func (s *Service) GetChannel(ctx context.Context, accountID string, kc KeyContext) (ChannelInfo, error) {
	ch, err := s.ownedChannel(ctx, accountID, kc.ChannelID)
	if err != nil {
		return ChannelInfo{}, err
	}
	return ChannelInfo{ID: ch.ID, Name: ch.Name}, nil
}

func (s *Service) ownedChannel(ctx context.Context, accountID, channelID string) (Channel, error) {
	ch, err := s.channelByID(ctx, s.drv, channelID)
	if db.IsNoRows(err) || (err == nil && ch.AccountID != accountID) {
		return Channel{}, apperr.ErrNotFound
	}
	if err != nil {
		return Channel{}, fmt.Errorf("lookup channel: %w", err)
	}
	return ch, nil
}

// ChannelPage is one page of an org's channels.
type ChannelPage struct {
	Items []Channel
	Total int
}

// ListChannels lists the channels of an org for any ACTIVE member, newest first.
func (s *Service) ListChannels(ctx context.Context, accountID, orgID string, limit, offset int, withTotal bool) (ChannelPage, error) {
	ok, err := s.members.IsMember(ctx, accountID, orgID, "")
	if err != nil {
		return ChannelPage{}, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return ChannelPage{}, apperr.ErrUnauthorized
	}
	items, err := s.channelsByOrg(ctx, s.drv, orgID, limit, offset)
	if err != nil {
		return ChannelPage{}, fmt.Errorf("list channels: %w", err)
	}
	page := ChannelPage{Items: items, Total: -1}
	if withTotal {
		if page.Total, err = s.countChannelsByOrg(ctx, s.drv, orgID); err != nil {
			return ChannelPage{}, fmt.Errorf("count channels: %w", err)
		}
	}
	return page, nil
}
