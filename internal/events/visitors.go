package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
	"go.uber.org/zap"

	"eventtrack-api/internal/apperr"
	"eventtrack-api/internal/db"
	"eventtrack-api/internal/metrics"
)

// IdentifyInput carries the identity fields of an identify call. Empty means not supplied.
type IdentifyInput struct {
	Email     string
	Phone     string
	ClientUID string
}

func (in IdentifyInput) normalized() IdentifyInput {
	return IdentifyInput{
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		ClientUID: strings.TrimSpace(in.ClientUID),
	}
}

func (in IdentifyInput) empty() bool {
	return in.Email == "" && in.Phone == "" && in.ClientUID == ""
}

// IdentifyOutcome names the branch an identify call took.
type IdentifyOutcome string

const (
	OutcomeCreated  IdentifyOutcome = "created"  // no visitor id carried
	OutcomeReplaced IdentifyOutcome = "replaced" // carried id unknown in this channel
	OutcomeSplit    IdentifyOutcome = "split"    // different client uid on an identified visitor
	OutcomeMerged   IdentifyOutcome = "merged"
)

// IdentifyResult is the visitor the caller should carry from now on.
type IdentifyResult struct {
	VisitorID string          `json:"visitor_id"`
	Outcome   IdentifyOutcome `json:"outcome"`
}

func (s *Service) newVisitor(kc KeyContext, typ VisitorType, in IdentifyInput) Visitor {
	now := s.now()
	return Visitor{
		ID:        s.newID(),
		ChannelID: kc.ChannelID,
		OrgID:     kc.OrgID,
		Type:      typ,
		Email:     in.Email,
		Phone:     in.Phone,
		ClientUID: in.ClientUID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// resolveSighting returns the visitor an event belongs to, creating a TEMPORARY
// visitor when none is carried or the carried id is unknown in the key's channel.
func (s *Service) resolveSighting(ctx context.Context, tx dialect.Tx, kc KeyContext, ref VisitorRef) (string, error) {
	if ref.Present() {
		_, err := s.visitorInChannel(ctx, tx, ref.ID, kc.ChannelID)
		if err == nil {
			return ref.ID, nil
		}
		if !db.IsNoRows(err) {
			return "", fmt.Errorf("lookup visitor: %w", err)
		}
		s.log.Warn("unknown visitor id replaced", zap.String("visitor_id", ref.ID), zap.String("channel_id", kc.ChannelID))
	}
	v := s.newVisitor(kc, VisitorTemporary, IdentifyInput{})
	if err := s.insertVisitor(ctx, tx, v); err != nil {
		return "", fmt.Errorf("insert visitor: %w", err)
	}
	metrics.VisitorsCreated.WithLabelValues(string(VisitorTemporary)).Inc()
	return v.ID, nil
}

// Identify attaches identity fields to the carried visitor. See IdentifyOutcome
// for the possible resolutions. The merge branch archives superseded email and
// phone values and fails with apperr.ErrTransactionAborted if the visitor was
// changed concurrently.
func (s *Service) Identify(ctx context.Context, kc KeyContext, ref VisitorRef, in IdentifyInput) (IdentifyResult, error) {
	in = in.normalized()
	if in.empty() {
		return IdentifyResult{}, apperr.ErrMissingIdentifyFields
	}

	var (
		res   IdentifyResult
		final Visitor
	)
	err := db.WithTx(ctx, s.drv, func(tx dialect.Tx) error {
		var outcome IdentifyOutcome
		if ref.Present() {
			cur, err := s.visitorInChannel(ctx, tx, ref.ID, kc.ChannelID)
			switch {
			case err == nil:
				if cur.ClientUID != "" && in.ClientUID != "" && cur.ClientUID != in.ClientUID {
					outcome = OutcomeSplit
					break
				}
				merged, history := s.merge(cur, in)
				if err := s.insertHistory(ctx, tx, history); err != nil {
					return fmt.Errorf("insert identity history: %w", err)
				}
				if err := s.updateVisitor(ctx, tx, merged, cur.Version); err != nil {
					return fmt.Errorf("update visitor: %w", err)
				}
				merged.Version = cur.Version + 1
				final = merged
				res = IdentifyResult{VisitorID: merged.ID, Outcome: OutcomeMerged}
				return nil
			case db.IsNoRows(err):
				outcome = OutcomeReplaced
			default:
				return fmt.Errorf("lookup visitor: %w", err)
			}
		} else {
			outcome = OutcomeCreated
		}

		v := s.newVisitor(kc, VisitorPermanent, in)
		if err := s.insertVisitor(ctx, tx, v); err != nil {
			return fmt.Errorf("insert visitor: %w", err)
		}
		final = v
		res = IdentifyResult{VisitorID: v.ID, Outcome: outcome}
		return nil
	})
	if err != nil {
		if errors.Is(err, errVersionConflict) {
			s.log.Warn("identify lost a concurrent update", zap.String("visitor_id", ref.ID))
		}
		metrics.IdentifyOutcomes.WithLabelValues("aborted").Inc()
		return IdentifyResult{}, err
	}

	metrics.IdentifyOutcomes.WithLabelValues(string(res.Outcome)).Inc()
	if res.Outcome != OutcomeMerged {
		metrics.VisitorsCreated.WithLabelValues(string(VisitorPermanent)).Inc()
	}
	if s.directory != nil {
		if err := s.directory.IndexVisitor(ctx, final); err != nil {
			s.log.Warn("index visitor failed", zap.String("visitor_id", final.ID), zap.Error(err))
		}
	}
	return res, nil
}

// merge promotes cur to PERMANENT and overlays the supplied fields. An existing
// non-empty email or phone that gets replaced by a different value is returned as history.
func (s *Service) merge(cur Visitor, in IdentifyInput) (Visitor, []HistoryEntry) {
	now := s.now()
	next := cur
	next.Type = VisitorPermanent
	next.UpdatedAt = now

	var history []HistoryEntry
	archive := func(kind IdentityKind, old, supplied string) {
		if old != "" && supplied != "" && old != supplied {
			history = append(history, HistoryEntry{ID: s.newID(), VisitorID: cur.ID, Kind: kind, Value: old, CreatedAt: now})
		}
	}
	archive(IdentityEmail, cur.Email, in.Email)
	archive(IdentityPhone, cur.Phone, in.Phone)

	if in.Email != "" {
		next.Email = in.Email
	}
	if in.Phone != "" {
		next.Phone = in.Phone
	}
	if in.ClientUID != "" {
		next.ClientUID = in.ClientUID
	}
	return next, history
}

// VisitorHistory lists the superseded identities of a visitor of the key's channel.
// The caller must own the channel.
func (s *Service) VisitorHistory(ctx context.Context, accountID string, kc KeyContext, visitorID string) ([]HistoryEntry, error) {
	if _, err := s.ownedChannel(ctx, accountID, kc.ChannelID); err != nil {
		return nil, err
	}
	if _, err := s.visitorInChannel(ctx, s.drv, visitorID, kc.ChannelID); err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("lookup visitor: %w", err)
	}
	items, err := s.historyOf(ctx, s.drv, visitorID)
	if err != nil {
		return nil, fmt.Errorf("list identity history: %w", err)
	}
	return items, nil
}

// SearchVisitors queries the visitor directory within the key's channel.
// Without a directory it returns an empty result.
func (s *Service) SearchVisitors(ctx context.Context, accountID string, kc KeyContext, query string, from, size int) ([]Visitor, int, error) {
	if _, err := s.ownedChannel(ctx, accountID, kc.ChannelID); err != nil {
		return nil, 0, err
	}
	if s.directory == nil {
		return []Visitor{}, 0, nil
	}
	items, total, err := s.directory.SearchVisitors(ctx, kc.ChannelID, query, from, size)
	if err != nil {
		return nil, 0, fmt.Errorf("search visitors: %w", err)
	}
	return items, total, nil
}
