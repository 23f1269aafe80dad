package events

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"entgo.io/ent/dialect"
	"github.com/mssola/useragent"
	"go.uber.org/zap"

	"eventtrack-api/internal/apperr"
	"eventtrack-api/internal/db"
	"eventtrack-api/internal/metrics"
)

const maxUserAgent = 1024

// ClientInfo is the parsed form of a user agent string.
type ClientInfo struct {
	Browser string `json:"browser"`
	OS      string `json:"os"`
	Device  string `json:"device"`
}

// ParseUserAgent extracts browser, OS and device class from raw. It never fails;
// fields the parser cannot determine are left empty.
func ParseUserAgent(raw string) ClientInfo {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ClientInfo{}
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	info := ClientInfo{Browser: strings.TrimSpace(name + " " + version), OS: ua.OS()}
	switch {
	case ua.Bot():
		info.Device = "bot"
	case ua.Mobile():
		info.Device = "mobile"
	default:
		info.Device = "desktop"
	}
	return info
}

// RecordInput is one tracked occurrence as received from a client.
type RecordInput struct {
	Name       string
	UserIP     string
	UserAgent  string
	Value      *float64
	Attributes map[string]AttrValue
}

// RecordResult identifies what was written. VisitorID may differ from the
// carried reference when a new visitor had to be created.
type RecordResult struct {
	VisitorID string `json:"visitor_id"`
	EventID   string `json:"event_id"`
}

// Record stores an event and its string attributes for the visitor resolved
// from ref. Visitor creation, the event row and its attributes commit together.
func (s *Service) Record(ctx context.Context, kc KeyContext, ref VisitorRef, in RecordInput) (RecordResult, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return RecordResult{}, fmt.Errorf("%w: event name is required", apperr.ErrInvalidInput)
	}
	attrs, dropped := StringAttributes(in.Attributes)

	ev := Event{
		ID:        s.newID(),
		Name:      name,
		ChannelID: kc.ChannelID,
		UserIP:    in.UserIP,
		UserAgent: truncate(in.UserAgent, maxUserAgent),
		Client:    ParseUserAgent(in.UserAgent),
		Value:     in.Value,
		CreatedAt: s.now(),
	}
	err := db.WithTx(ctx, s.drv, func(tx dialect.Tx) error {
		visitorID, err := s.resolveSighting(ctx, tx, kc, ref)
		if err != nil {
			return err
		}
		ev.VisitorID = visitorID
		if err := s.insertEvent(ctx, tx, ev); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		if err := s.insertAttributes(ctx, tx, kc.OrgID, ev, attrs); err != nil {
			return fmt.Errorf("insert event attributes: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.Warn("event not recorded", zap.String("event", name), zap.String("channel_id", kc.ChannelID), zap.Error(err))
		return RecordResult{}, err
	}

	metrics.EventsRecorded.WithLabelValues(name).Inc()
	if dropped > 0 {
		metrics.AttributesDropped.Add(float64(dropped))
		s.log.Debug("non-string attributes dropped", zap.String("event_id", ev.ID), zap.Int("dropped", dropped))
	}
	return RecordResult{VisitorID: ev.VisitorID, EventID: ev.ID}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
