package events

import (
	"context"
	"errors"

	entsql "entgo.io/ent/dialect/sql"

	"eventtrack-api/internal/db"
)

var errVersionConflict = errors.New("visitor modified concurrently")

var (
	channelColumns = []string{"id", "org_id", "account_id", "name", "created_at"}
	visitorColumns = []string{"id", "channel_id", "org_id", "type", "email", "phone", "client_uid", "version", "created_at", "updated_at"}
)

func (s *Service) keyByID(ctx context.Context, c db.Conn, id string) (APIKey, error) {
	return db.One[APIKey](ctx, c, s.b.Select("id", "channel_id", "status", "created_at").
		From(s.b.Table("api_keys")).
		Where(entsql.EQ("id", id)).
		Limit(1))
}

func (s *Service) channelByID(ctx context.Context, c db.Conn, id string) (Channel, error) {
	return db.One[Channel](ctx, c, s.b.Select(channelColumns...).
		From(s.b.Table("channels")).
		Where(entsql.EQ("id", id)).
		Limit(1))
}

func (s *Service) channelsByOrg(ctx context.Context, c db.Conn, orgID string, limit, offset int) ([]Channel, error) {
	return db.All[Channel](ctx, c, s.b.Select(channelColumns...).
		From(s.b.Table("channels")).
		Where(entsql.EQ("org_id", orgID)).
		OrderBy(entsql.Desc("created_at"), entsql.Asc("id")).
		Limit(limit).
		Offset(offset))
}

func (s *Service) countChannelsByOrg(ctx context.Context, c db.Conn, orgID string) (int, error) {
	return db.Count(ctx, c, s.b.Select().Count().
		From(s.b.Table("channels")).
		Where(entsql.EQ("org_id", orgID)))
}

func (s *Service) insertChannel(ctx context.Context, c db.Conn, ch Channel) error {
	_, err := db.Exec(ctx, c, s.b.Insert("channels").
		Columns(channelColumns...).
		Values(ch.ID, ch.OrgID, ch.AccountID, ch.Name, ch.CreatedAt))
	return err
}

func (s *Service) insertKey(ctx context.Context, c db.Conn, k APIKey) error {
	_, err := db.Exec(ctx, c, s.b.Insert("api_keys").
		Columns("id", "channel_id", "status", "created_at").
		Values(k.ID, k.ChannelID, string(k.Status), k.CreatedAt))
	return err
}

func (s *Service) activeKeyIDs(ctx context.Context, c db.Conn, channelID string) ([]string, error) {
	return db.All[string](ctx, c, s.b.Select("id").
		From(s.b.Table("api_keys")).
		Where(entsql.And(entsql.EQ("channel_id", channelID), entsql.EQ("status", string(KeyActive)))))
}

func (s *Service) expireActiveKeys(ctx context.Context, c db.Conn, channelID string) (int64, error) {
	return db.Exec(ctx, c, s.b.Update("api_keys").
		Set("status", string(KeyExpired)).
		Where(entsql.And(entsql.EQ("channel_id", channelID), entsql.EQ("status", string(KeyActive)))))
}

// visitorInChannel only sees visitors of the given channel; ids from elsewhere read as absent.
func (s *Service) visitorInChannel(ctx context.Context, c db.Conn, id, channelID string) (Visitor, error) {
	return db.One[Visitor](ctx, c, s.b.Select(visitorColumns...).
		From(s.b.Table("visitors")).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("channel_id", channelID))).
		Limit(1))
}

func (s *Service) insertVisitor(ctx context.Context, c db.Conn, v Visitor) error {
	_, err := db.Exec(ctx, c, s.b.Insert("visitors").
		Columns(visitorColumns...).
		Values(v.ID, v.ChannelID, v.OrgID, string(v.Type), v.Email, v.Phone, v.ClientUID, v.Version, v.CreatedAt, v.UpdatedAt))
	return err
}

// updateVisitor writes the merged identity if nobody else changed the row since it was read.
func (s *Service) updateVisitor(ctx context.Context, c db.Conn, v Visitor, readVersion int64) error {
	n, err := db.Exec(ctx, c, s.b.Update("visitors").
		Set("type", string(v.Type)).
		Set("email", v.Email).
		Set("phone", v.Phone).
		Set("client_uid", v.ClientUID).
		Set("updated_at", v.UpdatedAt).
		Add("version", 1).
		Where(entsql.And(entsql.EQ("id", v.ID), entsql.EQ("version", readVersion))))
	if err != nil {
		return err
	}
	if n == 0 {
		return errVersionConflict
	}
	return nil
}

func (s *Service) insertHistory(ctx context.Context, c db.Conn, entries []HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ins := s.b.Insert("visitor_identity_history").Columns("id", "visitor_id", "kind", "value", "created_at")
	for _, h := range entries {
		ins.Values(h.ID, h.VisitorID, string(h.Kind), h.Value, h.CreatedAt)
	}
	_, err := db.Exec(ctx, c, ins)
	return err
}

func (s *Service) historyOf(ctx context.Context, c db.Conn, visitorID string) ([]HistoryEntry, error) {
	return db.All[HistoryEntry](ctx, c, s.b.Select("id", "visitor_id", "kind", "value", "created_at").
		From(s.b.Table("visitor_identity_history")).
		Where(entsql.EQ("visitor_id", visitorID)).
		OrderBy(entsql.Desc("created_at"), entsql.Asc("id")))
}

func (s *Service) insertEvent(ctx context.Context, c db.Conn, e Event) error {
	_, err := db.Exec(ctx, c, s.b.Insert("events").
		Columns("id", "name", "visitor_id", "channel_id", "user_ip", "user_agent", "browser", "os", "device", "value", "created_at").
		Values(e.ID, e.Name, e.VisitorID, e.ChannelID, e.UserIP, e.UserAgent, e.Client.Browser, e.Client.OS, e.Client.Device, e.Value, e.CreatedAt))
	return err
}

func (s *Service) insertAttributes(ctx context.Context, c db.Conn, orgID string, e Event, attrs []Attribute) error {
	if len(attrs) == 0 {
		return nil
	}
	ins := s.b.Insert("event_attributes").Columns("id", "org_id", "event_id", "visitor_id", "key", "value", "created_at")
	for _, a := range attrs {
		ins.Values(s.newID(), orgID, e.ID, e.VisitorID, a.Key, a.Value, e.CreatedAt)
	}
	_, err := db.Exec(ctx, c, ins)
	return err
}
