// Package esx keeps a searchable Elasticsearch copy of identified visitors.
package esx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	es8 "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/samber/lo"

	"eventtrack-api/internal/config"
	"eventtrack-api/internal/events"
)

type Client = es8.Client

// Open builds a client when ES_ADDRS is set. A nil client means search is disabled.
func Open(cfg *config.Config) (*Client, func(), error) {
	if strings.TrimSpace(cfg.ES.Addrs) == "" {
		return nil, func() {}, nil
	}
	addrs := lo.FilterMap(strings.Split(cfg.ES.Addrs, ","), func(s string, _ int) (string, bool) {
		t := strings.TrimSpace(s)
		return t, t != ""
	})
	es, err := es8.NewClient(es8.Config{Addresses: addrs, Username: cfg.ES.Username, Password: cfg.ES.Password})
	if err != nil {
		return nil, func() {}, err
	}
	return es, func() {}, nil
}

const visitorMapping = `{
  "mappings": {
    "properties": {
      "channel_id": {"type": "keyword"},
      "org_id":     {"type": "keyword"},
      "type":       {"type": "keyword"},
      "email":      {"type": "keyword"},
      "phone":      {"type": "keyword"},
      "client_uid": {"type": "keyword"},
      "created_at": {"type": "date"},
      "updated_at": {"type": "date"}
    }
  }
}`

// VisitorDoc is the indexed form of a visitor.
type VisitorDoc struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	OrgID     string    `json:"org_id"`
	Type      string    `json:"type"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	ClientUID string    `json:"client_uid,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toDoc(v events.Visitor) VisitorDoc {
	return VisitorDoc{
		ID: v.ID, ChannelID: v.ChannelID, OrgID: v.OrgID, Type: string(v.Type),
		Email: v.Email, Phone: v.Phone, ClientUID: v.ClientUID,
		CreatedAt: v.CreatedAt, UpdatedAt: v.UpdatedAt,
	}
}

func (d VisitorDoc) visitor() events.Visitor {
	return events.Visitor{
		ID: d.ID, ChannelID: d.ChannelID, OrgID: d.OrgID, Type: events.VisitorType(d.Type),
		Email: d.Email, Phone: d.Phone, ClientUID: d.ClientUID,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

type searchHit struct {
	Source VisitorDoc `json:"_source"`
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

// VisitorDirectory implements events.VisitorDirectory on one index.
type VisitorDirectory struct {
	es    *Client
	index string
}

var _ events.VisitorDirectory = (*VisitorDirectory)(nil)

func NewVisitorDirectory(es *Client, index string) *VisitorDirectory {
	return &VisitorDirectory{es: es, index: lo.Ternary(index != "", index, "visitors")}
}

// EnsureIndex creates the index with its keyword mapping if it does not exist.
func (d *VisitorDirectory) EnsureIndex(ctx context.Context) error {
	res, err := d.es.Indices.Exists([]string{d.index}, d.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return err
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	res, err = d.es.Indices.Create(d.index,
		d.es.Indices.Create.WithContext(ctx),
		d.es.Indices.Create.WithBody(strings.NewReader(visitorMapping)))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return esError(res)
	}
	return nil
}

func (d *VisitorDirectory) IndexVisitor(ctx context.Context, v events.Visitor) error {
	b, err := json.Marshal(toDoc(v))
	if err != nil {
		return err
	}
	res, err := d.es.Index(d.index, bytes.NewReader(b),
		d.es.Index.WithContext(ctx),
		d.es.Index.WithDocumentID(v.ID))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return esError(res)
	}
	return nil
}

// SearchVisitors matches query exactly against email, phone or client uid,
// or as an email prefix, within one channel. An empty query lists the channel.
func (d *VisitorDirectory) SearchVisitors(ctx context.Context, channelID, query string, from, size int) ([]events.Visitor, int, error) {
	boolQ := map[string]any{
		"filter": []any{map[string]any{"term": map[string]any{"channel_id": channelID}}},
	}
	if q := strings.TrimSpace(query); q != "" {
		boolQ["should"] = []any{
			map[string]any{"term": map[string]any{"email": q}},
			map[string]any{"term": map[string]any{"phone": q}},
			map[string]any{"term": map[string]any{"client_uid": q}},
			map[string]any{"prefix": map[string]any{"email": q}},
		}
		boolQ["minimum_should_match"] = 1
	}
	body := map[string]any{
		"query": map[string]any{"bool": boolQ},
		"sort":  []any{map[string]any{"updated_at": "desc"}},
	}
	b, _ := json.Marshal(body)

	res, err := d.es.Search(
		d.es.Search.WithContext(ctx),
		d.es.Search.WithIndex(d.index),
		d.es.Search.WithBody(bytes.NewReader(b)),
		d.es.Search.WithFrom(from),
		d.es.Search.WithSize(size),
		d.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, esError(res)
	}

	var out searchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, 0, fmt.Errorf("decode search response: %w", err)
	}
	items := lo.Map(out.Hits.Hits, func(h searchHit, _ int) events.Visitor { return h.Source.visitor() })
	return items, out.Hits.Total.Value, nil
}

func esError(res *esapi.Response) error { return fmt.Errorf("es error: %s", res.String()) }
