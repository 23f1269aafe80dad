package events

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventtrack-api/internal/accounts"
	"eventtrack-api/internal/config"
	"eventtrack-api/internal/db/dbtest"
	eventsvc "eventtrack-api/internal/events"
	testutil "eventtrack-api/internal/httpx/kit/testutil"
	"eventtrack-api/internal/httpx/mw"
	"eventtrack-api/internal/orgs"
)

type harness struct {
	app     *fiber.App
	owner   string
	orgID   string
	channel string
	key     string
}

// newHarness wires real services on SQLite and trusts the bearer token as the account id.
func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.HSSecret = "test-secret"
	cfg.JWT.AccessMin = 15
	cfg.JWT.RefreshDays = 7
	tokens, err := accounts.NewTokens(cfg)
	require.NoError(t, err)

	drv := dbtest.Open(t)
	ctx := dbtest.Context(t)
	accts := accounts.NewService(drv, tokens)
	orgSvc := orgs.NewService(drv, accts, tokens, nil, orgs.Options{InviteTTL: time.Hour})
	svc := eventsvc.NewService(drv, orgSvc)

	acc, err := accts.Register(ctx, accounts.RegisterInput{Email: "owner@x.com", Password: "Secretp@ssw0rd"})
	require.NoError(t, err)
	org, err := orgSvc.CreateOrg(ctx, acc.ID, "Acme", "UTC")
	require.NoError(t, err)

	h := &harness{owner: acc.ID, orgID: org.ID}
	asAccount := mw.JWT(func(tok string) (string, string, error) { return accounts.SubjectPrefix + tok, "", nil }, accounts.SubjectPrefix)
	h.app = testutil.NewApp(func(app *fiber.App) {
		app.Use(asAccount)
		Mount(app.Group("/api/v1/events"), svc, mw.DefaultVisitorCookie, Guards{
			RequireAccount: mw.RequireAccount(),
			APIKey:         mw.APIKey(svc),
			RateLimit:      mw.RateLimit(nil, 60, 1000),
		})
	})

	status, r := h.do(t, http.MethodPost, "/api/v1/events/channels", request{as: h.owner, body: CreateChannelRequest{OrgID: org.ID, Name: "web"}})
	require.Equal(t, http.StatusCreated, status)
	var created eventsvc.CreatedChannel
	require.NoError(t, json.Unmarshal(r.Data, &created))
	h.channel, h.key = created.ChannelID, created.APIKey
	return h
}

type request struct {
	as, key, visitor string
	body             any
}

type reply struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Meta   map[string]any  `json:"meta"`
	Error  struct {
		Code string `json:"code"`
	} `json:"error"`
	visitor string
}

func (h *harness) do(t *testing.T, method, path string, in request) (int, reply) {
	t.Helper()
	var b []byte
	if in.body != nil {
		b, _ = json.Marshal(in.body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	if in.as != "" {
		req.Header.Set("Authorization", "Bearer "+in.as)
	}
	if in.key != "" {
		req.Header.Set(mw.HeaderAPIKey, in.key)
	}
	if in.visitor != "" {
		req.AddCookie(&http.Cookie{Name: mw.DefaultVisitorCookie, Value: in.visitor})
	}
	res, err := h.app.Test(req)
	require.NoError(t, err)
	var r reply
	require.NoError(t, json.NewDecoder(res.Body).Decode(&r))
	for _, c := range res.Cookies() {
		if c.Name == mw.DefaultVisitorCookie {
			r.visitor = c.Value
		}
	}
	return res.StatusCode, r
}

func TestReceive_AssignsAndKeepsVisitor(t *testing.T) {
	h := newHarness(t)

	status, r := h.do(t, http.MethodPost, "/api/v1/events/receive", request{key: h.key, body: map[string]any{
		"name":       "page_view",
		"value":      1.5,
		"attributes": map[string]any{"path": "/home", "n": 3, "ok": true},
	}})
	require.Equal(t, http.StatusCreated, status)
	var out eventsvc.RecordResult
	require.NoError(t, json.Unmarshal(r.Data, &out))
	assert.NotEmpty(t, out.VisitorID)
	assert.Equal(t, out.VisitorID, r.visitor)

	status, r = h.do(t, http.MethodPost, "/api/v1/events/receive", request{key: h.key, visitor: out.VisitorID, body: map[string]any{"name": "click"}})
	require.Equal(t, http.StatusCreated, status)
	var again eventsvc.RecordResult
	require.NoError(t, json.Unmarshal(r.Data, &again))
	assert.Equal(t, out.VisitorID, again.VisitorID)
	assert.NotEqual(t, out.EventID, again.EventID)
}

func TestReceive_Rejections(t *testing.T) {
	h := newHarness(t)

	status, r := h.do(t, http.MethodPost, "/api/v1/events/receive", request{body: map[string]any{"name": "x"}})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "E_INVALID_CREDENTIAL", r.Error.Code)

	status, _ = h.do(t, http.MethodPost, "/api/v1/events/receive", request{key: "not-a-uuid", body: map[string]any{"name": "x"}})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, r = h.do(t, http.MethodPost, "/api/v1/events/receive", request{key: h.key, body: map[string]any{"name": " "}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "E_INVALID_PARAM", r.Error.Code)
}

func TestIdentify(t *testing.T) {
	h := newHarness(t)

	status, r := h.do(t, http.MethodPost, "/api/v1/events/identify", request{key: h.key, body: IdentifyRequest{}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "E_MISSING_IDENTIFY_FIELDS", r.Error.Code)

	status, r = h.do(t, http.MethodPost, "/api/v1/events/identify", request{key: h.key, body: IdentifyRequest{Email: "a@x.com"}})
	require.Equal(t, http.StatusOK, status)
	var first eventsvc.IdentifyResult
	require.NoError(t, json.Unmarshal(r.Data, &first))
	assert.Equal(t, eventsvc.OutcomeCreated, first.Outcome)
	assert.Equal(t, first.VisitorID, r.visitor)

	status, r = h.do(t, http.MethodPost, "/api/v1/events/identify", request{key: h.key, visitor: first.VisitorID, body: IdentifyRequest{Email: "b@x.com"}})
	require.Equal(t, http.StatusOK, status)
	var merged eventsvc.IdentifyResult
	require.NoError(t, json.Unmarshal(r.Data, &merged))
	assert.Equal(t, eventsvc.OutcomeMerged, merged.Outcome)
	assert.Equal(t, first.VisitorID, merged.VisitorID)

	status, r = h.do(t, http.MethodGet, "/api/v1/events/visitors/"+first.VisitorID+"/history", request{as: h.owner, key: h.key})
	require.Equal(t, http.StatusOK, status)
	var hist []eventsvc.HistoryEntry
	require.NoError(t, json.Unmarshal(r.Data, &hist))
	require.Len(t, hist, 1)
	assert.Equal(t, "a@x.com", hist[0].Value)
}

func TestChannelManagement(t *testing.T) {
	h := newHarness(t)

	status, r := h.do(t, http.MethodGet, "/api/v1/events/channel", request{as: h.owner, key: h.key})
	require.Equal(t, http.StatusOK, status)
	var info eventsvc.ChannelInfo
	require.NoError(t, json.Unmarshal(r.Data, &info))
	assert.Equal(t, "web", info.Name)

	status, _ = h.do(t, http.MethodGet, "/api/v1/events/channel", request{key: h.key})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, r = h.do(t, http.MethodGet, "/api/v1/events/channels?with_total=true&org_id="+h.orgID, request{as: h.owner})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), r.Meta["total"])

	status, r = h.do(t, http.MethodPost, "/api/v1/events/channels/"+h.channel+"/rotate-key", request{as: h.owner})
	require.Equal(t, http.StatusOK, status)
	var rotated RotateKeyResponse
	require.NoError(t, json.Unmarshal(r.Data, &rotated))
	assert.NotEqual(t, h.key, rotated.APIKey)

	status, _ = h.do(t, http.MethodPost, "/api/v1/events/receive", request{key: h.key, body: map[string]any{"name": "x"}})
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = h.do(t, http.MethodPost, "/api/v1/events/receive", request{key: rotated.APIKey, body: map[string]any{"name": "x"}})
	assert.Equal(t, http.StatusCreated, status)

	status, _ = h.do(t, http.MethodPost, "/api/v1/events/channels/"+h.channel+"/rotate-key", request{as: "someone-else"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSearchVisitors_WithoutDirectory(t *testing.T) {
	h := newHarness(t)
	status, r := h.do(t, http.MethodGet, "/api/v1/events/visitors/search?q=a@x.com", request{as: h.owner, key: h.key})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(r.Data))
}
