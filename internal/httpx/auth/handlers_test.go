package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"eventtrack-api/internal/accounts"
	"eventtrack-api/internal/config"
	"eventtrack-api/internal/db/dbtest"
	testutil "eventtrack-api/internal/httpx/kit/testutil"
	"eventtrack-api/internal/httpx/mw"
)

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Algo = "HS256"
	cfg.JWT.HSSecret = "test-secret"
	cfg.JWT.Issuer = "test"
	cfg.JWT.Audience = "test"
	cfg.JWT.AccessMin = 15
	cfg.JWT.RefreshDays = 7
	return cfg
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	tokens, err := accounts.NewTokens(newTestConfig())
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	svc := accounts.NewService(dbtest.Open(t), tokens)
	parse := func(tok string) (string, string, error) {
		c, err := tokens.Parse(tok, accounts.KindAccess)
		if err != nil {
			return "", "", err
		}
		return c.Subject, c.SessionID, nil
	}
	return testutil.NewApp(func(app *fiber.App) {
		app.Use(mw.JWT(parse, accounts.SubjectPrefix))
		Mount(app.Group("/auth"), svc, tokens, mw.RequireAccount())
	})
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  struct {
		Code string `json:"code"`
	} `json:"error"`
}

func post(t *testing.T, app *fiber.App, path string, body any) (*http.Response, envelope) {
	t.Helper()
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return send(t, app, req)
}

func send(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, envelope) {
	t.Helper()
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	var env envelope
	if res.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return res, env
}

func refreshCookieOf(res *http.Response) string {
	for _, c := range res.Cookies() {
		if c.Name == refreshCookie {
			return c.Value
		}
	}
	return ""
}

func TestRegisterLoginMe(t *testing.T) {
	app := newTestApp(t)

	res, env := post(t, app, "/auth/register", RegisterRequest{Email: "Alice@Example.com", Password: "Secretp@ssw0rd", Name: "Alice"})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register status=%d code=%s", res.StatusCode, env.Error.Code)
	}
	var tok TokenResponse
	_ = json.Unmarshal(env.Data, &tok)
	if tok.AccessToken == "" || tok.TokenType != "Bearer" || tok.ExpiresIn != 900 {
		t.Fatalf("unexpected token response: %+v", tok)
	}
	if refreshCookieOf(res) == "" {
		t.Fatalf("expected refresh cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	res, env = send(t, app, req)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me status=%d", res.StatusCode)
	}
	var me AccountResponse
	_ = json.Unmarshal(env.Data, &me)
	if me.Email != "alice@example.com" || me.ID != tok.AccountID {
		t.Fatalf("unexpected account: %+v", me)
	}

	res, _ = post(t, app, "/auth/login", LoginRequest{Email: "alice@example.com", Password: "Secretp@ssw0rd"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login status=%d", res.StatusCode)
	}
}

func TestRegister_DuplicateIsConflict(t *testing.T) {
	app := newTestApp(t)
	body := RegisterRequest{Email: "bob@example.com", Password: "Secretp@ssw0rd"}
	if res, _ := post(t, app, "/auth/register", body); res.StatusCode != http.StatusCreated {
		t.Fatalf("first register status=%d", res.StatusCode)
	}
	res, env := post(t, app, "/auth/register", body)
	if res.StatusCode != http.StatusConflict || env.Error.Code != "E_CONFLICT" {
		t.Fatalf("duplicate register status=%d code=%s", res.StatusCode, env.Error.Code)
	}
}

func TestRegister_Validation(t *testing.T) {
	app := newTestApp(t)
	res, env := post(t, app, "/auth/register", RegisterRequest{Email: "bob@example.com", Password: "short"})
	if res.StatusCode != http.StatusBadRequest || env.Status != "Failure" {
		t.Fatalf("short password status=%d", res.StatusCode)
	}
	res, _ = post(t, app, "/auth/register", map[string]string{"email": "bob@example.com"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing password status=%d", res.StatusCode)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	app := newTestApp(t)
	post(t, app, "/auth/register", RegisterRequest{Email: "carol@example.com", Password: "Secretp@ssw0rd"})

	res, env := post(t, app, "/auth/login", LoginRequest{Email: "carol@example.com", Password: "wrong-password"})
	if res.StatusCode != http.StatusUnauthorized || env.Error.Code != "E_INVALID_CREDENTIAL" {
		t.Fatalf("status=%d code=%s", res.StatusCode, env.Error.Code)
	}
	res, _ = post(t, app, "/auth/login", LoginRequest{Email: "nobody@example.com", Password: "wrong-password"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unknown email status=%d", res.StatusCode)
	}
}

func TestRefreshAndLogout(t *testing.T) {
	app := newTestApp(t)
	res, _ := post(t, app, "/auth/register", RegisterRequest{Email: "dave@example.com", Password: "Secretp@ssw0rd"})
	rt := refreshCookieOf(res)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookie, Value: rt})
	res, env := send(t, app, req)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("refresh status=%d", res.StatusCode)
	}
	var tok TokenResponse
	_ = json.Unmarshal(env.Data, &tok)
	if tok.AccessToken == "" {
		t.Fatalf("expected access token")
	}

	res, _ = send(t, app, httptest.NewRequest(http.MethodPost, "/auth/refresh", nil))
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh without cookie status=%d", res.StatusCode)
	}

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookie, Value: rt})
	res, _ = send(t, app, req)
	if res.StatusCode != http.StatusNoContent || !strings.Contains(res.Header.Get("Set-Cookie"), refreshCookie+"=") {
		t.Fatalf("logout status=%d cookie=%q", res.StatusCode, res.Header.Get("Set-Cookie"))
	}

	// a refresh token captured before logout no longer mints access tokens
	req = httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookie, Value: rt})
	res, env = send(t, app, req)
	if res.StatusCode != http.StatusUnauthorized || env.Error.Code != "E_INVALID_CREDENTIAL" {
		t.Fatalf("refresh after logout status=%d code=%s", res.StatusCode, env.Error.Code)
	}

	res, _ = send(t, app, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("anonymous logout status=%d", res.StatusCode)
	}
}

func TestLogout_WithBearerEndsSession(t *testing.T) {
	app := newTestApp(t)
	res, env := post(t, app, "/auth/register", RegisterRequest{Email: "eve@example.com", Password: "Secretp@ssw0rd"})
	rt := refreshCookieOf(res)
	var tok TokenResponse
	_ = json.Unmarshal(env.Data, &tok)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	if res, _ = send(t, app, req); res.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status=%d", res.StatusCode)
	}

	req = httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookie, Value: rt})
	if res, _ = send(t, app, req); res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh after logout status=%d", res.StatusCode)
	}
}

func TestUpdateAndDisableMe(t *testing.T) {
	app := newTestApp(t)
	_, env := post(t, app, "/auth/register", RegisterRequest{Email: "fay@example.com", Password: "Secretp@ssw0rd"})
	var tok TokenResponse
	_ = json.Unmarshal(env.Data, &tok)

	req := httptest.NewRequest(http.MethodPatch, "/auth/me", strings.NewReader(`{"name":"Fay"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	res, env := send(t, app, req)
	var me AccountResponse
	_ = json.Unmarshal(env.Data, &me)
	if res.StatusCode != http.StatusOK || me.Name != "Fay" || me.Status != accounts.StatusActive {
		t.Fatalf("update status=%d account=%+v", res.StatusCode, me)
	}

	req = httptest.NewRequest(http.MethodPost, "/auth/me/disable", nil)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	if res, _ = send(t, app, req); res.StatusCode != http.StatusNoContent {
		t.Fatalf("disable status=%d", res.StatusCode)
	}

	res, env = post(t, app, "/auth/login", LoginRequest{Email: "fay@example.com", Password: "Secretp@ssw0rd"})
	if res.StatusCode != http.StatusForbidden || env.Error.Code != "E_FORBIDDEN" {
		t.Fatalf("login after disable status=%d code=%s", res.StatusCode, env.Error.Code)
	}
}

func TestMe_RequiresAuth(t *testing.T) {
	app := newTestApp(t)
	res, _ := send(t, app, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status=%d", res.StatusCode)
	}
}
