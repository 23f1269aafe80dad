package kit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"eventtrack-api/internal/apperr"
)

func do(t *testing.T, h fiber.Handler) (int, map[string]any) {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Get("/t", h)
	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	req.Header.Set("X-Request-ID", "rid-1")
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("request err: %v", err)
	}
	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return res.StatusCode, body
}

func TestOKEnvelope(t *testing.T) {
	status, body := do(t, func(c *fiber.Ctx) error { return OK(c, fiber.Map{"x": 1}) })
	if status != http.StatusOK || body["status"] != StatusSuccess || body["message"] != "success" {
		t.Fatalf("unexpected envelope: %d %v", status, body)
	}
	if body["statusCode"] != float64(200) || body["request_id"] != "rid-1" {
		t.Fatalf("unexpected envelope: %v", body)
	}
	data := body["data"].(map[string]any)
	if int(data["x"].(float64)) != 1 {
		t.Fatalf("unexpected data: %v", data)
	}
	if _, ok := body["error"]; ok {
		t.Fatalf("success must not carry error: %v", body)
	}
}

func TestListEnvelope(t *testing.T) {
	p := PagingParams{Limit: 2, Offset: 0, WithTotal: true}
	_, body := do(t, func(c *fiber.Ctx) error { return List(c, []int{1, 2}, p.Meta(2, 5)) })
	meta := body["meta"].(map[string]any)
	if meta["total"] != float64(5) || meta["has_more"] != true || meta["next_offset"] != float64(2) {
		t.Fatalf("unexpected meta: %v", meta)
	}
}

func TestErrorHandler(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
		code   string
		msg    string
	}{
		{"warning", apperr.NewWarning(http.StatusOK, "Nothing to update"), 200, StatusWarning, "W_NOOP", "Nothing to update"},
		{"credential", apperr.ErrInvalidCredential, 401, StatusFailure, "E_INVALID_CREDENTIAL", "invalid credential"},
		{"forbidden", fmt.Errorf("rotate: %w", apperr.ErrUnauthorized), 403, StatusFailure, "E_FORBIDDEN", "unauthorized"},
		{"not found", apperr.ErrNotFound, 404, StatusFailure, "E_NOT_FOUND", "not found"},
		{"invalid input", fmt.Errorf("%w: name is required", apperr.ErrInvalidInput), 400, StatusFailure, "E_INVALID_PARAM", "invalid input: name is required"},
		{"aborted", fmt.Errorf("%w: boom", apperr.ErrTransactionAborted), 500, StatusFailure, "E_TX_ABORTED", "Internal Server Error"},
		{"unknown", fmt.Errorf("db down"), 500, StatusFailure, "E_INTERNAL", "Internal Server Error"},
		{"fiber", fiber.ErrTooManyRequests, 429, StatusFailure, "E_RATE_LIMITED", "Too Many Requests"},
		{"bad request", BadRequest("limit invalid", nil), 400, StatusFailure, "E_INVALID_PARAM", "limit invalid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.err
			status, body := do(t, func(*fiber.Ctx) error { return err })
			if status != tc.status || body["status"] != tc.kind || body["message"] != tc.msg {
				t.Fatalf("got %d %v", status, body)
			}
			e := body["error"].(map[string]any)
			if e["code"] != tc.code {
				t.Fatalf("code = %v, want %s", e["code"], tc.code)
			}
		})
	}
}

func TestParsePaging(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	var got PagingParams
	app.Get("/t", func(c *fiber.Ctx) error {
		p, err := ParsePaging(c)
		if err != nil {
			return err
		}
		got = p
		return c.SendStatus(http.StatusNoContent)
	})

	res, _ := app.Test(httptest.NewRequest(http.MethodGet, "/t?limit=500&offset=3&with_total=true", nil))
	if res.StatusCode != http.StatusNoContent || got.Limit != 100 || got.Offset != 3 || !got.WithTotal {
		t.Fatalf("unexpected paging: %d %+v", res.StatusCode, got)
	}
	res, _ = app.Test(httptest.NewRequest(http.MethodGet, "/t?offset=-1", nil))
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("negative offset status = %d", res.StatusCode)
	}
}
