package kit

import (
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

// Envelope status values.
const (
	StatusSuccess = "Success"
	StatusWarning = "Warning"
	StatusFailure = "Failure"
)

// PageMeta contains offset pagination metadata. Total is only set when requested.
type PageMeta struct {
	Limit      int  `json:"limit"`
	Offset     int  `json:"offset"`
	Count      int  `json:"count"`
	NextOffset *int `json:"next_offset,omitempty"`
	HasMore    bool `json:"has_more"`
	Total      *int `json:"total,omitempty"`
}

// RequestID extracts request id from headers
func RequestID(c *fiber.Ctx) string {
	rid := c.GetRespHeader("X-Request-ID")
	return lo.Ternary(rid != "", rid, c.Get("X-Request-ID"))
}

func envelope(c *fiber.Ctx, status int, kind, msg string, data, meta any, errBody fiber.Map) error {
	body := fiber.Map{
		"message":    msg,
		"status":     kind,
		"statusCode": status,
		"request_id": RequestID(c),
	}
	if data != nil {
		body["data"] = data
	}
	if meta != nil {
		body["meta"] = meta
	}
	if errBody != nil {
		body["error"] = errBody
	}
	return c.Status(status).JSON(body)
}

// OK sends a 200 Success envelope.
func OK(c *fiber.Ctx, data any) error {
	return envelope(c, fiber.StatusOK, StatusSuccess, "success", data, nil, nil)
}

// Created sends a 201 Success envelope.
func Created(c *fiber.Ctx, data any) error {
	return envelope(c, fiber.StatusCreated, StatusSuccess, "success", data, nil, nil)
}

// List sends a 200 Success envelope with page metadata.
func List(c *fiber.Ctx, items any, meta PageMeta) error {
	return envelope(c, fiber.StatusOK, StatusSuccess, "success", items, meta, nil)
}
