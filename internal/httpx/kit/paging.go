package kit

import (
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

// PagingParams are the offset pagination query parameters.
type PagingParams struct {
	Limit     int
	Offset    int
	WithTotal bool
}

// ParsePaging reads limit (1..100, default 20), offset and with_total.
func ParsePaging(c *fiber.Ctx) (PagingParams, error) {
	p := PagingParams{
		Limit:     lo.Clamp(c.QueryInt("limit", 20), 1, 100),
		Offset:    c.QueryInt("offset", 0),
		WithTotal: c.QueryBool("with_total", false),
	}
	if p.Offset < 0 {
		return p, BadRequest("offset must not be negative", p.Offset)
	}
	return p, nil
}

// Meta builds page metadata for count returned items. total < 0 means unknown.
func (p PagingParams) Meta(count, total int) PageMeta {
	next := p.Offset + count
	m := PageMeta{Limit: p.Limit, Offset: p.Offset, Count: count, HasMore: count == p.Limit}
	if m.HasMore {
		m.NextOffset = &next
	}
	if total >= 0 {
		m.Total = &total
		m.HasMore = next < total
	}
	return m
}
