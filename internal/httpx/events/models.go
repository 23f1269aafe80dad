package events

import eventsvc "eventtrack-api/internal/events"

// CreateChannelRequest represents the channel creation body
// swagger:model CreateChannelRequest
type CreateChannelRequest struct {
	OrgID string `json:"org_id"`
	Name  string `json:"name" example:"web"`
}

// ReceiveRequest is one tracked event. Attribute values may be any JSON
// value; only strings are stored.
// swagger:model ReceiveRequest
type ReceiveRequest struct {
	Name       string                        `json:"name" example:"page_view"`
	Value      *float64                      `json:"value,omitempty" example:"9.99"`
	Attributes map[string]eventsvc.AttrValue `json:"attributes,omitempty" swaggertype:"object"`
}

// IdentifyRequest carries at least one identity field
// swagger:model IdentifyRequest
type IdentifyRequest struct {
	Email     string `json:"email,omitempty" example:"alice@example.com"`
	Phone     string `json:"phone,omitempty" example:"+4915112345678"`
	ClientUID string `json:"client_uid,omitempty" example:"crm-42"`
}

// RotateKeyResponse carries the new ACTIVE key
// swagger:model RotateKeyResponse
type RotateKeyResponse struct {
	ChannelID string `json:"channel_id"`
	APIKey    string `json:"api_key"`
}
