package events

import "time"

// KeyStatus is the lifecycle state of an API key.
type KeyStatus string

const (
	KeyActive  KeyStatus = "ACTIVE"
	KeyExpired KeyStatus = "EXPIRED"
)

// VisitorType tells whether a visitor has ever been identified.
type VisitorType string

const (
	VisitorTemporary VisitorType = "TEMPORARY"
	VisitorPermanent VisitorType = "PERMANENT"
)

// IdentityKind names the identity field archived in the history.
type IdentityKind string

const (
	IdentityEmail IdentityKind = "email"
	IdentityPhone IdentityKind = "phone"
)

// RoleOwner is the membership role required to rotate a channel key.
const RoleOwner = "OWNER"

// KeyContext is what a validated API key resolves to. It travels explicitly
// from the HTTP layer into every ingestion call.
type KeyContext struct {
	KeyID     string
	ChannelID string
	OrgID     string
}

// VisitorRef carries the visitor id presented by the client, if any.
type VisitorRef struct {
	ID string
}

// Present reports whether the client carried a visitor id.
func (r VisitorRef) Present() bool { return r.ID != "" }

type Channel struct {
	ID        string    `sql:"id" json:"id"`
	OrgID     string    `sql:"org_id" json:"org_id"`
	AccountID string    `sql:"account_id" json:"account_id"`
	Name      string    `sql:"name" json:"name"`
	CreatedAt time.Time `sql:"created_at" json:"created_at"`
}

// ChannelInfo is the public view of a channel.
type ChannelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type APIKey struct {
	ID        string    `sql:"id"`
	ChannelID string    `sql:"channel_id"`
	Status    KeyStatus `sql:"status"`
	CreatedAt time.Time `sql:"created_at"`
}

type Visitor struct {
	ID        string      `sql:"id" json:"id"`
	ChannelID string      `sql:"channel_id" json:"channel_id"`
	OrgID     string      `sql:"org_id" json:"org_id"`
	Type      VisitorType `sql:"type" json:"type"`
	Email     string      `sql:"email" json:"email,omitempty"`
	Phone     string      `sql:"phone" json:"phone,omitempty"`
	ClientUID string      `sql:"client_uid" json:"client_uid,omitempty"`
	Version   int64       `sql:"version" json:"-"`
	CreatedAt time.Time   `sql:"created_at" json:"created_at"`
	UpdatedAt time.Time   `sql:"updated_at" json:"updated_at"`
}

// HistoryEntry is a superseded email or phone of a visitor.
type HistoryEntry struct {
	ID        string       `sql:"id" json:"id"`
	VisitorID string       `sql:"visitor_id" json:"visitor_id"`
	Kind      IdentityKind `sql:"kind" json:"kind"`
	Value     string       `sql:"value" json:"value"`
	CreatedAt time.Time    `sql:"created_at" json:"created_at"`
}

type Event struct {
	ID        string
	Name      string
	VisitorID string
	ChannelID string
	UserIP    string
	UserAgent string
	Client    ClientInfo
	Value     *float64
	CreatedAt time.Time
}

// Attribute is a stored key/value pair attached to an event.
type Attribute struct {
	Key   string
	Value string
}
