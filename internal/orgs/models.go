package orgs

import "time"

const (
	RoleOwner = "OWNER"
	RoleUser  = "USER"

	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"

	InviteInvited  = "INVITED"
	InviteAccepted = "ACCEPTED"
	InviteExpired  = "EXPIRED"
)

type Org struct {
	ID          string    `sql:"id" json:"id"`
	Name        string    `sql:"name" json:"name"`
	Timezone    string    `sql:"timezone" json:"timezone"`
	Status      string    `sql:"status" json:"status"`
	BillingPlan string    `sql:"billing_plan" json:"billing_plan"`
	CreatedAt   time.Time `sql:"created_at" json:"created_at"`
	UpdatedAt   time.Time `sql:"updated_at" json:"updated_at"`
}

// OrgUser is an account's membership in an org.
type OrgUser struct {
	ID        string    `sql:"id" json:"id"`
	OrgID     string    `sql:"org_id" json:"org_id"`
	AccountID string    `sql:"account_id" json:"account_id"`
	Role      string    `sql:"role" json:"role"`
	Status    string    `sql:"status" json:"status"`
	CreatedAt time.Time `sql:"created_at" json:"created_at"`
}

type Invite struct {
	ID        string    `sql:"id" json:"id"`
	OrgID     string    `sql:"org_id" json:"org_id"`
	Email     string    `sql:"email" json:"email"`
	Status    string    `sql:"status" json:"status"`
	ExpireAt  time.Time `sql:"expire_at" json:"expire_at"`
	CreatedAt time.Time `sql:"created_at" json:"created_at"`
}

// InviteRequest is either a NewInvite or a ResendInvite.
type InviteRequest interface {
	inviteRequest()
}

// NewInvite invites an email address into an org.
type NewInvite struct {
	OrgID string
	Email string
}

// ResendInvite re-issues the link of an existing invite.
type ResendInvite struct {
	InviteID string
}

func (NewInvite) inviteRequest()    {}
func (ResendInvite) inviteRequest() {}

// Accepted describes the membership an invite turned into.
type Accepted struct {
	OrgID     string `json:"org_id"`
	AccountID string `json:"account_id"`
}
