package orgs

// CreateOrgRequest represents the org creation body
// swagger:model CreateOrgRequest
type CreateOrgRequest struct {
	Name     string `json:"name" example:"Acme"`
	Timezone string `json:"timezone" example:"Europe/Berlin"`
}

// UpdateOrgRequest represents the org update body
// swagger:model UpdateOrgRequest
type UpdateOrgRequest struct {
	Name string `json:"name" example:"Acme Inc"`
}

// TransferOwnershipRequest names the account that becomes owner
// swagger:model TransferOwnershipRequest
type TransferOwnershipRequest struct {
	AccountID string `json:"account_id"`
}

// InviteRequest represents the invite body
// swagger:model InviteRequest
type InviteRequest struct {
	OrgID string `json:"org_id"`
	Email string `json:"email" example:"bob@example.com"`
}
