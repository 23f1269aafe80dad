package mqx

import (
	"context"
	"encoding/json"
	"fmt"

	"eventtrack-api/internal/orgs"
)

// RouteInviteMail is the routing key consumed by the mail worker.
const RouteInviteMail = "mail.invite"

// MailQueue hands invite mails to the mail worker through the broker.
type MailQueue struct {
	pub Publisher
}

var _ orgs.Mailer = (*MailQueue)(nil)

func NewMailQueue(pub Publisher) *MailQueue { return &MailQueue{pub: pub} }

func (q *MailQueue) SendInvite(ctx context.Context, m orgs.InviteMail) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode invite mail: %w", err)
	}
	if err := q.pub.Publish(ctx, RouteInviteMail, body); err != nil {
		return fmt.Errorf("publish invite mail: %w", err)
	}
	return nil
}
