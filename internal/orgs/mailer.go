package orgs

import (
	"context"

	"go.uber.org/zap"
)

// InviteMail is the message sent to an invited address.
type InviteMail struct {
	To      string `json:"to"`
	OrgID   string `json:"org_id"`
	OrgName string `json:"org_name"`
	Link    string `json:"link"`
}

// Mailer delivers invite mails.
type Mailer interface {
	SendInvite(ctx context.Context, m InviteMail) error
}

// LogMailer only logs the invite. Used when no mail queue is configured.
type LogMailer struct {
	Log *zap.Logger
}

func (l LogMailer) SendInvite(_ context.Context, m InviteMail) error {
	l.Log.Info("invite mail", zap.String("to", m.To), zap.String("org_id", m.OrgID), zap.String("link", m.Link))
	return nil
}
