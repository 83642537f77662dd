package notify

import "context"

// Result reports the per-channel delivery outcome for one user. A
// channel that is disabled by preference, unconfigured, or failed all
// report false; only a confirmed send reports true.
type Result struct {
	SMSSent   bool `json:"sms_sent"`
	EmailSent bool `json:"email_sent"`
}

type SMSSender interface {
	Send(ctx context.Context, to string, body string) error
}

type EmailSender interface {
	Send(ctx context.Context, to string, subject string, textBody string, htmlBody string) error
}
