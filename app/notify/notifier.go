package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/mpolunin/eventwatch/app/event"
)

const dateLayout = "Monday, Jan 2 2006 at 3:04 PM"

// Notifier fans an event out to a user over the channels their
// preferences enable. Channels fail independently: an SMS error never
// blocks the email and vice versa. A nil sender marks the channel as
// unconfigured, in which case it is skipped without an attempt.
type Notifier struct {
	sms   SMSSender
	email EmailSender
}

func NewNotifier(sms SMSSender, email EmailSender) *Notifier {
	return &Notifier{sms: sms, email: email}
}

func (n *Notifier) Notify(ctx context.Context, user event.User, evt event.Event) Result {
	var res Result

	if user.Preferences.Notifications.SMS {
		res.SMSSent = n.sendSMS(ctx, user, evt)
	}
	if user.Preferences.Notifications.Email {
		res.EmailSent = n.sendEmail(ctx, user, evt)
	}

	return res
}

func (n *Notifier) sendSMS(ctx context.Context, user event.User, evt event.Event) bool {
	if n.sms == nil {
		slog.Debug("SMS channel not configured, skipping", "user_id", user.ID)
		return false
	}

	if err := n.sms.Send(ctx, user.Phone, smsBody(evt)); err != nil {
		slog.Warn("Failed to send SMS notification",
			"user_id", user.ID, "event_id", evt.ID, "error", err)
		return false
	}

	slog.Info("Sent SMS notification", "user_id", user.ID, "event_id", evt.ID)
	return true
}

func (n *Notifier) sendEmail(ctx context.Context, user event.User, evt event.Event) bool {
	if n.email == nil {
		slog.Debug("Email channel not configured, skipping", "user_id", user.ID)
		return false
	}

	subject := fmt.Sprintf("New event near you: %s", evt.Title)
	if err := n.email.Send(ctx, user.Email, subject, emailText(evt), emailHTML(evt)); err != nil {
		slog.Warn("Failed to send email notification",
			"user_id", user.ID, "event_id", evt.ID, "error", err)
		return false
	}

	slog.Info("Sent email notification", "user_id", user.ID, "event_id", evt.ID)
	return true
}

// locationLine prefers the street address; events scraped without one
// still carry coordinates, which beat an empty Where line.
func locationLine(evt event.Event) string {
	if evt.Address != "" {
		return evt.Address
	}
	if evt.Location.Valid() {
		return fmt.Sprintf("%.4f, %.4f", evt.Location.Longitude, evt.Location.Latitude)
	}
	return ""
}

func smsBody(evt event.Event) string {
	var b strings.Builder

	fmt.Fprintf(&b, "New event near you: %s\n", evt.Title)
	fmt.Fprintf(&b, "When: %s\n", evt.Date.Format(dateLayout))
	if where := locationLine(evt); where != "" {
		fmt.Fprintf(&b, "Where: %s\n", where)
	}
	if evt.Description != "" {
		fmt.Fprintf(&b, "%s\n", evt.Description)
	}
	if evt.SourceURL != "" {
		fmt.Fprintf(&b, "Details: %s", evt.SourceURL)
	}

	return strings.TrimRight(b.String(), "\n")
}

func emailText(evt event.Event) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n", evt.Title)
	fmt.Fprintf(&b, "When: %s\n", evt.Date.Format(dateLayout))
	if where := locationLine(evt); where != "" {
		fmt.Fprintf(&b, "Where: %s\n", where)
	}
	if evt.Price > 0 {
		fmt.Fprintf(&b, "Price: $%.2f\n", evt.Price)
	}
	if evt.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", evt.Description)
	}
	if evt.SourceURL != "" {
		fmt.Fprintf(&b, "\nDetails: %s\n", evt.SourceURL)
	}

	return b.String()
}

func emailHTML(evt event.Event) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<h2>%s</h2>", html.EscapeString(evt.Title))
	fmt.Fprintf(&b, "<p><strong>When:</strong> %s</p>", evt.Date.Format(dateLayout))
	if where := locationLine(evt); where != "" {
		fmt.Fprintf(&b, "<p><strong>Where:</strong> %s</p>", html.EscapeString(where))
	}
	if evt.Price > 0 {
		fmt.Fprintf(&b, "<p><strong>Price:</strong> $%.2f</p>", evt.Price)
	}
	if evt.Description != "" {
		fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(evt.Description))
	}
	if evt.SourceURL != "" {
		fmt.Fprintf(&b, `<p><a href="%s">Event details</a></p>`, evt.SourceURL)
	}

	return b.String()
}
