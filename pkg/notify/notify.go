// Package notify sends the low-oil warning email. The delivery mechanism is
// behind the Sender interface so the send/no-send decision stays testable.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/wneessen/go-mail"

	"github.com/tanksense/tanksense/pkg/log"
)

// Subject is the fixed subject line of the warning email.
const Subject = "Low oil warning from SENSiT"

const smtpsPort = 465

// Sender delivers a notification message.
type Sender interface {
	Send(ctx context.Context, subject, body string) error
}

// SMTPSender delivers mail over SMTPS. The account owner notifies
// themselves: the message is sent from and to the configured address.
type SMTPSender struct {
	Server   string
	Username string
	Password string
	Email    string
}

// Send delivers one plain-text message.
func (s *SMTPSender) Send(ctx context.Context, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat("SENSiT Notifier", s.Email); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(s.Email); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(s.Server,
		mail.WithPort(smtpsPort),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.Username),
		mail.WithPassword(s.Password),
	)
	if err != nil {
		return fmt.Errorf("smtp client setup failed: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// Notifier decides whether a forecast warrants an email and sends it.
type Notifier struct {
	Sender Sender
	// NoticeDays is the warning horizon: notify only when the projected
	// days to empty fall below it.
	NoticeDays int
}

// Notify sends a low-oil warning when daysToEmpty is below the notice
// horizon. It reports whether a message was sent.
func (n *Notifier) Notify(ctx context.Context, levelPercent float64, levelLitres, daysToEmpty int) (bool, error) {
	if daysToEmpty >= n.NoticeDays {
		return false, nil
	}
	body := Message(levelPercent, levelLitres, daysToEmpty)
	if err := n.Sender.Send(ctx, Subject, body); err != nil {
		return false, err
	}
	log.Ctx(ctx).DebugContext(ctx, "notification sent", slog.Int("daysToEmpty", daysToEmpty))
	return true, nil
}

// Message formats the warning body.
func Message(levelPercent float64, levelLitres, daysToEmpty int) string {
	return "SENSiT is reporting:\n" +
		fmt.Sprintf("    * level at %s%%\n", strconv.FormatFloat(levelPercent, 'f', -1, 64)) +
		fmt.Sprintf("    * level at %d litres\n\n", levelLitres) +
		fmt.Sprintf("Forecasting empty in %d days\n", daysToEmpty)
}
