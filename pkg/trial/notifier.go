package trial

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/a-h/templ"
	"github.com/google/uuid"

	"github.com/techizeBuilder/admin-task-manager/pkg/email"
	"github.com/techizeBuilder/admin-task-manager/pkg/logger"
)

// Notifier delivers one expiry notice.
type Notifier interface {
	Notify(ctx context.Context, notice Notice) error
}

// MailNotifier sends expiry notices by email.
type MailNotifier struct {
	sender     email.Sender
	upgradeURL string
}

// NewMailNotifier creates a MailNotifier. upgradeURL is linked from the
// message body.
func NewMailNotifier(sender email.Sender, upgradeURL string) *MailNotifier {
	if sender == nil {
		panic("trial: email sender is required")
	}
	return &MailNotifier{sender: sender, upgradeURL: upgradeURL}
}

// Notify renders the notice and sends it to the organization's contact email.
func (n *MailNotifier) Notify(ctx context.Context, notice Notice) error {
	if notice.ContactEmail == "" {
		return ErrNoRecipient
	}
	body, err := email.Render(ctx, noticeBody(notice, n.upgradeURL))
	if err != nil {
		return fmt.Errorf("render notice: %w", err)
	}
	return n.sender.Send(ctx, email.Message{
		To:      notice.ContactEmail,
		Subject: noticeSubject(notice),
		HTML:    body,
		Tag:     "trial-expiry-" + string(notice.Urgency),
	})
}

func noticeSubject(n Notice) string {
	switch {
	case n.DaysRemaining <= 0:
		return "Your trial ends today"
	case n.DaysRemaining == 1:
		return "Your trial ends tomorrow"
	default:
		return fmt.Sprintf("Your trial ends in %d days", n.DaysRemaining)
	}
}

func noticeBody(n Notice, upgradeURL string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<html><body><h1>%s</h1><p>The free trial of <strong>%s</strong> ends on %s.</p>`+
				`<p>Choose a plan to keep your tasks, forms and reports.</p>`+
				`<p><a href="%s">Upgrade now</a></p></body></html>`,
			templ.EscapeString(noticeSubject(n)),
			templ.EscapeString(n.OrganizationName),
			templ.EscapeString(n.TrialEndDate.Format("January 2, 2006")),
			templ.EscapeString(upgradeURL),
		)
		return err
	})
}

// DeliveryFailure records a notice that could not be delivered.
type DeliveryFailure struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	Error          string    `json:"error"`
}

// DeliveryReport summarizes a Deliver run.
type DeliveryReport struct {
	Sent    int               `json:"sent"`
	Skipped int               `json:"skipped"`
	Failed  []DeliveryFailure `json:"failed"`
}

// Deliver sends every notice through n. A failing notice is recorded and the
// rest are still attempted. Notices without a contact email are skipped.
func Deliver(ctx context.Context, n Notifier, notices []Notice, log *slog.Logger) *DeliveryReport {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	report := &DeliveryReport{Failed: []DeliveryFailure{}}
	for _, notice := range notices {
		if ctx.Err() != nil {
			break
		}
		if notice.ContactEmail == "" {
			report.Skipped++
			continue
		}
		if err := n.Notify(ctx, notice); err != nil {
			report.Failed = append(report.Failed, DeliveryFailure{OrganizationID: notice.OrganizationID, Error: err.Error()})
			log.WarnContext(ctx, "expiry notice not delivered",
				logger.Component("trial"),
				logger.OrganizationID(notice.OrganizationID),
				logger.Error(err),
			)
			continue
		}
		report.Sent++
	}
	return report
}
