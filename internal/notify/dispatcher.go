// Package notify maps workflow events to outbound email and records every
// attempt in the email log. Delivery is best effort: the triggering mutation
// has already committed and never waits on SMTP.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/onesoftuk/bugflow/internal/models"
	"github.com/onesoftuk/bugflow/internal/repository"
	"github.com/onesoftuk/bugflow/internal/workflow"
)

// Sender delivers one message with the given SMTP settings.
type Sender interface {
	Send(s *models.AppSettings, to []string, subject, htmlBody, textBody string) error
}

type Dispatcher struct {
	settings repository.SettingsStore
	logs     repository.EmailLogStore
	sender   Sender
	log      zerolog.Logger

	// wg lets tests and shutdown wait for in-flight sends.
	wg sync.WaitGroup
}

func NewDispatcher(settings repository.SettingsStore, logs repository.EmailLogStore, sender Sender, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{settings: settings, logs: logs, sender: sender, log: log}
}

// Notify implements workflow.Notifier. The send runs detached from the
// request; the email log is the only durable record of the outcome.
func (d *Dispatcher) Notify(ev workflow.Event) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.dispatch(context.Background(), ev)
	}()
}

// Wait blocks until every in-flight send has reached a terminal state.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) dispatch(ctx context.Context, ev workflow.Event) {
	settings, err := d.settings.Get(ctx)
	if err != nil {
		d.log.Error().Err(err).Str("event", string(ev.Kind)).Msg("settings read failed, notification dropped")
		return
	}
	if !settings.SMTPEnabled {
		d.log.Debug().Str("event", string(ev.Kind)).Msg("smtp disabled, notification skipped")
		return
	}

	recipients := d.recipients(settings, ev)
	if len(recipients) == 0 {
		d.log.Debug().Str("event", string(ev.Kind)).Msg("no recipients, notification skipped")
		return
	}

	subject, htmlBody, textBody := render(ev)
	d.Deliver(ctx, settings, recipients, subject, htmlBody, textBody)
}

// Deliver writes the queued log row, attempts the send, and records the
// terminal state. Shared with the admin test-email endpoint.
func (d *Dispatcher) Deliver(ctx context.Context, settings *models.AppSettings, to []string, subject, htmlBody, textBody string) {
	entry := &models.EmailLog{
		ID:        uuid.NewString(),
		To:        to,
		Subject:   subject,
		Body:      textBody,
		Status:    models.EmailQueued,
		CreatedAt: time.Now(),
	}
	if err := d.logs.Create(ctx, entry); err != nil {
		d.log.Error().Err(err).Msg("email log write failed")
		return
	}

	if err := d.sender.Send(settings, to, subject, htmlBody, textBody); err != nil {
		d.log.Warn().Err(err).Str("subject", subject).Msg("email delivery failed")
		if lerr := d.logs.MarkFailed(ctx, entry.ID, err.Error()); lerr != nil {
			d.log.Error().Err(lerr).Msg("email log update failed")
		}
		return
	}
	if err := d.logs.MarkSent(ctx, entry.ID, time.Now()); err != nil {
		d.log.Error().Err(err).Msg("email log update failed")
	}
}

// recipients builds the deduplicated address list: admin recipients plus the
// submitter, minus a suppressed self-notification.
func (d *Dispatcher) recipients(settings *models.AppSettings, ev workflow.Event) []string {
	seen := map[string]bool{}
	var out []string
	add := func(addr string) {
		if addr != "" && !seen[addr] {
			seen[addr] = true
			out = append(out, addr)
		}
	}
	for _, a := range settings.AdminRecipients {
		add(a)
	}
	if !ev.SuppressSubmitter {
		add(ev.SubmitterEmail)
	}
	return out
}

func render(ev workflow.Event) (subject, htmlBody, textBody string) {
	t := ev.Ticket
	switch ev.Kind {
	case workflow.EventCreated:
		subject = fmt.Sprintf("[%s] New ticket: %s", t.App, t.Title)
		textBody = fmt.Sprintf("%s opened a new %s ticket.\n\n%s\n\nPriority: %s", ev.SubmitterName, t.Type, t.Description, t.Priority)
	case workflow.EventStatusChanged:
		subject = fmt.Sprintf("[%s] Ticket status: %s", t.App, t.Title)
		textBody = fmt.Sprintf("%s moved the ticket from %s to %s.", ev.Actor.Name, ev.OldValue, ev.NewValue)
	case workflow.EventAssigned:
		subject = fmt.Sprintf("[%s] Ticket assigned: %s", t.App, t.Title)
		textBody = fmt.Sprintf("Assignment changed from %s to %s.", ev.OldValue, ev.NewValue)
	case workflow.EventNoteAdded:
		subject = fmt.Sprintf("[%s] New comment: %s", t.App, t.Title)
		textBody = fmt.Sprintf("%s commented:\n\n%s", ev.Actor.Name, ev.Comment)
	default:
		subject = fmt.Sprintf("[%s] Ticket update: %s", t.App, t.Title)
		textBody = "The ticket was updated."
	}
	htmlBody = fmt.Sprintf("<p>%s</p><p><strong>Ticket:</strong> %s (#%s)</p>", textBody, t.Title, t.ID)
	return subject, htmlBody, textBody
}
