package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onesoftuk/bugflow/internal/models"
	"github.com/onesoftuk/bugflow/internal/repository/memory"
	"github.com/onesoftuk/bugflow/internal/workflow"
)

type fakeSender struct {
	mu    sync.Mutex
	err   error
	sends [][]string
}

func (s *fakeSender) Send(_ *models.AppSettings, to []string, _, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = append(s.sends, to)
	return s.err
}

func (s *fakeSender) sent() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sends
}

func smtpSettings() models.AppSettings {
	return models.AppSettings{
		SMTPEnabled:     true,
		SMTPHost:        "smtp.example.com",
		SMTPPort:        587,
		SMTPFrom:        "bugflow@example.com",
		AdminRecipients: []string{"ops@example.com"},
	}
}

func sampleEvent() workflow.Event {
	return workflow.Event{
		Kind: workflow.EventStatusChanged,
		Ticket: models.Ticket{
			ID:    "t-1",
			Title: "Crash when saving a draft",
			App:   "webmail",
		},
		Actor:          models.Actor{Name: "Ada Admin"},
		OldValue:       "open",
		NewValue:       "in_progress",
		SubmitterName:  "Sam Submitter",
		SubmitterEmail: "sam@example.com",
	}
}

func TestDispatcherSendsAndLogs(t *testing.T) {
	t.Parallel()

	logs := memory.NewEmailLogStore()
	sender := &fakeSender{}
	d := NewDispatcher(memory.NewSettingsStore(smtpSettings()), logs, sender, zerolog.Nop())

	d.Notify(sampleEvent())
	d.Wait()

	sends := sender.sent()
	require.Len(t, sends, 1)
	assert.ElementsMatch(t, []string{"ops@example.com", "sam@example.com"}, sends[0])

	entries, _, err := logs.List(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.EmailSent, entries[0].Status)
	assert.NotNil(t, entries[0].SentAt)
	assert.Contains(t, entries[0].Subject, "Crash when saving a draft")
}

func TestDispatcherRecordsFailure(t *testing.T) {
	t.Parallel()

	logs := memory.NewEmailLogStore()
	sender := &fakeSender{err: errors.New("connection refused")}
	d := NewDispatcher(memory.NewSettingsStore(smtpSettings()), logs, sender, zerolog.Nop())

	d.Notify(sampleEvent())
	d.Wait()

	entries, _, err := logs.List(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.EmailFailed, entries[0].Status)
	assert.Equal(t, "connection refused", entries[0].Error)
	assert.Nil(t, entries[0].SentAt)
}

func TestDispatcherSkipsWhenDisabled(t *testing.T) {
	t.Parallel()

	s := smtpSettings()
	s.SMTPEnabled = false
	logs := memory.NewEmailLogStore()
	sender := &fakeSender{}
	d := NewDispatcher(memory.NewSettingsStore(s), logs, sender, zerolog.Nop())

	d.Notify(sampleEvent())
	d.Wait()

	assert.Empty(t, sender.sent())
	entries, _, err := logs.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, entries, "a skipped notification leaves no log row")
}

func TestDispatcherSuppressesSubmitter(t *testing.T) {
	t.Parallel()

	logs := memory.NewEmailLogStore()
	sender := &fakeSender{}
	d := NewDispatcher(memory.NewSettingsStore(smtpSettings()), logs, sender, zerolog.Nop())

	ev := sampleEvent()
	ev.SuppressSubmitter = true
	d.Notify(ev)
	d.Wait()

	sends := sender.sent()
	require.Len(t, sends, 1)
	assert.Equal(t, []string{"ops@example.com"}, sends[0])
}

func TestDispatcherDedupsRecipients(t *testing.T) {
	t.Parallel()

	s := smtpSettings()
	// The submitter is also on the admin list.
	s.AdminRecipients = []string{"ops@example.com", "sam@example.com", "ops@example.com"}
	logs := memory.NewEmailLogStore()
	sender := &fakeSender{}
	d := NewDispatcher(memory.NewSettingsStore(s), logs, sender, zerolog.Nop())

	d.Notify(sampleEvent())
	d.Wait()

	sends := sender.sent()
	require.Len(t, sends, 1)
	assert.Equal(t, []string{"ops@example.com", "sam@example.com"}, sends[0])
}

func TestDispatcherSkipsWithoutRecipients(t *testing.T) {
	t.Parallel()

	s := smtpSettings()
	s.AdminRecipients = nil
	logs := memory.NewEmailLogStore()
	sender := &fakeSender{}
	d := NewDispatcher(memory.NewSettingsStore(s), logs, sender, zerolog.Nop())

	ev := sampleEvent()
	ev.SubmitterEmail = ""
	d.Notify(ev)
	d.Wait()

	assert.Empty(t, sender.sent())
}

func TestRenderSubjects(t *testing.T) {
	t.Parallel()

	ev := sampleEvent()
	subject, htmlBody, textBody := render(ev)
	assert.Equal(t, "[webmail] Ticket status: Crash when saving a draft", subject)
	assert.Contains(t, textBody, "from open to in_progress")
	assert.Contains(t, htmlBody, "t-1")

	ev.Kind = workflow.EventCreated
	subject, _, textBody = render(ev)
	assert.Contains(t, subject, "New ticket")
	assert.Contains(t, textBody, "Sam Submitter")

	ev.Kind = workflow.EventNoteAdded
	ev.Comment = "Looking into it."
	subject, _, textBody = render(ev)
	assert.Contains(t, subject, "New comment")
	assert.Contains(t, textBody, "Looking into it.")
}
