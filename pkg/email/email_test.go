package email_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techizeBuilder/admin-task-manager/pkg/email"
)

func TestMessage_Validate(t *testing.T) {
	t.Parallel()

	valid := email.Message{To: "owner@acme.io", Subject: "Trial ending", HTML: "<p>hi</p>"}

	tests := []struct {
		name    string
		mutate  func(m *email.Message)
		wantErr string
	}{
		{name: "valid", mutate: func(*email.Message) {}},
		{name: "plus addressing", mutate: func(m *email.Message) { m.To = "owner+billing@sub.acme.io" }},
		{name: "missing recipient", mutate: func(m *email.Message) { m.To = "  " }, wantErr: "recipient is required"},
		{name: "bad recipient", mutate: func(m *email.Message) { m.To = "owner@" }, wantErr: "valid email address"},
		{name: "missing subject", mutate: func(m *email.Message) { m.Subject = "" }, wantErr: "subject is required"},
		{name: "missing body", mutate: func(m *email.Message) { m.HTML = " " }, wantErr: "body is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg := valid
			tt.mutate(&msg)
			err := msg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, email.ErrInvalidMessage)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDevSender(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	sender := email.NewDevSender(dir)

	err := sender.Send(context.Background(), email.Message{
		To:      "owner@acme.io",
		Subject: "Trial ending",
		HTML:    "<p>3 days left</p>",
		Tag:     "Trial Expiry",
	})
	require.NoError(t, err)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)

	for _, f := range files {
		assert.Contains(t, f.Name(), "trial_expiry")
		data, err := os.ReadFile(filepath.Join(dir, f.Name()))
		require.NoError(t, err)
		switch {
		case strings.HasSuffix(f.Name(), ".html"):
			assert.Equal(t, "<p>3 days left</p>", string(data))
		case strings.HasSuffix(f.Name(), ".json"):
			var env map[string]string
			require.NoError(t, json.Unmarshal(data, &env))
			assert.Equal(t, "owner@acme.io", env["to"])
			assert.Equal(t, "Trial Expiry", env["tag"])
		}
	}

	err = sender.Send(context.Background(), email.Message{Subject: "x", HTML: "y"})
	assert.ErrorIs(t, err, email.ErrInvalidMessage)
}

func TestNewSender(t *testing.T) {
	t.Parallel()

	s, err := email.NewSender(email.Config{DevDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &email.DevSender{}, s)

	s, err = email.NewSender(email.Config{
		PostmarkServerToken: "server-token",
		SenderEmail:         "billing@acme.io",
		SupportEmail:        "support@acme.io",
	})
	require.NoError(t, err)
	assert.NotNil(t, s)

	_, err = email.NewSender(email.Config{PostmarkServerToken: "server-token", SenderEmail: "nope"})
	assert.ErrorIs(t, err, email.ErrInvalidConfig)
}

func TestRender(t *testing.T) {
	t.Parallel()

	ok := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<h1>"+templ.EscapeString("Tom & Jerry")+"</h1>")
		return err
	})
	html, err := email.Render(context.Background(), ok)
	require.NoError(t, err)
	assert.Equal(t, "<h1>Tom &amp; Jerry</h1>", html)

	failing := templ.ComponentFunc(func(context.Context, io.Writer) error { return errors.New("boom") })
	_, err = email.Render(context.Background(), failing)
	assert.EqualError(t, err, "boom")
}
