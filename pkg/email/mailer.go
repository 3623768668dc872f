package email

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Sender delivers a single transactional message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is one outbound email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Tag     string `json:"tag,omitempty"`
}

var addressRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidAddress reports whether s looks like a deliverable email address.
func ValidAddress(s string) bool {
	return addressRegex.MatchString(strings.TrimSpace(s))
}

// Validate checks that the message has a recipient, a subject and a body.
func (m Message) Validate() error {
	switch {
	case strings.TrimSpace(m.To) == "":
		return fmt.Errorf("%w: recipient is required", ErrInvalidMessage)
	case !ValidAddress(m.To):
		return fmt.Errorf("%w: recipient must be a valid email address", ErrInvalidMessage)
	case strings.TrimSpace(m.Subject) == "":
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	case strings.TrimSpace(m.HTML) == "":
		return fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}
	return nil
}
