// Package email sends transactional mail through Postmark, or writes it to
// disk during development.
//
//	sender, err := email.NewSender(cfg)
//	body, err := email.Render(ctx, component)
//	err = sender.Send(ctx, email.Message{To: to, Subject: "Your trial ends soon", HTML: body})
//
// Every Sender validates the Message before delivery and reports
// ErrInvalidMessage or ErrSendFailed, both matchable with errors.Is.
package email
