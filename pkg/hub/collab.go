package hub

import "context"

// EmailRequest is one outbound email handed to the mail collaborator.
type EmailRequest struct {
	Sender   string
	To       []string
	CC       []string
	BCC      []string
	Subject  string
	Body     string
	ThreadID string
}

// EmailReceipt identifies a delivered email.
type EmailReceipt struct {
	ID       string
	ThreadID string
}

// EmailSender is the mail collaborator. Implemented elsewhere; mocked in
// tests.
type EmailSender interface {
	EnsureMailbox(ctx context.Context, address string) error
	SendEmail(ctx context.Context, req EmailRequest) (EmailReceipt, error)
}

// ChatSender is the chat collaborator.
type ChatSender interface {
	EnsureUser(ctx context.Context, handle string) error
	SendDirectMessage(ctx context.Context, sender, recipient, body string) (string, error)
	SendRoomMessage(ctx context.Context, sender, roomSlug, body string) (string, error)
}
