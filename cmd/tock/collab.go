package main

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"tock/pkg/hub"
)

// consoleEmail is the standalone mail collaborator: it mints ids locally and
// logs each delivery instead of talking to a mail service. Useful for dry
// runs and the default when no external service is configured.
type consoleEmail struct {
	log *slog.Logger
}

func (c *consoleEmail) EnsureMailbox(ctx context.Context, address string) error { return nil }

func (c *consoleEmail) SendEmail(ctx context.Context, req hub.EmailRequest) (hub.EmailReceipt, error) {
	id := uuid.NewString()
	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}
	c.log.Info("email delivered",
		"from", req.Sender, "to", req.To, "cc", req.CC, "subject", req.Subject, "thread", threadID)
	return hub.EmailReceipt{ID: id, ThreadID: threadID}, nil
}

// consoleChat is the standalone chat collaborator.
type consoleChat struct {
	log *slog.Logger
}

func (c *consoleChat) EnsureUser(ctx context.Context, handle string) error { return nil }

func (c *consoleChat) SendDirectMessage(ctx context.Context, sender, recipient, body string) (string, error) {
	c.log.Info("chat message delivered", "from", sender, "to", recipient)
	return uuid.NewString(), nil
}

func (c *consoleChat) SendRoomMessage(ctx context.Context, sender, roomSlug, body string) (string, error) {
	c.log.Info("room message delivered", "from", sender, "room", roomSlug)
	return uuid.NewString(), nil
}
