package state

import (
	"context"
	"fmt"

	"tock/pkg/protocol"
)

// InsertInboxMessage appends a message to a worker's durable inbox.
func (s *Store) InsertInboxMessage(ctx context.Context, workerID string, m protocol.InboxMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inbox_messages
			(message_id, worker_id, sender_id, sender_name, subject, body, thread_id,
			 received_tick, needs_reply, message_type, channel, replied_tick)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MessageID, workerID, m.SenderID, m.SenderName, m.Subject, m.Body, m.ThreadID,
		m.ReceivedTick, m.NeedsReply, string(m.Type), string(m.Channel), m.RepliedTick)
	if err != nil {
		return fmt.Errorf("insert inbox message: %w", err)
	}
	return nil
}

// TrimInbox drops all but the most recent keep messages for a worker.
func (s *Store) TrimInbox(ctx context.Context, workerID string, keep int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM inbox_messages
		WHERE worker_id = ?
		  AND rowid_alias NOT IN (
			SELECT rowid_alias FROM inbox_messages
			WHERE worker_id = ?
			ORDER BY rowid_alias DESC LIMIT ?)`,
		workerID, workerID, keep)
	if err != nil {
		return fmt.Errorf("trim inbox: %w", err)
	}
	return nil
}

// ListInboxMessages returns a worker's inbox in arrival order.
func (s *Store) ListInboxMessages(ctx context.Context, workerID string) ([]protocol.InboxMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, sender_id, sender_name, subject, body, thread_id,
		       received_tick, needs_reply, message_type, channel, replied_tick
		FROM inbox_messages WHERE worker_id = ? ORDER BY rowid_alias`, workerID)
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	defer rows.Close()
	return scanInbox(rows)
}

// LoadInboxes returns every worker's inbox in arrival order, keyed by worker.
func (s *Store) LoadInboxes(ctx context.Context) (map[string][]protocol.InboxMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT worker_id, message_id, sender_id, sender_name, subject, body, thread_id,
		       received_tick, needs_reply, message_type, channel, replied_tick
		FROM inbox_messages ORDER BY rowid_alias`)
	if err != nil {
		return nil, fmt.Errorf("load inboxes: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]protocol.InboxMessage)
	for rows.Next() {
		var workerID, typ, ch string
		var m protocol.InboxMessage
		if err := rows.Scan(&workerID, &m.MessageID, &m.SenderID, &m.SenderName, &m.Subject,
			&m.Body, &m.ThreadID, &m.ReceivedTick, &m.NeedsReply, &typ, &ch, &m.RepliedTick); err != nil {
			return nil, fmt.Errorf("scan inbox message: %w", err)
		}
		m.Type = protocol.MessageType(typ)
		m.Channel = protocol.Channel(ch)
		out[workerID] = append(out[workerID], m)
	}
	return out, rows.Err()
}

// MarkInboxReplied flags a message answered. Unknown ids are a no-op.
func (s *Store) MarkInboxReplied(ctx context.Context, workerID, messageID string, repliedTick int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE inbox_messages SET needs_reply = 0, replied_tick = ?
		WHERE worker_id = ? AND message_id = ?`,
		repliedTick, workerID, messageID)
	if err != nil {
		return fmt.Errorf("mark replied: %w", err)
	}
	return nil
}

// DeleteInboxMessages removes messages by id. An empty id set is a no-op.
func (s *Store) DeleteInboxMessages(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := `DELETE FROM inbox_messages WHERE message_id IN (?` + repeat(",?", len(ids)-1) + `)`
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("delete inbox messages: %w", err)
	}
	return nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanInbox(rows rowScanner) ([]protocol.InboxMessage, error) {
	var out []protocol.InboxMessage
	for rows.Next() {
		var typ, ch string
		var m protocol.InboxMessage
		if err := rows.Scan(&m.MessageID, &m.SenderID, &m.SenderName, &m.Subject, &m.Body,
			&m.ThreadID, &m.ReceivedTick, &m.NeedsReply, &typ, &ch, &m.RepliedTick); err != nil {
			return nil, fmt.Errorf("scan inbox message: %w", err)
		}
		m.Type = protocol.MessageType(typ)
		m.Channel = protocol.Channel(ch)
		out = append(out, m)
	}
	return out, rows.Err()
}
