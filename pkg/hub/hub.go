// Package hub routes scheduled actions to the messaging collaborators. It
// owns the per-tick deduplication set, the sender/recipient cooldown map,
// and the per-recipient recent-email ring used for thread continuity. All
// three are explicit bounded maps: the dedup set resets on every tick
// boundary and the cooldown map is pruned of entries that can no longer
// block anything.
package hub

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"tock/pkg/protocol"
)

// distributionPrefixes are list-style address prefixes that are rewritten
// to a concrete fallback address instead of being rejected outright.
var distributionPrefixes = []string{"team@", "all@", "everyone@", "dept@", "manager@"}

// Disposition is the outcome class of one dispatch attempt.
type Disposition int

// Dispatch outcomes.
const (
	Sent Disposition = iota
	Deduplicated
	CooledDown
	Rejected
	Failed
)

func (d Disposition) String() string {
	switch d {
	case Sent:
		return "sent"
	case Deduplicated:
		return "deduplicated"
	case CooledDown:
		return "cooled_down"
	case Rejected:
		return "rejected"
	default:
		return "failed"
	}
}

// Result describes what happened to one scheduled action.
type Result struct {
	Disposition Disposition
	Channel     protocol.Channel
	// Recipient is the resolved worker id for individual deliveries, or
	// the room alias for broadcasts. Empty when rejected before resolution.
	Recipient string
	EmailID   string
	ThreadID  string
}

// EmailRef is one entry in a recipient's recent-email ring.
type EmailRef struct {
	EmailID  string
	From     string // sender worker id
	ThreadID string
	Subject  string
}

// Config tunes the hub.
type Config struct {
	CooldownTicks   int
	RecentEmailRing int
	CCTeamLead      bool
}

func (c Config) withDefaults() Config {
	out := c
	if out.CooldownTicks <= 0 {
		out.CooldownTicks = 10
	}
	if out.RecentEmailRing <= 0 {
		out.RecentEmailRing = 10
	}
	return out
}

type pairKey struct {
	sender    string
	recipient string
}

// Hub is the communication router. All mutable state is guarded by one
// mutex; the engine already serializes tick work above this, the lock
// protects snapshot readers.
type Hub struct {
	cfg   Config
	email EmailSender
	chat  ChatSender
	log   *slog.Logger

	mu       sync.Mutex
	tick     int64
	dedup    map[string]struct{}
	cooldown map[pairKey]int64
	recent   map[string][]EmailRef

	byEmail  map[string]protocol.Worker
	byHandle map[string]protocol.Worker
	rooms    map[string]string // alias -> room slug
	ordered  []protocol.Worker
	teamLead *protocol.Worker
}

// New creates a hub bound to the messaging collaborators.
func New(email EmailSender, chat ChatSender, cfg Config, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		cfg:      cfg.withDefaults(),
		email:    email,
		chat:     chat,
		log:      log,
		dedup:    make(map[string]struct{}),
		cooldown: make(map[pairKey]int64),
		recent:   make(map[string][]EmailRef),
	}
}

// SetDirectory installs the current roster and room aliases. Called on
// start and after roster sync.
func (h *Hub) SetDirectory(roster []protocol.Worker, rooms map[string]string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byEmail = make(map[string]protocol.Worker, len(roster))
	h.byHandle = make(map[string]protocol.Worker, len(roster))
	h.ordered = append([]protocol.Worker(nil), roster...)
	h.teamLead = nil
	for i, w := range roster {
		h.byEmail[strings.ToLower(w.EmailAddress)] = w
		h.byHandle[strings.ToLower(w.ChatHandle)] = w
		if w.IsTeamLead && h.teamLead == nil {
			h.teamLead = &h.ordered[i]
		}
	}
	h.rooms = make(map[string]string, len(rooms))
	for alias, slug := range rooms {
		h.rooms[strings.ToLower(alias)] = slug
	}
}

// Provision asks the collaborators to create a mailbox and a chat user for
// everyone in the directory. Ensure calls are idempotent on the collaborator
// side, so re-provisioning after a roster reload is safe.
func (h *Hub) Provision(ctx context.Context) error {
	h.mu.Lock()
	roster := append([]protocol.Worker(nil), h.ordered...)
	h.mu.Unlock()

	for _, w := range roster {
		if w.EmailAddress != "" {
			if err := h.email.EnsureMailbox(ctx, w.EmailAddress); err != nil {
				return &protocol.CollaboratorError{Collaborator: "email", Err: err}
			}
		}
		if w.ChatHandle != "" {
			if err := h.chat.EnsureUser(ctx, w.ChatHandle); err != nil {
				return &protocol.CollaboratorError{Collaborator: "chat", Err: err}
			}
		}
	}
	return nil
}

// BeginTick resets the per-tick dedup set and prunes cooldown entries too
// old to block anything, bounding the map over long runs.
func (h *Hub) BeginTick(tick int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tick = tick
	h.dedup = make(map[string]struct{})
	horizon := tick - int64(h.cfg.CooldownTicks)
	for k, last := range h.cooldown {
		if last < horizon {
			delete(h.cooldown, k)
		}
	}
}

// CanSend reports whether the sender may contact recipientKey at tick.
// Cooldown is about contact frequency, not content: the answer ignores
// subject and body entirely. A send exactly cooldownTicks later is allowed.
func (h *Hub) CanSend(tick int64, sender, recipientKey string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.canSendLocked(tick, sender, recipientKey)
}

func (h *Hub) canSendLocked(tick int64, sender, recipientKey string) bool {
	last, ok := h.cooldown[pairKey{sender, recipientKey}]
	if !ok {
		return true
	}
	return tick-last >= int64(h.cfg.CooldownTicks)
}

// RecordIncomingEmail appends to the recipient's recent-email ring,
// evicting the oldest entry beyond the configured size.
func (h *Hub) RecordIncomingEmail(workerID string, ref EmailRef) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ring := append(h.recent[workerID], ref)
	if len(ring) > h.cfg.RecentEmailRing {
		ring = ring[len(ring)-h.cfg.RecentEmailRing:]
	}
	h.recent[workerID] = ring
}

// ThreadForReply resolves the thread id and original sender for a reply to
// an email the worker received. ok is false when the email has aged out of
// the ring or never existed.
func (h *Hub) ThreadForReply(workerID, emailID string) (threadID, from string, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ref := range h.recent[workerID] {
		if ref.EmailID == emailID {
			return ref.ThreadID, ref.From, true
		}
	}
	return "", "", false
}

// Dispatch routes one scheduled action due at the given tick. Validation
// failures and guard refusals come back as non-Sent dispositions with a nil
// error; only collaborator failures carry an error, wrapped so the caller
// can treat them as "nothing sent this step".
func (h *Hub) Dispatch(ctx context.Context, tick int64, a protocol.ScheduledAction) (Result, error) {
	switch a.Channel {
	case protocol.ChannelEmail:
		return h.dispatchEmail(ctx, tick, a)
	case protocol.ChannelChat:
		return h.dispatchChat(ctx, tick, a)
	default:
		h.log.Warn("unknown channel", "channel", string(a.Channel), "sender", a.Sender)
		return Result{Disposition: Rejected, Channel: a.Channel}, nil
	}
}

func (h *Hub) dispatchEmail(ctx context.Context, tick int64, a protocol.ScheduledAction) (Result, error) {
	h.mu.Lock()

	var (
		address  string
		threadID string
		isReply  bool
	)
	if a.ReplyToEmailID != "" {
		// Reply continuity: reuse the original thread and answer the
		// original sender rather than the literal target.
		for _, ref := range h.recent[a.Sender] {
			if ref.EmailID == a.ReplyToEmailID {
				threadID = ref.ThreadID
				if w, ok := h.workerByID(ref.From); ok {
					address = strings.ToLower(w.EmailAddress)
				}
				isReply = true
				break
			}
		}
	}
	if address == "" {
		address = strings.ToLower(strings.TrimSpace(a.Target))
	}

	recipient, known := h.byEmail[address]
	if !known {
		if rewritten, ok := h.rewriteDistributionList(address); ok {
			h.log.Info("rewrote distribution-list address", "from", address, "to", rewritten)
			address = rewritten
			recipient, known = h.byEmail[address]
		}
	}
	if !known {
		h.mu.Unlock()
		h.log.Warn("rejecting email to unknown address", "sender", a.Sender, "target", a.Target)
		return Result{Disposition: Rejected, Channel: protocol.ChannelEmail}, nil
	}

	cc := a.CC
	if !isReply && len(cc) == 0 && h.cfg.CCTeamLead && h.teamLead != nil &&
		h.teamLead.ID != a.Sender && h.teamLead.ID != recipient.ID {
		cc = []string{h.teamLead.EmailAddress}
	}

	key := dedupKey(tick, protocol.ChannelEmail, a.Sender, append([]string{address}, cc...), a.Subject, a.Body)
	if _, dup := h.dedup[key]; dup {
		h.mu.Unlock()
		return Result{Disposition: Deduplicated, Channel: protocol.ChannelEmail, Recipient: recipient.ID}, nil
	}
	if !h.canSendLocked(tick, a.Sender, recipient.ID) {
		h.mu.Unlock()
		return Result{Disposition: CooledDown, Channel: protocol.ChannelEmail, Recipient: recipient.ID}, nil
	}
	h.mu.Unlock()

	receipt, err := h.email.SendEmail(ctx, EmailRequest{
		Sender:   a.Sender,
		To:       []string{address},
		CC:       cc,
		BCC:      a.BCC,
		Subject:  a.Subject,
		Body:     a.Body,
		ThreadID: threadID,
	})
	if err != nil {
		return Result{Disposition: Failed, Channel: protocol.ChannelEmail, Recipient: recipient.ID},
			&protocol.CollaboratorError{Collaborator: "email", Err: err}
	}

	h.mu.Lock()
	h.dedup[key] = struct{}{}
	h.cooldown[pairKey{a.Sender, recipient.ID}] = tick
	ring := append(h.recent[recipient.ID], EmailRef{
		EmailID:  receipt.ID,
		From:     a.Sender,
		ThreadID: receipt.ThreadID,
		Subject:  a.Subject,
	})
	if len(ring) > h.cfg.RecentEmailRing {
		ring = ring[len(ring)-h.cfg.RecentEmailRing:]
	}
	h.recent[recipient.ID] = ring
	h.mu.Unlock()

	return Result{
		Disposition: Sent,
		Channel:     protocol.ChannelEmail,
		Recipient:   recipient.ID,
		EmailID:     receipt.ID,
		ThreadID:    receipt.ThreadID,
	}, nil
}

func (h *Hub) dispatchChat(ctx context.Context, tick int64, a protocol.ScheduledAction) (Result, error) {
	target := strings.ToLower(strings.TrimSpace(a.Target))

	h.mu.Lock()
	recipient, isDM := h.byHandle[target]
	roomSlug, isRoom := "", false
	if !isDM {
		roomSlug, isRoom = h.rooms[target]
	}
	if !isDM && !isRoom {
		h.mu.Unlock()
		h.log.Warn("rejecting chat to unresolved handle", "sender", a.Sender, "target", a.Target)
		return Result{Disposition: Rejected, Channel: protocol.ChannelChat}, nil
	}

	recipientKey := target
	if isDM {
		recipientKey = recipient.ID
	}
	key := dedupKey(tick, protocol.ChannelChat, a.Sender, []string{recipientKey}, a.Subject, a.Body)
	if _, dup := h.dedup[key]; dup {
		h.mu.Unlock()
		return Result{Disposition: Deduplicated, Channel: protocol.ChannelChat, Recipient: recipientKey}, nil
	}
	if !h.canSendLocked(tick, a.Sender, recipientKey) {
		h.mu.Unlock()
		return Result{Disposition: CooledDown, Channel: protocol.ChannelChat, Recipient: recipientKey}, nil
	}
	h.mu.Unlock()

	var err error
	if isDM {
		_, err = h.chat.SendDirectMessage(ctx, a.Sender, recipient.ChatHandle, a.Body)
	} else {
		_, err = h.chat.SendRoomMessage(ctx, a.Sender, roomSlug, a.Body)
	}
	if err != nil {
		return Result{Disposition: Failed, Channel: protocol.ChannelChat, Recipient: recipientKey},
			&protocol.CollaboratorError{Collaborator: "chat", Err: err}
	}

	h.mu.Lock()
	h.dedup[key] = struct{}{}
	h.cooldown[pairKey{a.Sender, recipientKey}] = tick
	h.mu.Unlock()

	return Result{Disposition: Sent, Channel: protocol.ChannelChat, Recipient: recipientKey}, nil
}

// rewriteDistributionList maps a list-style address to the first available
// team address. Caller holds the lock.
func (h *Hub) rewriteDistributionList(address string) (string, bool) {
	for _, prefix := range distributionPrefixes {
		if strings.HasPrefix(address, prefix) {
			if len(h.ordered) == 0 {
				return "", false
			}
			return strings.ToLower(h.ordered[0].EmailAddress), true
		}
	}
	return "", false
}

// workerByID is a linear scan; rosters are small. Caller holds the lock.
func (h *Hub) workerByID(id string) (protocol.Worker, bool) {
	for _, w := range h.ordered {
		if w.ID == id {
			return w, true
		}
	}
	return protocol.Worker{}, false
}

// CooldownEntries returns the current cooldown map size, for tests and
// status reporting.
func (h *Hub) CooldownEntries() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.cooldown)
}

// dedupKey hashes the identity of a send within a tick. Recipients are
// sorted so argument order cannot defeat deduplication.
func dedupKey(tick int64, ch protocol.Channel, sender string, recipients []string, subject, body string) string {
	sorted := append([]string(nil), recipients...)
	sort.Strings(sorted)
	sum := sha1.Sum([]byte(fmt.Sprintf("%d|%s|%s|%s|%s|%s",
		tick, ch, sender, strings.Join(sorted, ","), subject, body)))
	return hex.EncodeToString(sum[:])
}
