// Package protocol defines the shared domain types, the SQLite schema, and
// the typed errors for the tock simulation runtime. Every other package
// speaks in these types; none of them carries business logic beyond small
// derived accessors.
package protocol

// Channel identifies the delivery medium for an outbound message.
type Channel string

// Channel constants.
const (
	ChannelEmail Channel = "email"
	ChannelChat  Channel = "chat"
)

// WorkerStatus represents a temporary worker state set by a status override.
type WorkerStatus string

// Worker status constants.
const (
	StatusAvailable WorkerStatus = "available"
	StatusSickLeave WorkerStatus = "sick_leave"
	StatusMeeting   WorkerStatus = "meeting"
	StatusBlocked   WorkerStatus = "blocked"
)

// EventType classifies a simulation event.
type EventType string

// Event type constants. ConvertToAdjustments switches over these; an
// unrecognized type yields no adjustments.
const (
	EventSickLeave            EventType = "sick_leave"
	EventClientFeatureRequest EventType = "client_feature_request"
	EventBlocker              EventType = "blocker"
	EventMeeting              EventType = "meeting"
)

// MessageType classifies an inbound inbox message.
type MessageType string

// Message type constants in classification priority order: the classifier
// checks question first and falls through to report as the default.
const (
	MessageQuestion MessageType = "question"
	MessageRequest  MessageType = "request"
	MessageBlocker  MessageType = "blocker"
	MessageUpdate   MessageType = "update"
	MessageReport   MessageType = "report"
)

// Worker is a roster entry. Immutable during a run except for roster sync.
type Worker struct {
	ID           string `yaml:"id" json:"id"`
	Name         string `yaml:"name" json:"name"`
	EmailAddress string `yaml:"email" json:"email_address"`
	ChatHandle   string `yaml:"chat_handle" json:"chat_handle"`
	IsTeamLead   bool   `yaml:"team_lead" json:"is_team_lead"`
	WorkHours    string `yaml:"work_hours" json:"work_hours"` // "HH:MM-HH:MM"
}

// Project is a scheduled engagement measured in simulation weeks.
type Project struct {
	Name          string `yaml:"name" json:"name"`
	StartWeek     int    `yaml:"start_week" json:"start_week"`
	DurationWeeks int    `yaml:"duration_weeks" json:"duration_weeks"`
	ChatRoom      string `yaml:"chat_room,omitempty" json:"chat_room,omitempty"`
}

// EndWeek returns the last week (inclusive) the project is active.
func (p Project) EndWeek() int {
	return p.StartWeek + p.DurationWeeks - 1
}

// ActiveInWeek reports whether the project is active during week w.
func (p Project) ActiveInWeek(w int) bool {
	return p.StartWeek <= w && w <= p.EndWeek()
}

// SimState is the durable simulation control record.
type SimState struct {
	CurrentTick      int64 `json:"current_tick"`
	IsRunning        bool  `json:"is_running"`
	AutoTick         bool  `json:"auto_tick"`
	AutoPauseEnabled bool  `json:"auto_pause_enabled"`
}

// StatusOverride is a temporary worker state with an expiry tick. At most
// one override exists per worker.
type StatusOverride struct {
	WorkerID  string       `json:"worker_id"`
	Status    WorkerStatus `json:"status"`
	UntilTick int64        `json:"until_tick"`
	Reason    string       `json:"reason"`
}

// ActiveAt reports whether the override still suppresses the worker at tick.
func (o StatusOverride) ActiveAt(tick int64) bool {
	return o.UntilTick > tick
}

// Event is an injected or ambient simulation event. Immutable once created.
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	ProjectID string            `json:"project_id,omitempty"`
	TargetIDs []string          `json:"target_ids"`
	AtTick    int64             `json:"at_tick"`
	Payload   map[string]string `json:"payload,omitempty"`
}

// Targets reports whether the event names workerID as a target. An event
// with no targets is broadcast-style and targets nobody in particular.
func (e Event) Targets(workerID string) bool {
	for _, id := range e.TargetIDs {
		if id == workerID {
			return true
		}
	}
	return false
}

// ScheduledAction is a fully parsed outbound action due at a specific tick.
// Parsing natural-language plans into actions happens upstream; the hub
// consumes each action exactly once at its tick.
type ScheduledAction struct {
	Tick           int64    `json:"tick"`
	Channel        Channel  `json:"channel"`
	Sender         string   `json:"sender"` // worker ID
	Target         string   `json:"target"` // address, handle, or team alias
	Subject        string   `json:"subject,omitempty"`
	Body           string   `json:"body"`
	CC             []string `json:"cc,omitempty"`
	BCC            []string `json:"bcc,omitempty"`
	ReplyToEmailID string   `json:"reply_to_email_id,omitempty"`
}

// InboxMessage is a received message owned by exactly one worker's inbox.
type InboxMessage struct {
	MessageID    string      `json:"message_id"`
	SenderID     string      `json:"sender_id"`
	SenderName   string      `json:"sender_name"`
	Subject      string      `json:"subject"`
	Body         string      `json:"body"`
	ThreadID     string      `json:"thread_id,omitempty"`
	ReceivedTick int64       `json:"received_tick"`
	NeedsReply   bool        `json:"needs_reply"`
	Type         MessageType `json:"message_type"`
	Channel      Channel     `json:"channel"`
	RepliedTick  *int64      `json:"replied_tick,omitempty"`
}

// DailyCount holds one worker's per-day send counters. A key that has never
// been written counts as zero for both channels.
type DailyCount struct {
	WorkerID string `json:"worker_id"`
	DayIndex int64  `json:"day_index"`
	Email    int    `json:"email"`
	Chat     int    `json:"chat"`
}

// Plan is the result of one generation-collaborator call.
type Plan struct {
	Content    string `json:"content"`
	ModelUsed  string `json:"model_used"`
	TokensUsed int    `json:"tokens_used"`
}

// AutoPauseStatus describes whether the auto-tick loop should pause because
// the project timeline has run out.
type AutoPauseStatus struct {
	Enabled        bool   `json:"enabled"`
	ShouldPause    bool   `json:"should_pause"`
	ActiveProjects int    `json:"active_projects_count"`
	FutureProjects int    `json:"future_projects_count"`
	CurrentWeek    int    `json:"current_week"`
	Reason         string `json:"reason"`
}

// TickReport aggregates the outcome of one Advance call. Per-worker send
// failures land in counters here rather than aborting the tick.
type TickReport struct {
	TicksAdvanced  int   `json:"ticks_advanced"`
	FinalTick      int64 `json:"final_tick"`
	EmailsSent     int   `json:"emails_sent"`
	ChatsSent      int   `json:"chats_sent"`
	Rejected       int   `json:"rejected"`
	AmbientEvents  int   `json:"ambient_events"`
	SkippedWorkers int   `json:"skipped_workers"`
	RepliesMarked  int   `json:"replies_marked"`
}
