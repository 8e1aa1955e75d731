package normalizer

import (
	"encoding/json"
	"strings"

	"intake-service/internal/models"
)

// Envelope is the union of the inbound webhook payload shapes: Events API
// callbacks, interactive actions (message_action/shortcut), and the
// url_verification handshake.
type Envelope struct {
	Type       string      `json:"type"`
	EventID    string      `json:"event_id"`
	Challenge  string      `json:"challenge"`
	Event      *InnerEvent `json:"event"`
	Message    *InnerEvent `json:"message"`
	Channel    *IDRef      `json:"channel"`
	User       *IDRef      `json:"user"`
	ActionTS   string      `json:"action_ts"`
	CallbackID string      `json:"callback_id"`
}

// InnerEvent is the nested message object inside an event callback or an
// interactive action payload.
type InnerEvent struct {
	Type     string            `json:"type"`
	Text     string            `json:"text"`
	User     string            `json:"user"`
	BotID    string            `json:"bot_id"`
	Channel  string            `json:"channel"`
	TS       string            `json:"ts"`
	ThreadTS string            `json:"thread_ts"`
	Files    []json.RawMessage `json:"files"`
}

// IDRef wraps object references that arrive as {"id": "..."}.
type IDRef struct {
	ID string `json:"id"`
}

// messageEventTypes are the inner event types the pipeline cares about.
var messageEventTypes = map[string]bool{
	"message":     true,
	"app_mention": true,
}

// Normalize extracts the canonical event tuple from an envelope. It returns
// nil when the payload is not a processable message or lacks a mandatory
// field (channel, timestamp, author).
func Normalize(env *Envelope) *models.NormalizedEvent {
	if env == nil {
		return nil
	}

	switch env.Type {
	case "event_callback":
		return normalizeEventCallback(env)
	case "message_action", "shortcut":
		return normalizeAction(env)
	}
	return nil
}

func normalizeEventCallback(env *Envelope) *models.NormalizedEvent {
	ev := env.Event
	if ev == nil || !messageEventTypes[ev.Type] {
		return nil
	}
	if ev.Channel == "" || ev.TS == "" || (ev.User == "" && ev.BotID == "") {
		return nil
	}

	author := ev.User
	if author == "" {
		author = ev.BotID
	}

	return &models.NormalizedEvent{
		Text:        ev.Text,
		AuthorID:    author,
		ChannelID:   ev.Channel,
		EventID:     env.EventID,
		EventType:   ev.Type,
		ThreadID:    ev.ThreadTS,
		Timestamp:   ev.TS,
		Links:       ExtractLinks(ev.Text),
		Attachments: ev.Files,
		Bot:         isBot(ev),
	}
}

func normalizeAction(env *Envelope) *models.NormalizedEvent {
	msg := env.Message
	if msg == nil || env.Channel == nil || env.User == nil {
		return nil
	}
	ts := msg.TS
	if ts == "" {
		ts = env.ActionTS
	}
	if env.Channel.ID == "" || ts == "" || env.User.ID == "" {
		return nil
	}

	return &models.NormalizedEvent{
		Text:        msg.Text,
		AuthorID:    env.User.ID,
		ChannelID:   env.Channel.ID,
		EventID:     env.EventID,
		EventType:   env.Type,
		ThreadID:    msg.ThreadTS,
		Timestamp:   ts,
		Links:       ExtractLinks(msg.Text),
		Attachments: msg.Files,
		Bot:         false,
	}
}

// isBot reports whether the event was authored by a bot. Bot user IDs start
// with "B"; regular user IDs start with "U" or "W".
func isBot(ev *InnerEvent) bool {
	if ev.BotID != "" {
		return true
	}
	return strings.HasPrefix(ev.User, "B")
}
