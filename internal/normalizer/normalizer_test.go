package normalizer

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNormalizeEventCallback(t *testing.T) {
	raw := `{
		"type": "event_callback",
		"event_id": "Ev123",
		"event": {
			"type": "message",
			"text": "Offer on 18 Oak Ave, see <https://docs.example.com/offer|the offer>",
			"user": "U100",
			"channel": "C200",
			"ts": "1758369600.000100",
			"thread_ts": "1758369500.000050"
		}
	}`

	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatal(err)
	}

	ev := Normalize(&env)
	if ev == nil {
		t.Fatal("expected a normalized event")
	}
	if ev.EventID != "Ev123" || ev.AuthorID != "U100" || ev.ChannelID != "C200" {
		t.Fatalf("identity mangled: %+v", ev)
	}
	if ev.Timestamp != "1758369600.000100" || ev.ThreadID != "1758369500.000050" {
		t.Fatalf("timestamps mangled: %+v", ev)
	}
	if !reflect.DeepEqual(ev.Links, []string{"https://docs.example.com/offer"}) {
		t.Fatalf("links = %v", ev.Links)
	}
	if ev.Bot {
		t.Fatal("human author flagged as bot")
	}
}

func TestNormalizeMessageAction(t *testing.T) {
	raw := `{
		"type": "message_action",
		"callback_id": "classify_message",
		"action_ts": "1758369700.000000",
		"channel": {"id": "C200"},
		"user": {"id": "U100"},
		"message": {
			"text": "schedule the inspection",
			"ts": "1758369600.000100"
		}
	}`

	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatal(err)
	}

	ev := Normalize(&env)
	if ev == nil {
		t.Fatal("expected a normalized event")
	}
	if ev.ChannelID != "C200" || ev.AuthorID != "U100" {
		t.Fatalf("identity mangled: %+v", ev)
	}
	if ev.Timestamp != "1758369600.000100" {
		t.Fatalf("message ts must win over action_ts, got %q", ev.Timestamp)
	}
	if ev.EventType != "message_action" {
		t.Fatalf("event_type = %q", ev.EventType)
	}
}

func TestNormalizeRejectsUnprocessablePayloads(t *testing.T) {
	cases := []struct {
		name string
		env  *Envelope
	}{
		{"nil envelope", nil},
		{"url_verification", &Envelope{Type: "url_verification", Challenge: "x"}},
		{"unknown type", &Envelope{Type: "app_rate_limited"}},
		{"callback without event", &Envelope{Type: "event_callback"}},
		{
			"non-message inner event",
			&Envelope{Type: "event_callback", Event: &InnerEvent{Type: "reaction_added", User: "U1", Channel: "C1", TS: "1.0"}},
		},
		{
			"missing channel",
			&Envelope{Type: "event_callback", Event: &InnerEvent{Type: "message", User: "U1", TS: "1.0"}},
		},
		{
			"missing timestamp",
			&Envelope{Type: "event_callback", Event: &InnerEvent{Type: "message", User: "U1", Channel: "C1"}},
		},
		{
			"missing author",
			&Envelope{Type: "event_callback", Event: &InnerEvent{Type: "message", Channel: "C1", TS: "1.0"}},
		},
		{"action without message", &Envelope{Type: "message_action", Channel: &IDRef{ID: "C1"}, User: &IDRef{ID: "U1"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if ev := Normalize(tc.env); ev != nil {
				t.Fatalf("expected nil, got %+v", ev)
			}
		})
	}
}

func TestNormalizeBotDetection(t *testing.T) {
	byBotID := &Envelope{Type: "event_callback", Event: &InnerEvent{
		Type: "message", BotID: "B42", Channel: "C1", TS: "1.0", Text: "automated digest",
	}}
	ev := Normalize(byBotID)
	if ev == nil || !ev.Bot {
		t.Fatal("bot_id author not flagged")
	}

	byPrefix := &Envelope{Type: "event_callback", Event: &InnerEvent{
		Type: "message", User: "B42", Channel: "C1", TS: "1.0", Text: "automated digest",
	}}
	ev = Normalize(byPrefix)
	if ev == nil || !ev.Bot {
		t.Fatal("B-prefixed author not flagged")
	}
}

func TestExtractLinks(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{"no links", "just words here", nil},
		{"bare url", "see https://example.com/a for details", []string{"https://example.com/a"}},
		{"wrapped url", "see <https://example.com/a>", []string{"https://example.com/a"}},
		{"labeled url", "see <https://example.com/a|the doc>", []string{"https://example.com/a"}},
		{"trailing punctuation", "read https://example.com/a.", []string{"https://example.com/a"}},
		{"parenthesized", "(https://example.com/a)", []string{"https://example.com/a"}},
		{
			"multiple with duplicate",
			"https://example.com/a then <https://example.com/a> then https://example.com/b",
			[]string{"https://example.com/a", "https://example.com/b"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractLinks(tc.text); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ExtractLinks(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}
