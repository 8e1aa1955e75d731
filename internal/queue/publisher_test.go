package queue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"intake-service/internal/models"
)

func sampleRecord() *models.Classification {
	key := models.TaskSaleClosingTasks
	return &models.Classification{
		SchemaVersion: 1,
		MessageType:   models.MessageTypeStray,
		TaskKey:       &key,
		Confidence:    0.92,
	}
}

func sampleEvent() *models.NormalizedEvent {
	return &models.NormalizedEvent{
		Text:      "offer on 18 Oak Ave",
		AuthorID:  "U100",
		ChannelID: "C200",
		EventID:   "Ev300",
		Timestamp: "1758369600.000100",
		Links:     []string{"https://example.com/doc"},
	}
}

func TestPublishSendsEnvelopeAndAttributes(t *testing.T) {
	var gotBody Message
	var gotHeader http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("bad body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"message_id":"q-42"}`))
	}))
	defer srv.Close()

	p, err := NewPublisher(Config{URL: srv.URL, AuthToken: "sekrit"}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	id, err := p.Publish(context.Background(), sampleRecord(), sampleEvent())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "q-42" {
		t.Fatalf("message id = %q", id)
	}

	if gotBody.Schema != "classification_v1" {
		t.Fatalf("schema = %q", gotBody.Schema)
	}
	if gotBody.IdempotencyKey != IdempotencyKey("C200", "1758369600.000100") {
		t.Fatal("idempotency key mismatch")
	}
	if gotBody.Source.ChannelID != "C200" || gotBody.Source.EventID != "Ev300" {
		t.Fatalf("source mangled: %+v", gotBody.Source)
	}
	if gotBody.Payload == nil || gotBody.Payload.MessageType != models.MessageTypeStray {
		t.Fatal("payload missing or mangled")
	}

	if gotHeader.Get("X-Message-Type") != "STRAY" {
		t.Fatalf("routing attribute = %q", gotHeader.Get("X-Message-Type"))
	}
	if gotHeader.Get("X-Idempotency-Key") == "" || gotHeader.Get("X-Trace-Id") == "" {
		t.Fatal("attribute headers missing")
	}
	if gotHeader.Get("Authorization") != "Bearer sekrit" {
		t.Fatal("auth header missing")
	}
}

func TestPublishFailureSurfacesEnqueueError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, _ := NewPublisher(Config{URL: srv.URL}, zap.NewNop())
	_, err := p.Publish(context.Background(), sampleRecord(), sampleEvent())

	var eerr *EnqueueError
	if !errors.As(err, &eerr) {
		t.Fatalf("expected EnqueueError, got %v", err)
	}
	if eerr.Status != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", eerr.Status)
	}
}

func TestIdempotencyKeyStability(t *testing.T) {
	a := IdempotencyKey("C200", "1758369600.000100")
	b := IdempotencyKey("C200", "1758369600.000100")
	c := IdempotencyKey("C200", "1758369601.000100")

	if a != b {
		t.Fatal("same inputs produced different keys")
	}
	if a == c {
		t.Fatal("different timestamps produced the same key")
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256, got %q", a)
	}
}
