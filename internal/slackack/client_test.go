package slackack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"intake-service/internal/models"
)

func strayRecord() *models.Classification {
	key := models.TaskSaleClosingTasks
	return &models.Classification{MessageType: models.MessageTypeStray, TaskKey: &key, Confidence: 0.9}
}

func groupRecord(address string) *models.Classification {
	key := models.GroupSaleListing
	rec := &models.Classification{MessageType: models.MessageTypeGroup, GroupKey: &key, Confidence: 0.9}
	if address != "" {
		rec.Listing.Address = &address
	}
	return rec
}

func TestAcknowledgePostsThreadedReply(t *testing.T) {
	var got postMessageRequest
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"ts":"1758369601.000200"}`))
	}))
	defer srv.Close()

	c := New("xoxb-token", zap.NewNop())
	c.baseURL = srv.URL

	if err := c.Acknowledge(context.Background(), strayRecord(), "C200", "1758369600.000100"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Channel != "C200" || got.ThreadTS != "1758369600.000100" {
		t.Fatalf("request = %+v", got)
	}
	if !strings.Contains(got.Text, "Task detected") {
		t.Fatalf("text = %q", got.Text)
	}
	if auth != "Bearer xoxb-token" {
		t.Fatalf("auth = %q", auth)
	}
}

func TestAcknowledgeGroupIncludesAddress(t *testing.T) {
	var got postMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New("xoxb-token", zap.NewNop())
	c.baseURL = srv.URL

	if err := c.Acknowledge(context.Background(), groupRecord("18 Oak Ave"), "C200", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got.Text, "18 Oak Ave") || !strings.Contains(got.Text, "Sale Listing") {
		t.Fatalf("text = %q", got.Text)
	}
}

func TestAcknowledgeSkipsSilentTypes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for INFO_REQUEST")
	}))
	defer srv.Close()

	c := New("xoxb-token", zap.NewNop())
	c.baseURL = srv.URL

	rec := &models.Classification{MessageType: models.MessageTypeInfoRequest, Confidence: 0.9}
	if err := c.Acknowledge(context.Background(), rec, "C200", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAcknowledgeSurfacesAPIRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer srv.Close()

	c := New("xoxb-token", zap.NewNop())
	c.baseURL = srv.URL

	err := c.Acknowledge(context.Background(), strayRecord(), "C999", "")
	if err == nil || !strings.Contains(err.Error(), "channel_not_found") {
		t.Fatalf("err = %v", err)
	}
}
