package slackack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"intake-service/internal/models"
)

const defaultBaseURL = "https://slack.com/api"

// Client posts acknowledgment replies back to the originating channel after
// a classification has been accepted and enqueued. Acknowledgment failures
// are the caller's to log, never to propagate: the task is already safe in
// the queue.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New creates an acknowledgment client.
func New(token string, logger *zap.Logger) *Client {
	return &Client{
		token:   token,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

type postMessageRequest struct {
	Channel  string `json:"channel"`
	Text     string `json:"text"`
	ThreadTS string `json:"thread_ts,omitempty"`
}

type postMessageResponse struct {
	OK    bool   `json:"ok"`
	TS    string `json:"ts"`
	Error string `json:"error"`
}

// Acknowledge posts a threaded confirmation for the record. Only GROUP and
// STRAY classifications get an acknowledgment; INFO_REQUEST records are
// enqueued silently.
func (c *Client) Acknowledge(ctx context.Context, rec *models.Classification, channel, threadTS string) error {
	text := ackText(rec)
	if text == "" {
		return nil
	}

	reqBody := postMessageRequest{
		Channel:  channel,
		Text:     text,
		ThreadTS: threadTS,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat.postMessage", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("slack API error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack API returned status %d: %s", resp.StatusCode, body)
	}

	var pm postMessageResponse
	if err := json.Unmarshal(body, &pm); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if !pm.OK {
		return fmt.Errorf("slack API rejected message: %s", pm.Error)
	}

	c.logger.Debug("acknowledgment posted",
		zap.String("channel", channel),
		zap.String("ts", pm.TS))
	return nil
}

func ackText(rec *models.Classification) string {
	switch rec.MessageType {
	case models.MessageTypeStray:
		return "✅ Task detected and added to your queue!"
	case models.MessageTypeGroup:
		label := "Listing"
		if rec.GroupKey != nil {
			label = titleCase(string(*rec.GroupKey))
		}
		if rec.Listing.Address != nil {
			return fmt.Sprintf("🏠 Listing detected: %s - %s", label, *rec.Listing.Address)
		}
		return fmt.Sprintf("🏠 Listing detected: %s", label)
	}
	return ""
}

func titleCase(key string) string {
	words := strings.Split(strings.ToLower(key), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
