package queue

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"intake-service/internal/models"
)

// Message is the wire envelope published downstream. Ownership transfers to
// the queue on successful publish.
type Message struct {
	Schema         string                 `json:"schema"`
	IdempotencyKey string                 `json:"idempotency_key"`
	TraceID        string                 `json:"trace_id"`
	Source         Source                 `json:"source"`
	Payload        *models.Classification `json:"payload"`
	Links          []string               `json:"links"`
	Attachments    []json.RawMessage      `json:"attachments"`
}

// Source identifies the originating delivery.
type Source struct {
	EventID   string `json:"event_id"`
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
	TS        string `json:"ts"`
	ThreadTS  string `json:"thread_ts,omitempty"`
	Text      string `json:"text"`
}

// EnqueueError is a failed publish. It is fatal to the pipeline run: a
// silently dropped accepted classification loses the task.
type EnqueueError struct {
	Status int
	Err    error
}

func (e *EnqueueError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("enqueue failed with status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("enqueue failed: %v", e.Err)
}

func (e *EnqueueError) Unwrap() error { return e.Err }

// Config for the HTTP publisher.
type Config struct {
	URL       string
	AuthToken string
	Timeout   time.Duration
}

// Publisher pushes accepted classification records to the downstream queue
// endpoint.
type Publisher struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewPublisher creates a queue publisher.
func NewPublisher(cfg Config, logger *zap.Logger) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("queue URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &Publisher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout, Transport: tr},
		logger: logger,
	}, nil
}

// Publish sends the record downstream and returns the queue message ID. A
// message attribute header carries the message type so consumers can route
// without deserializing the body.
func (p *Publisher) Publish(ctx context.Context, rec *models.Classification, ev *models.NormalizedEvent) (string, error) {
	traceID := uuid.New().String()
	msg := Message{
		Schema:         "classification_v1",
		IdempotencyKey: IdempotencyKey(ev.ChannelID, ev.Timestamp),
		TraceID:        traceID,
		Source: Source{
			EventID:   ev.EventID,
			UserID:    ev.AuthorID,
			ChannelID: ev.ChannelID,
			TS:        ev.Timestamp,
			ThreadTS:  ev.ThreadID,
			Text:      ev.Text,
		},
		Payload:     rec,
		Links:       ev.Links,
		Attachments: ev.Attachments,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return "", &EnqueueError{Err: fmt.Errorf("marshal message: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", &EnqueueError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Idempotency-Key", msg.IdempotencyKey)
	req.Header.Set("X-Trace-Id", traceID)
	req.Header.Set("X-Message-Type", string(rec.MessageType))
	if p.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.AuthToken)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &EnqueueError{Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode/100 != 2 {
		return "", &EnqueueError{Status: resp.StatusCode, Err: fmt.Errorf("%s", respBody)}
	}

	messageID := traceID
	var ack struct {
		MessageID string `json:"message_id"`
	}
	if err := json.Unmarshal(respBody, &ack); err == nil && ack.MessageID != "" {
		messageID = ack.MessageID
	}

	p.logger.Info("classification enqueued",
		zap.String("message_id", messageID),
		zap.String("trace_id", traceID),
		zap.String("idempotency_key", msg.IdempotencyKey),
		zap.String("message_type", string(rec.MessageType)))

	return messageID, nil
}

// IdempotencyKey is a stable hash of the delivery's channel and platform
// timestamp: redeliveries of the same logical event always map to the same
// key, letting the queue consumer dedupe across a webhook-level restart.
func IdempotencyKey(channelID, ts string) string {
	sum := sha256.Sum256([]byte(channelID + "|" + ts))
	return hex.EncodeToString(sum[:])
}
