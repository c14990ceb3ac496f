package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"EnergyMonitorAPI/internal/models"
)

const ingestPath = "/api/v1/ingest"

type Sender interface {
	Send(ctx context.Context, payload models.TelemetryPayload) error
}

// StatusError is a non-2xx answer from the ingest endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

type HTTPSender struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewHTTPSender(baseURL, token string, timeout time.Duration) *HTTPSender {
	return &HTTPSender{
		endpoint: strings.TrimRight(baseURL, "/") + ingestPath,
		token:    token,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSender) Send(ctx context.Context, payload models.TelemetryPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Device-Token", s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// JSONPublisher is satisfied by *mqtt.Client.
type JSONPublisher interface {
	PublishJSON(topic string, data interface{}) error
}

// envelope carries the token in the body, as the broker path expects.
type envelope struct {
	models.TelemetryPayload
	Token string `json:"token"`
}

type MQTTSender struct {
	broker JSONPublisher
	topic  string
	token  string
}

// NewMQTTSender publishes to filter, with a trailing wildcard level
// replaced by the device ID.
func NewMQTTSender(broker JSONPublisher, filter, deviceID, token string) *MQTTSender {
	return &MQTTSender{
		broker: broker,
		topic:  publishTopic(filter, deviceID),
		token:  token,
	}
}

func (s *MQTTSender) Send(_ context.Context, payload models.TelemetryPayload) error {
	return s.broker.PublishJSON(s.topic, envelope{TelemetryPayload: payload, Token: s.token})
}

func publishTopic(filter, deviceID string) string {
	if filter == "#" || filter == "+" {
		return deviceID
	}
	for _, wildcard := range []string{"/#", "/+"} {
		if strings.HasSuffix(filter, wildcard) {
			return strings.TrimSuffix(filter, wildcard) + "/" + deviceID
		}
	}
	return filter
}
