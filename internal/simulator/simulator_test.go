package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"EnergyMonitorAPI/internal/logger"
	"EnergyMonitorAPI/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDevice = "00000000-0000-0000-0000-000000000001"

func newTestGenerator(interval time.Duration) *Generator {
	return NewGenerator(testDevice, interval, rand.New(rand.NewPCG(1, 2)))
}

func TestGeneratorReadingsStayInRange(t *testing.T) {
	gen := newTestGenerator(2 * time.Second)
	start := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 24*12; i++ {
		now := start.Add(time.Duration(i) * 5 * time.Minute)
		p := gen.Next(now)
		r := p.Reading

		assert.Equal(t, testDevice, p.DeviceID)
		assert.True(t, p.Timestamp.Equal(now))
		assert.GreaterOrEqual(t, r.Voltage, 215.0)
		assert.LessOrEqual(t, r.Voltage, 225.0)
		assert.GreaterOrEqual(t, r.Current, 8*0.4)
		assert.LessOrEqual(t, r.Current, 20*2.0)
		assert.GreaterOrEqual(t, r.PowerFactor, 0.85)
		assert.LessOrEqual(t, r.PowerFactor, 0.98)
		assert.GreaterOrEqual(t, r.Frequency, 59.9)
		assert.LessOrEqual(t, r.Frequency, 60.1)
		assert.InDelta(t, r.Voltage*r.Current*r.PowerFactor, r.Power, 0.01)
	}
}

func TestGeneratorEnergyAccumulates(t *testing.T) {
	gen := newTestGenerator(time.Hour)
	now := time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)

	var expected, previous float64
	for i := 0; i < 10; i++ {
		p := gen.Next(now.Add(time.Duration(i) * time.Hour))
		expected += p.Reading.Power / 1000

		assert.GreaterOrEqual(t, p.Reading.Energy, previous)
		assert.InDelta(t, expected, p.Reading.Energy, 0.0001)
		previous = p.Reading.Energy
	}
}

func TestLoadMultiplierFollowsHour(t *testing.T) {
	gen := newTestGenerator(time.Second)

	tests := []struct {
		hour     int
		min, max float64
	}{
		{9, 1.2, 1.8},
		{12, 1.2, 1.8},
		{19, 1.5, 2.0},
		{23, 0.4, 0.7},
		{3, 0.4, 0.7},
		{15, 0.8, 1.2},
		{7, 0.8, 1.2},
	}

	for _, tt := range tests {
		for i := 0; i < 50; i++ {
			m := gen.loadMultiplier(tt.hour)
			assert.GreaterOrEqual(t, m, tt.min, "hour %d", tt.hour)
			assert.LessOrEqual(t, m, tt.max, "hour %d", tt.hour)
		}
	}
}

func TestSpike(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		kind    SpikeKind
		voltage float64
		current float64
		power   float64
	}{
		{SpikeOvervoltage, 265, 15, 3975},
		{SpikeOvercurrent, 220, 95, 20900},
		{SpikeHighPower, 220, 50, 22000},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			p, err := Spike(testDevice, tt.kind, now)
			require.NoError(t, err)
			assert.Equal(t, tt.voltage, p.Reading.Voltage)
			assert.Equal(t, tt.current, p.Reading.Current)
			assert.Equal(t, tt.power, p.Reading.Power)
			assert.Equal(t, 100.0, p.Reading.Energy)
			assert.Equal(t, 0.95, p.Reading.PowerFactor)
		})
	}

	_, err := Spike(testDevice, "brownout", now)
	assert.ErrorIs(t, err, ErrUnknownSpike)
}

func TestHTTPSender(t *testing.T) {
	var got models.TelemetryPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/ingest", r.URL.Path)
		assert.Equal(t, "dev-test-token", r.Header.Get("X-Device-Token"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	payload, err := Spike(testDevice, SpikeOvervoltage, time.Now())
	require.NoError(t, err)

	sender := NewHTTPSender(srv.URL+"/", "dev-test-token", time.Second)
	require.NoError(t, sender.Send(context.Background(), payload))

	assert.Equal(t, testDevice, got.DeviceID)
	assert.Equal(t, 265.0, got.Reading.Voltage)
}

func TestHTTPSenderReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	err := NewHTTPSender(srv.URL, "t", time.Second).Send(context.Background(), models.TelemetryPayload{})

	var status *StatusError
	require.True(t, errors.As(err, &status))
	assert.Equal(t, http.StatusTooManyRequests, status.Code)
	assert.Contains(t, status.Body, "rate limited")
}

type recordingBroker struct {
	mu     sync.Mutex
	topics []string
	bodies [][]byte
}

func (b *recordingBroker) PublishJSON(topic string, data interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = append(b.topics, topic)
	b.bodies = append(b.bodies, body)
	return nil
}

func TestMQTTSenderWrapsToken(t *testing.T) {
	broker := &recordingBroker{}
	sender := NewMQTTSender(broker, "energy/telemetry/+", testDevice, "dev-test-token")

	payload, err := Spike(testDevice, SpikeHighPower, time.Now())
	require.NoError(t, err)
	require.NoError(t, sender.Send(context.Background(), payload))

	require.Len(t, broker.topics, 1)
	assert.Equal(t, "energy/telemetry/"+testDevice, broker.topics[0])

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(broker.bodies[0], &body))
	assert.Equal(t, "dev-test-token", body["token"])
	assert.Equal(t, testDevice, body["deviceId"])
	assert.Contains(t, body, "reading")
	assert.Contains(t, body, "timestamp")
}

func TestPublishTopic(t *testing.T) {
	assert.Equal(t, "energy/telemetry", publishTopic("energy/telemetry", "d1"))
	assert.Equal(t, "energy/telemetry/d1", publishTopic("energy/telemetry/#", "d1"))
	assert.Equal(t, "energy/telemetry/d1", publishTopic("energy/telemetry/+", "d1"))
	assert.Equal(t, "d1", publishTopic("#", "d1"))
}

type countingSender struct {
	mu    sync.Mutex
	count int
}

func (s *countingSender) Send(context.Context, models.TelemetryPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	return nil
}

func (s *countingSender) sent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sender := &countingSender{}

	done := make(chan struct{})
	go func() {
		Run(ctx, newTestGenerator(5*time.Millisecond), sender, 5*time.Millisecond, logger.NewNop())
		close(done)
	}()

	assert.Eventually(t, func() bool { return sender.sent() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
