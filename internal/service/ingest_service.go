package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"EnergyMonitorAPI/internal/alerting"
	"EnergyMonitorAPI/internal/logger"
	"EnergyMonitorAPI/internal/metrics"
	"EnergyMonitorAPI/internal/models"
	"EnergyMonitorAPI/internal/repository"
)

const (
	defaultMaxBodyBytes = 64 * 1024
	defaultWriteTimeout = 5 * time.Second
	defaultAlertTimeout = 5 * time.Second
)

// Submission is one device report as it arrives from a transport.
type Submission struct {
	Credential string
	Body       io.Reader
	Source     string
}

// Receipt describes a stored reading.
type Receipt struct {
	ReadingID  int64     `json:"reading_id"`
	DeviceID   string    `json:"device_id"`
	RecordedAt time.Time `json:"recorded_at"`
}

// AlertOutcome is the result of alert evaluation for one stored reading.
// It never reaches the submitter; it is logged, counted and passed to the
// observer if one is set.
type AlertOutcome struct {
	DeviceID   string
	ReadingID  int64
	Alerts     []models.Alert
	Suppressed []models.AlertType
	Err        error
}

type IngestService struct {
	devices    DeviceRegistry
	thresholds ThresholdStore
	readings   TelemetryStore
	alerts     AlertStore
	limiter    Admitter
	log        *logger.Logger

	clock        Clock
	publishers   []EventPublisher
	observer     func(AlertOutcome)
	gate         *alertGate
	maxBodyBytes int64
	writeTimeout time.Duration
	alertTimeout time.Duration
}

type IngestOption func(*IngestService)

func WithClock(c Clock) IngestOption {
	return func(s *IngestService) { s.clock = c }
}

func WithPublisher(p EventPublisher) IngestOption {
	return func(s *IngestService) {
		if p != nil {
			s.publishers = append(s.publishers, p)
		}
	}
}

// WithAlertObserver receives every AlertOutcome after it has been logged.
func WithAlertObserver(fn func(AlertOutcome)) IngestOption {
	return func(s *IngestService) { s.observer = fn }
}

// WithAlertCooldown suppresses repeats of an alert type per device within d.
func WithAlertCooldown(d time.Duration) IngestOption {
	return func(s *IngestService) { s.gate = newAlertGate(d) }
}

func WithWriteTimeout(d time.Duration) IngestOption {
	return func(s *IngestService) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

func WithAlertTimeout(d time.Duration) IngestOption {
	return func(s *IngestService) {
		if d > 0 {
			s.alertTimeout = d
		}
	}
}

func WithMaxBodyBytes(n int64) IngestOption {
	return func(s *IngestService) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

func NewIngestService(
	devices DeviceRegistry,
	thresholds ThresholdStore,
	readings TelemetryStore,
	alerts AlertStore,
	limiter Admitter,
	log *logger.Logger,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		devices:      devices,
		thresholds:   thresholds,
		readings:     readings,
		alerts:       alerts,
		limiter:      limiter,
		log:          log,
		clock:        systemClock{},
		gate:         newAlertGate(0),
		maxBodyBytes: defaultMaxBodyBytes,
		writeTimeout: defaultWriteTimeout,
		alertTimeout: defaultAlertTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Ingest runs authentication, validation, admission and the durable write in
// that order, stopping at the first failure. The returned error matches one
// of ErrUnauthenticated, ErrInvalidPayload, ErrRateLimited or
// ErrStorageFailure. Alert evaluation runs only after a successful write and
// never changes the result.
func (s *IngestService) Ingest(ctx context.Context, sub Submission) (*Receipt, error) {
	start := time.Now()
	source := sub.Source
	if source == "" {
		source = "unknown"
	}

	receipt, err := s.ingest(ctx, sub)

	result := resultLabel(err)
	metrics.ObserveIngest(source, result, time.Since(start))
	if err != nil {
		metrics.IncIngestError(result)
	}

	return receipt, err
}

func (s *IngestService) ingest(ctx context.Context, sub Submission) (*Receipt, error) {
	device, err := s.authenticate(ctx, sub.Credential)
	if err != nil {
		return nil, err
	}

	payload, err := DecodeTelemetry(sub.Body, s.maxBodyBytes)
	if err != nil {
		s.log.Debug("Rejected payload from device %s: %v", device.ID, err)
		return nil, err
	}

	if payload.DeviceID != device.ID {
		s.log.Warn("Device %s submitted a reading for %s", device.ID, payload.DeviceID)
		return nil, ErrUnauthenticated
	}

	now := s.clock.Now()
	if !s.limiter.Admit(device.ID, now) {
		s.log.Debug("Rate limited device %s", device.ID)
		return nil, ErrRateLimited
	}

	reading := models.NewReading(device.ID, payload.Reading, payload.Timestamp, now)

	writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	err = s.readings.Append(writeCtx, reading)
	cancel()
	if err != nil {
		s.log.Error("Failed to store reading for device %s: %v", device.ID, err)
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	s.log.Info("Reading stored: device=%s, voltage=%v, current=%v, power=%v, energy=%v",
		device.ID, reading.Voltage, reading.Current, reading.Power, reading.Energy)

	s.afterWrite(ctx, reading)

	return &Receipt{
		ReadingID:  reading.ID,
		DeviceID:   device.ID,
		RecordedAt: reading.RecordedAt,
	}, nil
}

func (s *IngestService) authenticate(ctx context.Context, credential string) (*models.Device, error) {
	if credential == "" {
		return nil, ErrUnauthenticated
	}

	device, err := s.devices.Resolve(ctx, credential)
	if errors.Is(err, repository.ErrDeviceNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		s.log.Error("Device lookup failed: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	if !device.IsActive {
		s.log.Debug("Inactive device %s attempted to ingest", device.ID)
		return nil, ErrUnauthenticated
	}

	return device, nil
}

// afterWrite holds everything that follows a stored reading. None of it can
// fail the submission.
func (s *IngestService) afterWrite(ctx context.Context, reading *models.Reading) {
	bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.alertTimeout)
	defer cancel()

	if err := s.devices.Touch(bgCtx, reading.DeviceID, reading.ReceivedAt); err != nil {
		s.log.Warn("Failed to update device last_seen_at: %v", err)
	}

	s.publish(EventReading, reading)

	outcome := s.evaluate(bgCtx, reading)
	s.report(outcome)
}

func (s *IngestService) evaluate(ctx context.Context, reading *models.Reading) (outcome AlertOutcome) {
	outcome = AlertOutcome{DeviceID: reading.DeviceID, ReadingID: reading.ID}

	defer func() {
		if r := recover(); r != nil {
			outcome.Err = errors.Join(outcome.Err, fmt.Errorf("alert evaluation panicked: %v", r))
		}
	}()

	thresholds, err := s.thresholds.Current(ctx)
	if err != nil {
		outcome.Err = fmt.Errorf("failed to load thresholds: %w", err)
		return outcome
	}

	now := s.clock.Now()
	for _, candidate := range alerting.Evaluate(reading, thresholds) {
		if s.gate.suppressed(candidate.DeviceID, candidate.Type, now) {
			outcome.Suppressed = append(outcome.Suppressed, candidate.Type)
			continue
		}

		alert := candidate
		alert.CreatedAt = now
		if err := s.alerts.Insert(ctx, &alert); err != nil {
			outcome.Err = errors.Join(outcome.Err, fmt.Errorf("failed to store %s alert: %w", alert.Type, err))
			continue
		}

		s.gate.record(alert.DeviceID, alert.Type, now)
		outcome.Alerts = append(outcome.Alerts, alert)
		s.publish(EventAlert, alert)
	}

	return outcome
}

func (s *IngestService) report(outcome AlertOutcome) {
	for _, a := range outcome.Alerts {
		s.log.Warn("Alert raised: device=%s, type=%s, %s", a.DeviceID, a.Type, a.Message)
		metrics.IncAlertRaised(string(a.Type))
	}

	for _, t := range outcome.Suppressed {
		s.log.Debug("Alert suppressed by cooldown: device=%s, type=%s", outcome.DeviceID, t)
		metrics.IncAlertSuppressed(string(t))
	}

	if outcome.Err != nil {
		s.log.Error("Alert evaluation failed for device %s (reading %d): %v",
			outcome.DeviceID, outcome.ReadingID, outcome.Err)
		metrics.IncAlertEvaluationFailure()
	}

	if s.observer != nil {
		s.observer(outcome)
	}
}

func (s *IngestService) publish(eventType string, payload interface{}) {
	for _, p := range s.publishers {
		p.Publish(eventType, payload)
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultAccepted
	case errors.Is(err, ErrUnauthenticated):
		return metrics.ResultUnauthenticated
	case errors.Is(err, ErrInvalidPayload):
		return metrics.ResultInvalidPayload
	case errors.Is(err, ErrRateLimited):
		return metrics.ResultRateLimited
	default:
		return metrics.ResultFailed
	}
}
