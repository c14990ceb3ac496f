package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"EnergyMonitorAPI/internal/models"
	"EnergyMonitorAPI/internal/repository"
)

type fakeRegistry struct {
	mu      sync.Mutex
	devices map[string]*models.Device
	err     error
	touched []string
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{devices: make(map[string]*models.Device)}
}

func (f *fakeRegistry) add(token string, d *models.Device) {
	f.devices[token] = d
}

func (f *fakeRegistry) Resolve(ctx context.Context, token string) (*models.Device, error) {
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.devices[token]
	if !ok {
		return nil, repository.ErrDeviceNotFound
	}
	dup := *d
	return &dup, nil
}

func (f *fakeRegistry) Touch(ctx context.Context, deviceID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, deviceID)
	return nil
}

type fakeThresholds struct {
	set *models.ThresholdSet
	err error
}

func (f *fakeThresholds) Current(ctx context.Context) (*models.ThresholdSet, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.set == nil {
		d := models.DefaultThresholds()
		return &d, nil
	}
	dup := *f.set
	return &dup, nil
}

type fakeReadings struct {
	mu        sync.Mutex
	rows      []models.Reading
	appendErr error
	block     bool
}

func (f *fakeReadings) Append(ctx context.Context, r *models.Reading) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.appendErr != nil {
		return f.appendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, *r)
	return nil
}

func (f *fakeReadings) Latest(ctx context.Context, deviceID string) (*models.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.Reading
	for i := range f.rows {
		r := f.rows[i]
		if r.DeviceID == deviceID && (latest == nil || !r.RecordedAt.Before(latest.RecordedAt)) {
			latest = &r
		}
	}
	if latest == nil {
		return nil, repository.ErrReadingNotFound
	}
	return latest, nil
}

func (f *fakeReadings) Range(ctx context.Context, deviceID string, from, to time.Time, limit int) ([]models.Reading, error) {
	return f.Report(ctx, repository.ReportFilter{DeviceID: deviceID, From: from, To: to, Limit: limit})
}

func (f *fakeReadings) Report(ctx context.Context, filter repository.ReportFilter) ([]models.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Reading{}
	for _, r := range f.rows {
		if filter.DeviceID != "" && r.DeviceID != filter.DeviceID {
			continue
		}
		if !filter.From.IsZero() && r.RecordedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && r.RecordedAt.After(filter.To) {
			continue
		}
		out = append(out, r)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeReadings) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeAlerts struct {
	mu        sync.Mutex
	rows      []models.Alert
	insertErr error
	nextID    int
}

func (f *fakeAlerts) Insert(ctx context.Context, a *models.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if a.ID == "" {
		a.ID = fmt.Sprintf("alert-%d", f.nextID)
	}
	f.rows = append(f.rows, *a)
	return nil
}

func (f *fakeAlerts) ListUnread(ctx context.Context, deviceID string, limit int) ([]models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Alert{}
	for i := len(f.rows) - 1; i >= 0; i-- {
		a := f.rows[i]
		if a.IsRead || (deviceID != "" && a.DeviceID != deviceID) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAlerts) MarkRead(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id && !f.rows[i].IsRead {
			f.rows[i].IsRead = true
			return nil
		}
	}
	return repository.ErrAlertNotFound
}

func (f *fakeAlerts) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingAdmitter struct {
	mu    sync.Mutex
	inner Admitter
	calls int
}

func (c *countingAdmitter) Admit(key string, now time.Time) bool {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.Admit(key, now)
}

func (c *countingAdmitter) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(eventType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

func telemetryBody(deviceID string, m models.MeterReading, ts time.Time) io.Reader {
	data, _ := json.Marshal(map[string]interface{}{
		"deviceId":  deviceID,
		"reading":   m,
		"timestamp": ts.Format(time.RFC3339Nano),
	})
	return strings.NewReader(string(data))
}

func nominalReading() models.MeterReading {
	return models.MeterReading{
		Voltage:     230,
		Current:     5,
		Power:       1150,
		Energy:      12.5,
		Frequency:   60,
		PowerFactor: 0.95,
	}
}
