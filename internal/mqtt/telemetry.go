package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"EnergyMonitorAPI/internal/logger"
	"EnergyMonitorAPI/internal/service"
)

// Ingester is satisfied by *service.IngestService.
type Ingester interface {
	Ingest(ctx context.Context, sub service.Submission) (*service.Receipt, error)
}

// envelope is the HTTP ingestion body plus the device token, which MQTT has
// no header for.
type envelope struct {
	Token string `json:"token"`
}

// TelemetryHandler feeds broker messages into the ingestion pipeline. Device
// mistakes are logged and dropped; only storage failures surface as errors.
func TelemetryHandler(ingester Ingester, log *logger.Logger) MessageHandler {
	return func(topic string, payload []byte) error {
		var env envelope
		// Malformed JSON falls through to the pipeline with no token and is
		// reported as unauthenticated, like the HTTP path.
		_ = json.Unmarshal(payload, &env)

		receipt, err := ingester.Ingest(context.Background(), service.Submission{
			Credential: env.Token,
			Body:       bytes.NewReader(payload),
			Source:     "mqtt",
		})

		switch {
		case err == nil:
			log.Debug("MQTT reading %d stored for device %s", receipt.ReadingID, receipt.DeviceID)
			return nil
		case errors.Is(err, service.ErrStorageFailure):
			return err
		default:
			log.Warn("Dropped MQTT telemetry on %s: %v", topic, err)
			return nil
		}
	}
}
