package mqtt

import (
	"context"
	"fmt"

	"EnergyMonitorAPI/internal/logger"
	"EnergyMonitorAPI/internal/models"
	"EnergyMonitorAPI/internal/service"
)

type JSONPublisher interface {
	PublishJSON(topic string, data interface{}) error
}

// AlertPublisher forwards stored alerts to <prefix>/<device_id>. Publish only
// queues; Run does the network work.
type AlertPublisher struct {
	broker JSONPublisher
	prefix string
	queue  chan models.Alert
	log    *logger.Logger
}

func NewAlertPublisher(broker JSONPublisher, prefix string, buffer int, log *logger.Logger) *AlertPublisher {
	if buffer <= 0 {
		buffer = 100
	}
	return &AlertPublisher{
		broker: broker,
		prefix: prefix,
		queue:  make(chan models.Alert, buffer),
		log:    log,
	}
}

// Publish implements service.EventPublisher. Non-alert events are ignored.
func (p *AlertPublisher) Publish(eventType string, payload interface{}) {
	if eventType != service.EventAlert {
		return
	}

	alert, ok := payload.(models.Alert)
	if !ok {
		return
	}

	select {
	case p.queue <- alert:
	default:
		p.log.Warn("MQTT alert queue full, dropping %s alert for device %s", alert.Type, alert.DeviceID)
	}
}

// Run publishes queued alerts until ctx is done.
func (p *AlertPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case alert := <-p.queue:
			topic := p.topicFor(alert.DeviceID)
			if err := p.broker.PublishJSON(topic, alert); err != nil {
				p.log.Error("Failed to publish alert %s: %v", alert.ID, err)
			}
		}
	}
}

func (p *AlertPublisher) topicFor(deviceID string) string {
	return fmt.Sprintf("%s/%s", p.prefix, deviceID)
}
