package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"EnergyMonitorAPI/internal/config"
	"EnergyMonitorAPI/internal/logger"
	"EnergyMonitorAPI/internal/metrics"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const operationTimeout = 5 * time.Second

// Inbound message results, used as metric labels.
const (
	messageHandled  = "handled"
	messageUnrouted = "unrouted"
	messageFailed   = "failed"
)

// MessageHandler processes one inbound message. A returned error is logged
// and counted; the message is not redelivered.
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	filter  string
	handler MessageHandler
}

// Client wraps a paho session. Subscriptions are kept in registration order
// and replayed on every (re)connect.
type Client struct {
	client mqtt.Client
	cfg    *config.MQTTConfig
	log    *logger.Logger

	mu        sync.RWMutex
	subs      []subscription
	connected bool
}

type ClientConfig struct {
	MQTT   *config.MQTTConfig
	Logger *logger.Logger
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.MQTT == nil {
		return nil, fmt.Errorf("mqtt config cannot be nil")
	}

	c := &Client{cfg: cfg.MQTT, log: cfg.Logger}
	c.client = mqtt.NewClient(c.options())

	return c, nil
}

func (c *Client) options() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL()).
		SetClientID(c.cfg.ClientID).
		SetKeepAlive(c.cfg.KeepAlive).
		SetPingTimeout(10 * time.Second).
		SetConnectTimeout(c.cfg.ConnectTimeout).
		SetAutoReconnect(c.cfg.AutoReconnect).
		SetCleanSession(true).
		SetOrderMatters(false).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost).
		SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
			c.log.Warn("Reconnecting to MQTT broker %s", c.cfg.BrokerURL())
		})

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username).SetPassword(c.cfg.Password)
	}

	return opts
}

func (c *Client) Connect() error {
	c.log.Info("Connecting to MQTT broker: %s", c.cfg.BrokerURL())

	if err := wait(c.client.Connect(), c.cfg.ConnectTimeout); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	c.setConnected(true)
	return nil
}

func (c *Client) Disconnect() {
	c.log.Info("Disconnecting from MQTT broker")
	c.setConnected(false)
	c.client.Disconnect(250)
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// Subscribe registers handler for filter, which may contain + and #
// wildcards. A message goes to the first registered filter it matches.
func (c *Client) Subscribe(filter string, handler MessageHandler) error {
	if !c.IsConnected() {
		return fmt.Errorf("not connected to broker")
	}

	c.mu.Lock()
	c.subs = append(c.subs, subscription{filter: filter, handler: handler})
	c.mu.Unlock()

	if err := c.subscribe(c.client, filter); err != nil {
		return err
	}

	c.log.Info("Subscribed to topic: %s", filter)
	return nil
}

func (c *Client) subscribe(client mqtt.Client, filter string) error {
	token := client.Subscribe(filter, c.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		c.dispatch(msg.Topic(), msg.Payload())
	})
	if err := wait(token, operationTimeout); err != nil {
		return fmt.Errorf("subscribe failed for topic %s: %w", filter, err)
	}
	return nil
}

func (c *Client) Publish(topic string, payload []byte) error {
	if !c.IsConnected() {
		return fmt.Errorf("not connected to broker")
	}

	token := c.client.Publish(topic, c.cfg.QoS, c.cfg.RetainMessages, payload)
	if err := wait(token, operationTimeout); err != nil {
		return fmt.Errorf("publish failed for topic %s: %w", topic, err)
	}

	c.log.Debug("Published to topic: %s (size: %d bytes)", topic, len(payload))
	return nil
}

func (c *Client) PublishJSON(topic string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return c.Publish(topic, payload)
}

func (c *Client) dispatch(topic string, payload []byte) {
	handler := c.route(topic)
	if handler == nil {
		c.log.Warn("No handler found for topic: %s", topic)
		metrics.IncBrokerMessage(messageUnrouted)
		return
	}

	if err := handler(topic, payload); err != nil {
		c.log.Error("Handler error for topic %s: %v", topic, err)
		metrics.IncBrokerMessage(messageFailed)
		return
	}

	metrics.IncBrokerMessage(messageHandled)
}

func (c *Client) route(topic string) MessageHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, s := range c.subs {
		if matchTopic(s.filter, topic) {
			return s.handler
		}
	}
	return nil
}

func (c *Client) onConnect(client mqtt.Client) {
	c.setConnected(true)

	c.mu.RLock()
	filters := make([]string, 0, len(c.subs))
	for _, s := range c.subs {
		filters = append(filters, s.filter)
	}
	c.mu.RUnlock()

	c.log.Info("MQTT connection established (%d subscriptions)", len(filters))

	for _, filter := range filters {
		if err := c.subscribe(client, filter); err != nil {
			c.log.Error("Failed to re-subscribe: %v", err)
		}
	}
}

func (c *Client) onConnectionLost(_ mqtt.Client, err error) {
	c.setConnected(false)
	c.log.Error("MQTT connection lost: %v", err)
}

func (c *Client) setConnected(up bool) {
	c.mu.Lock()
	c.connected = up
	c.mu.Unlock()
	metrics.SetBrokerConnected(up)
}

func wait(token mqtt.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("timed out after %v", timeout)
	}
	return token.Error()
}

// matchTopic reports whether topic matches a subscription filter.
func matchTopic(filter, topic string) bool {
	if filter == topic {
		return true
	}

	filterLevels := strings.Split(filter, "/")
	topicLevels := strings.Split(topic, "/")

	for i, level := range filterLevels {
		if level == "#" {
			return i == len(filterLevels)-1
		}
		if i >= len(topicLevels) {
			return false
		}
		if level != "+" && level != topicLevels[i] {
			return false
		}
	}

	return len(filterLevels) == len(topicLevels)
}
