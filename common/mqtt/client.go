// Package mqtt is a thin paho wrapper that remembers its subscriptions and
// restores them after an automatic reconnect.
package mqtt

import (
	"fmt"
	"sync"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/common/config"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	connectTimeout    = 10 * time.Second
	operationTimeout  = 5 * time.Second
	disconnectQuiesce = 250
)

// MessageHandler handles one inbound message. A returned error is logged.
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	qos     byte
	handler MessageHandler
}

type Client struct {
	conn   paho.Client
	broker string
	logger *zap.Logger

	mu   sync.Mutex
	subs map[string]subscription
}

// NewClient connects to cfg.Broker and blocks until the session is up
func NewClient(cfg *config.MQTTConfig, logger *zap.Logger) (*Client, error) {
	c := &Client{broker: cfg.Broker, logger: logger, subs: map[string]subscription{}}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetConnectTimeout(connectTimeout).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn("MQTT connection lost", zap.String("broker", cfg.Broker), zap.Error(err))
		})
	if cfg.KeepAlive > 0 {
		opts.SetKeepAlive(cfg.KeepAlive)
	}

	c.conn = paho.NewClient(opts)
	if err := wait(c.conn.Connect(), connectTimeout); err != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", cfg.Broker, err)
	}
	return c, nil
}

// onConnect restores subscriptions after a reconnect; clean sessions drop them
func (c *Client) onConnect(conn paho.Client) {
	c.mu.Lock()
	subs := make(map[string]subscription, len(c.subs))
	for topic, s := range c.subs {
		subs[topic] = s
	}
	c.mu.Unlock()

	for topic, s := range subs {
		if err := wait(conn.Subscribe(topic, s.qos, c.dispatch(s.handler)), operationTimeout); err != nil {
			c.logger.Error("Failed to restore MQTT subscription", zap.String("topic", topic), zap.Error(err))
		}
	}
	c.logger.Info("MQTT connected", zap.String("broker", c.broker), zap.Int("subscriptions", len(subs)))
}

func (c *Client) dispatch(handler MessageHandler) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.logger.Error("MQTT handler failed", zap.String("topic", msg.Topic()), zap.Error(err))
		}
	}
}

func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if err := wait(c.conn.Subscribe(topic, qos, c.dispatch(handler)), operationTimeout); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	c.mu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()
	return nil
}

func (c *Client) Unsubscribe(topics ...string) error {
	c.mu.Lock()
	for _, t := range topics {
		delete(c.subs, t)
	}
	c.mu.Unlock()
	if err := wait(c.conn.Unsubscribe(topics...), operationTimeout); err != nil {
		return fmt.Errorf("unsubscribe %v: %w", topics, err)
	}
	return nil
}

// Publish waits for the broker acknowledgement at the requested QoS
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if err := wait(c.conn.Publish(topic, qos, retained, payload), operationTimeout); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (c *Client) Disconnect() {
	c.conn.Disconnect(disconnectQuiesce)
}

func (c *Client) IsConnected() bool {
	return c.conn.IsConnected()
}

func wait(t paho.Token, timeout time.Duration) error {
	if !t.WaitTimeout(timeout) {
		return fmt.Errorf("timed out after %s", timeout)
	}
	return t.Error()
}
