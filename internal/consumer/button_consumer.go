// Package consumer turns device traffic into service requests.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/common/mqtt"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/apperr"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/metrics"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/request"

	"go.uber.org/zap"
)

// Broker the MQTT operations the consumer needs
type Broker interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topics ...string) error
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// Guests resolves who a button belongs to
type Guests interface {
	GetGuest(ctx context.Context, id string) (*models.Guest, error)
	FindByLocation(ctx context.Context, locationID string) (*models.Guest, error)
}

// Locations resolves cabin names
type Locations interface {
	GetLocation(ctx context.Context, id string) (*models.Location, error)
}

// RequestCreator the lifecycle entry point
type RequestCreator interface {
	Create(ctx context.Context, in request.CreateInput) (*models.ServiceRequest, error)
}

// Topics consumer topic settings. Command is a format string taking the device id.
type Topics struct {
	ButtonPress string
	Command     string
}

// ButtonConsumer subscribes to smart button presses and creates a service
// request for each one, acknowledging back to the device.
type ButtonConsumer struct {
	broker    Broker
	guests    Guests
	locations Locations
	creator   RequestCreator
	metrics   *metrics.Metrics
	topics    Topics
	qos       byte
	logger    *zap.Logger
}

func NewButtonConsumer(
	broker Broker,
	guests Guests,
	locations Locations,
	creator RequestCreator,
	m *metrics.Metrics,
	topics Topics,
	qos byte,
	logger *zap.Logger,
) *ButtonConsumer {
	return &ButtonConsumer{
		broker:    broker,
		guests:    guests,
		locations: locations,
		creator:   creator,
		metrics:   m,
		topics:    topics,
		qos:       qos,
		logger:    logger,
	}
}

// Start subscribes and blocks until ctx is cancelled
func (c *ButtonConsumer) Start(ctx context.Context) error {
	if err := c.broker.Subscribe(c.topics.ButtonPress, c.qos, c.HandleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to button topic: %w", err)
	}
	c.logger.Info("Button consumer started", zap.String("topic", c.topics.ButtonPress))

	<-ctx.Done()
	return nil
}

// Stop unsubscribes
func (c *ButtonConsumer) Stop() {
	if err := c.broker.Unsubscribe(c.topics.ButtonPress); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}
	c.logger.Info("Button consumer stopped")
}

// HandleMessage processes one obedio/button/{deviceId}/press message
func (c *ButtonConsumer) HandleMessage(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) < 4 {
		return fmt.Errorf("invalid topic format: %s", topic)
	}

	var press models.ButtonPress
	if err := json.Unmarshal(payload, &press); err != nil {
		return fmt.Errorf("failed to unmarshal button press: %w", err)
	}
	press.DeviceID = parts[2]
	c.metrics.ButtonPress(string(press.PressType))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := c.Handle(ctx, press)
	if err != nil {
		return err
	}
	c.ack(press.DeviceID, req.ID)
	return nil
}

// Handle resolves guest and location for press and creates the request
func (c *ButtonConsumer) Handle(ctx context.Context, press models.ButtonPress) (*models.ServiceRequest, error) {
	var locationName string
	var guest *models.Guest

	if press.LocationID != nil && *press.LocationID != "" {
		loc, err := c.locations.GetLocation(ctx, *press.LocationID)
		switch {
		case err == nil:
			locationName = loc.Name
		case errors.Is(err, apperr.ErrNotFound):
			c.logger.Warn("Button location not found", zap.String("location_id", *press.LocationID))
		default:
			return nil, fmt.Errorf("resolve location: %w", err)
		}

		guest, err = c.guests.FindByLocation(ctx, *press.LocationID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("resolve guest: %w", err)
		}
	}
	if guest == nil && press.GuestID != nil && *press.GuestID != "" {
		g, err := c.guests.GetGuest(ctx, *press.GuestID)
		if err == nil {
			guest = g
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("resolve guest: %w", err)
		}
	}
	if guest == nil {
		c.logger.Info("No guest for button press, creating anonymous request", zap.String("device_id", press.DeviceID))
	}

	in := MapButtonPress(press, locationName, guest)
	req, err := c.creator.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create request from button %s: %w", press.DeviceID, err)
	}

	c.logger.Info("Service request created from button press",
		zap.String("device_id", press.DeviceID),
		zap.String("request_id", req.ID),
		zap.String("press_type", string(press.PressType)),
		zap.String("priority", string(req.Priority)),
	)
	return req, nil
}

func (c *ButtonConsumer) ack(deviceID, requestID string) {
	if c.topics.Command == "" {
		return
	}
	payload, _ := json.Marshal(map[string]string{
		"command":   "ack",
		"requestId": requestID,
		"status":    "received",
	})
	topic := fmt.Sprintf(c.topics.Command, deviceID)
	if err := c.broker.Publish(topic, c.qos, false, payload); err != nil {
		c.logger.Warn("Failed to acknowledge button press", zap.String("device_id", deviceID), zap.Error(err))
	}
}
