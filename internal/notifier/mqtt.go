package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/apperr"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
)

// MQTTClient the subset of common/mqtt.Client used for watch updates
type MQTTClient interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// WatchTopics where request announcements and status updates go
type WatchTopics struct {
	Request string
	Update  string
}

// MQTTPublisher tells crew watches about new requests and status changes.
// Events other than request transitions are ignored.
type MQTTPublisher struct {
	client MQTTClient
	topics WatchTopics
	qos    byte
}

func NewMQTTPublisher(client MQTTClient, topics WatchTopics, qos byte) *MQTTPublisher {
	return &MQTTPublisher{client: client, topics: topics, qos: qos}
}

type watchAnnouncement struct {
	ID        string `json:"id"`
	Location  string `json:"location"`
	Guest     string `json:"guest"`
	Priority  string `json:"priority"`
	Timestamp string `json:"timestamp"`
}

type watchUpdate struct {
	RequestID      string `json:"requestId"`
	Status         string `json:"status"`
	AssignedTo     string `json:"assignedTo,omitempty"`
	AcknowledgedAt string `json:"acknowledgedAt,omitempty"`
	CompletedAt    string `json:"completedAt,omitempty"`
}

func (p *MQTTPublisher) Publish(_ context.Context, ev models.Event) error {
	topic, payload := p.message(ev)
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := p.client.Publish(topic, p.qos, false, data); err != nil {
		return apperr.Transient("publish to "+topic, err)
	}
	return nil
}

func (p *MQTTPublisher) message(ev models.Event) (string, any) {
	req := ev.Request
	switch ev.Type {
	case models.EventRequestCreated:
		if req == nil {
			return "", nil
		}
		return p.topics.Request, watchAnnouncement{
			ID:        req.ID,
			Location:  req.GuestCabin,
			Guest:     req.GuestName,
			Priority:  string(req.Priority),
			Timestamp: ev.At.UTC().Format(time.RFC3339),
		}
	case models.EventRequestAccepted, models.EventRequestDelegated:
		if req == nil {
			return "", nil
		}
		u := watchUpdate{RequestID: req.ID, Status: "serving", AssignedTo: req.AssignedTo}
		if req.AcceptedAt != nil {
			u.AcknowledgedAt = req.AcceptedAt.UTC().Format(time.RFC3339)
		}
		return p.topics.Update, u
	case models.EventRequestCompleted:
		if req == nil {
			return "", nil
		}
		u := watchUpdate{RequestID: req.ID, Status: string(models.StatusCompleted), AssignedTo: req.AssignedTo}
		if req.CompletedAt != nil {
			u.CompletedAt = req.CompletedAt.UTC().Format(time.RFC3339)
		}
		return p.topics.Update, u
	case models.EventRequestCancelled, models.EventRequestRemoved:
		return p.topics.Update, watchUpdate{RequestID: ev.RequestID, Status: "cleared"}
	}
	return "", nil
}
