package consumer_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/debranko/obedio-yacht-crew-management-sub003/common/mqtt"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/consumer"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/metrics"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/repository"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/request"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

func TestMapButtonPress(t *testing.T) {
	tests := []struct {
		name     string
		press    models.ButtonPress
		priority models.Priority
		reqType  models.RequestType
	}{
		{"single main", models.ButtonPress{PressType: models.PressSingle}, models.PriorityNormal, models.RequestCall},
		{"double main", models.ButtonPress{PressType: models.PressDouble}, models.PriorityUrgent, models.RequestCall},
		{"shake", models.ButtonPress{PressType: models.PressShake, Button: "aux2"}, models.PriorityEmergency, models.RequestEmergency},
		{"long", models.ButtonPress{PressType: models.PressLong}, models.PriorityNormal, models.RequestVoice},
		{"aux1", models.ButtonPress{Button: "aux1", PressType: models.PressSingle}, models.PriorityNormal, models.RequestDND},
		{"aux2", models.ButtonPress{Button: "aux2"}, models.PriorityNormal, models.RequestLights},
		{"aux3", models.ButtonPress{Button: "aux3"}, models.PriorityNormal, models.RequestPrepareFood},
		{"aux4 double", models.ButtonPress{Button: "aux4", PressType: models.PressDouble}, models.PriorityNormal, models.RequestBringDrinks},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := consumer.MapButtonPress(tt.press, "Cabin 3", nil)
			assert.Equal(t, tt.priority, in.Priority)
			assert.Equal(t, tt.reqType, in.RequestType)
		})
	}
}

func TestMapButtonPress_GuestAndNotes(t *testing.T) {
	press := models.ButtonPress{DeviceID: "BTN-1", Button: "main", PressType: models.PressSingle, Battery: 87, RSSI: -61, Firmware: "v1.2.0", Emergency: true}
	guest := &models.Guest{ID: "g1", Name: "Mr. Reed"}

	in := consumer.MapButtonPress(press, "Owner Suite", guest)
	assert.Equal(t, "Mr. Reed", in.GuestName)
	require.NotNil(t, in.GuestID)
	assert.Equal(t, "g1", *in.GuestID)
	assert.Equal(t, "Owner Suite", in.GuestCabin)
	assert.True(t, in.Emergency)
	assert.Contains(t, in.Notes, "Service requested from Owner Suite")
	assert.Contains(t, in.Notes, "- Battery: 87%")
	assert.Contains(t, in.Notes, "- Signal: -61 dBm")
	assert.Contains(t, in.Notes, "- Firmware: v1.2.0")

	anon := consumer.MapButtonPress(models.ButtonPress{}, "", nil)
	assert.Equal(t, "Guest", anon.GuestName)
	assert.Equal(t, "Unknown", anon.GuestCabin)
	assert.Contains(t, anon.Notes, "- Button: main")
	assert.Contains(t, anon.Notes, "- Press Type: single")
}

type fakeBroker struct {
	mu        sync.Mutex
	handler   mqtt.MessageHandler
	published map[string][]byte
}

func (b *fakeBroker) Subscribe(_ string, _ byte, h mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
	return nil
}

func (b *fakeBroker) Unsubscribe(...string) error { return nil }

func (b *fakeBroker) Publish(topic string, _ byte, _ bool, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.published == nil {
		b.published = map[string][]byte{}
	}
	b.published[topic] = payload
	return nil
}

type failingCreator struct{}

func (failingCreator) Create(context.Context, request.CreateInput) (*models.ServiceRequest, error) {
	return nil, errors.New("store unavailable")
}

func newLifecycle() (*request.Lifecycle, *repository.MemoryRequestsRepo) {
	repo := repository.NewMemoryRequestsRepo()
	return request.NewLifecycle(repo, repo, nopPublisher{}, nil, request.Config{}, zap.NewNop()), repo
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, models.Event) error { return nil }

func TestButtonConsumer_CreatesRequestAndAcks(t *testing.T) {
	guests := repository.NewMemoryGuestsRepo()
	guests.PutLocation(models.Location{ID: "loc-1", Name: "Owner Suite"})
	guests.PutGuest(models.Guest{ID: "g1", Name: "Mr. Reed", Status: models.GuestOnboard, LocationID: strPtr("loc-1")})

	lc, _ := newLifecycle()
	broker := &fakeBroker{}
	m := metrics.New()
	c := consumer.NewButtonConsumer(broker, guests, guests, lc, m,
		consumer.Topics{ButtonPress: "obedio/button/+/press", Command: "obedio/device/%s/command"}, 1, zap.NewNop())

	payload, err := json.Marshal(models.ButtonPress{LocationID: strPtr("loc-1"), PressType: models.PressShake})
	require.NoError(t, err)
	require.NoError(t, c.HandleMessage("obedio/button/BTN-7/press", payload))

	active := lc.Active()
	require.Len(t, active, 1)
	req := active[0]
	assert.Equal(t, models.PriorityEmergency, req.Priority)
	assert.Equal(t, "Mr. Reed", req.GuestName)
	assert.Equal(t, "Owner Suite", req.GuestCabin)
	assert.Equal(t, "BTN-7", req.DeviceID)

	var ack map[string]string
	require.NoError(t, json.Unmarshal(broker.published["obedio/device/BTN-7/command"], &ack))
	assert.Equal(t, "ack", ack["command"])
	assert.Equal(t, req.ID, ack["requestId"])
}

func TestButtonConsumer_UnknownLocationIsAnonymous(t *testing.T) {
	guests := repository.NewMemoryGuestsRepo()
	lc, _ := newLifecycle()
	c := consumer.NewButtonConsumer(&fakeBroker{}, guests, guests, lc, nil, consumer.Topics{}, 0, zap.NewNop())

	req, err := c.Handle(context.Background(), models.ButtonPress{DeviceID: "BTN-2", LocationID: strPtr("nowhere"), Cabin: "Deck 2"})
	require.NoError(t, err)
	assert.Equal(t, "Guest", req.GuestName)
	assert.Equal(t, "Deck 2", req.GuestCabin)
	assert.Nil(t, req.GuestID)
}

func TestButtonConsumer_GuestFromPayload(t *testing.T) {
	guests := repository.NewMemoryGuestsRepo()
	guests.PutGuest(models.Guest{ID: "g2", Name: "Ms. Lane", Status: models.GuestOnboard})
	lc, _ := newLifecycle()
	c := consumer.NewButtonConsumer(&fakeBroker{}, guests, guests, lc, nil, consumer.Topics{}, 0, zap.NewNop())

	req, err := c.Handle(context.Background(), models.ButtonPress{GuestID: strPtr("g2")})
	require.NoError(t, err)
	assert.Equal(t, "Ms. Lane", req.GuestName)
}

func TestButtonConsumer_Errors(t *testing.T) {
	guests := repository.NewMemoryGuestsRepo()
	c := consumer.NewButtonConsumer(&fakeBroker{}, guests, guests, failingCreator{}, nil, consumer.Topics{}, 0, zap.NewNop())

	assert.Error(t, c.HandleMessage("obedio/button", []byte(`{}`)))
	assert.Error(t, c.HandleMessage("obedio/button/BTN-1/press", []byte(`not json`)))

	err := c.HandleMessage("obedio/button/BTN-1/press", []byte(`{"pressType":"single"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unavailable")
}

func TestButtonConsumer_StartSubscribes(t *testing.T) {
	broker := &fakeBroker{}
	guests := repository.NewMemoryGuestsRepo()
	lc, _ := newLifecycle()
	c := consumer.NewButtonConsumer(broker, guests, guests, lc, nil, consumer.Topics{ButtonPress: "obedio/button/+/press"}, 1, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, c.Start(ctx))
	broker.mu.Lock()
	defer broker.mu.Unlock()
	assert.NotNil(t, broker.handler)
	c.Stop()
}
