package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anicoll/xsense-integration/internal/pkg/config"
	"github.com/anicoll/xsense-integration/internal/pkg/model"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  string
}

type fakeClient struct {
	paho_mqtt.Client

	mu           sync.Mutex
	connectErr   error
	publishErr   error
	disconnected bool
	messages     []message
}

func (f *fakeClient) Connect() paho_mqtt.Token {
	return &fakeToken{err: f.connectErr}
}

func (f *fakeClient) Disconnect(uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload any) paho_mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	var body string
	switch p := payload.(type) {
	case string:
		body = p
	case []byte:
		body = string(p)
	}
	f.messages = append(f.messages, message{topic: topic, qos: qos, retained: retained, payload: body})
	return &fakeToken{err: f.publishErr}
}

func testConfig() config.MqttConfig {
	return config.MqttConfig{Host: "localhost:1883", DiscoveryPrefix: "homeassistant", TopicPrefix: "xsense"}
}

func doorState() model.EntityState {
	return model.EntityState{
		UniqueID:      "s1_d1_door",
		Key:           "door",
		Name:          "Door",
		On:            true,
		Available:     true,
		DeviceClass:   model.DeviceClassDoor,
		LastRefreshed: time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC),
		Device: model.EntityDevice{
			SerialNumber:  "D1",
			Name:          "Front door",
			Model:         "SES01",
			StationSerial: "S1",
		},
	}
}

func TestConnect_PublishesOnline(t *testing.T) {
	client := &fakeClient{}
	svc := New(client, testConfig())

	require.NoError(t, svc.Connect())
	require.Len(t, client.messages, 1)
	assert.Equal(t, message{topic: "xsense/bridge/availability", qos: 1, retained: true, payload: "online"}, client.messages[0])
}

func TestConnect_Error(t *testing.T) {
	client := &fakeClient{connectErr: errors.New("refused")}
	svc := New(client, testConfig())

	assert.Error(t, svc.Connect())
	assert.Empty(t, client.messages)
}

func TestClose_PublishesOffline(t *testing.T) {
	client := &fakeClient{}
	svc := New(client, testConfig())

	require.NoError(t, svc.Close())
	assert.True(t, client.disconnected)
	assert.Equal(t, "offline", client.messages[0].payload)
}

func TestRegisterEntity(t *testing.T) {
	client := &fakeClient{}
	svc := New(client, testConfig())

	require.NoError(t, svc.RegisterEntity(doorState()))
	require.NoError(t, svc.RegisterEntity(doorState()))

	require.Len(t, client.messages, 1, "discovery config is only published once")
	msg := client.messages[0]
	assert.Equal(t, "homeassistant/binary_sensor/s1_d1_door/config", msg.topic)
	assert.True(t, msg.retained)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(msg.payload), &got))
	assert.Equal(t, "xsense/s1_d1_door", got["~"])
	assert.Equal(t, "s1_d1_door", got["unique_id"])
	assert.Equal(t, "~/state", got["state_topic"])
	assert.Equal(t, "~/attributes", got["json_attributes_topic"])
	assert.Equal(t, []any{
		map[string]any{"topic": "xsense/bridge/availability"},
		map[string]any{"topic": "xsense/s1_d1_door/availability"},
	}, got["availability"])
	assert.Equal(t, "all", got["availability_mode"])
	assert.Equal(t, "ON", got["payload_on"])
	assert.Equal(t, "OFF", got["payload_off"])
	assert.Equal(t, "door", got["device_class"])
	assert.NotContains(t, got, "entity_category")
	assert.NotContains(t, got, "icon")
	assert.Equal(t, map[string]any{
		"name":         "Front door",
		"identifiers":  []any{"S1_D1"},
		"model":        "SES01",
		"manufacturer": "X-Sense",
		"via_device":   "S1",
	}, got["device"])
}

func TestRegisterEntity_RetriedAfterFailure(t *testing.T) {
	client := &fakeClient{publishErr: errors.New("broken pipe")}
	svc := New(client, testConfig())

	require.Error(t, svc.RegisterEntity(doorState()))
	client.publishErr = nil
	require.NoError(t, svc.RegisterEntity(doorState()))
	assert.Len(t, client.messages, 2)
}

func TestWrite(t *testing.T) {
	client := &fakeClient{}
	svc := New(client, testConfig())
	off := doorState()
	off.UniqueID = "s1_d2_door"
	off.On = false

	require.NoError(t, svc.Write(context.Background(), []model.EntityState{doorState(), off}))

	require.Len(t, client.messages, 6)
	assert.Equal(t, message{topic: "xsense/s1_d1_door/availability", retained: true, payload: "online"}, client.messages[0])
	assert.Equal(t, message{topic: "xsense/s1_d1_door/state", retained: true, payload: "ON"}, client.messages[1])
	assert.Equal(t, "xsense/s1_d1_door/attributes", client.messages[2].topic)
	assert.JSONEq(t, `{"last_refreshed":"2024-03-05T14:07:09Z"}`, client.messages[2].payload)
	assert.Equal(t, message{topic: "xsense/s1_d2_door/state", retained: true, payload: "OFF"}, client.messages[4])
}

func TestWrite_UnavailableEntityOnlyGoesOffline(t *testing.T) {
	client := &fakeClient{}
	svc := New(client, testConfig())
	gone := doorState()
	gone.Available = false

	require.NoError(t, svc.Write(context.Background(), []model.EntityState{gone}))

	require.Len(t, client.messages, 1)
	assert.Equal(t, message{topic: "xsense/s1_d1_door/availability", retained: true, payload: "offline"}, client.messages[0])
}

func TestRegisterEntity_StationIdentifier(t *testing.T) {
	client := &fakeClient{}
	svc := New(client, testConfig())
	station := doorState()
	station.UniqueID = "s1_alarm_status"
	station.Device = model.EntityDevice{SerialNumber: "S1", Name: "Hall"}

	require.NoError(t, svc.RegisterEntity(station))

	var got model.RegisterMessage
	require.NoError(t, json.Unmarshal([]byte(client.messages[0].payload), &got))
	assert.Equal(t, []string{"S1"}, got.Device.Identifiers)
	assert.Empty(t, got.Device.ViaDevice)
}

func TestWrite_StopsOnCancelledContext(t *testing.T) {
	client := &fakeClient{}
	svc := New(client, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, svc.Write(ctx, []model.EntityState{doorState()}), context.Canceled)
	assert.Empty(t, client.messages)
}

func TestNewClientOptions(t *testing.T) {
	opts := NewClientOptions(testConfig())

	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "tcp://localhost:1883", opts.Servers[0].String())
	assert.True(t, opts.WillEnabled)
	assert.Equal(t, "xsense/bridge/availability", opts.WillTopic)
	assert.Equal(t, []byte("offline"), opts.WillPayload)
	assert.True(t, opts.WillRetained)
	assert.Contains(t, opts.ClientID, "xsense-")
}
