package mqtt

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/anicoll/xsense-integration/internal/pkg/config"
)

const (
	availabilityOnline  = "online"
	availabilityOffline = "offline"

	connectTimeout = 5 * time.Second
	publishTimeout = 10 * time.Second
)

var errTimeout = errors.New("timed out waiting for broker")

type service struct {
	client          paho_mqtt.Client
	discoveryPrefix string
	topicPrefix     string

	mu         sync.Mutex
	configured map[string]struct{}
}

func New(client paho_mqtt.Client, cfg config.MqttConfig) *service {
	return &service{
		client:          client,
		discoveryPrefix: strings.TrimSuffix(cfg.DiscoveryPrefix, "/"),
		topicPrefix:     strings.TrimSuffix(cfg.TopicPrefix, "/"),
		configured:      map[string]struct{}{},
	}
}

// NewClientOptions builds the options of the Home Assistant side connection. The broker
// marks the bridge offline when the connection drops.
func NewClientOptions(cfg config.MqttConfig) *paho_mqtt.ClientOptions {
	host := cfg.Host
	if !strings.Contains(host, "://") {
		host = "tcp://" + host
	}
	opts := paho_mqtt.NewClientOptions().
		AddBroker(host).
		SetClientID("xsense-" + uuid.NewString()).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetWill(availabilityTopic(strings.TrimSuffix(cfg.TopicPrefix, "/")), availabilityOffline, 1, true)
	return opts
}

// Connect connects and announces the bridge as online.
func (s *service) Connect() error {
	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("connect: %w", errTimeout)
	}
	if err := token.Error(); err != nil {
		return err
	}
	return s.publish(availabilityTopic(s.topicPrefix), 1, true, availabilityOnline)
}

// Close announces the bridge as offline and disconnects.
func (s *service) Close() error {
	err := s.publish(availabilityTopic(s.topicPrefix), 1, true, availabilityOffline)
	s.client.Disconnect(250)
	return err
}

func (s *service) publish(topic string, qos byte, retained bool, payload any) error {
	token := s.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: %w", topic, errTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func availabilityTopic(prefix string) string {
	return prefix + "/bridge/availability"
}
