package shadow

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anicoll/xsense-integration/internal/pkg/model"
)

// MessageHandler receives every message on a subscribed topic. Returned errors are logged.
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// Client is the connection to the shadow broker of one house. Subscriptions are
// remembered and restored whenever the connection comes back.
type Client struct {
	server string
	client pahomqtt.Client
	logger *zap.Logger

	subscriptions map[string]subscription
	subMu         sync.RWMutex
}

func New(house *model.House) *Client {
	c := &Client{
		server:        house.MQTTServer,
		logger:        zap.L().With(zap.String("mqtt_server", house.MQTTServer)),
		subscriptions: make(map[string]subscription),
	}

	opts := buildClientOptions(house, "xsense-"+uuid.NewString())
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.logger.Warn("shadow connection lost", zap.Error(err))
	})
	c.client = pahomqtt.NewClient(opts)
	return c
}

func newWithClient(server string, client pahomqtt.Client) *Client {
	return &Client{
		server:        server,
		client:        client,
		logger:        zap.L(),
		subscriptions: make(map[string]subscription),
	}
}

// Connect dials the broker unless a connection is already open.
func (c *Client) Connect(ctx context.Context) error {
	if c.client.IsConnectionOpen() {
		return nil
	}
	token := c.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrConnectionFailed, ctx.Err())
	case <-time.After(defaultConnectTimeout):
		return fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	// with auto reconnect a dial can still be in flight after the token completes.
	if !c.client.IsConnectionOpen() {
		c.logger.Debug("shadow broker connection pending", zap.String("server", c.server))
		return nil
	}
	c.logger.Info("connected to shadow broker", zap.String("server", c.server))
	return nil
}

// Connected reports whether the connection is currently open.
func (c *Client) Connected() bool {
	return c.client.IsConnectionOpen()
}

func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	return nil
}

func (c *Client) handleConnect() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, sub := range c.subscriptions {
		token := c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
		if token.WaitTimeout(defaultOperationTimeout) && token.Error() != nil {
			c.logger.Warn("failed to restore subscription", zap.String("topic", sub.topic), zap.Error(token.Error()))
		}
	}
}

func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("shadow handler panic recovered", zap.String("topic", msg.Topic()), zap.Any("panic", r))
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.logger.Warn("shadow handler returned error", zap.String("topic", msg.Topic()), zap.Error(err))
		}
	}
}
