package coordinator

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/xsense-integration/internal/pkg/model"
	"github.com/anicoll/xsense-integration/internal/pkg/shadow"
)

// Cloud is the vendor API surface the coordinator polls. State calls fill in the
// attributes of the objects they are given.
type Cloud interface {
	Authenticated() bool
	Login(ctx context.Context) error
	UserID() string
	LoadAll(ctx context.Context) ([]*model.House, error)
	HouseState(ctx context.Context, house *model.House) error
	StationState(ctx context.Context, station *model.Station) error
	DeviceStates(ctx context.Context, station *model.Station) error
}

// Broker is the shadow MQTT connection of one house broker.
type Broker interface {
	Connect(ctx context.Context) error
	Connected() bool
	IsSubscribed(topic string) bool
	Subscribe(topic string, qos byte, handler shadow.MessageHandler) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Close() error
}

type BrokerFactory func(house *model.House) Broker

type Options struct {
	// AuthRetries is how many times a fetch is retried after logging in again.
	AuthRetries int
	// RealtimeTimeout is how long, in minutes, stations keep reporting after a request.
	RealtimeTimeout int
	RealtimeTypes   []model.DeviceType
}

// Coordinator keeps one consistent snapshot of every house, station and device,
// refreshed by polling the cloud and patched by shadow reports in between.
type Coordinator struct {
	cloud     Cloud
	newBroker BrokerFactory
	opts      Options
	logger    *zap.Logger
	now       func() time.Time

	mu          sync.RWMutex
	houses      []*model.House
	snapshot    *model.Snapshot
	lastErr     error
	lastRequest time.Time

	brokerMu sync.Mutex
	brokers  map[string]Broker

	listenerMu   sync.RWMutex
	listeners    map[int]func()
	nextListener int
}

func New(cloud Cloud, newBroker BrokerFactory, opts Options) *Coordinator {
	if len(opts.RealtimeTypes) == 0 {
		opts.RealtimeTypes = model.RealtimeDeviceTypes
	}
	return &Coordinator{
		cloud:     cloud,
		newBroker: newBroker,
		opts:      opts,
		logger:    zap.L(), // returns the global logger.
		now:       time.Now,
		snapshot:  model.NewSnapshot(nil, time.Time{}),
		brokers:   map[string]Broker{},
		listeners: map[int]func(){},
	}
}

// AddListener registers fn to be called after every poll and every shadow report.
// The returned func removes it again.
func (c *Coordinator) AddListener(fn func()) func() {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	return func() {
		c.listenerMu.Lock()
		delete(c.listeners, id)
		c.listenerMu.Unlock()
	}
}

func (c *Coordinator) notify() {
	c.listenerMu.RLock()
	ids := lo.Keys(c.listeners)
	slices.Sort(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.listeners[id])
	}
	c.listenerMu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// Snapshot returns a copy of the current view.
func (c *Coordinator) Snapshot() *model.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot.Clone()
}

func (c *Coordinator) Station(id string) (*model.Station, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.snapshot.Stations[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

func (c *Coordinator) Device(id string) (*model.Device, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.snapshot.Devices[id]
	if !ok {
		return nil, false
	}
	return d.Clone(), true
}

func (c *Coordinator) LastRefreshed() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot.LastRefreshed
}

// LastError is the error of the most recent poll, nil after a successful one.
func (c *Coordinator) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// BrokerConnected reports the connection state of the broker serving the house of the station.
func (c *Coordinator) BrokerConnected(stationID string) bool {
	c.mu.RLock()
	var server string
	if s, ok := c.snapshot.Stations[stationID]; ok {
		if h, ok := lo.Find(c.houses, func(h *model.House) bool { return h.ID == s.HouseID }); ok {
			server = h.MQTTServer
		}
	}
	c.mu.RUnlock()

	broker := c.broker(server)
	return broker != nil && broker.Connected()
}

func (c *Coordinator) broker(server string) Broker {
	c.brokerMu.Lock()
	defer c.brokerMu.Unlock()
	return c.brokers[server]
}

// Close disconnects every shadow broker.
func (c *Coordinator) Close() error {
	c.brokerMu.Lock()
	defer c.brokerMu.Unlock()
	for server, b := range c.brokers {
		if err := b.Close(); err != nil {
			c.logger.Warn("failed to close shadow broker", zap.String("mqtt_server", server), zap.Error(err))
		}
	}
	clear(c.brokers)
	return nil
}

func sortedStations(h *model.House) []*model.Station {
	ids := lo.Keys(h.Stations)
	slices.Sort(ids)
	return lo.Map(ids, func(id string, _ int) *model.Station { return h.Stations[id] })
}
