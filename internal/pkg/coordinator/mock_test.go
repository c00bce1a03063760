package coordinator

import (
	"context"
	"sync"

	"github.com/anicoll/xsense-integration/internal/pkg/model"
	"github.com/anicoll/xsense-integration/internal/pkg/shadow"
)

// MockCloud is a Cloud whose behaviour is set per test through the func fields.
type MockCloud struct {
	mu sync.Mutex

	authenticated bool
	userID        string
	logins        int
	loads         int

	LoginFunc        func(ctx context.Context) error
	LoadAllFunc      func(ctx context.Context) ([]*model.House, error)
	HouseStateFunc   func(ctx context.Context, house *model.House) error
	StationStateFunc func(ctx context.Context, station *model.Station) error
	DeviceStatesFunc func(ctx context.Context, station *model.Station) error
}

func (m *MockCloud) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authenticated
}

func (m *MockCloud) Login(ctx context.Context) error {
	m.mu.Lock()
	m.logins++
	m.mu.Unlock()
	if m.LoginFunc != nil {
		if err := m.LoginFunc(ctx); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.authenticated = true
	m.mu.Unlock()
	return nil
}

func (m *MockCloud) UserID() string {
	return m.userID
}

func (m *MockCloud) LoadAll(ctx context.Context) ([]*model.House, error) {
	m.mu.Lock()
	m.loads++
	m.mu.Unlock()
	if m.LoadAllFunc != nil {
		return m.LoadAllFunc(ctx)
	}
	return nil, nil
}

func (m *MockCloud) HouseState(ctx context.Context, house *model.House) error {
	if m.HouseStateFunc != nil {
		return m.HouseStateFunc(ctx, house)
	}
	return nil
}

func (m *MockCloud) StationState(ctx context.Context, station *model.Station) error {
	if m.StationStateFunc != nil {
		return m.StationStateFunc(ctx, station)
	}
	return nil
}

func (m *MockCloud) DeviceStates(ctx context.Context, station *model.Station) error {
	if m.DeviceStatesFunc != nil {
		return m.DeviceStatesFunc(ctx, station)
	}
	return nil
}

type publishCall struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// MockBroker records every call made by the coordinator.
type MockBroker struct {
	mu sync.Mutex

	connects     bool
	connected    bool
	connectErr   error
	connectCalls int
	subscribed   map[string]shadow.MessageHandler
	subCalls     []string
	publishCalls []publishCall
	closed       bool
}

// newMockBroker starts disconnected; connects decides whether Connect opens the connection.
func newMockBroker(connects bool) *MockBroker {
	return &MockBroker{connects: connects, subscribed: map[string]shadow.MessageHandler{}}
}

func (b *MockBroker) Connect(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connectCalls++
	if b.connectErr != nil {
		return b.connectErr
	}
	b.connected = b.connects
	return nil
}

func (b *MockBroker) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *MockBroker) IsSubscribed(topic string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.subscribed[topic]
	return ok
}

func (b *MockBroker) Subscribe(topic string, _ byte, handler shadow.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subCalls = append(b.subCalls, topic)
	b.subscribed[topic] = handler
	return nil
}

func (b *MockBroker) Publish(topic string, payload []byte, qos byte, retained bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.publishCalls = append(b.publishCalls, publishCall{topic: topic, payload: payload, qos: qos, retained: retained})
	return nil
}

func (b *MockBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
