package cmd

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anicoll/xsense-integration/internal/pkg/model"
)

// MockCoordinator is a Coordinator serving a fixed snapshot.
type MockCoordinator struct {
	mu        sync.Mutex
	snap      *model.Snapshot
	listeners []func()
	refreshes int
	closed    bool

	RefreshFunc func(ctx context.Context) error
}

func newMockCoordinator() *MockCoordinator {
	station := &model.Station{
		ID:           "st-1",
		SerialNumber: "S1",
		Data:         map[string]any{},
		Devices: map[string]*model.Device{
			"dev-1": {ID: "dev-1", SerialNumber: "D1", StationID: "st-1", Data: map[string]any{"isOpen": "1"}},
		},
	}
	house := &model.House{ID: "H1", Stations: map[string]*model.Station{"st-1": station}}
	return &MockCoordinator{snap: model.NewSnapshot([]*model.House{house}, time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC))}
}

func (m *MockCoordinator) Refresh(ctx context.Context) error {
	m.mu.Lock()
	m.refreshes++
	listeners := append([]func(){}, m.listeners...)
	m.mu.Unlock()

	if m.RefreshFunc != nil {
		if err := m.RefreshFunc(ctx); err != nil {
			return err
		}
	}
	for _, fn := range listeners {
		fn()
	}
	return nil
}

func (m *MockCoordinator) Refreshes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshes
}

func (m *MockCoordinator) AddListener(fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
	return func() {}
}

func (m *MockCoordinator) Snapshot() *model.Snapshot { return m.snap.Clone() }

func (m *MockCoordinator) Station(id string) (*model.Station, bool) {
	s, ok := m.snap.Stations[id]
	return s, ok
}

func (m *MockCoordinator) Device(id string) (*model.Device, bool) {
	d, ok := m.snap.Devices[id]
	return d, ok
}

func (m *MockCoordinator) BrokerConnected(string) bool { return true }
func (m *MockCoordinator) LastRefreshed() time.Time  { return m.snap.LastRefreshed }
func (m *MockCoordinator) LastError() error          { return nil }

func (m *MockCoordinator) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type MockPublisher struct {
	mu     sync.Mutex
	states [][]model.EntityState

	// Delay holds every call open, Overlaps counts calls that started while another was running.
	Delay    time.Duration
	inflight atomic.Int32
	Overlaps atomic.Int32
}

func (m *MockPublisher) PublishStates(_ context.Context, states []model.EntityState) error {
	if m.inflight.Add(1) > 1 {
		m.Overlaps.Add(1)
	}
	defer m.inflight.Add(-1)
	time.Sleep(m.Delay)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, states)
	return nil
}

func (m *MockPublisher) Calls() [][]model.EntityState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]model.EntityState{}, m.states...)
}

type MockStore struct {
	mu       sync.Mutex
	cleanups []time.Duration
}

func (m *MockStore) History(context.Context, string, time.Time) ([]model.StateRecord, error) {
	return nil, nil
}

func (m *MockStore) LatestStates(context.Context) ([]model.StateRecord, error) {
	return nil, nil
}

func (m *MockStore) Ping(context.Context) error { return nil }

func (m *MockStore) Cleanup(_ context.Context, retention time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanups = append(m.cleanups, retention)
	return 0, nil
}

func (m *MockStore) Cleanups() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration{}, m.cleanups...)
}

type MockBroadcaster struct {
	mu     sync.Mutex
	bodies []string
	closed bool
}

func (m *MockBroadcaster) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (m *MockBroadcaster) Broadcast(body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies = append(m.bodies, string(body))
}

func (m *MockBroadcaster) Bodies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.bodies...)
}

func (m *MockBroadcaster) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
