package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/anicoll/xsense-integration/internal/pkg/entity"
	"github.com/anicoll/xsense-integration/internal/pkg/model"
)

// Coordinator defines what serve expects from the update coordinator.
type Coordinator interface {
	entity.Source
	Refresh(ctx context.Context) error
	AddListener(fn func()) func()
	LastError() error
	Close() error
}

// Publisher receives the entity states after every update.
type Publisher interface {
	PublishStates(ctx context.Context, states []model.EntityState) error
}

// HistoryStore is the optional state history.
type HistoryStore interface {
	History(ctx context.Context, uniqueID string, since time.Time) ([]model.StateRecord, error)
	LatestStates(ctx context.Context) ([]model.StateRecord, error)
	Ping(ctx context.Context) error
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

// Broadcaster pushes entity states to websocket clients.
type Broadcaster interface {
	http.Handler
	Broadcast(body []byte)
	Close() error
}
