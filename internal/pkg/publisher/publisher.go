package publisher

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/xsense-integration/internal/pkg/model"
)

var errAlreadyRegistered = errors.New("publisher already registered")

type publisher interface {
	// Write publishes entity states to the adapter
	Write(ctx context.Context, states []model.EntityState) error
	RegisterEntity(state model.EntityState) error
}

// Registry fans entity states out to every registered publisher, skipping states
// whose value, availability and refresh time have not changed since they were last
// published.
type Registry struct {
	mu         sync.RWMutex
	publishers map[string]publisher
	sensors    sync.Map
}

func New() *Registry {
	return &Registry{publishers: map[string]publisher{}}
}

func (r *Registry) RegisterPublisher(name string, p publisher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.publishers[name]; ok {
		return errAlreadyRegistered
	}
	r.publishers[name] = p
	return nil
}

// PublishStates registers every entity and writes the states that changed. Failing
// publishers are logged and skipped.
func (r *Registry) PublishStates(ctx context.Context, states []model.EntityState) error {
	for _, st := range states {
		r.RegisterEntity(st)
	}

	changed := lo.Filter(states, func(st model.EntityState, _ int) bool {
		return r.shouldUpdate(st.UniqueID, fingerprint(st))
	})
	if len(changed) == 0 {
		return nil
	}

	for _, name := range r.names() {
		p := r.get(name)
		if err := p.Write(ctx, changed); err != nil {
			zap.L().Error("failed to publish data", zap.Error(err), zap.String("publisher", name))
			// publish again next time
			for _, st := range changed {
				r.sensors.Delete(st.UniqueID)
			}
			continue
		}
		zap.L().Debug("updated sensors", zap.Int("count", len(changed)), zap.String("publisher", name))
	}
	return ctx.Err()
}

func (r *Registry) RegisterEntity(state model.EntityState) {
	for _, name := range r.names() {
		if err := r.get(name).RegisterEntity(state); err != nil {
			zap.L().Error("failed to register entity", zap.Error(err), zap.String("entity", state.UniqueID), zap.String("publisher", name))
			continue
		}
	}
}

func (r *Registry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := lo.Keys(r.publishers)
	slices.Sort(names)
	return names
}

func (r *Registry) get(name string) publisher {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.publishers[name]
}

func (r *Registry) shouldUpdate(uniqueID, newValue string) bool {
	oldValue, exists := r.sensors.Load(uniqueID)
	if exists && newValue == oldValue.(string) {
		return false
	}
	if !exists {
		zap.L().Info("configured sensor", zap.String("entity", uniqueID), zap.String("value", newValue))
	} else {
		zap.L().Debug("sensor changed", zap.String("entity", uniqueID), zap.String("from", oldValue.(string)), zap.String("to", newValue))
	}
	r.sensors.Store(uniqueID, newValue)
	return true
}

// fingerprint covers everything a publisher writes for a state. The refresh time is
// cut to the second, which is what the attributes carry.
func fingerprint(st model.EntityState) string {
	return fmt.Sprintf("%s|%t|%s", st.Value(), st.Available, st.LastRefreshed.UTC().Format(time.RFC3339))
}
