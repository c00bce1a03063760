package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/xsense-integration/internal/pkg/metrics"
	"github.com/anicoll/xsense-integration/internal/pkg/model"
	"github.com/anicoll/xsense-integration/internal/pkg/xsense"
)

// Refresh runs one poll cycle: session, topology and state, then per house the
// shadow connection, its subscriptions and a realtime request. Only cloud errors fail
// the cycle; shadow problems are logged and left to the next cycle.
func (c *Coordinator) Refresh(ctx context.Context) error {
	start := time.Now()

	houses, err := c.fetch(ctx)
	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()

		result := metrics.ResultUpdateFailed
		if errors.Is(err, ErrReauthRequired) {
			result = metrics.ResultReauth
		}
		metrics.ObservePoll(result, time.Since(start))
		return err
	}

	c.mu.Lock()
	refreshed := c.now()
	if prev := c.snapshot.LastRefreshed; refreshed.Before(prev) {
		refreshed = prev
	}
	c.houses = houses
	c.snapshot = model.NewSnapshot(houses, refreshed)
	c.lastErr = nil
	c.mu.Unlock()

	for _, h := range houses {
		logger := c.logger.With(zap.String("house_id", h.ID), zap.String("mqtt_server", h.MQTTServer))

		broker, err := c.EnsureMQTT(ctx, h)
		if err != nil {
			logger.Warn("failed to connect to shadow broker", zap.Error(err))
		}
		if broker == nil {
			continue
		}
		if err := c.EnsureSubscriptions(h); err != nil {
			logger.Warn("failed to subscribe to shadow topics", zap.Error(err))
		}
		if broker.Connected() {
			if err := c.RequestRealtimeUpdates(h); err != nil {
				logger.Warn("failed to request realtime updates", zap.Error(err))
			}
		}
	}

	metrics.ObservePoll(metrics.ResultSuccess, time.Since(start))
	c.logger.Debug("poll cycle complete", zap.Int("houses", len(houses)), zap.Duration("took", time.Since(start)))
	c.notify()
	return nil
}

// fetch loads topology and state, logging in again at most AuthRetries times when
// the session is rejected.
func (c *Coordinator) fetch(ctx context.Context) ([]*model.House, error) {
	if !c.cloud.Authenticated() {
		if err := c.login(ctx); err != nil {
			return nil, err
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.AuthRetries; attempt++ {
		if attempt > 0 {
			c.logger.Info("session no longer valid, logging in again", zap.Int("attempt", attempt), zap.Error(lastErr))
			if err := c.login(ctx); err != nil {
				return nil, err
			}
		}

		houses, err := c.loadState(ctx)
		if err == nil {
			return houses, nil
		}
		if !isSessionError(err) {
			return nil, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: session no longer valid: %w", ErrReauthRequired, lastErr)
}

func (c *Coordinator) login(ctx context.Context) error {
	if err := c.cloud.Login(ctx); err != nil {
		if errors.Is(err, xsense.ErrAuthFailed) {
			return fmt.Errorf("%w: login failed: %w", ErrReauthRequired, err)
		}
		return fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}
	return nil
}

func isSessionError(err error) bool {
	return errors.Is(err, xsense.ErrSessionExpired) || errors.Is(err, xsense.ErrAuthFailed)
}

func (c *Coordinator) loadState(ctx context.Context) ([]*model.House, error) {
	houses, err := c.cloud.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, h := range houses {
		if err := c.cloud.HouseState(ctx, h); err != nil {
			if !errors.Is(err, xsense.ErrNotFound) {
				return nil, err
			}
			c.logger.Debug("house has no state", zap.String("house_id", h.ID))
		}
		for _, s := range sortedStations(h) {
			if err := c.cloud.StationState(ctx, s); err != nil {
				return nil, err
			}
			if err := c.cloud.DeviceStates(ctx, s); err != nil {
				return nil, err
			}
		}
	}
	return houses, nil
}
