package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/xsense-integration/internal/pkg/config"
	"github.com/anicoll/xsense-integration/internal/pkg/entity"
	"github.com/anicoll/xsense-integration/internal/pkg/metrics"
	"github.com/anicoll/xsense-integration/internal/pkg/server"
	"github.com/anicoll/xsense-integration/pkg/hasher"
)

const cleanupSchedule = "0 3 * * *"

var errCron = errors.New("cron error")

// serve runs the poll schedule, history cleanup and HTTP API until ctx is cancelled or
// the cloud rejects the credentials. A nil store disables history.
func serve(ctx context.Context, cfg *config.Config, coord Coordinator, pub Publisher, store HistoryStore, hub Broadcaster, errorChan chan error, logger *zap.Logger) error {
	eg, ctx := errgroup.WithContext(ctx)

	tracker := entity.NewTracker(coord)
	states := tracker.States

	// polls and shadow messages notify from different goroutines. Each run reads the
	// snapshot and publishes it under the lock so a stale read never lands last.
	var publishMu sync.Mutex
	remove := coord.AddListener(func() {
		publishMu.Lock()
		defer publishMu.Unlock()

		current := states()
		metrics.SetEntities(len(current))
		if err := pub.PublishStates(ctx, current); err != nil {
			logger.Warn("failed to publish entity states", zap.Error(err))
		}
		body, err := json.Marshal(current)
		if err != nil {
			logger.Error("failed to encode entity states", zap.Error(err))
			return
		}
		hub.Broadcast(body)
	})
	defer remove()
	defer func() {
		_ = hub.Close()
		_ = coord.Close()
	}()

	eg.Go(func() error {
		return schedulePolls(ctx, coord, cfg.XSenseCfg.Interval(), errorChan)
	})

	if store != nil {
		eg.Go(func() error {
			return scheduleCleanup(ctx, store, cfg.DatabaseCfg.RetentionDays, errorChan)
		})
	}

	opts := []server.Option{
		server.WithWebsocket(hub),
		server.WithCredentials(hasher.Credentials{Username: cfg.HTTPCfg.Username, PasswordHash: cfg.HTTPCfg.PasswordHash}),
	}
	if store != nil {
		opts = append(opts, server.WithHistory(store))
	}
	srv := &http.Server{
		Handler:      server.New(coord, states, opts...).Handler(),
		Addr:         cfg.HTTPCfg.Addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	eg.Go(func() error {
		// handle any async errors from the schedules
		for {
			select {
			case err := <-errorChan:
				if isFatal(err) {
					logger.Error("credentials rejected, stopping", zap.Error(err))
					return err
				}
				if errors.Is(err, errCron) {
					logger.Error("cron error", zap.Error(err))
					continue
				}
				logger.Warn("update failed, keeping last snapshot", zap.Error(err))
			case <-ctx.Done():
				logger.Info("context done")
				return ctx.Err()
			}
		}
	})

	err := eg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// schedulePolls refreshes straight away and then on every interval. A cycle that is
// still running when the next one is due is skipped.
func schedulePolls(ctx context.Context, coord Coordinator, interval time.Duration, errChan chan error) error {
	refresh := func() {
		if err := coord.Refresh(ctx); err != nil && ctx.Err() == nil {
			errChan <- err
		}
	}
	refresh()

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", interval), refresh); err != nil {
		return err
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func scheduleCleanup(ctx context.Context, store HistoryStore, retentionDays int, errChan chan error) error {
	retention := time.Duration(retentionDays) * 24 * time.Hour
	cleanup := func() {
		removed, err := store.Cleanup(ctx, retention)
		if err != nil {
			if ctx.Err() == nil {
				errChan <- fmt.Errorf("%w: cleanup state history: %w", errCron, err)
			}
			return
		}
		zap.L().Info("cleaned up state history", zap.Int64("removed", removed))
	}
	cleanup()

	// CRON automation
	c := cron.New()
	if _, err := c.AddFunc(cleanupSchedule, cleanup); err != nil {
		return err
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
