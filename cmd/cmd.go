package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/anicoll/xsense-integration/internal/pkg/config"
	"github.com/anicoll/xsense-integration/internal/pkg/coordinator"
	"github.com/anicoll/xsense-integration/internal/pkg/database"
	"github.com/anicoll/xsense-integration/internal/pkg/database/migration"
	"github.com/anicoll/xsense-integration/internal/pkg/metrics"
	"github.com/anicoll/xsense-integration/internal/pkg/model"
	"github.com/anicoll/xsense-integration/internal/pkg/mqtt"
	"github.com/anicoll/xsense-integration/internal/pkg/publisher"
	"github.com/anicoll/xsense-integration/internal/pkg/shadow"
	"github.com/anicoll/xsense-integration/internal/pkg/xsense"
	"github.com/anicoll/xsense-integration/pkg/sockets"
)

// XSenseCommand is the main entry point of the integration. Settings come from the
// environment, flags given on the command line take precedence.
func XSenseCommand(ctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(ctx, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	return run(ctx.Context, cfg)
}

func applyFlags(ctx *cli.Context, cfg *config.Config) {
	setString := func(name string, dst *string) {
		if ctx.IsSet(name) {
			*dst = ctx.String(name)
		}
	}
	setInt := func(name string, dst *int) {
		if ctx.IsSet(name) {
			*dst = ctx.Int(name)
		}
	}

	setString("xsense-email", &cfg.XSenseCfg.Email)
	setString("xsense-password", &cfg.XSenseCfg.Password)
	setString("xsense-api-url", &cfg.XSenseCfg.APIURL)
	if ctx.IsSet("poll-interval") {
		cfg.XSenseCfg.PollInterval = ctx.Duration("poll-interval")
	}
	setInt("realtime-timeout", &cfg.XSenseCfg.RealtimeTimeout)
	setInt("auth-retries", &cfg.XSenseCfg.AuthRetries)
	setString("mqtt-host", &cfg.MqttCfg.Host)
	setString("mqtt-user", &cfg.MqttCfg.Username)
	setString("mqtt-pass", &cfg.MqttCfg.Password)
	setString("discovery-prefix", &cfg.MqttCfg.DiscoveryPrefix)
	setString("database-url", &cfg.DatabaseCfg.URL)
	setString("migrations-folder", &cfg.DatabaseCfg.MigrationsFolder)
	setInt("history-retention-days", &cfg.DatabaseCfg.RetentionDays)
	setString("http-addr", &cfg.HTTPCfg.Addr)
	setString("api-username", &cfg.HTTPCfg.Username)
	setString("api-password-hash", &cfg.HTTPCfg.PasswordHash)
	setString("log-level", &cfg.LogLevel)
}

func run(ctx context.Context, cfg *config.Config) error {
	errorChan := make(chan error, 1000)

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	metrics.Init()

	coord := coordinator.New(
		xsense.New(cfg.XSenseCfg),
		func(h *model.House) coordinator.Broker { return shadow.New(h) },
		coordinator.Options{
			AuthRetries:     cfg.XSenseCfg.AuthRetries,
			RealtimeTimeout: cfg.XSenseCfg.RealtimeTimeout,
		},
	)

	ha := mqtt.New(paho_mqtt.NewClient(mqtt.NewClientOptions(cfg.MqttCfg)), cfg.MqttCfg)
	if err := ha.Connect(); err != nil {
		return fmt.Errorf("connect to home assistant broker: %w", err)
	}
	defer func() {
		if err := ha.Close(); err != nil {
			logger.Warn("failed to mark bridge offline", zap.Error(err))
		}
	}()

	registry := publisher.New()
	if err := registry.RegisterPublisher("mqtt", ha); err != nil {
		return err
	}

	// left as a nil interface when history is disabled.
	var store HistoryStore
	if cfg.DatabaseCfg.Enabled() {
		if _, err := migration.Migrate(cfg.DatabaseCfg.URL, cfg.DatabaseCfg.MigrationsFolder); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		db, err := database.Connect(ctx, cfg.DatabaseCfg.URL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := registry.RegisterPublisher("postgres", db); err != nil {
			return err
		}
		store = db
	}

	hub := sockets.New(
		sockets.WithPingInterval(30*time.Second),
		sockets.OnError(func(err error) {
			logger.Debug("websocket client error", zap.Error(err))
		}),
	)

	return serve(ctx, cfg, coord, registry, store, hub, errorChan, logger)
}

func newLogger(level string) (*zap.Logger, error) {
	logCfg := zap.NewProductionConfig()

	var err error
	logCfg.Level, err = zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	return logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

// isFatal reports whether the process has to stop and wait for new credentials.
func isFatal(err error) bool {
	return errors.Is(err, coordinator.ErrReauthRequired)
}
