package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/anicoll/xsense-integration/cmd"
)

func main() {
	app := &cli.App{
		Name:   "xsense-integration",
		Usage:  "bridges X-Sense smoke alarms and sensors into Home Assistant",
		Action: cmd.XSenseCommand,
		Commands: []*cli.Command{
			{
				Name:      "hash-password",
				Usage:     "print the bcrypt hash for API_PASSWORD_HASH",
				ArgsUsage: "[password]",
				Action:    cmd.HashPasswordCommand,
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "xsense-email",
				EnvVars: []string{"XSENSE_EMAIL"},
			},
			&cli.StringFlag{
				Name:    "xsense-password",
				EnvVars: []string{"XSENSE_PASSWORD"},
			},
			&cli.StringFlag{
				Name:    "xsense-api-url",
				EnvVars: []string{"XSENSE_API_URL"},
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				EnvVars: []string{"POLL_INTERVAL"},
			},
			&cli.IntFlag{
				Name:    "realtime-timeout",
				Usage:   "minutes stations keep reporting after a realtime request",
				EnvVars: []string{"REALTIME_TIMEOUT"},
			},
			&cli.IntFlag{
				Name:    "auth-retries",
				EnvVars: []string{"AUTH_RETRIES"},
			},
			&cli.StringFlag{
				Name:    "mqtt-host",
				EnvVars: []string{"MQTT_HOST"},
			},
			&cli.StringFlag{
				Name:    "mqtt-user",
				EnvVars: []string{"MQTT_USER"},
			},
			&cli.StringFlag{
				Name:    "mqtt-pass",
				EnvVars: []string{"MQTT_PASS"},
			},
			&cli.StringFlag{
				Name:    "discovery-prefix",
				EnvVars: []string{"DISCOVERY_PREFIX"},
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "enables state history when set",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "migrations-folder",
				EnvVars: []string{"MIGRATIONS_FOLDER"},
			},
			&cli.IntFlag{
				Name:    "history-retention-days",
				EnvVars: []string{"HISTORY_RETENTION_DAYS"},
			},
			&cli.StringFlag{
				Name:    "http-addr",
				EnvVars: []string{"HTTP_ADDR"},
			},
			&cli.StringFlag{
				Name:    "api-username",
				EnvVars: []string{"API_USERNAME"},
			},
			&cli.StringFlag{
				Name:    "api-password-hash",
				EnvVars: []string{"API_PASSWORD_HASH"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
