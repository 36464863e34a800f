package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/noahsatkunam/chatflow/pkg/log"
)

const defaultPort = 9092

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "chatflow-api",
		Usage:                 "Detect chat triggers and orchestrate workflow executions",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for rule persistence (file:// or postgres://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "engine-url",
				Usage:    "Base URL of the external workflow engine",
				Required: true,
				Sources:  cli.EnvVars("ENGINE_URL"),
			},
			&cli.StringFlag{
				Name:    "intent-url",
				Usage:   "Base URL of the intent detection service (intent rules never match without one)",
				Sources: cli.EnvVars("INTENT_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for confirmations and rate limiting (in-memory when unset)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "default-role",
				Usage:   "Role assigned to users absent from the directory",
				Value:   "member",
				Sources: cli.EnvVars("DEFAULT_ROLE"),
			},
			&cli.IntFlag{
				Name:    "max-concurrent",
				Usage:   "Maximum concurrent executions per user",
				Value:   5,
				Sources: cli.EnvVars("MAX_CONCURRENT_EXECUTIONS"),
			},
			&cli.IntFlag{
				Name:    "daily-quota",
				Usage:   "Maximum executions per user per day",
				Value:   100,
				Sources: cli.EnvVars("DAILY_EXECUTION_QUOTA"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log output format (text, json)",
				Value:   log.FormatText,
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger.InfoContext(ctx, "Initializing Chatflow API")

			api, cleanup, err := NewAPI(ctx, logger, APIConfig{
				DatabaseURL:   command.String("database-url"),
				EngineURL:     command.String("engine-url"),
				IntentURL:     command.String("intent-url"),
				RedisURL:      command.String("redis-url"),
				EventBus:      command.String("event-bus"),
				DefaultRole:   command.String("default-role"),
				MaxConcurrent: command.Int("max-concurrent"),
				DailyQuota:    command.Int("daily-quota"),
			})
			if err != nil {
				return err
			}
			defer cleanup(ctx)

			return api.Start(command.Int("port"))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
