// Package main provides the Chatflow API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/noahsatkunam/chatflow/pkg/clients"
	"github.com/noahsatkunam/chatflow/pkg/cmd"
	"github.com/noahsatkunam/chatflow/pkg/confirmation"
	"github.com/noahsatkunam/chatflow/pkg/execution"
	"github.com/noahsatkunam/chatflow/pkg/otelhelper"
	"github.com/noahsatkunam/chatflow/pkg/permissions"
	"github.com/noahsatkunam/chatflow/pkg/protocol"
	"github.com/noahsatkunam/chatflow/pkg/ratelimit"
	"github.com/noahsatkunam/chatflow/pkg/rulecache"
	"github.com/noahsatkunam/chatflow/pkg/services"
	"github.com/noahsatkunam/chatflow/pkg/sweep"
	"github.com/noahsatkunam/chatflow/pkg/trigger"
	"github.com/noahsatkunam/chatflow/pkg/web"
)

// APIConfig carries the flag values the server is wired from.
type APIConfig struct {
	DatabaseURL   string
	EngineURL     string
	IntentURL     string
	RedisURL      string
	EventBus      string
	DefaultRole   string
	MaxConcurrent int
	DailyQuota    int
}

type API struct {
	logger   *slog.Logger
	handlers *web.APIHandlers
}

// NewAPI wires the full orchestration stack. The returned cleanup closes the
// event bus, the sweeper and the persistence layer.
func NewAPI(ctx context.Context, logger *slog.Logger, config APIConfig) (*API, func(context.Context), error) {
	persistence, err := cmd.NewPersistence(ctx, logger, config.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	eventBus, err := cmd.NewEventBus(config.EventBus, "chatflow-api", logger)
	if err != nil {
		return nil, nil, err
	}

	var (
		confirmations confirmation.Store
		limiter       ratelimit.Limiter
	)

	if config.RedisURL != "" {
		client, err := cmd.NewRedisClient(config.RedisURL)
		if err != nil {
			return nil, nil, err
		}

		confirmations = confirmation.NewRedisStore(client)
		limiter = ratelimit.NewRedisLimiter(client)
	} else {
		confirmations = confirmation.NewMemoryStore()
		limiter = ratelimit.NewMemoryLimiter()
	}

	var intents protocol.IntentDetector
	if config.IntentURL != "" {
		intents = clients.NewHTTPIntentDetector(config.IntentURL)
	}

	directory := clients.NewStaticDirectory(config.DefaultRole)
	responder := clients.NewTemplateResponder()
	engine := clients.NewHTTPEngine(config.EngineURL)

	tracer, err := otelhelper.NewTracer(ctx, "chatflow-api")
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)

		tracer = noop.NewTracerProvider().Tracer("chatflow-api")
	}

	cache := rulecache.NewCache(persistence, rulecache.DefaultTTL, logger)
	evaluator := trigger.NewEvaluator(intents, directory, limiter, logger)
	detector := trigger.NewDetector(cache, evaluator, logger)

	tracker := execution.NewTracker(execution.DefaultGracePeriod, eventBus, responder, logger)

	resolverConfig := permissions.DefaultConfig()
	resolverConfig.MaxConcurrent = config.MaxConcurrent
	resolverConfig.DailyQuota = config.DailyQuota

	resolver := permissions.NewResolver(
		persistence.WorkflowRepository(),
		directory,
		permissions.NewMemoryGrantStore(),
		tracker,
		resolverConfig,
		logger,
	)

	builder := execution.NewContextBuilder(nil, logger)
	orchestrator := execution.NewOrchestrator(
		resolver,
		confirmations,
		tracker,
		builder,
		engine,
		responder,
		limiter,
		config.MaxConcurrent,
		logger,
		tracer,
	)

	sweeper := sweep.NewSweeper(logger)
	sweeper.Register("executions", tracker)

	if store, ok := confirmations.(*confirmation.MemoryStore); ok {
		sweeper.Register("confirmations", store)
	}

	err = sweeper.Start(sweep.DefaultSchedule)
	if err != nil {
		return nil, nil, err
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	ruleService := services.NewRules(persistence, cache, validate)
	handlers := web.NewAPIHandlers(ruleService, detector, orchestrator, tracker, validate)

	cleanup := func(ctx context.Context) {
		sweeper.Stop()

		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}

		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}

	return &API{logger: logger, handlers: handlers}, cleanup, nil
}

func (a *API) App() *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Chatflow API")
	})

	a.handlers.RegisterRoutes(app)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
