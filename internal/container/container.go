package container

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/go-group-trip-planner/app/db"
	"github.com/FACorreiaa/go-group-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-group-trip-planner/config"
	"github.com/FACorreiaa/go-group-trip-planner/internal/api/auth"
	"github.com/FACorreiaa/go-group-trip-planner/internal/api/groups"
	"github.com/FACorreiaa/go-group-trip-planner/internal/api/planning"
	"github.com/FACorreiaa/go-group-trip-planner/internal/api/suggestions"
)

// Container holds all application dependencies.
type Container struct {
	Config             *config.Config
	Logger             *slog.Logger
	Pool               *pgxpool.Pool
	AuthHandler        *auth.Handler
	GroupsHandler      *groups.Handler
	PlanningHandler    *planning.Handler
	SuggestionsHandler *suggestions.Handler
}

// NewContainer initializes the database pool and wires every repository,
// service and handler. metrics.InitAppMetrics must have run before this.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	appMetrics := metrics.Get()

	authRepo := auth.NewPostgresAuthRepo(pool, logger)
	authService := auth.NewAuthService(authRepo, cfg, logger)
	authHandler := auth.NewAuthHandler(authService, logger)

	groupsRepo := groups.NewPostgresGroupsRepo(pool, logger)
	groupsService := groups.NewGroupsService(groupsRepo, logger)
	groupsHandler := groups.NewGroupsHandler(groupsService, logger)

	planningRepo := planning.NewPostgresPlanningRepo(pool, logger)
	planningService := planning.NewPlanningService(planningRepo, groupsService, appMetrics, logger)
	planningHandler := planning.NewPlanningHandler(planningService, logger)

	// Deleting a group also drops its planning state
	groupsService.SetPlanCleanup(planningService)

	aiClient, err := suggestions.NewAIClient(ctx, cfg.Gemini.Model)
	if err != nil {
		logger.Error("Failed to initialize AI client", slog.Any("error", err))
		pool.Close()
		return nil, err
	}

	suggestionsRepo := suggestions.NewPostgresSuggestionsRepo(pool, logger)
	suggestionsService := suggestions.NewSuggestionsService(
		aiClient, suggestionsRepo, groupsService, planningService, cfg, appMetrics, logger)
	suggestionsHandler := suggestions.NewSuggestionsHandler(suggestionsService, logger)

	return &Container{
		Config:             cfg,
		Logger:             logger,
		Pool:               pool,
		AuthHandler:        authHandler,
		GroupsHandler:      groupsHandler,
		PlanningHandler:    planningHandler,
		SuggestionsHandler: suggestionsHandler,
	}, nil
}

// Close releases all resources held by the container.
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready.
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}

// RunMigrations runs database migrations.
func (c *Container) RunMigrations(connectionURL string) error {
	return database.RunMigrations(connectionURL, c.Logger)
}
