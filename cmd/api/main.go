package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/haulpoints/haulpoints-backend/api/routes"
	"github.com/haulpoints/haulpoints-backend/internal/auth"
	"github.com/haulpoints/haulpoints-backend/internal/awards"
	"github.com/haulpoints/haulpoints-backend/internal/cart"
	"github.com/haulpoints/haulpoints-backend/internal/catalog"
	checkoutsvc "github.com/haulpoints/haulpoints-backend/internal/checkout"
	"github.com/haulpoints/haulpoints-backend/internal/ledger"
	"github.com/haulpoints/haulpoints-backend/internal/orders"
	"github.com/haulpoints/haulpoints-backend/internal/organizations"
	"github.com/haulpoints/haulpoints-backend/internal/tickets"
	"github.com/haulpoints/haulpoints-backend/internal/users"
	"github.com/haulpoints/haulpoints-backend/pkg/auth/session"
	"github.com/haulpoints/haulpoints-backend/pkg/config"
	"github.com/haulpoints/haulpoints-backend/pkg/db"
	"github.com/haulpoints/haulpoints-backend/pkg/ebay"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
	"github.com/haulpoints/haulpoints-backend/pkg/migrate"
	"github.com/haulpoints/haulpoints-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	deps, err := buildDependencies(cfg, logg, dbClient, redisClient, sessionManager)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, deps),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildDependencies(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, sessionManager *session.Manager) (routes.Dependencies, error) {
	gormDB := dbClient.DB()

	ledgerRepo := ledger.NewRepository(gormDB)
	orgRepo := organizations.NewRepository(gormDB)
	catalogRepo := catalog.NewRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)
	orderRepo := orders.NewRepository(gormDB)
	ticketRepo := tickets.NewRepository(gormDB)
	userRepo := users.NewRepository(gormDB)
	recurringRepo := awards.NewRecurringRepository(gormDB)

	ledgerService, err := ledger.NewService(ledgerRepo)
	if err != nil {
		return routes.Dependencies{}, err
	}

	awardService, err := awards.NewService(dbClient, ledgerRepo, orgRepo, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	recurringService, err := awards.NewRecurringService(recurringRepo, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	ebayClient, err := ebay.NewClient(cfg.Ebay)
	if err != nil {
		return routes.Dependencies{}, err
	}

	catalogService, err := catalog.NewService(catalogRepo, orgRepo, ebayClient, cfg.Catalog, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	orgService, err := organizations.NewService(dbClient, orgRepo, catalogService, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	cartService, err := cart.NewService(cartRepo, catalogRepo, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	checkoutService, err := checkoutsvc.NewService(dbClient, cartRepo, catalogRepo, ledgerRepo, orgRepo, orderRepo, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	orderService, err := orders.NewService(dbClient, orderRepo, ledgerRepo, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	ticketService, err := tickets.NewService(ticketRepo, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	userService, err := users.NewService(userRepo, cfg.Password)
	if err != nil {
		return routes.Dependencies{}, err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	return routes.Dependencies{
		DB:               dbClient,
		Redis:            redisClient,
		SessionManager:   sessionManager,
		AuthService:      authService,
		RegisterService:  registerService,
		LedgerService:    ledgerService,
		AwardService:     awardService,
		RecurringService: recurringService,
		OrgService:       orgService,
		CatalogService:   catalogService,
		CartService:      cartService,
		CheckoutService:  checkoutService,
		OrderService:     orderService,
		TicketService:    ticketService,
		UserService:      userService,
	}, nil
}
