package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/haulpoints/haulpoints-backend/api/controllers"
	"github.com/haulpoints/haulpoints-backend/api/middleware"
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
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
	"github.com/haulpoints/haulpoints-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// cacheStore is the slice of pkg/redis.Client the router wires into
// health checks, rate limiting, and idempotency.
type cacheStore interface {
	redis.Pinger
	redis.IdempotencyStore
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// Dependencies bundles everything the router mounts. cmd/api builds the
// concrete services; tests swap in stubs.
type Dependencies struct {
	DB             db.Pinger
	Redis          cacheStore
	SessionManager sessionManager

	AuthService      auth.Service
	RegisterService  auth.RegisterService
	LedgerService    ledger.Service
	AwardService     awards.Service
	RecurringService awards.RecurringService
	OrgService       organizations.Service
	CatalogService   catalog.Service
	CartService      cart.Service
	CheckoutService  checkoutsvc.Service
	OrderService     orders.Service
	TicketService    tickets.Service
	UserService      users.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	driver := string(enums.UserRoleDriver)
	sponsor := string(enums.UserRoleSponsor)
	admin := string(enums.UserRoleAdmin)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	// Idempotency resolves its TTL from the fully matched route pattern,
	// which chi only exposes once routing reaches the endpoint. Mount it
	// With-chained on each covered route, never Use'd on a group.
	idempotent := middleware.Idempotency(deps.Redis, logg)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(
			middleware.AuthRateLimit(registerPolicy, deps.Redis, logg),
			idempotent,
		).Post("/register", controllers.AuthRegister(deps.RegisterService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(deps.AuthService, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))

		r.Route("/driver", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, driver))
			r.Get("/points", controllers.DriverPointsBalance(deps.LedgerService, logg))
			r.Get("/points/history", controllers.DriverPointsHistory(deps.LedgerService, logg))
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, driver, sponsor))
			r.Get("/", controllers.CatalogList(deps.CatalogService, logg))
			r.Get("/image-proxy", controllers.CatalogImageProxy(deps.CatalogService, logg))
			r.Get("/{itemID}", controllers.CatalogGet(deps.CatalogService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, driver))
			r.Get("/", controllers.CartGet(deps.CartService, logg))
			r.Post("/items", controllers.CartAddItem(deps.CartService, logg))
			r.Delete("/items/{itemID}", controllers.CartRemoveItem(deps.CartService, logg))
		})

		r.With(middleware.RequireRole(logg, driver), idempotent).Post("/checkout", controllers.Checkout(deps.CheckoutService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, driver))
			r.Get("/", controllers.DriverOrdersList(deps.OrderService, logg))
			r.Get("/{orderID}", controllers.DriverOrderGet(deps.OrderService, logg))
		})

		r.Route("/tickets", func(r chi.Router) {
			r.Post("/", controllers.TicketOpen(deps.TicketService, logg))
			r.Get("/", controllers.TicketsList(deps.TicketService, logg))
		})

		r.Route("/sponsor", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, sponsor))
			r.With(idempotent).Post("/points", controllers.SponsorAwardPoints(deps.AwardService, logg))
			r.Get("/drivers/{driverID}/points", controllers.SponsorDriverPoints(deps.LedgerService, deps.UserService, logg))

			r.With(idempotent).Post("/recurring-awards", controllers.SponsorCreateRecurringAward(deps.RecurringService, logg))
			r.Get("/recurring-awards", controllers.SponsorListRecurringAwards(deps.RecurringService, logg))
			r.Patch("/recurring-awards/{awardID}", controllers.SponsorSetRecurringAwardActive(deps.RecurringService, logg))

			r.Get("/org", controllers.SponsorGetOrg(deps.OrgService, deps.LedgerService, logg))
			r.Put("/org/settings", controllers.SponsorUpdateOrgSettings(deps.OrgService, logg))

			r.Route("/catalog", func(r chi.Router) {
				r.Get("/search", controllers.SponsorCatalogSearch(deps.CatalogService, logg))
				r.Post("/", controllers.SponsorCatalogAdd(deps.CatalogService, logg))
				r.Delete("/{itemID}", controllers.SponsorCatalogRemove(deps.CatalogService, logg))
				r.Post("/{itemID}/refresh", controllers.SponsorCatalogRefresh(deps.CatalogService, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.SponsorOrdersList(deps.OrderService, logg))
				r.Patch("/{orderID}", controllers.SponsorUpdateOrderStatus(deps.OrderService, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, admin))

			r.Route("/orgs", func(r chi.Router) {
				r.Get("/", controllers.AdminListOrgs(deps.OrgService, logg))
				r.Post("/", controllers.AdminCreateOrg(deps.OrgService, logg))
				r.Get("/{orgID}", controllers.AdminGetOrg(deps.OrgService, logg))
				r.Put("/{orgID}/settings", controllers.AdminUpdateOrgSettings(deps.OrgService, logg))
			})

			r.Get("/users", controllers.AdminListUsers(deps.UserService, logg))
			r.With(idempotent).Post("/users", controllers.AdminCreateUser(deps.UserService, logg))
			r.Get("/users/{userID}", controllers.AdminGetUser(deps.UserService, logg))
			r.Patch("/users/{userID}/org", controllers.AdminUpdateUserOrg(deps.UserService, logg))
			r.Delete("/users/{userID}", controllers.AdminDeactivateUser(deps.UserService, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminOrdersList(deps.OrderService, logg))
				r.Patch("/{orderID}", controllers.AdminUpdateOrderStatus(deps.OrderService, logg))
			})

			r.Patch("/tickets/{ticketID}", controllers.AdminUpdateTicketStatus(deps.TicketService, logg))
		})
	})

	return r
}
