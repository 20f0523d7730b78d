package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/vesta-dapp/vesta_ledger/internal/accounts"
	"github.com/vesta-dapp/vesta_ledger/internal/auth"
	"github.com/vesta-dapp/vesta_ledger/internal/authz"
	"github.com/vesta-dapp/vesta_ledger/internal/config"
	"github.com/vesta-dapp/vesta_ledger/internal/ledger"
	"github.com/vesta-dapp/vesta_ledger/internal/locks"
	"github.com/vesta-dapp/vesta_ledger/internal/middleware"
	"github.com/vesta-dapp/vesta_ledger/internal/notification"
	"github.com/vesta-dapp/vesta_ledger/internal/token"
	"github.com/vesta-dapp/vesta_ledger/internal/transfers"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger

	// Ledger overrides the backend selection when set. Tests use it to
	// inject an engine with a manual clock.
	Ledger ledger.Ledger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Backends: Postgres in deployed environments, in-memory for dev.
	ledgerBackend := d.Ledger
	if ledgerBackend == nil {
		if d.DB != nil {
			ledgerBackend = ledger.NewPostgres(d.DB)
		} else {
			ledgerBackend = ledger.NewInMemory()
		}
	}

	var accountsRepo accounts.Repository
	if d.DB != nil {
		accountsRepo = accounts.NewPostgresRepository(d.DB)
	} else {
		accountsRepo = accounts.NewMemoryRepository()
	}

	// Mint authorization: a designated authority address, or fixed-supply
	// mode when none is configured.
	var policy authz.Policy = authz.DenyAll{}
	if d.Cfg.MintAuthority != "" {
		authority, err := ledger.ParseAddress(d.Cfg.MintAuthority)
		if err != nil {
			return fmt.Errorf("invalid MINT_AUTHORITY: %w", err)
		}
		policy = authz.NewMinter(authority)
	}

	notifier := notification.NewLoggerNotifier(d.Logger)

	tokenSvc := token.NewService(ledgerBackend, policy, notifier,
		d.Cfg.TokenName, d.Cfg.TokenSymbol, d.Cfg.TokenDecimals)
	transferSvc := transfers.NewService(ledgerBackend, notifier)
	lockSvc := locks.NewService(ledgerBackend, notifier)
	accountsSvc := accounts.NewService(accountsRepo)
	authSvc := auth.NewService(d.Cfg)

	tokenHandler := token.NewHandler(tokenSvc)
	transferHandler := transfers.NewHandler(transferSvc, d.Cfg.TokenDecimals)
	lockHandler := locks.NewHandler(lockSvc, d.Cfg.TokenDecimals)
	authHandler := auth.NewHandler(accountsSvc, authSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes: registration, login and chain-style reads.
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, rateLimiter)
	RegisterTokenReadRoutes(api, tokenHandler)

	// Protected routes: everything that mutates the ledger needs a
	// resolved caller address.
	protected := api.Group("", middleware.Caller(d.Cfg))
	RegisterMintRoute(protected, tokenHandler)
	RegisterTransferRoutes(protected, transferHandler)
	RegisterLockRoutes(protected, lockHandler)

	return nil
}
