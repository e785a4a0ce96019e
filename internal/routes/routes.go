package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/umoja-bank/umoja/internal/account"
	"github.com/umoja-bank/umoja/internal/auth"
	"github.com/umoja-bank/umoja/internal/config"
	"github.com/umoja-bank/umoja/internal/identity"
	"github.com/umoja-bank/umoja/internal/ledger"
	"github.com/umoja-bank/umoja/internal/middleware"
	"github.com/umoja-bank/umoja/internal/notification"
	"github.com/umoja-bank/umoja/internal/transactions"
)

// Deps carries the shared infrastructure handed to route setup.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup wires middleware, services, and endpoints onto the Fiber app.
func Setup(app *fiber.App, d Deps) {
	pol := ledger.Policy{
		MinDeposit:       d.Cfg.MinDeposit,
		MinWithdraw:      d.Cfg.MinWithdraw,
		MaxWithdraw:      d.Cfg.MaxWithdraw,
		MinTransfer:      d.Cfg.MinTransfer,
		MaxTransfer:      d.Cfg.MaxTransfer,
		MaxApprovedLoans: d.Cfg.MaxApprovedLoans,
		LockTimeout:      d.Cfg.LockTimeout,
		LockRetries:      d.Cfg.LockRetries,
	}

	var (
		book         ledger.Ledger
		accountRepo  account.Repository
		identityRepo identity.Repository
	)
	if d.DB != nil {
		book = ledger.NewPostgresLedger(d.DB, pol)
		accountRepo = account.NewPostgresRepository(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		// Dev fallback keeps the API usable without Postgres.
		book = ledger.NewInMemory(pol)
		accountRepo = account.NewMemoryRepository()
		identityRepo = identity.NewMemoryRepository()
	}

	notifier := notification.NewLoggerNotifier(d.Logger)

	accountSvc := account.NewService(accountRepo, book)
	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg, identityRepo)
	txSvc := transactions.NewService(book, accountSvc, notifier, d.Logger)

	accountHandler := account.NewHandler(accountSvc)
	identityHandler := identity.NewHandler(identitySvc, accountSvc)
	authHandler := auth.NewHandler(identitySvc, authSvc, accountSvc)
	txHandler := transactions.NewHandler(txSvc)

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} -  ${latency} ${method} ${path}\n",
	}))
	app.Use(middleware.Audit(d.Logger))

	registerHealthRoutes(app, d)

	api := app.Group("/api/v1")

	api.Post("/register", identityHandler.Register)
	api.Post("/login", middleware.LoginRateLimit(d.Cache, 5), authHandler.Login)
	api.Post("/token/refresh", authHandler.Refresh)

	protected := api.Group("", middleware.JWTAuth(d.Cfg, identityRepo))
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	protected.Post("/logout", authHandler.Logout)
	protected.Get("/me", identityHandler.Me)
	protected.Put("/me", identityHandler.UpdateProfile)

	protected.Post("/accounts", accountHandler.Open)
	protected.Get("/accounts/:accountId", accountHandler.Get)
	protected.Get("/accounts/:accountId/balance", accountHandler.Balance)

	protected.Post("/accounts/:accountId/deposits", txHandler.Deposit)
	protected.Post("/accounts/:accountId/withdrawals", txHandler.Withdraw)
	protected.Post("/accounts/:accountId/transfers", txHandler.Transfer)
	protected.Post("/accounts/:accountId/loans", txHandler.RequestLoan)
	protected.Get("/accounts/:accountId/loans", txHandler.Loans)
	protected.Post("/loans/:loanId/payments", txHandler.PayLoan)
	protected.Get("/accounts/:accountId/statement", txHandler.Statement)

	// Loan approval is a back-office decision, kept off the customer surface.
	admin := api.Group("/admin", middleware.AdminAuth(d.Cfg))
	admin.Post("/loans/:loanId/approve", txHandler.ApproveLoan)
}
