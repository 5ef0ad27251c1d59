package cmd

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/RamanArcStudios/CulturePassAU-sub003/config"
	"github.com/RamanArcStudios/CulturePassAU-sub003/internal/handlers"
	"github.com/RamanArcStudios/CulturePassAU-sub003/internal/services"
	"github.com/RamanArcStudios/CulturePassAU-sub003/internal/store"
	_ "github.com/RamanArcStudios/CulturePassAU-sub003/migrations"
	"github.com/RamanArcStudios/CulturePassAU-sub003/security"
	"github.com/RamanArcStudios/CulturePassAU-sub003/utils"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go/v7"
	"github.com/redis/go-redis/v9"
)

// dependencies are built once the app has bootstrapped and its DB is open.
type dependencies struct {
	store         *store.TicketStore
	ticketService *services.TicketService
}

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		client, err := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			slog.Warn("Redis unavailable, purchase guard and scan rate limit disabled", "error", err)
		} else {
			redisClient = client
		}
	}

	// Initialize PubNub
	var notifier services.Notifier = services.NoopNotifier{}
	if cfg.PubNubEnabled() {
		pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId("ticketing-server"))
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		notifier = services.NewRealtimeNotifier(services.NewPubNubPublisher(pubnub.NewPubNub(pnConfig)))
	}

	var guard services.PurchaseGuard = services.NoopPurchaseGuard{}
	if redisClient != nil {
		guard = services.NewRedisPurchaseGuard(redisClient, cfg.PurchaseGuardTTL)
	}

	deps := &dependencies{}
	app.OnBootstrap().BindFunc(func(e *core.BootstrapEvent) error {
		if err := e.Next(); err != nil {
			return err
		}
		deps.store = store.NewTicketStore(e.App.DB())
		deps.ticketService = services.NewTicketService(deps.store, guard, notifier,
			services.WithCodeAttempts(cfg.CodeGenerationAttempts),
			services.WithPaymentConfirmation(cfg.RequirePayment),
		)
		return nil
	})

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.Environment == "development",
	})
	app.RootCmd.AddCommand(newExpireCommand(deps, cfg))

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		ticketHandler := handlers.NewTicketHandler(deps.ticketService)
		paymentHandler := handlers.NewPaymentHandler(deps.ticketService, cfg.PaymentWebhookToken)
		adminHandler := handlers.NewAdminHandler(deps.ticketService, cfg.ExpireWorkers)
		rateLimiter := security.NewRateLimiter(redisClient, cfg.ScanRateLimit, cfg.ScanRateWindow)

		// Ticket endpoints
		se.Router.POST("/api/tickets", ticketHandler.CreateTicket)
		se.Router.GET("/api/tickets/{userId}", ticketHandler.ListUserTickets)
		se.Router.GET("/api/tickets/{id}/history", ticketHandler.GetHistory)
		se.Router.POST("/api/tickets/{id}/transitions", ticketHandler.ApplyTransition).
			Bind(apis.RequireAuth())
		se.Router.POST("/api/tickets/scan", ticketHandler.ScanTicket).
			BindFunc(rateLimiter.AntiBotMiddleware(), rateLimiter.ScanRateLimit())

		// Payment endpoints
		se.Router.POST("/api/payments/webhook", paymentHandler.PaymentWebhook)

		// Admin endpoints
		se.Router.POST("/api/events/{eventId}/expire-tickets", adminHandler.ExpireEventTickets).
			Bind(apis.RequireSuperuserAuth())

		// Health check
		se.Router.GET("/health", func(e *core.RequestEvent) error {
			ctx, cancel := context.WithTimeout(e.Request.Context(), 2*time.Second)
			defer cancel()

			if err := deps.store.Ping(ctx); err != nil {
				return e.JSON(http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			if redisClient != nil {
				if err := utils.RedisHealthCheck(ctx, redisClient); err != nil {
					return e.JSON(http.StatusServiceUnavailable, map[string]string{
						"status": "unhealthy",
						"error":  err.Error(),
					})
				}
			}
			return e.JSON(http.StatusOK, map[string]string{"status": "healthy"})
		})

		if cfg.EnableMetrics {
			se.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))
		}

		slog.Info("Server routes registered", "environment", cfg.Environment, "require_payment", cfg.RequirePayment)

		return se.Next()
	})

	app.OnTerminate().BindFunc(func(e *core.TerminateEvent) error {
		slog.Info("Shutdown signal received, cleaning up...")
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				slog.Warn("Failed to close Redis client", "error", err)
			}
		}
		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}
