package api

import (
	"context"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/roviton/dispatch-api/internal/api/handler"
	"github.com/roviton/dispatch-api/internal/api/middleware"
	"github.com/roviton/dispatch-api/internal/core/authctx"
	"github.com/roviton/dispatch-api/internal/core/domain"
	"github.com/roviton/dispatch-api/internal/core/ports"
	"github.com/roviton/dispatch-api/internal/core/routes"
	"github.com/roviton/dispatch-api/internal/core/service"
	"github.com/roviton/dispatch-api/internal/core/session"
	"github.com/roviton/dispatch-api/internal/infrastructure/config"
	mongorepo "github.com/roviton/dispatch-api/internal/infrastructure/db/mongo"
	redisinfra "github.com/roviton/dispatch-api/internal/infrastructure/db/redis"
	"github.com/roviton/dispatch-api/internal/infrastructure/queue"
	"github.com/roviton/dispatch-api/internal/infrastructure/webhook"
)

// App bundles the HTTP server with the background components whose
// lifecycle main owns: the event dispatcher (Start) and the auth context
// (Mount at startup, Unmount on shutdown).
type App struct {
	Echo       *echo.Echo
	Dispatcher *queue.Dispatcher
	AuthCtx    *authctx.AuthContext
}

// NewRouter builds the Echo instance with all routes registered.
func NewRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, log zerolog.Logger) (*App, error) {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("dispatch"))

	// --- Persistence ---
	profileRepo := mongorepo.NewProfileRepository(db)
	loadRepo := mongorepo.NewLoadRepository(db)
	eventRepo := mongorepo.NewEventRepository(db)
	sessionStore := redisinfra.NewSessionStore(rdb, cfg.ProjectRef, log)
	dedup := redisinfra.NewDedupChecker(rdb)

	// --- Services ---
	authService := service.NewAuthService(profileRepo, sessionStore, cfg.JWTSecret, 0, log)
	loadService := service.NewLoadService(loadRepo, log)
	eventService := service.NewEventService(loadRepo, eventRepo, dedup, log)
	dispatcher := queue.NewDispatcher(cfg.EventWorkers, eventService, log)
	authCtx := newAuthContext(authService, sessionStore, profileRepo, log)

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(authService, profileRepo)
	loadHandler := handler.NewLoadHandler(loadService)
	eventHandler := handler.NewEventHandler(dispatcher)
	pageHandler := handler.NewPageHandler()

	authVerifier, err := buildSvixVerifier(cfg.AuthWebhookSecret, log)
	if err != nil {
		return nil, err
	}
	var billingVerifier webhook.Verifier
	if cfg.BillingWebhookSecret != "" {
		billingVerifier = webhook.NewStripeVerifier(cfg.BillingWebhookSecret)
	}
	webhookHandler := handler.NewWebhookHandler(authVerifier, billingVerifier, log)

	authMiddleware := middleware.Auth(cfg.JWTSecret)

	// --- Auth routes ---
	e.POST("/auth/sign-up", authHandler.SignUp)
	e.POST("/auth/sign-in", authHandler.SignIn)
	e.POST("/auth/refresh", authHandler.Refresh)
	e.POST("/auth/sign-out", authHandler.SignOut)

	// --- Load routes ---
	loads := e.Group("/v1/loads", authMiddleware)
	loads.POST("", loadHandler.Create,
		middleware.RBAC(domain.RoleAdmin, domain.RoleDispatcher, domain.RoleCustomer))
	loads.GET("", loadHandler.List)
	loads.GET("/:reference", loadHandler.Get)
	loads.POST("/:reference/assign", loadHandler.AssignDriver,
		middleware.RBAC(domain.RoleAdmin, domain.RoleDispatcher))

	// --- Event ingestion ---
	events := e.Group("/v1/events", authMiddleware,
		middleware.RBAC(domain.RoleAdmin, domain.RoleDispatcher, domain.RoleDriver))
	events.POST("", eventHandler.Receive)
	events.POST("/batch", eventHandler.ReceiveBatch)

	// --- Webhook receivers (signature-verified, no bearer auth) ---
	e.POST("/webhooks/auth", webhookHandler.ReceiveAuth)
	e.POST("/webhooks/billing", webhookHandler.ReceiveBilling)

	// --- Guarded dashboard views ---
	registry := routes.NewRegistry(routes.DefaultRules())
	guard := middleware.Guard(
		middleware.DefaultGuardConfig(),
		resolveSession(authService),
		func(ctx context.Context, userID string) (*domain.Profile, error) {
			return profileRepo.FindByID(ctx, userID)
		},
		registry,
		log,
	)
	e.GET("/sign-in", pageHandler.Render, guard)
	e.GET("/sign-up", pageHandler.Render, guard)
	e.GET("/verify-email", pageHandler.Render, guard)
	e.GET("/dashboard", pageHandler.Render, guard)
	e.GET("/dashboard/*", pageHandler.Render, guard)

	// --- Observability and health probes ---
	e.GET("/metrics", echoprometheus.NewHandler())

	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(db, rdb)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)

	return &App{Echo: e, Dispatcher: dispatcher, AuthCtx: authCtx}, nil
}

// newAuthContext composes the session lifecycle manager with the auth
// provider and profile lookup. The manager owns the process-wide refresh
// and warning timers; the caller mounts the returned context once at
// startup and unmounts it on shutdown.
func newAuthContext(provider ports.AuthProvider, store ports.SessionStore, profiles ports.ProfileRepository, log zerolog.Logger) *authctx.AuthContext {
	manager := session.NewManager(provider, store, session.Config{}, nil, log)
	return authctx.New(manager, provider, profiles, log)
}

// resolveSession adapts access-token verification into the guard's view of
// the caller. Absent or invalid credentials yield nil, never an error.
func resolveSession(auth *service.AuthService) middleware.ResolveSession {
	return func(c echo.Context) *middleware.SessionInfo {
		token := middleware.ExtractToken(c.Request())
		if token == "" {
			return nil
		}
		claims, err := auth.VerifyAccessToken(token)
		if err != nil {
			return nil
		}
		userID, _ := claims["sub"].(string)
		verified, _ := claims["email_verified"].(bool)
		exp, _ := claims["exp"].(float64)
		return &middleware.SessionInfo{
			Session: &domain.Session{
				AccessToken: token,
				ExpiresAt:   int64(exp),
				UserID:      userID,
			},
			EmailVerified: verified,
		}
	}
}

func buildSvixVerifier(secret string, log zerolog.Logger) (webhook.Verifier, error) {
	if secret == "" {
		log.Warn().Msg("auth webhook secret not set, receiver will accept unverified payloads")
		return nil, nil
	}
	return webhook.NewSvixVerifier(secret)
}
