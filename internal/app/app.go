package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/visitka/visitka-backend/internal/config"
	"github.com/visitka/visitka-backend/internal/handler"
	"github.com/visitka/visitka-backend/internal/mail"
	"github.com/visitka/visitka-backend/internal/repository"
	"github.com/visitka/visitka-backend/internal/service"
	"github.com/visitka/visitka-backend/internal/utils"
	"github.com/visitka/visitka-backend/internal/yookassa"
	"github.com/visitka/visitka-backend/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 5 * time.Second

	rateLimitScopeAuth  = "auth"
	rateLimitScopeReset = "reset"
)

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

// Dependencies are the collaborators the router is built from
type Dependencies struct {
	Repos           *repository.Repositories
	RateLimiter     service.RateLimiter
	Mailer          mail.Mailer
	PaymentProvider service.PaymentProvider
	Metrics         *observability.Metrics
	Health          gin.HandlerFunc
	MetricsHandler  http.Handler
	Logger          *zap.Logger
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	logger := infra.Logger()

	metrics, err := observability.NewMetrics(infra.MeterProvider())
	if err != nil {
		return nil, err
	}

	router, err := NewRouter(cfg, Dependencies{
		Repos:       repository.NewRepositories(infra.Postgres()),
		RateLimiter: newRateLimiter(infra, cfg),
		Mailer:      newMailer(cfg, logger),
		PaymentProvider: yookassa.NewClient(
			cfg.YooKassa.ShopID,
			cfg.YooKassa.SecretKey,
			cfg.YooKassa.APIURL,
			cfg.YooKassa.Timeout.Duration,
		),
		Metrics:        metrics,
		Health:         NewHealthChecker(infra).Handler,
		MetricsHandler: infra.MetricsHandler(),
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}, nil
}

func newRateLimiter(infra Infrastructure, cfg *config.Config) service.RateLimiter {
	if cfg.Security.RateLimitBackend == config.RateLimitBackendRedis && infra.Redis() != nil {
		return service.NewRedisRateLimiter(infra.Redis().Client, infra.Logger())
	}
	return service.NewMemoryRateLimiter()
}

// newMailer prefers the Resend API when a key is configured
func newMailer(cfg *config.Config, logger *zap.Logger) mail.Mailer {
	if cfg.Resend.APIKey != "" {
		from := cfg.Resend.From
		if from == "" {
			from = cfg.SMTP.From
		}
		return mail.NewResendMailer(cfg.Resend.APIKey, from, logger)
	}
	return mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		Timeout:  cfg.SMTP.Timeout.Duration,
	}, logger)
}

// NewRouter wires services and handlers and registers every route
func NewRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	hasher, err := utils.NewPasswordHasher(cfg.Security.BCryptCost)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}

	issuer := utils.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TokenExpiry.Duration)
	if !issuer.Configured() {
		logger.Warn("JWT_SECRET is not set, sign-in requests will fail until it is configured")
	}

	tokens := service.NewTokenService(issuer, deps.Repos.Token)
	referrals := service.NewReferralAllocator(deps.Repos, cfg.Security.ReferralCodeAttempts, logger)

	authService := service.NewAuthService(deps.Repos, hasher, tokens, referrals, deps.Metrics, service.AuthConfig{
		DefaultPlanID:      cfg.Subscription.DefaultPlanID,
		TelegramBotToken:   cfg.Telegram.BotToken,
		TelegramAuthMaxAge: cfg.Telegram.AuthMaxAge.Duration,
	}, logger)

	resetService := service.NewPasswordResetService(deps.Repos, hasher, deps.Mailer, deps.Metrics, service.PasswordResetConfig{
		TokenTTL:      cfg.PasswordReset.TokenTTL.Duration,
		LinkBaseURL:   cfg.PasswordReset.LinkBaseURL,
		AsyncDelivery: cfg.PasswordReset.AsyncDelivery,
	}, logger)

	subscriptionService := service.NewSubscriptionService(deps.Repos, deps.Metrics, logger)
	paymentService := service.NewPaymentService(deps.Repos, deps.PaymentProvider, service.PaymentConfig{
		ReturnURL: cfg.YooKassa.ReturnURL,
	}, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, routes{
		auth:     handler.NewAuthHandler(authService, logger),
		password: handler.NewPasswordHandler(resetService, logger),
		payment:  handler.NewPaymentHandler(paymentService, subscriptionService, cfg.YooKassa.WebhookSecret, logger),
		referral: handler.NewReferralHandler(referrals, logger),

		requireAuth: handler.AuthMiddleware(authService, logger),
		authLimit: handler.RateLimitMiddleware(deps.RateLimiter, handler.RateLimitRule{
			Scope:  rateLimitScopeAuth,
			Limit:  cfg.Security.AuthRateLimitRequests,
			Window: cfg.Security.AuthRateLimitWindow.Duration,
		}, handler.IPBasedKey, deps.Metrics, logger),
		resetLimit: handler.RateLimitMiddleware(deps.RateLimiter, handler.RateLimitRule{
			Scope:  rateLimitScopeReset,
			Limit:  cfg.Security.ResetRateLimitRequests,
			Window: cfg.Security.ResetRateLimitWindow.Duration,
		}, handler.IPBasedKey, deps.Metrics, logger),
		health:         deps.Health,
		metricsHandler: deps.MetricsHandler,
	})

	return router, nil
}

type routes struct {
	auth     *handler.AuthHandler
	password *handler.PasswordHandler
	payment  *handler.PaymentHandler
	referral *handler.ReferralHandler

	requireAuth gin.HandlerFunc
	authLimit   gin.HandlerFunc
	resetLimit  gin.HandlerFunc

	health         gin.HandlerFunc
	metricsHandler http.Handler
}

func setupRoutes(router *gin.Engine, r routes) {
	if r.metricsHandler != nil {
		router.GET("/metrics", observability.PrometheusHandler(r.metricsHandler))
	}
	if r.health != nil {
		router.GET("/health", r.health)
	}

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("", r.authLimit, r.auth.Action)
			auth.POST("/register", r.authLimit, r.auth.Register)
			auth.POST("/login", r.authLimit, r.auth.Login)
			auth.POST("/telegram", r.authLimit, r.auth.Telegram)
			auth.POST("/logout", r.requireAuth, r.auth.Logout)
			auth.GET("/me", r.requireAuth, r.auth.GetMe)
		}

		password := api.Group("/password")
		{
			password.POST("/forgot", r.resetLimit, r.password.Forgot)
			password.POST("/reset", r.resetLimit, r.password.Reset)
		}
		api.POST("/password-reset", r.resetLimit, r.password.Action)

		api.GET("/plans", r.payment.ListPlans)

		payments := api.Group("/payments")
		{
			payments.POST("/webhook", r.payment.Webhook)
			payments.POST("", r.requireAuth, r.payment.Create)
			payments.GET("/:id", r.requireAuth, r.payment.Get)
		}

		api.GET("/referrals", r.requireAuth, r.referral.Stats)
	}
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		return errors.Join(serverErr, err)
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// stop accepting requests before closing the pools they use
	if err := a.server.Shutdown(ctx); err != nil {
		a.infra.Logger().Error("HTTP server shutdown failed", zap.Error(err))
		return errors.Join(err, a.infra.Shutdown(ctx))
	}

	if err := a.infra.Shutdown(ctx); err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
