package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/FeliksML/web-cellar-sub000/internal/auth"
	"github.com/FeliksML/web-cellar-sub000/internal/config"
	"github.com/FeliksML/web-cellar-sub000/internal/delivery"
	"github.com/FeliksML/web-cellar-sub000/internal/event"
	handler "github.com/FeliksML/web-cellar-sub000/internal/handler/http"
	"github.com/FeliksML/web-cellar-sub000/internal/notification"
	"github.com/FeliksML/web-cellar-sub000/internal/payment"
	"github.com/FeliksML/web-cellar-sub000/internal/repository/postgres"
	redisrepo "github.com/FeliksML/web-cellar-sub000/internal/repository/redis"
	"github.com/FeliksML/web-cellar-sub000/internal/search"
	esengine "github.com/FeliksML/web-cellar-sub000/internal/search/elasticsearch"
	pgsearch "github.com/FeliksML/web-cellar-sub000/internal/search/postgres"
	"github.com/FeliksML/web-cellar-sub000/internal/service"
	"github.com/FeliksML/web-cellar-sub000/internal/storage"
	"github.com/FeliksML/web-cellar-sub000/internal/storage/memory"
	s3storage "github.com/FeliksML/web-cellar-sub000/internal/storage/s3"
	"github.com/FeliksML/web-cellar-sub000/migrations"
	"github.com/FeliksML/web-cellar-sub000/pkg/database"
	"github.com/FeliksML/web-cellar-sub000/pkg/health"
	pkgkafka "github.com/FeliksML/web-cellar-sub000/pkg/kafka"
	"github.com/FeliksML/web-cellar-sub000/pkg/middleware"
	"github.com/FeliksML/web-cellar-sub000/pkg/tracing"
)

const (
	serviceName    = "beasty-baker"
	serviceVersion = "0.1.0"

	// processedEventTTL bounds how long consumed event and webhook ids are
	// remembered for deduplication.
	processedEventTTL = 7 * 24 * time.Hour

	mediaPrefix = "/media"
)

// App wires together all dependencies and runs the storefront backend.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	bus            *event.LocalBus
	consumers      []*pkgkafka.Consumer
	limiter        *middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
// Resources opened before a failure are released before it returns.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.closeResources()
		}
	}()

	// Initialize OpenTelemetry tracing.
	a.tracerShutdown, err = tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEndpoint != "",
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	a.pool, err = database.NewPostgresPool(ctx, database.PostgresConfig{
		URL:                cfg.DatabaseURL,
		MaxConns:           cfg.DBMaxConns,
		MinConns:           cfg.DBMinConns,
		MaxConnLifetime:    time.Hour,
		MaxConnIdleTime:    30 * time.Minute,
		SlowQueryThreshold: time.Duration(cfg.SlowQueryThresholdMs) * time.Millisecond,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL")
	database.RegisterPoolMetrics(a.pool, serviceName)

	// Run database migrations.
	if err = database.RunMigrations(ctx, a.pool, migrations.FS, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Initialize Redis.
	a.redis, err = database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis")

	// Repositories.
	userRepo := postgres.NewUserRepository(a.pool)
	tokenRepo := postgres.NewRefreshTokenRepository(a.pool)
	categoryRepo := postgres.NewCategoryRepository(a.pool)
	productRepo := postgres.NewProductRepository(a.pool)
	orderRepo := postgres.NewOrderRepository(a.pool)
	addressRepo := postgres.NewAddressRepository(a.pool)
	promoRepo := postgres.NewPromoCodeRepository(a.pool)
	reviewRepo := postgres.NewReviewRepository(a.pool)
	settingsRepo := postgres.NewSettingsRepository(a.pool)
	dashboardRepo := postgres.NewDashboardRepository(a.pool)
	customerRepo := postgres.NewCustomerRepository(a.pool)
	cartRepo := redisrepo.NewCartRepository(a.redis, cfg.GuestCartTTL)
	processed := redisrepo.NewIdempotencyStore(a.redis, processedEventTTL)

	// Search engine.
	var (
		engine search.Engine
		esEng  *esengine.Engine
	)
	if cfg.ElasticsearchURL != "" {
		esEng, err = esengine.New(cfg.ElasticsearchURL, cfg.ElasticsearchIndex, logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch engine: %w", err)
		}
		if err := esEng.EnsureIndex(ctx); err != nil {
			// The cluster may come up after the API; reindex fixes it later.
			logger.Warn("elasticsearch index not ready", slog.String("error", err.Error()))
		}
		engine = esEng
		logger.Info("elasticsearch search engine initialized",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("index", cfg.ElasticsearchIndex),
		)
	} else {
		engine = pgsearch.New(productRepo)
		logger.Info("postgres search engine initialized")
	}

	// Object storage.
	var (
		store storage.Storage
		media handler.MediaSource
	)
	if cfg.S3Bucket != "" {
		store, err = s3storage.New(s3storage.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init s3 storage: %w", err)
		}
		logger.Info("s3 storage initialized", slog.String("bucket", cfg.S3Bucket))
	} else {
		mem := memory.New(mediaPrefix)
		store, media = mem, mem
		logger.Info("in-memory storage initialized")
	}

	// Notifications.
	sender, err := notification.NewSender(notification.SenderConfig{
		Provider: cfg.EmailProvider,
		APIKey:   cfg.EmailAPIKey,
		APIURL:   cfg.EmailAPIURL,
		From:     cfg.EmailFromAddress,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init email sender: %w", err)
	}
	notifier := notification.NewNotifier(sender, cfg.StoreName, logger)
	notificationHandler := event.NewNotificationHandler(notifier, settingsRepo, logger)
	indexerHandler := event.NewIndexerHandler(engine, logger)

	// Event publishing: Kafka when brokers are configured, otherwise the
	// in-process bus delivers to the same handlers.
	var publisher event.Publisher
	if cfg.KafkaEnabled() {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

		if cfg.KafkaConsumersEnabled {
			a.dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
			a.consumers = append(a.consumers, event.NewConsumers(event.ConsumerOptions{
				Brokers:    cfg.KafkaBrokers,
				GroupID:    event.NotificationGroupID,
				Store:      processed,
				DeadLetter: a.dlq,
			}, notificationHandler.Topics(), notificationHandler.Handle, logger)...)
			a.consumers = append(a.consumers, event.NewConsumers(event.ConsumerOptions{
				Brokers:    cfg.KafkaBrokers,
				GroupID:    event.IndexerGroupID,
				Store:      processed,
				DeadLetter: a.dlq,
			}, indexerHandler.Topics(), indexerHandler.Handle, logger)...)
			logger.Info("kafka consumers initialized", slog.Int("consumer_count", len(a.consumers)))
		}
	} else {
		a.bus = event.NewLocalBus(logger)
		a.bus.Subscribe(notificationHandler.Topics(), notificationHandler.Handle)
		a.bus.Subscribe(indexerHandler.Topics(), indexerHandler.Handle)
		publisher = a.bus
		logger.Info("kafka disabled, delivering events in process")
	}
	eventProducer := event.NewProducer(publisher, logger)

	// Payments.
	var provider payment.Provider
	if cfg.StripeSecretKey != "" {
		provider = payment.NewStripeProvider(payment.StripeConfig{
			APIURL:        cfg.StripeAPIURL,
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
		}, nil, logger)
	} else {
		provider = payment.NewMockProvider(payment.MockConfig{
			WebhookSecret: cfg.StripeWebhookSecret,
			AllowUnsigned: cfg.IsDevelopment(),
		})
		logger.Warn("stripe not configured, using mock payment provider")
	}

	// Services.
	loc := cfg.Location()
	scheduler := delivery.NewScheduler(cfg.OrderCutoffHour, loc)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())

	authService := service.NewAuthService(userRepo, tokenRepo, jwtManager, auth.NewPasswordHasher(auth.DefaultBcryptCost), logger)
	productService := service.NewProductService(productRepo, engine, store, eventProducer, logger)
	cartService := service.NewCartService(cartRepo, productRepo, promoRepo, scheduler, logger)
	deliveryService := service.NewDeliveryService(scheduler, productRepo, settingsRepo, cfg.DefaultLeadTimeHours, logger)
	services := handler.Services{
		Auth:       authService,
		Categories: service.NewCategoryService(categoryRepo, logger),
		Products:   productService,
		Cart:       cartService,
		Delivery:   deliveryService,
		Promos:     service.NewPromoService(promoRepo, logger),
		Orders: service.NewOrderService(service.OrderDeps{
			Orders:    orderRepo,
			Products:  productRepo,
			Addresses: addressRepo,
			Promos:    promoRepo,
			Settings:  settingsRepo,
			Carts:     cartService,
			Delivery:  deliveryService,
			Scheduler: scheduler,
			Producer:  eventProducer,
		}, logger),
		Payments:  service.NewPaymentService(orderRepo, provider, processed, eventProducer, logger),
		Addresses: service.NewAddressService(addressRepo, logger),
		Reviews:   service.NewReviewService(reviewRepo, productRepo, orderRepo, eventProducer, logger),
		Settings:  service.NewSettingsService(settingsRepo, logger),
		Dashboard: service.NewDashboardService(dashboardRepo, productService, loc, logger),
		Customers: service.NewCustomerService(customerRepo),
	}

	if cfg.ShouldSeedTestUsers() {
		if err = seedTestUsers(ctx, authService, logger); err != nil {
			return nil, err
		}
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return a.pool.Ping(ctx)
	})
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return a.redis.Ping(ctx).Err()
	})
	if esEng != nil {
		healthHandler.RegisterNonCritical("elasticsearch", esEng.Ping)
	}
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}

	// HTTP router.
	a.limiter = middleware.NewRateLimiter(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst,
		middleware.NewProxyTrust(cfg.TrustedProxies, logger), logger)
	router := handler.NewRouter(services, handler.RouterConfig{
		CORSOrigins:    cfg.CORSOrigins,
		Location:       loc,
		TokenValidator: jwtManager.TokenValidator(),
		AuthLimiter:    a.limiter,
		Session: middleware.SessionConfig{
			TTL:    cfg.GuestCartTTL,
			Secure: !cfg.IsDevelopment(),
		},
		Media:             media,
		PprofEnabled:      cfg.PprofEnabled,
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
	}, healthHandler, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run starts the HTTP server and Kafka consumers, blocking until the context
// is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	for _, c := range a.consumers {
		go func(c *pkgkafka.Consumer) {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}(c)
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: the HTTP server drains
// first, then event delivery stops, then the tracer and data stores close.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases everything NewApp opened. Fields left nil by a
// failed NewApp are skipped.
func (a *App) closeResources() error {
	var errs []error
	closeLogged := func(name string, closeFn func() error) {
		if err := closeFn(); err != nil {
			a.logger.Error(name+" close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.limiter != nil {
		a.limiter.Stop()
	}
	for _, c := range a.consumers {
		closeLogged("kafka consumer", c.Close)
	}
	if a.bus != nil {
		closeLogged("event bus", a.bus.Close)
	}
	if a.dlq != nil {
		closeLogged("kafka dlq producer", a.dlq.Close)
	}
	if a.producer != nil {
		closeLogged("kafka producer", a.producer.Close)
	}
	if a.tracerShutdown != nil {
		tracerCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		closeLogged("tracer", func() error { return a.tracerShutdown(tracerCtx) })
	}
	if a.redis != nil {
		closeLogged("redis", a.redis.Close)
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}
