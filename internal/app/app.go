package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/cache"
	"github.com/xenking/storefront/internal/domain/account"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/notify"
	"github.com/xenking/storefront/internal/repository"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

const serviceName = "storefront-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	svc, err := build(ctx, lg, m, cfg)
	if err != nil {
		return err
	}
	defer svc.close()

	svc.health.Start(ctx, 10*time.Second)
	svc.health.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           svc.handler,
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		svc.health.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		svc.health.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// services is the wired application.
type services struct {
	handler http.Handler
	health  *health.Service
	closers []func()
}

// close releases resources in reverse acquisition order.
func (s *services) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// build connects to the backing services and assembles the HTTP handler.
// On error, everything acquired so far is released.
func build(ctx context.Context, lg *zap.Logger, t httpmiddleware.TelemetryProvider, cfg *Config) (_ *services, rerr error) {
	svc := &services{health: health.New(lg.Named("health"))}
	defer func() {
		if rerr != nil {
			svc.close()
		}
	}()

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	svc.closers = append(svc.closers, pool.Close)

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return nil, errors.Wrap(err, "run migrations")
	}

	svc.health.Register(health.Check{
		Name: "postgres", Kind: health.Readiness, Timeout: 5 * time.Second,
		Func: health.Ping(pool),
	})
	svc.health.Register(health.Check{
		Name: "goroutines", Kind: health.Liveness, Timeout: time.Second,
		Func: health.GoroutineLimit(10000),
	})

	// Repositories.
	var products product.Repository = repository.NewProductRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)
	cartRepo := repository.NewCartRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	accountRepo := repository.NewAccountRepository(pool)

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		svc.closers = append(svc.closers, func() { _ = rdb.Close() })

		svc.health.Register(health.Check{
			Name: "redis", Kind: health.Readiness, Timeout: 2 * time.Second,
			Func: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
		products = cache.NewProducts(products, rdb, cfg.Redis.TTL)
		lg.Info("Product cache enabled", zap.String("redis", cfg.Redis.Addr))
	}

	var notifier account.Notifier = notify.LogNotifier{}
	if cfg.AMQP.URL != "" {
		pub, err := notify.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.RoutingKey)
		if err != nil {
			return nil, errors.Wrap(err, "create amqp publisher")
		}
		svc.closers = append(svc.closers, func() { _ = pub.Close() })

		svc.health.Register(health.Check{
			Name: "amqp", Kind: health.Readiness, Timeout: time.Second,
			Func: pub.Check,
		})
		notifier = pub
		lg.Info("Activation events enabled", zap.String("exchange", cfg.AMQP.Exchange))
	}

	// Domain services.
	tokens, err := auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TTL)
	if err != nil {
		return nil, errors.Wrap(err, "create token issuer")
	}
	cartService, err := cart.NewService(cartRepo, products, coupon.NewRepoValidator(couponRepo),
		t.MeterProvider().Meter(serviceName),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create cart service")
	}
	accountService := account.NewService(accountRepo, notifier, tokens, cfg.PublicURL)
	orderService := order.NewService(cartService, orderRepo)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", svc.health.LiveEndpoint)
	mux.HandleFunc("GET /readyz", svc.health.ReadyEndpoint)
	handler.New(
		handler.Config{ImageBaseURL: cfg.ImageBaseURL},
		products,
		cartService,
		accountService,
		orderService,
		tokens,
	).Register(mux)

	svc.handler = httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "Authorization"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:            cfg.RateLimit.Max,
			Window:         cfg.RateLimit.Window,
			TrustForwarded: cfg.RateLimit.TrustForwarded,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.Instrument(serviceName, t),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.LogRequests(),
	)
	return svc, nil
}
