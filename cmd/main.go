package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/domain"
	shophttp "github.com/fjod/go_shop/internal/http"
	"github.com/fjod/go_shop/internal/metrics"
	"github.com/fjod/go_shop/internal/payment"
	"github.com/fjod/go_shop/internal/publisher"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/internal/service"
	"github.com/fjod/go_shop/internal/store"
)

// Config collects everything the binary reads from the environment.
// External backends are opt-in: leave the address empty and the process
// runs self-contained on in-memory implementations.
type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	SQLitePath       string
	SQLiteMigrations string

	DBHost             string
	DBPort             string
	DBUser             string
	DBPassword         string
	DBName             string
	PostgresMigrations string

	MongoURI string
	MongoDB  string

	RedisAddr string

	KafkaBrokers string

	GatewayLatency time.Duration
	GatewayTimeout time.Duration

	TaxBasisPoints   int64
	ShippingFlatFee  int64
	ShippingFreeOver int64
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,

		SQLitePath:       getEnv("SQLITE_PATH", "./shop.db"),
		SQLiteMigrations: getEnv("SQLITE_MIGRATIONS_PATH", "./internal/repository/migrations/sqlite"),

		DBHost:             getEnv("DB_HOST", ""),
		DBPort:             getEnv("DB_PORT", "5432"),
		DBUser:             getEnv("DB_USER", "postgres"),
		DBPassword:         getEnv("DB_PASSWORD", "postgres"),
		DBName:             getEnv("DB_NAME", "shop"),
		PostgresMigrations: getEnv("MIGRATIONS_PATH", "./internal/repository/migrations/postgres"),

		MongoURI: getEnv("MONGO_URI", ""),
		MongoDB:  getEnv("MONGO_DB", "shop"),

		RedisAddr: getEnv("REDIS_ADDR", ""),

		KafkaBrokers: getEnv("KAFKA_BROKERS", ""),

		GatewayLatency: getEnvDuration("GATEWAY_LATENCY", 100*time.Millisecond),
		GatewayTimeout: getEnvDuration("GATEWAY_TIMEOUT", 3*time.Second),

		TaxBasisPoints:   getEnvInt64("TAX_BASIS_POINTS", 1000),
		ShippingFlatFee:  getEnvInt64("SHIPPING_FLAT_FEE_CENTS", 500),
		ShippingFreeOver: getEnvInt64("SHIPPING_FREE_OVER_CENTS", 0),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// Catalog, vouchers and users live in sqlite
	catalog, err := repository.NewSQLiteRepository(cfg.SQLitePath)
	if err != nil {
		logger.Fatal("failed to open catalog database", zap.Error(err))
	}
	defer catalog.Close()

	if err := catalog.RunMigrations(cfg.SQLiteMigrations); err != nil {
		logger.Fatal("failed to run catalog migrations", zap.Error(err))
	}
	logger.Info("catalog migrations completed", zap.String("path", cfg.SQLitePath))

	// Inventory ledger, seeded from catalog stock
	ledger := store.NewMemoryStore()
	defer ledger.Close()

	seed, err := catalog.GetInitialStock(ctx)
	if err != nil {
		logger.Fatal("failed to read initial stock", zap.Error(err))
	}
	for productID, quantity := range seed {
		if err := ledger.SetStock(productID, quantity); err != nil {
			logger.Fatal("failed to seed stock", zap.Int64("product_id", productID), zap.Error(err))
		}
	}
	logger.Info("inventory seeded", zap.Int("products", len(seed)))

	// Orders: postgres when DB_HOST is set, in-memory otherwise
	var orderRepo repository.OrderRepository
	if cfg.DBHost != "" {
		port, err := strconv.Atoi(cfg.DBPort)
		if err != nil {
			logger.Fatal("invalid DB_PORT", zap.String("value", cfg.DBPort), zap.Error(err))
		}
		creds := &repository.Credentials{
			Host:              cfg.DBHost,
			Port:              port,
			User:              cfg.DBUser,
			Password:          cfg.DBPassword,
			DBName:            cfg.DBName,
			MigrationsDirPath: cfg.PostgresMigrations,
		}
		pg, err := repository.NewPostgresOrderRepository(creds)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pg.Close()
		if err := pg.RunMigrations(creds); err != nil {
			logger.Fatal("failed to run order migrations", zap.Error(err))
		}
		logger.Info("order migrations completed", zap.String("host", cfg.DBHost))
		orderRepo = pg
	} else {
		logger.Info("DB_HOST not set, keeping orders in memory")
		orderRepo = repository.NewMemoryOrderRepository()
	}

	// Carts: mongo when MONGO_URI is set, in-memory otherwise
	var cartRepo repository.CartRepository
	if cfg.MongoURI != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		db, err := repository.ConnectMongoDB(connectCtx, cfg.MongoURI, cfg.MongoDB)
		cancel()
		if err != nil {
			logger.Fatal("failed to connect to mongodb", zap.Error(err))
		}
		defer db.Client().Disconnect(ctx)
		cartRepo = repository.NewMongoRepository(db)
		if idx, ok := cartRepo.(interface{ CreateIndexes(context.Context) error }); ok {
			if err := idx.CreateIndexes(ctx); err != nil {
				logger.Warn("failed to create cart indexes", zap.Error(err))
			}
		}
		logger.Info("connected to mongodb", zap.String("database", cfg.MongoDB))
	} else {
		logger.Info("MONGO_URI not set, keeping carts in memory")
		cartRepo = repository.NewMemoryCartRepository()
	}

	// Cart read cache: redis when REDIS_ADDR is set, disabled otherwise
	var cartCache cache.CartCache = cache.Noop{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		cartCache = cache.NewRedisCache(redisClient)
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	}

	gateway := payment.NewBreakerGateway(
		payment.NewSimulator(payment.RandomOutcome{}, cfg.GatewayLatency),
		cfg.GatewayTimeout,
	)

	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)
	locks := service.NewCartLocks()

	carts := service.NewCartService(cartRepo, catalog, cartCache, locks, logger)
	checkout := service.NewCheckoutService(carts, catalog, ledger, orderRepo, gateway, locks,
		service.BasisPointsTax(cfg.TaxBasisPoints),
		service.FlatRateShipping(domain.Money(cfg.ShippingFlatFee), domain.Money(cfg.ShippingFreeOver)),
		logger, checkoutMetrics)
	orders := service.NewOrderService(orderRepo, ledger, gateway, logger)
	auth := service.NewAuthService(catalog, logger)

	router := shophttp.NewRouter(
		shophttp.NewAuthHandler(auth, cfg.RequestTimeout),
		shophttp.NewProductHandler(catalog, ledger, cfg.RequestTimeout),
		shophttp.NewCartHandler(carts, checkout, cfg.RequestTimeout),
		shophttp.NewCheckoutHandler(checkout, cfg.RequestTimeout),
		shophttp.NewOrdersHandler(orders, cfg.RequestTimeout),
		auth,
		cfg.RequestTimeout,
	)

	// Outbox relay + stuck-order recovery. Without kafka brokers the
	// poller skips publishing but still sweeps stuck orders.
	var brokers []string
	if cfg.KafkaBrokers != "" {
		brokers = strings.Split(cfg.KafkaBrokers, ",")
	} else {
		logger.Info("KAFKA_BROKERS not set, outbox publishing disabled")
	}
	poller := publisher.NewOutboxPoller(orderRepo, ledger, logger, brokers...)
	defer poller.Close()

	pollerCtx, stopPoller := context.WithCancel(ctx)
	defer stopPoller()
	go poller.Run(pollerCtx)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "shop"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stopPoller()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
