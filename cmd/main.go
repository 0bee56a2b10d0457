package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/sbilibin2017/task-tracker/docs"
	"github.com/sbilibin2017/task-tracker/internal/apikey"
	"github.com/sbilibin2017/task-tracker/internal/handlers"
	"github.com/sbilibin2017/task-tracker/internal/hasher"
	"github.com/sbilibin2017/task-tracker/internal/jwt"
	"github.com/sbilibin2017/task-tracker/internal/logger"
	"github.com/sbilibin2017/task-tracker/internal/middlewares"
	"github.com/sbilibin2017/task-tracker/internal/migrations"
	"github.com/sbilibin2017/task-tracker/internal/repositories"
	"github.com/sbilibin2017/task-tracker/internal/services"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the service
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

// errMissingSecret is returned when JWT_SECRET_KEY is not configured.
var errMissingSecret = errors.New("JWT_SECRET_KEY is required")

// config holds every setting read at startup. It is never modified afterwards.
type config struct {
	AppHost  string
	AppPort  string
	LogLevel string

	CORSAllowedOrigins []string

	PGHost         string
	PGPort         int
	PGUser         string
	PGPassword     string
	PGDB           string
	PGMaxOpenConns int
	PGMaxIdleConns int

	RedisHost         string
	RedisPort         int
	RedisDB           int
	RedisPassword     string
	RedisPoolSize     int
	RedisMinIdleConns int
	RedisExp          time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	JWTSecretKey string
	JWTAlgorithm string
	JWTExp       time.Duration

	BcryptCost int
}

// @title Task Tracker API
// @version 1.0
// @description Task tracker with bearer token plus API key authentication.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func main() {
	printBuildInfo()
	configPath := parseFlags()

	cfg, err := parseConfig(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Starting service version %s, commit %s, build %s\n", buildVersion, buildCommit, buildDate)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

// parseConfig loads environment variables from a file and returns the application configuration.
// Variables already present in the process environment take precedence over the file.
func parseConfig(path string) (cfg config, err error) {
	_ = godotenv.Load(path)

	getEnv := func(key, defaultValue string) string {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			return val
		}
		return defaultValue
	}
	getInt := func(key, defaultValue string) (int, error) {
		v, err := strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return v, nil
	}

	// Application config
	cfg.AppHost = getEnv("APP_HOST", "localhost")
	cfg.AppPort = getEnv("APP_PORT", "8080")
	cfg.LogLevel = getEnv("APP_LOG_LEVEL", "info")

	// comma-separated list of origins
	for _, o := range strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	// PostgreSQL config
	cfg.PGHost = getEnv("POSTGRES_HOST", "localhost")
	cfg.PGUser = getEnv("POSTGRES_USER", "user")
	cfg.PGPassword = getEnv("POSTGRES_PASSWORD", "password")
	cfg.PGDB = getEnv("POSTGRES_DB", "database")
	if cfg.PGPort, err = getInt("POSTGRES_PORT", "5432"); err != nil {
		return
	}
	if cfg.PGMaxOpenConns, err = getInt("POSTGRES_MAX_OPEN_CONNS", "16"); err != nil {
		return
	}
	if cfg.PGMaxIdleConns, err = getInt("POSTGRES_MAX_IDLE_CONNS", "8"); err != nil {
		return
	}

	// Redis config
	cfg.RedisHost = getEnv("REDIS_HOST", "localhost")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	if cfg.RedisPort, err = getInt("REDIS_PORT", "6379"); err != nil {
		return
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", "0"); err != nil {
		return
	}
	if cfg.RedisPoolSize, err = getInt("REDIS_POOL_SIZE", "10"); err != nil {
		return
	}
	if cfg.RedisMinIdleConns, err = getInt("REDIS_MIN_IDLE_CONNS", "2"); err != nil {
		return
	}
	var redisExpSecond int
	if redisExpSecond, err = getInt("REDIS_EXP_SECOND", "60"); err != nil {
		return
	}
	cfg.RedisExp = time.Duration(redisExpSecond) * time.Second

	// Kafka config
	for _, b := range strings.Split(getEnv("KAFKA_BROKERS", ""), ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
		}
	}
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", "task-events")

	// JWT config
	cfg.JWTSecretKey = getEnv("JWT_SECRET_KEY", "")
	if cfg.JWTSecretKey == "" {
		err = errMissingSecret
		return
	}
	cfg.JWTAlgorithm = getEnv("JWT_ALGORITHM", jwt.DefaultAlgorithm)
	if err = jwt.CheckAlgorithm(cfg.JWTAlgorithm); err != nil {
		return
	}
	var jwtExpMinutes int
	if jwtExpMinutes, err = getInt("JWT_EXP_MINUTES", "120"); err != nil {
		return
	}
	if jwtExpMinutes <= 0 {
		err = fmt.Errorf("JWT_EXP_MINUTES must be positive, got %d", jwtExpMinutes)
		return
	}
	cfg.JWTExp = time.Duration(jwtExpMinutes) * time.Minute

	// Hasher config
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", strconv.Itoa(bcrypt.DefaultCost)); err != nil {
		return
	}

	return
}

// newRouter builds the HTTP routes. Task writes run inside txMiddleware.
// Browsers from corsOrigins may send both credential headers.
func newRouter(
	authService *services.AuthService,
	resolver *services.PrincipalResolver,
	taskService *services.TaskService,
	tokener middlewares.Tokener,
	txMiddleware func(http.Handler) http.Handler,
	corsOrigins []string,
	swaggerURL string,
) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middlewares.LoggingMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders: []string{"WWW-Authenticate", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Public routes
	r.Get("/", handlers.NewRootHandler())
	r.Post("/signup", handlers.NewSignupHandler(authService))
	r.Post("/token", handlers.NewTokenHandler(authService))

	// Protected routes: bearer token and API key of the same account
	r.Route("/tasks", func(r chi.Router) {
		r.Use(middlewares.AuthMiddleware(tokener, resolver))

		r.Get("/", handlers.NewListTasksHandler(taskService))
		r.Get("/{id}", handlers.NewGetTaskHandler(taskService))

		r.Group(func(r chi.Router) {
			r.Use(txMiddleware)
			r.Post("/", handlers.NewCreateTaskHandler(taskService))
			r.Put("/{id}", handlers.NewUpdateTaskHandler(taskService))
			r.Delete("/{id}", handlers.NewDeleteTaskHandler(taskService))
		})
	})

	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))

	return r
}

// run initializes the logger, database, Redis, Kafka writer, and HTTP server.
// It sets up routes, applies middleware, and handles graceful shutdown.
func run(ctx context.Context, cfg config) error {
	// Initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Println("failed to initialize logger:", err)
		return err
	}
	defer logger.Sync()
	logger.Log.Infof("Logger initialized with level %s", cfg.LogLevel)

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.PGUser, cfg.PGPassword, cfg.PGHost, cfg.PGPort, cfg.PGDB)
	logger.Log.Infof("Connecting to PostgreSQL at %s:%d/%s", cfg.PGHost, cfg.PGPort, cfg.PGDB)

	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return fmt.Errorf("postgres connection error: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.PGMaxOpenConns)
	db.SetMaxIdleConns(cfg.PGMaxIdleConns)

	if err := migrations.Up(ctx, db.DB); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection error: %w", err)
	}
	defer rdb.Close()

	// Kafka writer, optional
	var kafkaWriter services.KafkaWriter
	if len(cfg.KafkaBrokers) > 0 {
		w := &kafka.Writer{
			Addr:         kafka.TCP(cfg.KafkaBrokers...),
			Topic:        cfg.KafkaTopic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		}
		defer w.Close()
		kafkaWriter = w
		logger.Log.Infow("Kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Log.Info("KAFKA_BROKERS not set, task events will not be published")
	}

	// Credentials
	tokens := jwt.New(
		jwt.WithSecretKey(cfg.JWTSecretKey),
		jwt.WithAlgorithm(cfg.JWTAlgorithm),
		jwt.WithExpiration(cfg.JWTExp),
	)
	passwords := hasher.New(cfg.BcryptCost)
	apiKeys := apikey.New()

	// Initialize repositories
	accountReadRepo := repositories.NewAccountReadRepository(db)
	accountWriteRepo := repositories.NewAccountWriteRepository(db)
	accountCache := repositories.NewAccountCacheRepository(rdb, cfg.RedisExp)
	cachedAccountRepo := repositories.NewCachedAccountReadRepository(accountReadRepo, accountCache)
	taskWriteRepo := repositories.NewTaskWriteRepository(db, middlewares.GetTxFromContext)
	taskReadRepo := repositories.NewTaskReadRepository(db)

	// Initialize services
	authService := services.NewAuthService(accountReadRepo, accountWriteRepo, passwords, apiKeys, tokens)
	resolver := services.NewPrincipalResolver(tokens, cachedAccountRepo)
	taskService := services.NewTaskService(taskWriteRepo, taskReadRepo, kafkaWriter, middlewares.AfterCommit)

	r := newRouter(
		authService, resolver, taskService, tokens,
		middlewares.TxMiddleware(db),
		cfg.CORSAllowedOrigins,
		fmt.Sprintf("http://%s:%s/swagger/doc.json", cfg.AppHost, cfg.AppPort),
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort),
		Handler: r,
	}

	// Graceful shutdown
	errChan := make(chan error, 1)
	ctxShutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	go func() {
		logger.Log.Infof("HTTP server listening on %s:%s", cfg.AppHost, cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	select {
	case <-ctxShutdown.Done():
		logger.Log.Info("Shutdown signal received, stopping HTTP server...")
	case serveErr := <-errChan:
		return serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorw("HTTP server shutdown error", "error", err)
	}

	logger.Log.Info("HTTP server stopped gracefully")
	return nil
}
