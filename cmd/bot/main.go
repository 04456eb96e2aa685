package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"consultbot/internal/access"
	"consultbot/internal/booking"
	"consultbot/internal/bot"
	"consultbot/internal/config"
	"consultbot/internal/db"
	"consultbot/internal/events"
	"consultbot/internal/export"
	"consultbot/internal/metrics"
	"consultbot/internal/notify"
	"consultbot/internal/operator"
	"consultbot/internal/session"
	"consultbot/internal/slots"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("BOT_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if !cfg.Telegram.Debug {
		logger = logger.Level(zerolog.InfoLevel)
	}

	database, err := db.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}
	userSessions := sessionStore[booking.Session](rdb, cfg.Redis.KeyPrefix+"user:", cfg.SessionTTL(), &logger)
	operatorSessions := sessionStore[operator.Session](rdb, cfg.Redis.KeyPrefix+"operator:", cfg.SessionTTL(), &logger)

	tg, err := bot.NewTelegramClient(cfg.Telegram.BotToken, cfg.Telegram.Debug)
	if err != nil {
		logger.Fatal().Err(err).Msg("create telegram client error")
	}
	sender := bot.NewSender(tg)

	authorizer := access.NewAuthorizer(cfg.Operators, logger)
	relay := notify.NewRelay(sender, authorizer.Operators(), notify.Config{
		RatePerSecond: cfg.Notify.RatePerSecond,
		Burst:         cfg.Notify.Burst,
	}, &logger)

	bus := events.NewEventBus(&logger)
	relay.SubscribeRegistrations(bus, 30*time.Second)

	engine := booking.NewEngine(booking.Deps{
		Users:         database,
		Registrations: database,
		Slots:         slots.NewResolver(database, cfg.HoldTTL()),
		Sessions:      userSessions,
		Oracle:        bot.NewChannelOracle(tg, cfg.Channel.ID),
		Sender:        sender,
		Relay:         relay,
		Events:        bus,
	}, booking.Config{ChannelURL: cfg.Channel.URL}, &logger)

	panel := operator.NewWorkflow(operator.Deps{
		Store:    database,
		Sessions: operatorSessions,
		Access:   authorizer,
		Exporter: export.NewExporter(export.Config{Dir: cfg.Export.Dir, Title: cfg.Export.Title}, &logger),
		Replier:  relay,
		Sender:   sender,
	}, &logger)

	b, err := bot.New(tg, engine, panel, cfg.Telegram.Workers, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create bot error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, database, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	backup := db.NewBackupService(database, db.BackupConfig{
		Enabled:   cfg.Backup.Enabled,
		Dir:       cfg.Backup.Path,
		Interval:  cfg.BackupInterval(),
		Retention: cfg.BackupRetention(),
	}, &logger)
	go backup.Start(ctx)

	logger.Info().Int("operators", len(authorizer.Operators())).Msg("Consultation bot started")
	b.Start(ctx)
}

// sessionStore returns redis with in-memory failover when redis is
// configured, plain memory otherwise.
func sessionStore[T any](rdb *redis.Client, prefix string, ttl time.Duration, logger *zerolog.Logger) session.Store[T] {
	if rdb == nil {
		return session.NewMemory[T]()
	}
	return session.NewFailover[T](session.NewRedis[T](rdb, prefix, ttl), session.NewMemory[T](), logger)
}

func startHealthServer(ctx context.Context, port int, database *db.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := database.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
