package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sitecontact/backend/internal/config"
	"github.com/sitecontact/backend/internal/handler"
	"github.com/sitecontact/backend/internal/logging"
	"github.com/sitecontact/backend/internal/mail"
	"github.com/sitecontact/backend/internal/metrics"
	"github.com/sitecontact/backend/internal/ratelimit"
	"github.com/sitecontact/backend/internal/repository"
	"github.com/sitecontact/backend/internal/service"
	"golang.org/x/sync/errgroup"
)

const janitorInterval = time.Minute

func main() {
	os.Exit(run(os.Args[1:]))
}

// run starts the server and blocks until it stops. Deferred cleanup runs
// before the exit code is returned.
func run(args []string) int {
	cfg, err := config.Load(args, config.Options{})
	if err != nil {
		slog.Error("load config failed", "error", err)
		return 1
	}
	logging.Setup(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	slog.Debug("config loaded", "config", cfg.Dump())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := repository.Open(ctx, cfg.DatabaseURL, cfg.DBConnectTimeout)
	if err != nil {
		slog.Error("failed to open submission store", "error", err)
		return 1
	}
	defer closeRepo()

	policy := ratelimit.Policy{Max: cfg.RateLimitMax, Window: cfg.RateLimitWindow}

	// Redis が未設定の場合はプロセス内メモリで制限する
	var (
		limiter     ratelimit.Store
		memoryStore *ratelimit.MemoryStore
	)
	if cfg.RedisURL != "" {
		rdb, err := newRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			return 1
		}
		defer rdb.Close()
		limiter = ratelimit.NewRedisStore(rdb, policy)
		slog.Info("rate limit state in redis")
	} else {
		memoryStore = ratelimit.NewMemoryStore(policy)
		limiter = memoryStore
		slog.Info("rate limit state in memory")
	}

	var sender mail.Sender
	if cfg.Email.SMTPEnabled() {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.User,
			Password: cfg.Email.Password,
			Timeout:  cfg.Email.SMTPTimeout,
		})
	} else {
		slog.Warn("EMAIL_SERVER_HOST not set; emails will be logged, not sent")
		sender = mail.LogSender{}
	}

	loc, _ := cfg.Email.Location()
	contactService := service.NewContactService(repo, limiter, sender, mail.Composer{
		From:         cfg.Email.From,
		AdminAddress: cfg.Email.AdminEmail,
		SiteName:     cfg.Email.SiteName,
		Location:     loc,
	})

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		slog.Error("failed to register metrics", "error", err)
		return 1
	}

	clientKey := handler.NewClientKeyFunc(cfg.TrustRemoteAddr)
	throttle := handler.NewThrottle(cfg.ThrottleRPS, cfg.ThrottleBurst, clientKey)

	router := handler.NewRouter(handler.RouterConfig{
		Handler:        handler.New(repo),
		Contact:        handler.NewContactHandler(contactService, clientKey),
		Throttle:       throttle,
		Metrics:        metrics.Handler(prometheus.DefaultGatherer),
		AllowedOrigins: cfg.FrontendURLs,
		AdminAPIKey:    cfg.AdminAPIKey,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Email.SMTPTimeout*2 + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server listening", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error { return throttle.RunJanitor(gctx, janitorInterval) })

	if memoryStore != nil {
		g.Go(func() error { return memoryStore.RunJanitor(gctx, janitorInterval) })
	}

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		return 1
	}
	slog.Info("server stopped")
	return 0
}

func newRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
