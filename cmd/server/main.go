package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/optica/internal/config"
	"github.com/Skotchmaster/optica/internal/db"
	"github.com/Skotchmaster/optica/internal/es"
	"github.com/Skotchmaster/optica/internal/events"
	"github.com/Skotchmaster/optica/internal/httpserver"
	"github.com/Skotchmaster/optica/internal/logging"
	"github.com/Skotchmaster/optica/internal/metrics"
	"github.com/Skotchmaster/optica/internal/middleware/ratelimit"
	"github.com/Skotchmaster/optica/internal/repo"
	"github.com/Skotchmaster/optica/internal/service"
	"github.com/Skotchmaster/optica/internal/tokens"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	cfg.MustServer()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err == nil {
		err = db.Migrate(ctx, gdb)
	}
	cancel()
	if err != nil {
		log.Fatalf("db: %v", err)
	}

	var pub events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.KafkaBrokers)
		logger.Info("kafka_enabled", "brokers", cfg.KafkaBrokers)
	}

	r := &repo.GormRepo{DB: gdb}
	issuer := tokens.NewIssuer(cfg.JWTSecret, cfg.TokenLifetime)
	m := metrics.New()

	authSvc := &service.AuthService{Repo: r, Tokens: issuer, Events: pub}
	clientSvc := &service.ClientService{Repo: r, Events: pub}
	if cfg.ESURL != "" {
		esCtx, esCancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := es.NewClient(esCtx, es.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword}, logger)
		esCancel()
		if err != nil {
			// search falls back to the database
			logger.Warn("es_unavailable", "error", err)
		} else {
			clientSvc.Index = es.NewClientIndex(client, cfg.ESClientIndex)
		}
	}

	if cfg.AdminPassword != "" {
		if _, created, err := authSvc.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword, "Administrador"); err != nil {
			logger.Error("ensure_admin_failed", "error", err)
		} else if created {
			logger.Info("admin_created", "email", cfg.AdminEmail)
		}
	}

	e := httpserver.NewEcho(httpserver.Options{Logger: logger, Metrics: m, CORSOrigins: cfg.CORSOrigins})
	httpserver.Register(e, &httpserver.Deps{
		Auth:          &httpserver.AuthHTTP{Svc: authSvc},
		Users:         &httpserver.UsersHTTP{Svc: &service.UserService{Repo: r, Events: pub}},
		Clients:       &httpserver.ClientsHTTP{Svc: clientSvc},
		Prescriptions: &httpserver.PrescriptionsHTTP{Svc: &service.PrescriptionService{Repo: r, Events: pub}, Metrics: m},
		WorkOrders:    &httpserver.WorkOrdersHTTP{Svc: &service.WorkOrderService{Repo: r, Events: pub}, Metrics: m},
		Tokens:        issuer,
		LoginLimiter:  ratelimit.PerMinute(cfg.LoginRatePerMin, cfg.LoginBurst),
		Metrics:       m,
		Ready:         func(ctx context.Context) error { return db.Ping(ctx, gdb) },
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr, "token_lifetime", cfg.TokenLifetime.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting_down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	closeDB(logger, gdb)
	if err := pub.Close(); err != nil {
		logger.Error("publisher_close_failed", "error", err)
	}
	logger.Info("stopped")
}

func closeDB(l *slog.Logger, gdb *gorm.DB) {
	sqlDB, err := gdb.DB()
	if err != nil {
		l.Error("db_handle_failed", "error", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		l.Error("db_close_failed", "error", err)
	}
}
