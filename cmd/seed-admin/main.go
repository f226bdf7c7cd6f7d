package main

import (
	"context"
	"log"
	"time"

	"github.com/spf13/pflag"

	"github.com/Skotchmaster/optica/internal/config"
	"github.com/Skotchmaster/optica/internal/db"
	"github.com/Skotchmaster/optica/internal/events"
	"github.com/Skotchmaster/optica/internal/logging"
	"github.com/Skotchmaster/optica/internal/repo"
	"github.com/Skotchmaster/optica/internal/service"
	"github.com/Skotchmaster/optica/internal/tokens"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()

	email := pflag.String("email", cfg.AdminEmail, "admin email")
	password := pflag.String("password", cfg.AdminPassword, "admin password (defaults to ADMIN_PASSWORD)")
	name := pflag.String("name", "Administrador", "admin display name")
	pflag.Parse()

	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmpty(*password, "ADMIN_PASSWORD")

	logger := logging.New(cfg.LogLevel).With("service", "seed-admin")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := db.Migrate(ctx, gdb); err != nil {
		log.Fatalf("db: %v", err)
	}

	svc := &service.AuthService{
		Repo:   &repo.GormRepo{DB: gdb},
		Tokens: tokens.NewIssuer([]byte("unused"), time.Minute),
		Events: events.Nop{},
	}
	u, created, err := svc.EnsureAdmin(ctx, *email, *password, *name)
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	if created {
		logger.Info("admin_created", "email", u.Email, "id", u.ID)
	} else {
		logger.Info("admin_exists", "email", u.Email, "id", u.ID)
	}
}
