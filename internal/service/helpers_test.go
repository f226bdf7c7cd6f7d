package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/optica/internal/db"
	"github.com/Skotchmaster/optica/internal/events"
	"github.com/Skotchmaster/optica/internal/hash"
	"github.com/Skotchmaster/optica/internal/models"
	"github.com/Skotchmaster/optica/internal/repo"
	"github.com/Skotchmaster/optica/internal/tokens"
)

func InitTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), db.Config())
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(context.Background(), gdb))
	return gdb
}

type testEnv struct {
	DB            *gorm.DB
	Repo          *repo.GormRepo
	Events        *events.Recorder
	Auth          *AuthService
	Users         *UserService
	Clients       *ClientService
	Prescriptions *PrescriptionService
	WorkOrders    *WorkOrderService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb := InitTestDB(t)
	r := &repo.GormRepo{DB: gdb}
	rec := &events.Recorder{}

	return &testEnv{
		DB:            gdb,
		Repo:          r,
		Events:        rec,
		Auth:          &AuthService{Repo: r, Tokens: tokens.NewIssuer([]byte("test-secret"), time.Hour), Events: rec},
		Users:         &UserService{Repo: r, Events: rec},
		Clients:       &ClientService{Repo: r, Events: rec},
		Prescriptions: &PrescriptionService{Repo: r, Events: rec},
		WorkOrders:    &WorkOrderService{Repo: r, Events: rec},
	}
}

func (env *testEnv) createUser(t *testing.T, email string, role models.Role) *models.User {
	t.Helper()

	pw, err := hash.HashPassword("secret123")
	require.NoError(t, err)
	u := &models.User{
		Email:        email,
		PasswordHash: pw,
		Name:         "Test " + string(role),
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, env.Repo.CreateUser(context.Background(), u))
	return u
}
