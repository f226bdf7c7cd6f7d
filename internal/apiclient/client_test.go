package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/optica/internal/models"
	"github.com/Skotchmaster/optica/internal/transport"
)

func newFakeServer(t *testing.T) *httptest.Server {
	t.Helper()

	e := echo.New()
	e.POST("/auth/login", func(c echo.Context) error {
		var req transport.LoginRequest
		if err := c.Bind(&req); err != nil {
			return err
		}
		if req.Password != "secret123" {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
		}
		return c.JSON(http.StatusOK, transport.AuthResponse{
			AccessToken: "tok-1",
			ExpiresIn:   3600000,
			User:        &models.User{Email: req.Email, Role: models.RoleSeller},
		})
	})
	e.POST("/auth/refresh", func(c echo.Context) error {
		if c.Request().Header.Get(echo.HeaderAuthorization) != "Bearer tok-1" {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}
		return c.JSON(http.StatusOK, transport.AuthResponse{AccessToken: "tok-2", ExpiresIn: 1000})
	})
	e.GET("/auth/token-info", func(c echo.Context) error {
		return c.JSON(http.StatusOK, transport.TokenInfoResponse{ExpiresIn: 1500})
	})
	e.GET("/auth/profile", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	})
	e.POST("/clients", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusConflict, "conflict: client with national_id 1-9 already exists")
	})
	e.POST("/prescriptions", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{
			"message": "validation failed",
			"fields":  map[string]string{"type": "oneof=distance near"},
		})
	})
	e.GET("/prescriptions/latest-by-national-id-and-type", func(c echo.Context) error {
		if c.QueryParam("national_id") != "1-9" || c.QueryParam("type") != "near" {
			return echo.NewHTTPError(http.StatusBadRequest, "bad query")
		}
		return echo.NewHTTPError(http.StatusNotFound, "not found: no prescription for 1-9")
	})
	e.DELETE("/clients/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusForbidden, "you don't have enough rights")
	})
	e.GET("/work-orders/by-number/:n", func(c echo.Context) error {
		return c.JSON(http.StatusOK, models.WorkOrder{OrderNumber: 7})
	})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Auth(t *testing.T) {
	srv := newFakeServer(t)
	c := NewClient(srv.URL + "/")
	ctx := context.Background()

	_, err := c.Login(ctx, "a@b.cl", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := c.Login(ctx, "a@b.cl", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", res.AccessToken)
	assert.Equal(t, "a@b.cl", res.User.Email)
	assert.EqualValues(t, 3600000, res.ExpiresIn.Milliseconds())

	refreshed, err := c.Refresh(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", refreshed.AccessToken)

	_, err = c.Refresh(ctx, "stale")
	assert.True(t, IsUnauthorized(err))

	left, err := c.TokenInfo(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1500, left.Milliseconds())
}

func TestClient_UnauthorizedHook(t *testing.T) {
	srv := newFakeServer(t)
	c := NewClient(srv.URL)
	c.SetTokenSource(func() string { return "tok-1" })

	var calls atomic.Int32
	c.OnUnauthorized(func() { calls.Add(1) })

	_, err := c.Profile(context.Background())
	assert.True(t, IsUnauthorized(err))
	assert.EqualValues(t, 1, calls.Load())

	_, err = c.WorkOrderByNumber(context.Background(), 7)
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_ErrorClassification(t *testing.T) {
	srv := newFakeServer(t)
	c := NewClient(srv.URL)
	ctx := context.Background()

	_, err := c.CreateClient(ctx, transport.CreateClientRequest{NationalID: "1-9", Name: "Ana"})
	assert.True(t, IsConflict(err))

	_, err = c.CreatePrescription(ctx, transport.CreatePrescriptionRequest{})
	require.True(t, IsValidation(err))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "validation failed", apiErr.Message)
	assert.Equal(t, "oneof=distance near", apiErr.Fields["type"])

	_, err = c.LatestPrescription(ctx, "1-9", models.PrescriptionNear)
	assert.True(t, IsNotFound(err))

	err = c.DeleteClient(ctx, uuid.New())
	assert.True(t, IsForbidden(err))
	assert.False(t, IsUnauthorized(err))
}
