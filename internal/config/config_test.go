package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseExpiresIn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Duration
	}{
		{in: "30s", want: 30 * time.Second},
		{in: "15m", want: 15 * time.Minute},
		{in: "1h", want: time.Hour},
		{in: "12h", want: 12 * time.Hour},
		{in: "7d", want: 7 * 24 * time.Hour},
		{in: "", want: time.Hour},
		{in: "1w", want: time.Hour},
		{in: "h", want: time.Hour},
		{in: "10", want: time.Hour},
		{in: "0m", want: time.Hour},
		{in: " 2h ", want: 2 * time.Hour},
		{in: "106751d", want: 106751 * 24 * time.Hour},
		{in: "106752d", want: time.Hour},
		{in: "9999999999999d", want: time.Hour},
		{in: "99999999999999999999s", want: time.Hour},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseExpiresIn(tt.in))
		})
	}
}

func TestCSV(t *testing.T) {
	assert.Nil(t, CSV(""))
	assert.Equal(t, []string{"a:9092", "b:9092"}, CSV(" a:9092, ,b:9092 "))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("JWT_EXPIRES_IN", "")
	t.Setenv("ADMIN_EMAIL", "")

	cfg := Load()
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, time.Hour, cfg.TokenLifetime)
	assert.Equal(t, DefaultAdminEmail, cfg.AdminEmail)
	assert.Equal(t, "clients", cfg.ESClientIndex)
}
