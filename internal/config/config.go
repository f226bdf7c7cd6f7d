package config

import (
	"log"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultTokenLifetime = time.Hour
	DefaultAdminEmail    = "admin_tuvision@tuvision.cl"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DatabaseURL string

	JWTSecret     []byte
	TokenLifetime time.Duration

	KafkaBrokers []string

	ESURL         string
	ESUser        string
	ESPassword    string
	ESClientIndex string

	LoginRatePerMin int
	LoginBurst      int

	CORSOrigins []string

	AdminEmail    string
	AdminPassword string
}

// LoadDotEnv reads the given .env files when present. Missing files are not an error.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			log.Printf("warning: could not load %s: %v", p, err)
		}
	}
}

func Load() Config {
	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "optica"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:     []byte(os.Getenv("JWT_SECRET")),
		TokenLifetime: ParseExpiresIn(os.Getenv("JWT_EXPIRES_IN")),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:         os.Getenv("ES_URL"),
		ESUser:        os.Getenv("ES_USER"),
		ESPassword:    os.Getenv("ES_PASSWORD"),
		ESClientIndex: EnvDefault("ES_CLIENT_INDEX", "clients"),

		LoginRatePerMin: EnvIntDefault("LOGIN_RATE_PER_MIN", 10),
		LoginBurst:      EnvIntDefault("LOGIN_BURST", 5),

		CORSOrigins: CSV(os.Getenv("CORS_ORIGINS")),

		AdminEmail:    EnvDefault("ADMIN_EMAIL", DefaultAdminEmail),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
}

var expiresInRe = regexp.MustCompile(`^(\d+)([smhd])$`)

// ParseExpiresIn accepts "<n>s", "<n>m", "<n>h" or "<n>d". Anything else yields one hour.
func ParseExpiresIn(v string) time.Duration {
	m := expiresInRe.FindStringSubmatch(strings.TrimSpace(v))
	if m == nil {
		return DefaultTokenLifetime
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return DefaultTokenLifetime
	}
	unit := map[string]time.Duration{
		"s": time.Second,
		"m": time.Minute,
		"h": time.Hour,
		"d": 24 * time.Hour,
	}[m[2]]
	if int64(n) > math.MaxInt64/int64(unit) {
		return DefaultTokenLifetime
	}
	return time.Duration(n) * unit
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
