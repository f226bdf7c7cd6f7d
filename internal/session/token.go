package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errNoExpiry = errors.New("token has no exp claim")

// TokenExpiry reads exp from the payload without checking the signature.
// The result only schedules local timers; the server remains the authority.
func TokenExpiry(raw string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, fmt.Errorf("decode token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errNoExpiry
	}
	return claims.ExpiresAt.Time.UTC(), nil
}
