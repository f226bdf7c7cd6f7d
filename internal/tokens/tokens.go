package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type AccessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 access tokens. The server keeps no token state.
type Issuer struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

func NewIssuer(secret []byte, lifetime time.Duration) *Issuer {
	return &Issuer{secret: secret, lifetime: lifetime, now: time.Now}
}

// WithNow replaces the time source, used by tests.
func (i *Issuer) WithNow(now func() time.Time) *Issuer {
	i.now = now
	return i
}

func (i *Issuer) Lifetime() time.Duration { return i.lifetime }

func (i *Issuer) Issue(subjectID, email, role string) (string, time.Time, error) {
	iat := i.now()
	exp := iat.Add(i.lifetime)
	claims := AccessClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func (i *Issuer) Parse(raw string) (*AccessClaims, error) {
	var claims AccessClaims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !tkn.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// ExpiresIn is the remaining lifetime of already verified claims.
func (i *Issuer) ExpiresIn(claims *AccessClaims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	left := claims.ExpiresAt.Time.Sub(i.now())
	if left < 0 {
		return 0
	}
	return left
}
