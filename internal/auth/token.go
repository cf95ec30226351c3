package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"stemdeck/internal/config"
	"stemdeck/internal/services"
)

// ErrAuthRequired signals that no usable bearer token is available.
var ErrAuthRequired = services.ErrAuthRequired

// expirySkew treats tokens about to expire as already expired so a request
// does not race the deadline.
const expirySkew = 30 * time.Second

// TokenProvider returns the bearer token for the next request.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider for a fixed token.
type StaticToken string

// Token returns the token or ErrAuthRequired when empty.
func (t StaticToken) Token(context.Context) (string, error) {
	token := strings.TrimSpace(string(t))
	if token == "" {
		return "", ErrAuthRequired
	}
	if err := CheckToken(token, time.Now()); err != nil {
		return "", err
	}
	return token, nil
}

// Source resolves tokens from the environment override first, then the
// token file.
type Source struct {
	override string
	store    *FileStore
	now      func() time.Time
}

// NewSource builds a Source from configuration.
func NewSource(cfg *config.Config) *Source {
	return &Source{
		override: cfg.Auth.Token,
		store:    NewFileStore(cfg.Auth.TokenFile),
		now:      time.Now,
	}
}

// Store exposes the backing file store for login/logout.
func (s *Source) Store() *FileStore {
	return s.store
}

// Token implements TokenProvider.
func (s *Source) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	token := strings.TrimSpace(s.override)
	if token == "" && s.store != nil {
		creds, err := s.store.Load()
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrAuthRequired, err)
		}
		token = strings.TrimSpace(creds.Token)
	}
	if token == "" {
		return "", ErrAuthRequired
	}
	if err := CheckToken(token, s.now()); err != nil {
		return "", err
	}
	return token, nil
}

// Expiry reports the exp claim of a JWT. Opaque tokens report ok=false.
func Expiry(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// CheckToken rejects JWTs that are expired at now. Signatures are verified by
// the backend; this only avoids sending a request that must fail. Tokens that
// are not JWTs pass unchanged.
func CheckToken(token string, now time.Time) error {
	_, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrAuthRequired, err)
	}
	exp, ok := Expiry(token)
	if ok && !now.Add(expirySkew).Before(exp) {
		return fmt.Errorf("%w: token expired at %s", ErrAuthRequired, exp.UTC().Format(time.RFC3339))
	}
	return nil
}
