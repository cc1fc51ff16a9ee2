package grateful

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"grateful.app/notifier/internal/domain"
)

// TokenSource yields the bearer credential of the signed-in user.
// It returns domain.ErrNoCredential when the user is signed out.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed credential, typically from the environment.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) {
	return usable(string(s), time.Now())
}

// FileToken re-reads the credential from a session file on every call so a
// sign-in or sign-out elsewhere is picked up without a restart.
type FileToken struct {
	Path string
}

func (f FileToken) Token(context.Context) (string, error) {
	if f.Path == "" {
		return "", domain.ErrNoCredential
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", domain.ErrNoCredential
		}
		return "", fmt.Errorf("read session token: %w", err)
	}
	return usable(string(b), time.Now())
}

// usable trims the token and rejects it when it is empty or a JWT whose exp
// has passed. Opaque tokens are passed through; the server decides.
func usable(token string, now time.Time) (string, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return "", domain.ErrNoCredential
	}
	if strings.Count(token, ".") != 2 {
		return token, nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return token, nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return token, nil
	}
	if !exp.After(now) {
		return "", domain.ErrNoCredential
	}
	return token, nil
}
