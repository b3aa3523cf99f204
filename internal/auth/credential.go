package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// EnvToken overrides the credential file when set.
const EnvToken = "CHATDOCK_TOKEN"

// Claims are the fields read from a JWT credential. The signature is not
// checked here; the backend is the authority.
type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
}

// Credential is the bearer token plus whatever identity it carries.
type Credential struct {
	Token     string
	UserID    string
	Name      string
	ExpiresAt time.Time
}

// Present reports whether there is a token at all.
func (c Credential) Present() bool {
	return c.Token != ""
}

// Expired reports whether the token carries an expiry before now.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Parse builds a Credential from a raw token. Tokens that are not JWTs are
// kept as opaque bearer tokens with no identity.
func Parse(token string) Credential {
	token = strings.TrimSpace(token)
	cred := Credential{Token: token}
	if token == "" {
		return cred
	}
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return cred
	}
	cred.UserID = claims.Subject
	cred.Name = claims.Name
	if claims.ExpiresAt != nil {
		cred.ExpiresAt = claims.ExpiresAt.Time
	}
	return cred
}

// Load reads the credential from the environment or the file at path. A
// missing or expired credential yields the zero Credential and no error.
func Load(path string, now time.Time) (Credential, error) {
	raw := os.Getenv(EnvToken)
	if raw == "" {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return Credential{}, nil
		}
		if err != nil {
			return Credential{}, fmt.Errorf("read credential: %w", err)
		}
		raw = string(data)
	}
	cred := Parse(raw)
	if cred.Expired(now) {
		return Credential{}, nil
	}
	return cred, nil
}

// Save writes token to path with owner-only permissions.
func Save(path, token string) error {
	if err := os.WriteFile(path, []byte(strings.TrimSpace(token)+"\n"), 0o600); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	return nil
}
