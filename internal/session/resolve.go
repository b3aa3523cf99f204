package session

import (
	"fmt"
	"os"
	"regexp"

	"github.com/matheus3301/chatdock/internal/config"
)

const (
	// DefaultName is used when nothing else names a session.
	DefaultName = "main"
	// EnvSession selects the session when no flag is given.
	EnvSession = "CHATDOCK_SESSION"
)

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Resolve picks the session name: the --session flag, then
// $CHATDOCK_SESSION, then default_session from config.toml, then "main".
func Resolve(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(EnvSession); env != "" {
		return env
	}
	if cfg, err := config.Load(ConfigPath()); err == nil && cfg.DefaultSession != "" {
		return cfg.DefaultSession
	}
	return DefaultName
}

// ValidateName rejects names that are unsafe as a directory name. Names
// start with a letter or digit so they never read as a flag.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid session name %q: use 1-64 of [a-z0-9_-], starting with a letter or digit", name)
	}
	return nil
}
