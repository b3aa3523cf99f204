package session

import (
	"os"
	"strings"
	"testing"
)

func TestResolvePrecedence(t *testing.T) {
	t.Setenv(EnvHome, t.TempDir())
	t.Setenv(EnvSession, "")

	if got := Resolve(""); got != DefaultName {
		t.Errorf("no config = %q, want %q", got, DefaultName)
	}
	if err := os.WriteFile(ConfigPath(), []byte(`default_session = "work"`), 0600); err != nil {
		t.Fatal(err)
	}
	if got := Resolve(""); got != "work" {
		t.Errorf("config = %q, want work", got)
	}
	t.Setenv(EnvSession, "env")
	if got := Resolve(""); got != "env" {
		t.Errorf("env = %q, want env", got)
	}
	if got := Resolve("flag"); got != "flag" {
		t.Errorf("flag = %q, want flag", got)
	}
}

func TestResolveIgnoresBrokenConfig(t *testing.T) {
	t.Setenv(EnvHome, t.TempDir())
	t.Setenv(EnvSession, "")
	if err := os.WriteFile(ConfigPath(), []byte(`default_session = `), 0600); err != nil {
		t.Fatal(err)
	}
	if got := Resolve(""); got != DefaultName {
		t.Errorf("broken config = %q, want %q", got, DefaultName)
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"main", true},
		{"work-2", true},
		{"a_b", true},
		{"7", true},
		{strings.Repeat("a", 64), true},
		{strings.Repeat("a", 65), false},
		{"", false},
		{"-rf", false},
		{"_x", false},
		{"Work", false},
		{"a.b", false},
		{"a/b", false},
		{"a b", false},
	}
	for _, tt := range tests {
		if err := ValidateName(tt.in); (err == nil) != tt.ok {
			t.Errorf("ValidateName(%q) = %v, want ok=%v", tt.in, err, tt.ok)
		}
	}
}
