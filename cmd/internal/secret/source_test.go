package secret

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func nonTerminal(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "stdin"))
	if err != nil {
		t.Fatalf("create stdin: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestSourcePrefersEnvironment(t *testing.T) {
	t.Setenv("LEDGER_TEST_SECRET", "from-env")
	s := NewSource("LEDGER_TEST_SECRET", "signing secret").WithFallback("from-config")
	got, err := s.Get()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "from-env" {
		t.Fatalf("unexpected secret %q", got)
	}
}

func TestSourceRejectsEmptyEnvironment(t *testing.T) {
	t.Setenv("LEDGER_TEST_SECRET", "  ")
	_, err := NewSource("LEDGER_TEST_SECRET", "signing secret").Get()
	if err == nil || !strings.Contains(err.Error(), "set but empty") {
		t.Fatalf("expected empty env error, got %v", err)
	}
}

func TestSourceFallbackAndNoTerminal(t *testing.T) {
	s := NewSource("", "signing secret").WithFallback("from-config")
	s.stdin = nonTerminal(t)
	got, err := s.Get()
	if err != nil || got != "from-config" {
		t.Fatalf("expected fallback, got %q %v", got, err)
	}

	s = NewSource("LEDGER_TEST_UNSET_SECRET", "signing secret")
	s.stdin = nonTerminal(t)
	_, err = s.Get()
	if err == nil || !strings.Contains(err.Error(), "LEDGER_TEST_UNSET_SECRET") {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}
