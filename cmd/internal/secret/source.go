package secret

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Source lazily resolves a secret from an environment variable or by
// prompting the operator. The value is cached after the first successful
// retrieval so repeated calls reuse the same secret.
type Source struct {
	envVar string
	label  string

	// fallback is used when neither the environment nor a terminal supply a value.
	fallback string

	stdin  *os.File
	stderr io.Writer

	once  sync.Once
	value string
	err   error
}

// NewSource constructs a source that checks envVar before interactively
// prompting on the terminal for label.
func NewSource(envVar, label string) *Source {
	return &Source{
		envVar: strings.TrimSpace(envVar),
		label:  strings.TrimSpace(label),
		stdin:  os.Stdin,
		stderr: os.Stderr,
	}
}

// WithFallback returns s with a value used when no environment variable is
// set and no terminal is attached, such as a secret read from the config file.
func (s *Source) WithFallback(v string) *Source {
	s.fallback = strings.TrimSpace(v)
	return s
}

// Get returns the cached secret or resolves it if this is the first call.
// Whitespace-only secrets are rejected.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		if s.envVar != "" {
			if value, ok := os.LookupEnv(s.envVar); ok {
				if strings.TrimSpace(value) == "" {
					s.err = fmt.Errorf("%s is set but empty", s.envVar)
					return
				}
				s.value = value
				return
			}
		}
		if s.fallback != "" {
			s.value = s.fallback
			return
		}

		if s.stdin == nil || !term.IsTerminal(int(s.stdin.Fd())) {
			if s.envVar != "" {
				s.err = fmt.Errorf("%s required; set %s or run interactively", s.label, s.envVar)
			} else {
				s.err = fmt.Errorf("%s required and no terminal available", s.label)
			}
			return
		}

		fmt.Fprintf(s.stderr, "Enter %s: ", s.label)
		bytes, err := term.ReadPassword(int(s.stdin.Fd()))
		fmt.Fprintln(s.stderr)
		if err != nil {
			s.err = fmt.Errorf("failed to read %s: %w", s.label, err)
			return
		}

		value := string(bytes)
		if strings.TrimSpace(value) == "" {
			s.err = errors.New(s.label + " cannot be empty")
			return
		}
		s.value = value
	})

	return s.value, s.err
}
