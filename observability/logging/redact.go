package logging

import (
	"log/slog"
	"net/url"
	"sort"
	"strings"
)

// RedactedValue replaces secrets in log output.
const RedactedValue = "[REDACTED]"

// Keys that always carry credentials: bearer tokens, the gateway signing
// secret, database passwords.
var secretKeys = map[string]struct{}{
	"token":         {},
	"authorization": {},
	"secret":        {},
	"hmacsecret":    {},
	"password":      {},
	"passphrase":    {},
}

// Keys the ledger logs verbatim even when passed through MaskField.
var redactionAllowlist = map[string]struct{}{
	"service":   {},
	"env":       {},
	"message":   {},
	"severity":  {},
	"timestamp": {},
	"error":     {},
	"reason":    {},
	"component": {},
	"module":    {},
	"operation": {},
	"caller":    {},
	"height":    {},
	"kind":      {},
	"requestId": {},
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// IsSecretKey reports whether values logged under key are always masked.
func IsSecretKey(key string) bool {
	_, ok := secretKeys[normalizeKey(key)]
	return ok
}

// IsAllowlisted reports whether key is exempt from MaskField.
func IsAllowlisted(key string) bool {
	_, ok := redactionAllowlist[normalizeKey(key)]
	return ok
}

// RedactionAllowlist returns the allowlisted keys, sorted.
func RedactionAllowlist() []string {
	keys := make([]string, 0, len(redactionAllowlist))
	for key := range redactionAllowlist {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MaskField redacts value unless key is allowlisted. Empty values pass through.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// RedactDSN hides the password of a database URL. SQLite paths are returned
// unchanged.
func RedactDSN(dsn string) string {
	if !strings.Contains(dsn, "://") {
		return dsn
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return RedactedValue
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), RedactedValue)
	}
	q := u.Query()
	if q.Has("password") {
		q.Set("password", RedactedValue)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// redactSecrets masks attributes logged under a secret key, whatever the
// call site passed.
func redactSecrets(attr slog.Attr) slog.Attr {
	if !IsSecretKey(attr.Key) {
		return attr
	}
	if attr.Value.Kind() == slog.KindString && strings.TrimSpace(attr.Value.String()) == "" {
		return attr
	}
	return slog.String(attr.Key, RedactedValue)
}
