package exports

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"stakeledger/storage/history"
)

// Format names an export encoding.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSONL   Format = "jsonl"
	FormatParquet Format = "parquet"
)

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(v string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(v))); f {
	case FormatCSV, FormatJSONL, FormatParquet:
		return f, nil
	default:
		return "", fmt.Errorf("exports: unknown format %q", v)
	}
}

// Extension returns the file suffix for f.
func (f Format) Extension() string { return "." + string(f) }

// Encode serialises payouts in format f and returns the payload with its
// SHA-256 checksum.
func Encode(f Format, payouts []history.Payout) ([]byte, string, error) {
	switch f {
	case FormatCSV:
		return PayoutsCSV(payouts)
	case FormatJSONL:
		return PayoutsJSONL(payouts)
	case FormatParquet:
		return PayoutsParquet(payouts)
	default:
		return nil, "", fmt.Errorf("exports: unknown format %q", f)
	}
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func poolString(p *uint64) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%d", *p)
}

func amountString(v string) string {
	if v == "" {
		return "0"
	}
	return v
}

func blockTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
