package common

import (
	"errors"
	"fmt"
)

// Rejection kinds shared by every engine. Engines never return these directly;
// they wrap them in a Revert carrying the descriptive reason.
var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInsufficientFunds  = errors.New("insufficient allowance or balance")
	ErrWindowClosed       = errors.New("window closed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidIndex       = errors.New("invalid index")
	ErrAlreadyClaimed     = errors.New("already claimed")
	ErrExceedsDeposit     = errors.New("exceeds deposit")
	ErrModulePaused       = errors.New("module paused")
	ErrNotMature          = errors.New("position not mature")
	ErrUnknownPool        = errors.New("unknown pool")
	ErrNotInitialized     = errors.New("not initialized")
	ErrAlreadyInitialized = errors.New("already initialized")
)

// Revert is a user-visible rejection. Error returns the reason; errors.Is
// matches the kind.
type Revert struct {
	Kind   error
	Reason string
}

func (r *Revert) Error() string {
	if r == nil {
		return ""
	}
	if r.Reason == "" && r.Kind != nil {
		return r.Kind.Error()
	}
	return r.Reason
}

func (r *Revert) Unwrap() error { return r.Kind }

// NewRevert builds a rejection of the given kind.
func NewRevert(kind error, reason string) error {
	return &Revert{Kind: kind, Reason: reason}
}

// Revertf builds a rejection with a formatted reason.
func Revertf(kind error, format string, args ...interface{}) error {
	return &Revert{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// AsRevert extracts the rejection from err. Infrastructure failures return
// false.
func AsRevert(err error) (*Revert, bool) {
	var r *Revert
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// KindName returns a stable label for the rejection kind, used by metrics and
// API responses.
func KindName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrWindowClosed):
		return "window_closed"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidIndex):
		return "invalid_index"
	case errors.Is(err, ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, ErrExceedsDeposit):
		return "exceeds_deposit"
	case errors.Is(err, ErrModulePaused):
		return "paused"
	case errors.Is(err, ErrNotMature):
		return "not_mature"
	case errors.Is(err, ErrUnknownPool):
		return "unknown_pool"
	case errors.Is(err, ErrNotInitialized):
		return "not_initialized"
	case errors.Is(err, ErrAlreadyInitialized):
		return "already_initialized"
	default:
		return "internal"
	}
}
