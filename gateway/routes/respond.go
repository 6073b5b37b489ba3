package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"stakeledger/gateway/middleware"
	nativecommon "stakeledger/native/common"
)

const requestLimit = 1 << 20 // 1 MiB

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	body, _ := json.Marshal(errorBody{Error: errorDetail{Code: code, Message: message}})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
}

// writeLedgerError maps a rejected call onto an HTTP status. Reverts carry
// their reason to the client; anything else is an internal failure.
func writeLedgerError(w http.ResponseWriter, err error) {
	revert, ok := nativecommon.AsRevert(err)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	writeError(w, statusForKind(revert.Kind), nativecommon.KindName(err), revert.Reason)
}

func statusForKind(kind error) int {
	switch {
	case errors.Is(kind, nativecommon.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(kind, nativecommon.ErrInvalidAmount),
		errors.Is(kind, nativecommon.ErrInvalidIndex),
		errors.Is(kind, nativecommon.ErrUnknownPool):
		return http.StatusBadRequest
	case errors.Is(kind, nativecommon.ErrInsufficientFunds),
		errors.Is(kind, nativecommon.ErrExceedsDeposit):
		return http.StatusUnprocessableEntity
	case errors.Is(kind, nativecommon.ErrWindowClosed),
		errors.Is(kind, nativecommon.ErrAlreadyClaimed),
		errors.Is(kind, nativecommon.ErrModulePaused),
		errors.Is(kind, nativecommon.ErrNotMature),
		errors.Is(kind, nativecommon.ErrNotInitialized),
		errors.Is(kind, nativecommon.ErrAlreadyInitialized):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func decodeRequest(r *http.Request, out interface{}) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, requestLimit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body required")
		}
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

// caller returns the authenticated account or writes 401.
func caller(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
		return common.Address{}, false
	}
	return p.Address, true
}

func parseAmount(v string) (*big.Int, error) {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil, errors.New("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", v)
	}
	return amount, nil
}

func parseAddress(v string) (common.Address, error) {
	v = strings.TrimSpace(v)
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("invalid address %q", v)
	}
	return common.HexToAddress(v), nil
}

func pathUint(r *http.Request, name string) (uint64, error) {
	raw := chi.URLParam(r, name)
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}

func pathAddress(r *http.Request, name string) (common.Address, error) {
	return parseAddress(chi.URLParam(r, name))
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
