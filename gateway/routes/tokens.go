package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"stakeledger/core"
)

type tokenRoutes struct {
	node *core.Node
}

type tokenAmountRequest struct {
	Spender string `json:"spender,omitempty"`
	To      string `json:"to,omitempty"`
	Amount  string `json:"amount"`
}

func (tr *tokenRoutes) mount(r chi.Router) {
	r.Post("/{symbol}/approve", tr.approve)
	r.Post("/{symbol}/transfer", tr.transfer)
	r.Get("/{symbol}/balances/{address}", tr.balance)
	r.Get("/{symbol}/allowances/{owner}/{spender}", tr.allowance)
}

func symbolParam(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol")))
}

func (tr *tokenRoutes) approve(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	var req tokenAmountRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	spender, err := parseAddress(req.Spender)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := tr.node.TokenApprove(r.Context(), from, symbolParam(r), spender, amount); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"allowance": amount.String()})
}

func (tr *tokenRoutes) transfer(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	var req tokenAmountRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	to, err := parseAddress(req.To)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := tr.node.TokenTransfer(r.Context(), from, symbolParam(r), to, amount); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"transferred": amount.String()})
}

func (tr *tokenRoutes) balance(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	bal, err := tr.node.TokenBalance(r.Context(), symbolParam(r), addr)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"balance": amountString(bal)})
}

func (tr *tokenRoutes) allowance(w http.ResponseWriter, r *http.Request) {
	owner, err := pathAddress(r, "owner")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	spender, err := pathAddress(r, "spender")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	out, err := tr.node.TokenAllowance(r.Context(), symbolParam(r), owner, spender)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"allowance": amountString(out)})
}
