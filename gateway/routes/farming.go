package routes

import (
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"stakeledger/core"
)

type farmingRoutes struct {
	node *core.Node
}

type amountRequest struct {
	Amount string `json:"amount"`
}

type addPoolRequest struct {
	Asset      string `json:"asset"`
	Weight     uint64 `json:"weight"`
	MassUpdate bool   `json:"massUpdate"`
}

type setWeightRequest struct {
	Weight     uint64 `json:"weight"`
	MassUpdate bool   `json:"massUpdate"`
}

type pauseRequest struct {
	Paused bool `json:"paused"`
}

func (fr *farmingRoutes) mount(r chi.Router) {
	r.Get("/", fr.window)
	r.Get("/pending", fr.totalPending)
	r.Post("/fund", fr.fund)
	r.Post("/settle", fr.massSettle)
	r.Post("/pause", fr.setPaused)

	r.Get("/pools", fr.listPools)
	r.Post("/pools", fr.addPool)
	r.Get("/pools/{pid}", fr.pool)
	r.Put("/pools/{pid}/weight", fr.setWeight)
	r.Post("/pools/{pid}/settle", fr.settle)
	r.Post("/pools/{pid}/deposit", fr.deposit)
	r.Post("/pools/{pid}/withdraw", fr.withdraw)
	r.Post("/pools/{pid}/emergency-withdraw", fr.emergencyWithdraw)
	r.Get("/pools/{pid}/pending/{address}", fr.pending)
	r.Get("/pools/{pid}/deposits/{address}", fr.deposited)
}

func (fr *farmingRoutes) window(w http.ResponseWriter, r *http.Request) {
	win, err := fr.node.FarmingWindow(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		windowView
		Head headView `json:"head"`
	}{newWindowView(win), newHeadView(fr.node.Head())})
}

func (fr *farmingRoutes) totalPending(w http.ResponseWriter, r *http.Request) {
	out, err := fr.node.FarmingTotalPending(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"totalPending": amountString(out)})
}

func (fr *farmingRoutes) fund(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := fr.node.FarmingFund(r.Context(), from, amount); err != nil {
		writeLedgerError(w, err)
		return
	}
	fr.window(w, r)
}

func (fr *farmingRoutes) massSettle(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	if err := fr.node.FarmingMassSettle(r.Context(), from); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newHeadView(fr.node.Head()))
}

func (fr *farmingRoutes) setPaused(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	var req pauseRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := fr.node.FarmingSetPaused(r.Context(), from, req.Paused); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": req.Paused})
}

func (fr *farmingRoutes) listPools(w http.ResponseWriter, r *http.Request) {
	length, err := fr.node.FarmingPoolLength(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	pools := make([]poolView, 0, length)
	for id := uint64(0); id < length; id++ {
		p, err := fr.node.FarmingPool(r.Context(), id)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		pools = append(pools, newPoolView(p))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"length": length, "pools": pools})
}

func (fr *farmingRoutes) addPool(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	var req addPoolRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	p, err := fr.node.FarmingAddPool(r.Context(), from, req.Weight, req.Asset, req.MassUpdate)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPoolView(p))
}

func (fr *farmingRoutes) pool(w http.ResponseWriter, r *http.Request) {
	pid, err := pathUint(r, "pid")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	p, err := fr.node.FarmingPool(r.Context(), pid)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPoolView(p))
}

func (fr *farmingRoutes) setWeight(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	pid, err := pathUint(r, "pid")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req setWeightRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := fr.node.FarmingSetWeight(r.Context(), from, pid, req.Weight, req.MassUpdate); err != nil {
		writeLedgerError(w, err)
		return
	}
	fr.pool(w, r)
}

func (fr *farmingRoutes) settle(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	pid, err := pathUint(r, "pid")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := fr.node.FarmingSettle(r.Context(), from, pid); err != nil {
		writeLedgerError(w, err)
		return
	}
	fr.pool(w, r)
}

// positionArgs resolves the caller, the pool id and, when withAmount is set,
// the request amount of a position call.
func positionArgs(w http.ResponseWriter, r *http.Request, withAmount bool) (common.Address, uint64, *big.Int, bool) {
	from, ok := caller(w, r)
	if !ok {
		return common.Address{}, 0, nil, false
	}
	pid, err := pathUint(r, "pid")
	if err != nil {
		writeBadRequest(w, err)
		return common.Address{}, 0, nil, false
	}
	if !withAmount {
		return from, pid, nil, true
	}
	var req amountRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return common.Address{}, 0, nil, false
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeBadRequest(w, err)
		return common.Address{}, 0, nil, false
	}
	return from, pid, amount, true
}

func (fr *farmingRoutes) writePosition(w http.ResponseWriter, r *http.Request, pid uint64, from common.Address, reward, principal *big.Int) {
	deposited, err := fr.node.FarmingDeposited(r.Context(), pid, from)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"reward":    amountString(reward),
		"principal": amountString(principal),
		"deposited": amountString(deposited),
	})
}

func (fr *farmingRoutes) deposit(w http.ResponseWriter, r *http.Request) {
	from, pid, amount, ok := positionArgs(w, r, true)
	if !ok {
		return
	}
	reward, err := fr.node.FarmingDeposit(r.Context(), from, pid, amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	fr.writePosition(w, r, pid, from, reward, nil)
}

func (fr *farmingRoutes) withdraw(w http.ResponseWriter, r *http.Request) {
	from, pid, amount, ok := positionArgs(w, r, true)
	if !ok {
		return
	}
	reward, err := fr.node.FarmingWithdraw(r.Context(), from, pid, amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	fr.writePosition(w, r, pid, from, reward, amount)
}

func (fr *farmingRoutes) emergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	from, pid, _, ok := positionArgs(w, r, false)
	if !ok {
		return
	}
	principal, err := fr.node.FarmingEmergencyWithdraw(r.Context(), from, pid)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	fr.writePosition(w, r, pid, from, nil, principal)
}

func (fr *farmingRoutes) pending(w http.ResponseWriter, r *http.Request) {
	pid, addr, ok := poolAccount(w, r)
	if !ok {
		return
	}
	out, err := fr.node.FarmingPending(r.Context(), pid, addr)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"pending": amountString(out)})
}

func (fr *farmingRoutes) deposited(w http.ResponseWriter, r *http.Request) {
	pid, addr, ok := poolAccount(w, r)
	if !ok {
		return
	}
	out, err := fr.node.FarmingDeposited(r.Context(), pid, addr)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deposited": amountString(out)})
}

func poolAccount(w http.ResponseWriter, r *http.Request) (uint64, common.Address, bool) {
	pid, err := pathUint(r, "pid")
	if err != nil {
		writeBadRequest(w, err)
		return 0, common.Address{}, false
	}
	addr, err := pathAddress(r, "address")
	if err != nil {
		writeBadRequest(w, err)
		return 0, common.Address{}, false
	}
	return pid, addr, true
}
