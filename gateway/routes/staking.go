package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"stakeledger/core"
	"stakeledger/native/staking"
)

type stakingRoutes struct {
	node *core.Node
}

type percentageRequest struct {
	Percentage uint64 `json:"percentage"`
}

type accountRequest struct {
	Account string `json:"account"`
}

func (sr *stakingRoutes) mount(r chi.Router) {
	r.Get("/", sr.config)
	r.Post("/stake", sr.stake)
	r.Post("/unstake", sr.unstake)
	r.Post("/unstake/forced", sr.unstakeForced)
	r.Post("/unstake/{index}", sr.unstakeSingle)
	r.Post("/rewards", sr.addRewards)
	r.Put("/percentage", sr.updatePercentage)
	r.Post("/pause", sr.pause)
	r.Post("/unpause", sr.unpause)
	r.Post("/admins", sr.grantRole)
	r.Delete("/admins/{address}", sr.revokeRole)

	r.Get("/positions/{address}", sr.positions)
	r.Get("/positions/{address}/{index}", sr.position)
	r.Get("/rewards/{address}", sr.computeRewards)
}

func (sr *stakingRoutes) config(w http.ResponseWriter, r *http.Request) {
	cfg, err := sr.node.StakingConfig(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	paused, err := sr.node.StakingPaused(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStakingConfigView(cfg, paused))
}

func (sr *stakingRoutes) stake(w http.ResponseWriter, r *http.Request) {
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
	pos, err := sr.node.StakingStake(r.Context(), from, amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPositionView(pos))
}

func (sr *stakingRoutes) writePayout(w http.ResponseWriter, payout *staking.Payout, err error) {
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPayoutView(payout))
}

func (sr *stakingRoutes) unstake(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	payout, err := sr.node.StakingUnstake(r.Context(), from)
	sr.writePayout(w, payout, err)
}

func (sr *stakingRoutes) unstakeForced(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	payout, err := sr.node.StakingUnstakeForced(r.Context(), from)
	sr.writePayout(w, payout, err)
}

func (sr *stakingRoutes) unstakeSingle(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	index, err := pathUint(r, "index")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	payout, err := sr.node.StakingUnstakeSingle(r.Context(), from, index)
	sr.writePayout(w, payout, err)
}

func (sr *stakingRoutes) addRewards(w http.ResponseWriter, r *http.Request) {
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
	if err := sr.node.StakingAddRewards(r.Context(), from, amount); err != nil {
		writeLedgerError(w, err)
		return
	}
	sr.config(w, r)
}

func (sr *stakingRoutes) updatePercentage(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	var req percentageRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := sr.node.StakingUpdateRewardsPercentage(r.Context(), from, req.Percentage); err != nil {
		writeLedgerError(w, err)
		return
	}
	sr.config(w, r)
}

func (sr *stakingRoutes) pause(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	if err := sr.node.StakingPause(r.Context(), from); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

func (sr *stakingRoutes) unpause(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	if err := sr.node.StakingUnpause(r.Context(), from); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

func (sr *stakingRoutes) grantRole(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	var req accountRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	account, err := parseAddress(req.Account)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := sr.node.StakingGrantRole(r.Context(), from, account); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"role": staking.AdminRoleID, "granted": req.Account})
}

func (sr *stakingRoutes) revokeRole(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	account, err := pathAddress(r, "address")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := sr.node.StakingRevokeRole(r.Context(), from, account); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"role": staking.AdminRoleID, "revoked": chi.URLParam(r, "address")})
}

func (sr *stakingRoutes) positions(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	queue, list, err := sr.node.StakingPositions(r.Context(), addr)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	views := make([]positionView, 0, len(list))
	for _, pos := range list {
		views = append(views, newPositionView(pos))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"head":      queue.Head,
		"tail":      queue.Tail,
		"positions": views,
	})
}

func (sr *stakingRoutes) position(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	index, err := pathUint(r, "index")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	pos, err := sr.node.StakingPosition(r.Context(), addr, index)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPositionView(pos))
}

func (sr *stakingRoutes) computeRewards(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	out, err := sr.node.StakingComputeRewards(r.Context(), addr)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"rewards": amountString(out)})
}
