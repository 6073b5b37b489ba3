package farming

import "math/big"

// AccPrecision scales the reward-per-share accumulator. 1e36 keeps the
// per-share increment exact to 18 decimals even when a pool holds 1e18 times
// more principal than the per-tick emission.
var AccPrecision = new(big.Int).Exp(big.NewInt(10), big.NewInt(36), nil)

func minTick(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func maxTick(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// poolReward returns elapsed * rate * weight / totalWeight.
func poolReward(elapsed uint64, rate *big.Int, weight, totalWeight uint64) *big.Int {
	if elapsed == 0 || rate == nil || weight == 0 || totalWeight == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).SetUint64(elapsed)
	out.Mul(out, rate)
	out.Mul(out, new(big.Int).SetUint64(weight))
	return out.Quo(out, new(big.Int).SetUint64(totalWeight))
}

// accumulate returns acc + reward * AccPrecision / supply.
func accumulate(acc, reward, supply *big.Int) *big.Int {
	out := cloneOrZero(acc)
	if reward == nil || reward.Sign() == 0 || supply == nil || supply.Sign() == 0 {
		return out
	}
	inc := new(big.Int).Mul(reward, AccPrecision)
	inc.Quo(inc, supply)
	return out.Add(out, inc)
}

// accrued returns amount * acc / AccPrecision.
func accrued(amount, acc *big.Int) *big.Int {
	if amount == nil || acc == nil || amount.Sign() == 0 || acc.Sign() == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(amount, acc)
	return out.Quo(out, AccPrecision)
}

// pendingOf returns accrued(amount, acc) - debt, floored at zero.
func pendingOf(pos *Position, acc *big.Int) *big.Int {
	if pos == nil {
		return big.NewInt(0)
	}
	out := accrued(pos.Amount, acc)
	if pos.RewardDebt != nil {
		out.Sub(out, pos.RewardDebt)
	}
	if out.Sign() < 0 {
		return big.NewInt(0)
	}
	return out
}
