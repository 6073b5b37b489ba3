package state

import ethcrypto "github.com/ethereum/go-ethereum/crypto"

var (
	tokenPrefix     = []byte("token:")
	tokenListKey    = ethcrypto.Keccak256([]byte("token-list"))
	balancePrefix   = []byte("balance:")
	allowancePrefix = []byte("allowance:")
	rolePrefix      = []byte("role:")
	paramsPrefix    = []byte("params/")

	farmingWindowKeyBytes = []byte("farming/window")
	farmingPoolPrefix     = []byte("farming/pool/")
	farmingPositionPrefix = []byte("farming/position/")

	stakingConfigKeyBytes = []byte("staking/config")
	stakingQueuePrefix    = []byte("staking/queue/")
	stakingPositionPrefix = []byte("staking/position/")

	chainHeadKeyBytes = []byte("chain/head")
)
