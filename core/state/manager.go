package state

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"stakeledger/storage"
)

// ErrAmountOverflow is returned when a stored amount no longer fits in 256 bits.
var ErrAmountOverflow = errors.New("state: amount exceeds 256 bits")

// Manager reads and writes ledger records. Writes accumulate in an overlay on
// top of the backing database until Commit flushes them as one batch; Discard
// drops them, which is how a rejected call reverts.
type Manager struct {
	db      storage.Database
	dirty   map[string][]byte
	deleted map[string]struct{}
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:      db,
		dirty:   make(map[string][]byte),
		deleted: make(map[string]struct{}),
	}
}

type TokenMetadata struct {
	Symbol      string
	Name        string
	Decimals    uint8
	TotalSupply *big.Int
}

func tokenMetadataKey(symbol string) []byte {
	buf := make([]byte, len(tokenPrefix)+len(symbol))
	copy(buf, tokenPrefix)
	copy(buf[len(tokenPrefix):], symbol)
	return ethcrypto.Keccak256(buf)
}

func balanceKey(addr common.Address, symbol string) []byte {
	buf := make([]byte, 0, len(balancePrefix)+len(symbol)+1+common.AddressLength)
	buf = append(buf, balancePrefix...)
	buf = append(buf, symbol...)
	buf = append(buf, ':')
	buf = append(buf, addr.Bytes()...)
	return ethcrypto.Keccak256(buf)
}

func allowanceKey(owner, spender common.Address, symbol string) []byte {
	buf := make([]byte, 0, len(allowancePrefix)+len(symbol)+2+2*common.AddressLength)
	buf = append(buf, allowancePrefix...)
	buf = append(buf, symbol...)
	buf = append(buf, ':')
	buf = append(buf, owner.Bytes()...)
	buf = append(buf, ':')
	buf = append(buf, spender.Bytes()...)
	return ethcrypto.Keccak256(buf)
}

func roleKey(role string) []byte {
	buf := make([]byte, len(rolePrefix)+len(role))
	copy(buf, rolePrefix)
	copy(buf[len(rolePrefix):], role)
	return ethcrypto.Keccak256(buf)
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// NormalizeSymbol upper-cases and trims a token symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (m *Manager) get(key []byte) ([]byte, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("state: database not configured")
	}
	k := string(key)
	if _, ok := m.deleted[k]; ok {
		return nil, nil
	}
	if v, ok := m.dirty[k]; ok {
		return v, nil
	}
	v, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

func (m *Manager) put(key, value []byte) {
	k := string(key)
	delete(m.deleted, k)
	m.dirty[k] = append([]byte(nil), value...)
}

func (m *Manager) del(key []byte) {
	k := string(key)
	delete(m.dirty, k)
	m.deleted[k] = struct{}{}
}

func (m *Manager) putRLP(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.put(key, encoded)
	return nil
}

func (m *Manager) getRLP(key []byte, out interface{}) (bool, error) {
	data, err := m.get(key)
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// Dirty reports how many keys the overlay currently holds.
func (m *Manager) Dirty() int {
	return len(m.dirty) + len(m.deleted)
}

// Commit flushes the overlay to the backing database in one atomic batch.
func (m *Manager) Commit() error {
	if m.Dirty() == 0 {
		return nil
	}
	batch := storage.NewBatch()
	keys := make([]string, 0, len(m.dirty))
	for k := range m.dirty {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		batch.Put([]byte(k), m.dirty[k])
	}
	for k := range m.deleted {
		batch.Delete([]byte(k))
	}
	if err := m.db.Write(batch); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	m.Discard()
	return nil
}

// Discard drops every uncommitted write.
func (m *Manager) Discard() {
	m.dirty = make(map[string][]byte)
	m.deleted = make(map[string]struct{})
}

// CheckAmount rejects negative values and values that do not fit in 256 bits.
func CheckAmount(amount *big.Int) error {
	if amount == nil {
		return nil
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("state: negative amount not allowed")
	}
	if _, overflow := uint256.FromBig(amount); overflow {
		return ErrAmountOverflow
	}
	return nil
}

func (m *Manager) loadTokenList() ([]string, error) {
	var list []string
	ok, err := m.getRLP(tokenListKey, &list)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []string{}, nil
	}
	return list, nil
}

func (m *Manager) loadTokenMetadata(symbol string) (*TokenMetadata, error) {
	meta := new(TokenMetadata)
	ok, err := m.getRLP(tokenMetadataKey(symbol), meta)
	if err != nil || !ok {
		return nil, err
	}
	if meta.TotalSupply == nil {
		meta.TotalSupply = big.NewInt(0)
	}
	return meta, nil
}

func (m *Manager) writeTokenMetadata(symbol string, meta *TokenMetadata) error {
	return m.putRLP(tokenMetadataKey(symbol), meta)
}

// RegisterToken stores the metadata for a token and records it in the token
// index.
func (m *Manager) RegisterToken(symbol, name string, decimals uint8) error {
	normalized := NormalizeSymbol(symbol)
	if normalized == "" {
		return fmt.Errorf("token symbol must not be empty")
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("token %s: name must not be empty", normalized)
	}
	if existing, err := m.loadTokenMetadata(normalized); err != nil {
		return err
	} else if existing != nil {
		return fmt.Errorf("token %s already registered", normalized)
	}

	list, err := m.loadTokenList()
	if err != nil {
		return err
	}
	list = append(list, normalized)
	sort.Strings(list)
	if err := m.putRLP(tokenListKey, list); err != nil {
		return err
	}
	return m.writeTokenMetadata(normalized, &TokenMetadata{
		Symbol:      normalized,
		Name:        strings.TrimSpace(name),
		Decimals:    decimals,
		TotalSupply: big.NewInt(0),
	})
}

// Token retrieves metadata for a registered token.
func (m *Manager) Token(symbol string) (*TokenMetadata, error) {
	return m.loadTokenMetadata(NormalizeSymbol(symbol))
}

// PutToken overwrites the metadata of a registered token.
func (m *Manager) PutToken(meta *TokenMetadata) error {
	if meta == nil {
		return fmt.Errorf("token metadata must not be nil")
	}
	normalized := NormalizeSymbol(meta.Symbol)
	if existing, err := m.loadTokenMetadata(normalized); err != nil {
		return err
	} else if existing == nil {
		return fmt.Errorf("token %s not registered", normalized)
	}
	if err := CheckAmount(meta.TotalSupply); err != nil {
		return err
	}
	stored := *meta
	stored.Symbol = normalized
	return m.writeTokenMetadata(normalized, &stored)
}

// TokenList returns all registered token symbols in sorted order.
func (m *Manager) TokenList() ([]string, error) {
	return m.loadTokenList()
}

// TokenExists reports whether the provided token symbol is registered.
func (m *Manager) TokenExists(symbol string) bool {
	normalized := NormalizeSymbol(symbol)
	if normalized == "" {
		return false
	}
	meta, err := m.loadTokenMetadata(normalized)
	return err == nil && meta != nil
}

// SetBalance stores an account balance for the provided token.
func (m *Manager) SetBalance(addr common.Address, symbol string, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if err := CheckAmount(amount); err != nil {
		return err
	}
	normalized := NormalizeSymbol(symbol)
	if !m.TokenExists(normalized) {
		return fmt.Errorf("token %s not registered", normalized)
	}
	key := balanceKey(addr, normalized)
	if amount.Sign() == 0 {
		m.del(key)
		return nil
	}
	return m.putRLP(key, amount)
}

// Balance retrieves a token balance for the provided account and token.
func (m *Manager) Balance(addr common.Address, symbol string) (*big.Int, error) {
	amount := new(big.Int)
	if _, err := m.getRLP(balanceKey(addr, NormalizeSymbol(symbol)), amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// SetAllowance stores the amount spender may pull from owner.
func (m *Manager) SetAllowance(owner, spender common.Address, symbol string, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if err := CheckAmount(amount); err != nil {
		return err
	}
	key := allowanceKey(owner, spender, NormalizeSymbol(symbol))
	if amount.Sign() == 0 {
		m.del(key)
		return nil
	}
	return m.putRLP(key, amount)
}

// Allowance returns the amount spender may pull from owner.
func (m *Manager) Allowance(owner, spender common.Address, symbol string) (*big.Int, error) {
	amount := new(big.Int)
	if _, err := m.getRLP(allowanceKey(owner, spender, NormalizeSymbol(symbol)), amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// SetRole associates an address with the specified role. Duplicate assignments
// are ignored while the stored list remains sorted for determinism.
func (m *Manager) SetRole(role string, addr common.Address) error {
	trimmed := strings.TrimSpace(role)
	if trimmed == "" {
		return fmt.Errorf("role must not be empty")
	}
	members, err := m.RoleMembers(trimmed)
	if err != nil {
		return err
	}
	for _, existing := range members {
		if existing == addr {
			return nil
		}
	}
	members = append(members, addr)
	sort.Slice(members, func(i, j int) bool {
		return bytes.Compare(members[i].Bytes(), members[j].Bytes()) < 0
	})
	return m.putRLP(roleKey(trimmed), members)
}

// RemoveRole drops the address from the role if present.
func (m *Manager) RemoveRole(role string, addr common.Address) error {
	trimmed := strings.TrimSpace(role)
	members, err := m.RoleMembers(trimmed)
	if err != nil {
		return err
	}
	kept := members[:0]
	for _, existing := range members {
		if existing != addr {
			kept = append(kept, existing)
		}
	}
	if len(kept) == 0 {
		m.del(roleKey(trimmed))
		return nil
	}
	return m.putRLP(roleKey(trimmed), kept)
}

// RoleMembers returns all addresses assigned to the provided role.
func (m *Manager) RoleMembers(role string) ([]common.Address, error) {
	var members []common.Address
	ok, err := m.getRLP(roleKey(strings.TrimSpace(role)), &members)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []common.Address{}, nil
	}
	return members, nil
}

// HasRole reports whether the provided address is associated with the
// specified role. Errors while reading the underlying state result in a false
// return.
func (m *Manager) HasRole(role string, addr common.Address) bool {
	members, err := m.RoleMembers(role)
	if err != nil {
		return false
	}
	for _, member := range members {
		if member == addr {
			return true
		}
	}
	return false
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is hashed with keccak256 before it reaches the database.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return m.putRLP(kvKey(key), value)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	if out == nil {
		data, err := m.get(kvKey(key))
		return len(data) > 0, err
	}
	return m.getRLP(kvKey(key), out)
}

// KVDelete removes the value stored under the supplied key.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	m.del(kvKey(key))
	return nil
}

// ParamStoreSet persists a raw parameter value.
func (m *Manager) ParamStoreSet(name string, value []byte) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("params: name must not be empty")
	}
	return m.KVPut(append(append([]byte(nil), paramsPrefix...), name...), value)
}

// ParamStoreGet loads a raw parameter value.
func (m *Manager) ParamStoreGet(name string) ([]byte, bool, error) {
	var value []byte
	ok, err := m.KVGet(append(append([]byte(nil), paramsPrefix...), strings.TrimSpace(name)...), &value)
	if err != nil || !ok {
		return nil, false, err
	}
	return value, true, nil
}

// TotalSupply returns the recorded supply of a token.
func (m *Manager) TotalSupply(symbol string) (*big.Int, error) {
	meta, err := m.Token(symbol)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, fmt.Errorf("token %s not registered", NormalizeSymbol(symbol))
	}
	return new(big.Int).Set(meta.TotalSupply), nil
}

// SetTotalSupply records the supply of a token.
func (m *Manager) SetTotalSupply(symbol string, supply *big.Int) error {
	meta, err := m.Token(symbol)
	if err != nil {
		return err
	}
	if meta == nil {
		return fmt.Errorf("token %s not registered", NormalizeSymbol(symbol))
	}
	meta.TotalSupply = new(big.Int).Set(supply)
	return m.PutToken(meta)
}
