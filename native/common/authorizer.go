package common

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Authorizer decides whether a caller may perform a privileged action.
type Authorizer interface {
	IsAuthorized(caller common.Address, action string) bool
}

// RoleReader exposes role membership lookups.
type RoleReader interface {
	HasRole(role string, addr common.Address) bool
}

// RoleAuthorizer grants every listed action to the members of a single role.
// An empty action list grants every action.
type RoleAuthorizer struct {
	roles   RoleReader
	role    string
	actions map[string]struct{}
}

// NewRoleAuthorizer builds an authorizer backed by role membership.
func NewRoleAuthorizer(roles RoleReader, role string, actions ...string) *RoleAuthorizer {
	a := &RoleAuthorizer{roles: roles, role: strings.TrimSpace(role)}
	if len(actions) > 0 {
		a.actions = make(map[string]struct{}, len(actions))
		for _, action := range actions {
			a.actions[strings.TrimSpace(action)] = struct{}{}
		}
	}
	return a
}

// IsAuthorized implements Authorizer.
func (a *RoleAuthorizer) IsAuthorized(caller common.Address, action string) bool {
	if a == nil || a.roles == nil || a.role == "" {
		return false
	}
	if a.actions != nil {
		if _, ok := a.actions[strings.TrimSpace(action)]; !ok {
			return false
		}
	}
	return a.roles.HasRole(a.role, caller)
}

// AllowAll authorizes every caller. Useful for permissionless actions.
type AllowAll struct{}

// IsAuthorized implements Authorizer.
func (AllowAll) IsAuthorized(common.Address, string) bool { return true }

// MissingRole formats the access-control rejection used by role-gated modules.
func MissingRole(caller common.Address, roleID string) error {
	return NewRevert(ErrUnauthorized, fmt.Sprintf("AccessControl: account %s is missing role %s",
		strings.ToLower(caller.Hex()), roleID))
}

// NotOwner is the rejection used by owner-gated modules.
func NotOwner() error {
	return NewRevert(ErrUnauthorized, "Ownable: caller is not the owner")
}

// ModuleAddress derives the deterministic custody account of a module.
func ModuleAddress(module string) common.Address {
	return common.BytesToAddress(ethcrypto.Keccak256([]byte("module/" + strings.ToLower(strings.TrimSpace(module))))[12:])
}
