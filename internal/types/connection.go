package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Permission is the closed set of grants a dapp may hold against a wallet.
type Permission string

const (
	PermissionViewBalance        Permission = "view_balance"
	PermissionRequestTransaction Permission = "request_transaction"
	PermissionSignMessage        Permission = "sign_message"
	PermissionViewPublicKey      Permission = "view_public_key"
)

// ParsePermission rejects anything outside the closed enumeration so unknown
// grants never reach the connection store.
func ParsePermission(s string) (Permission, error) {
	switch Permission(s) {
	case PermissionViewBalance, PermissionRequestTransaction, PermissionSignMessage, PermissionViewPublicKey:
		return Permission(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPermission, s)
	}
}

func ParsePermissions(ss []string) ([]Permission, error) {
	perms := make([]Permission, 0, len(ss))
	for _, s := range ss {
		p, err := ParsePermission(s)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, nil
}

// DAppConnection binds (user, wallet, origin) to a permission set. At most one
// live connection exists per triple; reconnecting replaces the grant.
type DAppConnection struct {
	ID          uuid.UUID    `json:"id"`
	UserID      string       `json:"user_id"`
	WalletID    uuid.UUID    `json:"wallet_id"`
	DAppOrigin  string       `json:"dapp_origin"`
	DAppName    string       `json:"dapp_name"`
	DAppIcon    *string      `json:"dapp_icon,omitempty"`
	Permissions []Permission `json:"permissions"`
	ConnectedAt time.Time    `json:"connected_at"`
	LastUsed    time.Time    `json:"last_used"`
}

func (c DAppConnection) HasPermission(p Permission) bool {
	for _, granted := range c.Permissions {
		if granted == p {
			return true
		}
	}
	return false
}

type ConnectDAppRequest struct {
	WalletID             string   `json:"wallet_id"`
	DAppOrigin           string   `json:"dapp_origin"`
	DAppName             string   `json:"dapp_name"`
	DAppIcon             *string  `json:"dapp_icon,omitempty"`
	RequestedPermissions []string `json:"requested_permissions"`
}

func (r ConnectDAppRequest) IsValid() error {
	if _, err := uuid.Parse(r.WalletID); err != nil {
		return errors.New("invalid wallet id")
	}
	if r.DAppOrigin == "" {
		return errors.New("invalid dapp origin")
	}
	if r.DAppName == "" {
		return errors.New("invalid dapp name")
	}
	if len(r.RequestedPermissions) == 0 {
		return errors.New("requested permissions must not be empty")
	}
	return nil
}
