package types

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Wallet is the custody record for a single keypair. The private key is held
// encrypted (scrypt-derived key, AES-256-GCM); plaintext key material is never
// stored or serialized.
type Wallet struct {
	ID                  uuid.UUID `json:"id"`
	UserID              string    `json:"user_id"`
	Pubkey              string    `json:"pubkey"`
	Name                string    `json:"name"`
	EncryptedPrivateKey string    `json:"-"`
	Salt                string    `json:"-"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// WalletSummary is the outbound representation of a wallet. It never carries
// ciphertext or salt.
type WalletSummary struct {
	ID       uuid.UUID `json:"id"`
	Pubkey   string    `json:"pubkey"`
	Name     string    `json:"name"`
	IsActive bool      `json:"is_active"`
	Balance  *uint64   `json:"balance,omitempty"` // lamports, when RPC lookup succeeded
}

func (w Wallet) Summary() WalletSummary {
	return WalletSummary{
		ID:       w.ID,
		Pubkey:   w.Pubkey,
		Name:     w.Name,
		IsActive: w.IsActive,
	}
}

type WalletCreateRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (r WalletCreateRequest) IsValid() error {
	if r.Name == "" {
		return errors.New("invalid name")
	}
	if r.Password == "" {
		return errors.New("invalid password")
	}
	return nil
}

type WalletImportRequest struct {
	Name       string `json:"name"`
	PrivateKey string `json:"private_key"` // base58 or hex
	Password   string `json:"password"`
}

func (r WalletImportRequest) IsValid() error {
	if r.Name == "" {
		return errors.New("invalid name")
	}
	if r.PrivateKey == "" {
		return errors.New("invalid private key")
	}
	if r.Password == "" {
		return errors.New("invalid password")
	}
	return nil
}

type WalletRestoreRequest struct {
	WalletID string `json:"wallet_id"` // id of the backed-up wallet
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (r WalletRestoreRequest) IsValid() error {
	if _, err := uuid.Parse(r.WalletID); err != nil {
		return errors.New("invalid wallet id")
	}
	if r.Name == "" {
		return errors.New("invalid name")
	}
	if r.Password == "" {
		return errors.New("invalid password")
	}
	return nil
}

type SetActiveWalletRequest struct {
	WalletID string `json:"wallet_id"`
}

func (r SetActiveWalletRequest) IsValid() error {
	if _, err := uuid.Parse(r.WalletID); err != nil {
		return errors.New("invalid wallet id")
	}
	return nil
}
