package types

import (
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TransactionStatus is the state of a pending transaction record. Transitions
// are one-way: pending is the only non-terminal state.
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "pending"
	StatusSigned   TransactionStatus = "signed"
	StatusRejected TransactionStatus = "rejected"
	StatusFailed   TransactionStatus = "failed"
)

// PendingTransaction is the authorization record for a to-be-signed
// transaction. TransactionData holds the base64 envelope exactly as submitted;
// records are retained after they reach a terminal state.
type PendingTransaction struct {
	ID              uuid.UUID         `json:"id"`
	UserID          string            `json:"user_id"`
	WalletID        uuid.UUID         `json:"wallet_id"`
	DAppOrigin      string            `json:"dapp_origin"`
	TransactionData string            `json:"transaction_data"`
	Message         *string           `json:"message,omitempty"`
	Status          TransactionStatus `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

type CreateTransactionRequest struct {
	WalletID        string  `json:"wallet_id"`
	DAppOrigin      string  `json:"dapp_origin"`
	TransactionData string  `json:"transaction_data"` // base64
	Message         *string `json:"message,omitempty"`
}

func (r CreateTransactionRequest) IsValid() error {
	if _, err := uuid.Parse(r.WalletID); err != nil {
		return errors.New("invalid wallet id")
	}
	if r.DAppOrigin == "" {
		return errors.New("invalid dapp origin")
	}
	if r.TransactionData == "" {
		return errors.New("invalid transaction data")
	}
	if _, err := base64.StdEncoding.DecodeString(r.TransactionData); err != nil {
		return errors.New("transaction data is not valid base64")
	}
	return nil
}

type SignTransactionRequest struct {
	TransactionID string `json:"transaction_id"`
	Password      string `json:"password"`
}

func (r SignTransactionRequest) IsValid() error {
	if _, err := uuid.Parse(r.TransactionID); err != nil {
		return errors.New("invalid transaction id")
	}
	if r.Password == "" {
		return errors.New("invalid password")
	}
	return nil
}

// TransactionResponse is the outbound view of a pending transaction.
// SignedTransaction is only populated by a successful sign call.
type TransactionResponse struct {
	ID                uuid.UUID         `json:"id"`
	Status            TransactionStatus `json:"status"`
	SignedTransaction *string           `json:"signed_transaction,omitempty"`
	Message           *string           `json:"message,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

func (t PendingTransaction) Response() TransactionResponse {
	return TransactionResponse{
		ID:        t.ID,
		Status:    t.Status,
		Message:   t.Message,
		CreatedAt: t.CreatedAt,
	}
}
