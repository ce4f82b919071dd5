package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aegis-wallet/aegisd/internal/types"
)

// DatabaseStorage is the persistent store behind the custody and
// authorization services. State transitions (wallet activation, transaction
// status) are conditional writes so concurrent service instances cannot
// double-process a record.
type DatabaseStorage interface {
	Close() error

	WalletRepository
	ConnectionRepository
	TransactionRepository
}

type WalletRepository interface {
	// InsertWallet persists w; the stored record is active iff the user had
	// no wallets at insert time. Returns the record as stored.
	InsertWallet(ctx context.Context, w types.Wallet) (types.Wallet, error)
	GetWallet(ctx context.Context, id uuid.UUID) (types.Wallet, error)
	GetWalletByPubkey(ctx context.Context, pubkey string) (types.Wallet, error)
	ListWallets(ctx context.Context, userID string) ([]types.Wallet, error)
	GetActiveWallet(ctx context.Context, userID string) (types.Wallet, error)
	// SetActiveWallet atomically deactivates every wallet of the user and
	// activates the given one; types.ErrWalletNotFound when the wallet does
	// not exist or belongs to someone else.
	SetActiveWallet(ctx context.Context, userID string, walletID uuid.UUID) error
	// DeleteWallet removes the wallet, refusing to delete a sole wallet, and
	// promotes the oldest remaining wallet when the deleted one was active.
	DeleteWallet(ctx context.Context, userID string, walletID uuid.UUID) error
}

type ConnectionRepository interface {
	// UpsertConnection creates the connection or, when the
	// (user, wallet, origin) triple already exists, replaces its permission
	// set and metadata and refreshes last_used.
	UpsertConnection(ctx context.Context, conn types.DAppConnection) (types.DAppConnection, error)
	GetConnection(ctx context.Context, userID string, walletID uuid.UUID, origin string) (types.DAppConnection, error)
	ListConnections(ctx context.Context, userID string) ([]types.DAppConnection, error)
	DeleteConnection(ctx context.Context, userID string, connectionID uuid.UUID) error
	TouchConnection(ctx context.Context, connectionID uuid.UUID) error
}

type TransactionRepository interface {
	InsertTransaction(ctx context.Context, tx types.PendingTransaction) (types.PendingTransaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (types.PendingTransaction, error)
	ListPendingTransactions(ctx context.Context, userID string) ([]types.PendingTransaction, error)
	ListPendingTransactionsBefore(ctx context.Context, cutoff time.Time) ([]types.PendingTransaction, error)
	// TransitionTransaction performs the compare-and-set
	// pending -> to; a false return means the record was no longer pending.
	TransitionTransaction(ctx context.Context, id uuid.UUID, to types.TransactionStatus) (bool, error)
}
