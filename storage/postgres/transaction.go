package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aegis-wallet/aegisd/contexthelper"
	"github.com/aegis-wallet/aegisd/internal/types"
)

const transactionColumns = `id, user_id, wallet_id, dapp_origin, transaction_data, message, status, created_at, updated_at`

func scanTransaction(row pgx.Row) (types.PendingTransaction, error) {
	var t types.PendingTransaction
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.WalletID,
		&t.DAppOrigin,
		&t.TransactionData,
		&t.Message,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, err
}

func (p *PostgresBackend) InsertTransaction(ctx context.Context, tx types.PendingTransaction) (types.PendingTransaction, error) {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return types.PendingTransaction{}, err
	}

	query := `INSERT INTO pending_transactions
	(id, user_id, wallet_id, dapp_origin, transaction_data, message, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING ` + transactionColumns

	stored, err := scanTransaction(p.pool.QueryRow(ctx, query,
		tx.ID, tx.UserID, tx.WalletID, tx.DAppOrigin, tx.TransactionData, tx.Message, tx.Status))
	if err != nil {
		return types.PendingTransaction{}, fmt.Errorf("fail to insert transaction, err: %w", err)
	}
	return stored, nil
}

func (p *PostgresBackend) GetTransaction(ctx context.Context, id uuid.UUID) (types.PendingTransaction, error) {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return types.PendingTransaction{}, err
	}

	query := `SELECT ` + transactionColumns + ` FROM pending_transactions WHERE id = $1`
	t, err := scanTransaction(p.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return types.PendingTransaction{}, types.ErrTransactionNotFound
	}
	if err != nil {
		return types.PendingTransaction{}, fmt.Errorf("fail to get transaction, err: %w", err)
	}
	return t, nil
}

func (p *PostgresBackend) ListPendingTransactions(ctx context.Context, userID string) ([]types.PendingTransaction, error) {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + transactionColumns + ` FROM pending_transactions
	WHERE user_id = $1 AND status = $2 ORDER BY created_at`

	return p.listTransactions(ctx, query, userID, types.StatusPending)
}

func (p *PostgresBackend) ListPendingTransactionsBefore(ctx context.Context, cutoff time.Time) ([]types.PendingTransaction, error) {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + transactionColumns + ` FROM pending_transactions
	WHERE status = $1 AND created_at < $2 ORDER BY created_at`

	return p.listTransactions(ctx, query, types.StatusPending, cutoff)
}

func (p *PostgresBackend) listTransactions(ctx context.Context, query string, args ...any) ([]types.PendingTransaction, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fail to list transactions, err: %w", err)
	}
	defer rows.Close()

	var txs []types.PendingTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("fail to scan transaction, err: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// TransitionTransaction is the compare-and-set behind every status change:
// the UPDATE only matches while the record is still pending, so of two
// concurrent transitions exactly one observes rowsAffected == 1.
func (p *PostgresBackend) TransitionTransaction(ctx context.Context, id uuid.UUID, to types.TransactionStatus) (bool, error) {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return false, err
	}

	tag, err := p.pool.Exec(ctx,
		`UPDATE pending_transactions SET status = $2, updated_at = NOW()
		 WHERE id = $1 AND status = $3`,
		id, to, types.StatusPending)
	if err != nil {
		return false, fmt.Errorf("fail to transition transaction, err: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
