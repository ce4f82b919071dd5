package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aegis-wallet/aegisd/contexthelper"
	"github.com/aegis-wallet/aegisd/internal/types"
)

const walletColumns = `id, user_id, pubkey, name, encrypted_private_key, salt, is_active, created_at, updated_at`

func scanWallet(row pgx.Row) (types.Wallet, error) {
	var w types.Wallet
	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.Pubkey,
		&w.Name,
		&w.EncryptedPrivateKey,
		&w.Salt,
		&w.IsActive,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	return w, err
}

// InsertWallet persists the wallet. Whether the record becomes active is
// decided inside the INSERT itself ("first wallet for this user") so two
// concurrent first-wallet creates cannot both win; the loser trips the
// partial unique index and is retried as inactive.
func (p *PostgresBackend) InsertWallet(ctx context.Context, w types.Wallet) (types.Wallet, error) {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return types.Wallet{}, err
	}

	query := `INSERT INTO wallets
	(id, user_id, pubkey, name, encrypted_private_key, salt, is_active)
	VALUES ($1, $2, $3, $4, $5, $6,
		NOT EXISTS (SELECT 1 FROM wallets WHERE user_id = $2))
	RETURNING ` + walletColumns

	stored, err := scanWallet(p.pool.QueryRow(ctx, query,
		w.ID, w.UserID, w.Pubkey, w.Name, w.EncryptedPrivateKey, w.Salt))
	if err == nil {
		return stored, nil
	}

	if isUniqueViolation(err, "wallets_pubkey_key") {
		return types.Wallet{}, types.ErrDuplicateWallet
	}
	if isUniqueViolation(err, "wallets_one_active_per_user") {
		// lost the first-wallet race; insert inactive
		retry := `INSERT INTO wallets
		(id, user_id, pubkey, name, encrypted_private_key, salt, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		RETURNING ` + walletColumns
		stored, err = scanWallet(p.pool.QueryRow(ctx, retry,
			w.ID, w.UserID, w.Pubkey, w.Name, w.EncryptedPrivateKey, w.Salt))
		if isUniqueViolation(err, "wallets_pubkey_key") {
			return types.Wallet{}, types.ErrDuplicateWallet
		}
		if err != nil {
			return types.Wallet{}, fmt.Errorf("fail to insert wallet, err: %w", err)
		}
		return stored, nil
	}
	return types.Wallet{}, fmt.Errorf("fail to insert wallet, err: %w", err)
}

func (p *PostgresBackend) GetWallet(ctx context.Context, id uuid.UUID) (types.Wallet, error) {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return types.Wallet{}, err
	}

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	w, err := scanWallet(p.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Wallet{}, types.ErrWalletNotFound
	}
	if err != nil {
		return types.Wallet{}, fmt.Errorf("fail to get wallet, err: %w", err)
	}
	return w, nil
}

func (p *PostgresBackend) GetWalletByPubkey(ctx context.Context, pubkey string) (types.Wallet, error) {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return types.Wallet{}, err
	}

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE pubkey = $1`
	w, err := scanWallet(p.pool.QueryRow(ctx, query, pubkey))
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Wallet{}, types.ErrWalletNotFound
	}
	if err != nil {
		return types.Wallet{}, fmt.Errorf("fail to get wallet by pubkey, err: %w", err)
	}
	return w, nil
}

func (p *PostgresBackend) ListWallets(ctx context.Context, userID string) ([]types.Wallet, error) {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 ORDER BY created_at`
	rows, err := p.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("fail to list wallets, err: %w", err)
	}
	defer rows.Close()

	var wallets []types.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("fail to scan wallet, err: %w", err)
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

func (p *PostgresBackend) GetActiveWallet(ctx context.Context, userID string) (types.Wallet, error) {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return types.Wallet{}, err
	}

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 AND is_active`
	w, err := scanWallet(p.pool.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Wallet{}, types.ErrWalletNotFound
	}
	if err != nil {
		return types.Wallet{}, fmt.Errorf("fail to get active wallet, err: %w", err)
	}
	return w, nil
}

func (p *PostgresBackend) SetActiveWallet(ctx context.Context, userID string, walletID uuid.UUID) error {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("fail to begin db transaction, err: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE wallets SET is_active = FALSE, updated_at = NOW()
		 WHERE user_id = $1 AND is_active`, userID); err != nil {
		return fmt.Errorf("fail to deactivate wallets, err: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE wallets SET is_active = TRUE, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2`, walletID, userID)
	if err != nil {
		return fmt.Errorf("fail to activate wallet, err: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrWalletNotFound
	}

	return tx.Commit(ctx)
}

func (p *PostgresBackend) DeleteWallet(ctx context.Context, userID string, walletID uuid.UUID) error {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("fail to begin db transaction, err: %w", err)
	}
	defer tx.Rollback(ctx)

	// lock the user's wallets so the sole-wallet check and the delete see the
	// same set
	rows, err := tx.Query(ctx,
		`SELECT id, is_active FROM wallets WHERE user_id = $1 ORDER BY created_at FOR UPDATE`, userID)
	if err != nil {
		return fmt.Errorf("fail to lock wallets, err: %w", err)
	}

	var (
		found       bool
		wasActive   bool
		total       int
		survivorID  uuid.UUID
		hasSurvivor bool
	)
	for rows.Next() {
		var id uuid.UUID
		var active bool
		if err := rows.Scan(&id, &active); err != nil {
			rows.Close()
			return fmt.Errorf("fail to scan wallet row, err: %w", err)
		}
		total++
		if id == walletID {
			found = true
			wasActive = active
		} else if !hasSurvivor {
			survivorID = id
			hasSurvivor = true
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("fail to iterate wallets, err: %w", err)
	}

	if !found {
		return types.ErrWalletNotFound
	}
	if total <= 1 {
		return types.ErrCannotDeleteSoleWallet
	}

	if _, err := tx.Exec(ctx, `DELETE FROM wallets WHERE id = $1`, walletID); err != nil {
		return fmt.Errorf("fail to delete wallet, err: %w", err)
	}

	if wasActive {
		if _, err := tx.Exec(ctx,
			`UPDATE wallets SET is_active = TRUE, updated_at = NOW() WHERE id = $1`,
			survivorID); err != nil {
			return fmt.Errorf("fail to promote replacement wallet, err: %w", err)
		}
	}

	return tx.Commit(ctx)
}
