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

const connectionColumns = `id, user_id, wallet_id, dapp_origin, dapp_name, dapp_icon, permissions, connected_at, last_used`

func scanConnection(row pgx.Row) (types.DAppConnection, error) {
	var c types.DAppConnection
	var perms []string
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.WalletID,
		&c.DAppOrigin,
		&c.DAppName,
		&c.DAppIcon,
		&perms,
		&c.ConnectedAt,
		&c.LastUsed,
	)
	if err != nil {
		return types.DAppConnection{}, err
	}
	c.Permissions = make([]types.Permission, len(perms))
	for i, p := range perms {
		c.Permissions[i] = types.Permission(p)
	}
	return c, nil
}

func permissionStrings(perms []types.Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

// UpsertConnection relies on the unique (user_id, wallet_id, dapp_origin)
// index: reconnecting replaces the permission set instead of stacking a
// duplicate grant.
func (p *PostgresBackend) UpsertConnection(ctx context.Context, conn types.DAppConnection) (types.DAppConnection, error) {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return types.DAppConnection{}, err
	}

	query := `INSERT INTO dapp_connections
	(id, user_id, wallet_id, dapp_origin, dapp_name, dapp_icon, permissions)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (user_id, wallet_id, dapp_origin) DO UPDATE SET
		dapp_name = EXCLUDED.dapp_name,
		dapp_icon = EXCLUDED.dapp_icon,
		permissions = EXCLUDED.permissions,
		last_used = NOW()
	RETURNING ` + connectionColumns

	stored, err := scanConnection(p.pool.QueryRow(ctx, query,
		conn.ID, conn.UserID, conn.WalletID, conn.DAppOrigin, conn.DAppName,
		conn.DAppIcon, permissionStrings(conn.Permissions)))
	if err != nil {
		return types.DAppConnection{}, fmt.Errorf("fail to upsert connection, err: %w", err)
	}
	return stored, nil
}

func (p *PostgresBackend) GetConnection(ctx context.Context, userID string, walletID uuid.UUID, origin string) (types.DAppConnection, error) {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return types.DAppConnection{}, err
	}

	query := `SELECT ` + connectionColumns + ` FROM dapp_connections
	WHERE user_id = $1 AND wallet_id = $2 AND dapp_origin = $3`

	c, err := scanConnection(p.pool.QueryRow(ctx, query, userID, walletID, origin))
	if errors.Is(err, pgx.ErrNoRows) {
		return types.DAppConnection{}, types.ErrConnectionNotFound
	}
	if err != nil {
		return types.DAppConnection{}, fmt.Errorf("fail to get connection, err: %w", err)
	}
	return c, nil
}

func (p *PostgresBackend) ListConnections(ctx context.Context, userID string) ([]types.DAppConnection, error) {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + connectionColumns + ` FROM dapp_connections
	WHERE user_id = $1 ORDER BY connected_at`

	rows, err := p.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("fail to list connections, err: %w", err)
	}
	defer rows.Close()

	var conns []types.DAppConnection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("fail to scan connection, err: %w", err)
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

func (p *PostgresBackend) DeleteConnection(ctx context.Context, userID string, connectionID uuid.UUID) error {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return err
	}

	tag, err := p.pool.Exec(ctx,
		`DELETE FROM dapp_connections WHERE id = $1 AND user_id = $2`,
		connectionID, userID)
	if err != nil {
		return fmt.Errorf("fail to delete connection, err: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrConnectionNotFound
	}
	return nil
}

func (p *PostgresBackend) TouchConnection(ctx context.Context, connectionID uuid.UUID) error {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return err
	}

	_, err := p.pool.Exec(ctx,
		`UPDATE dapp_connections SET last_used = NOW() WHERE id = $1`, connectionID)
	if err != nil {
		return fmt.Errorf("fail to touch connection, err: %w", err)
	}
	return nil
}
