package connection

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aegis-wallet/aegisd/internal/types"
	"github.com/aegis-wallet/aegisd/storage"
)

// Service manages per-dapp permission grants against a wallet. A grant is
// keyed by (user, wallet, origin); reconnecting is re-consent and replaces
// the permission set wholesale.
type Service struct {
	db     storage.ConnectionRepository
	logger *logrus.Logger
}

func NewService(db storage.ConnectionRepository, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

func (s *Service) Connect(ctx context.Context, userID string, walletID uuid.UUID, origin, name string, icon *string, perms []types.Permission) (types.DAppConnection, error) {
	return s.db.UpsertConnection(ctx, types.DAppConnection{
		ID:          uuid.New(),
		UserID:      userID,
		WalletID:    walletID,
		DAppOrigin:  origin,
		DAppName:    name,
		DAppIcon:    icon,
		Permissions: perms,
	})
}

func (s *Service) Disconnect(ctx context.Context, userID string, connectionID uuid.UUID) error {
	return s.db.DeleteConnection(ctx, userID, connectionID)
}

func (s *Service) ListConnections(ctx context.Context, userID string) ([]types.DAppConnection, error) {
	return s.db.ListConnections(ctx, userID)
}

// HasPermission reports whether the live connection for the triple grants
// perm, refreshing the grant's last_used marker when it does. Absence of a
// connection is an ordinary false, not an error.
func (s *Service) HasPermission(ctx context.Context, userID string, walletID uuid.UUID, origin string, perm types.Permission) (bool, error) {
	conn, err := s.db.GetConnection(ctx, userID, walletID, origin)
	if errors.Is(err, types.ErrConnectionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !conn.HasPermission(perm) {
		return false, nil
	}
	s.TouchLastUsed(ctx, conn.ID)
	return true, nil
}

// TouchLastUsed refreshes the grant's last_used marker, best effort.
func (s *Service) TouchLastUsed(ctx context.Context, connectionID uuid.UUID) {
	if err := s.db.TouchConnection(ctx, connectionID); err != nil {
		s.logger.Warnf("fail to touch connection %s, err: %v", connectionID, err)
	}
}
