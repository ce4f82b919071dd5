package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/aegis-wallet/aegisd/internal/types"
)

func (s *Server) ConnectDApp(c echo.Context) error {
	var req types.ConnectDAppRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	if err := req.IsValid(); err != nil {
		return badRequest(err)
	}

	perms, err := types.ParsePermissions(req.RequestedPermissions)
	if err != nil {
		return err
	}

	walletID := uuid.MustParse(req.WalletID)
	// connecting a dapp to a wallet the caller does not hold must fail closed
	wallet, err := s.vault.GetWallet(c.Request().Context(), walletID)
	if err != nil {
		return err
	}
	if wallet.UserID != s.userID(c) {
		return types.ErrNotOwner
	}

	conn, err := s.connections.Connect(c.Request().Context(), s.userID(c), walletID, req.DAppOrigin, req.DAppName, req.DAppIcon, perms)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, conn)
}

func (s *Server) ListConnections(c echo.Context) error {
	conns, err := s.connections.ListConnections(c.Request().Context(), s.userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, conns)
}

func (s *Server) DisconnectDApp(c echo.Context) error {
	connectionID, err := uuid.Parse(c.Param("connectionId"))
	if err != nil {
		return badRequest(fmt.Errorf("invalid connection id"))
	}

	if err := s.connections.Disconnect(c.Request().Context(), s.userID(c), connectionID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
