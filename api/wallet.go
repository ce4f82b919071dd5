package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/aegis-wallet/aegisd/internal/types"
)

func (s *Server) CreateWallet(c echo.Context) error {
	var req types.WalletCreateRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	if err := req.IsValid(); err != nil {
		return badRequest(err)
	}
	if err := s.sdClient.Count("wallet.create", 1, nil, 1); err != nil {
		s.logger.Errorf("fail to count metric, err: %v", err)
	}

	summary, err := s.vault.CreateWallet(c.Request().Context(), s.userID(c), req.Name, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, summary)
}

func (s *Server) ImportWallet(c echo.Context) error {
	var req types.WalletImportRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	if err := req.IsValid(); err != nil {
		return badRequest(err)
	}
	if err := s.sdClient.Count("wallet.import", 1, nil, 1); err != nil {
		s.logger.Errorf("fail to count metric, err: %v", err)
	}

	summary, err := s.vault.ImportWallet(c.Request().Context(), s.userID(c), req.Name, req.PrivateKey, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, summary)
}

func (s *Server) RestoreWallet(c echo.Context) error {
	var req types.WalletRestoreRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	if err := req.IsValid(); err != nil {
		return badRequest(err)
	}
	if err := s.sdClient.Count("wallet.restore", 1, nil, 1); err != nil {
		s.logger.Errorf("fail to count metric, err: %v", err)
	}

	walletID := uuid.MustParse(req.WalletID)
	summary, err := s.vault.RestoreWallet(c.Request().Context(), s.userID(c), req.Name, walletID, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, summary)
}

func (s *Server) ListWallets(c echo.Context) error {
	wallets, err := s.vault.ListWallets(c.Request().Context(), s.userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, wallets)
}

func (s *Server) GetActiveWallet(c echo.Context) error {
	summary, err := s.vault.GetActiveWallet(c.Request().Context(), s.userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

func (s *Server) SetActiveWallet(c echo.Context) error {
	var req types.SetActiveWalletRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	if err := req.IsValid(); err != nil {
		return badRequest(err)
	}

	walletID := uuid.MustParse(req.WalletID)
	if err := s.vault.SetActiveWallet(c.Request().Context(), s.userID(c), walletID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) DeleteWallet(c echo.Context) error {
	walletID, err := uuid.Parse(c.Param("walletId"))
	if err != nil {
		return badRequest(fmt.Errorf("invalid wallet id"))
	}

	if err := s.vault.DeleteWallet(c.Request().Context(), s.userID(c), walletID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
