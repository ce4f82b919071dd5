package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/aegis-wallet/aegisd/internal/types"
)

func (s *Server) CreateTransaction(c echo.Context) error {
	var req types.CreateTransactionRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	if err := req.IsValid(); err != nil {
		return badRequest(err)
	}
	if err := s.sdClient.Count("transaction.create", 1, nil, 1); err != nil {
		s.logger.Errorf("fail to count metric, err: %v", err)
	}

	userID := s.userID(c)
	walletID := uuid.MustParse(req.WalletID)
	if err := s.requireTransactionGrant(c, userID, walletID, req.DAppOrigin); err != nil {
		return err
	}

	record, err := s.transactions.Create(c.Request().Context(), userID, walletID, req.DAppOrigin, req.TransactionData, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, record.Response())
}

func (s *Server) ListPendingTransactions(c echo.Context) error {
	records, err := s.transactions.ListPending(c.Request().Context(), s.userID(c))
	if err != nil {
		return err
	}
	responses := make([]types.TransactionResponse, 0, len(records))
	for _, r := range records {
		responses = append(responses, r.Response())
	}
	return c.JSON(http.StatusOK, responses)
}

func (s *Server) SignTransaction(c echo.Context) error {
	var req types.SignTransactionRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	if err := req.IsValid(); err != nil {
		return badRequest(err)
	}
	if err := s.sdClient.Count("transaction.sign", 1, nil, 1); err != nil {
		s.logger.Errorf("fail to count metric, err: %v", err)
	}

	userID := s.userID(c)
	txID := uuid.MustParse(req.TransactionID)

	// the grant is re-checked at signing time so a disconnect between request
	// and approval revokes the dapp's access
	record, err := s.transactions.Get(c.Request().Context(), txID, userID)
	if err != nil {
		return err
	}
	if err := s.requireTransactionGrant(c, userID, record.WalletID, record.DAppOrigin); err != nil {
		return err
	}

	signed, err := s.transactions.ApproveAndSign(c.Request().Context(), txID, userID, req.Password)
	if err != nil {
		return err
	}

	response := record.Response()
	response.Status = types.StatusSigned
	response.SignedTransaction = &signed
	return c.JSON(http.StatusOK, response)
}

func (s *Server) RejectTransaction(c echo.Context) error {
	txID, err := uuid.Parse(c.Param("txId"))
	if err != nil {
		return badRequest(fmt.Errorf("invalid transaction id"))
	}

	if err := s.transactions.Reject(c.Request().Context(), txID, s.userID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) requireTransactionGrant(c echo.Context, userID string, walletID uuid.UUID, origin string) error {
	granted, err := s.connections.HasPermission(c.Request().Context(), userID, walletID, origin, types.PermissionRequestTransaction)
	if err != nil {
		return err
	}
	if !granted {
		return types.ErrPermissionDenied
	}
	return nil
}
