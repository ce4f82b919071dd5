package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aegis-wallet/aegisd/internal/types"
)

// authHeaderName carries the JSON-encoded proof of key possession
// (wallet, signature, timestamp) on every privileged request.
const authHeaderName = "X-Aegis-Auth"

// userIDKey is where the middleware stores the authenticated wallet pubkey.
const userIDKey = "user_id"

func (s *Server) statsdMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		duration := time.Since(start).Milliseconds()

		// Send metrics to statsd
		_ = s.sdClient.Incr("http.requests", []string{"path:" + c.Path()}, 1)
		_ = s.sdClient.Timing("http.response_time", time.Duration(duration)*time.Millisecond, []string{"path:" + c.Path()}, 1)
		_ = s.sdClient.Incr("http.status."+fmt.Sprint(c.Response().Status), []string{"path:" + c.Path(), "method:" + c.Request().Method}, 1)

		return err
	}
}

// walletAuthMiddleware verifies the challenge signature in X-Aegis-Auth and
// stores the proven wallet pubkey as the caller identity. There is no session
// state; every request carries and re-proves its own signature.
func (s *Server) walletAuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		headerValue := c.Request().Header.Get(authHeaderName)
		if headerValue == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing auth header"})
		}

		header, err := types.ParseAuthHeader(headerValue)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
		}

		if err := s.authenticator.VerifyChallenge(header.Wallet, header.Signature, header.Timestamp); err != nil {
			s.logger.Warnf("fail to verify auth challenge for %s, err: %v", header.Wallet, err)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}

		c.Set(userIDKey, header.Wallet)
		return next(c)
	}
}

func (s *Server) userID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}

// errorHandler maps the service error taxonomy onto HTTP statuses so handlers
// can return sentinel errors directly.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		_ = c.JSON(httpErr.Code, echo.Map{"error": fmt.Sprint(httpErr.Message)})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrMalformedTransaction),
		errors.Is(err, types.ErrUnknownPermission),
		errors.Is(err, types.ErrInvalidPrivateKey),
		errors.Is(err, types.ErrInvalidPublicKey),
		errors.Is(err, types.ErrInvalidSignatureEncoding):
		status = http.StatusBadRequest
	case errors.Is(err, types.ErrChallengeExpired),
		errors.Is(err, types.ErrSignatureMismatch),
		errors.Is(err, types.ErrWrongPassword):
		status = http.StatusUnauthorized
	case errors.Is(err, types.ErrNotOwner),
		errors.Is(err, types.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, types.ErrWalletNotFound),
		errors.Is(err, types.ErrConnectionNotFound),
		errors.Is(err, types.ErrTransactionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, types.ErrDuplicateWallet),
		errors.Is(err, types.ErrCannotDeleteSoleWallet),
		errors.Is(err, types.ErrAlreadyProcessed),
		errors.Is(err, types.ErrStaleTransaction):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.logger.Errorf("request to %s failed, err: %v", c.Path(), err)
		_ = c.JSON(status, echo.Map{"error": "internal server error"})
		return
	}
	_ = c.JSON(status, echo.Map{"error": err.Error()})
}

func badRequest(err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
