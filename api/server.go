package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/sirupsen/logrus"

	"github.com/aegis-wallet/aegisd/internal/auth"
	"github.com/aegis-wallet/aegisd/internal/connection"
	"github.com/aegis-wallet/aegisd/internal/keyvault"
	"github.com/aegis-wallet/aegisd/internal/pendingtx"
)

type Server struct {
	port          int64
	vault         *keyvault.Vault
	connections   *connection.Service
	transactions  *pendingtx.Service
	authenticator *auth.Authenticator
	sdClient      *statsd.Client
	logger        *logrus.Logger
}

// NewServer returns a new server.
func NewServer(port int64,
	vault *keyvault.Vault,
	connections *connection.Service,
	transactions *pendingtx.Service,
	authenticator *auth.Authenticator,
	sdClient *statsd.Client) *Server {
	return &Server{
		port:          port,
		vault:         vault,
		connections:   connections,
		transactions:  transactions,
		authenticator: authenticator,
		sdClient:      sdClient,
		logger:        logrus.WithField("service", "api").Logger,
	}
}

func (s *Server) StartServer() error {
	e := echo.New()
	e.Logger.SetLevel(log.DEBUG)
	e.HTTPErrorHandler = s.errorHandler
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("2M")) // set maximum allowed size for a request body to 2M
	e.Use(s.statsdMiddleware)
	e.Use(middleware.CORS())
	limiterStore := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{Rate: 5, Burst: 30, ExpiresIn: 5 * time.Minute},
	)
	e.Use(middleware.RateLimiter(limiterStore))

	e.GET("/ping", s.Ping)

	grp := e.Group("", s.walletAuthMiddleware)

	grp.POST("/wallets", s.CreateWallet)
	grp.POST("/wallets/import", s.ImportWallet)
	grp.POST("/wallets/restore", s.RestoreWallet)
	grp.GET("/wallets", s.ListWallets)
	grp.GET("/wallets/active", s.GetActiveWallet)
	grp.POST("/wallets/active", s.SetActiveWallet)
	grp.DELETE("/wallets/:walletId", s.DeleteWallet)

	grp.POST("/dapps/connect", s.ConnectDApp)
	grp.GET("/dapps/connections", s.ListConnections)
	grp.DELETE("/dapps/connections/:connectionId", s.DisconnectDApp)

	grp.POST("/transactions", s.CreateTransaction)
	grp.GET("/transactions/pending", s.ListPendingTransactions)
	grp.POST("/transactions/sign", s.SignTransaction)
	grp.POST("/transactions/:txId/reject", s.RejectTransaction)

	return e.Start(fmt.Sprintf(":%d", s.port))
}

func (s *Server) Ping(c echo.Context) error {
	return c.String(http.StatusOK, "Aegis wallet daemon is running")
}
