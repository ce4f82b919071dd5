package main

import (
	"fmt"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/aegis-wallet/aegisd/api"
	"github.com/aegis-wallet/aegisd/config"
	"github.com/aegis-wallet/aegisd/internal/auth"
	"github.com/aegis-wallet/aegisd/internal/client"
	"github.com/aegis-wallet/aegisd/internal/connection"
	"github.com/aegis-wallet/aegisd/internal/crypto"
	"github.com/aegis-wallet/aegisd/internal/keyvault"
	"github.com/aegis-wallet/aegisd/internal/pendingtx"
	"github.com/aegis-wallet/aegisd/storage"
	"github.com/aegis-wallet/aegisd/storage/postgres"
)

func main() {
	logger := logrus.WithField("service", "aegisd").Logger

	cfg, err := config.ReadConfig("config")
	if err != nil {
		logger.Fatalf("fail to read config, err: %v", err)
	}

	db, err := postgres.NewPostgresBackend(cfg.Database.DSN)
	if err != nil {
		logger.Fatalf("fail to connect to database, err: %v", err)
	}

	redisStorage, err := storage.NewRedisStorage(cfg)
	if err != nil {
		logger.Fatalf("fail to connect to redis, err: %v", err)
	}

	redisOpts := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Username: cfg.Redis.User,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	asynqClient := asynq.NewClient(redisOpts)
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Errorf("fail to close asynq client, err: %v", err)
		}
	}()

	sdClient, err := statsd.New(cfg.Datadog.Host + ":" + cfg.Datadog.Port)
	if err != nil {
		logger.Fatalf("fail to create statsd client, err: %v", err)
	}

	solanaClient := client.NewSolanaClient(cfg.Solana.RPC)

	vaultOpts := []keyvault.Option{
		keyvault.WithBalances(solanaClient, redisStorage),
	}
	if cfg.Encryption.N > 0 {
		vaultOpts = append(vaultOpts, keyvault.WithKDFParams(crypto.Params{
			N:      cfg.Encryption.N,
			R:      cfg.Encryption.R,
			P:      cfg.Encryption.P,
			KeyLen: crypto.DefaultParams().KeyLen,
		}))
	}
	if cfg.BlockStorage.Bucket != "" {
		blockStorage, err := storage.NewBlockStorage(cfg)
		if err != nil {
			logger.Fatalf("fail to create block storage, err: %v", err)
		}
		vaultOpts = append(vaultOpts, keyvault.WithBackup(blockStorage))
	}

	vault := keyvault.NewVault(db, logger, vaultOpts...)
	connections := connection.NewService(db, logger)
	transactions := pendingtx.NewService(db, vault, logger,
		pendingtx.WithBlockhashInspector(solanaClient),
		pendingtx.WithEnqueuer(asynqClient),
	)

	server := api.NewServer(
		cfg.Server.Port,
		vault,
		connections,
		transactions,
		auth.NewAuthenticator(),
		sdClient,
	)
	fmt.Printf("aegisd listening on %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	if err := server.StartServer(); err != nil {
		logger.Fatalf("fail to start server, err: %v", err)
	}
}
