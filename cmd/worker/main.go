package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/aegis-wallet/aegisd/config"
	"github.com/aegis-wallet/aegisd/internal/client"
	"github.com/aegis-wallet/aegisd/internal/keyvault"
	"github.com/aegis-wallet/aegisd/internal/pendingtx"
	"github.com/aegis-wallet/aegisd/internal/tasks"
	"github.com/aegis-wallet/aegisd/storage/postgres"
)

func main() {
	logger := logrus.WithField("service", "worker").Logger

	cfg, err := config.ReadConfig("config")
	if err != nil {
		logger.Fatalf("fail to read config, err: %v", err)
	}

	db, err := postgres.NewPostgresBackend(cfg.Database.DSN)
	if err != nil {
		logger.Fatalf("fail to connect to database, err: %v", err)
	}

	solanaClient := client.NewSolanaClient(cfg.Solana.RPC)
	vault := keyvault.NewVault(db, logger)
	transactions := pendingtx.NewService(db, vault, logger,
		pendingtx.WithBlockhashInspector(solanaClient),
	)

	redisAddr := cfg.Redis.Host + ":" + cfg.Redis.Port
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisAddr,
			Username: cfg.Redis.User,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				tasks.QueueDefault: 10,
			},
		},
	)

	logger.WithFields(logrus.Fields{
		"redis": redisAddr,
	}).Info("Starting worker")

	sweeper := pendingtx.NewSweeper(transactions, logger)
	sweeper.Start()
	defer sweeper.Stop()

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeStaleCheck, func(ctx context.Context, t *asynq.Task) error {
		return handleStaleCheck(ctx, t, transactions)
	})

	if err := srv.Run(mux); err != nil {
		logger.Fatalf("fail to run worker, err: %v", err)
	}
}

func handleStaleCheck(ctx context.Context, t *asynq.Task, transactions *pendingtx.Service) error {
	var p tasks.StaleCheckPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	return transactions.CheckStale(ctx, p.TransactionID)
}
