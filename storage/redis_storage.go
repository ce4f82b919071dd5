package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aegis-wallet/aegisd/config"
	"github.com/aegis-wallet/aegisd/contexthelper"
)

// balanceTTL keeps balance reads off the RPC node for a short window; wallet
// listings tolerate slightly stale balances.
const balanceTTL = 30 * time.Second

type RedisStorage struct {
	cfg    config.Config
	client *redis.Client
}

func NewRedisStorage(cfg config.Config) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Username: cfg.Redis.User,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	status := client.Ping(context.Background())
	if status.Err() != nil {
		return nil, status.Err()
	}
	return &RedisStorage{
		cfg:    cfg,
		client: client,
	}, nil
}

func balanceKey(pubkey string) string {
	return fmt.Sprintf("balance-%s", pubkey)
}

func (r *RedisStorage) SetBalance(ctx context.Context, pubkey string, lamports uint64) error {
	if contexthelper.CheckCancellation(ctx) != nil {
		return ctx.Err()
	}
	return r.client.Set(ctx, balanceKey(pubkey), strconv.FormatUint(lamports, 10), balanceTTL).Err()
}

// GetBalance returns the cached lamport balance for pubkey; ok is false on a
// cache miss.
func (r *RedisStorage) GetBalance(ctx context.Context, pubkey string) (uint64, bool, error) {
	if contexthelper.CheckCancellation(ctx) != nil {
		return 0, false, ctx.Err()
	}
	val, err := r.client.Get(ctx, balanceKey(pubkey)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("fail to get cached balance, err: %w", err)
	}
	lamports, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("fail to parse cached balance, err: %w", err)
	}
	return lamports, true, nil
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
