package client

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// SolanaClient wraps the JSON-RPC client for the chain reads this service
// needs: account balances and blockhash recency.
type SolanaClient struct {
	rpcClient *rpc.Client
}

func NewSolanaClient(rpcURL string) *SolanaClient {
	return &SolanaClient{
		rpcClient: rpc.New(rpcURL),
	}
}

// GetBalance returns the SOL balance of pubkey in lamports.
func (c *SolanaClient) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	pk, err := solana.PublicKeyFromBase58(pubkey)
	if err != nil {
		return 0, fmt.Errorf("invalid pubkey: %w", err)
	}

	out, err := c.rpcClient.GetBalance(ctx, pk, rpc.CommitmentFinalized)
	if err != nil {
		return 0, fmt.Errorf("fail to get balance, err: %w", err)
	}
	return out.Value, nil
}

// IsBlockhashValid reports whether the chain still accepts transactions that
// reference the given blockhash.
func (c *SolanaClient) IsBlockhashValid(ctx context.Context, hash solana.Hash) (bool, error) {
	out, err := c.rpcClient.IsBlockhashValid(ctx, hash, rpc.CommitmentProcessed)
	if err != nil {
		return false, fmt.Errorf("fail to check blockhash validity, err: %w", err)
	}
	return out.Value, nil
}
