package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/aegis-wallet/aegisd/config"
	"github.com/aegis-wallet/aegisd/internal/auth"
	"github.com/aegis-wallet/aegisd/internal/types"
)

var walletName string
var password string

// Dev smoke script: generates a throwaway identity keypair, signs the auth
// challenge with it, and creates a wallet through the running server.
func main() {
	flag.StringVar(&walletName, "name", "dev-wallet", "wallet name")
	flag.StringVar(&password, "password", "dev-password", "wallet password")
	flag.Parse()

	cfg, err := config.ReadConfig("config")
	if err != nil {
		panic(err)
	}

	identity := solana.NewWallet()
	timestamp := time.Now().Unix()
	signature, err := auth.SignChallenge(identity.PrivateKey, identity.PublicKey().String(), timestamp)
	if err != nil {
		panic(err)
	}
	authHeader, err := json.Marshal(types.AuthHeader{
		Wallet:    identity.PublicKey().String(),
		Signature: signature,
		Timestamp: timestamp,
	})
	if err != nil {
		panic(err)
	}

	reqBytes, err := json.Marshal(types.WalletCreateRequest{
		Name:     walletName,
		Password: password,
	})
	if err != nil {
		panic(err)
	}

	serverHost := fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("Creating wallet on: %s (identity %s)\n", serverHost, identity.PublicKey())

	req, err := http.NewRequest(http.MethodPost, serverHost+"/wallets", bytes.NewBuffer(reqBytes))
	if err != nil {
		panic(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Aegis-Auth", string(authHeader))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Status: %d\n%s\n", resp.StatusCode, string(body))
}
