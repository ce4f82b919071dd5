package auth

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-wallet/aegisd/internal/types"
)

func TestCreateChallengeDeterministic(t *testing.T) {
	c1 := CreateChallenge("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", 1700000000)
	c2 := CreateChallenge("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", 1700000000)
	assert.Equal(t, c1, c2)

	c3 := CreateChallenge("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", 1700000001)
	assert.NotEqual(t, c1, c3)
}

func TestVerifyChallenge(t *testing.T) {
	wallet := solana.NewWallet()
	pubkey := wallet.PublicKey().String()
	now := time.Unix(1700000000, 0)

	a := NewAuthenticator()
	a.now = func() time.Time { return now }

	sign := func(ts int64) string {
		sig, err := SignChallenge(wallet.PrivateKey, pubkey, ts)
		require.NoError(t, err)
		return sig
	}

	testCases := []struct {
		name      string
		pubkey    string
		signature string
		timestamp int64
		wantErr   error
	}{
		{
			name:      "fresh valid signature",
			pubkey:    pubkey,
			signature: sign(now.Unix()),
			timestamp: now.Unix(),
		},
		{
			name:      "exactly at window edge",
			pubkey:    pubkey,
			signature: sign(now.Unix() - 300),
			timestamp: now.Unix() - 300,
		},
		{
			name:      "timestamp from the future within window",
			pubkey:    pubkey,
			signature: sign(now.Unix() + 299),
			timestamp: now.Unix() + 299,
		},
		{
			name:      "expired",
			pubkey:    pubkey,
			signature: sign(now.Unix() - 301),
			timestamp: now.Unix() - 301,
			wantErr:   types.ErrChallengeExpired,
		},
		{
			name:      "signature over different timestamp",
			pubkey:    pubkey,
			signature: sign(now.Unix() - 10),
			timestamp: now.Unix(),
			wantErr:   types.ErrSignatureMismatch,
		},
		{
			name:      "signature from another key",
			pubkey:    pubkey,
			signature: mustSignWithOtherKey(t, pubkey, now.Unix()),
			timestamp: now.Unix(),
			wantErr:   types.ErrSignatureMismatch,
		},
		{
			name:      "garbage signature encoding",
			pubkey:    pubkey,
			signature: "not-base58-!!!",
			timestamp: now.Unix(),
			wantErr:   types.ErrInvalidSignatureEncoding,
		},
		{
			name:      "garbage public key",
			pubkey:    "bogus",
			signature: sign(now.Unix()),
			timestamp: now.Unix(),
			wantErr:   types.ErrInvalidPublicKey,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := a.VerifyChallenge(tc.pubkey, tc.signature, tc.timestamp)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVerifySignatureRawMessage(t *testing.T) {
	wallet := solana.NewWallet()
	a := NewAuthenticator()

	// a signature over the bare message, without the off-chain prefix
	// transform, must not verify
	message := []byte("some message")
	sig, err := wallet.PrivateKey.Sign(message)
	require.NoError(t, err)

	ok, err := a.VerifySignature(message, sig.String(), wallet.PublicKey().String())
	require.NoError(t, err)
	assert.False(t, ok)
}

func mustSignWithOtherKey(t *testing.T, pubkey string, ts int64) string {
	t.Helper()
	other := solana.NewWallet()
	sig, err := SignChallenge(other.PrivateKey, pubkey, ts)
	require.NoError(t, err)
	return sig
}
