package signing

import (
	"crypto/ed25519"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-wallet/aegisd/internal/types"
)

func buildTransferTx(t *testing.T, payer solana.PublicKey) []byte {
	t.Helper()
	recipient := solana.NewWallet().PublicKey()
	blockhash := solana.HashFromBytes([]byte("00000000000000000000000000000001"))

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1_000_000, payer, recipient).Build(),
		},
		blockhash,
		solana.TransactionPayer(payer),
	)
	require.NoError(t, err)

	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return raw
}

func TestDecodeTransaction(t *testing.T) {
	payer := solana.NewWallet()

	t.Run("valid envelope", func(t *testing.T) {
		raw := buildTransferTx(t, payer.PublicKey())
		tx, err := DecodeTransaction(raw)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, int(tx.Message.Header.NumRequiredSignatures), 1)
	})

	t.Run("garbage bytes", func(t *testing.T) {
		_, err := DecodeTransaction([]byte("definitely not a transaction"))
		assert.ErrorIs(t, err, types.ErrMalformedTransaction)
	})

	t.Run("empty blob", func(t *testing.T) {
		_, err := DecodeTransaction(nil)
		assert.ErrorIs(t, err, types.ErrMalformedTransaction)
	})
}

func TestSignTransaction(t *testing.T) {
	payer := solana.NewWallet()
	raw := buildTransferTx(t, payer.PublicKey())

	signed, err := SignTransaction(raw, payer.PrivateKey)
	require.NoError(t, err)

	tx, err := DecodeTransaction(signed)
	require.NoError(t, err)
	require.NotEmpty(t, tx.Signatures)

	messageBytes, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(
		ed25519.PublicKey(payer.PublicKey().Bytes()),
		messageBytes,
		tx.Signatures[0][:],
	))
}

func TestSignTransactionNotASigner(t *testing.T) {
	payer := solana.NewWallet()
	stranger := solana.NewWallet()
	raw := buildTransferTx(t, payer.PublicKey())

	_, err := SignTransaction(raw, stranger.PrivateKey)
	assert.ErrorIs(t, err, types.ErrSigningFailure)
}

func TestRecentBlockhash(t *testing.T) {
	payer := solana.NewWallet()
	raw := buildTransferTx(t, payer.PublicKey())

	hash, err := RecentBlockhash(raw)
	require.NoError(t, err)
	assert.Equal(t, solana.HashFromBytes([]byte("00000000000000000000000000000001")), hash)
}
