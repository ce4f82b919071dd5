package signing

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/aegis-wallet/aegisd/internal/types"
)

// DecodeTransaction parses a serialized Solana transaction envelope and
// checks it is structurally sane: the message must name at least one required
// signer and carry enough account keys to cover them. A blob that fails here
// is rejected before anything is persisted.
func DecodeTransaction(raw []byte) (*solana.Transaction, error) {
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedTransaction, err)
	}

	numSigners := int(tx.Message.Header.NumRequiredSignatures)
	if numSigners == 0 {
		return nil, fmt.Errorf("%w: no required signers", types.ErrMalformedTransaction)
	}
	if len(tx.Message.AccountKeys) < numSigners {
		return nil, fmt.Errorf("%w: fewer account keys than required signers", types.ErrMalformedTransaction)
	}
	return tx, nil
}

// RecentBlockhash extracts the blockhash the envelope references, used to
// judge whether the transaction is still current.
func RecentBlockhash(raw []byte) (solana.Hash, error) {
	tx, err := DecodeTransaction(raw)
	if err != nil {
		return solana.Hash{}, err
	}
	return tx.Message.RecentBlockhash, nil
}

// SignTransaction signs the envelope's message payload with priv and returns
// the re-serialized bytes. The wallet must be one of the message's required
// signers; other signer slots are left untouched so partially signed
// multi-signer envelopes keep their existing signatures.
func SignTransaction(raw []byte, priv solana.PrivateKey) ([]byte, error) {
	tx, err := DecodeTransaction(raw)
	if err != nil {
		return nil, err
	}

	numSigners := int(tx.Message.Header.NumRequiredSignatures)
	signerIndex := -1
	pub := priv.PublicKey()
	for i := 0; i < numSigners; i++ {
		if tx.Message.AccountKeys[i].Equals(pub) {
			signerIndex = i
			break
		}
	}
	if signerIndex == -1 {
		return nil, fmt.Errorf("%w: wallet %s is not a required signer", types.ErrSigningFailure, pub)
	}

	messageBytes, err := tx.Message.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: fail to serialize message: %v", types.ErrSigningFailure, err)
	}

	sig, err := priv.Sign(messageBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSigningFailure, err)
	}

	if len(tx.Signatures) < numSigners {
		sigs := make([]solana.Signature, numSigners)
		copy(sigs, tx.Signatures)
		tx.Signatures = sigs
	}
	tx.Signatures[signerIndex] = sig

	signed, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: fail to serialize signed transaction: %v", types.ErrSigningFailure, err)
	}
	return signed, nil
}
