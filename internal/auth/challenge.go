package auth

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/aegis-wallet/aegisd/internal/types"
)

// MaxClockSkew bounds how far a challenge timestamp may drift from server
// time in either direction before verification refuses it.
const MaxClockSkew = 300 * time.Second

// offchainPrefix is the Solana off-chain message signing domain separator.
// Signing a challenge must never be confusable with signing a transaction, so
// the first byte is 0xff, which can never start a serialized message.
var offchainPrefix = []byte("\xffsolana offchain message")

// Authenticator verifies wallet-signature based authentication. It holds no
// state: the challenge string is fully determined by the claimed public key
// and a caller-supplied timestamp, and is re-verified on every call.
type Authenticator struct {
	now func() time.Time
}

func NewAuthenticator() *Authenticator {
	return &Authenticator{now: time.Now}
}

// CreateChallenge returns the canonical challenge string a wallet must sign
// to authenticate at the given timestamp.
func CreateChallenge(walletPubkey string, timestamp int64) string {
	return fmt.Sprintf("aegis authentication challenge for %s at %d", walletPubkey, timestamp)
}

// VerifySignature checks an ed25519 signature over message, applying the
// off-chain prehash: 0xff||"solana offchain message"||len(message)||message,
// hashed with SHA-256. Any malformed encoding fails closed.
func (a *Authenticator) VerifySignature(message []byte, signature string, pubkey string) (bool, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return false, fmt.Errorf("%w: %v", types.ErrInvalidSignatureEncoding, err)
	}

	pub, err := solana.PublicKeyFromBase58(pubkey)
	if err != nil {
		return false, fmt.Errorf("%w: %v", types.ErrInvalidPublicKey, err)
	}

	if len(message) > 255 {
		return false, fmt.Errorf("%w: message too long for off-chain format", types.ErrSignatureMismatch)
	}

	payload := make([]byte, 0, len(offchainPrefix)+1+len(message))
	payload = append(payload, offchainPrefix...)
	payload = append(payload, byte(len(message)))
	payload = append(payload, message...)
	digest := sha256.Sum256(payload)

	return ed25519.Verify(ed25519.PublicKey(pub.Bytes()), digest[:], sig[:]), nil
}

// VerifyChallenge reconstructs the canonical challenge for (wallet, timestamp),
// enforces the freshness window, and verifies the signature against it.
func (a *Authenticator) VerifyChallenge(walletPubkey string, signature string, timestamp int64) error {
	drift := a.now().Unix() - timestamp
	if drift < 0 {
		drift = -drift
	}
	if drift > int64(MaxClockSkew.Seconds()) {
		return types.ErrChallengeExpired
	}

	challenge := CreateChallenge(walletPubkey, timestamp)
	ok, err := a.VerifySignature([]byte(challenge), signature, walletPubkey)
	if err != nil {
		return err
	}
	if !ok {
		return types.ErrSignatureMismatch
	}
	return nil
}

// SignChallenge produces a signature the verifier accepts; used by clients and
// tests.
func SignChallenge(priv solana.PrivateKey, walletPubkey string, timestamp int64) (string, error) {
	message := []byte(CreateChallenge(walletPubkey, timestamp))
	payload := make([]byte, 0, len(offchainPrefix)+1+len(message))
	payload = append(payload, offchainPrefix...)
	payload = append(payload, byte(len(message)))
	payload = append(payload, message...)
	digest := sha256.Sum256(payload)

	sig, err := priv.Sign(digest[:])
	if err != nil {
		return "", fmt.Errorf("fail to sign challenge, err: %w", err)
	}
	return sig.String(), nil
}
