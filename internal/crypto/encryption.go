package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

// Params are the scrypt work factors used to stretch a wallet password into
// an AES-256 key. The defaults (~64MB, tens of milliseconds) are meant for
// server-side custody; tests may pass lighter values.
type Params struct {
	N      int
	R      int
	P      int
	KeyLen int
}

func DefaultParams() Params {
	return Params{
		N:      1 << 16,
		R:      8,
		P:      1,
		KeyLen: 32,
	}
}

const (
	saltLen  = 16
	nonceLen = 12
)

// Encrypt seals plaintext under a key derived from password with a freshly
// generated salt. It returns base64(nonce||ciphertext) and the hex salt.
// AES-GCM authenticates the ciphertext, so decrypting with a key derived from
// any other password fails instead of yielding garbage bytes.
func Encrypt(plaintext, password []byte, params Params) (ciphertext string, saltHex string, err error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", "", fmt.Errorf("fail to generate salt, err: %w", err)
	}

	key, err := scrypt.Key(password, salt, params.N, params.R, params.P, params.KeyLen)
	if err != nil {
		return "", "", fmt.Errorf("fail to derive key, err: %w", err)
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", "", fmt.Errorf("fail to create cipher, err: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", "", fmt.Errorf("fail to create GCM, err: %w", err)
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", "", fmt.Errorf("fail to generate nonce, err: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), hex.EncodeToString(salt), nil
}

// ErrDecryptionFailed is returned when the GCM tag does not verify, which is
// what a wrong password looks like.
var ErrDecryptionFailed = errors.New("decryption failed")

// ErrCorruptedCiphertext is returned when the stored ciphertext or salt is not
// even decodable; the record is damaged and no password can recover it.
var ErrCorruptedCiphertext = errors.New("corrupted ciphertext record")

// Decrypt reverses Encrypt. The caller should scrub the returned plaintext
// after use.
func Decrypt(ciphertext, saltHex string, password []byte, params Params) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: bad base64", ErrCorruptedCiphertext)
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return nil, fmt.Errorf("%w: bad salt", ErrCorruptedCiphertext)
	}
	if len(sealed) < nonceLen {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrCorruptedCiphertext)
	}

	key, err := scrypt.Key(password, salt, params.N, params.R, params.P, params.KeyLen)
	if err != nil {
		return nil, fmt.Errorf("fail to derive key, err: %w", err)
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("fail to create cipher, err: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("fail to create GCM, err: %w", err)
	}

	nonce, sealed := sealed[:nonceLen], sealed[nonceLen:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
