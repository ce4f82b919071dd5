package crypto

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// light work factors so the suite stays fast
func testParams() Params {
	return Params{N: 1 << 4, R: 8, P: 1, KeyLen: 32}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte("sixty-four bytes of pretend ed25519 keypair material............")
	password := []byte("Secret123!")

	ciphertext, salt, err := Encrypt(plaintext, password, testParams())
	require.NoError(t, err)
	assert.NotEmpty(t, ciphertext)
	assert.NotEmpty(t, salt)
	assert.NotContains(t, ciphertext, string(plaintext))

	decrypted, err := Decrypt(ciphertext, salt, password, testParams())
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestDecryptWrongPassword(t *testing.T) {
	ciphertext, salt, err := Encrypt([]byte("key bytes"), []byte("correct"), testParams())
	require.NoError(t, err)

	_, err = Decrypt(ciphertext, salt, []byte("incorrect"), testParams())
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestEncryptFreshSaltPerCall(t *testing.T) {
	plaintext := []byte("key bytes")
	password := []byte("pw")

	c1, s1, err := Encrypt(plaintext, password, testParams())
	require.NoError(t, err)
	c2, s2, err := Encrypt(plaintext, password, testParams())
	require.NoError(t, err)

	assert.NotEqual(t, s1, s2)
	assert.NotEqual(t, c1, c2)
}

func TestDecryptCorruptedRecord(t *testing.T) {
	ciphertext, salt, err := Encrypt([]byte("key bytes"), []byte("pw"), testParams())
	require.NoError(t, err)

	testCases := []struct {
		name       string
		ciphertext string
		salt       string
	}{
		{name: "ciphertext not base64", ciphertext: "%%%not-base64%%%", salt: salt},
		{name: "salt not hex", ciphertext: ciphertext, salt: "zz-not-hex"},
		{name: "ciphertext truncated below nonce", ciphertext: "AAAA", salt: salt},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decrypt(tc.ciphertext, tc.salt, []byte("pw"), testParams())
			assert.ErrorIs(t, err, ErrCorruptedCiphertext)
			assert.False(t, errors.Is(err, ErrDecryptionFailed))
		})
	}
}
