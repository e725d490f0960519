package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenEncryptorRequiresKey(t *testing.T) {
	_, err := NewTokenEncryptor("")
	assert.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := NewTokenEncryptor("unit-test-key")
	require.NoError(t, err)

	plaintext := "oauth-access-token-123"
	ciphertext, err := enc.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptProducesUniqueCiphertexts(t *testing.T) {
	enc, err := NewTokenEncryptor("unit-test-key")
	require.NoError(t, err)

	first, err := enc.Encrypt("same-token")
	require.NoError(t, err)
	second, err := enc.Encrypt("same-token")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestEmptyStringPassesThrough(t *testing.T) {
	enc, err := NewTokenEncryptor("unit-test-key")
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, ciphertext)

	plaintext, err := enc.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, plaintext)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	enc, err := NewTokenEncryptor("unit-test-key")
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt("token")
	require.NoError(t, err)

	tampered := "A" + ciphertext[1:]
	_, err = enc.Decrypt(tampered)
	assert.Error(t, err)
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	enc1, err := NewTokenEncryptor("key-one")
	require.NoError(t, err)
	enc2, err := NewTokenEncryptor("key-two")
	require.NoError(t, err)

	ciphertext, err := enc1.Encrypt("token")
	require.NoError(t, err)

	_, err = enc2.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestDecryptRejectsShortCiphertext(t *testing.T) {
	enc, err := NewTokenEncryptor("unit-test-key")
	require.NoError(t, err)

	_, err = enc.Decrypt("aGk=") // "hi", shorter than a nonce
	assert.Error(t, err)
}
