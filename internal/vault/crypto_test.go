package vault

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("thisis32byteslongsecretkey123456")

func TestEncryptDecrypt(t *testing.T) {
	plaintext := `[{"id":"1","title":"Banking Act"}]`

	ciphertext, err := Encrypt(plaintext, testKey)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	again, err := Encrypt(plaintext, testKey)
	require.NoError(t, err)
	assert.NotEqual(t, ciphertext, again, "nonce must differ per call")

	decrypted, err := Decrypt(ciphertext, testKey)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestDecryptWithWrongKey(t *testing.T) {
	ciphertext, err := Encrypt("Secret message", testKey)
	require.NoError(t, err)

	_, err = Decrypt(ciphertext, []byte("another32byteslongsecretkey65432"))
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestInvalidKeySize(t *testing.T) {
	_, err := Encrypt("test", []byte("shortkey"))
	assert.ErrorIs(t, err, ErrKeySize)

	_, err = Decrypt("0123456789abcdef", []byte("shortkey"))
	assert.ErrorIs(t, err, ErrKeySize)
}

func TestDecryptMalformedInput(t *testing.T) {
	_, err := Decrypt("not-hex", testKey)
	assert.Error(t, err)

	_, err = Decrypt("abcdef", testKey)
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestParseKey(t *testing.T) {
	key, err := ParseKey(string(testKey))
	require.NoError(t, err)
	assert.Equal(t, testKey, key)

	hexKey := strings.Repeat("ab", KeySize)
	key, err = ParseKey(hexKey)
	require.NoError(t, err)
	assert.Len(t, key, KeySize)
	assert.Equal(t, byte(0xab), key[0])

	_, err = ParseKey("too-short")
	assert.ErrorIs(t, err, ErrKeySize)
}

func TestGenerateSelfSignedCert(t *testing.T) {
	cert, err := GenerateSelfSignedCert()
	require.NoError(t, err)
	assert.NotEmpty(t, cert.Certificate)
	assert.NotNil(t, cert.PrivateKey)
}
