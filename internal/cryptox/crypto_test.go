package cryptox

import (
	"bytes"
	"testing"

	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateContentKey_Distinct(t *testing.T) {
	k1 := GenerateContentKey()
	k2 := GenerateContentKey()
	assert.NotEqual(t, k1, k2)
	assert.Len(t, k1.Bytes(), KeySize)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := GenerateContentKey()
	cases := map[string][]byte{
		"empty": {},
		"short": []byte("hello"),
		"large": bytes.Repeat([]byte{0xAB}, 1<<20),
	}
	for name, pt := range cases {
		t.Run(name, func(t *testing.T) {
			nonce, ct, err := Encrypt(pt, key)
			require.NoError(t, err)
			require.Len(t, nonce, NonceSize)
			require.Len(t, ct, len(pt)+TagSize)

			got, err := Decrypt(nonce, ct, key)
			require.NoError(t, err)
			assert.Equal(t, pt, got)
		})
	}
}

func TestEncrypt_FreshNonceEachCall(t *testing.T) {
	key := GenerateContentKey()
	n1, c1, err := Encrypt([]byte("same"), key)
	require.NoError(t, err)
	n2, c2, err := Encrypt([]byte("same"), key)
	require.NoError(t, err)

	assert.NotEqual(t, n1, n2)
	assert.NotEqual(t, c1, c2)
}

func TestEncrypt_NoncesUniqueUnderOneKey(t *testing.T) {
	const n = 10000
	key := GenerateContentKey()
	pt := []byte("same plaintext every time")

	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		nonce, _, err := Encrypt(pt, key)
		require.NoError(t, err)
		require.Len(t, nonce, NonceSize)
		seen[string(nonce)] = struct{}{}
	}
	assert.Len(t, seen, n)
}

func TestDecrypt_TamperedBytesFail(t *testing.T) {
	key := GenerateContentKey()
	env, err := Seal([]byte("quarterly report"), key)
	require.NoError(t, err)

	for i := range env {
		bad := append([]byte(nil), env...)
		bad[i] ^= 0x01
		pt, err := Open(bad, key)
		require.ErrorIs(t, err, common.ErrIntegrity, "byte %d", i)
		assert.Nil(t, pt)
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	env, err := Seal([]byte("x"), GenerateContentKey())
	require.NoError(t, err)

	_, err = Open(env, GenerateContentKey())
	assert.ErrorIs(t, err, common.ErrIntegrity)
}

func TestOpen_ShortEnvelope(t *testing.T) {
	_, err := Open(make([]byte, NonceSize+TagSize-1), GenerateContentKey())
	assert.ErrorIs(t, err, common.ErrIntegrity)
}

func TestSealOpen_EmptyPlaintext(t *testing.T) {
	key := GenerateContentKey()
	env, err := Seal(nil, key)
	require.NoError(t, err)
	require.Len(t, env, NonceSize+TagSize)

	pt, err := Open(env, key)
	require.NoError(t, err)
	assert.NotNil(t, pt)
	assert.Empty(t, pt)
}

func TestImportContentKey(t *testing.T) {
	key := GenerateContentKey()
	got, err := ImportContentKey(key.Bytes())
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = ImportContentKey(make([]byte, 16))
	assert.ErrorIs(t, err, common.ErrInvalidKey)
}

func TestContentKey_Wipe(t *testing.T) {
	key := GenerateContentKey()
	key.Wipe()
	assert.Equal(t, ContentKey{}, key)
}
