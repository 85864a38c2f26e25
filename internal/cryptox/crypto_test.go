package cryptox

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	secret := []byte("secret-password")
	salt := []byte("fixed-salt")

	key1 := DeriveKey(secret, salt)
	key2 := DeriveKey(secret, salt)

	if !bytes.Equal(key1, key2) {
		t.Errorf("expected same result for same inputs, got different")
	}

	expectedHex := "34f7a1c64df63ab1ad5b5ee06e64db5713b35f81839823304db63e8e5e6a6a39"
	if hex.EncodeToString(key1) != expectedHex {
		t.Errorf("expected %s, got %s", expectedHex, hex.EncodeToString(key1))
	}
}

func TestDeriveKey_DifferentSalts(t *testing.T) {
	secret := []byte("secret-password")

	key1 := DeriveKey(secret, []byte("salt-1"))
	key2 := DeriveKey(secret, []byte("salt-2"))

	if bytes.Equal(key1, key2) {
		t.Errorf("expected different results for different salts, got same")
	}
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key := DeriveKey([]byte("s"), []byte("salt-salt-salt-1"))
	plain := []byte(`{"accessToken":"a"}`)

	sealed, err := Seal(plain, key)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "accessToken")

	got, err := Open(sealed, key)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestSeal_FreshNonceEachCall(t *testing.T) {
	key := DeriveKey([]byte("s"), []byte("salt"))
	a, err := Seal([]byte("same"), key)
	require.NoError(t, err)
	b, err := Seal([]byte("same"), key)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpen_WrongKeyFails(t *testing.T) {
	sealed, err := Seal([]byte("data"), DeriveKey([]byte("one"), []byte("salt")))
	require.NoError(t, err)

	_, err = Open(sealed, DeriveKey([]byte("two"), []byte("salt")))
	require.Error(t, err)
}

func TestOpen_ShortInput(t *testing.T) {
	_, err := Open([]byte{1, 2, 3}, DeriveKey([]byte("k"), []byte("salt")))
	require.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestOpen_BadKeyLength(t *testing.T) {
	_, err := Open(make([]byte, 64), []byte("short"))
	require.Error(t, err)
}
