package seal

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	c, err := New("secret-one")
	require.NoError(t, err)

	for _, in := range []string{"", "patient", "doctor", `{"firstName":"สมชาย","lastName":"ใจดี","typeName":"Patient"}`} {
		sealed, err := c.Encrypt(in)
		require.NoError(t, err)
		assert.NotEqual(t, in, sealed)

		out, err := c.Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
}

func TestSameSecretSameKey(t *testing.T) {
	a, err := New("shared")
	require.NoError(t, err)
	b, err := New("shared")
	require.NoError(t, err)

	sealed, err := a.Encrypt("doctor")
	require.NoError(t, err)
	out, err := b.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "doctor", out)
}

func TestDecryptForeignKey(t *testing.T) {
	a, _ := New("secret-one")
	b, _ := New("secret-two")

	sealed, err := a.Encrypt("patient")
	require.NoError(t, err)

	_, err = b.Decrypt(sealed)
	assert.True(t, errors.Is(err, ErrMismatch))
}

func TestDecryptTampered(t *testing.T) {
	c, _ := New("secret-one")
	sealed, err := c.Encrypt("patient")
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01

	_, err = c.Decrypt(base64.RawURLEncoding.EncodeToString(raw))
	assert.True(t, errors.Is(err, ErrMismatch))
}

func TestDecryptMalformed(t *testing.T) {
	c, _ := New("secret-one")

	cases := map[string]string{
		"not base64": "%%%not-base64%%%",
		"too short":  base64.RawURLEncoding.EncodeToString([]byte("short")),
		"empty":      "",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decrypt(in)
			assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
		})
	}
}

func TestNewRejectsEmptySecret(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
