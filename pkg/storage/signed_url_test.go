package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("req-1", "requests/req-1.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	id, path, parsedExpiry, err := signer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "req-1", id)
	require.Equal(t, "requests/req-1.pdf", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Millisecond*10)
	token, _, err := signer.Generate("req-1", "requests/req-1.pdf")
	require.NoError(t, err)
	time.Sleep(time.Second + time.Millisecond*20)

	_, _, _, err = signer.Parse(token)
	require.Error(t, err)
}

func TestSignedURLSignerTampered(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("req-1", "requests/req-1.pdf")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "req-2"
	_, _, _, err = signer.Parse(strings.Join(parts, "."))
	require.Error(t, err)

	_, _, _, err = NewSignedURLSigner("other", time.Hour).Parse(token)
	require.Error(t, err)
}
