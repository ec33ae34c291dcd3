package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, expiresAt, err := signer.Generate("kyc-1", "kyc/user-1/doc.pdf")
	require.NoError(t, err)
	require.True(t, expiresAt.After(time.Now()))

	id, path, _, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "kyc-1", id)
	require.Equal(t, "kyc/user-1/doc.pdf", path)
}

func TestSignedURLTamperedSignature(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, _, err := signer.Generate("kyc-1", "kyc/user-1/doc.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token+"x", false)
	require.Error(t, err)
}

func TestSignedURLExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", -time.Minute)
	signer.ttl = -time.Minute

	token, _, err := signer.Generate("kyc-1", "kyc/user-1/doc.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	_, _, _, err = signer.Parse(token, true)
	require.NoError(t, err)
}

func TestSignedURLRequiresSecret(t *testing.T) {
	signer := NewSignedURLSigner("", time.Minute)
	_, _, err := signer.Generate("kyc-1", "doc.pdf")
	require.Error(t, err)
}
