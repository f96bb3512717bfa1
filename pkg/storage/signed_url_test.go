package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, expiresAt, err := signer.Generate("ann-1", "announcements/pic.png")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	entityID, relPath, _, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "ann-1", entityID)
	assert.Equal(t, "announcements/pic.png", relPath)
}

func TestSignedURLRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, _, err := signer.Generate("ann-1", "announcements/pic.png")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token + "x")
	assert.Error(t, err)

	other := NewSignedURLSigner("other-secret", time.Minute)
	_, _, _, err = other.Parse(token)
	assert.Error(t, err)
}

func TestSignedURLExpires(t *testing.T) {
	signer := NewSignedURLSigner("secret", -time.Minute)
	signer.ttl = time.Nanosecond

	token, _, err := signer.Generate("ann-1", "announcements/pic.png")
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	_, _, _, err = signer.Parse(token)
	assert.Error(t, err)
}
