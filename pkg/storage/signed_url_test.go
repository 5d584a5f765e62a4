package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedSigner(ttl time.Duration, at time.Time) *SignedURLSigner {
	s := NewSignedURLSigner("secret", ttl)
	s.now = func() time.Time { return at }
	return s
}

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("3f1c9a52-0000-4000-8000-000000000001", "midterm_a_20261015.xlsx")
	require.NoError(t, err)
	require.False(t, expiresAt.IsZero())

	claims, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "3f1c9a52-0000-4000-8000-000000000001", claims.ExportID)
	assert.Equal(t, "midterm_a_20261015.xlsx", claims.Path)
	assert.True(t, expiresAt.Equal(claims.ExpiresAt))
}

func TestSignedURLSignerExpired(t *testing.T) {
	issued := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	signer := fixedSigner(time.Minute, issued)
	token, _, err := signer.Generate("export-1", "quiz_marks.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return issued.Add(time.Minute) }
	_, err = signer.Parse(token, false)
	assert.ErrorIs(t, err, ErrTokenExpired)

	claims, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "quiz_marks.csv", claims.Path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("export-1", "quiz_marks.csv")
	require.NoError(t, err)
	parts := strings.Split(token, ".")

	parts[2] = "Li4vZXRjL3Bhc3N3ZA"
	_, err = signer.Parse(strings.Join(parts, "."), false)
	assert.ErrorIs(t, err, ErrTokenSignature)

	_, err = NewSignedURLSigner("other", time.Hour).Parse(token, false)
	assert.ErrorIs(t, err, ErrTokenSignature)

	_, err = signer.Parse("a.b.c", false)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestSignedURLSignerGenerateValidation(t *testing.T) {
	_, _, err := NewSignedURLSigner("secret", time.Hour).Generate("", "x.csv")
	assert.Error(t, err)
	_, _, err = NewSignedURLSigner("secret", time.Hour).Generate("a.b", "x.csv")
	assert.Error(t, err)
	_, _, err = NewSignedURLSigner("", time.Hour).Generate("id", "x.csv")
	assert.Error(t, err)
}
