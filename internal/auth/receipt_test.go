package auth

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret")
	if err := InitJWTSecret(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestUploadReceiptRoundTrip(t *testing.T) {
	receipt, err := GenerateUploadReceipt(42, "idCard")
	require.NoError(t, err)

	assert.NoError(t, VerifyUploadReceipt(receipt, 42, "idCard"))
}

func TestUploadReceiptRejectsWrongOwner(t *testing.T) {
	receipt, err := GenerateUploadReceipt(42, "idCard")
	require.NoError(t, err)

	assert.Error(t, VerifyUploadReceipt(receipt, 43, "idCard"))
}

func TestUploadReceiptRejectsWrongDocumentType(t *testing.T) {
	receipt, err := GenerateUploadReceipt(42, "idCard")
	require.NoError(t, err)

	assert.Error(t, VerifyUploadReceipt(receipt, 42, "bankBook"))
}

func TestUploadReceiptRejectsSessionTokens(t *testing.T) {
	// A login JWT must not double as an upload receipt.
	token, err := GenerateJWT(42, "a@b.com", "이름", "업체")
	require.NoError(t, err)

	assert.Error(t, VerifyUploadReceipt(token, 42, "idCard"))
}

func TestUploadReceiptRejectsGarbage(t *testing.T) {
	assert.Error(t, VerifyUploadReceipt("not-a-token", 42, "idCard"))
}

func TestVerifyJWTRejectsWrongPrincipal(t *testing.T) {
	receipt, err := GenerateUploadReceipt(42, "idCard")
	require.NoError(t, err)

	// Receipts carry no "user" principal type and are not sessions.
	_, err = VerifyJWT(receipt)
	assert.Error(t, err)
}

func TestVerifyJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT(7, "owner@example.com", "김대표", "폴라애드")
	require.NoError(t, err)

	claims, err := VerifyJWT(token)
	require.NoError(t, err)
	assert.EqualValues(t, 7, claims.UserID)
	assert.Equal(t, "owner@example.com", claims.Email)
	assert.Equal(t, "폴라애드", claims.ClientName)
}
