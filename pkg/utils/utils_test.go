package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("0123456789abcdef", time.Hour)
	id := uuid.New()

	tok, err := m.CreateToken(id, "admin", true)
	require.NoError(t, err)

	claims, err := m.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, id.String(), claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.True(t, claims.IsSuperUser)
}

func TestJWTRejectsForeignSecretAndExpiry(t *testing.T) {
	tok, err := NewJWTManager("first-secret-value", time.Hour).CreateToken(uuid.New(), "user", false)
	require.NoError(t, err)

	_, err = NewJWTManager("other-secret-value", time.Hour).ValidateToken(tok)
	assert.ErrorIs(t, err, ErrUnauthorized)

	expired, err := NewJWTManager("first-secret-value", -time.Minute).CreateToken(uuid.New(), "user", false)
	require.NoError(t, err)
	_, err = NewJWTManager("first-secret-value", time.Hour).ValidateToken(expired)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NoError(t, ComparePasswords(hash, "s3cret!"))
	assert.Error(t, ComparePasswords(hash, "wrong"))
}

func TestGenerateSecureToken(t *testing.T) {
	a, err := GenerateSecureToken(8)
	require.NoError(t, err)
	b, err := GenerateSecureToken(8)
	require.NoError(t, err)
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)

	_, err = GenerateSecureToken(0)
	assert.Error(t, err)
}

func TestIdentifiers(t *testing.T) {
	qr := NewQRCode()
	assert.True(t, strings.HasPrefix(qr, QRCodePrefix))
	assert.NotEqual(t, qr, NewQRCode())

	gen, err := NewReceiptGenerator(7)
	require.NoError(t, err)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		ref := gen.Next()
		assert.False(t, seen[ref], "duplicate receipt %s", ref)
		seen[ref] = true
	}

	_, err = NewReceiptGenerator(5000)
	assert.Error(t, err)
}

func TestParseDateParam(t *testing.T) {
	zero, err := ParseDateParam("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	d, err := ParseDateParam("2025-01-02")
	require.NoError(t, err)
	assert.Equal(t, 2, d.Day())
	assert.Equal(t, 23, EndOfDay(d).Hour())

	_, err = ParseDateParam("02/01/2025")
	assert.Error(t, err)
}

func TestHandleServiceErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: points must be >= 0", ErrValidation), http.StatusBadRequest},
		{ErrInvalidConfirmation, http.StatusBadRequest},
		{ErrCyclicRelationship, http.StatusBadRequest},
		{fmt.Errorf("%w: tx-1", ErrDuplicateTransaction), http.StatusConflict},
		{ErrAccountNotFound, http.StatusNotFound},
		{ErrForbidden, http.StatusForbidden},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Set("trace_id", "trace-1")

		HandleServiceError(c, tc.err)

		assert.Equal(t, tc.code, w.Code, tc.err.Error())
		var body APIResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "error", body.Status)
		assert.Equal(t, "trace-1", body.TraceID)
		if tc.code == http.StatusInternalServerError {
			assert.Equal(t, "Internal server error", body.Message)
		}
	}
}

func TestScanCodes(t *testing.T) {
	short := NewShortCode()
	assert.Len(t, short, 5)
	for _, r := range short {
		assert.Contains(t, shortCodeAlphabet, string(r))
	}

	code := NewAdminCode()
	assert.Len(t, code, 6)
	assert.Regexp(t, `^[0-9]{6}$`, code)

	assert.True(t, strings.HasPrefix(NewStallQRCode(), StallQRCodePrefix))
	assert.NotEqual(t, NewInviteToken(), NewInviteToken())
}
