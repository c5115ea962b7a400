package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_roundTrip(t *testing.T) {
	svc := NewJWTService("test-session-secret")
	id := uuid.New()

	token, err := svc.SignSessionToken(id, time.Now().Add(time.Hour))
	require.NoError(t, err)

	claims, err := svc.VerifySessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.SessionID)
}

func TestJWTService_rejectsOtherSecret(t *testing.T) {
	token, err := NewJWTService("secret-a").SignSessionToken(uuid.New(), time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = NewJWTService("secret-b").VerifySessionToken(token)
	assert.Error(t, err)
}

func TestJWTService_rejectsExpired(t *testing.T) {
	svc := NewJWTService("test-session-secret")
	token, err := svc.SignSessionToken(uuid.New(), time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, err = svc.VerifySessionToken(token)
	assert.Error(t, err)
}

func TestJWTService_rejectsTampered(t *testing.T) {
	svc := NewJWTService("test-session-secret")
	token, err := svc.SignSessionToken(uuid.New(), time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = svc.VerifySessionToken(token + "x")
	assert.Error(t, err)
	_, err = svc.VerifySessionToken("not-a-token")
	assert.Error(t, err)
}

func TestJWTService_rejectsNoneAlg(t *testing.T) {
	claims := &SessionClaims{SessionID: uuid.New()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTService("test-session-secret").VerifySessionToken(token)
	assert.Error(t, err)
}
