package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "complyflow/pkg/domain-errors"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("test-signing-key", "complyflow", "complyflow-api")

	token, err := svc.GenerateAccessToken("user-1", "compliance_officer", "legal", time.Minute)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "compliance_officer", claims.Role)
	assert.Equal(t, "legal", claims.Department)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewJWTService("test-signing-key", "complyflow", "complyflow-api")

	token, err := svc.GenerateAccessToken("user-1", "", "", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateToken_WrongKey(t *testing.T) {
	issuer := NewJWTService("key-a", "complyflow", "complyflow-api")
	verifier := NewJWTService("key-b", "complyflow", "complyflow-api")

	token, err := issuer.GenerateAccessToken("user-1", "", "", time.Minute)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = verifier.ValidateToken("not-a-token")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
