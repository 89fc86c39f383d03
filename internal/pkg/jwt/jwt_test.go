package jwt

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAccessToken_RoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", "1h")

	token, exp, err := svc.GenerateAccessToken("user-1", user.RolePayrollManager)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Positive(t, exp)

	decoded, err := svc.JWTAuth().Decode(token)
	require.NoError(t, err)
	claims, err := decoded.AsMap(context.Background())
	require.NoError(t, err)

	p, err := PrincipalFromClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, user.RolePayrollManager, p.Role)
}

func TestGenerateAccessToken_RejectsUnknownRole(t *testing.T) {
	svc := NewJWTService("test-secret", "1h")
	_, _, err := svc.GenerateAccessToken("user-1", user.Role("root"))
	assert.ErrorIs(t, err, user.ErrInvalidRole)
}

func TestGenerateAccessToken_BadDuration(t *testing.T) {
	svc := NewJWTService("test-secret", "soon")
	_, _, err := svc.GenerateAccessToken("user-1", user.RoleViewer)
	assert.Error(t, err)
}

func TestPrincipalFromClaims_RequiresAccessType(t *testing.T) {
	_, err := PrincipalFromClaims(map[string]interface{}{"type": "refresh", "user_id": "u", "role": "admin"})
	assert.ErrorIs(t, err, user.ErrInvalidToken)

	_, err = PrincipalFromClaims(map[string]interface{}{"type": "access", "role": "admin"})
	assert.ErrorIs(t, err, user.ErrInvalidToken)
}
