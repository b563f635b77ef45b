package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-datatable/internal/models"
	appErrors "github.com/noah-isme/sma-adp-datatable/pkg/errors"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "sma-adp"}, nil)
	token, err := svc.Issue("u1", models.RoleAdmin, "admin@example.com", "Admin")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestTokenServiceRejectsForeignSecret(t *testing.T) {
	token, err := NewTokenService(TokenConfig{Secret: "other"}, nil).Issue("u1", models.RoleAdmin, "", "")
	require.NoError(t, err)

	_, err = NewTokenService(TokenConfig{Secret: "secret"}, nil).ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestTokenServiceRejectsExpired(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Expiry: time.Minute}, nil)
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := svc.Issue("u1", models.RoleTeacher, "", "")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}
