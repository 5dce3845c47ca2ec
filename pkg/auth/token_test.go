package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarium/librarium-backend/pkg/config"
	"github.com/librarium/librarium-backend/pkg/enums"
)

func tokenConfig(minutes int) config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "librarium", ExpirationMinutes: minutes}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := tokenConfig(30)
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{
		UserID: userID,
		Role:   enums.RoleAdmin,
		JTI:    "access-123",
	})
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)

	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, enums.RoleAdmin, claims.Role)
	assert.Equal(t, "access-123", claims.ID)
	assert.Equal(t, cfg.Issuer, claims.Issuer)
	assert.WithinDuration(t, now.Add(30*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestMintAccessTokenGeneratesJTI(t *testing.T) {
	cfg := tokenConfig(5)

	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.RoleStudent,
	})
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	require.NotEmpty(t, claims.ID)
	_, err = uuid.Parse(claims.ID)
	assert.NoError(t, err, "jti %q should be a uuid", claims.ID)
}

func TestParseAccessTokenRejectsTampering(t *testing.T) {
	cfg := tokenConfig(10)

	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.RoleOwner,
	})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token+"x")
	assert.Error(t, err, "corrupted signature must not verify")

	otherIssuer := cfg
	otherIssuer.Issuer = "someone-else"
	reissued, err := MintAccessToken(otherIssuer, time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.RoleOwner,
	})
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, reissued)
	assert.Error(t, err, "foreign issuer must be rejected")
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := tokenConfig(15)
	payload := AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleStudent}

	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), payload)
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")

	// Refresh flows need the claims out of an expired token.
	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, payload.UserID, claims.UserID)
}

func TestMintAccessTokenInvalidRole(t *testing.T) {
	_, err := MintAccessToken(tokenConfig(5), time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   "",
	})
	assert.Error(t, err)
}
