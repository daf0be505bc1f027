package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Validate(t *testing.T) {
	v, err := NewValidator("s3cret", "marketplace-auth", "")
	require.NoError(t, err)

	good, err := Sign("s3cret", "marketplace-auth", "c1", []string{"admin"}, time.Hour)
	require.NoError(t, err)
	expired, err := Sign("s3cret", "marketplace-auth", "c1", nil, -time.Minute)
	require.NoError(t, err)
	wrongKey, err := Sign("other", "marketplace-auth", "c1", nil, time.Hour)
	require.NoError(t, err)
	wrongIssuer, err := Sign("s3cret", "someone-else", "c1", nil, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "valid with bearer prefix", token: "Bearer " + good},
		{name: "missing", token: "", wantErr: ErrMissingToken},
		{name: "expired", token: expired, wantErr: ErrExpiredToken},
		{name: "wrong key", token: wrongKey, wantErr: ErrInvalidToken},
		{name: "wrong issuer", token: wrongIssuer, wantErr: ErrInvalidToken},
		{name: "garbage", token: "abc.def.ghi", wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.Validate(tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "c1", claims.UserID)
			assert.True(t, claims.HasRole("admin"))
		})
	}
}

func TestNewValidator_RequiresSecret(t *testing.T) {
	_, err := NewValidator("", "", "")
	assert.Error(t, err)
}

func TestCaller(t *testing.T) {
	ctx := WithCaller(context.Background(), Caller{ID: "c1"})
	c, ok := CallerFromContext(ctx)
	require.True(t, ok)

	assert.True(t, c.CanActFor("c1"))
	assert.False(t, c.CanActFor("c2"))
	assert.True(t, Caller{ID: "ops", Admin: true}.CanActFor("c2"))

	_, ok = CallerFromContext(context.Background())
	assert.False(t, ok)
}
