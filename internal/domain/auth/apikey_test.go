package auth

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockKeyRepo struct {
	byHash map[string]*APIKeyInfo
	err    error
}

func (m *mockKeyRepo) FindByHash(_ context.Context, hash string) (*APIKeyInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	info, ok := m.byHash[hash]
	if !ok {
		return nil, ErrUnauthorized
	}
	return info, nil
}

func TestHashKey(t *testing.T) {
	a := HashKey([]byte("pepper"), "apitest")
	b := HashKey([]byte("pepper"), "apitest")
	c := HashKey([]byte("other"), "apitest")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestAuthenticator(t *testing.T) {
	pepper := []byte("pepper")
	hash := HashKey(pepper, "apitest")
	repo := &mockKeyRepo{byHash: map[string]*APIKeyInfo{
		hash: {ID: "1", KeyHash: hash, Name: "test"},
	}}
	a := NewAuthenticator(repo, pepper)
	ctx := context.Background()

	tests := []struct {
		name    string
		key     string
		wantID  string
		wantErr error
	}{
		{"valid", "apitest", "1", nil},
		{"empty", "", "", ErrUnauthorized},
		{"unknown", "nope", "", ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := a.Authenticate(ctx, tt.key)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, info.ID)
		})
	}
}

func TestAuthenticator_StoreFailure(t *testing.T) {
	a := NewAuthenticator(&mockKeyRepo{err: errors.New("connection refused")}, nil)

	_, err := a.Authenticate(context.Background(), "apitest")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}
