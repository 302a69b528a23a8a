package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/capitalize-ai/messaging-platform/internal/auth"
	"github.com/capitalize-ai/messaging-platform/internal/model"
	"github.com/capitalize-ai/messaging-platform/internal/store"
	"github.com/capitalize-ai/messaging-platform/pkg/apperror"
	"github.com/capitalize-ai/messaging-platform/pkg/logger"
)

func TestLoginRegistersThenVerifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.users.Login(ctx, &model.LoginRequest{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	assert.True(t, first.IsNewUser)
	assert.NotEmpty(t, first.Token)
	assert.True(t, store.ValidID(first.User.ID))
	assert.Contains(t, auth.ProfilePictures, first.User.ProfilePicID)

	second, err := f.users.Login(ctx, &model.LoginRequest{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	assert.False(t, second.IsNewUser)
	assert.Equal(t, first.User.ID, second.User.ID)

	_, err = f.users.Login(ctx, &model.LoginRequest{Username: "alice", Password: "nope"})
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))
}

func TestLoginValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		req  model.LoginRequest
	}{
		{"short username", model.LoginRequest{Username: "al", Password: "pw"}},
		{"blank username", model.LoginRequest{Username: "   ", Password: "pw"}},
		{"missing password", model.LoginRequest{Username: "alice"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.users.Login(context.Background(), &tt.req)
			assert.True(t, apperror.Is(err, apperror.KindValidation))
		})
	}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.users.Login(ctx, &model.LoginRequest{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	user, err := f.users.Authenticate(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = f.users.Authenticate(ctx, "")
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	_, err = f.users.Authenticate(ctx, "garbage")
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	ghost, err := auth.NewTokenIssuer("test-secret", time.Hour).Sign(store.NewID())
	require.NoError(t, err)
	_, err = f.users.Authenticate(ctx, ghost)
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))
}

func TestUserListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.addUser(t, "alice")
	f.addUser(t, "bob")

	all, err := f.users.AllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	online, err := f.users.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, online)

	svc := NewUserService(f.store.Users(), auth.NewTokenIssuer("s", time.Hour), staticOnline{alice.ID}, bcrypt.MinCost, logger.NewNop())
	online, err = svc.OnlineUsers(ctx)
	require.NoError(t, err)
	require.Len(t, online, 1)
	assert.Equal(t, "alice", online[0].Username)
}
