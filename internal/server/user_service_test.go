package server

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/venturedesk/pipeline/internal/config"
	"github.com/venturedesk/pipeline/internal/db"
	"github.com/venturedesk/pipeline/internal/types"
)

// fakeDBClient is an in-memory DBClient for unit tests.
type fakeDBClient struct {
	users map[uuid.UUID]*db.User
}

func newFakeDBClient() *fakeDBClient {
	return &fakeDBClient{users: make(map[uuid.UUID]*db.User)}
}

func (f *fakeDBClient) CheckEmailExists(_ context.Context, email string) (bool, error) {
	for _, u := range f.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDBClient) CreateUser(_ context.Context, name, email, phone string) (uuid.UUID, error) {
	id := uuid.New()
	f.users[id] = &db.User{
		ID: id, Name: name, Email: email, Phone: phone,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	return id, nil
}

func (f *fakeDBClient) GetUser(_ context.Context, id uuid.UUID) (*db.User, error) {
	return f.users[id], nil
}

func (f *fakeDBClient) GetUserByEmail(_ context.Context, email string) (*db.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeDBClient) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	u, ok := f.users[id]
	if !ok {
		return &ErrUserNotFound{UserID: id}
	}
	u.PasswordHash = passwordHash
	u.PasswordSet = true
	return nil
}

func newTestUserService() (*UserService, *fakeDBClient) {
	client := newFakeDBClient()
	pwCfg := &config.PasswordConfig{BcryptCost: 10}
	return NewUserService(client, pwCfg), client
}

func TestUserService_Register(t *testing.T) {
	svc, _ := newTestUserService()

	user, err := svc.Register(context.Background(), &types.CreateUserRequest{
		Name:     "Ana",
		Email:    "ana@example.com",
		Password: "secret-password",
	})
	require.NoError(t, err)
	require.NotNil(t, user)

	assert.Equal(t, "Ana", user.Name)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.True(t, user.PasswordSet)
}

func TestUserService_Register_DuplicateEmail(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	_, err := svc.Register(ctx, &types.CreateUserRequest{
		Name: "Ana", Email: "ana@example.com", Password: "secret-password",
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &types.CreateUserRequest{
		Name: "Other", Email: "ana@example.com", Password: "secret-password",
	})
	require.Error(t, err)
	assert.IsType(t, &ErrEmailAlreadyExists{}, err)
}

func TestUserService_Login(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	_, err := svc.Register(ctx, &types.CreateUserRequest{
		Name: "Ana", Email: "ana@example.com", Password: "secret-password",
	})
	require.NoError(t, err)

	user, err := svc.Login(ctx, &types.LoginRequest{
		Email: "ana@example.com", Password: "secret-password",
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)
}

func TestUserService_Login_LoadsRoles(t *testing.T) {
	svc, client := newTestUserService()
	ctx := context.Background()

	registered, err := svc.Register(ctx, &types.CreateUserRequest{
		Name: "Ana", Email: "ana@example.com", Password: "secret-password",
	})
	require.NoError(t, err)

	roleID := uuid.New()
	client.users[registered.ID].Roles = []db.Role{{ID: roleID, Name: "admin"}}

	user, err := svc.Login(ctx, &types.LoginRequest{
		Email: "ana@example.com", Password: "secret-password",
	})
	require.NoError(t, err)
	require.Len(t, user.Roles, 1)
	assert.Equal(t, roleID, user.Roles[0].ID)
	assert.Equal(t, "admin", user.Roles[0].Name)
}

func TestUserService_Login_WrongPassword(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	_, err := svc.Register(ctx, &types.CreateUserRequest{
		Name: "Ana", Email: "ana@example.com", Password: "secret-password",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, &types.LoginRequest{
		Email: "ana@example.com", Password: "wrong",
	})
	require.Error(t, err)
	assert.IsType(t, &ErrInvalidCredentials{}, err)
}

func TestUserService_Login_UnknownEmail(t *testing.T) {
	svc, _ := newTestUserService()

	_, err := svc.Login(context.Background(), &types.LoginRequest{
		Email: "nobody@example.com", Password: "whatever",
	})
	require.Error(t, err)
	assert.IsType(t, &ErrInvalidCredentials{}, err)
}

func TestUserService_UpdatePassword(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	user, err := svc.Register(ctx, &types.CreateUserRequest{
		Name: "Ana", Email: "ana@example.com", Password: "secret-password",
	})
	require.NoError(t, err)

	err = svc.UpdatePassword(ctx, user.ID, "secret-password", "new-secret-password")
	require.NoError(t, err)

	_, err = svc.Login(ctx, &types.LoginRequest{
		Email: "ana@example.com", Password: "new-secret-password",
	})
	assert.NoError(t, err)
}

func TestUserService_UpdatePassword_Mismatch(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	user, err := svc.Register(ctx, &types.CreateUserRequest{
		Name: "Ana", Email: "ana@example.com", Password: "secret-password",
	})
	require.NoError(t, err)

	err = svc.UpdatePassword(ctx, user.ID, "wrong-current", "new-secret-password")
	require.Error(t, err)
	assert.IsType(t, &ErrPasswordMismatch{}, err)
}

func TestUserService_UpdatePassword_UnknownUser(t *testing.T) {
	svc, _ := newTestUserService()

	err := svc.UpdatePassword(context.Background(), uuid.New(), "a", "new-secret-password")
	require.Error(t, err)
	assert.IsType(t, &ErrUserNotFound{}, err)
}
