package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/venturedesk/pipeline/internal/db"
	"github.com/venturedesk/pipeline/internal/types"
)

func newTestAuthHandler(t *testing.T) (*AuthHandler, *fakeDBClient) {
	t.Helper()
	svc, client := newTestUserService()
	return NewAuthHandler(svc, setupTestJWTService(t, 24)), client
}

func TestAuthHandler_Register(t *testing.T) {
	handler, _ := newTestAuthHandler(t)

	body := `{"name":"Ana","email":"ana@example.com","password":"secret-password"}`
	rec := httptest.NewRecorder()
	handler.Register(rec, httptest.NewRequest("POST", "/auth/register", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp types.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ana@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.Token)
}

func TestAuthHandler_Register_InvalidBody(t *testing.T) {
	handler, _ := newTestAuthHandler(t)

	rec := httptest.NewRecorder()
	handler.Register(rec, httptest.NewRequest("POST", "/auth/register", strings.NewReader("{not json")))

	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Errors come back in the same JSON envelope as the rest of the API.
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["error"])
}

func TestAuthHandler_Login_RolesInResponseAndToken(t *testing.T) {
	handler, client := newTestAuthHandler(t)
	ctx := context.Background()

	registered, err := handler.userService.Register(ctx, &types.CreateUserRequest{
		Name: "Ana", Email: "ana@example.com", Password: "secret-password",
	})
	require.NoError(t, err)
	client.users[registered.ID].Roles = []db.Role{{ID: uuid.New(), Name: "admin"}}

	body := `{"email":"ana@example.com","password":"secret-password"}`
	rec := httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest("POST", "/auth/login", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.User.Roles, 1)
	assert.Equal(t, "admin", resp.User.Roles[0].Name)

	claims, err := handler.jwtService.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.UserID)
	assert.Equal(t, []string{"admin"}, claims.Roles)
}

func TestAuthHandler_Login_BadCredentials(t *testing.T) {
	handler, _ := newTestAuthHandler(t)

	body := `{"email":"nobody@example.com","password":"whatever"}`
	rec := httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest("POST", "/auth/login", strings.NewReader(body)))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["error"])
}
