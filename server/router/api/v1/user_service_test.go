package v1

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusfind/campusfind/server/auth"
	"github.com/campusfind/campusfind/store"
)

func TestCreateUserBootstrapsFirstAdmin(t *testing.T) {
	env := newTestEnv()

	rec := env.do(http.MethodPost, "/api/v1/users", "", `{"email":"staff@campus.edu","nickname":"Staff"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var user UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, store.RoleAdmin.String(), user.Role)
	require.True(t, strings.HasPrefix(user.AccessToken, auth.AccessTokenPrefix))

	// The issued token authenticates.
	rec = env.do(http.MethodGet, "/api/v1/requests/mine", user.AccessToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateUserRequiresAdminAfterBootstrap(t *testing.T) {
	env := newTestEnv()
	env.seedUser("admin", store.RoleAdmin)

	rec := env.do(http.MethodPost, "/api/v1/users", "", `{"email":"student@campus.edu"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	userToken := env.seedUser("student", store.RoleUser)
	rec = env.do(http.MethodPost, "/api/v1/users", userToken, `{"email":"other@campus.edu"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateUserByAdmin(t *testing.T) {
	env := newTestEnv()
	adminToken := env.seedUser("admin", store.RoleAdmin)

	rec := env.do(http.MethodPost, "/api/v1/users", adminToken, `{"email":"student@campus.edu","nickname":"Student"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var user UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, store.RoleUser.String(), user.Role)
	assert.NotEmpty(t, user.AccessToken)
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	env := newTestEnv()
	adminToken := env.seedUser("admin", store.RoleAdmin)

	rec := env.do(http.MethodPost, "/api/v1/users", adminToken, `{"email":"student@campus.edu"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/users", adminToken, `{"email":"student@campus.edu"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateUserRejectsInvalidEmail(t *testing.T) {
	env := newTestEnv()

	rec := env.do(http.MethodPost, "/api/v1/users", "", `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
