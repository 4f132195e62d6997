package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/campusfind/campusfind/internal/util"
	"github.com/campusfind/campusfind/server/auth"
	"github.com/campusfind/campusfind/store"
)

type CreateUserRequest struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
}

type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Nickname  string `json:"nickname"`
	Role      string `json:"role"`
	CreatedTs int64  `json:"createdTs"`
	// AccessToken is only populated on creation. It cannot be recovered later.
	AccessToken string `json:"accessToken,omitempty"`
}

func convertUser(user *store.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Nickname:  user.Nickname,
		Role:      user.Role.String(),
		CreatedTs: user.CreatedTs,
	}
}

// CreateUser creates a platform account and issues its access token. The
// first account ever created becomes the admin and needs no authentication;
// after that only admins may create accounts.
func (s *APIV1Service) CreateUser(c echo.Context) error {
	ctx := c.Request().Context()

	body := &CreateUserRequest{}
	if err := c.Bind(body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}
	if !util.ValidateEmail(body.Email) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid email address")
	}

	adminRole := store.RoleAdmin
	admin, err := s.Store.GetUser(ctx, &store.FindUser{Role: &adminRole})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to look up admin").SetInternal(err)
	}

	role := store.RoleUser
	if admin == nil {
		// Bootstrap: the instance has no admin yet.
		role = store.RoleAdmin
	} else {
		token := auth.ExtractBearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenHash := auth.HashAccessToken(token)
		caller, err := s.Store.GetUser(ctx, &store.FindUser{TokenHash: &tokenHash})
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve user").SetInternal(err)
		}
		if caller == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid bearer token")
		}
		if caller.Role != store.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "only admins can create accounts")
		}
		if body.Role == store.RoleAdmin.String() {
			role = store.RoleAdmin
		}
	}

	existing, err := s.Store.GetUser(ctx, &store.FindUser{Email: &body.Email})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to look up user").SetInternal(err)
	}
	if existing != nil {
		return echo.NewHTTPError(http.StatusConflict, "email already registered")
	}

	rawToken := auth.GenerateAccessToken()
	now := time.Now().Unix()
	user, err := s.Store.CreateUser(ctx, &store.User{
		ID:        util.GenUUID(),
		Email:     body.Email,
		Nickname:  body.Nickname,
		Role:      role,
		TokenHash: auth.HashAccessToken(rawToken),
		CreatedTs: now,
		UpdatedTs: now,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create user").SetInternal(err)
	}

	response := convertUser(user)
	response.AccessToken = rawToken
	return c.JSON(http.StatusCreated, response)
}
