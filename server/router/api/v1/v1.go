// Package v1 implements the campusfind JSON API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/campusfind/campusfind/internal/profile"
	"github.com/campusfind/campusfind/matcher"
	"github.com/campusfind/campusfind/server/auth"
	"github.com/campusfind/campusfind/store"
)

type APIV1Service struct {
	Profile    *profile.Profile
	Store      *store.Store
	Engine     *matcher.Engine
	Dispatcher *matcher.Dispatcher
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, engine *matcher.Engine, dispatcher *matcher.Dispatcher) *APIV1Service {
	return &APIV1Service{
		Profile:    profile,
		Store:      store,
		Engine:     engine,
		Dispatcher: dispatcher,
	}
}

// Register mounts all v1 routes on the group.
func (s *APIV1Service) Register(g *echo.Group) {
	// User creation bootstraps itself: the first account needs no token.
	g.POST("/users", s.CreateUser)

	authed := g.Group("", s.authMiddleware)
	authed.POST("/requests", s.CreateRequest)
	authed.GET("/requests", s.ListRequests)
	authed.GET("/requests/mine", s.ListMyRequests)
	authed.POST("/requests/:id/review", s.ReviewRequest)
	authed.GET("/requests/:id/matches", s.GetMatches)
	authed.POST("/requests/:id/rematch", s.RematchRequest)
	authed.POST("/requests/:id/matches/:matchID/review", s.ReviewMatch)
	authed.POST("/found-items", s.CreateFoundItem)
	authed.GET("/found-items", s.ListFoundItems)
}

const userContextKey = "campusfind/user"

// authMiddleware resolves the bearer token to a user and stores it on the
// request context. Missing or unknown tokens get 401.
func (s *APIV1Service) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := auth.ExtractBearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenHash := auth.HashAccessToken(token)
		user, err := s.Store.GetUser(c.Request().Context(), &store.FindUser{TokenHash: &tokenHash})
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve user")
		}
		if user == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid bearer token")
		}
		c.Set(userContextKey, user)
		return next(c)
	}
}

// currentUser returns the authenticated user set by authMiddleware.
func currentUser(c echo.Context) *store.User {
	user, _ := c.Get(userContextKey).(*store.User)
	return user
}

// requireAdmin returns the authenticated user if it is an admin, or nil after
// writing nothing; callers turn nil into a 403.
func requireAdmin(c echo.Context) *store.User {
	user := currentUser(c)
	if user == nil || user.Role != store.RoleAdmin {
		return nil
	}
	return user
}
