package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campusfind/campusfind/internal/util"
	"github.com/campusfind/campusfind/matcher"
	"github.com/campusfind/campusfind/store"
)

type CreateLostRequestRequest struct {
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Campus      string            `json:"campus"`
	Attributes  map[string]string `json:"attributes"`
	Images      []string          `json:"images"`
}

type LostRequestResponse struct {
	ID          string            `json:"id"`
	OwnerID     string            `json:"ownerId"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Campus      string            `json:"campus"`
	Attributes  map[string]string `json:"attributes"`
	Images      []string          `json:"images"`
	Status      string            `json:"status"`
	CreatedTs   int64             `json:"createdTs"`
	UpdatedTs   int64             `json:"updatedTs"`
}

func convertLostRequest(request *store.LostRequest) *LostRequestResponse {
	return &LostRequestResponse{
		ID:          request.ID,
		OwnerID:     request.OwnerID,
		Description: request.Description,
		Category:    request.Category,
		Campus:      request.Campus,
		Attributes:  request.Attributes,
		Images:      request.Images,
		Status:      request.Status.String(),
		CreatedTs:   request.CreatedTs,
		UpdatedTs:   request.UpdatedTs,
	}
}

// CreateRequest records a lost-item request for the authenticated user and
// kicks off a background matching pass. The response never waits on matching.
func (s *APIV1Service) CreateRequest(c echo.Context) error {
	ctx := c.Request().Context()
	user := currentUser(c)

	body := &CreateLostRequestRequest{}
	if err := c.Bind(body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}
	if strings.TrimSpace(body.Description) == "" && len(body.Images) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "description or images required")
	}

	now := time.Now().Unix()
	request, err := s.Store.CreateLostRequest(ctx, &store.LostRequest{
		ID:          util.GenUUID(),
		OwnerID:     user.ID,
		Description: body.Description,
		Category:    body.Category,
		Campus:      body.Campus,
		Attributes:  body.Attributes,
		Images:      body.Images,
		Status:      store.RequestStatusSubmitted,
		CreatedTs:   now,
		UpdatedTs:   now,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create request").SetInternal(err)
	}

	s.Dispatcher.OnRequestCreated(request.ID)
	return c.JSON(http.StatusCreated, convertLostRequest(request))
}

// ListRequests lists every request, admin only. Supports a status query
// filter so staff can work the submission queue.
func (s *APIV1Service) ListRequests(c echo.Context) error {
	ctx := c.Request().Context()
	if requireAdmin(c) == nil {
		return echo.NewHTTPError(http.StatusForbidden, "admin access required")
	}

	find := &store.FindLostRequest{ExcludeEmbedding: true}
	if status := c.QueryParam("status"); status != "" {
		requestStatus := store.RequestStatus(status)
		find.Status = &requestStatus
	}

	requests, err := s.Store.ListLostRequests(ctx, find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list requests").SetInternal(err)
	}

	response := make([]*LostRequestResponse, 0, len(requests))
	for _, request := range requests {
		response = append(response, convertLostRequest(request))
	}
	return c.JSON(http.StatusOK, response)
}

type ReviewRequestRequest struct {
	// Verdict is "approve" or "reject".
	Verdict string `json:"verdict"`
}

// ReviewRequest records the staff moderation verdict on a submitted request,
// admin only. Approval admits the request into the public queue; rejection is
// terminal apart from a later re-review.
func (s *APIV1Service) ReviewRequest(c echo.Context) error {
	ctx := c.Request().Context()
	if requireAdmin(c) == nil {
		return echo.NewHTTPError(http.StatusForbidden, "admin access required")
	}

	body := &ReviewRequestRequest{}
	if err := c.Bind(body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}
	var verdict store.RequestStatus
	switch body.Verdict {
	case "approve":
		verdict = store.RequestStatusApproved
	case "reject":
		verdict = store.RequestStatusRejected
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "verdict must be approve or reject")
	}

	request, err := s.Store.GetLostRequest(ctx, c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load request").SetInternal(err)
	}
	if request == nil {
		return echo.NewHTTPError(http.StatusNotFound, "request not found")
	}

	now := time.Now().Unix()
	updated, err := s.Store.UpdateLostRequest(ctx, &store.UpdateLostRequest{
		ID:        request.ID,
		Status:    &verdict,
		UpdatedTs: &now,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update request").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertLostRequest(updated))
}

// ListMyRequests lists the authenticated user's own requests.
func (s *APIV1Service) ListMyRequests(c echo.Context) error {
	ctx := c.Request().Context()
	user := currentUser(c)

	requests, err := s.Store.ListLostRequests(ctx, &store.FindLostRequest{
		OwnerID:          &user.ID,
		ExcludeEmbedding: true,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list requests").SetInternal(err)
	}

	response := make([]*LostRequestResponse, 0, len(requests))
	for _, request := range requests {
		response = append(response, convertLostRequest(request))
	}
	return c.JSON(http.StatusOK, response)
}

type RematchRequestRequest struct {
	Limit int `json:"limit"`
	// DistanceThreshold of zero selects the default; an exact-match-only
	// threshold of 0 is not expressible.
	DistanceThreshold float64 `json:"distanceThreshold"`
	Category          *string `json:"category"`
	Campus            *string `json:"campus"`
}

// RematchRequest runs a synchronous matching pass for the request, admin
// only. Unlike the event-triggered passes this surfaces the pass outcome to
// the caller, so staff can diagnose why a request has no matches.
func (s *APIV1Service) RematchRequest(c echo.Context) error {
	ctx := c.Request().Context()
	if requireAdmin(c) == nil {
		return echo.NewHTTPError(http.StatusForbidden, "admin access required")
	}

	body := &RematchRequestRequest{}
	if err := c.Bind(body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}
	if body.Limit < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "limit must be positive")
	}
	opts := matcher.DefaultOptions()
	if body.Limit != 0 {
		opts.Limit = body.Limit
	}
	if body.DistanceThreshold != 0 {
		opts.DistanceThreshold = body.DistanceThreshold
	}
	opts.Prefilters = matcher.Prefilters{
		Category: body.Category,
		Campus:   body.Campus,
	}

	result, err := s.Engine.MatchRequest(ctx, c.Param("id"), opts)
	if err != nil {
		var notFound *matcher.RequestNotFoundError
		var missingDescription *matcher.MissingDescriptionError
		switch {
		case errors.As(err, &notFound):
			return echo.NewHTTPError(http.StatusNotFound, "request not found")
		case errors.As(err, &missingDescription):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "request has no description to match on")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "matching pass failed").SetInternal(err)
		}
	}

	matches := make([]*MatchResponse, 0, len(result.Matches))
	for _, match := range result.Matches {
		matches = append(matches, convertMatch(match, nil))
	}
	return c.JSON(http.StatusOK, matches)
}
