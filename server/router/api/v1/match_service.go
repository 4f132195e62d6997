package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/campusfind/campusfind/store"
)

type MatchResponse struct {
	ID          string  `json:"id"`
	RequestID   string  `json:"requestId"`
	FoundItemID string  `json:"foundItemId"`
	Distance    float64 `json:"distance"`
	Confidence  float64 `json:"confidence"`
	Rank        int32   `json:"rank"`
	Status      string  `json:"status"`
	CreatedTs   int64   `json:"createdTs"`
	// FoundItem is the joined inventory entry, populated at read time. Nil on
	// endpoints that return bare matches.
	FoundItem *FoundItemResponse `json:"foundItem,omitempty"`
}

func convertMatch(match *store.Match, item *store.FoundItem) *MatchResponse {
	response := &MatchResponse{
		ID:          match.ID,
		RequestID:   match.RequestID,
		FoundItemID: match.FoundItemID,
		Distance:    match.Distance,
		Confidence:  match.Confidence,
		Rank:        match.Rank,
		Status:      match.Status.String(),
		CreatedTs:   match.CreatedTs,
	}
	if item != nil {
		response.FoundItem = convertFoundItem(item)
	}
	return response
}

// GetMatches returns the request's current match set, rank order, each
// joined with its found item. Only the request owner and admins may read.
// Matches whose found item has since been deleted are silently skipped; the
// stale rows persist until the next matching pass replaces them.
func (s *APIV1Service) GetMatches(c echo.Context) error {
	ctx := c.Request().Context()
	user := currentUser(c)
	requestID := c.Param("id")

	request, err := s.Store.GetLostRequest(ctx, requestID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load request").SetInternal(err)
	}
	if request == nil {
		return echo.NewHTTPError(http.StatusNotFound, "request not found")
	}
	if request.OwnerID != user.ID && user.Role != store.RoleAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "not the request owner")
	}

	matches, err := s.Store.ListMatches(ctx, &store.FindMatch{RequestID: &requestID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list matches").SetInternal(err)
	}

	response := make([]*MatchResponse, 0, len(matches))
	for _, match := range matches {
		item, err := s.Store.GetFoundItem(ctx, match.FoundItemID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to load found item").SetInternal(err)
		}
		if item == nil {
			slog.Warn("skipping match with missing found item",
				"match_id", match.ID,
				"found_item_id", match.FoundItemID,
			)
			continue
		}
		response = append(response, convertMatch(match, item))
	}
	return c.JSON(http.StatusOK, response)
}

type ReviewMatchRequest struct {
	// Verdict is "accept" or "reject".
	Verdict string `json:"verdict"`
}

// ReviewMatch records a staff verdict on a match, admin only. Accepting a
// match moves the request and the found item to MATCHED; rejecting only
// flags the match itself.
func (s *APIV1Service) ReviewMatch(c echo.Context) error {
	ctx := c.Request().Context()
	if requireAdmin(c) == nil {
		return echo.NewHTTPError(http.StatusForbidden, "admin access required")
	}
	requestID := c.Param("id")
	matchID := c.Param("matchID")

	body := &ReviewMatchRequest{}
	if err := c.Bind(body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}
	var verdict store.MatchStatus
	switch body.Verdict {
	case "accept":
		verdict = store.MatchStatusAccepted
	case "reject":
		verdict = store.MatchStatusRejected
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "verdict must be accept or reject")
	}

	match, err := s.Store.GetMatch(ctx, &store.FindMatch{ID: &matchID, RequestID: &requestID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load match").SetInternal(err)
	}
	if match == nil {
		return echo.NewHTTPError(http.StatusNotFound, "match not found")
	}

	now := time.Now().Unix()
	updated, err := s.Store.UpdateMatch(ctx, &store.UpdateMatch{
		ID:        match.ID,
		Status:    &verdict,
		UpdatedTs: &now,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update match").SetInternal(err)
	}

	if verdict == store.MatchStatusAccepted {
		requestStatus := store.RequestStatusMatched
		if _, err := s.Store.UpdateLostRequest(ctx, &store.UpdateLostRequest{
			ID:        match.RequestID,
			Status:    &requestStatus,
			UpdatedTs: &now,
		}); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to update request status").SetInternal(err)
		}
		itemStatus := store.FoundItemStatusMatched
		if _, err := s.Store.UpdateFoundItem(ctx, &store.UpdateFoundItem{
			ID:        match.FoundItemID,
			Status:    &itemStatus,
			UpdatedTs: &now,
		}); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to update found item status").SetInternal(err)
		}
	}

	return c.JSON(http.StatusOK, convertMatch(updated, nil))
}
