package v1

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusfind/campusfind/store"
)

func seedRequestWithMatches(env *testEnv) {
	env.driver.requests["req-1"] = &store.LostRequest{
		ID:          "req-1",
		OwnerID:     "owner",
		Description: "black wallet",
		Status:      store.RequestStatusSubmitted,
	}
	env.driver.items["item-1"] = &store.FoundItem{
		ID:          "item-1",
		HandlerID:   "staff",
		Description: "black leather wallet",
		Status:      store.FoundItemStatusFound,
	}
	env.driver.items["item-2"] = &store.FoundItem{
		ID:          "item-2",
		HandlerID:   "staff",
		Description: "dark wallet",
		Status:      store.FoundItemStatusFound,
	}
	env.driver.matches["req-1"] = []*store.Match{
		{ID: "m-1", RequestID: "req-1", FoundItemID: "item-1", Distance: 0.1, Confidence: 0.95, Rank: 0, Status: store.MatchStatusPending},
		{ID: "m-2", RequestID: "req-1", FoundItemID: "item-2", Distance: 0.3, Confidence: 0.85, Rank: 1, Status: store.MatchStatusPending},
	}
}

func TestGetMatchesRequiresAuth(t *testing.T) {
	env := newTestEnv()
	seedRequestWithMatches(env)

	rec := env.do(http.MethodGet, "/api/v1/requests/req-1/matches", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/requests/req-1/matches", "cfind_pat_bogus", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetMatchesUnknownRequest(t *testing.T) {
	env := newTestEnv()
	token := env.seedUser("owner", store.RoleUser)

	rec := env.do(http.MethodGet, "/api/v1/requests/nope/matches", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetMatchesForbiddenForNonOwner(t *testing.T) {
	env := newTestEnv()
	seedRequestWithMatches(env)
	env.seedUser("owner", store.RoleUser)
	otherToken := env.seedUser("other", store.RoleUser)

	rec := env.do(http.MethodGet, "/api/v1/requests/req-1/matches", otherToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetMatchesOwnerReadsRankedJoinedMatches(t *testing.T) {
	env := newTestEnv()
	seedRequestWithMatches(env)
	token := env.seedUser("owner", store.RoleUser)

	rec := env.do(http.MethodGet, "/api/v1/requests/req-1/matches", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var matches []*MatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matches))
	require.Len(t, matches, 2)

	assert.Equal(t, "m-1", matches[0].ID)
	assert.Equal(t, int32(0), matches[0].Rank)
	require.NotNil(t, matches[0].FoundItem)
	assert.Equal(t, "item-1", matches[0].FoundItem.ID)
	assert.Equal(t, "black leather wallet", matches[0].FoundItem.Description)

	assert.Equal(t, "m-2", matches[1].ID)
	assert.GreaterOrEqual(t, matches[0].Confidence, matches[1].Confidence)
}

func TestGetMatchesAdminCanReadAnyRequest(t *testing.T) {
	env := newTestEnv()
	seedRequestWithMatches(env)
	env.seedUser("owner", store.RoleUser)
	adminToken := env.seedUser("admin", store.RoleAdmin)

	rec := env.do(http.MethodGet, "/api/v1/requests/req-1/matches", adminToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetMatchesSkipsMissingFoundItems(t *testing.T) {
	env := newTestEnv()
	seedRequestWithMatches(env)
	token := env.seedUser("owner", store.RoleUser)

	// item-2 vanished from the inventory after the pass; its match row is
	// silently dropped from the response.
	delete(env.driver.items, "item-2")

	rec := env.do(http.MethodGet, "/api/v1/requests/req-1/matches", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var matches []*MatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, "item-1", matches[0].FoundItem.ID)
}

func TestReviewMatchAcceptUpdatesStatuses(t *testing.T) {
	env := newTestEnv()
	seedRequestWithMatches(env)
	token := env.seedUser("admin", store.RoleAdmin)

	rec := env.do(http.MethodPost, "/api/v1/requests/req-1/matches/m-1/review", token, `{"verdict":"accept"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, store.MatchStatusAccepted, env.driver.matches["req-1"][0].Status)
	assert.Equal(t, store.RequestStatusMatched, env.driver.requests["req-1"].Status)
	assert.Equal(t, store.FoundItemStatusMatched, env.driver.items["item-1"].Status)
}

func TestReviewMatchRejectOnlyFlagsMatch(t *testing.T) {
	env := newTestEnv()
	seedRequestWithMatches(env)
	token := env.seedUser("admin", store.RoleAdmin)

	rec := env.do(http.MethodPost, "/api/v1/requests/req-1/matches/m-2/review", token, `{"verdict":"reject"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, store.MatchStatusRejected, env.driver.matches["req-1"][1].Status)
	assert.Equal(t, store.RequestStatusSubmitted, env.driver.requests["req-1"].Status)
	assert.Equal(t, store.FoundItemStatusFound, env.driver.items["item-2"].Status)
}

func TestReviewMatchForbiddenForRegularUser(t *testing.T) {
	env := newTestEnv()
	seedRequestWithMatches(env)
	token := env.seedUser("owner", store.RoleUser)

	rec := env.do(http.MethodPost, "/api/v1/requests/req-1/matches/m-1/review", token, `{"verdict":"accept"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReviewMatchBadVerdict(t *testing.T) {
	env := newTestEnv()
	seedRequestWithMatches(env)
	token := env.seedUser("admin", store.RoleAdmin)

	rec := env.do(http.MethodPost, "/api/v1/requests/req-1/matches/m-1/review", token, `{"verdict":"maybe"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
