package v1

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusfind/campusfind/store"
)

func TestCreateRequestTriggersBackgroundMatching(t *testing.T) {
	env := newTestEnv()
	token := env.seedUser("student", store.RoleUser)

	env.driver.items["item-1"] = &store.FoundItem{ID: "item-1", Description: "black wallet"}
	env.driver.nearest = []*store.FoundItemDistance{{FoundItemID: "item-1", Distance: 0.2}}

	rec := env.do(http.MethodPost, "/api/v1/requests", token, `{"description":"lost my black wallet","category":"accessories","campus":"north"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var request LostRequestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &request))
	assert.Equal(t, "student", request.OwnerID)
	assert.Equal(t, store.RequestStatusSubmitted.String(), request.Status)

	// The matching pass runs in the background; wait for it, then the match
	// set must exist.
	env.dispatcher.Wait()
	assert.Len(t, env.driver.matches[request.ID], 1)
}

func TestCreateRequestRequiresContent(t *testing.T) {
	env := newTestEnv()
	token := env.seedUser("student", store.RoleUser)

	rec := env.do(http.MethodPost, "/api/v1/requests", token, `{"description":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListMyRequestsOnlyReturnsOwn(t *testing.T) {
	env := newTestEnv()
	token := env.seedUser("student", store.RoleUser)
	env.driver.requests["req-mine"] = &store.LostRequest{ID: "req-mine", OwnerID: "student"}
	env.driver.requests["req-other"] = &store.LostRequest{ID: "req-other", OwnerID: "someone-else"}

	rec := env.do(http.MethodGet, "/api/v1/requests/mine", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var requests []*LostRequestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &requests))
	require.Len(t, requests, 1)
	assert.Equal(t, "req-mine", requests[0].ID)
}

func TestCreateFoundItemAdminOnly(t *testing.T) {
	env := newTestEnv()
	userToken := env.seedUser("student", store.RoleUser)

	rec := env.do(http.MethodPost, "/api/v1/found-items", userToken, `{"description":"a black wallet"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminToken := env.seedUser("admin", store.RoleAdmin)
	rec = env.do(http.MethodPost, "/api/v1/found-items", adminToken, `{"description":"a black wallet","category":"accessories"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var item FoundItemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.Equal(t, "admin", item.HandlerID)
	assert.Equal(t, store.FoundItemStatusFound.String(), item.Status)
	env.dispatcher.Wait()
}

func TestCreateFoundItemFansOutToRequests(t *testing.T) {
	env := newTestEnv()
	adminToken := env.seedUser("admin", store.RoleAdmin)
	env.driver.requests["req-1"] = &store.LostRequest{ID: "req-1", OwnerID: "student", Description: "lost wallet"}
	env.driver.requests["req-2"] = &store.LostRequest{ID: "req-2", OwnerID: "student", Description: "lost keys"}
	env.driver.nearest = []*store.FoundItemDistance{{FoundItemID: "item-new", Distance: 0.3}}

	rec := env.do(http.MethodPost, "/api/v1/found-items", adminToken, `{"description":"found a wallet"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	env.dispatcher.Wait()
	assert.Len(t, env.driver.matches["req-1"], 1)
	assert.Len(t, env.driver.matches["req-2"], 1)
}

func TestRematchRequestSynchronous(t *testing.T) {
	env := newTestEnv()
	adminToken := env.seedUser("admin", store.RoleAdmin)
	env.driver.requests["req-1"] = &store.LostRequest{ID: "req-1", OwnerID: "student", Description: "lost umbrella"}
	env.driver.nearest = []*store.FoundItemDistance{{FoundItemID: "item-1", Distance: 0.4}}

	rec := env.do(http.MethodPost, "/api/v1/requests/req-1/rematch", adminToken, `{}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var matches []*MatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, "item-1", matches[0].FoundItemID)
}

func TestListRequestsAdminOnly(t *testing.T) {
	env := newTestEnv()
	env.driver.requests["req-1"] = &store.LostRequest{ID: "req-1", OwnerID: "student", Status: store.RequestStatusSubmitted}
	env.driver.requests["req-2"] = &store.LostRequest{ID: "req-2", OwnerID: "other", Status: store.RequestStatusApproved}

	userToken := env.seedUser("student", store.RoleUser)
	rec := env.do(http.MethodGet, "/api/v1/requests", userToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminToken := env.seedUser("admin", store.RoleAdmin)
	rec = env.do(http.MethodGet, "/api/v1/requests", adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var requests []*LostRequestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &requests))
	assert.Len(t, requests, 2)

	// Status filter narrows the queue.
	rec = env.do(http.MethodGet, "/api/v1/requests?status=SUBMITTED", adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	requests = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &requests))
	require.Len(t, requests, 1)
	assert.Equal(t, "req-1", requests[0].ID)
}

func TestReviewRequestApprove(t *testing.T) {
	env := newTestEnv()
	env.driver.requests["req-1"] = &store.LostRequest{ID: "req-1", OwnerID: "student", Status: store.RequestStatusSubmitted}
	adminToken := env.seedUser("admin", store.RoleAdmin)

	rec := env.do(http.MethodPost, "/api/v1/requests/req-1/review", adminToken, `{"verdict":"approve"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, store.RequestStatusApproved, env.driver.requests["req-1"].Status)

	rec = env.do(http.MethodPost, "/api/v1/requests/req-1/review", adminToken, `{"verdict":"reject"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, store.RequestStatusRejected, env.driver.requests["req-1"].Status)
}

func TestReviewRequestForbiddenForRegularUser(t *testing.T) {
	env := newTestEnv()
	env.driver.requests["req-1"] = &store.LostRequest{ID: "req-1", OwnerID: "student", Status: store.RequestStatusSubmitted}
	userToken := env.seedUser("student", store.RoleUser)

	rec := env.do(http.MethodPost, "/api/v1/requests/req-1/review", userToken, `{"verdict":"approve"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, store.RequestStatusSubmitted, env.driver.requests["req-1"].Status)
}

func TestReviewRequestUnknownOrBadVerdict(t *testing.T) {
	env := newTestEnv()
	adminToken := env.seedUser("admin", store.RoleAdmin)

	rec := env.do(http.MethodPost, "/api/v1/requests/nope/review", adminToken, `{"verdict":"approve"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env.driver.requests["req-1"] = &store.LostRequest{ID: "req-1", OwnerID: "student", Status: store.RequestStatusSubmitted}
	rec = env.do(http.MethodPost, "/api/v1/requests/req-1/review", adminToken, `{"verdict":"maybe"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRematchRequestRejectsNegativeLimit(t *testing.T) {
	env := newTestEnv()
	adminToken := env.seedUser("admin", store.RoleAdmin)
	env.driver.requests["req-1"] = &store.LostRequest{ID: "req-1", OwnerID: "student", Description: "lost umbrella"}

	rec := env.do(http.MethodPost, "/api/v1/requests/req-1/rematch", adminToken, `{"limit":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRematchRequestNotFound(t *testing.T) {
	env := newTestEnv()
	adminToken := env.seedUser("admin", store.RoleAdmin)

	rec := env.do(http.MethodPost, "/api/v1/requests/nope/rematch", adminToken, `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
