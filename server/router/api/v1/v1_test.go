package v1

import (
	"context"
	"database/sql"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campusfind/campusfind/internal/profile"
	"github.com/campusfind/campusfind/matcher"
	"github.com/campusfind/campusfind/server/auth"
	"github.com/campusfind/campusfind/store"
)

// memDriver is an in-memory store.Driver for handler tests.
type memDriver struct {
	mu       sync.Mutex
	users    map[string]*store.User
	requests map[string]*store.LostRequest
	items    map[string]*store.FoundItem
	matches  map[string][]*store.Match
	nearest  []*store.FoundItemDistance
}

func newMemDriver() *memDriver {
	return &memDriver{
		users:    map[string]*store.User{},
		requests: map[string]*store.LostRequest{},
		items:    map[string]*store.FoundItem{},
		matches:  map[string][]*store.Match{},
	}
}

func (d *memDriver) GetDB() *sql.DB                { return nil }
func (d *memDriver) Close() error                  { return nil }
func (d *memDriver) Migrate(context.Context) error { return nil }

func (d *memDriver) CreateUser(_ context.Context, create *store.User) (*store.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[create.ID] = create
	return create, nil
}

func (d *memDriver) ListUsers(_ context.Context, find *store.FindUser) ([]*store.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := []*store.User{}
	for _, user := range d.users {
		if find.ID != nil && user.ID != *find.ID {
			continue
		}
		if find.Email != nil && user.Email != *find.Email {
			continue
		}
		if find.TokenHash != nil && user.TokenHash != *find.TokenHash {
			continue
		}
		if find.Role != nil && user.Role != *find.Role {
			continue
		}
		list = append(list, user)
	}
	return list, nil
}

func (d *memDriver) CreateLostRequest(_ context.Context, create *store.LostRequest) (*store.LostRequest, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests[create.ID] = create
	return create, nil
}

func (d *memDriver) ListLostRequests(_ context.Context, find *store.FindLostRequest) ([]*store.LostRequest, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := []*store.LostRequest{}
	for _, request := range d.requests {
		if find.ID != nil && request.ID != *find.ID {
			continue
		}
		if find.OwnerID != nil && request.OwnerID != *find.OwnerID {
			continue
		}
		if find.Status != nil && request.Status != *find.Status {
			continue
		}
		list = append(list, request)
	}
	return list, nil
}

func (d *memDriver) UpdateLostRequest(_ context.Context, update *store.UpdateLostRequest) (*store.LostRequest, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	request, ok := d.requests[update.ID]
	if !ok {
		return nil, errors.New("request not found")
	}
	if update.Embedding != nil {
		request.Embedding = update.Embedding
	}
	if update.Status != nil {
		request.Status = *update.Status
	}
	return request, nil
}

func (d *memDriver) DeleteLostRequest(_ context.Context, del *store.DeleteLostRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.requests, del.ID)
	return nil
}

func (d *memDriver) CreateFoundItem(_ context.Context, create *store.FoundItem) (*store.FoundItem, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items[create.ID] = create
	return create, nil
}

func (d *memDriver) ListFoundItems(_ context.Context, find *store.FindFoundItem) ([]*store.FoundItem, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := []*store.FoundItem{}
	for _, item := range d.items {
		if find.ID != nil && item.ID != *find.ID {
			continue
		}
		if find.Status != nil && item.Status != *find.Status {
			continue
		}
		if find.Category != nil && item.Category != *find.Category {
			continue
		}
		if find.Campus != nil && item.Campus != *find.Campus {
			continue
		}
		list = append(list, item)
	}
	return list, nil
}

func (d *memDriver) UpdateFoundItem(_ context.Context, update *store.UpdateFoundItem) (*store.FoundItem, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	item, ok := d.items[update.ID]
	if !ok {
		return nil, errors.New("found item not found")
	}
	if update.Embedding != nil {
		item.Embedding = update.Embedding
	}
	if update.Status != nil {
		item.Status = *update.Status
	}
	return item, nil
}

func (d *memDriver) FindNearestFoundItems(_ context.Context, opts *store.VectorSearchOptions) ([]*store.FoundItemDistance, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	result := d.nearest
	if len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (d *memDriver) ReplaceMatches(_ context.Context, requestID string, matches []*store.Match) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.matches[requestID] = matches
	return nil
}

func (d *memDriver) ListMatches(_ context.Context, find *store.FindMatch) ([]*store.Match, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := []*store.Match{}
	for _, matches := range d.matches {
		for _, match := range matches {
			if find.ID != nil && match.ID != *find.ID {
				continue
			}
			if find.RequestID != nil && match.RequestID != *find.RequestID {
				continue
			}
			list = append(list, match)
		}
	}
	return list, nil
}

func (d *memDriver) UpdateMatch(_ context.Context, update *store.UpdateMatch) (*store.Match, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, matches := range d.matches {
		for _, match := range matches {
			if match.ID == update.ID {
				if update.Status != nil {
					match.Status = *update.Status
				}
				return match, nil
			}
		}
	}
	return nil, errors.New("match not found")
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func (stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{0.1, 0.2}
	}
	return vectors, nil
}

func (stubEmbedder) Dimensions() int { return 2 }

type testEnv struct {
	e          *echo.Echo
	driver     *memDriver
	service    *APIV1Service
	dispatcher *matcher.Dispatcher
}

func newTestEnv() *testEnv {
	driver := newMemDriver()
	s := store.New(driver, &profile.Profile{})
	engine := matcher.NewEngine(s, stubEmbedder{}, nil, 0)
	dispatcher := matcher.NewDispatcher(engine, s, nil, nil, 4, 5*time.Second)
	service := NewAPIV1Service(&profile.Profile{}, s, engine, dispatcher)

	e := echo.New()
	service.Register(e.Group("/api/v1"))
	return &testEnv{e: e, driver: driver, service: service, dispatcher: dispatcher}
}

// seedUser inserts a user and returns its raw access token.
func (env *testEnv) seedUser(id string, role store.Role) string {
	token := auth.GenerateAccessToken()
	env.driver.users[id] = &store.User{
		ID:        id,
		Email:     id + "@campus.edu",
		Role:      role,
		TokenHash: auth.HashAccessToken(token),
	}
	return token
}

func (env *testEnv) do(method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}
