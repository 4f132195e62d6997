package store

import (
	"context"
	"database/sql"

	"github.com/campusfind/campusfind/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// Driver is an interface for database drivers.
type Driver interface {
	GetDB() *sql.DB
	Close() error
	Migrate(ctx context.Context) error

	// User model related methods.
	CreateUser(ctx context.Context, create *User) (*User, error)
	ListUsers(ctx context.Context, find *FindUser) ([]*User, error)

	// LostRequest model related methods.
	CreateLostRequest(ctx context.Context, create *LostRequest) (*LostRequest, error)
	ListLostRequests(ctx context.Context, find *FindLostRequest) ([]*LostRequest, error)
	UpdateLostRequest(ctx context.Context, update *UpdateLostRequest) (*LostRequest, error)
	DeleteLostRequest(ctx context.Context, delete *DeleteLostRequest) error

	// FoundItem model related methods.
	CreateFoundItem(ctx context.Context, create *FoundItem) (*FoundItem, error)
	ListFoundItems(ctx context.Context, find *FindFoundItem) ([]*FoundItem, error)
	UpdateFoundItem(ctx context.Context, update *UpdateFoundItem) (*FoundItem, error)

	// FindNearestFoundItems performs a k-NN search over found item embeddings.
	FindNearestFoundItems(ctx context.Context, opts *VectorSearchOptions) ([]*FoundItemDistance, error)

	// Match model related methods.
	ReplaceMatches(ctx context.Context, requestID string, matches []*Match) error
	ListMatches(ctx context.Context, find *FindMatch) ([]*Match, error)
	UpdateMatch(ctx context.Context, update *UpdateMatch) (*Match, error)
}
