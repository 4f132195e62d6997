package store

import (
	"context"

	"github.com/pkg/errors"
)

// FoundItemStatus is the workflow status of a found-item inventory entry.
type FoundItemStatus string

const (
	FoundItemStatusFound    FoundItemStatus = "FOUND"
	FoundItemStatusMatched  FoundItemStatus = "MATCHED"
	FoundItemStatusClaimed  FoundItemStatus = "CLAIMED"
	FoundItemStatusArchived FoundItemStatus = "ARCHIVED"
)

func (s FoundItemStatus) String() string {
	return string(s)
}

// FoundItem represents a staff-logged found-item inventory entry.
type FoundItem struct {
	ID        string
	HandlerID string

	Description string
	Category    string
	Campus      string
	Attributes  map[string]string
	Images      []string
	Status      FoundItemStatus

	// Embedding is the stored description vector, see LostRequest.Embedding.
	Embedding []float32

	CreatedTs int64
	UpdatedTs int64
}

// HasEmbedding reports whether a vector has been computed and stored.
func (f *FoundItem) HasEmbedding() bool {
	return len(f.Embedding) > 0
}

// FindFoundItem is the find condition for found items.
type FindFoundItem struct {
	ID        *string
	HandlerID *string
	Status    *FoundItemStatus
	Category  *string
	Campus    *string

	ExcludeEmbedding bool
	Limit            *int
}

// UpdateFoundItem is the update descriptor for found items. Nil fields are
// left untouched.
type UpdateFoundItem struct {
	ID        string
	Status    *FoundItemStatus
	Embedding []float32
	UpdatedTs *int64
}

// ErrVectorIndexMissing is returned by FindNearestFoundItems when the backing
// store has no queryable vector index configured. This is a provisioning
// defect, distinct from transient query failures.
var ErrVectorIndexMissing = errors.New("vector index missing on found item collection")

// VectorSearchOptions represents the options for found-item k-NN search.
type VectorSearchOptions struct {
	Vector []float32
	Limit  int

	// Equality prefilters applied to the candidate pool before vector search.
	Category *string
	Campus   *string
}

// Validate validates the VectorSearchOptions.
func (o *VectorSearchOptions) Validate() error {
	if len(o.Vector) == 0 {
		return errors.New("vector cannot be empty")
	}
	if o.Limit <= 0 {
		return errors.Errorf("limit must be positive: %d", o.Limit)
	}
	if o.Limit > 1000 {
		return errors.Errorf("limit too large (max 1000): %d", o.Limit)
	}
	return nil
}

// FoundItemDistance is a k-NN search result: a candidate id with its raw
// cosine distance, ordered nearest first.
type FoundItemDistance struct {
	FoundItemID string
	Distance    float64
}

func (s *Store) CreateFoundItem(ctx context.Context, create *FoundItem) (*FoundItem, error) {
	return s.driver.CreateFoundItem(ctx, create)
}

func (s *Store) ListFoundItems(ctx context.Context, find *FindFoundItem) ([]*FoundItem, error) {
	return s.driver.ListFoundItems(ctx, find)
}

// GetFoundItem returns the found item with the given id, or nil.
func (s *Store) GetFoundItem(ctx context.Context, id string) (*FoundItem, error) {
	list, err := s.driver.ListFoundItems(ctx, &FindFoundItem{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateFoundItem(ctx context.Context, update *UpdateFoundItem) (*FoundItem, error) {
	return s.driver.UpdateFoundItem(ctx, update)
}

// FindNearestFoundItems performs a k-NN search over found-item embeddings
// using cosine distance.
func (s *Store) FindNearestFoundItems(ctx context.Context, opts *VectorSearchOptions) ([]*FoundItemDistance, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return s.driver.FindNearestFoundItems(ctx, opts)
}
