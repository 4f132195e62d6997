package store

import (
	"context"
)

// RequestStatus is the workflow status of a lost-item request.
type RequestStatus string

const (
	RequestStatusSubmitted RequestStatus = "SUBMITTED"
	RequestStatusApproved  RequestStatus = "APPROVED"
	RequestStatusRejected  RequestStatus = "REJECTED"
	RequestStatusMatched   RequestStatus = "MATCHED"
	RequestStatusClaimed   RequestStatus = "CLAIMED"
)

func (s RequestStatus) String() string {
	return string(s)
}

// LostRequest represents a user's lost-item request.
type LostRequest struct {
	ID      string
	OwnerID string

	// Description is the free-form text used as the sole embedding input.
	// It may be empty for image-only submissions; such requests are not
	// matchable until a description exists.
	Description string
	Category    string
	Campus      string
	// Attributes is the dynamic per-item attribute bag (brand, color, ...).
	Attributes map[string]string
	Images     []string
	Status     RequestStatus

	// Embedding is the stored description vector. Empty until first computed;
	// once present it is treated as an immutable cache for the current
	// description.
	Embedding []float32

	CreatedTs int64
	UpdatedTs int64
}

// HasEmbedding reports whether a vector has been computed and stored.
func (r *LostRequest) HasEmbedding() bool {
	return len(r.Embedding) > 0
}

// FindLostRequest is the find condition for lost-item requests.
type FindLostRequest struct {
	ID      *string
	OwnerID *string
	Status  *RequestStatus

	// ExcludeEmbedding skips loading the stored vectors, for listings that
	// don't need them.
	ExcludeEmbedding bool
	Limit            *int
}

// UpdateLostRequest is the update descriptor for lost-item requests. Nil
// fields are left untouched.
type UpdateLostRequest struct {
	ID        string
	Status    *RequestStatus
	Embedding []float32
	UpdatedTs *int64
}

// DeleteLostRequest is the delete descriptor for lost-item requests. Match
// child records are removed by cascade.
type DeleteLostRequest struct {
	ID string
}

func (s *Store) CreateLostRequest(ctx context.Context, create *LostRequest) (*LostRequest, error) {
	return s.driver.CreateLostRequest(ctx, create)
}

func (s *Store) ListLostRequests(ctx context.Context, find *FindLostRequest) ([]*LostRequest, error) {
	return s.driver.ListLostRequests(ctx, find)
}

// GetLostRequest returns the request with the given id, or nil.
func (s *Store) GetLostRequest(ctx context.Context, id string) (*LostRequest, error) {
	list, err := s.driver.ListLostRequests(ctx, &FindLostRequest{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateLostRequest(ctx context.Context, update *UpdateLostRequest) (*LostRequest, error) {
	return s.driver.UpdateLostRequest(ctx, update)
}

func (s *Store) DeleteLostRequest(ctx context.Context, delete *DeleteLostRequest) error {
	return s.driver.DeleteLostRequest(ctx, delete)
}
