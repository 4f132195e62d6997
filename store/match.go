package store

import (
	"context"
)

// MatchStatus is the staff review status of a match.
type MatchStatus string

const (
	MatchStatusPending  MatchStatus = "PENDING"
	MatchStatusAccepted MatchStatus = "ACCEPTED"
	MatchStatusRejected MatchStatus = "REJECTED"
)

func (s MatchStatus) String() string {
	return string(s)
}

// Match pairs a lost-item request with a found-item candidate. A match belongs
// to exactly one request; the request's match set is always the output of the
// most recently completed matching pass, replaced wholesale.
type Match struct {
	ID          string
	RequestID   string
	FoundItemID string

	// Distance is the raw cosine distance between the two vectors, in [0, 2].
	Distance float64
	// Confidence is derived from distance, in [0, 1], 1.0 at distance 0.
	Confidence float64
	// Rank is the 0-based position in the confidence-descending result list at
	// the time of computation.
	Rank int32

	Status    MatchStatus
	CreatedTs int64
	UpdatedTs int64
}

// FindMatch is the find condition for matches.
type FindMatch struct {
	ID          *string
	RequestID   *string
	FoundItemID *string
	Status      *MatchStatus
}

// UpdateMatch is the update descriptor for matches. Only the review status is
// mutable after creation.
type UpdateMatch struct {
	ID        string
	Status    *MatchStatus
	UpdatedTs *int64
}

// ReplaceMatches atomically replaces the request's match set: every existing
// match belonging to the request is deleted, then the given set is inserted,
// inside one transaction. An empty set clears the stored matches.
func (s *Store) ReplaceMatches(ctx context.Context, requestID string, matches []*Match) error {
	return s.driver.ReplaceMatches(ctx, requestID, matches)
}

// ListMatches lists matches ordered by stored rank ascending.
func (s *Store) ListMatches(ctx context.Context, find *FindMatch) ([]*Match, error) {
	return s.driver.ListMatches(ctx, find)
}

// GetMatch returns the first match matching the find condition, or nil.
func (s *Store) GetMatch(ctx context.Context, find *FindMatch) (*Match, error) {
	list, err := s.driver.ListMatches(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateMatch(ctx context.Context, update *UpdateMatch) (*Match, error) {
	return s.driver.UpdateMatch(ctx, update)
}
