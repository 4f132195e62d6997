package store

import (
	"context"
)

// Role is the type of a user role.
type Role string

const (
	// RoleUser is the USER role.
	RoleUser Role = "USER"
	// RoleAdmin is the ADMIN role. Admins handle found-item inventory and
	// review matches.
	RoleAdmin Role = "ADMIN"
)

func (r Role) String() string {
	return string(r)
}

// User represents a platform account.
type User struct {
	ID        string
	Email     string
	Nickname  string
	Role      Role
	// TokenHash is the SHA-256 hash of the user's access token. The raw token
	// is never stored.
	TokenHash string
	CreatedTs int64
	UpdatedTs int64
}

// FindUser is the find condition for users.
type FindUser struct {
	ID        *string
	Email     *string
	TokenHash *string
	Role      *Role
}

func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	return s.driver.CreateUser(ctx, create)
}

func (s *Store) ListUsers(ctx context.Context, find *FindUser) ([]*User, error) {
	return s.driver.ListUsers(ctx, find)
}

// GetUser returns the first user matching the find condition, or nil.
func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	list, err := s.driver.ListUsers(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}
