package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/campusfind/campusfind/store"
)

// CreateUser creates a new user.
func (d *DB) CreateUser(ctx context.Context, create *store.User) (*store.User, error) {
	now := time.Now().Unix()
	if create.CreatedTs == 0 {
		create.CreatedTs = now
	}
	create.UpdatedTs = create.CreatedTs
	if create.Role == "" {
		create.Role = store.RoleUser
	}

	stmt := `
		INSERT INTO "user" (id, email, nickname, role, token_hash, created_ts, updated_ts)
		VALUES (` + placeholders(7) + `)
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.Email,
		create.Nickname,
		create.Role,
		create.TokenHash,
		create.CreatedTs,
		create.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}
	return create, nil
}

// ListUsers lists users matching the find condition.
func (d *DB) ListUsers(ctx context.Context, find *store.FindUser) ([]*store.User, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.Email != nil {
		where, args = append(where, "email = "+placeholder(len(args)+1)), append(args, *find.Email)
	}
	if find.TokenHash != nil {
		where, args = append(where, "token_hash = "+placeholder(len(args)+1)), append(args, *find.TokenHash)
	}
	if find.Role != nil {
		where, args = append(where, "role = "+placeholder(len(args)+1)), append(args, *find.Role)
	}

	query := `
		SELECT id, email, nickname, role, token_hash, created_ts, updated_ts
		FROM "user"
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}
	defer rows.Close()

	list := []*store.User{}
	for rows.Next() {
		var user store.User
		if err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.Nickname,
			&user.Role,
			&user.TokenHash,
			&user.CreatedTs,
			&user.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan user")
		}
		list = append(list, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
