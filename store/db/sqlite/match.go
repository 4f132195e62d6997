package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/campusfind/campusfind/store"
)

// ReplaceMatches replaces the request's match set inside one transaction.
func (d *DB) ReplaceMatches(ctx context.Context, requestID string, matches []*store.Match) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM item_match WHERE request_id = ?`, requestID); err != nil {
		return errors.Wrap(err, "failed to delete existing matches")
	}

	if len(matches) > 0 {
		now := time.Now().Unix()
		stmt := `
			INSERT INTO item_match (id, request_id, found_item_id, distance, confidence, rank, status, created_ts, updated_ts)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		for _, match := range matches {
			if match.CreatedTs == 0 {
				match.CreatedTs = now
			}
			match.UpdatedTs = match.CreatedTs
			if match.Status == "" {
				match.Status = store.MatchStatusPending
			}
			if _, err := tx.ExecContext(ctx, stmt,
				match.ID,
				requestID,
				match.FoundItemID,
				match.Distance,
				match.Confidence,
				match.Rank,
				match.Status,
				match.CreatedTs,
				match.UpdatedTs,
			); err != nil {
				return errors.Wrap(err, "failed to insert match")
			}
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit match replacement")
}

// ListMatches lists matches ordered by stored rank ascending.
func (d *DB) ListMatches(ctx context.Context, find *store.FindMatch) ([]*store.Match, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.RequestID != nil {
		where, args = append(where, "request_id = ?"), append(args, *find.RequestID)
	}
	if find.FoundItemID != nil {
		where, args = append(where, "found_item_id = ?"), append(args, *find.FoundItemID)
	}
	if find.Status != nil {
		where, args = append(where, "status = ?"), append(args, *find.Status)
	}

	query := `
		SELECT id, request_id, found_item_id, distance, confidence, rank, status, created_ts, updated_ts
		FROM item_match
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY rank ASC
	`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list matches")
	}
	defer rows.Close()

	list := []*store.Match{}
	for rows.Next() {
		var match store.Match
		if err := rows.Scan(
			&match.ID,
			&match.RequestID,
			&match.FoundItemID,
			&match.Distance,
			&match.Confidence,
			&match.Rank,
			&match.Status,
			&match.CreatedTs,
			&match.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan match")
		}
		list = append(list, &match)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateMatch updates a match's review status.
func (d *DB) UpdateMatch(ctx context.Context, update *store.UpdateMatch) (*store.Match, error) {
	set, args := []string{}, []any{}

	if update.Status != nil {
		set, args = append(set, "status = ?"), append(args, *update.Status)
	}
	updatedTs := time.Now().Unix()
	if update.UpdatedTs != nil {
		updatedTs = *update.UpdatedTs
	}
	set, args = append(set, "updated_ts = ?"), append(args, updatedTs)

	args = append(args, update.ID)
	stmt := `UPDATE item_match SET ` + strings.Join(set, ", ") + ` WHERE id = ?`
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update match")
	}
	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		return nil, errors.Errorf("match %s not found", update.ID)
	}

	list, err := d.ListMatches(ctx, &store.FindMatch{ID: &update.ID})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.Errorf("match %s not found after update", update.ID)
	}
	return list[0], nil
}
