package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/campusfind/campusfind/store"
)

// CreateLostRequest creates a new lost-item request.
func (d *DB) CreateLostRequest(ctx context.Context, create *store.LostRequest) (*store.LostRequest, error) {
	now := time.Now().Unix()
	if create.CreatedTs == 0 {
		create.CreatedTs = now
	}
	create.UpdatedTs = create.CreatedTs
	if create.Status == "" {
		create.Status = store.RequestStatusSubmitted
	}

	attributes, err := marshalStringMap(create.Attributes)
	if err != nil {
		return nil, err
	}
	images, err := marshalStringList(create.Images)
	if err != nil {
		return nil, err
	}

	var embedding any
	if create.HasEmbedding() {
		embedding = pgvector.NewVector(create.Embedding)
	}

	stmt := `
		INSERT INTO lost_request (id, owner_id, description, category, campus, attributes, images, status, embedding, created_ts, updated_ts)
		VALUES (` + placeholders(11) + `)
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.OwnerID,
		create.Description,
		create.Category,
		create.Campus,
		attributes,
		images,
		create.Status,
		embedding,
		create.CreatedTs,
		create.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create lost request")
	}
	return create, nil
}

// ListLostRequests lists lost-item requests matching the find condition.
func (d *DB) ListLostRequests(ctx context.Context, find *store.FindLostRequest) ([]*store.LostRequest, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.OwnerID != nil {
		where, args = append(where, "owner_id = "+placeholder(len(args)+1)), append(args, *find.OwnerID)
	}
	if find.Status != nil {
		where, args = append(where, "status = "+placeholder(len(args)+1)), append(args, *find.Status)
	}

	embeddingField := "embedding"
	if find.ExcludeEmbedding {
		embeddingField = "NULL AS embedding"
	}

	query := `
		SELECT id, owner_id, description, category, campus, attributes, images, status, ` + embeddingField + `, created_ts, updated_ts
		FROM lost_request
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit != nil {
		args = append(args, *find.Limit)
		query += " LIMIT " + placeholder(len(args))
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list lost requests")
	}
	defer rows.Close()

	list := []*store.LostRequest{}
	for rows.Next() {
		request, err := scanLostRequest(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, request)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateLostRequest updates a lost-item request.
func (d *DB) UpdateLostRequest(ctx context.Context, update *store.UpdateLostRequest) (*store.LostRequest, error) {
	set, args := []string{}, []any{}

	if update.Status != nil {
		set, args = append(set, "status = "+placeholder(len(args)+1)), append(args, *update.Status)
	}
	if len(update.Embedding) > 0 {
		set, args = append(set, "embedding = "+placeholder(len(args)+1)), append(args, pgvector.NewVector(update.Embedding))
	}
	updatedTs := time.Now().Unix()
	if update.UpdatedTs != nil {
		updatedTs = *update.UpdatedTs
	}
	set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, updatedTs)

	args = append(args, update.ID)
	stmt := `UPDATE lost_request SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update lost request")
	}
	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		return nil, errors.Errorf("lost request %s not found", update.ID)
	}

	list, err := d.ListLostRequests(ctx, &store.FindLostRequest{ID: &update.ID})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.Errorf("lost request %s not found after update", update.ID)
	}
	return list[0], nil
}

// DeleteLostRequest deletes a lost-item request. Matches cascade.
func (d *DB) DeleteLostRequest(ctx context.Context, delete *store.DeleteLostRequest) error {
	stmt := `DELETE FROM lost_request WHERE id = ` + placeholder(1)
	if _, err := d.db.ExecContext(ctx, stmt, delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete lost request")
	}
	return nil
}

func scanLostRequest(rows *sql.Rows) (*store.LostRequest, error) {
	var request store.LostRequest
	var attributes, images string
	var vector sql.Null[pgvector.Vector]
	if err := rows.Scan(
		&request.ID,
		&request.OwnerID,
		&request.Description,
		&request.Category,
		&request.Campus,
		&attributes,
		&images,
		&request.Status,
		&vector,
		&request.CreatedTs,
		&request.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan lost request")
	}

	var err error
	if request.Attributes, err = unmarshalStringMap(attributes); err != nil {
		return nil, err
	}
	if request.Images, err = unmarshalStringList(images); err != nil {
		return nil, err
	}
	if vector.Valid {
		request.Embedding = vector.V.Slice()
	}
	return &request, nil
}
