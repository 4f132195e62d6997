package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/campusfind/campusfind/store"
)

// CreateFoundItem creates a new found-item inventory entry.
func (d *DB) CreateFoundItem(ctx context.Context, create *store.FoundItem) (*store.FoundItem, error) {
	now := time.Now().Unix()
	if create.CreatedTs == 0 {
		create.CreatedTs = now
	}
	create.UpdatedTs = create.CreatedTs
	if create.Status == "" {
		create.Status = store.FoundItemStatusFound
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
		INSERT INTO found_item (id, handler_id, description, category, campus, attributes, images, status, embedding, created_ts, updated_ts)
		VALUES (` + placeholders(11) + `)
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.HandlerID,
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
		return nil, errors.Wrap(err, "failed to create found item")
	}
	return create, nil
}

// ListFoundItems lists found items matching the find condition.
func (d *DB) ListFoundItems(ctx context.Context, find *store.FindFoundItem) ([]*store.FoundItem, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.HandlerID != nil {
		where, args = append(where, "handler_id = "+placeholder(len(args)+1)), append(args, *find.HandlerID)
	}
	if find.Status != nil {
		where, args = append(where, "status = "+placeholder(len(args)+1)), append(args, *find.Status)
	}
	if find.Category != nil {
		where, args = append(where, "category = "+placeholder(len(args)+1)), append(args, *find.Category)
	}
	if find.Campus != nil {
		where, args = append(where, "campus = "+placeholder(len(args)+1)), append(args, *find.Campus)
	}

	embeddingField := "embedding"
	if find.ExcludeEmbedding {
		embeddingField = "NULL AS embedding"
	}

	query := `
		SELECT id, handler_id, description, category, campus, attributes, images, status, ` + embeddingField + `, created_ts, updated_ts
		FROM found_item
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit != nil {
		args = append(args, *find.Limit)
		query += " LIMIT " + placeholder(len(args))
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list found items")
	}
	defer rows.Close()

	list := []*store.FoundItem{}
	for rows.Next() {
		item, err := scanFoundItem(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateFoundItem updates a found item.
func (d *DB) UpdateFoundItem(ctx context.Context, update *store.UpdateFoundItem) (*store.FoundItem, error) {
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
	stmt := `UPDATE found_item SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update found item")
	}
	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		return nil, errors.Errorf("found item %s not found", update.ID)
	}

	list, err := d.ListFoundItems(ctx, &store.FindFoundItem{ID: &update.ID})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.Errorf("found item %s not found after update", update.ID)
	}
	return list[0], nil
}

// FindNearestFoundItems performs a cosine k-NN search using pgvector.
//
// The <=> operator computes cosine distance (0 = identical direction,
// 2 = opposite), so ordering by it ascending yields nearest first. Candidates
// without a stored embedding are not in the index and never returned.
func (d *DB) FindNearestFoundItems(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.FoundItemDistance, error) {
	where, args := []string{"embedding IS NOT NULL"}, []any{}

	if opts.Category != nil {
		where, args = append(where, "category = "+placeholder(len(args)+1)), append(args, *opts.Category)
	}
	if opts.Campus != nil {
		where, args = append(where, "campus = "+placeholder(len(args)+1)), append(args, *opts.Campus)
	}

	vector := pgvector.NewVector(opts.Vector)
	args = append(args, vector)
	distanceExpr := "embedding <=> " + placeholder(len(args))

	query := `
		SELECT id, ` + distanceExpr + ` AS distance
		FROM found_item
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY ` + distanceExpr + `
		LIMIT ` + placeholder(len(args)+1)
	args = append(args, opts.Limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		if isVectorIndexMissing(err) {
			return nil, store.ErrVectorIndexMissing
		}
		return nil, errors.Wrap(err, "failed to search found items")
	}
	defer rows.Close()

	results := []*store.FoundItemDistance{}
	for rows.Next() {
		var result store.FoundItemDistance
		if err := rows.Scan(&result.FoundItemID, &result.Distance); err != nil {
			return nil, errors.Wrap(err, "failed to scan found item distance")
		}
		results = append(results, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// isVectorIndexMissing reports whether the query failure is caused by the
// pgvector extension (and with it the vector type and <=> operator) not being
// provisioned, as opposed to a transient failure.
func isVectorIndexMissing(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "42704", // undefined_object: type "vector" does not exist
		"42883", // undefined_function: operator <=> does not exist
		"42P01", // undefined_table
		"42703": // undefined_column: embedding column missing
		return true
	}
	return false
}

func scanFoundItem(rows *sql.Rows) (*store.FoundItem, error) {
	var item store.FoundItem
	var attributes, images string
	var vector sql.Null[pgvector.Vector]
	if err := rows.Scan(
		&item.ID,
		&item.HandlerID,
		&item.Description,
		&item.Category,
		&item.Campus,
		&attributes,
		&images,
		&item.Status,
		&vector,
		&item.CreatedTs,
		&item.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan found item")
	}

	var err error
	if item.Attributes, err = unmarshalStringMap(attributes); err != nil {
		return nil, err
	}
	if item.Images, err = unmarshalStringList(images); err != nil {
		return nil, err
	}
	if vector.Valid {
		item.Embedding = vector.V.Slice()
	}
	return &item, nil
}
