package sqlite

import (
	"context"
	"database/sql"
	"log/slog"
	"sort"
	"strings"
	"time"

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

	var embedding []byte
	if create.HasEmbedding() {
		embedding = float32ArrayToBLOB(create.Embedding)
	}

	stmt := `
		INSERT INTO found_item (id, handler_id, description, category, campus, attributes, images, status, embedding, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.HandlerID != nil {
		where, args = append(where, "handler_id = ?"), append(args, *find.HandlerID)
	}
	if find.Status != nil {
		where, args = append(where, "status = ?"), append(args, *find.Status)
	}
	if find.Category != nil {
		where, args = append(where, "category = ?"), append(args, *find.Category)
	}
	if find.Campus != nil {
		where, args = append(where, "campus = ?"), append(args, *find.Campus)
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
		query += " LIMIT ?"
		args = append(args, *find.Limit)
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
		set, args = append(set, "status = ?"), append(args, *update.Status)
	}
	if len(update.Embedding) > 0 {
		set, args = append(set, "embedding = ?"), append(args, float32ArrayToBLOB(update.Embedding))
	}
	updatedTs := time.Now().Unix()
	if update.UpdatedTs != nil {
		updatedTs = *update.UpdatedTs
	}
	set, args = append(set, "updated_ts = ?"), append(args, updatedTs)

	args = append(args, update.ID)
	stmt := `UPDATE found_item SET ` + strings.Join(set, ", ") + ` WHERE id = ?`
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

// FindNearestFoundItems performs a cosine k-NN search in the application
// layer: candidates are loaded with their BLOB embeddings and the distance is
// computed in Go. Matches the distance range of the pgvector driver.
func (d *DB) FindNearestFoundItems(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.FoundItemDistance, error) {
	where, args := []string{"embedding IS NOT NULL"}, []any{}

	if opts.Category != nil {
		where, args = append(where, "category = ?"), append(args, *opts.Category)
	}
	if opts.Campus != nil {
		where, args = append(where, "campus = ?"), append(args, *opts.Campus)
	}

	query := `
		SELECT id, embedding
		FROM found_item
		WHERE ` + strings.Join(where, " AND ")

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load found item embeddings")
	}
	defer rows.Close()

	results := []*store.FoundItemDistance{}
	for rows.Next() {
		var id string
		var vectorBLOB []byte
		if err := rows.Scan(&id, &vectorBLOB); err != nil {
			return nil, errors.Wrap(err, "failed to scan found item embedding")
		}
		embedding, err := blobToFloat32Array(vectorBLOB)
		if err != nil {
			slog.Warn("skipping found item with malformed embedding", "found_item_id", id, "error", err)
			continue
		}
		results = append(results, &store.FoundItemDistance{
			FoundItemID: id,
			Distance:    cosineDistance(opts.Vector, embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

func scanFoundItem(rows *sql.Rows) (*store.FoundItem, error) {
	var item store.FoundItem
	var attributes, images string
	var vectorBLOB []byte
	if err := rows.Scan(
		&item.ID,
		&item.HandlerID,
		&item.Description,
		&item.Category,
		&item.Campus,
		&attributes,
		&images,
		&item.Status,
		&vectorBLOB,
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
	if len(vectorBLOB) > 0 {
		if item.Embedding, err = blobToFloat32Array(vectorBLOB); err != nil {
			return nil, err
		}
	}
	return &item, nil
}
