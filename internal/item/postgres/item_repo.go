// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stockroom Contributors

// Package postgres implements the item repository using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/stockroom/stockroom/internal/item"
	"github.com/stockroom/stockroom/internal/store"
)

// ItemRepository implements item.Repository using PostgreSQL.
type ItemRepository struct {
	pool store.Querier
}

// NewItemRepository creates a new ItemRepository.
func NewItemRepository(pool store.Querier) *ItemRepository {
	return &ItemRepository{pool: pool}
}

// Create stores a new item.
func (r *ItemRepository) Create(ctx context.Context, itm *item.Item) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO items (
			id, title, description, price, owner_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		itm.ID.String(),
		itm.Title,
		itm.Description,
		itm.Price,
		itm.OwnerID.String(),
		itm.CreatedAt,
		itm.UpdatedAt,
	)
	if err != nil {
		return oops.Code("ITEM_CREATE_FAILED").
			With("operation", "insert item").
			With("id", itm.ID.String()).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves an item by ID.
func (r *ItemRepository) GetByID(ctx context.Context, id ulid.ULID) (*item.Item, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, title, description, price, owner_id, created_at, updated_at
		FROM items
		WHERE id = $1
	`, id.String())

	itm, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ITEM_NOT_FOUND").
			With("id", id.String()).
			Wrap(item.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ITEM_GET_BY_ID_FAILED").
			With("operation", "get item by id").
			With("id", id.String()).
			Wrap(err)
	}
	return itm, nil
}

// List returns items ordered by id within the window.
func (r *ItemRepository) List(ctx context.Context, limit, offset int) ([]*item.Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, description, price, owner_id, created_at, updated_at
		FROM items
		ORDER BY id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, oops.Code("ITEM_LIST_FAILED").
			With("operation", "list items").
			Wrap(err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// Count returns the total number of items.
func (r *ItemRepository) Count(ctx context.Context) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM items`).Scan(&total)
	if err != nil {
		return 0, oops.Code("ITEM_COUNT_FAILED").
			With("operation", "count items").
			Wrap(err)
	}
	return total, nil
}

// ListByOwner returns the owner's items ordered by id within the window.
func (r *ItemRepository) ListByOwner(ctx context.Context, ownerID ulid.ULID, limit, offset int) ([]*item.Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, description, price, owner_id, created_at, updated_at
		FROM items
		WHERE owner_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3
	`, ownerID.String(), limit, offset)
	if err != nil {
		return nil, oops.Code("ITEM_LIST_BY_OWNER_FAILED").
			With("operation", "list items by owner").
			With("owner_id", ownerID.String()).
			Wrap(err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// CountByOwner returns the total number of items owned by ownerID.
func (r *ItemRepository) CountByOwner(ctx context.Context, ownerID ulid.ULID) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM items WHERE owner_id = $1
	`, ownerID.String()).Scan(&total)
	if err != nil {
		return 0, oops.Code("ITEM_COUNT_BY_OWNER_FAILED").
			With("operation", "count items by owner").
			With("owner_id", ownerID.String()).
			Wrap(err)
	}
	return total, nil
}

// Update rewrites an existing item.
func (r *ItemRepository) Update(ctx context.Context, itm *item.Item) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE items SET
			title = $2,
			description = $3,
			price = $4,
			updated_at = $5
		WHERE id = $1
	`,
		itm.ID.String(),
		itm.Title,
		itm.Description,
		itm.Price,
		itm.UpdatedAt,
	)
	if err != nil {
		return oops.Code("ITEM_UPDATE_FAILED").
			With("operation", "update item").
			With("id", itm.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ITEM_NOT_FOUND").
			With("id", itm.ID.String()).
			Wrap(item.ErrNotFound)
	}
	return nil
}

// Delete removes an item.
func (r *ItemRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM items WHERE id = $1
	`, id.String())
	if err != nil {
		return oops.Code("ITEM_DELETE_FAILED").
			With("operation", "delete item").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ITEM_NOT_FOUND").
			With("id", id.String()).
			Wrap(item.ErrNotFound)
	}
	return nil
}

// collectItems drains rows into a slice.
func collectItems(rows pgx.Rows) ([]*item.Item, error) {
	var items []*item.Item
	for rows.Next() {
		itm, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, itm)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ITEM_SCAN_FAILED").
			With("operation", "iterate items").
			Wrap(err)
	}
	return items, nil
}

// scanItem scans a single row into an Item.
// Callers are responsible for handling pgx.ErrNoRows.
func scanItem(row pgx.Row) (*item.Item, error) {
	var (
		idStr       string
		title       string
		description *string
		price       int64
		ownerIDStr  string
		createdAt   time.Time
		updatedAt   time.Time
	)

	err := row.Scan(
		&idStr,
		&title,
		&description,
		&price,
		&ownerIDStr,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("ITEM_SCAN_FAILED").
			With("operation", "scan item").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ITEM_INVALID_ID").
			With("operation", "parse item id").
			With("id", idStr).
			Wrap(err)
	}

	ownerID, err := ulid.Parse(ownerIDStr)
	if err != nil {
		return nil, oops.Code("ITEM_INVALID_OWNER_ID").
			With("operation", "parse owner id").
			With("owner_id", ownerIDStr).
			Wrap(err)
	}

	return &item.Item{
		ID:          id,
		Title:       title,
		Description: description,
		Price:       price,
		OwnerID:     ownerID,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// Compile-time interface check.
var _ item.Repository = (*ItemRepository)(nil)
