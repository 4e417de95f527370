// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stockroom Contributors

// Package item provides the ownership-scoped item resource: the domain
// model, its validation rules, and the service that enforces the
// owner-only mutation policy.
package item

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Title validation constraints.
const (
	MinTitleLength = 1
	MaxTitleLength = 255
)

// Pagination bounds.
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// ErrNotFound is returned when a requested item does not exist.
var ErrNotFound = errors.New("not found")

// Item is a resource owned by exactly one user. Only the owner may
// mutate or delete it; reads are not ownership-gated.
type Item struct {
	ID          ulid.ULID
	Title       string
	Description *string
	Price       int64 // minor currency units, always positive
	OwnerID     ulid.ULID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewItem creates an Item with a validated title and price, owned by
// ownerID.
func NewItem(title string, description *string, price int64, ownerID ulid.ULID) (*Item, error) {
	title = strings.TrimSpace(title)

	if err := ValidateTitle(title); err != nil {
		return nil, err
	}
	if err := ValidatePrice(price); err != nil {
		return nil, err
	}
	if ownerID == (ulid.ULID{}) {
		return nil, oops.Code("ITEM_INVALID_OWNER").Errorf("owner id cannot be empty")
	}

	now := time.Now().UTC()
	return &Item{
		ID:          ulid.Make(),
		Title:       title,
		Description: description,
		Price:       price,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ValidateTitle validates an item title.
func ValidateTitle(title string) error {
	if len(title) < MinTitleLength {
		return oops.Code("ITEM_INVALID_TITLE").Errorf("title cannot be empty")
	}
	if len(title) > MaxTitleLength {
		return oops.Code("ITEM_INVALID_TITLE").
			With("max", MaxTitleLength).
			Errorf("title must be at most %d characters", MaxTitleLength)
	}
	return nil
}

// ValidatePrice validates an item price.
func ValidatePrice(price int64) error {
	if price <= 0 {
		return oops.Code("ITEM_INVALID_PRICE").
			With("price", price).
			Errorf("price must be positive")
	}
	return nil
}

// Page selects a window of a listing. The zero value normalizes to the
// first page with the default size.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps the page to valid bounds.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset returns the row offset of the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// List is one page of items together with the total count.
type List struct {
	Items []*Item
	Total int
	Page  int
	Size  int
}

// Pages returns the total number of pages.
func (l *List) Pages() int {
	if l.Size <= 0 {
		return 0
	}
	return (l.Total + l.Size - 1) / l.Size
}

// Repository manages item persistence.
type Repository interface {
	// Create stores a new item.
	Create(ctx context.Context, item *Item) error

	// GetByID retrieves an item by ID. Returns ErrNotFound (wrapped) if absent.
	GetByID(ctx context.Context, id ulid.ULID) (*Item, error)

	// List returns items ordered by id, newest last, within the window.
	List(ctx context.Context, limit, offset int) ([]*Item, error)

	// Count returns the total number of items.
	Count(ctx context.Context) (int, error)

	// ListByOwner returns the owner's items within the window.
	ListByOwner(ctx context.Context, ownerID ulid.ULID, limit, offset int) ([]*Item, error)

	// CountByOwner returns the total number of items owned by ownerID.
	CountByOwner(ctx context.Context, ownerID ulid.ULID) (int, error)

	// Update rewrites an existing item. Returns ErrNotFound (wrapped) if absent.
	Update(ctx context.Context, item *Item) error

	// Delete removes an item. Returns ErrNotFound (wrapped) if absent.
	Delete(ctx context.Context, id ulid.ULID) error
}
