// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stockroom Contributors

package item

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/stockroom/stockroom/internal/auth"
)

// NewItemInput carries the fields of an item creation request.
type NewItemInput struct {
	Title       string
	Description *string
	Price       int64
}

// UpdateItemInput carries a partial update; nil fields are left unchanged.
type UpdateItemInput struct {
	Title       *string
	Description *string
	Price       *int64
}

// Service coordinates item operations. Mutation and deletion go through
// the guard's ownership check; reads do not.
type Service struct {
	items Repository
	guard *auth.Guard
}

// NewService creates a Service.
func NewService(items Repository, guard *auth.Guard) *Service {
	return &Service{
		items: items,
		guard: guard,
	}
}

// Create stores a new item owned by owner.
func (s *Service) Create(ctx context.Context, owner *auth.User, in NewItemInput) (*Item, error) {
	if owner == nil {
		return nil, oops.Code("AUTH_UNAUTHORIZED").Errorf("no authenticated identity")
	}

	itm, err := NewItem(in.Title, in.Description, in.Price, owner.ID)
	if err != nil {
		return nil, err
	}

	if err := s.items.Create(ctx, itm); err != nil {
		return nil, err
	}
	return itm, nil
}

// Get returns an item by id. Reads are not ownership-gated.
func (s *Service) Get(ctx context.Context, id ulid.ULID) (*Item, error) {
	return s.items.GetByID(ctx, id)
}

// List returns one page of all items with the total count.
func (s *Service) List(ctx context.Context, page Page) (*List, error) {
	page = page.Normalize()

	total, err := s.items.Count(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.items.List(ctx, page.Size, page.Offset())
	if err != nil {
		return nil, err
	}

	return &List{Items: items, Total: total, Page: page.Number, Size: page.Size}, nil
}

// ListOwned returns one page of the owner's items with the total count.
func (s *Service) ListOwned(ctx context.Context, owner *auth.User, page Page) (*List, error) {
	if owner == nil {
		return nil, oops.Code("AUTH_UNAUTHORIZED").Errorf("no authenticated identity")
	}
	page = page.Normalize()

	total, err := s.items.CountByOwner(ctx, owner.ID)
	if err != nil {
		return nil, err
	}

	items, err := s.items.ListByOwner(ctx, owner.ID, page.Size, page.Offset())
	if err != nil {
		return nil, err
	}

	return &List{Items: items, Total: total, Page: page.Number, Size: page.Size}, nil
}

// Update applies a partial update to an item after the ownership check.
// An unknown id reports ITEM_NOT_FOUND before any ownership verdict;
// absence is never masked as a permission failure.
func (s *Service) Update(ctx context.Context, actor *auth.User, id ulid.ULID, in UpdateItemInput) (*Item, error) {
	itm, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.guard.AuthorizeOwner(actor, itm.OwnerID); err != nil {
		return nil, err
	}

	if in.Title != nil {
		itm.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		itm.Description = in.Description
	}
	if in.Price != nil {
		itm.Price = *in.Price
	}

	if err := ValidateTitle(itm.Title); err != nil {
		return nil, err
	}
	if err := ValidatePrice(itm.Price); err != nil {
		return nil, err
	}

	itm.UpdatedAt = time.Now().UTC()

	if err := s.items.Update(ctx, itm); err != nil {
		return nil, err
	}
	return itm, nil
}

// Delete removes an item after the ownership check.
func (s *Service) Delete(ctx context.Context, actor *auth.User, id ulid.ULID) error {
	itm, err := s.items.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.guard.AuthorizeOwner(actor, itm.OwnerID); err != nil {
		return err
	}

	return s.items.Delete(ctx, itm.ID)
}
