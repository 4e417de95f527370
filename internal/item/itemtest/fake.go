// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stockroom Contributors

// Package itemtest provides test helpers for the item package.
package itemtest

import (
	"context"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/stockroom/stockroom/internal/item"
)

// MemoryItemRepository is an item.Repository backed by an in-memory map.
// Listings are ordered by ID, matching the PostgreSQL repository.
type MemoryItemRepository struct {
	mu    sync.Mutex
	items map[ulid.ULID]*item.Item

	// Error overrides for failure-path tests.
	CreateErr error
	GetErr    error
	ListErr   error
	UpdateErr error
	DeleteErr error
}

// NewMemoryItemRepository creates an empty MemoryItemRepository.
func NewMemoryItemRepository() *MemoryItemRepository {
	return &MemoryItemRepository{items: make(map[ulid.ULID]*item.Item)}
}

// Add seeds an item.
func (m *MemoryItemRepository) Add(itm *item.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := *itm
	m.items[i.ID] = &i
}

// Create stores a new item.
func (m *MemoryItemRepository) Create(_ context.Context, itm *item.Item) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := *itm
	m.items[i.ID] = &i

	return nil
}

// GetByID returns the item with the given ID.
func (m *MemoryItemRepository) GetByID(_ context.Context, id ulid.ULID) (*item.Item, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	itm, ok := m.items[id]
	if !ok {
		return nil, oops.Code("ITEM_NOT_FOUND").
			With("item_id", id.String()).
			Wrap(item.ErrNotFound)
	}

	i := *itm

	return &i, nil
}

// List returns items ordered by ID, honoring limit and offset.
func (m *MemoryItemRepository) List(_ context.Context, limit, offset int) ([]*item.Item, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	return m.listWhere(func(*item.Item) bool { return true }, limit, offset), nil
}

// Count returns the total number of items.
func (m *MemoryItemRepository) Count(_ context.Context) (int, error) {
	if m.ListErr != nil {
		return 0, m.ListErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.items), nil
}

// ListByOwner returns the owner's items ordered by ID.
func (m *MemoryItemRepository) ListByOwner(_ context.Context, ownerID ulid.ULID, limit, offset int) ([]*item.Item, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	return m.listWhere(func(i *item.Item) bool { return i.OwnerID == ownerID }, limit, offset), nil
}

// CountByOwner returns the number of items owned by ownerID.
func (m *MemoryItemRepository) CountByOwner(_ context.Context, ownerID ulid.ULID) (int, error) {
	if m.ListErr != nil {
		return 0, m.ListErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, itm := range m.items {
		if itm.OwnerID == ownerID {
			n++
		}
	}

	return n, nil
}

// Update replaces a stored item.
func (m *MemoryItemRepository) Update(_ context.Context, itm *item.Item) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[itm.ID]; !ok {
		return oops.Code("ITEM_NOT_FOUND").
			With("item_id", itm.ID.String()).
			Wrap(item.ErrNotFound)
	}

	i := *itm
	m.items[i.ID] = &i

	return nil
}

// Delete removes a stored item.
func (m *MemoryItemRepository) Delete(_ context.Context, id ulid.ULID) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; !ok {
		return oops.Code("ITEM_NOT_FOUND").
			With("item_id", id.String()).
			Wrap(item.ErrNotFound)
	}

	delete(m.items, id)

	return nil
}

func (m *MemoryItemRepository) listWhere(keep func(*item.Item) bool, limit, offset int) []*item.Item {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]*item.Item, 0, len(m.items))
	for _, itm := range m.items {
		if keep(itm) {
			i := *itm
			all = append(all, &i)
		}
	}
	sort.Slice(all, func(a, b int) bool { return all[a].ID.Compare(all[b].ID) < 0 })

	if offset >= len(all) {
		return []*item.Item{}
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}

	return all
}

// Verify interfaces are satisfied.
var _ item.Repository = (*MemoryItemRepository)(nil)
