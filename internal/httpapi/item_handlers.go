// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stockroom Contributors

package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/stockroom/stockroom/internal/item"
	"github.com/stockroom/stockroom/pkg/errutil"
)

// itemResponse is the item envelope.
type itemResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Price       int64     `json:"price"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newItemResponse(i *item.Item) itemResponse {
	return itemResponse{
		ID:          i.ID.String(),
		Title:       i.Title,
		Description: i.Description,
		Price:       i.Price,
		OwnerID:     i.OwnerID.String(),
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
}

// listResponse is the paginated listing envelope.
type listResponse struct {
	Items []itemResponse `json:"items"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
	Pages int            `json:"pages"`
}

func newListResponse(l *item.List) listResponse {
	items := make([]itemResponse, 0, len(l.Items))
	for _, i := range l.Items {
		items = append(items, newItemResponse(i))
	}
	return listResponse{
		Items: items,
		Total: l.Total,
		Page:  l.Page,
		Size:  l.Size,
		Pages: l.Pages(),
	}
}

type createItemRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Price       int64   `json:"price"`
}

type updateItemRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Price       *int64  `json:"price"`
}

// pageFrom reads the page and size query parameters. Out-of-range values
// are clamped by the item service, not rejected.
func pageFrom(r *http.Request) item.Page {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	return item.Page{Number: page, Size: size}
}

// itemIDFrom parses the itemID path parameter. A string that is not a
// ULID cannot name any stored item, so it reports the same not-found
// kind as an absent row.
func itemIDFrom(r *http.Request) (ulid.ULID, error) {
	raw := chi.URLParam(r, "itemID")
	id, err := ulid.Parse(raw)
	if err != nil {
		return ulid.ULID{}, oops.Code("ITEM_NOT_FOUND").
			With("item_id", raw).
			Wrapf(item.ErrNotFound, "item not found")
	}
	return id, nil
}

// handleListItems returns one page of all items.
func (a *API) handleListItems(w http.ResponseWriter, r *http.Request) {
	list, err := a.items.List(r.Context(), pageFrom(r))
	if err != nil {
		errutil.LogError(a.logger, "item listing failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(list))
}

// handleMyItems returns one page of the caller's items.
func (a *API) handleMyItems(w http.ResponseWriter, r *http.Request) {
	list, err := a.items.ListOwned(r.Context(), UserFrom(r.Context()), pageFrom(r))
	if err != nil {
		errutil.LogError(a.logger, "owned item listing failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(list))
}

// handleCreateItem stores a new item owned by the caller.
func (a *API) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	created, err := a.items.Create(r.Context(), UserFrom(r.Context()), item.NewItemInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		errutil.LogError(a.logger, "item creation failed", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newItemResponse(created))
}

// handleGetItem returns a single item. Reads are not ownership-gated.
func (a *API) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := itemIDFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}

	itm, err := a.items.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newItemResponse(itm))
}

// handleUpdateItem applies a partial update after the ownership check.
func (a *API) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := itemIDFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	updated, err := a.items.Update(r.Context(), UserFrom(r.Context()), id, item.UpdateItemInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		errutil.LogError(a.logger, "item update failed", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newItemResponse(updated))
}

// handleDeleteItem removes an item after the ownership check.
func (a *API) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := itemIDFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := a.items.Delete(r.Context(), UserFrom(r.Context()), id); err != nil {
		errutil.LogError(a.logger, "item deletion failed", err)
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
