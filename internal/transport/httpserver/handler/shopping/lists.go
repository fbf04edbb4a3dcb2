package shopping

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	shoppingdomain "shoplist-go/internal/domain/shopping"
)

type createItemRequest struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Category string `json:"category"`
	AddedBy  string `json:"addedBy"`
	Comment  string `json:"comment"`
}

func (req createItemRequest) input() shoppingdomain.NewItemInput {
	return shoppingdomain.NewItemInput{
		Name:     req.Name,
		Quantity: req.Quantity,
		Category: req.Category,
		AddedBy:  req.AddedBy,
		Comment:  req.Comment,
	}
}

// restoreItemRequest accepts a removed item echoed back verbatim. Identity
// and purchase state are reassigned by the server.
type restoreItemRequest struct {
	createItemRequest
	ID          string     `json:"id"`
	Purchased   bool       `json:"purchased"`
	PurchasedAt *time.Time `json:"purchasedAt"`
	CreatedAt   *time.Time `json:"createdAt"`
}

type updateItemRequest struct {
	Name      *string `json:"name"`
	Quantity  *int    `json:"quantity"`
	Category  *string `json:"category"`
	Comment   *string `json:"comment"`
	Purchased *bool   `json:"purchased"`
}

type archiveListResponse struct {
	Message string                       `json:"message"`
	Entry   *shoppingdomain.HistoryEntry `json:"entry"`
}

func (h *Handlers) GetActiveList(w http.ResponseWriter, r *http.Request) {
	list, err := h.Shopping.EnsureActiveList(r.Context())
	if err != nil {
		h.writeServiceError(w, "shopping.get_active", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) AddItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log.BusinessError("shopping.add_item: invalid json", err)
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}

	list, err := h.Shopping.AddItem(r.Context(), req.input())
	if err != nil {
		h.writeServiceError(w, "shopping.add_item", err, "name", req.Name)
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

func (h *Handlers) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "item_id")

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log.BusinessError("shopping.update_item: invalid json", err, "item_id", itemID)
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}

	list, err := h.Shopping.UpdateItem(r.Context(), shoppingdomain.UpdateItemInput{
		ItemID:    itemID,
		Name:      req.Name,
		Quantity:  req.Quantity,
		Category:  req.Category,
		Comment:   req.Comment,
		Purchased: req.Purchased,
	})
	if err != nil {
		h.writeServiceError(w, "shopping.update_item", err, "item_id", itemID)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) DeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "item_id")

	list, err := h.Shopping.DeleteItem(r.Context(), itemID)
	if err != nil {
		h.writeServiceError(w, "shopping.delete_item", err, "item_id", itemID)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) CopyFromHistory(w http.ResponseWriter, r *http.Request) {
	historyID := chi.URLParam(r, "history_id")

	list, err := h.Shopping.CopyFromHistory(r.Context(), historyID)
	if err != nil {
		h.writeServiceError(w, "shopping.copy_from_history", err, "history_id", historyID)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) ArchiveList(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Shopping.ArchiveList(r.Context())
	if err != nil {
		h.writeServiceError(w, "shopping.archive_list", err)
		return
	}
	writeJSON(w, http.StatusOK, archiveListResponse{
		Message: "List archived successfully",
		Entry:   entry,
	})
}

func (h *Handlers) ClearList(w http.ResponseWriter, r *http.Request) {
	list, err := h.Shopping.ClearList(r.Context())
	if err != nil {
		h.writeServiceError(w, "shopping.clear_list", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) RestoreItem(w http.ResponseWriter, r *http.Request) {
	var req restoreItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log.BusinessError("shopping.restore_item: invalid json", err)
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}

	list, err := h.Shopping.RestoreItem(r.Context(), req.input())
	if err != nil {
		h.writeServiceError(w, "shopping.restore_item", err, "name", req.Name, "previous_id", req.ID)
		return
	}
	writeJSON(w, http.StatusCreated, list)
}
