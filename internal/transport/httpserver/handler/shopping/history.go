package shopping

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handlers) ListHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.Shopping.ListHistory(r.Context())
	if err != nil {
		h.writeServiceError(w, "shopping.list_history", err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handlers) DeleteHistoryEntry(w http.ResponseWriter, r *http.Request) {
	historyID := chi.URLParam(r, "history_id")

	history, err := h.Shopping.DeleteHistoryEntry(r.Context(), historyID)
	if err != nil {
		h.writeServiceError(w, "shopping.delete_history_entry", err, "history_id", historyID)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handlers) DeleteHistoryItem(w http.ResponseWriter, r *http.Request) {
	historyID := chi.URLParam(r, "history_id")
	itemID := chi.URLParam(r, "item_id")

	history, err := h.Shopping.DeleteHistoryItem(r.Context(), historyID, itemID)
	if err != nil {
		h.writeServiceError(w, "shopping.delete_history_item", err, "history_id", historyID, "item_id", itemID)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handlers) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.Shopping.ClearHistory(r.Context()); err != nil {
		h.writeServiceError(w, "shopping.clear_history", err)
		return
	}
	writeMessage(w, http.StatusOK, "History cleared successfully")
}
