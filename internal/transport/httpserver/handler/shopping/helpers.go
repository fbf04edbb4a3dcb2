package shopping

import (
	"errors"
	"net/http"

	shoppingdomain "shoplist-go/internal/domain/shopping"
	commonhandler "shoplist-go/internal/transport/httpserver/handler/common"
)

func writeError(w http.ResponseWriter, status int, code, message string) {
	commonhandler.WriteError(w, status, code, message)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	commonhandler.WriteJSON(w, status, payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	commonhandler.WriteMessage(w, status, message)
}

func decodeJSON(r *http.Request, dst any) error {
	return commonhandler.DecodeJSON(r, dst)
}

// writeServiceError maps domain errors to HTTP responses. op prefixes the
// log line, e.g. "shopping.add_item".
func (h *Handlers) writeServiceError(w http.ResponseWriter, op string, err error, args ...any) {
	var validation *shoppingdomain.ValidationError
	switch {
	case errors.As(err, &validation):
		h.log.BusinessError(op+": invalid input", err, append(args, "field", validation.Field)...)
		writeError(w, http.StatusBadRequest, "invalid_request", validation.Error())
	case errors.Is(err, shoppingdomain.ErrActiveListNotFound):
		h.log.BusinessError(op+": active list not found", err, args...)
		writeError(w, http.StatusNotFound, "active_list_not_found", "active list not found")
	case errors.Is(err, shoppingdomain.ErrItemNotFound):
		h.log.BusinessError(op+": item not found", err, args...)
		writeError(w, http.StatusNotFound, "item_not_found", "item not found")
	case errors.Is(err, shoppingdomain.ErrHistoryEntryNotFound):
		h.log.BusinessError(op+": history entry not found", err, args...)
		writeError(w, http.StatusNotFound, "history_entry_not_found", "history entry not found")
	case errors.Is(err, shoppingdomain.ErrHistoryItemNotFound):
		h.log.BusinessError(op+": history item not found", err, args...)
		writeError(w, http.StatusNotFound, "history_item_not_found", "history item not found")
	case errors.Is(err, shoppingdomain.ErrNothingToArchive):
		h.log.BusinessError(op+": nothing to archive", err, args...)
		writeError(w, http.StatusBadRequest, "nothing_to_archive", "nothing to archive")
	case errors.Is(err, shoppingdomain.ErrDuplicateItem):
		h.log.BusinessError(op+": duplicate item", err, args...)
		writeError(w, http.StatusConflict, "duplicate_item", "item with this name already exists")
	case errors.Is(err, shoppingdomain.ErrVersionConflict):
		h.log.BusinessError(op+": version conflict", err, args...)
		writeError(w, http.StatusConflict, "version_conflict", "list was modified concurrently, retry")
	default:
		h.log.InternalError(op+": failed", err, args...)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
