package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-store/internal/codec"
	"github.com/xenking/kart-store/internal/domain"
	"github.com/xenking/kart-store/internal/domain/item"
)

// ListItems returns the full catalog.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.items.List(r.Context())
	if err != nil {
		writeError(w, r, domain.Wrap(err, "list items"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { codec.EncodeItems(e, items) })
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	it, err := h.items.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, domain.Wrap(err, "get item"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { codec.EncodeItem(e, *it) })
}

// FindItemsByName responds 404 when no item carries the name.
func (h *Handler) FindItemsByName(w http.ResponseWriter, r *http.Request) {
	items, err := h.items.FindByName(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, r, domain.Wrap(err, "find items"))
		return
	}
	if len(items) == 0 {
		writeError(w, r, item.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { codec.EncodeItems(e, items) })
}
