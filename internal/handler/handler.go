// Package handler exposes the item, user, cart and order services over HTTP.
package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-store/internal/domain"
	"github.com/xenking/kart-store/internal/domain/cart"
	"github.com/xenking/kart-store/internal/domain/item"
	"github.com/xenking/kart-store/internal/domain/order"
	"github.com/xenking/kart-store/internal/domain/user"
	"github.com/xenking/kart-store/pkg/httpmiddleware"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler serves the REST API under /api.
type Handler struct {
	items  item.Repository
	users  *user.Service
	carts  *cart.Service
	orders *order.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	items item.Repository,
	users *user.Service,
	carts *cart.Service,
	orders *order.Service,
) *Handler {
	return &Handler{
		items:  items,
		users:  users,
		carts:  carts,
		orders: orders,
	}
}

// Register adds the API routes to mux. Cart and order routes are wrapped
// with protect.
func (h *Handler) Register(mux *http.ServeMux, protect httpmiddleware.Middleware) {
	mux.HandleFunc("POST /api/user/create", h.CreateUser)
	mux.HandleFunc("GET /api/user/id/{id}", h.GetUserByID)
	mux.HandleFunc("GET /api/user/{username}", h.GetUserByUsername)

	mux.HandleFunc("GET /api/item", h.ListItems)
	mux.HandleFunc("GET /api/item/{id}", h.GetItem)
	mux.HandleFunc("GET /api/item/name/{name}", h.FindItemsByName)

	mux.Handle("GET /api/cart/{username}", protect(http.HandlerFunc(h.GetCart)))
	mux.Handle("POST /api/cart/addToCart", protect(http.HandlerFunc(h.AddToCart)))
	mux.Handle("POST /api/cart/removeFromCart", protect(http.HandlerFunc(h.RemoveFromCart)))

	mux.Handle("POST /api/order/submit/{username}", protect(http.HandlerFunc(h.SubmitOrder)))
	mux.Handle("GET /api/order/history/{username}", protect(http.HandlerFunc(h.OrderHistory)))
}

// writeJSON encodes the response body with enc.
func writeJSON(w http.ResponseWriter, status int, enc func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	enc(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// decodeBody parses the JSON object in the request body, calling field for
// every key.
func decodeBody(r *http.Request, field func(d *jx.Decoder, key string) error) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if err := jx.DecodeBytes(data).Obj(field); err != nil {
		return errors.Wrapf(domain.ErrInvalidArgument, "malformed request body: %v", err)
	}
	return nil
}

// pathID parses the named path value as an int64 identifier.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(domain.ErrInvalidArgument, "invalid %s %q", name, raw)
	}
	return id, nil
}
