package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-store/internal/codec"
	"github.com/xenking/kart-store/internal/domain/cart"
)

// modifyCartRequest is the body of addToCart and removeFromCart.
type modifyCartRequest struct {
	Username string
	ItemID   int64
	Quantity int
}

func decodeModifyCart(r *http.Request) (modifyCartRequest, error) {
	var req modifyCartRequest
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "username":
			req.Username, err = d.Str()
		case "itemId":
			req.ItemID, err = d.Int64()
		case "quantity":
			req.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.GetCart(r.Context(), r.PathValue("username"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, c)
}

func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	req, err := decodeModifyCart(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.carts.AddToCart(r.Context(), req.Username, req.ItemID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, c)
}

func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	req, err := decodeModifyCart(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.carts.RemoveFromCart(r.Context(), req.Username, req.ItemID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, c)
}

func writeCart(w http.ResponseWriter, c *cart.Cart) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { codec.EncodeCart(e, c) })
}
