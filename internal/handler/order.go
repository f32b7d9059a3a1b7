package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
)

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request, userID int64) {
	o, err := h.orders.Checkout(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrEmptyCart):
			h.respondCart(w, r, userID, warning("cart_empty", "Your cart is empty."))
		case errors.Is(err, cart.ErrNotFound):
			// The cart was closed by a concurrent checkout.
			h.respondCart(w, r, userID, warning("cart_closed", "This cart has already been checked out."))
		case errors.Is(err, coupon.ErrUsageLimitReached):
			msg, _ := mapCouponError(err)
			h.respondCart(w, r, userID, msg)
		default:
			internalError(w, r, errors.Wrap(err, "checkout"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDTO(o))
}
