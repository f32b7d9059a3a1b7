package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/product"
)

var (
	msgItemNotFound    = warning("item_not_found", "Cart item not found.")
	msgInvalidQuantity = warning("invalid_quantity", "Quantity must be a positive whole number.")
)

// mapCartError returns the warning for soft cart failures.
func mapCartError(err error) (message, bool) {
	switch {
	case errors.Is(err, cart.ErrItemNotFound):
		return msgItemNotFound, true
	case errors.Is(err, cart.ErrInvalidQuantity):
		return msgInvalidQuantity, true
	default:
		return message{}, false
	}
}

// mapCouponError returns the warning for a rejected coupon.
func mapCouponError(err error) (message, bool) {
	switch {
	case errors.Is(err, coupon.ErrNotFound):
		return warning("coupon_invalid", "Invalid coupon code."), true
	case errors.Is(err, coupon.ErrMinimumNotMet):
		return warning("coupon_minimum_not_met", "Your cart total does not meet the minimum amount for this coupon."), true
	case errors.Is(err, coupon.ErrCouponExpired):
		return warning("coupon_expired", "This coupon has expired."), true
	case errors.Is(err, coupon.ErrUsageLimitReached):
		return warning("coupon_usage_limit", "This coupon is no longer available."), true
	default:
		return message{}, false
	}
}

// respondCart writes the user's current cart with msgs.
func (h *Handler) respondCart(w http.ResponseWriter, r *http.Request, userID int64, msgs ...message) {
	v, err := h.carts.View(r.Context(), userID)
	if err != nil {
		internalError(w, r, errors.Wrap(err, "view cart"))
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{Cart: toCartDTO(v), Messages: msgs})
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request, userID int64) {
	h.respondCart(w, r, userID)
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request, userID int64) {
	v, err := h.carts.ApplyCoupon(r.Context(), userID, r.FormValue("coupon_code"))
	if err != nil {
		if msg, ok := mapCouponError(err); ok {
			h.respondCart(w, r, userID, msg)
			return
		}
		internalError(w, r, errors.Wrap(err, "apply coupon"))
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{
		Cart:     toCartDTO(v),
		Messages: []message{success("coupon_applied", "Coupon applied.")},
	})
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request, userID int64) {
	q := r.URL.Query()
	res, err := h.carts.AddItem(r.Context(), userID, cart.AddItemRequest{
		ProductID: r.PathValue("product_id"),
		Size:      q.Get("variant"),
		Color:     q.Get("color"),
	})
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product_not_found", "product not found")
			return
		}
		internalError(w, r, errors.Wrap(err, "add item"))
		return
	}

	var msgs []message
	if res.UnknownSize {
		msgs = append(msgs, warning("invalid_size", "Invalid size selected."))
	}
	if res.UnknownColor {
		msgs = append(msgs, warning("invalid_color", "Invalid color selected."))
	}
	msgs = append(msgs, success("item_added", res.Item.Product.Name+" added to cart!"))
	h.respondCart(w, r, userID, msgs...)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request, userID int64) {
	itemID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.respondCart(w, r, userID, msgItemNotFound)
		return
	}
	if err := h.carts.UpdateQuantity(r.Context(), userID, itemID, r.FormValue("quantity")); err != nil {
		if msg, ok := mapCartError(err); ok {
			h.respondCart(w, r, userID, msg)
			return
		}
		internalError(w, r, errors.Wrap(err, "update quantity"))
		return
	}
	h.respondCart(w, r, userID, success("cart_updated", "Cart updated."))
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request, userID int64) {
	itemID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.respondCart(w, r, userID, msgItemNotFound)
		return
	}
	if err := h.carts.RemoveItem(r.Context(), userID, itemID); err != nil {
		if msg, ok := mapCartError(err); ok {
			h.respondCart(w, r, userID, msg)
			return
		}
		internalError(w, r, errors.Wrap(err, "remove item"))
		return
	}
	h.respondCart(w, r, userID, success("item_removed", "Item removed from cart."))
}
