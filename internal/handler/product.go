package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/product"
)

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.products.ListCategories(r.Context())
	if err != nil {
		internalError(w, r, errors.Wrap(err, "list categories"))
		return
	}
	out := make([]categoryDTO, len(categories))
	for i, c := range categories {
		out[i] = toCategoryDTO(c, h.imageURL)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context(), product.Filter{
		CategorySlug: r.URL.Query().Get("category"),
	})
	if err != nil {
		internalError(w, r, errors.Wrap(err, "list products"))
		return
	}
	out := make([]productDTO, len(products))
	for i, p := range products {
		out[i] = h.toProductDTO(p)
	}
	writeJSON(w, http.StatusOK, out)
}

// getProduct returns product details. For an authenticated caller the open
// cart is included when one exists; none is created.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.products.GetBySlug(ctx, r.PathValue("slug"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product_not_found", "product not found")
			return
		}
		internalError(w, r, errors.Wrap(err, "get product"))
		return
	}

	resp := productDetailResponse{Product: h.toProductDTO(*p)}
	if userID, ok := userFromContext(ctx); ok {
		v, err := h.carts.Peek(ctx, userID)
		if err != nil {
			internalError(w, r, errors.Wrap(err, "peek cart"))
			return
		}
		if v != nil {
			c := toCartDTO(v)
			resp.Cart = &c
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
