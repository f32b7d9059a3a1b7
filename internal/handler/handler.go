// Package handler implements the JSON HTTP API on net/http.
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/xenking/storefront/internal/domain/account"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// CartService is implemented by *cart.Service.
type CartService interface {
	View(ctx context.Context, userID int64) (*cart.View, error)
	Peek(ctx context.Context, userID int64) (*cart.View, error)
	AddItem(ctx context.Context, userID int64, req cart.AddItemRequest) (*cart.AddItemResult, error)
	UpdateQuantity(ctx context.Context, userID, itemID int64, raw string) error
	RemoveItem(ctx context.Context, userID, itemID int64) error
	ApplyCoupon(ctx context.Context, userID int64, code string) (*cart.View, error)
}

// AccountService is implemented by *account.Service.
type AccountService interface {
	Register(ctx context.Context, req account.RegisterRequest) (*account.User, error)
	Activate(ctx context.Context, token string) error
	Login(ctx context.Context, email, password string) (string, error)
}

// CheckoutService is implemented by *order.Service.
type CheckoutService interface {
	Checkout(ctx context.Context, userID int64) (*order.Order, error)
}

// TokenParser is implemented by *auth.Issuer.
type TokenParser interface {
	Parse(token string) (int64, error)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths. When empty, paths
	// are returned as stored.
	ImageBaseURL string
}

// Handler serves the /api routes.
type Handler struct {
	products product.Repository
	carts    CartService
	accounts AccountService
	orders   CheckoutService
	tokens   TokenParser

	imageBaseURL string
}

// New constructs a Handler.
func New(
	cfg Config,
	products product.Repository,
	carts CartService,
	accounts AccountService,
	orders CheckoutService,
	tokens TokenParser,
) *Handler {
	return &Handler{
		products:     products,
		carts:        carts,
		accounts:     accounts,
		orders:       orders,
		tokens:       tokens,
		imageBaseURL: strings.TrimRight(cfg.ImageBaseURL, "/"),
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, httpmiddleware.Route(fn))
	}

	handle("POST /api/accounts/register", h.register)
	handle("POST /api/accounts/login", h.login)
	handle("GET /api/accounts/activate/{token}", h.activate)

	handle("GET /api/categories", h.listCategories)
	handle("GET /api/products", h.listProducts)
	handle("GET /api/products/{slug}", h.optionalUser(h.getProduct))

	handle("GET /api/cart", h.requireUser(h.getCart))
	handle("POST /api/cart", h.requireUser(h.applyCoupon))
	handle("POST /api/cart/coupon", h.requireUser(h.applyCoupon))
	handle("GET /api/cart/add/{product_id}", h.requireUser(h.addToCart))
	handle("POST /api/cart/items/{id}/update", h.requireUser(h.updateItem))
	handle("POST /api/cart/items/{id}/remove", h.requireUser(h.removeItem))
	handle("POST /api/cart/checkout", h.requireUser(h.checkout))

	handle("/api/", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
	})
}

func (h *Handler) imageURL(path string) string {
	if h.imageBaseURL == "" || path == "" ||
		strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return h.imageBaseURL + "/" + strings.TrimLeft(path, "/")
}
