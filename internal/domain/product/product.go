package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product or category does not exist.
var ErrNotFound = errors.New("product not found")

// Category groups products in the catalog.
type Category struct {
	ID    string
	Name  string
	Slug  string
	Image string
}

// Variant is an optional product attribute (color or size) whose price is
// added to the product's base price.
type Variant struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Price       decimal.Decimal
	Category    Category
	Colors      []Variant
	Sizes       []Variant
	Images      []string
}

// ColorByName returns the product's color variant with the given name.
func (p *Product) ColorByName(name string) (Variant, bool) {
	return findVariant(p.Colors, name)
}

// SizeByName returns the product's size variant with the given name.
func (p *Product) SizeByName(name string) (Variant, bool) {
	return findVariant(p.Sizes, name)
}

func findVariant(vs []Variant, name string) (Variant, bool) {
	for _, v := range vs {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}

// Slugify derives the URL slug stored alongside products and categories.
func Slugify(name string) string {
	return slug.Make(name)
}

// Filter narrows a product listing.
type Filter struct {
	// CategorySlug limits results to one category when non-empty.
	CategorySlug string
}

// Repository defines read operations for the product catalog. Lookups by ID
// and slug return products with variants and images populated.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)
}
