package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/product"
)

const (
	productColumns = `p.id, p.name, p.slug, p.description, p.price,
		c.id, c.name, c.slug, c.image,
		COALESCE((SELECT array_agg(i.image ORDER BY i.id) FROM product_images i WHERE i.product_id = p.id), '{}')
		FROM products p JOIN categories c ON c.id = p.category_id`

	listProductsSQL = `SELECT ` + productColumns + `
		WHERE $1 = '' OR c.slug = $1 ORDER BY p.id`

	getProductByIDSQL = `SELECT ` + productColumns + ` WHERE p.id = $1`

	getProductBySlugSQL = `SELECT ` + productColumns + ` WHERE p.slug = $1`

	listCategoriesSQL = `SELECT id, name, slug, image FROM categories ORDER BY name`

	listColorsSQL = `SELECT v.id, v.name, v.price FROM colors v
		JOIN product_colors pv ON pv.color_id = v.id
		WHERE pv.product_id = $1 ORDER BY v.id`

	listSizesSQL = `SELECT v.id, v.name, v.price FROM sizes v
		JOIN product_sizes pv ON pv.size_id = v.id
		WHERE pv.product_id = $1 ORDER BY v.id`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns catalog products ordered by ID. Variants are not populated.
func (r *ProductRepository) List(ctx context.Context, f product.Filter) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL, f.CategorySlug)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "scan products")
	}
	return products, nil
}

// ListCategories returns all categories ordered by name.
func (r *ProductRepository) ListCategories(ctx context.Context) ([]product.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	categories, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (product.Category, error) {
		var c product.Category
		err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Image)
		return c, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan categories")
	}
	return categories, nil
}

// GetByID returns a single product with its variants.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	return r.get(ctx, getProductByIDSQL, id)
}

// GetBySlug returns a single product with its variants.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*product.Product, error) {
	return r.get(ctx, getProductBySlugSQL, slug)
}

func (r *ProductRepository) get(ctx context.Context, query, arg string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", arg)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %q", arg)
	}

	if p.Colors, err = r.variants(ctx, listColorsSQL, p.ID); err != nil {
		return nil, errors.Wrap(err, "colors")
	}
	if p.Sizes, err = r.variants(ctx, listSizesSQL, p.ID); err != nil {
		return nil, errors.Wrap(err, "sizes")
	}
	return &p, nil
}

func (r *ProductRepository) variants(ctx context.Context, query, productID string) ([]product.Variant, error) {
	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (product.Variant, error) {
		var v product.Variant
		err := row.Scan(&v.ID, &v.Name, &v.Price)
		return v, err
	})
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price,
		&p.Category.ID, &p.Category.Name, &p.Category.Slug, &p.Category.Image,
		&p.Images,
	)
	return p, err
}
