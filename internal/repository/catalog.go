package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/product"
)

const (
	upsertCategorySQL = `INSERT INTO categories (id, name, slug, image) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, slug = EXCLUDED.slug, image = EXCLUDED.image`

	upsertColorSQL = `INSERT INTO colors (id, name, price) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price`

	upsertSizeSQL = `INSERT INTO sizes (id, name, price) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price`

	upsertProductSQL = `INSERT INTO products (id, name, slug, description, price, category_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			category_id = EXCLUDED.category_id`

	clearProductColorsSQL = `DELETE FROM product_colors WHERE product_id = $1`
	clearProductSizesSQL  = `DELETE FROM product_sizes WHERE product_id = $1`
	clearProductImagesSQL = `DELETE FROM product_images WHERE product_id = $1`

	linkProductColorSQL = `INSERT INTO product_colors (product_id, color_id) VALUES ($1, $2)`
	linkProductSizeSQL  = `INSERT INTO product_sizes (product_id, size_id) VALUES ($1, $2)`
	addProductImageSQL  = `INSERT INTO product_images (product_id, image) VALUES ($1, $2)`
)

// CatalogWriter loads catalog data. It is used by seeding tools, the API
// only reads the catalog.
type CatalogWriter struct {
	pool *pgxpool.Pool
}

// NewCatalogWriter returns a CatalogWriter that uses the given pool.
func NewCatalogWriter(pool *pgxpool.Pool) *CatalogWriter {
	return &CatalogWriter{pool: pool}
}

// UpsertCategory inserts or updates a category. An empty slug is derived
// from the name.
func (w *CatalogWriter) UpsertCategory(ctx context.Context, c product.Category) error {
	if c.Slug == "" {
		c.Slug = product.Slugify(c.Name)
	}
	if _, err := w.pool.Exec(ctx, upsertCategorySQL, c.ID, c.Name, c.Slug, c.Image); err != nil {
		return errors.Wrapf(err, "upsert category %q", c.ID)
	}
	return nil
}

// UpsertColor inserts or updates a color variant.
func (w *CatalogWriter) UpsertColor(ctx context.Context, v product.Variant) error {
	if _, err := w.pool.Exec(ctx, upsertColorSQL, v.ID, v.Name, v.Price); err != nil {
		return errors.Wrapf(err, "upsert color %q", v.ID)
	}
	return nil
}

// UpsertSize inserts or updates a size variant.
func (w *CatalogWriter) UpsertSize(ctx context.Context, v product.Variant) error {
	if _, err := w.pool.Exec(ctx, upsertSizeSQL, v.ID, v.Name, v.Price); err != nil {
		return errors.Wrapf(err, "upsert size %q", v.ID)
	}
	return nil
}

// UpsertProduct inserts or updates a product and replaces its variant links
// and images. Variants must already exist; only their IDs are read.
func (w *CatalogWriter) UpsertProduct(ctx context.Context, p product.Product) error {
	if p.Slug == "" {
		p.Slug = product.Slugify(p.Name)
	}
	err := pgx.BeginFunc(ctx, w.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertProductSQL,
			p.ID, p.Name, p.Slug, p.Description, p.Price, p.Category.ID,
		); err != nil {
			return errors.Wrap(err, "product")
		}

		for _, q := range []string{clearProductColorsSQL, clearProductSizesSQL, clearProductImagesSQL} {
			if _, err := tx.Exec(ctx, q, p.ID); err != nil {
				return errors.Wrap(err, "clear links")
			}
		}

		batch := &pgx.Batch{}
		for _, v := range p.Colors {
			batch.Queue(linkProductColorSQL, p.ID, v.ID)
		}
		for _, v := range p.Sizes {
			batch.Queue(linkProductSizeSQL, p.ID, v.ID)
		}
		for _, img := range p.Images {
			batch.Queue(addProductImageSQL, p.ID, img)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, "links")
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "upsert product %q", p.ID)
	}
	return nil
}
