package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/repository"
)

type variantJSON struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type catalogJSON struct {
	Categories []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Image string `json:"image"`
	} `json:"categories"`
	Colors   []variantJSON `json:"colors"`
	Sizes    []variantJSON `json:"sizes"`
	Products []struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		Category    string          `json:"category"`
		Price       decimal.Decimal `json:"price"`
		Description string          `json:"description"`
		Colors      []string        `json:"colors"`
		Sizes       []string        `json:"sizes"`
		Images      []string        `json:"images"`
	} `json:"products"`
	Coupons []struct {
		Code    string          `json:"code"`
		Kind    string          `json:"kind"`
		Value   decimal.Decimal `json:"value"`
		Minimum decimal.Decimal `json:"minimum"`
		MaxUses int             `json:"max_uses"`
	} `json:"coupons"`
}

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string) error {
	slog.Info("reading catalog file", slog.String("path", catalogFile))

	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}
	var catalog catalogJSON
	if err := json.Unmarshal(data, &catalog); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, repository.NewCatalogWriter(pool), &catalog); err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if err := seedCoupons(ctx, repository.NewCouponRepository(pool), &catalog); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	return nil
}

func seedCatalog(ctx context.Context, w *repository.CatalogWriter, catalog *catalogJSON) error {
	for _, c := range catalog.Categories {
		if err := w.UpsertCategory(ctx, product.Category{ID: c.ID, Name: c.Name, Image: c.Image}); err != nil {
			return err
		}
	}
	for _, v := range catalog.Colors {
		if err := w.UpsertColor(ctx, product.Variant(v)); err != nil {
			return err
		}
	}
	for _, v := range catalog.Sizes {
		if err := w.UpsertSize(ctx, product.Variant(v)); err != nil {
			return err
		}
	}

	slog.Info("upserting products", slog.Int("count", len(catalog.Products)))

	for _, p := range catalog.Products {
		if err := w.UpsertProduct(ctx, product.Product{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Category:    product.Category{ID: p.Category},
			Colors:      variantRefs(p.Colors),
			Sizes:       variantRefs(p.Sizes),
			Images:      p.Images,
		}); err != nil {
			return err
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func variantRefs(ids []string) []product.Variant {
	out := make([]product.Variant, len(ids))
	for i, id := range ids {
		out[i] = product.Variant{ID: id}
	}
	return out
}

func seedCoupons(ctx context.Context, repo *repository.CouponRepository, catalog *catalogJSON) error {
	for _, c := range catalog.Coupons {
		rule := &coupon.Rule{
			Code:      c.Code,
			Kind:      coupon.Kind(c.Kind),
			Value:     c.Value,
			MinAmount: c.Minimum,
			MaxUses:   c.MaxUses,
		}
		if err := repo.Upsert(ctx, rule); err != nil {
			return err
		}

		slog.Info("upserted coupon", slog.String("code", c.Code), slog.Int64("id", rule.ID))
	}

	return nil
}
