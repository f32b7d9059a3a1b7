package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/couponimport"
	"github.com/xenking/storefront/internal/repository"
)

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
		capacity    uint
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing gzip-compressed coupon CSV files")
	flag.StringVar(&pattern, "pattern", "*.csv.gz", "glob matched inside data-dir")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&capacity, "capacity", 1_000_000, "expected codes per file, sizes the bloom filters")
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

	if err := run(ctx, filepath.Join(dataDir, pattern), databaseURL, capacity); err != nil {
		slog.Error("coupon ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon ingest completed successfully")
}

func run(ctx context.Context, glob, databaseURL string, capacity uint) error {
	files, err := filepath.Glob(glob)
	if err != nil {
		return errors.Wrap(err, "match files")
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %s", glob)
	}
	slices.Sort(files)

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	importer := couponimport.New(repository.NewCouponRepository(pool), couponimport.Options{
		Capacity: capacity,
		Logger:   slog.Default(),
	})
	report, err := importer.Import(ctx, files)
	if err != nil {
		return errors.Wrap(err, "import")
	}

	slog.Info("import finished",
		slog.Int("files", len(files)),
		slog.Int("rows", report.Rows),
		slog.Int("imported", report.Imported),
		slog.Int("invalid", report.Invalid),
		slog.Int("conflicts", len(report.Conflicts)),
	)

	return nil
}
