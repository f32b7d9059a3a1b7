package couponimport

import (
	"context"
	"log/slog"
	"math/bits"
	"path/filepath"
	"slices"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/coupon"
)

// maxFiles bounds the per-code file bitmask.
const maxFiles = bits.UintSize

// Store persists imported coupons. It is implemented by
// *repository.CouponRepository.
type Store interface {
	Upsert(ctx context.Context, rule *coupon.Rule) error
}

// Options tune an import.
type Options struct {
	// Capacity is the expected number of codes per file. Defaults to 1e6.
	Capacity uint
	// FalsePositiveRate of each bloom filter. Defaults to 0.001.
	FalsePositiveRate float64
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (o *Options) setDefaults() {
	if o.Capacity == 0 {
		o.Capacity = 1_000_000
	}
	if o.FalsePositiveRate <= 0 || o.FalsePositiveRate >= 1 {
		o.FalsePositiveRate = 0.001
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Report summarizes an import.
type Report struct {
	Rows     int
	Invalid  int
	Imported int
	// Conflicts lists codes found in more than one file, sorted. They are
	// not imported.
	Conflicts []string
}

// Importer loads coupon files into a Store.
type Importer struct {
	store Store
	opts  Options
}

// New returns an Importer writing to store.
func New(store Store, opts Options) *Importer {
	opts.setDefaults()
	return &Importer{store: store, opts: opts}
}

// Import reads files in three passes. Pass one builds a bloom filter per
// file, pass two confirms codes that another file's filter reports, and
// pass three upserts every valid row whose code is not a conflict.
func (im *Importer) Import(ctx context.Context, files []string) (*Report, error) {
	if len(files) == 0 {
		return &Report{}, nil
	}
	if len(files) > maxFiles {
		return nil, errors.Errorf("at most %d files per import, got %d", maxFiles, len(files))
	}

	im.opts.Logger.Info("pass 1: building bloom filters", slog.Int("files", len(files)))
	filters, err := im.buildFilters(ctx, files)
	if err != nil {
		return nil, errors.Wrap(err, "build bloom filters")
	}

	im.opts.Logger.Info("pass 2: finding codes shared between files")
	conflicts, err := im.findConflicts(ctx, files, filters)
	if err != nil {
		return nil, errors.Wrap(err, "find conflicts")
	}
	for _, code := range conflicts {
		im.opts.Logger.Warn("conflicting code skipped", slog.String("code", code))
	}

	im.opts.Logger.Info("pass 3: writing coupons", slog.Int("conflicts", len(conflicts)))
	report, err := im.write(ctx, files, conflicts)
	if err != nil {
		return nil, errors.Wrap(err, "write coupons")
	}
	report.Conflicts = conflicts
	return report, nil
}

// buildFilters creates one bloom filter per file, concurrently.
func (im *Importer) buildFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(im.opts.Capacity, im.opts.FalsePositiveRate)
			var count int
			if err := streamFile(ctx, path, func(r row) error {
				if r.Err == nil {
					filter.AddString(r.Rule.Code)
					count++
				}
				return nil
			}); err != nil {
				return errors.Wrapf(err, "file %s", filepath.Base(path))
			}
			im.opts.Logger.Info("pass 1 complete", slog.String("file", filepath.Base(path)), slog.Int("codes", count))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// findConflicts re-streams each file and checks codes against the other
// files' filters. A code is a conflict only when its file bitmask has two or
// more bits, which discards bloom false positives.
func (im *Importer) findConflicts(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]string, error) {
	candidates := make([]map[string]uint, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			found := make(map[string]uint)
			bit := uint(1) << uint(i)
			if err := streamFile(ctx, path, func(r row) error {
				if r.Err != nil {
					return nil
				}
				for j, f := range filters {
					if j != i && f.TestString(r.Rule.Code) {
						found[r.Rule.Code] |= bit
						break
					}
				}
				return nil
			}); err != nil {
				return errors.Wrapf(err, "file %s", filepath.Base(path))
			}
			candidates[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, found := range candidates {
		for code, mask := range found {
			merged[code] |= mask
		}
	}
	var conflicts []string
	for code, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			conflicts = append(conflicts, code)
		}
	}
	slices.Sort(conflicts)
	return conflicts, nil
}

// write upserts the non-conflicting rows of every file concurrently.
func (im *Importer) write(ctx context.Context, files []string, conflicts []string) (*Report, error) {
	skip := make(map[string]struct{}, len(conflicts))
	for _, code := range conflicts {
		skip[code] = struct{}{}
	}

	var rows, invalid, imported atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	for _, path := range files {
		g.Go(func() error {
			name := filepath.Base(path)
			return streamFile(ctx, path, func(r row) error {
				rows.Add(1)
				if r.Err != nil {
					invalid.Add(1)
					im.opts.Logger.Warn("invalid row skipped",
						slog.String("file", name),
						slog.Int("record", r.Record),
						slog.String("error", r.Err.Error()),
					)
					return nil
				}
				if _, ok := skip[r.Rule.Code]; ok {
					return nil
				}
				rule := r.Rule
				if err := im.store.Upsert(ctx, &rule); err != nil {
					return errors.Wrapf(err, "%s record %d", name, r.Record)
				}
				imported.Add(1)
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Report{
		Rows:     int(rows.Load()),
		Invalid:  int(invalid.Load()),
		Imported: int(imported.Load()),
	}, nil
}
