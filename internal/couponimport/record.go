// Package couponimport bulk-loads coupons from gzip-compressed CSV files.
package couponimport

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/coupon"
)

// ParseRecord converts a code,kind,value,minimum row into a rule. The code
// is uppercased and a missing minimum is zero.
func ParseRecord(fields []string) (coupon.Rule, error) {
	if len(fields) < 3 || len(fields) > 4 {
		return coupon.Rule{}, errors.Errorf("expected 3 or 4 fields, got %d", len(fields))
	}
	code := strings.ToUpper(strings.TrimSpace(fields[0]))
	if code == "" {
		return coupon.Rule{}, errors.New("empty code")
	}
	kind := coupon.Kind(strings.ToLower(strings.TrimSpace(fields[1])))
	if !kind.Valid() {
		return coupon.Rule{}, errors.Errorf("unknown kind %q", fields[1])
	}
	value, err := decimal.NewFromString(strings.TrimSpace(fields[2]))
	if err != nil {
		return coupon.Rule{}, errors.Wrap(err, "value")
	}
	if !value.IsPositive() {
		return coupon.Rule{}, errors.Errorf("value %s must be positive", value)
	}

	minimum := decimal.Zero
	if len(fields) == 4 && strings.TrimSpace(fields[3]) != "" {
		if minimum, err = decimal.NewFromString(strings.TrimSpace(fields[3])); err != nil {
			return coupon.Rule{}, errors.Wrap(err, "minimum")
		}
	}

	rule := coupon.Rule{Code: code, Kind: kind, Value: value, MinAmount: minimum}
	if err := rule.Validate(); err != nil {
		return coupon.Rule{}, err
	}
	return rule, nil
}

// row is one CSV record. Err is set when the record could not be parsed.
type row struct {
	Record int
	Rule   coupon.Rule
	Err    error
}

// streamFile decompresses path and calls fn for every data row. A leading
// header row starting with "code" is skipped.
func streamFile(ctx context.Context, path string, fn func(row) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(bufio.NewReader(f))
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	return streamCSV(ctx, gz, fn)
}

func streamCSV(ctx context.Context, r io.Reader, fn func(row) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true

	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			if err := fn(row{Record: n, Err: err}); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return errors.Wrap(err, "read csv")
		}
		if n == 1 && len(fields) > 0 && strings.EqualFold(strings.TrimSpace(fields[0]), "code") {
			continue
		}

		rule, err := ParseRecord(fields)
		if err := fn(row{Record: n, Rule: rule, Err: err}); err != nil {
			return err
		}
	}
}
