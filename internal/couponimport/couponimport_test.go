package couponimport

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/coupon"
)

type memStore struct {
	mu    sync.Mutex
	rules map[string]coupon.Rule
	err   error
}

func newMemStore() *memStore {
	return &memStore{rules: make(map[string]coupon.Rule)}
}

func (m *memStore) Upsert(_ context.Context, rule *coupon.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rules[rule.Code] = *rule
	return nil
}

func writeGz(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = io.WriteString(gz, strings.Join(lines, "\n")+"\n")
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func quietOptions() Options {
	return Options{Capacity: 1000, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name    string
		fields  []string
		want    coupon.Rule
		wantErr bool
	}{
		{
			name:   "percentage",
			fields: []string{"save10", "percentage", "10", "100"},
			want:   coupon.Rule{Code: "SAVE10", Kind: coupon.KindPercentage, Value: decimal.NewFromInt(10), MinAmount: decimal.NewFromInt(100)},
		},
		{
			name:   "fixed without minimum",
			fields: []string{" off5 ", "FIXED", "5.50"},
			want:   coupon.Rule{Code: "OFF5", Kind: coupon.KindFixed, Value: decimal.RequireFromString("5.50"), MinAmount: decimal.Zero},
		},
		{
			name:   "empty minimum",
			fields: []string{"A", "fixed", "1", ""},
			want:   coupon.Rule{Code: "A", Kind: coupon.KindFixed, Value: decimal.NewFromInt(1), MinAmount: decimal.Zero},
		},
		{name: "too few fields", fields: []string{"A", "fixed"}, wantErr: true},
		{name: "too many fields", fields: []string{"A", "fixed", "1", "0", "x"}, wantErr: true},
		{name: "empty code", fields: []string{" ", "fixed", "1"}, wantErr: true},
		{name: "unknown kind", fields: []string{"A", "free_lowest", "1"}, wantErr: true},
		{name: "bad value", fields: []string{"A", "fixed", "ten"}, wantErr: true},
		{name: "zero value", fields: []string{"A", "fixed", "0"}, wantErr: true},
		{name: "percentage over 100", fields: []string{"A", "percentage", "101"}, wantErr: true},
		{name: "negative minimum", fields: []string{"A", "fixed", "1", "-5"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecord(tt.fields)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Code, got.Code)
			assert.Equal(t, tt.want.Kind, got.Kind)
			assert.True(t, tt.want.Value.Equal(got.Value), "value %s", got.Value)
			assert.True(t, tt.want.MinAmount.Equal(got.MinAmount), "minimum %s", got.MinAmount)
		})
	}
}

func TestStreamCSV(t *testing.T) {
	input := "code,kind,value,minimum\nSAVE10,percentage,10,100\nbad,row\nOFF5,fixed,5\n"

	var rows []row
	err := streamCSV(context.Background(), strings.NewReader(input), func(r row) error {
		rows = append(rows, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "SAVE10", rows[0].Rule.Code)
	assert.Error(t, rows[1].Err)
	assert.Equal(t, 3, rows[1].Record)
	assert.Equal(t, "OFF5", rows[2].Rule.Code)
}

func TestStreamCSV_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := streamCSV(ctx, strings.NewReader("A,fixed,1\n"), func(row) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImport(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeGz(t, dir, "coupons1.csv.gz",
			"code,kind,value,minimum",
			"SAVE10,percentage,10,100",
			"shared,fixed,5,0",
			"ONLYONE,fixed,3",
		),
		writeGz(t, dir, "coupons2.csv.gz",
			"BIG500,fixed,75,500",
			"SHARED,percentage,50,0",
			"broken,unknown,1",
		),
		writeGz(t, dir, "coupons3.csv.gz",
			"WELCOME5,fixed,5",
		),
	}
	store := newMemStore()

	report, err := New(store, quietOptions()).Import(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, []string{"SHARED"}, report.Conflicts)
	assert.Equal(t, 7, report.Rows)
	assert.Equal(t, 1, report.Invalid)
	assert.Equal(t, 4, report.Imported)

	require.Len(t, store.rules, 4)
	assert.Contains(t, store.rules, "SAVE10")
	assert.Contains(t, store.rules, "ONLYONE")
	assert.Contains(t, store.rules, "BIG500")
	assert.Contains(t, store.rules, "WELCOME5")
	assert.NotContains(t, store.rules, "SHARED")
	assert.True(t, decimal.NewFromInt(500).Equal(store.rules["BIG500"].MinAmount))
}

func TestImport_DuplicateWithinFileIsNotConflict(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeGz(t, dir, "a.gz", "SAVE10,percentage,10", "SAVE10,percentage,15"),
		writeGz(t, dir, "b.gz", "OTHER,fixed,1"),
	}
	store := newMemStore()

	report, err := New(store, quietOptions()).Import(context.Background(), files)
	require.NoError(t, err)
	assert.Empty(t, report.Conflicts)
	assert.Contains(t, store.rules, "SAVE10")
}

func TestImport_Errors(t *testing.T) {
	t.Run("no files", func(t *testing.T) {
		report, err := New(newMemStore(), quietOptions()).Import(context.Background(), nil)
		require.NoError(t, err)
		assert.Zero(t, report.Imported)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := New(newMemStore(), quietOptions()).Import(context.Background(), []string{filepath.Join(t.TempDir(), "nope.gz")})
		assert.Error(t, err)
	})

	t.Run("not gzip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "plain.gz")
		require.NoError(t, os.WriteFile(path, []byte("SAVE10,percentage,10\n"), 0o600))
		_, err := New(newMemStore(), quietOptions()).Import(context.Background(), []string{path})
		assert.Error(t, err)
	})

	t.Run("store failure", func(t *testing.T) {
		path := writeGz(t, t.TempDir(), "a.gz", "SAVE10,percentage,10")
		store := newMemStore()
		store.err = errors.New("db down")
		_, err := New(store, quietOptions()).Import(context.Background(), []string{path})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db down")
	})
}
