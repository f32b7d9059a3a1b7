package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestAmount(t *testing.T) {
	tests := []struct {
		name     string
		rule     *Rule
		subtotal decimal.Decimal
		want     decimal.Decimal
	}{
		{
			name:     "10% of 200",
			rule:     &Rule{Kind: KindPercentage, Value: d("10")},
			subtotal: d("200"),
			want:     d("20"),
		},
		{
			name:     "100% equals subtotal",
			rule:     &Rule{Kind: KindPercentage, Value: d("100")},
			subtotal: d("57.30"),
			want:     d("57.30"),
		},
		{
			name:     "150% capped at subtotal",
			rule:     &Rule{Kind: KindPercentage, Value: d("150")},
			subtotal: d("200"),
			want:     d("200"),
		},
		{
			name:     "percentage rounds to 2 dp",
			rule:     &Rule{Kind: KindPercentage, Value: d("15")},
			subtotal: d("29.97"),
			// 4.4955 -> 4.50
			want: d("4.50"),
		},
		{
			name:     "fixed below subtotal",
			rule:     &Rule{Kind: KindFixed, Value: d("150")},
			subtotal: d("999"),
			want:     d("150"),
		},
		{
			name:     "fixed capped at subtotal",
			rule:     &Rule{Kind: KindFixed, Value: d("500")},
			subtotal: d("120"),
			want:     d("120"),
		},
		{
			name:     "fixed value of 50 is flat, not percent",
			rule:     &Rule{Kind: KindFixed, Value: d("50")},
			subtotal: d("1000"),
			want:     d("50"),
		},
		{
			name:     "unknown kind grants nothing",
			rule:     &Rule{Kind: Kind("bogus"), Value: d("10")},
			subtotal: d("100"),
			want:     decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Amount(tt.rule, tt.subtotal)
			assert.True(t, tt.want.Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestDiscount(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	save10 := func() *Rule {
		return &Rule{Code: "SAVE10", Kind: KindPercentage, Value: d("10"), MinAmount: d("100"), ValidFrom: past}
	}

	tests := []struct {
		name     string
		rule     *Rule
		subtotal decimal.Decimal
		want     decimal.Decimal
	}{
		{name: "nil rule", rule: nil, subtotal: d("200"), want: decimal.Zero},
		{name: "SAVE10 on 200", rule: save10(), subtotal: d("200"), want: d("20")},
		{name: "exactly at minimum", rule: save10(), subtotal: d("100"), want: d("10")},
		{name: "below minimum", rule: save10(), subtotal: d("99.99"), want: decimal.Zero},
		{
			name: "expired flag",
			rule: func() *Rule {
				r := save10()
				r.Expired = true
				return r
			}(),
			subtotal: d("200"),
			want:     decimal.Zero,
		},
		{
			name: "valid_to in past",
			rule: func() *Rule {
				r := save10()
				r.ValidTo = &past
				return r
			}(),
			subtotal: d("200"),
			want:     decimal.Zero,
		},
		{
			name: "valid_from in future",
			rule: func() *Rule {
				r := save10()
				r.ValidFrom = future
				return r
			}(),
			subtotal: d("200"),
			want:     decimal.Zero,
		},
		{
			name: "within window",
			rule: func() *Rule {
				r := save10()
				r.ValidTo = &future
				return r
			}(),
			subtotal: d("200"),
			want:     d("20"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Discount(tt.rule, tt.subtotal, now)
			assert.True(t, tt.want.Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestRule_Check(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	assert.NoError(t, (&Rule{}).Check(now), "zero rule has open window and unlimited uses")
	assert.ErrorIs(t, (&Rule{MaxUses: 3, Uses: 3}).Check(now), ErrUsageLimitReached)
	assert.NoError(t, (&Rule{MaxUses: 3, Uses: 2}).Check(now))
	assert.ErrorIs(t, (&Rule{Expired: true}).Check(now), ErrCouponExpired)
}

func TestRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{name: "percentage", rule: Rule{Kind: KindPercentage, Value: d("100")}},
		{name: "fixed above 100", rule: Rule{Kind: KindFixed, Value: d("500")}},
		{name: "percentage above 100", rule: Rule{Kind: KindPercentage, Value: d("150")}, wantErr: true},
		{name: "negative value", rule: Rule{Kind: KindFixed, Value: d("-1")}, wantErr: true},
		{name: "negative minimum", rule: Rule{Kind: KindFixed, Value: d("1"), MinAmount: d("-5")}, wantErr: true},
		{name: "unknown kind", rule: Rule{Kind: "bogo", Value: d("1")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestKind_Valid(t *testing.T) {
	assert.True(t, KindPercentage.Valid())
	assert.True(t, KindFixed.Valid())
	assert.False(t, Kind("free_lowest").Valid())
}
