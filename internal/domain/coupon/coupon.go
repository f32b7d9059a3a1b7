package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind enumerates the supported coupon discount strategies.
type Kind string

const (
	// KindPercentage takes Value percent off the subtotal.
	KindPercentage Kind = "percentage"
	// KindFixed takes a flat Value off the subtotal, capped at the subtotal.
	KindFixed Kind = "fixed"
)

// Valid reports whether k is a known discount kind.
func (k Kind) Valid() bool {
	switch k {
	case KindPercentage, KindFixed:
		return true
	default:
		return false
	}
}

var (
	// ErrNotFound is returned when no non-expired coupon matches a code.
	ErrNotFound = errors.New("invalid coupon code")
	// ErrCouponExpired is returned when a coupon is outside its valid time window.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrMinimumNotMet is returned when the cart subtotal is below the
	// coupon's minimum order amount.
	ErrMinimumNotMet = errors.New("minimum order amount not met")
	// ErrUsageLimitReached is returned when a coupon has exhausted its allowed uses.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
)

// Rule defines a coupon's discount behaviour and eligibility constraints.
type Rule struct {
	ID        int64
	Code      string
	Kind      Kind
	Value     decimal.Decimal
	MinAmount decimal.Decimal
	Expired   bool
	ValidFrom time.Time
	// ValidTo is open-ended when nil.
	ValidTo *time.Time
	// MaxUses of zero means unlimited.
	MaxUses int
	Uses    int
}

// Validate rejects rules that cannot be stored: an unknown kind, a negative
// value or minimum, or a percentage above 100.
func (r *Rule) Validate() error {
	if !r.Kind.Valid() {
		return errors.Errorf("unknown coupon kind %q", r.Kind)
	}
	if r.Value.IsNegative() {
		return errors.Errorf("coupon value %s is negative", r.Value)
	}
	if r.Kind == KindPercentage && r.Value.GreaterThan(hundred) {
		return errors.Errorf("percentage %s exceeds 100", r.Value)
	}
	if r.MinAmount.IsNegative() {
		return errors.Errorf("minimum %s is negative", r.MinAmount)
	}
	return nil
}

// Check reports why the rule cannot be used at now, or nil when it can.
func (r *Rule) Check(now time.Time) error {
	if r.Expired {
		return ErrCouponExpired
	}
	if !r.ValidFrom.IsZero() && now.Before(r.ValidFrom) {
		return ErrCouponExpired
	}
	if r.ValidTo != nil && now.After(*r.ValidTo) {
		return ErrCouponExpired
	}
	if r.MaxUses > 0 && r.Uses >= r.MaxUses {
		return ErrUsageLimitReached
	}
	return nil
}

// Active reports whether the rule can be used at now.
func (r *Rule) Active(now time.Time) bool {
	return r.Check(now) == nil
}

// Repository provides coupon lookup.
type Repository interface {
	// FindByCode returns the non-expired coupon whose code matches
	// case-insensitively, or ErrNotFound.
	FindByCode(ctx context.Context, code string) (*Rule, error)
}
