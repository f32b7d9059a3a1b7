package product

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "spaces become dashes", in: "Classic Denim Jacket", want: "classic-denim-jacket"},
		{name: "punctuation dropped", in: "T-Shirt (V-neck)!", want: "t-shirt-v-neck"},
		{name: "already a slug", in: "sneakers", want: "sneakers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestProduct_VariantLookup(t *testing.T) {
	p := Product{
		ID:    "p1",
		Name:  "Hoodie",
		Price: decimal.NewFromInt(40),
		Colors: []Variant{
			{ID: "c1", Name: "Red", Price: decimal.NewFromInt(5)},
		},
		Sizes: []Variant{
			{ID: "s1", Name: "M", Price: decimal.Zero},
			{ID: "s2", Name: "XL", Price: decimal.NewFromInt(10)},
		},
	}

	size, ok := p.SizeByName("XL")
	assert.True(t, ok)
	assert.Equal(t, "s2", size.ID)

	_, ok = p.SizeByName("xl")
	assert.False(t, ok, "size names match exactly")

	color, ok := p.ColorByName("Red")
	assert.True(t, ok)
	assert.True(t, decimal.NewFromInt(5).Equal(color.Price))

	_, ok = p.ColorByName("Blue")
	assert.False(t, ok)
}
