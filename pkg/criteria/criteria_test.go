package criteria

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected int64
		ok       bool
	}{
		{"int64", int64(2500000), 2500000, true},
		{"int", 1500, 1500, true},
		{"float64", float64(4000000), 4000000, true},
		{"numeric string", "2000000", 2000000, true},
		{"decimal string", "2500000.75", 2500000, true},
		{"padded string", " 300 ", 300, true},
		{"empty string", "", 0, false},
		{"garbage string", "two lakh", 0, false},
		{"nil", nil, 0, false},
		{"bool", true, 0, false},
		{"NaN", math.NaN(), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CoerceAmount(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestPriceBounds(t *testing.T) {
	t.Run("both bounds set", func(t *testing.T) {
		lo, hi := PriceBounds("2000000", float64(4000000))
		assert.Equal(t, int64(2000000), lo)
		assert.Equal(t, int64(4000000), hi)
	})

	t.Run("malformed bounds stay open", func(t *testing.T) {
		lo, hi := PriceBounds("cheap", nil)
		assert.Equal(t, int64(0), lo)
		assert.Equal(t, int64(math.MaxInt64), hi)
	})
}

func TestForBuyerRequest(t *testing.T) {
	t.Run("populated fields become conditions", func(t *testing.T) {
		p := ForBuyerRequest(BuyerSource{
			PropertyType: "Flat",
			PropertyMode: "sale",
			City:         "Chennai",
			Area:         "Anna Nagar",
			Bedrooms:     2,
			MinPrice:     "2000000",
			MaxPrice:     float64(4000000),
		})

		fields := map[string]Condition{}
		for _, c := range p {
			fields[c.Field+c.Operator] = c
		}

		require.Len(t, p, 7)
		assert.Equal(t, "Flat", fields["property_type"].Value)
		assert.Equal(t, "sale", fields["property_mode"].Value)
		assert.Equal(t, "Chennai", fields["city"].Value)
		assert.Equal(t, "Anna Nagar", fields["area"].Value)
		assert.Equal(t, 2, fields["bedrooms"].Value)
		assert.Equal(t, int64(2000000), fields["price"+OpGte].Value)
		assert.Equal(t, int64(4000000), fields["price"+OpLte].Value)
	})

	t.Run("empty fields are omitted", func(t *testing.T) {
		p := ForBuyerRequest(BuyerSource{City: "Chennai"})
		require.Len(t, p, 2) // city + open lower price bound
		assert.Equal(t, "city", p[0].Field)
		assert.Equal(t, "price", p[1].Field)
		assert.Equal(t, OpGte, p[1].Operator)
		assert.Equal(t, int64(0), p[1].Value)
	})

	t.Run("malformed max leaves upper bound open", func(t *testing.T) {
		p := ForBuyerRequest(BuyerSource{MinPrice: "100", MaxPrice: "expensive"})
		for _, c := range p {
			assert.NotEqual(t, OpLte, c.Operator)
		}
	})
}

func TestForListing(t *testing.T) {
	p := ForListing(ListingSource{
		PropertyType: "Flat",
		City:         "Chennai",
		Price:        3000000,
	})

	require.Len(t, p, 4)
	assert.Equal(t, Condition{Field: "min_price", Operator: OpLte, Value: int64(3000000)}, p[2])
	assert.Equal(t, Condition{Field: "max_price", Operator: OpGte, Value: int64(3000000)}, p[3])
}

func TestMatches(t *testing.T) {
	listing := map[string]any{
		"property_type": "Flat",
		"property_mode": "sale",
		"city":          "Chennai",
		"area":          "Anna Nagar",
		"bedrooms":      2,
		"price":         int64(3000000),
		"phone_key":     "9876543210",
	}

	t.Run("buyer predicate matches listing in range", func(t *testing.T) {
		p := ForBuyerRequest(BuyerSource{
			PropertyType: "Flat",
			City:         "Chennai",
			MinPrice:     "2000000",
			MaxPrice:     "4000000",
		})
		assert.True(t, Matches(listing, p))
	})

	t.Run("price outside range fails", func(t *testing.T) {
		p := ForBuyerRequest(BuyerSource{City: "Chennai", MaxPrice: "2500000"})
		assert.False(t, Matches(listing, p))
	})

	t.Run("categorical mismatch fails", func(t *testing.T) {
		p := ForBuyerRequest(BuyerSource{City: "Madurai"})
		assert.False(t, Matches(listing, p))
	})

	t.Run("empty predicate matches everything", func(t *testing.T) {
		assert.True(t, Matches(listing, nil))
	})

	t.Run("suffix matches trailing digits", func(t *testing.T) {
		p := Predicate{}.Suffix("phone_key", "43210")
		assert.True(t, Matches(listing, p))

		p = Predicate{}.Suffix("phone_key", "99999")
		assert.False(t, Matches(listing, p))
	})

	t.Run("in operator", func(t *testing.T) {
		p := Predicate{}.In("city", []string{"Chennai", "Madurai"})
		assert.True(t, Matches(listing, p))

		p = Predicate{}.In("city", []string{"Coimbatore"})
		assert.False(t, Matches(listing, p))
	})

	t.Run("listing predicate against buyer with nil bounds", func(t *testing.T) {
		// a buyer who left both price bounds unset accepts any price
		buyer := map[string]any{
			"city":      "Chennai",
			"min_price": nil,
			"max_price": nil,
		}
		p := ForListing(ListingSource{City: "Chennai", Price: 3000000})
		assert.True(t, Matches(buyer, p))
	})

	t.Run("listing predicate against buyer pointer bounds", func(t *testing.T) {
		min := int64(2000000)
		max := int64(4000000)
		buyer := map[string]any{
			"city":      "Chennai",
			"min_price": &min,
			"max_price": &max,
		}
		p := ForListing(ListingSource{City: "Chennai", Price: 3000000})
		assert.True(t, Matches(buyer, p))

		p = ForListing(ListingSource{City: "Chennai", Price: 5000000})
		assert.False(t, Matches(buyer, p))
	})
}
