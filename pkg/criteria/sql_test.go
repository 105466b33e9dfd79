package criteria

import (
	"testing"

	"github.com/huandu/go-sqlbuilder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLClauses(t *testing.T) {
	t.Run("buyer predicate produces equality and price range", func(t *testing.T) {
		sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
		sb.Select("id").From("listings")

		p := ForBuyerRequest(BuyerSource{
			City:     "Chennai",
			MinPrice: "2000000",
			MaxPrice: "4000000",
		})
		sb.Where(SQLClauses(sb, p)...)

		query, args := sb.Build()
		assert.Contains(t, query, "city = $")
		assert.Contains(t, query, "price >= $")
		assert.Contains(t, query, "price <= $")
		assert.Equal(t, []interface{}{"Chennai", int64(2000000), int64(4000000)}, args)
	})

	t.Run("listing predicate treats null bounds as open", func(t *testing.T) {
		sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
		sb.Select("id").From("buyer_requests")

		p := ForListing(ListingSource{City: "Chennai", Price: 3000000})
		sb.Where(SQLClauses(sb, p)...)

		query, _ := sb.Build()
		assert.Contains(t, query, "min_price IS NULL OR min_price <= $")
		assert.Contains(t, query, "max_price IS NULL OR max_price >= $")
	})

	t.Run("suffix becomes escaped LIKE", func(t *testing.T) {
		sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
		sb.Select("id").From("listings")

		p := Predicate{}.Suffix("phone_key", "54%3210")
		clauses := SQLClauses(sb, p)
		require.Len(t, clauses, 1)
		sb.Where(clauses...)

		query, args := sb.Build()
		assert.Contains(t, query, "phone_key LIKE $")
		assert.Equal(t, []interface{}{`%54\%3210`}, args)
	})

	t.Run("in operator expands options", func(t *testing.T) {
		sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
		sb.Select("id").From("listings")

		p := Predicate{}.In("city", []string{"Chennai", "Madurai"})
		sb.Where(SQLClauses(sb, p)...)

		query, args := sb.Build()
		assert.Contains(t, query, "city IN ($")
		assert.Equal(t, []interface{}{"Chennai", "Madurai"}, args)
	})

	t.Run("unknown operator is skipped", func(t *testing.T) {
		sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
		p := Predicate{{Field: "city", Operator: "$regex", Value: ".*"}}
		assert.Empty(t, SQLClauses(sb, p))
	})
}
