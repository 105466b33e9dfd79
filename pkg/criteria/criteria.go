// Package criteria builds and evaluates the predicates that drive
// buyer-to-listing matching. A predicate is a conjunction of field
// conditions; fields that are absent or empty on the source record are
// omitted entirely, never matched as "equals empty".
package criteria

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Supported operators
const (
	OpEquals = ""        // default, simple equality
	OpIn     = "$in"     // value is in array of options
	OpGte    = "$gte"    // greater than or equal
	OpLte    = "$lte"    // less than or equal
	OpSuffix = "$suffix" // string ends with value (phone-key alignment)
)

// Condition represents a single field condition to evaluate.
type Condition struct {
	Field    string
	Operator string
	Value    any
}

// Predicate is an AND-combined set of conditions.
type Predicate []Condition

// Eq appends an equality condition when value is a non-empty string.
func (p Predicate) Eq(field, value string) Predicate {
	if strings.TrimSpace(value) == "" {
		return p
	}
	return append(p, Condition{Field: field, Operator: OpEquals, Value: value})
}

// EqInt appends an equality condition when value is non-zero.
func (p Predicate) EqInt(field string, value int) Predicate {
	if value == 0 {
		return p
	}
	return append(p, Condition{Field: field, Operator: OpEquals, Value: value})
}

// Gte appends a lower-bound condition.
func (p Predicate) Gte(field string, value int64) Predicate {
	return append(p, Condition{Field: field, Operator: OpGte, Value: value})
}

// Lte appends an upper-bound condition.
func (p Predicate) Lte(field string, value int64) Predicate {
	return append(p, Condition{Field: field, Operator: OpLte, Value: value})
}

// Suffix appends an ends-with condition when value is non-empty.
func (p Predicate) Suffix(field, value string) Predicate {
	if value == "" {
		return p
	}
	return append(p, Condition{Field: field, Operator: OpSuffix, Value: value})
}

// In appends a set-membership condition when options is non-empty.
func (p Predicate) In(field string, options []string) Predicate {
	if len(options) == 0 {
		return p
	}
	return append(p, Condition{Field: field, Operator: OpIn, Value: options})
}

// CoerceAmount converts a loosely-typed price bound (number, numeric string,
// float) to an int64. A value that cannot be coerced reports ok=false; the
// caller treats that as the corresponding open bound rather than an error.
func CoerceAmount(v any) (int64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case int64:
		return n, true
	case *int64:
		if n == nil {
			return 0, false
		}
		return *n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case float32:
		return int64(n), true
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// PriceBounds resolves loosely-typed min/max inputs into a closed interval,
// defaulting missing or malformed bounds to [0, MaxInt64).
func PriceBounds(min, max any) (lo int64, hi int64) {
	lo = 0
	hi = math.MaxInt64
	if v, ok := CoerceAmount(min); ok {
		lo = v
	}
	if v, ok := CoerceAmount(max); ok {
		hi = v
	}
	return lo, hi
}

// categorical carries the attribute fields shared by buyer requests and
// listings when building either direction of the match predicate.
type categorical struct {
	PropertyType string
	PropertyMode string
	City         string
	State        string
	District     string
	Area         string
	Facing       string
	PropertyAge  string
	Approval     string
	Loan         string
	Bedrooms     int
}

func (c categorical) apply(p Predicate) Predicate {
	p = p.Eq("property_type", c.PropertyType)
	p = p.Eq("property_mode", c.PropertyMode)
	p = p.Eq("city", c.City)
	p = p.Eq("state", c.State)
	p = p.Eq("district", c.District)
	p = p.Eq("area", c.Area)
	p = p.Eq("facing", c.Facing)
	p = p.Eq("property_age", c.PropertyAge)
	p = p.Eq("approval", c.Approval)
	p = p.Eq("loan", c.Loan)
	p = p.EqInt("bedrooms", c.Bedrooms)
	return p
}

// BuyerSource is the slice of a buyer request the predicate builder reads.
type BuyerSource struct {
	PropertyType string
	PropertyMode string
	City         string
	State        string
	District     string
	Area         string
	Facing       string
	PropertyAge  string
	Approval     string
	Loan         string
	Bedrooms     int
	MinPrice     any
	MaxPrice     any
}

// ListingSource is the slice of a listing the predicate builder reads.
type ListingSource struct {
	PropertyType string
	PropertyMode string
	City         string
	State        string
	District     string
	Area         string
	Facing       string
	PropertyAge  string
	Approval     string
	Loan         string
	Bedrooms     int
	Price        int64
}

// ForBuyerRequest builds the listing-collection predicate for a buyer
// request: categorical equality plus price within [min, max], with missing
// bounds left open.
func ForBuyerRequest(src BuyerSource) Predicate {
	p := categorical{
		PropertyType: src.PropertyType,
		PropertyMode: src.PropertyMode,
		City:         src.City,
		State:        src.State,
		District:     src.District,
		Area:         src.Area,
		Facing:       src.Facing,
		PropertyAge:  src.PropertyAge,
		Approval:     src.Approval,
		Loan:         src.Loan,
		Bedrooms:     src.Bedrooms,
	}.apply(nil)

	lo, hi := PriceBounds(src.MinPrice, src.MaxPrice)
	p = p.Gte("price", lo)
	if hi != math.MaxInt64 {
		p = p.Lte("price", hi)
	}
	return p
}

// ForListing builds the buyer-request-collection predicate for a listing:
// the same categorical equalities, plus the listing's price constant falling
// inside each candidate's [min_price, max_price].
func ForListing(src ListingSource) Predicate {
	p := categorical{
		PropertyType: src.PropertyType,
		PropertyMode: src.PropertyMode,
		City:         src.City,
		State:        src.State,
		District:     src.District,
		Area:         src.Area,
		Facing:       src.Facing,
		PropertyAge:  src.PropertyAge,
		Approval:     src.Approval,
		Loan:         src.Loan,
		Bedrooms:     src.Bedrooms,
	}.apply(nil)

	p = p.Lte("min_price", src.Price)
	p = p.Gte("max_price", src.Price)
	return p
}

// Matches evaluates the predicate against a record's field map in memory.
// Returns true only when every condition matches (AND logic).
func Matches(record map[string]any, p Predicate) bool {
	for _, cond := range p {
		if !evaluateCondition(record, cond) {
			return false
		}
	}
	return true
}

func evaluateCondition(record map[string]any, cond Condition) bool {
	value, exists := record[cond.Field]

	switch cond.Operator {
	case OpEquals:
		if !exists {
			return false
		}
		return valuesEqual(value, cond.Value)

	case OpIn:
		if !exists {
			return false
		}
		options, ok := toSlice(cond.Value)
		if !ok {
			return false
		}
		for _, opt := range options {
			if valuesEqual(value, opt) {
				return true
			}
		}
		return false

	case OpGte, OpLte:
		if !exists || value == nil {
			// an absent bound is an open bound: min_price <= X and
			// max_price >= X both hold vacuously
			return nullableBound(cond.Field)
		}
		if n, ok := value.(*int64); ok && n == nil {
			return nullableBound(cond.Field)
		}
		return compareNumeric(value, cond.Operator, cond.Value)

	case OpSuffix:
		if !exists {
			return false
		}
		s, ok := value.(string)
		if !ok {
			return false
		}
		suffix, ok := cond.Value.(string)
		if !ok || suffix == "" {
			return false
		}
		return strings.HasSuffix(s, suffix)

	default:
		return false
	}
}

// nullableBound reports whether a field is a buyer price bound, where a NULL
// value means "no constraint" rather than "no match".
func nullableBound(field string) bool {
	return field == "min_price" || field == "max_price"
}

// valuesEqual compares two values with type coercion.
func valuesEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a == b {
		return true
	}
	// handles type differences like float64 vs int
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func toSlice(v any) ([]any, bool) {
	switch arr := v.(type) {
	case []any:
		return arr, true
	case []string:
		result := make([]any, len(arr))
		for i, s := range arr {
			result[i] = s
		}
		return result, true
	default:
		return nil, false
	}
}

func compareNumeric(actual any, op string, expected any) bool {
	actualNum, ok := toFloat64(actual)
	if !ok {
		return false
	}

	expectedNum, ok := toFloat64(expected)
	if !ok {
		return false
	}

	switch op {
	case OpGte:
		return actualNum >= expectedNum
	case OpLte:
		return actualNum <= expectedNum
	default:
		return false
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case *int64:
		if n == nil {
			return 0, false
		}
		return float64(*n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
