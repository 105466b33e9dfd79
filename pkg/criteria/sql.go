package criteria

import (
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/trellis/pkg/database"
)

// SQLClauses translates a predicate into WHERE fragments for a sqlbuilder
// select. Unknown operators are skipped rather than silently matching
// everything the caller did not ask for.
func SQLClauses(sb *sqlbuilder.SelectBuilder, p Predicate) []string {
	clauses := make([]string, 0, len(p))
	for _, cond := range p {
		switch cond.Operator {
		case OpEquals:
			clauses = append(clauses, sb.Equal(cond.Field, cond.Value))
		case OpGte:
			cmp := sb.GreaterEqualThan(cond.Field, cond.Value)
			if nullableBound(cond.Field) {
				cmp = sb.Or(sb.IsNull(cond.Field), cmp)
			}
			clauses = append(clauses, cmp)
		case OpLte:
			cmp := sb.LessEqualThan(cond.Field, cond.Value)
			if nullableBound(cond.Field) {
				cmp = sb.Or(sb.IsNull(cond.Field), cmp)
			}
			clauses = append(clauses, cmp)
		case OpIn:
			if options, ok := toSlice(cond.Value); ok && len(options) > 0 {
				clauses = append(clauses, sb.In(cond.Field, options...))
			}
		case OpSuffix:
			if s, ok := cond.Value.(string); ok && s != "" {
				clauses = append(clauses, sb.Like(cond.Field, "%"+database.EscapeLike(s)))
			}
		}
	}
	return clauses
}
