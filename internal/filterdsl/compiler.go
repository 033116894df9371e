package filterdsl

import (
	"fmt"
	"strings"

	"tivoli/internal/apperrors"
)

// baseColumns is the projection used by every compiled query.
const baseColumns = "i.uuid, i.path, i.collection, i.gallery, i.width, i.height, i.file_size"

// validOps lists, per field, the operators the validity matrix of §4.2
// permits. Anything not listed here is rejected with BadRequest.
var validOps = map[Field]map[Op]bool{
	FieldCollection: {OpEq: true},
	FieldGallery:    {OpEq: true},
	FieldModels:     {OpAnyOf: true, OpAllOf: true, OpExact: true, OpNoneOf: true},
	FieldTags:       {OpAnyOf: true, OpAllOf: true, OpExact: true, OpNoneOf: true},
}

// Compiler translates validated Clause lists into parameterised SQL
// fragments. It holds no state; it is safe for concurrent use.
type Compiler struct{}

// New returns a Compiler.
func New() *Compiler {
	return &Compiler{}
}

// Compile validates clauses against the field/op validity matrix and
// returns a SELECT statement plus its bound parameters in argument order.
// When ordered is false, the trailing ORDER BY is omitted so the fragment
// can be embedded as an aggregation subquery (§4.3).
func (c *Compiler) Compile(clauses []Clause, ordered bool) (string, []interface{}, error) {
	var conditions []string
	var params []interface{}

	for _, clause := range clauses {
		if err := validateClause(clause); err != nil {
			return "", nil, err
		}

		cond, clauseParams, err := compileClause(clause)
		if err != nil {
			return "", nil, err
		}
		conditions = append(conditions, cond)
		params = append(params, clauseParams...)
	}

	query := fmt.Sprintf("SELECT %s FROM images i", baseColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	if ordered {
		query += " ORDER BY i.collection, i.gallery, i.path"
	}

	return query, params, nil
}

func validateClause(clause Clause) error {
	ops, knownField := validOps[clause.Field]
	if !knownField {
		return apperrors.BadRequestf("unknown filter field %q", clause.Field)
	}
	if !ops[clause.Op] {
		return apperrors.BadRequestf("operator %q is not valid for field %q", clause.Op, clause.Field)
	}
	return nil
}

func compileClause(clause Clause) (string, []interface{}, error) {
	switch clause.Field {
	case FieldCollection:
		return compileEqClause("i.collection", clause)
	case FieldGallery:
		return compileEqClause("i.gallery", clause)
	case FieldModels:
		return compileAssociationClause("image_models", "model_uuid", nil, clause.Op, clause.Value.AsList())
	case FieldTags:
		return compileAssociationClause("image_tags", "tag_uuid", tagGroupScope, clause.Op, clause.Value.AsList())
	default:
		return "", nil, apperrors.BadRequestf("unknown filter field %q", clause.Field)
	}
}

// compileEqClause compiles an eq clause against a scalar column. eq takes
// exactly one value; a multi-valued clause here is a DSL misuse.
func compileEqClause(column string, clause Clause) (string, []interface{}, error) {
	values := clause.Value.AsList()
	if len(values) != 1 {
		return "", nil, apperrors.BadRequestf("field %q with op %q requires exactly one value", clause.Field, clause.Op)
	}
	return column + " = ?", []interface{}{values[0]}, nil
}

// groupScope builds the extra group-scoped exclusion predicate some
// association fields need for exact (only tags, currently).
type groupScope func(placeholders string, values []interface{}) (string, []interface{})

// tagGroupScope implements the §4.2 group-scoped exact semantics: the image
// must carry no tag, from any group touched by S, outside of S.
func tagGroupScope(placeholders string, values []interface{}) (string, []interface{}) {
	cond := fmt.Sprintf(
		`NOT EXISTS (
			SELECT 1 FROM image_tags it
			JOIN tags t ON it.tag_uuid = t.uuid
			WHERE it.image_uuid = i.uuid
			AND t.tag_group_uuid IN (SELECT tag_group_uuid FROM tags WHERE uuid IN (%s))
			AND it.tag_uuid NOT IN (%s)
		)`, placeholders, placeholders)
	params := append(append([]interface{}{}, values...), values...)
	return cond, params
}

// compileAssociationClause compiles any_of/all_of/exact/none_of for a
// many-to-many association table (image_models or image_tags). scope is
// nil for associations without a group-scoped exact mode (models).
func compileAssociationClause(table, column string, scope groupScope, op Op, values []string) (string, []interface{}, error) {
	if len(values) == 0 {
		return compileEmptySetClause(table, column, scope, op)
	}

	placeholders := buildPlaceholders(len(values))
	args := make([]interface{}, len(values))
	distinct := make(map[string]struct{}, len(values))
	for i, v := range values {
		args[i] = v
		distinct[v] = struct{}{}
	}

	switch op {
	case OpAnyOf:
		cond := fmt.Sprintf("i.uuid IN (SELECT image_uuid FROM %s WHERE %s IN (%s))", table, column, placeholders)
		return cond, args, nil

	case OpNoneOf:
		cond := fmt.Sprintf("i.uuid NOT IN (SELECT image_uuid FROM %s WHERE %s IN (%s))", table, column, placeholders)
		return cond, args, nil

	case OpAllOf:
		cond := fmt.Sprintf(
			"(SELECT COUNT(DISTINCT %s) FROM %s WHERE image_uuid = i.uuid AND %s IN (%s)) = ?",
			column, table, column, placeholders)
		params := append(append([]interface{}{}, args...), len(distinct))
		return cond, params, nil

	case OpExact:
		countCond := fmt.Sprintf(
			"(SELECT COUNT(DISTINCT %s) FROM %s WHERE image_uuid = i.uuid AND %s IN (%s)) = ?",
			column, table, column, placeholders)
		countParams := append(append([]interface{}{}, args...), len(distinct))

		var extraCond string
		var extraParams []interface{}
		if scope != nil {
			extraCond, extraParams = scope(placeholders, args)
		} else {
			extraCond = fmt.Sprintf(
				"NOT EXISTS (SELECT 1 FROM %s WHERE image_uuid = i.uuid AND %s NOT IN (%s))",
				table, column, placeholders)
			extraParams = args
		}

		cond := fmt.Sprintf("(%s AND %s)", countCond, extraCond)
		params := append(countParams, extraParams...)
		return cond, params, nil

	default:
		return "", nil, apperrors.BadRequestf("unsupported operator %q", op)
	}
}

// compileEmptySetClause handles S = ∅ for the four set-semantics operators.
// Each operator's condition is evaluated against the empty set directly
// rather than falling back to a single "match nothing" shortcut, since only
// any_of is vacuously false over ∅ — all_of and none_of are vacuously true,
// and exact means "no associations at all" (scoped to no groups when scope
// is group-aware, so it is vacuously true there too).
func compileEmptySetClause(table, column string, scope groupScope, op Op) (string, []interface{}, error) {
	switch op {
	case OpAnyOf:
		// i.uuid IN (SELECT ... WHERE column IN ()) can never hold.
		return "0 = 1", nil, nil

	case OpNoneOf:
		// Associations ∩ ∅ = ∅ always; every image qualifies.
		return "1 = 1", nil, nil

	case OpAllOf:
		// ∅ ⊆ Associations always; every image qualifies.
		return "1 = 1", nil, nil

	case OpExact:
		if scope != nil {
			// No groups are touched by S = ∅, so the group-scoped
			// constraint applies to nothing; every image qualifies.
			return "1 = 1", nil, nil
		}
		cond := fmt.Sprintf("NOT EXISTS (SELECT 1 FROM %s WHERE image_uuid = i.uuid)", table)
		return cond, nil, nil

	default:
		return "", nil, apperrors.BadRequestf("unsupported operator %q", op)
	}
}

// buildPlaceholders returns n comma-separated "?" placeholders.
func buildPlaceholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "?"
	}
	return strings.Join(parts, ", ")
}
