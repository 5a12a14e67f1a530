package shared

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Operator identifies a filter comparison in a Query condition
type Operator string

const (
	OpEq   Operator = "eq"
	OpNeq  Operator = "neq"
	OpGt   Operator = "gt"
	OpGte  Operator = "gte"
	OpLt   Operator = "lt"
	OpLte  Operator = "lte"
	OpLike Operator = "like" // substring match, case-insensitive
	OpIn   Operator = "in"   // value must be a slice
)

// Condition is a single filter criterion expressed against a named field
// Conditions are plain data so that infrastructure translators can turn
// them into technology-specific queries (e.g. GORM WHERE clauses) while
// memory repositories evaluate them directly
type Condition struct {
	Field string
	Op    Operator
	Value interface{}
}

// Order is a single ordering directive
type Order struct {
	Field string
	Desc  bool
}

// Query 查询规约对象
// 以与持久化技术无关的方式描述一次查询：过滤条件、预加载路径、排序、分页
// 条件之间为 AND 语义；OR/NOT 组合使用 Specification 在内存中表达，
// 或由调用方拆分为多次查询
type Query struct {
	Conditions []Condition
	Orders     []Order
	Includes   []string
	Offset     int
	Limit      int
}

// NewQuery 创建空查询规约
func NewQuery() *Query {
	return &Query{}
}

// Where appends a filter condition
func (q *Query) Where(field string, op Operator, value interface{}) *Query {
	q.Conditions = append(q.Conditions, Condition{Field: field, Op: op, Value: value})
	return q
}

// OrderBy appends an ascending ordering directive
func (q *Query) OrderBy(field string) *Query {
	q.Orders = append(q.Orders, Order{Field: field})
	return q
}

// OrderByDesc appends a descending ordering directive
func (q *Query) OrderByDesc(field string) *Query {
	q.Orders = append(q.Orders, Order{Field: field, Desc: true})
	return q
}

// Include appends an association path to preload
func (q *Query) Include(path string) *Query {
	q.Includes = append(q.Includes, path)
	return q
}

// Paginate sets offset paging from a 1-based page number
func (q *Query) Paginate(page, pageSize int) *Query {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	q.Offset = (page - 1) * pageSize
	q.Limit = pageSize
	return q
}

// Validate 校验规约本身的合法性（操作符、IN 值类型、分页范围）
func (q *Query) Validate() error {
	for _, c := range q.Conditions {
		if c.Field == "" {
			return fmt.Errorf("condition field cannot be empty")
		}
		switch c.Op {
		case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpLike, OpIn:
		default:
			return fmt.Errorf("unknown operator %q on field %q", c.Op, c.Field)
		}
		if c.Op == OpIn {
			if _, ok := c.Value.([]interface{}); !ok {
				return fmt.Errorf("operator in requires a []interface{} value on field %q", c.Field)
			}
		}
	}
	if q.Offset < 0 || q.Limit < 0 {
		return fmt.Errorf("offset and limit cannot be negative")
	}
	return nil
}

// ============================================================================
// In-memory evaluation
// Used by memory repositories and tests; SQL translation lives in
// infrastructure (gormdb.Translator)
// ============================================================================

// FieldFunc resolves a named field from a candidate entity
// The second return value reports whether the field is known
type FieldFunc func(field string) (interface{}, bool)

// Matches evaluates all conditions against fields resolved by the accessor
// Unknown fields never match: a typo in a condition filters everything out
// instead of silently passing
func (q *Query) Matches(field FieldFunc) bool {
	for _, c := range q.Conditions {
		value, ok := field(c.Field)
		if !ok {
			return false
		}
		if !matchCondition(c, value) {
			return false
		}
	}
	return true
}

func matchCondition(c Condition, value interface{}) bool {
	switch c.Op {
	case OpEq:
		cmp, ok := compareValues(value, c.Value)
		return ok && cmp == 0
	case OpNeq:
		cmp, ok := compareValues(value, c.Value)
		return ok && cmp != 0
	case OpGt:
		cmp, ok := compareValues(value, c.Value)
		return ok && cmp > 0
	case OpGte:
		cmp, ok := compareValues(value, c.Value)
		return ok && cmp >= 0
	case OpLt:
		cmp, ok := compareValues(value, c.Value)
		return ok && cmp < 0
	case OpLte:
		cmp, ok := compareValues(value, c.Value)
		return ok && cmp <= 0
	case OpLike:
		s, okS := value.(string)
		pattern, okP := c.Value.(string)
		return okS && okP && strings.Contains(strings.ToLower(s), strings.ToLower(pattern))
	case OpIn:
		values, ok := c.Value.([]interface{})
		if !ok {
			return false
		}
		for _, candidate := range values {
			if cmp, ok := compareValues(value, candidate); ok && cmp == 0 {
				return true
			}
		}
		return false
	}
	return false
}

// compareValues compares two values of compatible types
// Numeric values compare across int/float widths; strings lexically;
// times chronologically; bools support equality only
func compareValues(a, b interface{}) (int, bool) {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		switch {
		case av.Before(bv):
			return -1, true
		case av.After(bv):
			return 1, true
		default:
			return 0, true
		}
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		if av == bv {
			return 0, true
		}
		return 1, true
	}

	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// SortSlice orders candidates in place according to the query's ordering
// directives, resolving fields through the per-candidate accessor
func SortSlice[T any](q *Query, candidates []T, field func(candidate T, name string) (interface{}, bool)) {
	if len(q.Orders) == 0 {
		return
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		for _, order := range q.Orders {
			vi, okI := field(candidates[i], order.Field)
			vj, okJ := field(candidates[j], order.Field)
			if !okI || !okJ {
				continue
			}
			cmp, ok := compareValues(vi, vj)
			if !ok || cmp == 0 {
				continue
			}
			if order.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// ApplyPaging slices candidates according to offset/limit
func ApplyPaging[T any](q *Query, candidates []T) []T {
	if q.Offset >= len(candidates) {
		return []T{}
	}
	paged := candidates[q.Offset:]
	if q.Limit > 0 && q.Limit < len(paged) {
		paged = paged[:q.Limit]
	}
	return paged
}
