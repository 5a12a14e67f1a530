package gormdb

import (
	"fmt"
	"regexp"
	"strings"

	"archkit/domain/shared"

	"gorm.io/gorm"
)

// Translator converts Query specifications to GORM scopes
// DDD principle: the domain describes WHAT to query (conditions as data),
// infrastructure decides HOW (SQL). Predicate-style Specifications cannot
// be translated and stay in-memory only.
type Translator struct{}

func NewTranslator() *Translator {
	return &Translator{}
}

// columnPattern guards against SQL injection through field names
// Field names come from code, not users, but a malformed query must fail
// loudly instead of producing broken SQL
var columnPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// Scope builds a GORM scope applying the query's conditions, preloads,
// ordering and paging
func (t *Translator) Scope(query *shared.Query) (func(*gorm.DB) *gorm.DB, error) {
	if query == nil {
		return func(db *gorm.DB) *gorm.DB { return db }, nil
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}
	for _, c := range query.Conditions {
		if !columnPattern.MatchString(c.Field) {
			return nil, fmt.Errorf("invalid field name %q", c.Field)
		}
	}
	for _, o := range query.Orders {
		if !columnPattern.MatchString(o.Field) {
			return nil, fmt.Errorf("invalid order field name %q", o.Field)
		}
	}

	return func(db *gorm.DB) *gorm.DB {
		for _, c := range query.Conditions {
			db = applyCondition(db, c)
		}
		for _, include := range query.Includes {
			db = db.Preload(include)
		}
		for _, o := range query.Orders {
			direction := "ASC"
			if o.Desc {
				direction = "DESC"
			}
			db = db.Order(fmt.Sprintf("%s %s", toColumn(o.Field), direction))
		}
		if query.Offset > 0 {
			db = db.Offset(query.Offset)
		}
		if query.Limit > 0 {
			db = db.Limit(query.Limit)
		}
		return db
	}, nil
}

// CountScope builds a GORM scope with conditions only, for COUNT queries
func (t *Translator) CountScope(query *shared.Query) (func(*gorm.DB) *gorm.DB, error) {
	if query == nil {
		return func(db *gorm.DB) *gorm.DB { return db }, nil
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}
	for _, c := range query.Conditions {
		if !columnPattern.MatchString(c.Field) {
			return nil, fmt.Errorf("invalid field name %q", c.Field)
		}
	}

	return func(db *gorm.DB) *gorm.DB {
		for _, c := range query.Conditions {
			db = applyCondition(db, c)
		}
		return db
	}, nil
}

func applyCondition(db *gorm.DB, c shared.Condition) *gorm.DB {
	column := toColumn(c.Field)
	switch c.Op {
	case shared.OpEq:
		return db.Where(column+" = ?", c.Value)
	case shared.OpNeq:
		return db.Where(column+" <> ?", c.Value)
	case shared.OpGt:
		return db.Where(column+" > ?", c.Value)
	case shared.OpGte:
		return db.Where(column+" >= ?", c.Value)
	case shared.OpLt:
		return db.Where(column+" < ?", c.Value)
	case shared.OpLte:
		return db.Where(column+" <= ?", c.Value)
	case shared.OpLike:
		if s, ok := c.Value.(string); ok {
			return db.Where(column+" LIKE ?", "%"+s+"%")
		}
		return db.Where(column+" LIKE ?", c.Value)
	case shared.OpIn:
		return db.Where(column+" IN ?", c.Value)
	}
	return db
}

// toColumn maps a camelCase field name to snake_case column convention
// Already-snake_case names pass through unchanged
func toColumn(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
