package gormdb

import (
	"testing"

	"archkit/domain/shared"
)

func TestToColumn(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"createdAt", "created_at"},
		{"id", "id"},
		{"orderItemCount", "order_item_count"},
		{"already_snake", "already_snake"},
		{"Status", "status"},
	}

	for _, tt := range tests {
		if got := toColumn(tt.field); got != tt.want {
			t.Errorf("toColumn(%q) = %q, want %q", tt.field, got, tt.want)
		}
	}

	t.Log("✓ Column name translation tests passed")
}

func TestScopeRejectsInvalidQueries(t *testing.T) {
	translator := NewTranslator()

	// 非法运算符在 Validate 阶段被拒绝
	bad := shared.NewQuery().Where("status", shared.Operator("bogus"), "open")
	if _, err := translator.Scope(bad); err == nil {
		t.Error("expected error for unknown operator")
	}

	// 字段名不符合列名约束
	injection := shared.NewQuery().Where("status; DROP TABLE tasks", shared.OpEq, "open")
	if _, err := translator.Scope(injection); err == nil {
		t.Error("expected error for malformed field name")
	}

	// 排序字段同样受约束
	badOrder := shared.NewQuery().OrderBy("created_at) --")
	if _, err := translator.Scope(badOrder); err == nil {
		t.Error("expected error for malformed order field")
	}

	t.Log("✓ Scope validation tests passed")
}

func TestScopeAcceptsValidQueries(t *testing.T) {
	translator := NewTranslator()

	query := shared.NewQuery().
		Where("status", shared.OpEq, "open").
		Where("createdAt", shared.OpGte, "2026-01-01").
		OrderByDesc("createdAt").
		Paginate(2, 20)

	scope, err := translator.Scope(query)
	if err != nil {
		t.Fatalf("Scope failed: %v", err)
	}
	if scope == nil {
		t.Fatal("Scope returned nil function")
	}

	countScope, err := translator.CountScope(query)
	if err != nil {
		t.Fatalf("CountScope failed: %v", err)
	}
	if countScope == nil {
		t.Fatal("CountScope returned nil function")
	}

	t.Log("✓ Scope construction tests passed")
}

func TestNilQueryScope(t *testing.T) {
	translator := NewTranslator()

	scope, err := translator.Scope(nil)
	if err != nil {
		t.Fatalf("Scope(nil) failed: %v", err)
	}
	if scope == nil {
		t.Fatal("Scope(nil) returned nil function")
	}
	countScope, err := translator.CountScope(nil)
	if err != nil {
		t.Fatalf("CountScope(nil) failed: %v", err)
	}
	if countScope == nil {
		t.Fatal("CountScope(nil) returned nil function")
	}

	t.Log("✓ Nil query tests passed")
}
