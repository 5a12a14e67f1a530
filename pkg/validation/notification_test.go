package validation

import (
	"strings"
	"testing"

	"archkit/pkg/result"
)

func TestEmptyNotification(t *testing.T) {
	n := New()
	if n.HasErrors() {
		t.Fatal("new notification must not have errors")
	}
	if len(n.Errors()) != 0 {
		t.Fatalf("Errors() = %v, want empty", n.Errors())
	}
}

func TestCollectsMultipleErrors(t *testing.T) {
	n := New().
		Add("title", "title cannot be empty").
		Addf("age", "age must be at least %d", 18).
		AddIf(true, "email", "email is invalid").
		AddIf(false, "ignored", "must not appear")

	if !n.HasErrors() {
		t.Fatal("expected errors")
	}
	errs := n.Errors()
	if len(errs) != 3 {
		t.Fatalf("len(Errors()) = %d, want 3", len(errs))
	}
	if errs[1].Message != "age must be at least 18" {
		t.Fatalf("Addf message = %q", errs[1].Message)
	}
	for _, e := range errs {
		if e.Field == "ignored" {
			t.Fatal("AddIf(false) recorded an error")
		}
	}

	t.Log("✓ Error collection tests passed")
}

func TestAppendMergesNotifications(t *testing.T) {
	base := New().Add("a", "first")
	other := New().Add("b", "second").AddError(result.FieldError("c", "third"))

	base.Append(other)
	if len(base.Errors()) != 3 {
		t.Fatalf("len = %d, want 3", len(base.Errors()))
	}

	base.Append(nil) // nil 合并是空操作
	if len(base.Errors()) != 3 {
		t.Fatalf("append nil changed errors: %d", len(base.Errors()))
	}
}

func TestErrorsReturnsCopy(t *testing.T) {
	n := New().Add("field", "message")
	errs := n.Errors()
	errs[0].Message = "mutated"

	if n.Errors()[0].Message != "message" {
		t.Fatal("Errors() exposed internal slice")
	}
}

func TestErrorString(t *testing.T) {
	n := New().Add("title", "title cannot be empty").Add("age", "age must be positive")
	msg := n.Error()
	if !strings.Contains(msg, "title cannot be empty") || !strings.Contains(msg, "age must be positive") {
		t.Fatalf("Error() = %q", msg)
	}
}
