package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("unit-test-secret")

func TestTokenRoundTrip(t *testing.T) {
	original := &Principal{
		Subject:     "user-42",
		Name:        "Alice",
		Roles:       []string{"admin"},
		Permissions: []string{"task:write", "task:read"},
	}

	tokenString, err := NewToken(original, testSecret)
	if err != nil {
		t.Fatalf("NewToken failed: %v", err)
	}

	parsed, err := ParseToken(tokenString, testSecret)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if parsed.Subject != original.Subject {
		t.Errorf("Subject mismatch: got %s, want %s", parsed.Subject, original.Subject)
	}
	if parsed.Name != original.Name {
		t.Errorf("Name mismatch: got %s, want %s", parsed.Name, original.Name)
	}
	if !parsed.HasRole("admin") {
		t.Error("parsed principal should have role admin")
	}
	if !parsed.HasAllPermissions([]string{"task:write", "task:read"}) {
		t.Error("parsed principal should have all original permissions")
	}

	t.Log("✓ Token round trip tests passed")
}

func TestParseTokenRejections(t *testing.T) {
	valid, err := NewToken(&Principal{Subject: "user-1"}, testSecret)
	if err != nil {
		t.Fatalf("NewToken failed: %v", err)
	}

	// 错误密钥
	if _, err := ParseToken(valid, []byte("wrong-secret")); err == nil {
		t.Error("expected error for wrong secret")
	}

	// 格式非法
	if _, err := ParseToken("not-a-jwt", testSecret); err == nil {
		t.Error("expected error for malformed token")
	}

	// 缺少 subject
	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Name: "nobody"})
	signed, err := noSubject.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := ParseToken(signed, testSecret); err == nil {
		t.Error("expected error for token without subject")
	}

	// 已过期
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-2",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	signedExpired, err := expired.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := ParseToken(signedExpired, testSecret); err == nil {
		t.Error("expected error for expired token")
	}

	t.Log("✓ Token rejection tests passed")
}

func TestTokenVerifier(t *testing.T) {
	verifier := NewTokenVerifier(testSecret)

	tokenString, err := NewToken(&Principal{Subject: "user-7", Permissions: []string{"task:read"}}, testSecret)
	if err != nil {
		t.Fatalf("NewToken failed: %v", err)
	}

	p, err := verifier.Verify(tokenString)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if p.Subject != "user-7" {
		t.Errorf("Subject = %s, want user-7", p.Subject)
	}
	if _, err := verifier.Verify("garbage"); err == nil {
		t.Error("expected error for garbage token")
	}

	t.Log("✓ TokenVerifier tests passed")
}

func TestPrincipalChecks(t *testing.T) {
	p := &Principal{
		Subject:     "user-9",
		Roles:       []string{"editor"},
		Permissions: []string{"doc:read", "doc:write"},
	}

	if !p.HasRole("editor") {
		t.Error("HasRole(editor) should be true")
	}
	if p.HasRole("admin") {
		t.Error("HasRole(admin) should be false")
	}
	if !p.HasPermission("doc:write") {
		t.Error("HasPermission(doc:write) should be true")
	}
	if p.HasPermission("doc:delete") {
		t.Error("HasPermission(doc:delete) should be false")
	}
	if p.HasAllPermissions([]string{"doc:read", "doc:delete"}) {
		t.Error("HasAllPermissions should fail on missing permission")
	}
	if !p.HasAllPermissions(nil) {
		t.Error("HasAllPermissions(nil) should be true")
	}

	t.Log("✓ Principal permission tests passed")
}

func TestPrincipalContext(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("empty context should not contain a principal")
	}

	p := &Principal{Subject: "user-3"}
	ctx := WithPrincipal(context.Background(), p)

	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("FromContext should find the principal")
	}
	if got.Subject != "user-3" {
		t.Errorf("Subject = %s, want user-3", got.Subject)
	}

	t.Log("✓ Principal context tests passed")
}
