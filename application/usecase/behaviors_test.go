package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"archkit/domain/shared"
	"archkit/pkg/auth"
	"archkit/pkg/result"
	"archkit/pkg/validation"
)

// ============================================================================
// 校验行为
// ============================================================================

type createCommand struct {
	CommandBase
	Title string
	Key   string
}

func (createCommand) RequestName() string { return "test.create" }

func (c createCommand) Validate(ctx context.Context) *validation.Notification {
	return validation.New().AddIf(c.Title == "", "title", "title cannot be empty")
}

func (c createCommand) IdempotencyKey() string { return c.Key }

func newPipelineMediator(t *testing.T, behaviors ...Behavior) *Mediator {
	t.Helper()
	m := NewMediator(WithBehaviors(behaviors...))
	MustRegister[createCommand, string](m, HandlerFunc[createCommand, string](func(ctx context.Context, c createCommand) result.Result[string] {
		return result.Created("id-" + c.Title)
	}))
	return m
}

func TestValidationBehaviorShortCircuits(t *testing.T) {
	m := newPipelineMediator(t, NewValidationBehavior())

	res := Send[string](context.Background(), m, createCommand{Title: ""})
	if res.Status != result.StatusInvalid {
		t.Fatalf("status = %s, want %s", res.Status, result.StatusInvalid)
	}
	if res.FirstError().Field != "title" {
		t.Fatalf("errors = %+v", res.Errors)
	}

	ok := Send[string](context.Background(), m, createCommand{Title: "report"})
	if !ok.IsSuccess() || ok.Value != "id-report" {
		t.Fatalf("valid request = %+v", ok)
	}

	t.Log("✓ Validation behavior tests passed")
}

// ============================================================================
// 授权行为
// ============================================================================

type guardedCommand struct {
	CommandBase
}

func (guardedCommand) RequestName() string { return "test.guarded" }

func (guardedCommand) RequiredPermissions() []string { return []string{"task:write"} }

func TestAuthorizationBehavior(t *testing.T) {
	m := NewMediator(WithBehaviors(NewAuthorizationBehavior()))
	MustRegister[guardedCommand, string](m, HandlerFunc[guardedCommand, string](func(ctx context.Context, c guardedCommand) result.Result[string] {
		return result.Ok("done")
	}))

	// 无主体 → Unauthorized
	res := Send[string](context.Background(), m, guardedCommand{})
	if res.Status != result.StatusUnauthorized {
		t.Fatalf("anonymous status = %s, want %s", res.Status, result.StatusUnauthorized)
	}

	// 主体权限不足 → Forbidden
	reader := &auth.Principal{Subject: "u1", Permissions: []string{"task:read"}}
	res = Send[string](auth.WithPrincipal(context.Background(), reader), m, guardedCommand{})
	if res.Status != result.StatusForbidden {
		t.Fatalf("reader status = %s, want %s", res.Status, result.StatusForbidden)
	}

	// 权限齐备 → 放行
	writer := &auth.Principal{Subject: "u2", Permissions: []string{"task:write"}}
	res = Send[string](auth.WithPrincipal(context.Background(), writer), m, guardedCommand{})
	if !res.IsSuccess() {
		t.Fatalf("writer result = %+v", res)
	}

	t.Log("✓ Authorization behavior tests passed")
}

// ============================================================================
// 异常恢复行为
// ============================================================================

type panicQuery struct {
	QueryBase
}

func (panicQuery) RequestName() string { return "test.panic" }

func TestRecoveryBehaviorConvertsPanic(t *testing.T) {
	m := NewMediator(WithBehaviors(NewRecoveryBehavior()))
	MustRegister[panicQuery, string](m, HandlerFunc[panicQuery, string](func(ctx context.Context, q panicQuery) result.Result[string] {
		panic("handler exploded")
	}))

	res := Send[string](context.Background(), m, panicQuery{})
	if res.Status != result.StatusCriticalError {
		t.Fatalf("status = %s, want %s", res.Status, result.StatusCriticalError)
	}
	// 内部细节不得出现在对外错误里
	if res.FirstError().Message != "internal error" {
		t.Fatalf("message = %q leaks internals", res.FirstError().Message)
	}
}

// ============================================================================
// 幂等行为
// ============================================================================

// fakeIdempotencyStore 进程内存储，行为与基础设施实现一致
type fakeIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]*IdempotencyRecord
}

func newFakeStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{records: make(map[string]*IdempotencyRecord)}
}

func (s *fakeIdempotencyStore) Begin(ctx context.Context, key string, ttl time.Duration) (*IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[key]; ok && time.Now().Before(record.ExpiresAt) {
		return record, true, nil
	}
	s.records[key] = &IdempotencyRecord{Key: key, ExpiresAt: time.Now().Add(ttl)}
	return nil, false, nil
}

func (s *fakeIdempotencyStore) Complete(ctx context.Context, key string, status result.Status, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[key]; ok {
		record.Completed = true
		record.Status = status
		record.Payload = payload
	}
	return nil
}

func (s *fakeIdempotencyStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func TestIdempotencyBehaviorReplaysCompletedResult(t *testing.T) {
	store := newFakeStore()
	calls := 0

	m := NewMediator(WithBehaviors(NewIdempotencyBehavior(store, time.Hour)))
	MustRegister[createCommand, string](m, HandlerFunc[createCommand, string](func(ctx context.Context, c createCommand) result.Result[string] {
		calls++
		return result.Created("task-1")
	}))

	first := Send[string](context.Background(), m, createCommand{Title: "a", Key: "key-1"})
	second := Send[string](context.Background(), m, createCommand{Title: "a", Key: "key-1"})

	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
	if first.Status != second.Status || first.Value != second.Value {
		t.Fatalf("replay mismatch: %+v vs %+v", first, second)
	}

	// 重放结果与原始结果字节级一致
	firstJSON, _ := json.Marshal(first)
	secondJSON, _ := json.Marshal(second)
	if string(firstJSON) != string(secondJSON) {
		t.Fatalf("replayed result differs: %s vs %s", firstJSON, secondJSON)
	}

	t.Log("✓ Idempotent replay tests passed")
}

func TestIdempotencyBehaviorRejectsInFlightDuplicates(t *testing.T) {
	store := newFakeStore()
	// 预先认领但不完成，模拟执行中的请求
	_, _, _ = store.Begin(context.Background(), "busy", time.Hour)

	m := NewMediator(WithBehaviors(NewIdempotencyBehavior(store, time.Hour)))
	MustRegister[createCommand, string](m, HandlerFunc[createCommand, string](func(ctx context.Context, c createCommand) result.Result[string] {
		return result.Created("task-1")
	}))

	res := Send[string](context.Background(), m, createCommand{Title: "a", Key: "busy"})
	if res.Status != result.StatusConflict {
		t.Fatalf("status = %s, want %s", res.Status, result.StatusConflict)
	}
}

func TestIdempotencyBehaviorReleasesKeyOnFailure(t *testing.T) {
	store := newFakeStore()
	attempt := 0

	m := NewMediator(WithBehaviors(NewIdempotencyBehavior(store, time.Hour)))
	MustRegister[createCommand, string](m, HandlerFunc[createCommand, string](func(ctx context.Context, c createCommand) result.Result[string] {
		attempt++
		if attempt == 1 {
			return result.Fail[string]("transient failure")
		}
		return result.Created("task-1")
	}))

	first := Send[string](context.Background(), m, createCommand{Title: "a", Key: "retry"})
	if first.IsSuccess() {
		t.Fatalf("first attempt = %+v, want failure", first)
	}

	// 失败释放了键，重试必须真正执行
	second := Send[string](context.Background(), m, createCommand{Title: "a", Key: "retry"})
	if !second.IsSuccess() || attempt != 2 {
		t.Fatalf("retry = %+v, attempts = %d", second, attempt)
	}
}

func TestIdempotencyBehaviorIgnoresRequestsWithoutKey(t *testing.T) {
	store := newFakeStore()
	calls := 0

	m := NewMediator(WithBehaviors(NewIdempotencyBehavior(store, time.Hour)))
	MustRegister[createCommand, string](m, HandlerFunc[createCommand, string](func(ctx context.Context, c createCommand) result.Result[string] {
		calls++
		return result.Created("task-1")
	}))

	Send[string](context.Background(), m, createCommand{Title: "a"})
	Send[string](context.Background(), m, createCommand{Title: "a"})
	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2 without idempotency key", calls)
	}
}

// ============================================================================
// 事务行为
// ============================================================================

// fakeUnitOfWork 记录提交/回滚决策
type fakeUnitOfWork struct {
	executed   bool
	committed  bool
	rolledBack bool
	executeErr error
}

func (u *fakeUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	u.executed = true
	if err := fn(ctx); err != nil {
		u.rolledBack = true
		return err
	}
	if u.executeErr != nil {
		return u.executeErr
	}
	u.committed = true
	return nil
}

func (u *fakeUnitOfWork) RegisterNew(shared.AggregateRoot)     {}
func (u *fakeUnitOfWork) RegisterDirty(shared.AggregateRoot)   {}
func (u *fakeUnitOfWork) RegisterRemoved(shared.AggregateRoot) {}

type fakeUoWFactory struct {
	last *fakeUnitOfWork
}

func (f *fakeUoWFactory) New() shared.UnitOfWork {
	f.last = &fakeUnitOfWork{}
	return f.last
}

func TestTransactionBehaviorCommitsOnSuccess(t *testing.T) {
	factory := &fakeUoWFactory{}
	m := NewMediator(WithBehaviors(NewTransactionBehavior(factory)))
	MustRegister[createCommand, string](m, HandlerFunc[createCommand, string](func(ctx context.Context, c createCommand) result.Result[string] {
		if _, ok := UnitOfWorkFromContext(ctx); !ok {
			t.Error("handler context carries no unit of work")
		}
		return result.Created("task-1")
	}))

	res := Send[string](context.Background(), m, createCommand{Title: "a"})
	if !res.IsSuccess() {
		t.Fatalf("result = %+v", res)
	}
	if !factory.last.committed || factory.last.rolledBack {
		t.Fatalf("uow state = %+v, want committed", factory.last)
	}
}

func TestTransactionBehaviorRollsBackOnFailureResult(t *testing.T) {
	factory := &fakeUoWFactory{}
	m := NewMediator(WithBehaviors(NewTransactionBehavior(factory)))
	MustRegister[createCommand, string](m, HandlerFunc[createCommand, string](func(ctx context.Context, c createCommand) result.Result[string] {
		return result.Conflict[string]("duplicate title")
	}))

	res := Send[string](context.Background(), m, createCommand{Title: "a"})

	// 业务失败触发回滚，但失败结果依然完整传出
	if res.Status != result.StatusConflict {
		t.Fatalf("status = %s, want %s", res.Status, result.StatusConflict)
	}
	if !factory.last.rolledBack || factory.last.committed {
		t.Fatalf("uow state = %+v, want rolled back", factory.last)
	}

	t.Log("✓ Transaction rollback tests passed")
}

func TestTransactionBehaviorSkipsQueries(t *testing.T) {
	factory := &fakeUoWFactory{}
	m := NewMediator(WithBehaviors(NewTransactionBehavior(factory)))
	MustRegister[echoQuery, string](m, echoHandler())

	res := Send[string](context.Background(), m, echoQuery{Message: "read-only"})
	if !res.IsSuccess() {
		t.Fatalf("result = %+v", res)
	}
	if factory.last != nil {
		t.Fatal("query must not open a transaction")
	}
}

func TestTransactionBehaviorPropagatesInfrastructureError(t *testing.T) {
	factory := &fakeUoWFactory{}
	m := NewMediator(WithBehaviors(NewTransactionBehavior(factory)))
	MustRegister[createCommand, string](m, HandlerFunc[createCommand, string](func(ctx context.Context, c createCommand) result.Result[string] {
		uow := factory.last
		uow.executeErr = errors.New("commit failed: connection lost")
		return result.Created("task-1")
	}))

	res := Send[string](context.Background(), m, createCommand{Title: "a"})
	if res.Status != result.StatusError {
		t.Fatalf("status = %s, want %s", res.Status, result.StatusError)
	}
}
