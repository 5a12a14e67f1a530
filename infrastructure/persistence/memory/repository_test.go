package memory

import (
	"context"
	"errors"
	"testing"

	"archkit/domain/shared"
)

type account struct {
	shared.BaseAggregate
	owner   string
	balance int
}

func newAccount(id, owner string, balance int) *account {
	return &account{
		BaseAggregate: shared.NewBaseAggregate(id),
		owner:         owner,
		balance:       balance,
	}
}

func (a *account) deposit(amount int) {
	a.balance += amount
	a.Touch()
}

func accountFields(a *account, name string) (interface{}, bool) {
	switch name {
	case "id":
		return a.ID(), true
	case "owner":
		return a.owner, true
	case "balance":
		return a.balance, true
	}
	return nil, false
}

func newTestRepo() *Repository[*account] {
	return NewRepository[*account](accountFields)
}

func TestSaveAndFindByID(t *testing.T) {
	repo := newTestRepo()
	ctx := context.Background()

	acc := newAccount("acc-1", "alice", 100)
	if err := repo.Save(ctx, acc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if acc.IsNew() {
		t.Fatal("Save must clear the new flag")
	}

	found, err := repo.FindByID(ctx, "acc-1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found.owner != "alice" {
		t.Fatalf("found = %+v", found)
	}

	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("missing ID error = %v, want ErrNotFound", err)
	}

	t.Log("✓ Save and find tests passed")
}

func TestSaveRejectsDuplicateID(t *testing.T) {
	repo := newTestRepo()
	ctx := context.Background()

	if err := repo.Save(ctx, newAccount("acc-1", "alice", 100)); err != nil {
		t.Fatalf("first Save: %v", err)
	}

	err := repo.Save(ctx, newAccount("acc-1", "bob", 0))
	if !errors.Is(err, shared.ErrConflict) {
		t.Fatalf("duplicate Save error = %v, want ErrConflict", err)
	}
}

func TestSaveDetectsConcurrentModification(t *testing.T) {
	repo := newTestRepo()
	ctx := context.Background()

	acc := newAccount("acc-1", "alice", 100)
	if err := repo.Save(ctx, acc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// 正常更新：行为方法 Touch 过版本号
	acc.deposit(50)
	if err := repo.Save(ctx, acc); err != nil {
		t.Fatalf("update Save: %v", err)
	}

	// 携带过期版本的副本模拟并发竞争者
	stale := newAccount("acc-1", "alice", 100)
	stale.MarkPersisted()
	err := repo.Save(ctx, stale)
	if !errors.Is(err, shared.ErrConcurrentModification) {
		t.Fatalf("stale Save error = %v, want ErrConcurrentModification", err)
	}

	t.Log("✓ Optimistic locking tests passed")
}

func TestSaveUpdateRequiresExistingAggregate(t *testing.T) {
	repo := newTestRepo()

	ghost := newAccount("ghost", "nobody", 0)
	ghost.MarkPersisted()

	err := repo.Save(context.Background(), ghost)
	if !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestFindAllWithQuery(t *testing.T) {
	repo := newTestRepo()
	ctx := context.Background()

	seed := []*account{
		newAccount("a1", "alice", 300),
		newAccount("a2", "bob", 100),
		newAccount("a3", "alice", 200),
		newAccount("a4", "carol", 50),
	}
	for _, acc := range seed {
		if err := repo.Save(ctx, acc); err != nil {
			t.Fatalf("seed Save: %v", err)
		}
	}

	// 条件过滤
	byOwner, err := repo.FindAll(ctx, shared.NewQuery().Where("owner", shared.OpEq, "alice"))
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(byOwner) != 2 {
		t.Fatalf("alice accounts = %d, want 2", len(byOwner))
	}

	// 排序与分页
	paged, err := repo.FindAll(ctx, shared.NewQuery().OrderByDesc("balance").Paginate(1, 2))
	if err != nil {
		t.Fatalf("FindAll paged: %v", err)
	}
	if len(paged) != 2 || paged[0].balance != 300 || paged[1].balance != 200 {
		t.Fatalf("paged = %+v", paged)
	}

	// 计数不受分页影响
	count, err := repo.Count(ctx, shared.NewQuery().Where("balance", shared.OpGte, 100))
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}

	// 非法规约被拒绝
	if _, err := repo.FindAll(ctx, shared.NewQuery().Where("owner", shared.Operator("regex"), "a.*")); err == nil {
		t.Fatal("invalid query accepted")
	}

	t.Log("✓ Query evaluation tests passed")
}

func TestFindOne(t *testing.T) {
	repo := newTestRepo()
	ctx := context.Background()

	_ = repo.Save(ctx, newAccount("a1", "alice", 300))

	found, err := repo.FindOne(ctx, shared.NewQuery().Where("owner", shared.OpEq, "alice"))
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if found.ID() != "a1" {
		t.Fatalf("found = %s", found.ID())
	}

	if _, err := repo.FindOne(ctx, shared.NewQuery().Where("owner", shared.OpEq, "nobody")); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestFindBySpecification(t *testing.T) {
	repo := newTestRepo()
	ctx := context.Background()

	_ = repo.Save(ctx, newAccount("a1", "alice", 300))
	_ = repo.Save(ctx, newAccount("a2", "bob", 100))

	rich := shared.SpecFunc[*account](func(ctx context.Context, a *account) bool {
		return a.balance >= 200
	})

	matches, err := repo.FindBySpecification(ctx, rich)
	if err != nil {
		t.Fatalf("FindBySpecification: %v", err)
	}
	if len(matches) != 1 || matches[0].ID() != "a1" {
		t.Fatalf("matches = %+v", matches)
	}
}

func TestRemove(t *testing.T) {
	repo := newTestRepo()
	ctx := context.Background()

	_ = repo.Save(ctx, newAccount("a1", "alice", 300))

	if err := repo.Remove(ctx, "a1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := repo.FindByID(ctx, "a1"); !errors.Is(err, shared.ErrNotFound) {
		t.Fatal("removed aggregate still findable")
	}
	if err := repo.Remove(ctx, "a1"); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("second Remove error = %v, want ErrNotFound", err)
	}
}

func TestContextCancellation(t *testing.T) {
	repo := newTestRepo()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := repo.FindByID(ctx, "a1"); err == nil {
		t.Fatal("cancelled context accepted")
	}
	if err := repo.Save(ctx, newAccount("a1", "alice", 0)); err == nil {
		t.Fatal("cancelled context accepted by Save")
	}
}
