package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"caretrack/internal/adapters/storage"
	domain "caretrack/internal/domain/account"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := storage.Open(":memory:", 1)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewSQLiteStore(db)
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	a := domain.Account{ID: "a1", Username: "admin", PasswordHash: "hash", Role: domain.RoleAdmin, CreatedAt: created}
	if err := s.Save(ctx, a); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.GetByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if got.ID != "a1" || got.Role != domain.RoleAdmin || !got.CreatedAt.Equal(created) {
		t.Errorf("GetByUsername() = %+v", got)
	}
	if !got.LockedUntil.IsZero() {
		t.Errorf("LockedUntil = %v, want zero", got.LockedUntil)
	}

	locked := created.Add(time.Hour)
	got.FailedLogins = 5
	got.LockedUntil = locked
	if err := s.Save(ctx, got); err != nil {
		t.Fatalf("Save(update) error = %v", err)
	}
	again, err := s.GetByID(ctx, "a1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if again.FailedLogins != 5 || !again.LockedUntil.Equal(locked) {
		t.Errorf("after update = %+v", again)
	}
}

func TestSQLiteStore_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.GetByID(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetByUsername(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByUsername() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_DuplicateUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.Save(ctx, domain.Account{ID: "a1", Username: "sam", Role: domain.RoleStaff})

	err := s.Save(ctx, domain.Account{ID: "a2", Username: "sam", Role: domain.RoleStaff})
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Errorf("Save(duplicate) error = %v, want ErrDuplicateUsername", err)
	}
}

func TestSQLiteStore_ListAndCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, a := range []domain.Account{
		{ID: "1", Username: "admin", Role: domain.RoleAdmin},
		{ID: "2", Username: "sam", Role: domain.RoleStaff},
		{ID: "3", Username: "kim", Role: domain.RoleStaff},
	} {
		a.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.Save(ctx, a); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	all, err := s.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 || all[0].Username != "admin" {
		t.Errorf("List() = %v", all)
	}
	staff, _ := s.List(ctx, ListFilter{Role: domain.RoleStaff, Limit: 1})
	if len(staff) != 1 || staff[0].Username != "sam" {
		t.Errorf("List(staff, limit 1) = %v", staff)
	}
	if n, _ := s.Count(ctx); n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}
}
