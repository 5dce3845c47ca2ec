package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/librarium/librarium-backend/pkg/db/models"
	pkgerrors "github.com/librarium/librarium-backend/pkg/errors"
)

type fakeRepository struct {
	findFn   func(ctx context.Context, key string) (*models.Setting, error)
	upsertFn func(ctx context.Context, key, value, valueType string) error

	findCalls int
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Find(ctx context.Context, key string) (*models.Setting, error) {
	f.findCalls++
	if f.findFn != nil {
		return f.findFn(ctx, key)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) Upsert(ctx context.Context, key, value, valueType string) error {
	if f.upsertFn != nil {
		return f.upsertFn(ctx, key, value, valueType)
	}
	return nil
}

func (f *fakeRepository) List(ctx context.Context) ([]models.Setting, error) {
	return nil, nil
}

func newStoreWithRepo(t *testing.T, repo Repository) Store {
	t.Helper()
	store, err := NewStore(StoreParams{Repo: repo})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestStore_GetFallsBackWhenMissing(t *testing.T) {
	store := newStoreWithRepo(t, &fakeRepository{})
	if got := store.Get(context.Background(), KeyFinePerDay, "5"); got != "5" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestStore_GetCachesFoundValues(t *testing.T) {
	repo := &fakeRepository{
		findFn: func(ctx context.Context, key string) (*models.Setting, error) {
			return &models.Setting{Key: key, Value: "21"}, nil
		},
	}
	store := newStoreWithRepo(t, repo)

	ctx := context.Background()
	if got := store.Get(ctx, KeyReturnPeriodDays, "14"); got != "21" {
		t.Fatalf("expected 21, got %q", got)
	}
	if got := store.Get(ctx, KeyReturnPeriodDays, "14"); got != "21" {
		t.Fatalf("expected cached 21, got %q", got)
	}
	if repo.findCalls != 1 {
		t.Fatalf("expected single repo lookup, got %d", repo.findCalls)
	}
}

func TestStore_GetIntAndDecimal(t *testing.T) {
	repo := &fakeRepository{
		findFn: func(ctx context.Context, key string) (*models.Setting, error) {
			switch key {
			case KeyReturnPeriodDays:
				return &models.Setting{Key: key, Value: "7"}, nil
			case KeyFinePerDay:
				return &models.Setting{Key: key, Value: "2.50"}, nil
			}
			return nil, gorm.ErrRecordNotFound
		},
	}
	store := newStoreWithRepo(t, repo)

	ctx := context.Background()
	if got := store.GetInt(ctx, KeyReturnPeriodDays, 14); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
	if got := store.GetInt(ctx, "missing", 3); got != 3 {
		t.Fatalf("expected int fallback, got %d", got)
	}
	want := decimal.RequireFromString("2.50")
	if got := store.GetDecimal(ctx, KeyFinePerDay, decimal.NewFromInt(5)); !got.Equal(want) {
		t.Fatalf("expected 2.50, got %s", got)
	}
}

func TestStore_SetInvalidatesCache(t *testing.T) {
	value := "14"
	repo := &fakeRepository{
		findFn: func(ctx context.Context, key string) (*models.Setting, error) {
			return &models.Setting{Key: key, Value: value}, nil
		},
	}
	repo.upsertFn = func(ctx context.Context, key, v, valueType string) error {
		value = v
		return nil
	}
	store := newStoreWithRepo(t, repo)

	ctx := context.Background()
	if got := store.Get(ctx, KeyReturnPeriodDays, ""); got != "14" {
		t.Fatalf("expected 14, got %q", got)
	}
	if err := store.Set(ctx, KeyReturnPeriodDays, "30", TypeInt); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := store.Get(ctx, KeyReturnPeriodDays, ""); got != "30" {
		t.Fatalf("expected fresh 30 after invalidation, got %q", got)
	}
}

func TestStore_SetValidatesValueType(t *testing.T) {
	store := newStoreWithRepo(t, &fakeRepository{})
	ctx := context.Background()

	if err := store.Set(ctx, KeyReturnPeriodDays, "abc", TypeInt); err == nil {
		t.Fatal("expected validation error for non-integer")
	} else if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
	if err := store.Set(ctx, KeyFinePerDay, "x", TypeDecimal); err == nil {
		t.Fatal("expected validation error for non-decimal")
	}
	if err := store.Set(ctx, "flag", "maybe", TypeBool); err == nil {
		t.Fatal("expected validation error for non-boolean")
	}
	if err := store.Set(ctx, "", "1", TypeInt); err == nil {
		t.Fatal("expected validation error for empty key")
	}
	if err := store.Set(ctx, "k", "v", "blob"); err == nil {
		t.Fatal("expected validation error for unknown value type")
	}
}

func TestStore_SetWrapsRepoError(t *testing.T) {
	repo := &fakeRepository{
		upsertFn: func(ctx context.Context, key, value, valueType string) error {
			return errors.New("boom")
		},
	}
	store := newStoreWithRepo(t, repo)
	err := store.Set(context.Background(), KeyFinePerDay, "5", TypeDecimal)
	if err == nil {
		t.Fatal("expected error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency code, got %v", err)
	}
}
