package relation

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/kondate/internal/model"
)

// 自己購読は存在チェックより先に拒否され、リポジトリに到達しないことを検証
func TestMutator_Add_SelfSubscriptionForbidden(t *testing.T) {
	created := false
	repo := &countingRelationRepo{
		createFn: func(ctx context.Context, userID int64, kind model.RelationKind, targetID int64) error {
			created = true
			return nil
		},
	}
	m := NewMutator(repo)

	err := m.Add(context.Background(), 42, model.RelationSubscription, 42)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeSelfRelationForbidden {
		t.Fatalf("Add() error = %v, want SELF_RELATION_FORBIDDEN", err)
	}
	if created {
		t.Error("repository Create should not be reached for self subscription")
	}
}

// お気に入り・買い物カゴでは自分のレシピ（同じ数値ID）でも拒否されないことを検証
func TestMutator_Add_SelfCheckOnlyForSubscription(t *testing.T) {
	for _, kind := range []model.RelationKind{model.RelationFavorite, model.RelationShoppingCart} {
		repo := &countingRelationRepo{}
		m := NewMutator(repo)

		if err := m.Add(context.Background(), 42, kind, 42); err != nil {
			t.Errorf("Add(%s) error = %v, want nil", kind, err)
		}
	}
}

// 重複追加はDUPLICATE_RELATIONとして伝播することを検証
func TestMutator_Add_Duplicate(t *testing.T) {
	repo := &countingRelationRepo{
		createFn: func(ctx context.Context, userID int64, kind model.RelationKind, targetID int64) error {
			return model.NewDuplicateRelationError(kind)
		},
	}
	m := NewMutator(repo)

	err := m.Add(context.Background(), 42, model.RelationFavorite, 7)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDuplicateRelation {
		t.Fatalf("Add() error = %v, want DUPLICATE_RELATION", err)
	}
}

// 存在しないリレーションの削除はRELATION_NOT_FOUNDになることを検証
func TestMutator_Remove_NotFound(t *testing.T) {
	repo := &countingRelationRepo{
		deleteFn: func(ctx context.Context, userID int64, kind model.RelationKind, targetID int64) error {
			return model.NewRelationNotFoundError(kind)
		},
	}
	m := NewMutator(repo)

	err := m.Remove(context.Background(), 42, model.RelationShoppingCart, 7)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeRelationNotFound {
		t.Fatalf("Remove() error = %v, want RELATION_NOT_FOUND", err)
	}
}

// 正常系の追加・削除がリポジトリに委譲されることを検証
func TestMutator_AddRemove_Success(t *testing.T) {
	var gotAdd, gotRemove []int64
	repo := &countingRelationRepo{
		createFn: func(ctx context.Context, userID int64, kind model.RelationKind, targetID int64) error {
			gotAdd = []int64{userID, targetID}
			return nil
		},
		deleteFn: func(ctx context.Context, userID int64, kind model.RelationKind, targetID int64) error {
			gotRemove = []int64{userID, targetID}
			return nil
		},
	}
	m := NewMutator(repo)

	if err := m.Add(context.Background(), 1, model.RelationFavorite, 2); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := m.Remove(context.Background(), 1, model.RelationFavorite, 2); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	if gotAdd[0] != 1 || gotAdd[1] != 2 {
		t.Errorf("Add delegated with %v, want [1 2]", gotAdd)
	}
	if gotRemove[0] != 1 || gotRemove[1] != 2 {
		t.Errorf("Remove delegated with %v, want [1 2]", gotRemove)
	}
}
