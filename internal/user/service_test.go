package user

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/kondate/internal/model"
	"github.com/hitoshi/kondate/internal/relation"
	"github.com/hitoshi/kondate/internal/repository"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn  func(ctx context.Context, id int64) (*model.User, error)
	listFn      func(ctx context.Context, limit, offset int) ([]*model.User, error)
	countFn     func(ctx context.Context) (int, error)
	listByIDsFn func(ctx context.Context, ids []int64) ([]*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error { return nil }

func (m *mockUserRepo) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockUserRepo) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

func (m *mockUserRepo) ListByIDs(ctx context.Context, ids []int64) ([]*model.User, error) {
	if m.listByIDsFn != nil {
		return m.listByIDsFn(ctx, ids)
	}
	return nil, nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return nil
}
func (m *mockUserRepo) UpdateAvatar(ctx context.Context, id int64, avatar string) error { return nil }

type mockRecipeRepo struct {
	repository.RecipeRepository

	listByAuthorIDsFn    func(ctx context.Context, authorIDs []int64) ([]*model.Recipe, error)
	listByAuthorIDsCalls int
}

func (m *mockRecipeRepo) ListByAuthorIDs(ctx context.Context, authorIDs []int64) ([]*model.Recipe, error) {
	m.listByAuthorIDsCalls++
	if m.listByAuthorIDsFn != nil {
		return m.listByAuthorIDsFn(ctx, authorIDs)
	}
	return nil, nil
}

type mockRelationRepo struct {
	listTargetIDsFn func(ctx context.Context, userID int64, kind model.RelationKind) ([]int64, error)
	createFn        func(ctx context.Context, userID int64, kind model.RelationKind, targetID int64) error
	deleteFn        func(ctx context.Context, userID int64, kind model.RelationKind, targetID int64) error
}

func (m *mockRelationRepo) ListTargetIDs(ctx context.Context, userID int64, kind model.RelationKind) ([]int64, error) {
	if m.listTargetIDsFn != nil {
		return m.listTargetIDsFn(ctx, userID, kind)
	}
	return nil, nil
}

func (m *mockRelationRepo) Create(ctx context.Context, userID int64, kind model.RelationKind, targetID int64) error {
	if m.createFn != nil {
		return m.createFn(ctx, userID, kind, targetID)
	}
	return nil
}

func (m *mockRelationRepo) Delete(ctx context.Context, userID int64, kind model.RelationKind, targetID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, kind, targetID)
	}
	return nil
}

var (
	_ repository.UserRepository     = (*mockUserRepo)(nil)
	_ repository.RelationRepository = (*mockRelationRepo)(nil)
)

func newTestService(userRepo *mockUserRepo, recipeRepo *mockRecipeRepo, relRepo *mockRelationRepo) *Service {
	return NewService(userRepo, recipeRepo, relation.NewAnnotator(relRepo), relation.NewMutator(relRepo))
}

func testUser(id int64) *model.User {
	return &model.User{ID: id, Email: "u@example.com", Username: "vasya"}
}

// --- テスト ---

// プロフィールの購読フラグが閲覧ユーザー視点で埋まることを検証
func TestService_GetProfile(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return testUser(id), nil
		},
	}
	relRepo := &mockRelationRepo{
		listTargetIDsFn: func(ctx context.Context, userID int64, kind model.RelationKind) ([]int64, error) {
			return []int64{7}, nil
		},
	}
	svc := newTestService(userRepo, &mockRecipeRepo{}, relRepo)

	profile, err := svc.GetProfile(context.Background(), 42, 7)
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if !profile.IsSubscribed {
		t.Error("IsSubscribed = false, want true")
	}

	// 匿名ユーザーは常にfalse
	profile, err = svc.GetProfile(context.Background(), model.AnonymousUserID, 7)
	if err != nil {
		t.Fatalf("GetProfile(anonymous) error = %v", err)
	}
	if profile.IsSubscribed {
		t.Error("anonymous IsSubscribed = true, want false")
	}
}

// 実在しないユーザーがUSER_NOT_FOUNDになることを検証
func TestService_GetProfile_NotFound(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockRecipeRepo{}, &mockRelationRepo{})

	_, err := svc.GetProfile(context.Background(), 42, 999)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("GetProfile() error = %v, want USER_NOT_FOUND", err)
	}
}

// 自分自身への購読が拒否されることを検証
func TestService_Subscribe_SelfForbidden(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return testUser(id), nil
		},
	}
	relRepo := &mockRelationRepo{
		createFn: func(ctx context.Context, userID int64, kind model.RelationKind, targetID int64) error {
			t.Error("self subscription should not reach storage")
			return nil
		},
	}
	svc := newTestService(userRepo, &mockRecipeRepo{}, relRepo)

	_, err := svc.Subscribe(context.Background(), 42, 42, 0)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeSelfRelationForbidden {
		t.Errorf("Subscribe(self) error = %v, want SELF_RELATION_FORBIDDEN", err)
	}
}

// 購読成功時にレシピ短縮一覧と総数が返ることを検証
func TestService_Subscribe_ReturnsInfo(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return testUser(id), nil
		},
	}
	recipeRepo := &mockRecipeRepo{
		listByAuthorIDsFn: func(ctx context.Context, authorIDs []int64) ([]*model.Recipe, error) {
			return []*model.Recipe{
				{ID: 3, AuthorID: 7, Name: "Суп"},
				{ID: 2, AuthorID: 7, Name: "Каша"},
				{ID: 1, AuthorID: 7, Name: "Борщ"},
			}, nil
		},
	}
	svc := newTestService(userRepo, recipeRepo, &mockRelationRepo{})

	info, err := svc.Subscribe(context.Background(), 42, 7, 2)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if !info.IsSubscribed {
		t.Error("IsSubscribed = false, want true")
	}
	if info.RecipesCount != 3 {
		t.Errorf("RecipesCount = %d, want 3", info.RecipesCount)
	}
	// recipes_limitで切り詰めても総数は全件
	if len(info.Recipes) != 2 {
		t.Errorf("len(Recipes) = %d, want 2 (limited)", len(info.Recipes))
	}
	if info.Recipes[0].Name != "Суп" {
		t.Errorf("Recipes[0].Name = %q, want newest first", info.Recipes[0].Name)
	}
}

// 重複購読と実在しない著者のエラーを検証
func TestService_Subscribe_Errors(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			if id == 7 {
				return testUser(id), nil
			}
			return nil, nil
		},
	}
	relRepo := &mockRelationRepo{
		createFn: func(ctx context.Context, userID int64, kind model.RelationKind, targetID int64) error {
			return model.NewDuplicateRelationError(kind)
		},
	}
	svc := newTestService(userRepo, &mockRecipeRepo{}, relRepo)

	_, err := svc.Subscribe(context.Background(), 42, 999, 0)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("Subscribe(missing author) error = %v, want USER_NOT_FOUND", err)
	}

	_, err = svc.Subscribe(context.Background(), 42, 7, 0)
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDuplicateRelation {
		t.Errorf("Subscribe(duplicate) error = %v, want DUPLICATE_RELATION", err)
	}
}

// 未購読の解除がRELATION_NOT_FOUNDになることを検証
func TestService_Unsubscribe_NotFound(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return testUser(id), nil
		},
	}
	relRepo := &mockRelationRepo{
		deleteFn: func(ctx context.Context, userID int64, kind model.RelationKind, targetID int64) error {
			return model.NewRelationNotFoundError(kind)
		},
	}
	svc := newTestService(userRepo, &mockRecipeRepo{}, relRepo)

	err := svc.Unsubscribe(context.Background(), 42, 7)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeRelationNotFound {
		t.Errorf("Unsubscribe() error = %v, want RELATION_NOT_FOUND", err)
	}
}

// 購読一覧がバッチ取得で組み立てられ、ページングが効くことを検証
func TestService_ListSubscriptions(t *testing.T) {
	relRepo := &mockRelationRepo{
		listTargetIDsFn: func(ctx context.Context, userID int64, kind model.RelationKind) ([]int64, error) {
			return []int64{1, 2, 3}, nil
		},
	}
	userRepo := &mockUserRepo{
		listByIDsFn: func(ctx context.Context, ids []int64) ([]*model.User, error) {
			users := make([]*model.User, 0, len(ids))
			for _, id := range []int64{1, 2, 3} {
				users = append(users, testUser(id))
			}
			return users, nil
		},
	}
	recipeRepo := &mockRecipeRepo{
		listByAuthorIDsFn: func(ctx context.Context, authorIDs []int64) ([]*model.Recipe, error) {
			if len(authorIDs) != 2 {
				t.Errorf("len(authorIDs) = %d, want page of 2", len(authorIDs))
			}
			return []*model.Recipe{{ID: 10, AuthorID: 1, Name: "Борщ"}}, nil
		},
	}
	svc := newTestService(userRepo, recipeRepo, relRepo)

	infos, total, err := svc.ListSubscriptions(context.Background(), 42, 2, 0, 0)
	if err != nil {
		t.Fatalf("ListSubscriptions() error = %v", err)
	}

	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(infos) != 2 {
		t.Fatalf("len(infos) = %d, want 2", len(infos))
	}
	if infos[0].RecipesCount != 1 || len(infos[0].Recipes) != 1 {
		t.Errorf("infos[0] = %+v, want 1 recipe", infos[0])
	}
	if len(infos[1].Recipes) != 0 {
		t.Errorf("infos[1].Recipes = %v, want empty slice", infos[1].Recipes)
	}
	if recipeRepo.listByAuthorIDsCalls != 1 {
		t.Errorf("recipe batch calls = %d, want 1", recipeRepo.listByAuthorIDsCalls)
	}
}

// 購読ゼロの一覧が空の結果になることを検証
func TestService_ListSubscriptions_Empty(t *testing.T) {
	recipeRepo := &mockRecipeRepo{}
	svc := newTestService(&mockUserRepo{}, recipeRepo, &mockRelationRepo{})

	infos, total, err := svc.ListSubscriptions(context.Background(), 42, 10, 0, 0)
	if err != nil {
		t.Fatalf("ListSubscriptions() error = %v", err)
	}
	if total != 0 || len(infos) != 0 {
		t.Errorf("total = %d, len(infos) = %d, want 0/0", total, len(infos))
	}
	if recipeRepo.listByAuthorIDsCalls != 0 {
		t.Errorf("recipe batch calls = %d, want 0", recipeRepo.listByAuthorIDsCalls)
	}
}

// アバター更新の検証
func TestService_UpdateAvatar_Validation(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockRecipeRepo{}, &mockRelationRepo{})

	err := svc.UpdateAvatar(context.Background(), 42, "")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
		t.Errorf("UpdateAvatar(\"\") error = %v, want VALIDATION_FAILED", err)
	}

	if err := svc.UpdateAvatar(context.Background(), 42, "data:image/png;base64,xxx"); err != nil {
		t.Errorf("UpdateAvatar() error = %v", err)
	}
}
