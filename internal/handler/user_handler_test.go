package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/kondate/internal/auth"
	"github.com/hitoshi/kondate/internal/middleware"
	"github.com/hitoshi/kondate/internal/model"
	"github.com/hitoshi/kondate/internal/user"
)

type mockUserService struct {
	getProfileFn        func(ctx context.Context, viewerID, userID int64) (*model.UserProfile, error)
	subscribeFn         func(ctx context.Context, userID, targetID int64, recipesLimit int) (*user.SubscriptionInfo, error)
	listSubscriptionsFn func(ctx context.Context, userID int64, limit, offset, recipesLimit int) ([]user.SubscriptionInfo, int, error)
}

func (m *mockUserService) GetProfile(ctx context.Context, viewerID, userID int64) (*model.UserProfile, error) {
	if m.getProfileFn != nil {
		return m.getProfileFn(ctx, viewerID, userID)
	}
	return &model.UserProfile{ID: userID, Username: "vasya"}, nil
}

func (m *mockUserService) ListProfiles(ctx context.Context, viewerID int64, limit, offset int) ([]model.UserProfile, int, error) {
	return []model.UserProfile{}, 0, nil
}

func (m *mockUserService) UpdateAvatar(ctx context.Context, userID int64, avatar string) error {
	return nil
}

func (m *mockUserService) DeleteAvatar(ctx context.Context, userID int64) error { return nil }

func (m *mockUserService) Subscribe(ctx context.Context, userID, targetID int64, recipesLimit int) (*user.SubscriptionInfo, error) {
	if m.subscribeFn != nil {
		return m.subscribeFn(ctx, userID, targetID, recipesLimit)
	}
	return &user.SubscriptionInfo{}, nil
}

func (m *mockUserService) Unsubscribe(ctx context.Context, userID, targetID int64) error {
	return nil
}

func (m *mockUserService) ListSubscriptions(ctx context.Context, userID int64, limit, offset, recipesLimit int) ([]user.SubscriptionInfo, int, error) {
	if m.listSubscriptionsFn != nil {
		return m.listSubscriptionsFn(ctx, userID, limit, offset, recipesLimit)
	}
	return []user.SubscriptionInfo{}, 0, nil
}

type mockRegistrationService struct {
	registerFn    func(ctx context.Context, input auth.RegisterInput) (*model.User, error)
	setPasswordFn func(ctx context.Context, userID int64, currentPassword, newPassword string) error
}

func (m *mockRegistrationService) Register(ctx context.Context, input auth.RegisterInput) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, input)
	}
	return &model.User{ID: 1, Email: input.Email, Username: input.Username}, nil
}

func (m *mockRegistrationService) SetPassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	if m.setPasswordFn != nil {
		return m.setPasswordFn(ctx, userID, currentPassword, newPassword)
	}
	return nil
}

func newUserTestHandler(svc *mockUserService, reg *mockRegistrationService) *UserHandler {
	return NewUserHandler(svc, reg, nil, PaginationConfig{DefaultLimit: 10, MaxLimit: 100})
}

// 登録成功が201でプロフィールを返すことを検証
func TestUserHandler_Register(t *testing.T) {
	h := newUserTestHandler(&mockUserService{}, &mockRegistrationService{})

	body := `{"email":"vasya@example.com","username":"vasya","first_name":"Вася","last_name":"Иванов","password":"Qwerty123"}`
	r := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Register(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	var profile model.UserProfile
	if err := json.NewDecoder(w.Body).Decode(&profile); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if profile.Email != "vasya@example.com" {
		t.Errorf("email = %q", profile.Email)
	}
}

// 登録のバリデーション違反が400になることを検証
func TestUserHandler_Register_Validation(t *testing.T) {
	h := newUserTestHandler(&mockUserService{}, &mockRegistrationService{})

	bodies := []string{
		`{"email":"bad","username":"vasya","first_name":"В","last_name":"И","password":"Qwerty123"}`, // 不正メール
		`{"email":"vasya@example.com","username":"vasya","first_name":"В","last_name":"И","password":"short"}`, // 短いパスワード
		`{"username":"vasya","first_name":"В","last_name":"И","password":"Qwerty123"}`,                         // メールなし
	}
	for _, body := range bodies {
		r := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body))
		w := httptest.NewRecorder()
		h.Register(w, r)

		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, w.Code)
		}
	}
}

// 重複登録が400になることを検証
func TestUserHandler_Register_Duplicate(t *testing.T) {
	h := newUserTestHandler(&mockUserService{}, &mockRegistrationService{
		registerFn: func(ctx context.Context, input auth.RegisterInput) (*model.User, error) {
			return nil, model.NewDuplicateUserError()
		},
	})

	body := `{"email":"vasya@example.com","username":"vasya","first_name":"В","last_name":"И","password":"Qwerty123"}`
	r := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Register(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// 未認証のMeが401になることを検証
func TestUserHandler_Me_Unauthorized(t *testing.T) {
	h := newUserTestHandler(&mockUserService{}, &mockRegistrationService{})

	r := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	w := httptest.NewRecorder()
	h.Me(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

// 自己購読が400になることを検証
func TestUserHandler_Subscribe_SelfForbidden(t *testing.T) {
	h := newUserTestHandler(&mockUserService{
		subscribeFn: func(ctx context.Context, userID, targetID int64, recipesLimit int) (*user.SubscriptionInfo, error) {
			return nil, model.NewSelfRelationForbiddenError()
		},
	}, &mockRegistrationService{})

	r := httptest.NewRequest(http.MethodPost, "/api/users/42/subscribe", nil)
	r = withIDParam(r, "id", "42", 42)
	w := httptest.NewRecorder()
	h.Subscribe(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	var resp apiErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Code != model.ErrCodeSelfRelationForbidden {
		t.Errorf("code = %q, want SELF_RELATION_FORBIDDEN", resp.Code)
	}
}

// recipes_limitクエリがサービスに渡ることを検証
func TestUserHandler_Subscribe_RecipesLimit(t *testing.T) {
	var gotLimit int
	h := newUserTestHandler(&mockUserService{
		subscribeFn: func(ctx context.Context, userID, targetID int64, recipesLimit int) (*user.SubscriptionInfo, error) {
			gotLimit = recipesLimit
			return &user.SubscriptionInfo{}, nil
		},
	}, &mockRegistrationService{})

	r := httptest.NewRequest(http.MethodPost, "/api/users/7/subscribe?recipes_limit=3", nil)
	r = withIDParam(r, "id", "7", 42)
	w := httptest.NewRecorder()
	h.Subscribe(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	if gotLimit != 3 {
		t.Errorf("recipesLimit = %d, want 3", gotLimit)
	}
}

// パスワード変更のバリデーションとレスポンスを検証
func TestUserHandler_SetPassword(t *testing.T) {
	h := newUserTestHandler(&mockUserService{}, &mockRegistrationService{})

	body := `{"new_password":"NewPass123","current_password":"OldPass123"}`
	r := httptest.NewRequest(http.MethodPost, "/api/users/set_password", strings.NewReader(body))
	r = r.WithContext(middleware.ContextWithUserID(r.Context(), 42))
	w := httptest.NewRecorder()
	h.SetPassword(w, r)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204: %s", w.Code, w.Body.String())
	}

	// 新パスワードが短い場合は400
	body = `{"new_password":"short","current_password":"OldPass123"}`
	r = httptest.NewRequest(http.MethodPost, "/api/users/set_password", strings.NewReader(body))
	r = r.WithContext(middleware.ContextWithUserID(r.Context(), 42))
	w = httptest.NewRecorder()
	h.SetPassword(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
