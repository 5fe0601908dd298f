package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/kondate/internal/model"
)

type mockAuthService struct {
	loginFn  func(ctx context.Context, email, password string) (*model.Session, error)
	logoutFn func(ctx context.Context, sessionID string) error
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return &model.Session{ID: "tok-1", UserID: 1}, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

// ログイン成功でトークンが返ることを検証
func TestAuthHandler_Login_Success(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	body := `{"email":"vasya@example.com","password":"Qwerty123"}`
	r := httptest.NewRequest(http.MethodPost, "/api/auth/token/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Login(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp tokenResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.AuthToken != "tok-1" {
		t.Errorf("auth_token = %q, want tok-1", resp.AuthToken)
	}
}

// 不正なボディ・バリデーション違反が400になることを検証
func TestAuthHandler_Login_BadRequest(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	for _, body := range []string{"not json", `{"email":"not-an-email","password":"x"}`, `{"email":"vasya@example.com"}`} {
		r := httptest.NewRequest(http.MethodPost, "/api/auth/token/login", strings.NewReader(body))
		w := httptest.NewRecorder()
		h.Login(w, r)

		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

// 認証情報不一致が401になることを検証
func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.Session, error) {
			return nil, model.NewInvalidCredentialsError()
		},
	})

	body := `{"email":"vasya@example.com","password":"wrong"}`
	r := httptest.NewRequest(http.MethodPost, "/api/auth/token/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Login(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

// ログアウトがヘッダのトークンを破棄することを検証
func TestAuthHandler_Logout(t *testing.T) {
	var deleted string
	h := NewAuthHandler(&mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			deleted = sessionID
			return nil
		},
	})

	r := httptest.NewRequest(http.MethodPost, "/api/auth/token/logout", nil)
	r.Header.Set("Authorization", "Token tok-1")
	w := httptest.NewRecorder()
	h.Logout(w, r)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if deleted != "tok-1" {
		t.Errorf("deleted token = %q, want tok-1", deleted)
	}

	// トークンなしは401
	r = httptest.NewRequest(http.MethodPost, "/api/auth/token/logout", nil)
	w = httptest.NewRecorder()
	h.Logout(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
