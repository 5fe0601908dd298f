package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func testRateLimiterConfig(generalBurst, mutationBurst int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001), // テスト中は実質補充なし
		GeneralBurst:    generalBurst,
		MutationRate:    rate.Limit(0.001),
		MutationBurst:   mutationBurst,
		CleanupInterval: time.Minute,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// バースト超過で429とRetry-Afterが返ることを検証
func TestRateLimiter_General_Exceeded(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(2, 2))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 2; i++ {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(ContextWithUserID(r.Context(), 42))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, w.Code)
		}
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(ContextWithUserID(r.Context(), 42))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header should be set")
	}
}

// ユーザーごとに独立したリミッターが使われることを検証
func TestRateLimiter_PerClientKeys(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for _, userID := range []int64{1, 2} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(ContextWithUserID(r.Context(), userID))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Errorf("user %d: status = %d, want 200", userID, w.Code)
		}
	}

	if rl.GeneralLimiterCount() != 2 {
		t.Errorf("GeneralLimiterCount() = %d, want 2", rl.GeneralLimiterCount())
	}
}

// 匿名リクエストが接続元IPをキーに制限されることを検証
func TestRateLimiter_AnonymousByIP(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	// 同じIPの2回目はバースト超過
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5678"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("same IP second request: status = %d, want 429", w.Code)
	}

	// 別IPは独立
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.2:1234"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("different IP: status = %d, want 200", w.Code)
	}
}

// 書き込み系がAPI全般と独立に動作することを検証
func TestRateLimiter_MutationIndependent(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(10, 1))
	defer rl.Stop()

	general := rl.GeneralMiddleware()(okHandler())
	mutation := rl.MutationMiddleware()(okHandler())

	newReq := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		return r.WithContext(ContextWithUserID(r.Context(), 42))
	}

	w := httptest.NewRecorder()
	mutation.ServeHTTP(w, newReq())
	if w.Code != http.StatusOK {
		t.Fatalf("mutation 1: status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	mutation.ServeHTTP(w, newReq())
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("mutation 2: status = %d, want 429", w.Code)
	}

	// 書き込み系の枯渇後もAPI全般は通る
	w = httptest.NewRecorder()
	general.ServeHTTP(w, newReq())
	if w.Code != http.StatusOK {
		t.Errorf("general after mutation exhausted: status = %d, want 200", w.Code)
	}
}
