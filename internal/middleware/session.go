// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/kondate/internal/model"
)

// tokenScheme はAuthorizationヘッダの認証スキーム。
const tokenScheme = "Token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// TokenFromRequest はAuthorizationヘッダからセッショントークンを取り出す。
// 「Token <トークン>」形式でない場合は空文字を返す。
func TokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || scheme != tokenScheme {
		return ""
	}
	return strings.TrimSpace(token)
}

// NewTokenAuthMiddleware はAuthorizationヘッダのトークンからセッションを検証する
// ミドルウェアを返す。認証済みユーザーIDをリクエストコンテキストに注入する。
// トークンがない・無効・期限切れのリクエストには401 Unauthorizedを返す。
func NewTokenAuthMiddleware(sessionFinder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := resolveUserID(sessionFinder, r)
			if !ok || userID == model.AnonymousUserID {
				WriteUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewOptionalTokenAuthMiddleware は認証を必須にしない版のミドルウェアを返す。
// 有効なトークンがあればユーザーIDを、なければ匿名ユーザーIDをコンテキストに注入する。
// 一覧・詳細などの公開エンドポイントで使い、フラグ付与だけ閲覧ユーザー視点にする。
func NewOptionalTokenAuthMiddleware(sessionFinder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := resolveUserID(sessionFinder, r)
			if !ok {
				userID = model.AnonymousUserID
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// resolveUserID はトークンからユーザーIDを解決する。
// トークンがない・無効な場合はfalseを返す。
func resolveUserID(sessionFinder SessionFinder, r *http.Request) (int64, bool) {
	token := TokenFromRequest(r)
	if token == "" {
		return model.AnonymousUserID, false
	}

	session, err := sessionFinder.FindByID(r.Context(), token)
	if err != nil {
		slog.Error("failed to find session",
			slog.String("error", err.Error()),
		)
		return model.AnonymousUserID, false
	}
	if session == nil {
		return model.AnonymousUserID, false
	}
	return session.UserID, true
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
// 匿名ユーザーの場合はmodel.AnonymousUserIDを返す。
func UserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(userIDContextKey).(int64)
	if !ok {
		return model.AnonymousUserID, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
