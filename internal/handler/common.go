// Package handler はREST APIのHTTPハンドラーとルーティングを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/kondate/internal/model"
)

// validate はリクエストボディの構造検証に使う共有バリデーター。
var validate = validator.New()

// apiErrorResponse はAPIエラーレスポンスの統一フォーマット。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// writeAPIErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeJSON(w, statusCode, apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeUnauthorized は401の統一レスポンスを書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	})
}

// writeInvalidRequestBody はボディ解析失敗の統一レスポンスを書き込む。
func writeInvalidRequestBody(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// validateRequest はリクエスト構造体のタグ検証を行い、
// 失敗をVALIDATION_FAILEDエラーとして書き込む。
func validateRequest(w http.ResponseWriter, req any) bool {
	if err := validate.Struct(req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError(fmt.Sprintf("入力値が不正です: %v", err)))
		return false
	}
	return true
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeDuplicateRelation,
		model.ErrCodeRelationNotFound,
		model.ErrCodeSelfRelationForbidden,
		model.ErrCodeMalformedShareLink,
		model.ErrCodeValidationFailed,
		model.ErrCodeDuplicateUser:
		return http.StatusBadRequest
	case model.ErrCodeRecipeNotFound,
		model.ErrCodeUserNotFound,
		model.ErrCodeIngredientNotFound,
		model.ErrCodeTagNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// parseIDParam はURLパスの数値IDパラメータを解析する。
func parseIDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id parameter: %q", raw)
	}
	return id, nil
}

// pagination はページングのクエリパラメータを表す。
type pagination struct {
	Page   int
	Limit  int
	Offset int
}

// parsePagination はpage/limitクエリパラメータを解析する。
// limitは設定の既定値・上限値で正規化する。
func parsePagination(r *http.Request, defaultLimit, maxLimit int) pagination {
	p := pagination{Page: 1, Limit: defaultLimit}

	if raw := r.URL.Query().Get("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			p.Page = v
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			p.Limit = v
		}
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}

	p.Offset = (p.Page - 1) * p.Limit
	return p
}

// paginatedResponse はページング付き一覧レスポンスの統一フォーマット。
type paginatedResponse struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  any     `json:"results"`
}

// newPaginatedResponse は総数とページ条件からnext/previousリンクを組み立てる。
func newPaginatedResponse(r *http.Request, p pagination, count int, results any) paginatedResponse {
	resp := paginatedResponse{Count: count, Results: results}

	if p.Offset+p.Limit < count {
		resp.Next = pageURL(r.URL, p.Page+1)
	}
	if p.Page > 1 {
		resp.Previous = pageURL(r.URL, p.Page-1)
	}
	return resp
}

// pageURL は現在のURLのpageパラメータを差し替えた相対URLを返す。
func pageURL(u *url.URL, page int) *string {
	q := u.Query()
	q.Set("page", strconv.Itoa(page))

	link := url.URL{Path: u.Path, RawQuery: q.Encode()}
	s := link.String()
	return &s
}
