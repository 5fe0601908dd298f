package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hitoshi/kondate/internal/auth"
	"github.com/hitoshi/kondate/internal/metrics"
	"github.com/hitoshi/kondate/internal/middleware"
	"github.com/hitoshi/kondate/internal/model"
	"github.com/hitoshi/kondate/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// GetProfile は指定ユーザーのプロフィールを返す。
	GetProfile(ctx context.Context, viewerID, userID int64) (*model.UserProfile, error)
	// ListProfiles はユーザー一覧と総数を返す。
	ListProfiles(ctx context.Context, viewerID int64, limit, offset int) ([]model.UserProfile, int, error)
	// UpdateAvatar はアバター参照を更新する。
	UpdateAvatar(ctx context.Context, userID int64, avatar string) error
	// DeleteAvatar はアバター参照を削除する。
	DeleteAvatar(ctx context.Context, userID int64) error
	// Subscribe はユーザーを著者の購読者に追加し、購読情報を返す。
	Subscribe(ctx context.Context, userID, targetID int64, recipesLimit int) (*user.SubscriptionInfo, error)
	// Unsubscribe は購読を解除する。
	Unsubscribe(ctx context.Context, userID, targetID int64) error
	// ListSubscriptions は購読中の著者一覧と総数を返す。
	ListSubscriptions(ctx context.Context, userID int64, limit, offset, recipesLimit int) ([]user.SubscriptionInfo, int, error)
}

// RegistrationServiceInterface はユーザー登録・パスワード変更のサービスインターフェース。
type RegistrationServiceInterface interface {
	// Register は新規ユーザーを作成する。
	Register(ctx context.Context, input auth.RegisterInput) (*model.User, error)
	// SetPassword は現在のパスワードを照合した上で新しいパスワードに更新する。
	SetPassword(ctx context.Context, userID int64, currentPassword, newPassword string) error
}

// PaginationConfig はページングの既定値と上限。
type PaginationConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service      UserServiceInterface
	registration RegistrationServiceInterface
	metrics      metrics.MetricsCollector
	pageCfg      PaginationConfig
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, registration RegistrationServiceInterface, collector metrics.MetricsCollector, pageCfg PaginationConfig) *UserHandler {
	return &UserHandler{
		service:      service,
		registration: registration,
		metrics:      collector,
		pageCfg:      pageCfg,
	}
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,max=150"`
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"required,max=150"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
}

// setPasswordRequest はパスワード変更リクエストのボディ。
type setPasswordRequest struct {
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
	CurrentPassword string `json:"current_password" validate:"required"`
}

// avatarRequest はアバター更新リクエストのボディ。
type avatarRequest struct {
	Avatar string `json:"avatar" validate:"required"`
}

// Register は新規ユーザーを作成する。
// POST /api/users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}
	if !validateRequest(w, req) {
		return
	}

	u, err := h.registration.Register(r.Context(), auth.RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, u.Profile(false))
}

// List はユーザー一覧をページング付きで返す。
// GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.UserIDFromContext(r.Context())
	p := parsePagination(r, h.pageCfg.DefaultLimit, h.pageCfg.MaxLimit)

	profiles, total, err := h.service.ListProfiles(r.Context(), viewerID, p.Limit, p.Offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newPaginatedResponse(r, p, total, profiles))
}

// Get は指定ユーザーのプロフィールを返す。
// GET /api/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.UserIDFromContext(r.Context())

	userID, err := parseIDParam(r, "id")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError(0))
		return
	}

	profile, err := h.service.GetProfile(r.Context(), viewerID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// Me は現在のユーザーのプロフィールを返す。
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// SetPassword は現在のユーザーのパスワードを変更する。
// POST /api/users/set_password
func (h *UserHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req setPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}
	if !validateRequest(w, req) {
		return
	}

	if err := h.registration.SetPassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateAvatar は現在のユーザーのアバターを更新する。
// PUT /api/users/me/avatar
func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req avatarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}
	if !validateRequest(w, req) {
		return
	}

	if err := h.service.UpdateAvatar(r.Context(), userID, req.Avatar); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"avatar": req.Avatar})
}

// DeleteAvatar は現在のユーザーのアバターを削除する。
// DELETE /api/users/me/avatar
func (h *UserHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.DeleteAvatar(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Subscribe は指定著者の購読を開始する。
// POST /api/users/{id}/subscribe
func (h *UserHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	targetID, err := parseIDParam(r, "id")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError(0))
		return
	}

	info, err := h.service.Subscribe(r.Context(), userID, targetID, recipesLimitParam(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordRelationAdded(string(model.RelationSubscription))
	}
	writeJSON(w, http.StatusCreated, info)
}

// Unsubscribe は指定著者の購読を解除する。
// DELETE /api/users/{id}/subscribe
func (h *UserHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	targetID, err := parseIDParam(r, "id")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError(0))
		return
	}

	if err := h.service.Unsubscribe(r.Context(), userID, targetID); err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordRelationRemoved(string(model.RelationSubscription))
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSubscriptions は購読中の著者一覧をページング付きで返す。
// GET /api/users/subscriptions
func (h *UserHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	p := parsePagination(r, h.pageCfg.DefaultLimit, h.pageCfg.MaxLimit)

	infos, total, err := h.service.ListSubscriptions(r.Context(), userID, p.Limit, p.Offset, recipesLimitParam(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newPaginatedResponse(r, p, total, infos))
}

// recipesLimitParam はrecipes_limitクエリパラメータを解析する。0は無制限。
func recipesLimitParam(r *http.Request) int {
	raw := r.URL.Query().Get("recipes_limit")
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
