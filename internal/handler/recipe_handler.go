package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/kondate/internal/metrics"
	"github.com/hitoshi/kondate/internal/middleware"
	"github.com/hitoshi/kondate/internal/model"
	"github.com/hitoshi/kondate/internal/recipe"
	"github.com/hitoshi/kondate/internal/repository"
	"github.com/hitoshi/kondate/internal/shopping"
)

// RecipeServiceInterface はレシピハンドラーが必要とするサービスインターフェース。
type RecipeServiceInterface interface {
	// List はフィルタ条件に一致するレシピ一覧と総数を返す。
	List(ctx context.Context, viewerID int64, input recipe.ListInput) ([]recipe.View, int, error)
	// Get はレシピ詳細を返す。
	Get(ctx context.Context, viewerID, recipeID int64) (*recipe.View, error)
	// Create はレシピを作成する。
	Create(ctx context.Context, authorID int64, input recipe.Input) (*recipe.View, error)
	// Update はレシピを更新する。著者本人以外はFORBIDDENになる。
	Update(ctx context.Context, userID, recipeID int64, input recipe.Input) (*recipe.View, error)
	// Delete はレシピを削除する。著者本人以外はFORBIDDENになる。
	Delete(ctx context.Context, userID, recipeID int64) error
	// AddFavorite はレシピをお気に入りに追加する。
	AddFavorite(ctx context.Context, userID, recipeID int64) (*model.RecipeShort, error)
	// RemoveFavorite はレシピをお気に入りから削除する。
	RemoveFavorite(ctx context.Context, userID, recipeID int64) error
	// AddToCart はレシピを買い物カゴに追加する。
	AddToCart(ctx context.Context, userID, recipeID int64) (*model.RecipeShort, error)
	// RemoveFromCart はレシピを買い物カゴから削除する。
	RemoveFromCart(ctx context.Context, userID, recipeID int64) error
	// GetShareLink はレシピの短縮リンク絶対URLを返す。
	GetShareLink(ctx context.Context, recipeID int64) (string, error)
	// ResolveShareLink は短縮トークンをレシピIDに解決する。
	ResolveShareLink(ctx context.Context, token string) (int64, error)
}

// ShoppingServiceInterface は買い物リスト集計のサービスインターフェース。
type ShoppingServiceInterface interface {
	// Aggregate はユーザーの買い物カゴ全体の材料を集計する。
	Aggregate(ctx context.Context, userID int64) ([]shopping.Item, error)
}

// RecipeHandler はレシピ管理のHTTPハンドラー。
type RecipeHandler struct {
	service  RecipeServiceInterface
	shopping ShoppingServiceInterface
	metrics  metrics.MetricsCollector
	pageCfg  PaginationConfig
}

// NewRecipeHandler はRecipeHandlerを生成する。
func NewRecipeHandler(service RecipeServiceInterface, shoppingService ShoppingServiceInterface, collector metrics.MetricsCollector, pageCfg PaginationConfig) *RecipeHandler {
	return &RecipeHandler{
		service:  service,
		shopping: shoppingService,
		metrics:  collector,
		pageCfg:  pageCfg,
	}
}

// recipeIngredientRequest はレシピ入力の材料指定。
type recipeIngredientRequest struct {
	ID     int64 `json:"id" validate:"required,min=1"`
	Amount int   `json:"amount" validate:"required,min=1"`
}

// recipeRequest はレシピ作成・更新リクエストのボディ。
type recipeRequest struct {
	Ingredients []recipeIngredientRequest `json:"ingredients" validate:"required,min=1,dive"`
	Tags        []int64                   `json:"tags" validate:"required,min=1"`
	Image       string                    `json:"image"`
	Name        string                    `json:"name" validate:"required,max=256"`
	Text        string                    `json:"text" validate:"required"`
	CookingTime int                       `json:"cooking_time" validate:"required,min=1"`
}

// toInput はリクエストボディをサービス入力に変換する。
func (req *recipeRequest) toInput() recipe.Input {
	lines := make([]repository.IngredientAmount, 0, len(req.Ingredients))
	for _, ing := range req.Ingredients {
		lines = append(lines, repository.IngredientAmount{
			IngredientID: ing.ID,
			Amount:       ing.Amount,
		})
	}
	return recipe.Input{
		Name:        req.Name,
		Image:       req.Image,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		TagIDs:      req.Tags,
		Ingredients: lines,
	}
}

// List はレシピ一覧をページング付きで返す。
// GET /api/recipes
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.UserIDFromContext(r.Context())
	p := parsePagination(r, h.pageCfg.DefaultLimit, h.pageCfg.MaxLimit)

	input := recipe.ListInput{
		TagSlugs: r.URL.Query()["tags"],
		Limit:    p.Limit,
		Offset:   p.Offset,
	}
	if raw := r.URL.Query().Get("author"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			input.AuthorID = id
		}
	}
	input.Favorited = relationFilterParam(r, "is_favorited")
	input.InCart = relationFilterParam(r, "is_in_shopping_cart")

	views, total, err := h.service.List(r.Context(), viewerID, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newPaginatedResponse(r, p, total, views))
}

// relationFilterParam はリレーションフィルタのクエリパラメータを解析する。
// パラメータなしはnil（条件なし）、"1"/"true"は真値、それ以外は偽値。
func relationFilterParam(r *http.Request, name string) *bool {
	if !r.URL.Query().Has(name) {
		return nil
	}
	raw := r.URL.Query().Get(name)
	v := raw == "1" || raw == "true"
	return &v
}

// Get はレシピ詳細を返す。
// GET /api/recipes/{id}
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.UserIDFromContext(r.Context())

	recipeID, err := parseIDParam(r, "id")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewRecipeNotFoundError(0))
		return
	}

	view, err := h.service.Get(r.Context(), viewerID, recipeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Create はレシピを作成する。
// POST /api/recipes
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req recipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}
	if !validateRequest(w, req) {
		return
	}
	if req.Image == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("画像を指定してください。"))
		return
	}

	view, err := h.service.Create(r.Context(), userID, req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

// Update はレシピを更新する。
// PATCH /api/recipes/{id}
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	recipeID, err := parseIDParam(r, "id")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewRecipeNotFoundError(0))
		return
	}

	var req recipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}
	if !validateRequest(w, req) {
		return
	}

	view, err := h.service.Update(r.Context(), userID, recipeID, req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Delete はレシピを削除する。
// DELETE /api/recipes/{id}
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	recipeID, err := parseIDParam(r, "id")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewRecipeNotFoundError(0))
		return
	}

	if err := h.service.Delete(r.Context(), userID, recipeID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddFavorite はレシピをお気に入りに追加する。
// POST /api/recipes/{id}/favorite
func (h *RecipeHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	h.addRelation(w, r, model.RelationFavorite, h.service.AddFavorite)
}

// RemoveFavorite はレシピをお気に入りから削除する。
// DELETE /api/recipes/{id}/favorite
func (h *RecipeHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	h.removeRelation(w, r, model.RelationFavorite, h.service.RemoveFavorite)
}

// AddToCart はレシピを買い物カゴに追加する。
// POST /api/recipes/{id}/shopping_cart
func (h *RecipeHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	h.addRelation(w, r, model.RelationShoppingCart, h.service.AddToCart)
}

// RemoveFromCart はレシピを買い物カゴから削除する。
// DELETE /api/recipes/{id}/shopping_cart
func (h *RecipeHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	h.removeRelation(w, r, model.RelationShoppingCart, h.service.RemoveFromCart)
}

func (h *RecipeHandler) addRelation(w http.ResponseWriter, r *http.Request, kind model.RelationKind, add func(ctx context.Context, userID, recipeID int64) (*model.RecipeShort, error)) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	recipeID, err := parseIDParam(r, "id")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewRecipeNotFoundError(0))
		return
	}

	short, err := add(r.Context(), userID, recipeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordRelationAdded(string(kind))
	}
	writeJSON(w, http.StatusCreated, short)
}

func (h *RecipeHandler) removeRelation(w http.ResponseWriter, r *http.Request, kind model.RelationKind, remove func(ctx context.Context, userID, recipeID int64) error) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	recipeID, err := parseIDParam(r, "id")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewRecipeNotFoundError(0))
		return
	}

	if err := remove(r.Context(), userID, recipeID); err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordRelationRemoved(string(kind))
	}
	w.WriteHeader(http.StatusNoContent)
}

// DownloadShoppingCart は買い物カゴの集計文書をダウンロードとして返す。
// GET /api/recipes/download_shopping_cart
func (h *RecipeHandler) DownloadShoppingCart(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	items, err := h.shopping.Aggregate(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordShoppingListBuilt(len(items))
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", shopping.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(shopping.FormatDocument(items)))
}

// GetLink はレシピの短縮リンクを返す。
// GET /api/recipes/{id}/get-link
func (h *RecipeHandler) GetLink(w http.ResponseWriter, r *http.Request) {
	recipeID, err := parseIDParam(r, "id")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewRecipeNotFoundError(0))
		return
	}

	link, err := h.service.GetShareLink(r.Context(), recipeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"short-link": link})
}

// ResolveShortLink は短縮トークンを解決し、レシピページへリダイレクトする。
// GET /s/{token}
func (h *RecipeHandler) ResolveShortLink(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	recipeID, err := h.service.ResolveShareLink(r.Context(), token)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/recipes/%d", recipeID), http.StatusFound)
}
