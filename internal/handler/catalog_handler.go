package handler

import (
	"net/http"

	"github.com/hitoshi/kondate/internal/model"
	"github.com/hitoshi/kondate/internal/repository"
)

// CatalogHandler はタグ・材料カタログのHTTPハンドラー。
// カタログは読み取り専用で、登録はデータ投入で行う。
type CatalogHandler struct {
	tagRepo        repository.TagRepository
	ingredientRepo repository.IngredientRepository
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(tagRepo repository.TagRepository, ingredientRepo repository.IngredientRepository) *CatalogHandler {
	return &CatalogHandler{
		tagRepo:        tagRepo,
		ingredientRepo: ingredientRepo,
	}
}

// ListTags は全タグを返す。
// GET /api/tags
func (h *CatalogHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tagRepo.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if tags == nil {
		tags = []model.Tag{}
	}

	writeJSON(w, http.StatusOK, tags)
}

// GetTag は指定IDのタグを返す。
// GET /api/tags/{id}
func (h *CatalogHandler) GetTag(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewTagNotFoundError(0))
		return
	}

	tag, err := h.tagRepo.FindByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if tag == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewTagNotFoundError(id))
		return
	}

	writeJSON(w, http.StatusOK, tag)
}

// ListIngredients は材料一覧を返す。nameクエリで前方一致の絞り込みができる。
// GET /api/ingredients
func (h *CatalogHandler) ListIngredients(w http.ResponseWriter, r *http.Request) {
	namePrefix := r.URL.Query().Get("name")

	ingredients, err := h.ingredientRepo.List(r.Context(), namePrefix)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if ingredients == nil {
		ingredients = []model.Ingredient{}
	}

	writeJSON(w, http.StatusOK, ingredients)
}

// GetIngredient は指定IDの材料を返す。
// GET /api/ingredients/{id}
func (h *CatalogHandler) GetIngredient(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewIngredientNotFoundError(0))
		return
	}

	ingredient, err := h.ingredientRepo.FindByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if ingredient == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewIngredientNotFoundError(id))
		return
	}

	writeJSON(w, http.StatusOK, ingredient)
}
