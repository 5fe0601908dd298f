// Package recipe はレシピのCRUD、一覧フィルタ、お気に入り・買い物カゴ操作、
// 短縮リンクを提供する。
package recipe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/kondate/internal/model"
	"github.com/hitoshi/kondate/internal/relation"
	"github.com/hitoshi/kondate/internal/repository"
	"github.com/hitoshi/kondate/internal/shortlink"
)

// Sanitizer はユーザー入力テキストの無害化インターフェース。
type Sanitizer interface {
	Sanitize(text string) string
}

// ServiceConfig はレシピサービスの設定。
type ServiceConfig struct {
	BaseURL string // 短縮リンクの絶対URL生成に使う
}

// IngredientView はレシピ詳細に含まれる材料行の表現。
type IngredientView struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

// View はレシピのAPI表現。
// IsFavorited/IsInShoppingCartは閲覧ユーザー視点のフラグで、
// 一覧・詳細とも種別ごと最大1クエリの一括判定で埋める。
type View struct {
	ID               int64             `json:"id"`
	Tags             []model.Tag       `json:"tags"`
	Author           model.UserProfile `json:"author"`
	Ingredients      []IngredientView  `json:"ingredients"`
	IsFavorited      bool              `json:"is_favorited"`
	IsInShoppingCart bool              `json:"is_in_shopping_cart"`
	Name             string            `json:"name"`
	Image            string            `json:"image"`
	Text             string            `json:"text"`
	CookingTime      int               `json:"cooking_time"`
}

// Input はレシピ作成・更新の入力。
type Input struct {
	Name        string
	Image       string
	Text        string
	CookingTime int
	TagIDs      []int64
	Ingredients []repository.IngredientAmount
}

// ListInput はレシピ一覧の絞り込み条件。
// Favorited/InCartのnilは「条件なし」を意味する。
type ListInput struct {
	AuthorID  int64 // 0は条件なし
	TagSlugs  []string
	Favorited *bool
	InCart    *bool
	Limit     int
	Offset    int
}

// Service はレシピに関するビジネスロジックを提供する。
type Service struct {
	recipeRepo     repository.RecipeRepository
	tagRepo        repository.TagRepository
	ingredientRepo repository.IngredientRepository
	userRepo       repository.UserRepository
	annotator      *relation.Annotator
	mutator        *relation.Mutator
	sanitizer      Sanitizer
	config         ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	recipeRepo repository.RecipeRepository,
	tagRepo repository.TagRepository,
	ingredientRepo repository.IngredientRepository,
	userRepo repository.UserRepository,
	annotator *relation.Annotator,
	mutator *relation.Mutator,
	sanitizer Sanitizer,
	config ServiceConfig,
) *Service {
	return &Service{
		recipeRepo:     recipeRepo,
		tagRepo:        tagRepo,
		ingredientRepo: ingredientRepo,
		userRepo:       userRepo,
		annotator:      annotator,
		mutator:        mutator,
		sanitizer:      sanitizer,
		config:         config,
	}
}

// Create はレシピを作成し、組み立てたViewを返す。
func (s *Service) Create(ctx context.Context, authorID int64, input Input) (*View, error) {
	if err := s.validateInput(ctx, input); err != nil {
		return nil, err
	}

	now := time.Now()
	rec := &model.Recipe{
		AuthorID:    authorID,
		Name:        input.Name,
		Image:       input.Image,
		Text:        s.sanitizer.Sanitize(input.Text),
		CookingTime: input.CookingTime,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.recipeRepo.Create(ctx, rec, input.TagIDs, input.Ingredients); err != nil {
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}

	slog.Info("recipe created",
		slog.Int64("recipe_id", rec.ID),
		slog.Int64("author_id", authorID),
	)
	return s.buildView(ctx, authorID, rec)
}

// Update はレシピを更新する。著者本人以外はFORBIDDENになる。
func (s *Service) Update(ctx context.Context, userID, recipeID int64, input Input) (*View, error) {
	rec, err := s.findRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if rec.AuthorID != userID {
		return nil, model.NewForbiddenError()
	}

	if err := s.validateInput(ctx, input); err != nil {
		return nil, err
	}

	rec.Name = input.Name
	rec.Text = s.sanitizer.Sanitize(input.Text)
	rec.CookingTime = input.CookingTime
	rec.UpdatedAt = time.Now()
	if input.Image != "" {
		rec.Image = input.Image
	}

	if err := s.recipeRepo.Update(ctx, rec, input.TagIDs, input.Ingredients); err != nil {
		return nil, fmt.Errorf("failed to update recipe: %w", err)
	}

	slog.Info("recipe updated", slog.Int64("recipe_id", rec.ID))
	return s.buildView(ctx, userID, rec)
}

// Delete はレシピを削除する。著者本人以外はFORBIDDENになる。
func (s *Service) Delete(ctx context.Context, userID, recipeID int64) error {
	rec, err := s.findRecipe(ctx, recipeID)
	if err != nil {
		return err
	}
	if rec.AuthorID != userID {
		return model.NewForbiddenError()
	}

	if err := s.recipeRepo.DeleteByID(ctx, recipeID); err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	slog.Info("recipe deleted", slog.Int64("recipe_id", recipeID))
	return nil
}

// Get はレシピ詳細を返す。閲覧ユーザー視点のフラグは1件でも一括判定と同じ契約で埋める。
func (s *Service) Get(ctx context.Context, viewerID, recipeID int64) (*View, error) {
	rec, err := s.findRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, viewerID, rec)
}

// List はフィルタ条件に一致するレシピ一覧と総数を返す。
//
// Favorited/InCartフィルタは閲覧ユーザーのリレーション集合を1クエリで取得し、
// 包含（真値）または除外（偽値）条件としてレシピ検索に渡す。
// 匿名ユーザーの真値フィルタはルックアップなしで空の結果になり、
// 偽値フィルタは条件なしと同じになる。
func (s *Service) List(ctx context.Context, viewerID int64, input ListInput) ([]View, int, error) {
	filter := repository.RecipeFilter{
		AuthorID: input.AuthorID,
		TagSlugs: input.TagSlugs,
		Limit:    input.Limit,
		Offset:   input.Offset,
	}

	if err := s.applyRelationFilter(ctx, viewerID, input.Favorited, model.RelationFavorite, &filter); err != nil {
		return nil, 0, err
	}
	if err := s.applyRelationFilter(ctx, viewerID, input.InCart, model.RelationShoppingCart, &filter); err != nil {
		return nil, 0, err
	}

	// 匿名ユーザーの真値フィルタ: 空集合への包含は常に0件
	if (filter.IncludeIDs != nil && len(filter.IncludeIDs) == 0) && viewerID == model.AnonymousUserID {
		return []View{}, 0, nil
	}

	recipes, err := s.recipeRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}

	total, err := s.recipeRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count recipes: %w", err)
	}

	views, err := s.buildViews(ctx, viewerID, recipes)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// applyRelationFilter はリレーションフィルタをRecipeFilterの包含・除外条件に変換する。
func (s *Service) applyRelationFilter(ctx context.Context, viewerID int64, value *bool, kind model.RelationKind, filter *repository.RecipeFilter) error {
	if value == nil {
		return nil
	}

	// 匿名ユーザーの偽値フィルタは条件なし（全レシピが非メンバー）
	if viewerID == model.AnonymousUserID && !*value {
		return nil
	}

	set, err := s.annotator.MemberSet(ctx, viewerID, kind)
	if err != nil {
		return err
	}
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}

	if *value {
		filter.IncludeIDs = intersectOrAssign(filter.IncludeIDs, ids)
	} else {
		filter.ExcludeIDs = append(filter.ExcludeIDs, ids...)
	}
	return nil
}

// intersectOrAssign は既存の包含集合があれば積集合を取り、なければそのまま採用する。
func intersectOrAssign(current, ids []int64) []int64 {
	if current == nil {
		if ids == nil {
			ids = []int64{}
		}
		return ids
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	out := make([]int64, 0, len(current))
	for _, id := range current {
		if set[id] {
			out = append(out, id)
		}
	}
	return out
}

// AddFavorite はレシピをお気に入りに追加し、短縮表現を返す。
// レシピの存在確認が重複チェックより先に行われる。
func (s *Service) AddFavorite(ctx context.Context, userID, recipeID int64) (*model.RecipeShort, error) {
	return s.addRelation(ctx, userID, recipeID, model.RelationFavorite)
}

// RemoveFavorite はレシピをお気に入りから削除する。
func (s *Service) RemoveFavorite(ctx context.Context, userID, recipeID int64) error {
	return s.removeRelation(ctx, userID, recipeID, model.RelationFavorite)
}

// AddToCart はレシピを買い物カゴに追加し、短縮表現を返す。
func (s *Service) AddToCart(ctx context.Context, userID, recipeID int64) (*model.RecipeShort, error) {
	return s.addRelation(ctx, userID, recipeID, model.RelationShoppingCart)
}

// RemoveFromCart はレシピを買い物カゴから削除する。
func (s *Service) RemoveFromCart(ctx context.Context, userID, recipeID int64) error {
	return s.removeRelation(ctx, userID, recipeID, model.RelationShoppingCart)
}

func (s *Service) addRelation(ctx context.Context, userID, recipeID int64, kind model.RelationKind) (*model.RecipeShort, error) {
	rec, err := s.findRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	if err := s.mutator.Add(ctx, userID, kind, recipeID); err != nil {
		return nil, err
	}

	return &model.RecipeShort{
		ID:          rec.ID,
		Name:        rec.Name,
		Image:       rec.Image,
		CookingTime: rec.CookingTime,
	}, nil
}

func (s *Service) removeRelation(ctx context.Context, userID, recipeID int64, kind model.RelationKind) error {
	if _, err := s.findRecipe(ctx, recipeID); err != nil {
		return err
	}
	return s.mutator.Remove(ctx, userID, kind, recipeID)
}

// GetShareLink はレシピの短縮リンク絶対URLを返す。
func (s *Service) GetShareLink(ctx context.Context, recipeID int64) (string, error) {
	if _, err := s.findRecipe(ctx, recipeID); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/s/%s", s.config.BaseURL, shortlink.Encode(recipeID)), nil
}

// ResolveShareLink は短縮トークンをレシピIDに解決する。
// 復号できないトークンはMALFORMED_SHARE_LINK、
// 復号できるが実在しないレシピはRECIPE_NOT_FOUNDで区別される。
func (s *Service) ResolveShareLink(ctx context.Context, token string) (int64, error) {
	recipeID, err := shortlink.Decode(token)
	if err != nil {
		return 0, err
	}
	if _, err := s.findRecipe(ctx, recipeID); err != nil {
		return 0, err
	}
	return recipeID, nil
}

// findRecipe はレシピを取得し、未検出をRECIPE_NOT_FOUNDに写像する。
func (s *Service) findRecipe(ctx context.Context, recipeID int64) (*model.Recipe, error) {
	rec, err := s.recipeRepo.FindByID(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("failed to find recipe: %w", err)
	}
	if rec == nil {
		return nil, model.NewRecipeNotFoundError(recipeID)
	}
	return rec, nil
}

// validateInput はレシピ入力を検証する。
// タグ・材料の実在確認はID集合ごとに1クエリのバッチで行う。
func (s *Service) validateInput(ctx context.Context, input Input) error {
	if input.CookingTime < 1 {
		return model.NewValidationError("調理時間は1分以上で指定してください。")
	}
	if len(input.TagIDs) == 0 {
		return model.NewValidationError("タグを1つ以上指定してください。")
	}
	if len(input.Ingredients) == 0 {
		return model.NewValidationError("材料を1つ以上指定してください。")
	}

	seenTags := make(map[int64]bool, len(input.TagIDs))
	for _, id := range input.TagIDs {
		if seenTags[id] {
			return model.NewValidationError("タグが重複しています。")
		}
		seenTags[id] = true
	}

	seenIngredients := make(map[int64]bool, len(input.Ingredients))
	ingredientIDs := make([]int64, 0, len(input.Ingredients))
	for _, line := range input.Ingredients {
		if line.Amount < 1 {
			return model.NewValidationError("材料の数量は1以上で指定してください。")
		}
		if seenIngredients[line.IngredientID] {
			return model.NewValidationError("材料が重複しています。")
		}
		seenIngredients[line.IngredientID] = true
		ingredientIDs = append(ingredientIDs, line.IngredientID)
	}

	existingTags, err := s.tagRepo.ExistingIDs(ctx, input.TagIDs)
	if err != nil {
		return fmt.Errorf("failed to check tags: %w", err)
	}
	if missing := firstMissing(input.TagIDs, existingTags); missing != 0 {
		return model.NewTagNotFoundError(missing)
	}

	existingIngredients, err := s.ingredientRepo.ExistingIDs(ctx, ingredientIDs)
	if err != nil {
		return fmt.Errorf("failed to check ingredients: %w", err)
	}
	if missing := firstMissing(ingredientIDs, existingIngredients); missing != 0 {
		return model.NewIngredientNotFoundError(missing)
	}

	return nil
}

// firstMissing はwantのうちgotに含まれない最初のIDを返す。全て含まれる場合は0。
func firstMissing(want, got []int64) int64 {
	set := make(map[int64]bool, len(got))
	for _, id := range got {
		set[id] = true
	}
	for _, id := range want {
		if !set[id] {
			return id
		}
	}
	return 0
}

// buildView は1件のレシピのViewを組み立てる。
func (s *Service) buildView(ctx context.Context, viewerID int64, rec *model.Recipe) (*View, error) {
	views, err := s.buildViews(ctx, viewerID, []*model.Recipe{rec})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// buildViews はレシピ集合のViewを組み立てる。
// タグ・材料行・著者・各フラグはいずれも件数によらず集合ごと1クエリで取得する。
func (s *Service) buildViews(ctx context.Context, viewerID int64, recipes []*model.Recipe) ([]View, error) {
	if len(recipes) == 0 {
		return []View{}, nil
	}

	recipeIDs := make([]int64, 0, len(recipes))
	authorIDSet := make(map[int64]bool, len(recipes))
	authorIDs := make([]int64, 0, len(recipes))
	for _, rec := range recipes {
		recipeIDs = append(recipeIDs, rec.ID)
		if !authorIDSet[rec.AuthorID] {
			authorIDSet[rec.AuthorID] = true
			authorIDs = append(authorIDs, rec.AuthorID)
		}
	}

	tagsByRecipe, err := s.recipeRepo.ListTagsByRecipeIDs(ctx, recipeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipe tags: %w", err)
	}

	lines, err := s.recipeRepo.ListLinesByRecipeIDs(ctx, recipeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipe ingredients: %w", err)
	}
	linesByRecipe := make(map[int64][]IngredientView, len(recipes))
	for _, line := range lines {
		linesByRecipe[line.RecipeID] = append(linesByRecipe[line.RecipeID], IngredientView{
			ID:              line.IngredientID,
			Name:            line.Name,
			MeasurementUnit: line.MeasurementUnit,
			Amount:          line.Amount,
		})
	}

	authors, err := s.userRepo.ListByIDs(ctx, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	authorByID := make(map[int64]*model.User, len(authors))
	for _, u := range authors {
		authorByID[u.ID] = u
	}

	favorited, err := s.annotator.Annotate(ctx, viewerID, model.RelationFavorite, recipeIDs)
	if err != nil {
		return nil, err
	}
	inCart, err := s.annotator.Annotate(ctx, viewerID, model.RelationShoppingCart, recipeIDs)
	if err != nil {
		return nil, err
	}
	subscribed, err := s.annotator.Annotate(ctx, viewerID, model.RelationSubscription, authorIDs)
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(recipes))
	for _, rec := range recipes {
		var author model.UserProfile
		if u, ok := authorByID[rec.AuthorID]; ok {
			author = u.Profile(subscribed[rec.AuthorID])
		}

		tags := tagsByRecipe[rec.ID]
		if tags == nil {
			tags = []model.Tag{}
		}
		ingredients := linesByRecipe[rec.ID]
		if ingredients == nil {
			ingredients = []IngredientView{}
		}

		views = append(views, View{
			ID:               rec.ID,
			Tags:             tags,
			Author:           author,
			Ingredients:      ingredients,
			IsFavorited:      favorited[rec.ID],
			IsInShoppingCart: inCart[rec.ID],
			Name:             rec.Name,
			Image:            rec.Image,
			Text:             rec.Text,
			CookingTime:      rec.CookingTime,
		})
	}
	return views, nil
}
