// Package user はユーザープロフィール、アバター、購読を提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/kondate/internal/model"
	"github.com/hitoshi/kondate/internal/relation"
	"github.com/hitoshi/kondate/internal/repository"
)

// SubscriptionInfo は購読レスポンスで返す著者表現。
// プロフィールに加えて著者のレシピ短縮一覧と総数を含む。
type SubscriptionInfo struct {
	model.UserProfile
	Recipes      []model.RecipeShort `json:"recipes"`
	RecipesCount int                 `json:"recipes_count"`
}

// Service はユーザーに関するビジネスロジックを提供する。
type Service struct {
	userRepo   repository.UserRepository
	recipeRepo repository.RecipeRepository
	annotator  *relation.Annotator
	mutator    *relation.Mutator
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	recipeRepo repository.RecipeRepository,
	annotator *relation.Annotator,
	mutator *relation.Mutator,
) *Service {
	return &Service{
		userRepo:   userRepo,
		recipeRepo: recipeRepo,
		annotator:  annotator,
		mutator:    mutator,
	}
}

// GetProfile は指定ユーザーのプロフィールを返す。
// IsSubscribedは閲覧ユーザー視点で、1件でも一括判定と同じ契約で埋める。
func (s *Service) GetProfile(ctx context.Context, viewerID, userID int64) (*model.UserProfile, error) {
	u, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	subscribed, err := s.annotator.Annotate(ctx, viewerID, model.RelationSubscription, []int64{userID})
	if err != nil {
		return nil, err
	}

	profile := u.Profile(subscribed[userID])
	return &profile, nil
}

// ListProfiles はユーザー一覧と総数を返す。
// 購読フラグはページ全体で1クエリの一括判定で埋める。
func (s *Service) ListProfiles(ctx context.Context, viewerID int64, limit, offset int) ([]model.UserProfile, int, error) {
	users, err := s.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	total, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	subscribed, err := s.annotator.Annotate(ctx, viewerID, model.RelationSubscription, ids)
	if err != nil {
		return nil, 0, err
	}

	profiles := make([]model.UserProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile(subscribed[u.ID]))
	}
	return profiles, total, nil
}

// UpdateAvatar はアバター参照を更新する。
func (s *Service) UpdateAvatar(ctx context.Context, userID int64, avatar string) error {
	if avatar == "" {
		return model.NewValidationError("アバター画像を指定してください。")
	}
	if err := s.userRepo.UpdateAvatar(ctx, userID, avatar); err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}
	return nil
}

// DeleteAvatar はアバター参照を削除する。
func (s *Service) DeleteAvatar(ctx context.Context, userID int64) error {
	if err := s.userRepo.UpdateAvatar(ctx, userID, ""); err != nil {
		return fmt.Errorf("failed to delete avatar: %w", err)
	}
	return nil
}

// Subscribe はユーザーを著者の購読者に追加し、購読情報を返す。
// 自分自身への購読はSELF_RELATION_FORBIDDEN、実在しない著者はUSER_NOT_FOUNDになる。
// recipesLimitは0以下で無制限。
func (s *Service) Subscribe(ctx context.Context, userID, targetID int64, recipesLimit int) (*SubscriptionInfo, error) {
	target, err := s.findUser(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if err := s.mutator.Add(ctx, userID, model.RelationSubscription, targetID); err != nil {
		return nil, err
	}

	infos, err := s.buildSubscriptionInfos(ctx, []*model.User{target}, recipesLimit)
	if err != nil {
		return nil, err
	}

	slog.Info("subscription added",
		slog.Int64("user_id", userID),
		slog.Int64("author_id", targetID),
	)
	return &infos[0], nil
}

// Unsubscribe は購読を解除する。購読していない場合はRELATION_NOT_FOUNDになる。
func (s *Service) Unsubscribe(ctx context.Context, userID, targetID int64) error {
	if _, err := s.findUser(ctx, targetID); err != nil {
		return err
	}

	if err := s.mutator.Remove(ctx, userID, model.RelationSubscription, targetID); err != nil {
		return err
	}

	slog.Info("subscription removed",
		slog.Int64("user_id", userID),
		slog.Int64("author_id", targetID),
	)
	return nil
}

// ListSubscriptions は購読中の著者一覧と総数を返す。
// 著者集合・ユーザー行・レシピ行をそれぞれ1クエリのバッチで取得する。
func (s *Service) ListSubscriptions(ctx context.Context, userID int64, limit, offset, recipesLimit int) ([]SubscriptionInfo, int, error) {
	set, err := s.annotator.MemberSet(ctx, userID, model.RelationSubscription)
	if err != nil {
		return nil, 0, err
	}

	total := len(set)
	if total == 0 || offset >= total {
		return []SubscriptionInfo{}, total, nil
	}

	authorIDs := make([]int64, 0, total)
	for id := range set {
		authorIDs = append(authorIDs, id)
	}

	// ListByIDsはID昇順で返すため、ページはその順序で切る
	authors, err := s.userRepo.ListByIDs(ctx, authorIDs)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list authors: %w", err)
	}

	end := offset + limit
	if limit <= 0 || end > len(authors) {
		end = len(authors)
	}
	page := authors[offset:end]

	infos, err := s.buildSubscriptionInfos(ctx, page, recipesLimit)
	if err != nil {
		return nil, 0, err
	}
	return infos, total, nil
}

// buildSubscriptionInfos は著者集合の購読情報を組み立てる。
// レシピは著者集合ごと1クエリで取得し、recipesLimitで著者ごとに切り詰める。
func (s *Service) buildSubscriptionInfos(ctx context.Context, authors []*model.User, recipesLimit int) ([]SubscriptionInfo, error) {
	ids := make([]int64, 0, len(authors))
	for _, u := range authors {
		ids = append(ids, u.ID)
	}

	recipes, err := s.recipeRepo.ListByAuthorIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list author recipes: %w", err)
	}

	countByAuthor := make(map[int64]int, len(authors))
	shortsByAuthor := make(map[int64][]model.RecipeShort, len(authors))
	for _, rec := range recipes {
		countByAuthor[rec.AuthorID]++
		if recipesLimit > 0 && len(shortsByAuthor[rec.AuthorID]) >= recipesLimit {
			continue
		}
		shortsByAuthor[rec.AuthorID] = append(shortsByAuthor[rec.AuthorID], model.RecipeShort{
			ID:          rec.ID,
			Name:        rec.Name,
			Image:       rec.Image,
			CookingTime: rec.CookingTime,
		})
	}

	infos := make([]SubscriptionInfo, 0, len(authors))
	for _, u := range authors {
		shorts := shortsByAuthor[u.ID]
		if shorts == nil {
			shorts = []model.RecipeShort{}
		}
		infos = append(infos, SubscriptionInfo{
			UserProfile:  u.Profile(true), // 購読一覧・購読直後は常に購読中
			Recipes:      shorts,
			RecipesCount: countByAuthor[u.ID],
		})
	}
	return infos, nil
}

// findUser はユーザーを取得し、未検出をUSER_NOT_FOUNDに写像する。
func (s *Service) findUser(ctx context.Context, userID int64) (*model.User, error) {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError(userID)
	}
	return u, nil
}
