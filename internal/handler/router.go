package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/kondate/internal/metrics"
	"github.com/hitoshi/kondate/internal/middleware"
	"github.com/hitoshi/kondate/internal/repository"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// サービス
	AuthService         AuthServiceInterface
	RegistrationService RegistrationServiceInterface
	UserService         UserServiceInterface
	RecipeService       RecipeServiceInterface
	ShoppingService     ShoppingServiceInterface

	// カタログ
	TagRepo        repository.TagRepository
	IngredientRepo repository.IngredientRepository

	// 観測
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer

	// ヘルスチェック（DB疎通確認）
	HealthCheck func(ctx context.Context) error

	// ページング
	Pagination PaginationConfig
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics
//
// その内側で、公開ルートは任意認証、保護ルートは必須認証を重ねる。
// レート制限はAPI全般と書き込み系の2段構え。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}

	authHandler := NewAuthHandler(deps.AuthService)
	userHandler := NewUserHandler(deps.UserService, deps.RegistrationService, deps.Metrics, deps.Pagination)
	recipeHandler := NewRecipeHandler(deps.RecipeService, deps.ShoppingService, deps.Metrics, deps.Pagination)
	catalogHandler := NewCatalogHandler(deps.TagRepo, deps.IngredientRepo)

	optionalAuth := middleware.NewOptionalTokenAuthMiddleware(deps.SessionFinder)
	requiredAuth := middleware.NewTokenAuthMiddleware(deps.SessionFinder)
	generalLimit := deps.RateLimiter.GeneralMiddleware()
	mutationLimit := deps.RateLimiter.MutationMiddleware()

	// --- 公開ルート（任意認証: フラグ付与だけ閲覧ユーザー視点になる） ---
	r.Group(func(r chi.Router) {
		r.Use(optionalAuth)
		r.Use(generalLimit)

		// 認証・登録
		r.With(mutationLimit).Post("/api/auth/token/login", authHandler.Login)
		r.With(mutationLimit).Post("/api/users", userHandler.Register)

		// ユーザー閲覧
		r.Get("/api/users", userHandler.List)
		r.Get("/api/users/{id}", userHandler.Get)

		// カタログ
		r.Route("/api/tags", func(r chi.Router) {
			r.Get("/", catalogHandler.ListTags)
			r.Get("/{id}", catalogHandler.GetTag)
		})
		r.Route("/api/ingredients", func(r chi.Router) {
			r.Get("/", catalogHandler.ListIngredients)
			r.Get("/{id}", catalogHandler.GetIngredient)
		})

		// レシピ閲覧
		r.Get("/api/recipes", recipeHandler.List)
		r.Get("/api/recipes/{id}", recipeHandler.Get)
		r.Get("/api/recipes/{id}/get-link", recipeHandler.GetLink)

		// 短縮リンクの解決
		r.Get("/s/{token}", recipeHandler.ResolveShortLink)
	})

	// --- 保護ルート（必須認証） ---
	r.Group(func(r chi.Router) {
		r.Use(requiredAuth)
		r.Use(generalLimit)

		r.Post("/api/auth/token/logout", authHandler.Logout)

		// 自分自身の管理
		r.Get("/api/users/me", userHandler.Me)
		r.With(mutationLimit).Post("/api/users/set_password", userHandler.SetPassword)
		r.With(mutationLimit).Put("/api/users/me/avatar", userHandler.UpdateAvatar)
		r.With(mutationLimit).Delete("/api/users/me/avatar", userHandler.DeleteAvatar)

		// 購読
		r.Get("/api/users/subscriptions", userHandler.ListSubscriptions)
		r.With(mutationLimit).Post("/api/users/{id}/subscribe", userHandler.Subscribe)
		r.With(mutationLimit).Delete("/api/users/{id}/subscribe", userHandler.Unsubscribe)

		// レシピの書き込み
		r.With(mutationLimit).Post("/api/recipes", recipeHandler.Create)
		r.With(mutationLimit).Patch("/api/recipes/{id}", recipeHandler.Update)
		r.With(mutationLimit).Delete("/api/recipes/{id}", recipeHandler.Delete)

		// お気に入り・買い物カゴ
		r.With(mutationLimit).Post("/api/recipes/{id}/favorite", recipeHandler.AddFavorite)
		r.With(mutationLimit).Delete("/api/recipes/{id}/favorite", recipeHandler.RemoveFavorite)
		r.With(mutationLimit).Post("/api/recipes/{id}/shopping_cart", recipeHandler.AddToCart)
		r.With(mutationLimit).Delete("/api/recipes/{id}/shopping_cart", recipeHandler.RemoveFromCart)

		// 買い物リストのダウンロード
		r.Get("/api/recipes/download_shopping_cart", recipeHandler.DownloadShoppingCart)
	})

	// --- 運用ルート ---
	if deps.MetricsGatherer != nil {
		r.Get("/metrics", metrics.Handler(deps.MetricsGatherer).ServeHTTP)
	}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if deps.HealthCheck != nil {
			if err := deps.HealthCheck(r.Context()); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
