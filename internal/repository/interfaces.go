// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/kondate/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成し、採番されたIDをuser.IDに書き戻す。
	// email/usernameの一意制約違反はDUPLICATE_USERエラーとして返す。
	Create(ctx context.Context, user *model.User) error

	// List はユーザー一覧をID昇順で返す。
	List(ctx context.Context, limit, offset int) ([]*model.User, error)

	// Count は全ユーザー数を返す。
	Count(ctx context.Context) (int, error)

	// ListByIDs は指定ID集合のユーザーを1クエリで取得し、ID昇順で返す。
	ListByIDs(ctx context.Context, ids []int64) ([]*model.User, error)

	// UpdatePassword はパスワードハッシュを更新する。
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// UpdateAvatar はアバター参照を更新する。空文字で削除扱いになる。
	UpdateAvatar(ctx context.Context, id int64, avatar string) error
}

// SessionRepository は認証トークンの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID int64) error
}

// TagRepository はタグデータの永続化インターフェース。タグの登録は管理外（データ投入）で行う。
type TagRepository interface {
	// List は全タグをID昇順で返す。
	List(ctx context.Context) ([]model.Tag, error)

	// FindByID は指定IDのタグを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Tag, error)

	// ExistingIDs は指定ID集合のうち実在するIDを1クエリで返す。
	ExistingIDs(ctx context.Context, ids []int64) ([]int64, error)
}

// IngredientRepository は材料データの永続化インターフェース。
type IngredientRepository interface {
	// List は材料一覧を返す。namePrefixが非空の場合は名前の前方一致で絞り込む。
	List(ctx context.Context, namePrefix string) ([]model.Ingredient, error)

	// FindByID は指定IDの材料を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Ingredient, error)

	// ExistingIDs は指定ID集合のうち実在するIDを1クエリで返す。
	ExistingIDs(ctx context.Context, ids []int64) ([]int64, error)
}

// IngredientAmount はレシピ作成・更新時の材料指定（材料ID + 数量）。
type IngredientAmount struct {
	IngredientID int64
	Amount       int
}

// RecipeFilter はレシピ一覧の絞り込み条件。
// IncludeIDs/ExcludeIDsはリレーション由来のID集合による包含・除外で、
// nilは「条件なし」を意味する（空スライスのIncludeIDsは0件にマッチする）。
type RecipeFilter struct {
	AuthorID   int64 // 0は条件なし
	TagSlugs   []string
	IncludeIDs []int64
	ExcludeIDs []int64
	Limit      int
	Offset     int
}

// RecipeLine はレシピIDを添えた材料行。バッチ取得の結果行として使う。
type RecipeLine struct {
	RecipeID int64
	model.IngredientLine
}

// RecipeRepository はレシピデータの永続化インターフェース。
type RecipeRepository interface {
	// FindByID は指定IDのレシピを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Recipe, error)

	// Create はレシピとタグ・材料行を同一トランザクションで作成し、
	// 採番されたIDをrecipe.IDに書き戻す。
	Create(ctx context.Context, recipe *model.Recipe, tagIDs []int64, lines []IngredientAmount) error

	// Update はレシピ本体を更新し、タグ・材料行を渡された内容で置き換える。
	Update(ctx context.Context, recipe *model.Recipe, tagIDs []int64, lines []IngredientAmount) error

	// DeleteByID は指定IDのレシピを削除する。関連行はCASCADE削除される。
	DeleteByID(ctx context.Context, id int64) error

	// List はフィルタ条件に一致するレシピをID降順（新着順）で返す。
	List(ctx context.Context, filter RecipeFilter) ([]*model.Recipe, error)

	// Count はフィルタ条件に一致するレシピの総数を返す（Limit/Offsetは無視する）。
	Count(ctx context.Context, filter RecipeFilter) (int, error)

	// ListByAuthorIDs は指定著者集合のレシピを1クエリで取得し、
	// (author_id, id降順)で返す。購読一覧のレシピ付与に使う。
	ListByAuthorIDs(ctx context.Context, authorIDs []int64) ([]*model.Recipe, error)

	// ListTagsByRecipeIDs は指定レシピ集合のタグを1クエリで取得する。
	ListTagsByRecipeIDs(ctx context.Context, recipeIDs []int64) (map[int64][]model.Tag, error)

	// ListLinesByRecipeIDs は指定レシピ集合の材料行を1クエリで取得し、
	// (recipe_id, 行ID)順で返す。順序は集計の初出順の基準になる。
	ListLinesByRecipeIDs(ctx context.Context, recipeIDs []int64) ([]RecipeLine, error)
}

// RelationRepository はユーザー所有リレーション（お気に入り・買い物カゴ・購読）の
// 永続化インターフェース。3種のjoinテーブルを種別で切り替える。
type RelationRepository interface {
	// ListTargetIDs はユーザーの対象ID集合を1クエリで返す（IDのみ、行全体は取得しない）。
	// バッチ判定の唯一のルックアップであり、呼び出し側はこの集合に対する
	// メンバーシップ判定だけで注釈を完結させる。
	ListTargetIDs(ctx context.Context, userID int64, kind model.RelationKind) ([]int64, error)

	// Create は(user, target)のリレーション行を作成する。
	// 既存ペアとの競合（一意制約違反を含む）はDUPLICATE_RELATIONエラーとして返す。
	Create(ctx context.Context, userID int64, kind model.RelationKind, targetID int64) error

	// Delete は(user, target)のリレーション行を削除する。
	// 行が存在しない場合はRELATION_NOT_FOUNDエラーを返す。
	Delete(ctx context.Context, userID int64, kind model.RelationKind, targetID int64) error
}
