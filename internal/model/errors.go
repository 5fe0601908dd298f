// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, relation, recipe, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeDuplicateRelation     = "DUPLICATE_RELATION"
	ErrCodeRelationNotFound      = "RELATION_NOT_FOUND"
	ErrCodeSelfRelationForbidden = "SELF_RELATION_FORBIDDEN"
	ErrCodeRecipeNotFound        = "RECIPE_NOT_FOUND"
	ErrCodeUserNotFound          = "USER_NOT_FOUND"
	ErrCodeIngredientNotFound    = "INGREDIENT_NOT_FOUND"
	ErrCodeTagNotFound           = "TAG_NOT_FOUND"
	ErrCodeMalformedShareLink    = "MALFORMED_SHARE_LINK"
	ErrCodeValidationFailed      = "VALIDATION_FAILED"
	ErrCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	ErrCodeDuplicateUser         = "DUPLICATE_USER"
	ErrCodeForbidden             = "FORBIDDEN"
)

// NewDuplicateRelationError は既に存在するリレーションを再登録しようとした場合のエラーを生成する。
// ストレージ層の一意制約違反もこのエラーに写像される。
func NewDuplicateRelationError(kind RelationKind) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateRelation,
		Message:  fmt.Sprintf("このリレーションは既に存在します: %s", kind),
		Category: "relation",
		Action:   "一覧を確認してください。追加済みの対象を再度追加することはできません。",
	}
}

// NewRelationNotFoundError は存在しないリレーションを削除しようとした場合のエラーを生成する。
func NewRelationNotFoundError(kind RelationKind) *APIError {
	return &APIError{
		Code:     ErrCodeRelationNotFound,
		Message:  fmt.Sprintf("指定されたリレーションが見つかりません: %s", kind),
		Category: "relation",
		Action:   "追加されていない対象は削除できません。一覧を確認してください。",
	}
}

// NewSelfRelationForbiddenError は自分自身への購読を試みた場合のエラーを生成する。
func NewSelfRelationForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeSelfRelationForbidden,
		Message:  "自分自身を購読することはできません。",
		Category: "relation",
		Action:   "他のユーザーを指定してください。",
	}
}

// NewRecipeNotFoundError はレシピ未検出エラーを生成する。
func NewRecipeNotFoundError(recipeID int64) *APIError {
	return &APIError{
		Code:     ErrCodeRecipeNotFound,
		Message:  fmt.Sprintf("指定されたレシピが見つかりません: %d", recipeID),
		Category: "recipe",
		Action:   "レシピIDを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(userID int64) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %d", userID),
		Category: "auth",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewIngredientNotFoundError は材料が見つからない場合のエラーを生成する。
func NewIngredientNotFoundError(ingredientID int64) *APIError {
	return &APIError{
		Code:     ErrCodeIngredientNotFound,
		Message:  fmt.Sprintf("指定された材料が見つかりません: %d", ingredientID),
		Category: "validation",
		Action:   "材料IDを確認してください。",
	}
}

// NewTagNotFoundError はタグが見つからない場合のエラーを生成する。
func NewTagNotFoundError(tagID int64) *APIError {
	return &APIError{
		Code:     ErrCodeTagNotFound,
		Message:  fmt.Sprintf("指定されたタグが見つかりません: %d", tagID),
		Category: "validation",
		Action:   "タグIDを確認してください。",
	}
}

// NewMalformedShareLinkError は短縮リンクのトークンが復号できない場合のエラーを生成する。
// レシピ未検出（RECIPE_NOT_FOUND）とは区別される。
func NewMalformedShareLinkError(token string) *APIError {
	return &APIError{
		Code:     ErrCodeMalformedShareLink,
		Message:  fmt.Sprintf("短縮リンクを解釈できません: %s", token),
		Category: "validation",
		Action:   "リンクが正しくコピーされているか確認してください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Category: "validation",
		Action:   "リクエスト内容を修正して再度お試しください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewDuplicateUserError はメールアドレスまたはユーザー名の重複エラーを生成する。
func NewDuplicateUserError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUser,
		Message:  "このメールアドレスまたはユーザー名は既に使用されています。",
		Category: "validation",
		Action:   "別のメールアドレスまたはユーザー名を指定してください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "自分が作成したレシピに対してのみ実行できます。",
	}
}
