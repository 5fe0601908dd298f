package model

// RelationKind はユーザーが所有する多対多リレーションの種別を表す。
type RelationKind string

const (
	// RelationFavorite はお気に入り（user → recipe）。
	RelationFavorite RelationKind = "favorite"
	// RelationShoppingCart は買い物カゴ（user → recipe）。
	RelationShoppingCart RelationKind = "shopping_cart"
	// RelationSubscription は購読（user → user）。
	RelationSubscription RelationKind = "subscription"
)

// IsValid は既知のリレーション種別かどうかを返す。
func (k RelationKind) IsValid() bool {
	switch k {
	case RelationFavorite, RelationShoppingCart, RelationSubscription:
		return true
	}
	return false
}
