// Package model はドメインモデルを定義する。
package model

import "time"

// Recipe はレシピを表す。
type Recipe struct {
	ID          int64
	AuthorID    int64
	Name        string
	Image       string
	Text        string
	CookingTime int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RecipeShort はリレーション操作のレスポンスや購読一覧で使う最小限のレシピ表現。
type RecipeShort struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// Tag はレシピ分類用のタグを表す。
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Ingredient は（名前, 計量単位）の組を表す。
// 同一性は主キーだが、買い物リストの集計は（名前, 単位）の意味的同一性で行う。
type Ingredient struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

// IngredientLine はレシピ1件に含まれるひとつの材料行を表す。
type IngredientLine struct {
	IngredientID    int64
	Name            string
	MeasurementUnit string
	Amount          int
}
