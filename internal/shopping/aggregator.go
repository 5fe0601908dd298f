// Package shopping は買い物カゴの材料集計とエクスポート文書の生成を提供する。
package shopping

import (
	"context"
	"fmt"
	"strings"

	"github.com/hitoshi/kondate/internal/model"
	"github.com/hitoshi/kondate/internal/repository"
)

// DocumentHeader はエクスポート文書の先頭行。
const DocumentHeader = "Список покупок:"

// Filename は外部層がダウンロードとして包む際のファイル名。
const Filename = "shopping_list.txt"

// groupKey は集計のマージキー。材料の保存IDではなく正規化した
// （名前, 計量単位）の意味的同一性で束ねる。別レコードでも同じ
// 名前・単位の組は1行に合算される。
type groupKey struct {
	name string
	unit string
}

// Item は集計済みの1材料。
type Item struct {
	Name            string
	MeasurementUnit string
	TotalAmount     int
}

// Aggregator はユーザーの買い物カゴ全体の材料を集計する。
//
// ルックアップは2回で固定: カゴ内レシピID集合の解決が1クエリ、
// そのID集合をキーにした材料行のバッチ取得が1クエリ。
// レシピごとの取得は行わない。
type Aggregator struct {
	relRepo    repository.RelationRepository
	recipeRepo repository.RecipeRepository
}

// NewAggregator はAggregatorを生成する。
func NewAggregator(relRepo repository.RelationRepository, recipeRepo repository.RecipeRepository) *Aggregator {
	return &Aggregator{relRepo: relRepo, recipeRepo: recipeRepo}
}

// Aggregate はユーザーの買い物カゴ全体の材料を（名前, 単位）で束ねて合算する。
// 並び順は材料行の初出順（行取得順に対して安定・決定的）。
func (a *Aggregator) Aggregate(ctx context.Context, userID int64) ([]Item, error) {
	recipeIDs, err := a.relRepo.ListTargetIDs(ctx, userID, model.RelationShoppingCart)
	if err != nil {
		return nil, fmt.Errorf("買い物カゴのレシピID集合の取得に失敗しました: %w", err)
	}
	if len(recipeIDs) == 0 {
		return nil, nil
	}

	lines, err := a.recipeRepo.ListLinesByRecipeIDs(ctx, recipeIDs)
	if err != nil {
		return nil, fmt.Errorf("買い物カゴの材料行の取得に失敗しました: %w", err)
	}

	totals := make(map[groupKey]int, len(lines))
	var order []groupKey
	display := make(map[groupKey]Item, len(lines))

	for _, line := range lines {
		key := groupKey{
			name: strings.ToLower(strings.TrimSpace(line.Name)),
			unit: strings.ToLower(strings.TrimSpace(line.MeasurementUnit)),
		}
		if _, seen := totals[key]; !seen {
			order = append(order, key)
			// 表示は初出行の表記をそのまま使う
			display[key] = Item{
				Name:            strings.TrimSpace(line.Name),
				MeasurementUnit: strings.TrimSpace(line.MeasurementUnit),
			}
		}
		totals[key] += line.Amount
	}

	items := make([]Item, 0, len(order))
	for _, key := range order {
		item := display[key]
		item.TotalAmount = totals[key]
		items = append(items, item)
	}
	return items, nil
}

// BuildDocument は集計結果をプレーンテキスト文書として整形する。
// 先頭にヘッダ行、以降に1材料1行。カゴが空の場合はヘッダ行のみ。
func (a *Aggregator) BuildDocument(ctx context.Context, userID int64) (string, error) {
	items, err := a.Aggregate(ctx, userID)
	if err != nil {
		return "", err
	}
	return FormatDocument(items), nil
}

// FormatDocument は集計済み材料列をプレーンテキスト文書に整形する。
func FormatDocument(items []Item) string {
	var b strings.Builder
	b.WriteString(DocumentHeader)
	b.WriteString("\n")
	for _, item := range items {
		fmt.Fprintf(&b, "%s (%s) — %d\n", item.Name, item.MeasurementUnit, item.TotalAmount)
	}
	return b.String()
}
