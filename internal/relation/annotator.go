// Package relation はユーザー所有リレーション（お気に入り・買い物カゴ・購読）の
// 一括判定と単発の追加・削除を提供する。
package relation

import (
	"context"
	"fmt"

	"github.com/hitoshi/kondate/internal/model"
	"github.com/hitoshi/kondate/internal/repository"
)

// Annotator はリクエストユーザーと対象エンティティ集合に対して、
// リレーション所属フラグを一括で求める。
//
// 判定はエンティティ件数によらずリレーション種別ごとに最大1クエリ:
// ユーザーの対象ID集合を1度だけ取得し、以降はメモリ上の集合判定で完結する。
// 行ごとの存在クエリ（N+1）は発行しない。
type Annotator struct {
	relRepo repository.RelationRepository
}

// NewAnnotator はAnnotatorを生成する。
func NewAnnotator(relRepo repository.RelationRepository) *Annotator {
	return &Annotator{relRepo: relRepo}
}

// MemberSet はユーザーのリレーション対象ID集合を返す。
// 匿名ユーザーはルックアップなしで空集合を返す。
// 複数種別の注釈を同じリクエストで行う場合は種別ごとに1回だけ呼ぶ。
func (a *Annotator) MemberSet(ctx context.Context, userID int64, kind model.RelationKind) (map[int64]bool, error) {
	if userID == model.AnonymousUserID {
		return map[int64]bool{}, nil
	}

	ids, err := a.relRepo.ListTargetIDs(ctx, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("リレーション集合の取得に失敗しました: %w", err)
	}

	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// Annotate は対象エンティティID列それぞれの所属フラグを返す。
// 匿名ユーザーは全てfalse（クエリなし）、空のID列は空のマップ（クエリなし）。
// 一覧でも詳細（1件）でも同じ1クエリ契約で動作する。
func (a *Annotator) Annotate(ctx context.Context, userID int64, kind model.RelationKind, entityIDs []int64) (map[int64]bool, error) {
	result := make(map[int64]bool, len(entityIDs))
	if len(entityIDs) == 0 {
		return result, nil
	}

	if userID == model.AnonymousUserID {
		for _, id := range entityIDs {
			result[id] = false
		}
		return result, nil
	}

	set, err := a.MemberSet(ctx, userID, kind)
	if err != nil {
		return nil, err
	}

	for _, id := range entityIDs {
		result[id] = set[id]
	}
	return result, nil
}
