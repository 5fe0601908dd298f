package relation

import (
	"context"

	"github.com/hitoshi/kondate/internal/model"
	"github.com/hitoshi/kondate/internal/repository"
)

// Mutator はリレーション行の追加・削除を行う。
// 成功時の対象エンティティ表現の組み立ては各ドメインサービスの責務で、
// ここでは行の変異とエラー分類のみを行う。
type Mutator struct {
	relRepo repository.RelationRepository
}

// NewMutator はMutatorを生成する。
func NewMutator(relRepo repository.RelationRepository) *Mutator {
	return &Mutator{relRepo: relRepo}
}

// Add は(user, target)のリレーション行を作成する。
// 購読の自己対象は存在チェックより先にSELF_RELATION_FORBIDDENで拒否する。
// 既存ペア（同時リクエストの一意制約違反を含む）はDUPLICATE_RELATIONになる。
func (m *Mutator) Add(ctx context.Context, userID int64, kind model.RelationKind, targetID int64) error {
	if kind == model.RelationSubscription && userID == targetID {
		return model.NewSelfRelationForbiddenError()
	}
	return m.relRepo.Create(ctx, userID, kind, targetID)
}

// Remove は(user, target)のリレーション行を削除する。
// 行が存在しない場合はRELATION_NOT_FOUNDになる。
func (m *Mutator) Remove(ctx context.Context, userID int64, kind model.RelationKind, targetID int64) error {
	return m.relRepo.Delete(ctx, userID, kind, targetID)
}
