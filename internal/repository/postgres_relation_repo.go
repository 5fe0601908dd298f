package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/kondate/internal/model"
)

// uniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const uniqueViolation = "23505"

// relationTable はリレーション種別ごとのテーブル名と対象カラム名。
type relationTable struct {
	table        string
	targetColumn string
}

// relationTables はリレーション種別からjoinテーブルへの対応表。
var relationTables = map[model.RelationKind]relationTable{
	model.RelationFavorite:     {table: "favorites", targetColumn: "recipe_id"},
	model.RelationShoppingCart: {table: "shopping_carts", targetColumn: "recipe_id"},
	model.RelationSubscription: {table: "follows", targetColumn: "following_id"},
}

// PostgresRelationRepo はPostgreSQLを使用したリレーションリポジトリ。
// お気に入り・買い物カゴ・購読の3テーブルを種別で切り替えて扱う。
type PostgresRelationRepo struct {
	db *sql.DB
}

// NewPostgresRelationRepo はPostgresRelationRepoを生成する。
func NewPostgresRelationRepo(db *sql.DB) *PostgresRelationRepo {
	return &PostgresRelationRepo{db: db}
}

// ListTargetIDs はユーザーの対象ID集合を1クエリで返す。
func (r *PostgresRelationRepo) ListTargetIDs(ctx context.Context, userID int64, kind model.RelationKind) ([]int64, error) {
	rt, ok := relationTables[kind]
	if !ok {
		return nil, fmt.Errorf("未知のリレーション種別です: %s", kind)
	}

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = $1 ORDER BY id ASC`, rt.targetColumn, rt.table),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("リレーション対象ID集合の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("リレーション対象IDの読み取りに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("リレーション対象ID集合の走査に失敗しました: %w", err)
	}
	return ids, nil
}

// Create は(user, target)のリレーション行を作成する。
// 一意制約違反はDUPLICATE_RELATIONエラーに写像する。存在チェックとINSERTの間で
// 同時リクエストが競合しても、敗者は制約違反として同じエラーになる。
func (r *PostgresRelationRepo) Create(ctx context.Context, userID int64, kind model.RelationKind, targetID int64) error {
	rt, ok := relationTables[kind]
	if !ok {
		return fmt.Errorf("未知のリレーション種別です: %s", kind)
	}

	_, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (user_id, %s) VALUES ($1, $2)`, rt.table, rt.targetColumn),
		userID, targetID,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return model.NewDuplicateRelationError(kind)
		}
		return fmt.Errorf("リレーションの作成に失敗しました: %w", err)
	}
	return nil
}

// Delete は(user, target)のリレーション行を削除する。
// 行が存在しない場合はRELATION_NOT_FOUNDエラーを返す。
func (r *PostgresRelationRepo) Delete(ctx context.Context, userID int64, kind model.RelationKind, targetID int64) error {
	rt, ok := relationTables[kind]
	if !ok {
		return fmt.Errorf("未知のリレーション種別です: %s", kind)
	}

	result, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND %s = $2`, rt.table, rt.targetColumn),
		userID, targetID,
	)
	if err != nil {
		return fmt.Errorf("リレーションの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewRelationNotFoundError(kind)
	}
	return nil
}

// compile-time interface check
var _ RelationRepository = (*PostgresRelationRepo)(nil)
