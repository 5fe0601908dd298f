package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/kondate/internal/model"
)

// PostgresIngredientRepo はPostgreSQLを使用した材料リポジトリ。
type PostgresIngredientRepo struct {
	db *sql.DB
}

// NewPostgresIngredientRepo はPostgresIngredientRepoを生成する。
func NewPostgresIngredientRepo(db *sql.DB) *PostgresIngredientRepo {
	return &PostgresIngredientRepo{db: db}
}

// List は材料一覧を返す。namePrefixが非空の場合は名前の前方一致で絞り込む。
func (r *PostgresIngredientRepo) List(ctx context.Context, namePrefix string) ([]model.Ingredient, error) {
	query := `SELECT id, name, measurement_unit FROM ingredients`
	args := []any{}
	if namePrefix != "" {
		query += ` WHERE name ILIKE $1 || '%'`
		args = append(args, namePrefix)
	}
	query += ` ORDER BY name ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("材料一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var ingredients []model.Ingredient
	for rows.Next() {
		var ing model.Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.MeasurementUnit); err != nil {
			return nil, fmt.Errorf("材料行の読み取りに失敗しました: %w", err)
		}
		ingredients = append(ingredients, ing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("材料一覧の走査に失敗しました: %w", err)
	}
	return ingredients, nil
}

// FindByID は指定IDの材料を取得する。見つからない場合はnilを返す。
func (r *PostgresIngredientRepo) FindByID(ctx context.Context, id int64) (*model.Ingredient, error) {
	ing := &model.Ingredient{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, measurement_unit FROM ingredients WHERE id = $1`, id,
	).Scan(&ing.ID, &ing.Name, &ing.MeasurementUnit)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("材料の取得に失敗しました: %w", err)
	}
	return ing, nil
}

// ExistingIDs は指定ID集合のうち実在するIDを1クエリで返す。
func (r *PostgresIngredientRepo) ExistingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM ingredients WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("材料IDの存在確認に失敗しました: %w", err)
	}
	defer rows.Close()

	var found []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("材料IDの読み取りに失敗しました: %w", err)
		}
		found = append(found, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("材料IDの走査に失敗しました: %w", err)
	}
	return found, nil
}

// compile-time interface check
var _ IngredientRepository = (*PostgresIngredientRepo)(nil)
