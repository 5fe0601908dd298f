package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/kondate/internal/model"
)

// PostgresRecipeRepo はPostgreSQLを使用したレシピリポジトリ。
type PostgresRecipeRepo struct {
	db *sql.DB
}

// NewPostgresRecipeRepo はPostgresRecipeRepoを生成する。
func NewPostgresRecipeRepo(db *sql.DB) *PostgresRecipeRepo {
	return &PostgresRecipeRepo{db: db}
}

const recipeColumns = `id, author_id, name, image, text, cooking_time, created_at, updated_at`

func scanRecipe(scanner interface{ Scan(...any) error }) (*model.Recipe, error) {
	rec := &model.Recipe{}
	err := scanner.Scan(
		&rec.ID, &rec.AuthorID, &rec.Name, &rec.Image, &rec.Text,
		&rec.CookingTime, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// FindByID は指定IDのレシピを取得する。見つからない場合はnilを返す。
func (r *PostgresRecipeRepo) FindByID(ctx context.Context, id int64) (*model.Recipe, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recipeColumns+` FROM recipes WHERE id = $1`, id)

	rec, err := scanRecipe(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("レシピの取得に失敗しました: %w", err)
	}
	return rec, nil
}

// Create はレシピとタグ・材料行を同一トランザクションで作成する。
func (r *PostgresRecipeRepo) Create(ctx context.Context, recipe *model.Recipe, tagIDs []int64, lines []IngredientAmount) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO recipes (author_id, name, image, text, cooking_time, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		recipe.AuthorID, recipe.Name, recipe.Image, recipe.Text,
		recipe.CookingTime, recipe.CreatedAt, recipe.UpdatedAt,
	).Scan(&recipe.ID)
	if err != nil {
		return fmt.Errorf("レシピの作成に失敗しました: %w", err)
	}

	if err := insertRecipeRelations(ctx, tx, recipe.ID, tagIDs, lines); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("レシピ作成のコミットに失敗しました: %w", err)
	}
	return nil
}

// Update はレシピ本体を更新し、タグ・材料行を渡された内容で置き換える。
func (r *PostgresRecipeRepo) Update(ctx context.Context, recipe *model.Recipe, tagIDs []int64, lines []IngredientAmount) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE recipes SET name = $2, image = $3, text = $4, cooking_time = $5, updated_at = NOW()
		 WHERE id = $1`,
		recipe.ID, recipe.Name, recipe.Image, recipe.Text, recipe.CookingTime,
	)
	if err != nil {
		return fmt.Errorf("レシピの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewRecipeNotFoundError(recipe.ID)
	}

	// タグと材料行は全置き換え
	if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_tags WHERE recipe_id = $1`, recipe.ID); err != nil {
		return fmt.Errorf("レシピタグの置き換えに失敗しました: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = $1`, recipe.ID); err != nil {
		return fmt.Errorf("レシピ材料の置き換えに失敗しました: %w", err)
	}

	if err := insertRecipeRelations(ctx, tx, recipe.ID, tagIDs, lines); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("レシピ更新のコミットに失敗しました: %w", err)
	}
	return nil
}

// insertRecipeRelations はタグと材料行を挿入する。Create/Updateで共有する。
func insertRecipeRelations(ctx context.Context, tx *sql.Tx, recipeID int64, tagIDs []int64, lines []IngredientAmount) error {
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO recipe_tags (recipe_id, tag_id) VALUES ($1, $2)`,
			recipeID, tagID,
		); err != nil {
			return fmt.Errorf("レシピタグの作成に失敗しました: %w", err)
		}
	}
	for _, line := range lines {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO recipe_ingredients (recipe_id, ingredient_id, amount) VALUES ($1, $2, $3)`,
			recipeID, line.IngredientID, line.Amount,
		); err != nil {
			return fmt.Errorf("レシピ材料の作成に失敗しました: %w", err)
		}
	}
	return nil
}

// DeleteByID は指定IDのレシピを削除する。
func (r *PostgresRecipeRepo) DeleteByID(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("レシピの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewRecipeNotFoundError(id)
	}
	return nil
}

// buildRecipeFilter はフィルタ条件からWHERE句と引数を組み立てる。
// IncludeIDs/ExcludeIDsはnilが「条件なし」、非nilの空集合は通常のANY評価に委ねる
// （空集合のANYは偽なのでIncludeIDsは0件、ExcludeIDsは全件にマッチする）。
func buildRecipeFilter(filter RecipeFilter) (string, []any) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.AuthorID != 0 {
		conds = append(conds, "author_id = "+arg(filter.AuthorID))
	}
	if len(filter.TagSlugs) > 0 {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM recipe_tags rt
			JOIN tags t ON t.id = rt.tag_id
			WHERE rt.recipe_id = recipes.id AND t.slug = ANY(`+arg(pq.Array(filter.TagSlugs))+`)
		)`)
	}
	if filter.IncludeIDs != nil {
		conds = append(conds, "id = ANY("+arg(pq.Array(filter.IncludeIDs))+")")
	}
	if filter.ExcludeIDs != nil {
		conds = append(conds, "NOT (id = ANY("+arg(pq.Array(filter.ExcludeIDs))+"))")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List はフィルタ条件に一致するレシピをID降順（新着順）で返す。
func (r *PostgresRecipeRepo) List(ctx context.Context, filter RecipeFilter) ([]*model.Recipe, error) {
	where, args := buildRecipeFilter(filter)

	query := `SELECT ` + recipeColumns + ` FROM recipes` + where + ` ORDER BY id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("レシピ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var recipes []*model.Recipe
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("レシピ行の読み取りに失敗しました: %w", err)
		}
		recipes = append(recipes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("レシピ一覧の走査に失敗しました: %w", err)
	}
	return recipes, nil
}

// Count はフィルタ条件に一致するレシピの総数を返す。
func (r *PostgresRecipeRepo) Count(ctx context.Context, filter RecipeFilter) (int, error) {
	where, args := buildRecipeFilter(filter)

	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("レシピ数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// ListByAuthorIDs は指定著者集合のレシピを1クエリで取得する。
func (r *PostgresRecipeRepo) ListByAuthorIDs(ctx context.Context, authorIDs []int64) ([]*model.Recipe, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recipeColumns+` FROM recipes WHERE author_id = ANY($1)
		 ORDER BY author_id ASC, id DESC`,
		pq.Array(authorIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("著者集合によるレシピの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var recipes []*model.Recipe
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("レシピ行の読み取りに失敗しました: %w", err)
		}
		recipes = append(recipes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("レシピ集合の走査に失敗しました: %w", err)
	}
	return recipes, nil
}

// ListTagsByRecipeIDs は指定レシピ集合のタグを1クエリで取得する。
func (r *PostgresRecipeRepo) ListTagsByRecipeIDs(ctx context.Context, recipeIDs []int64) (map[int64][]model.Tag, error) {
	result := make(map[int64][]model.Tag)
	if len(recipeIDs) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT rt.recipe_id, t.id, t.name, t.slug
		 FROM recipe_tags rt
		 JOIN tags t ON t.id = rt.tag_id
		 WHERE rt.recipe_id = ANY($1)
		 ORDER BY rt.recipe_id ASC, t.id ASC`,
		pq.Array(recipeIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("レシピタグの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var recipeID int64
		var t model.Tag
		if err := rows.Scan(&recipeID, &t.ID, &t.Name, &t.Slug); err != nil {
			return nil, fmt.Errorf("レシピタグ行の読み取りに失敗しました: %w", err)
		}
		result[recipeID] = append(result[recipeID], t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("レシピタグの走査に失敗しました: %w", err)
	}
	return result, nil
}

// ListLinesByRecipeIDs は指定レシピ集合の材料行を1クエリで取得する。
// 返り値は(recipe_id, 行ID)順で安定しており、買い物リスト集計の初出順の基準になる。
func (r *PostgresRecipeRepo) ListLinesByRecipeIDs(ctx context.Context, recipeIDs []int64) ([]RecipeLine, error) {
	if len(recipeIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT ri.recipe_id, ri.ingredient_id, i.name, i.measurement_unit, ri.amount
		 FROM recipe_ingredients ri
		 JOIN ingredients i ON i.id = ri.ingredient_id
		 WHERE ri.recipe_id = ANY($1)
		 ORDER BY ri.recipe_id ASC, ri.id ASC`,
		pq.Array(recipeIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("材料行の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var lines []RecipeLine
	for rows.Next() {
		var line RecipeLine
		if err := rows.Scan(
			&line.RecipeID, &line.IngredientID, &line.Name,
			&line.MeasurementUnit, &line.Amount,
		); err != nil {
			return nil, fmt.Errorf("材料行の読み取りに失敗しました: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("材料行の走査に失敗しました: %w", err)
	}
	return lines, nil
}

// compile-time interface check
var _ RecipeRepository = (*PostgresRecipeRepo)(nil)
