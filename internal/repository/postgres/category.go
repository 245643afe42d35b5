package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/TradeCatalog/internal/domain"
	"github.com/utafrali/TradeCatalog/pkg/database"
	apperrors "github.com/utafrali/TradeCatalog/pkg/errors"
)

const categoryColumns = `id, name_en, name_ar, description_en, description_ar, parent_id, is_active, created_at, updated_at`

// CategoryRepository implements repository.CategoryRepository using PostgreSQL.
type CategoryRepository struct {
	db database.DBTX
}

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(db database.DBTX) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// GetByID retrieves an active category by its ID.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (_ *domain.Category, err error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1 AND is_active = TRUE`
	ctx, end := database.TraceQuery(ctx, "GetCategory", query)
	defer func() { end(err) }()

	c, err := scanCategory(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("category", id)
		}
		return nil, fmt.Errorf("get category %s: %w", id, err)
	}
	return c, nil
}

// ListActive returns all active categories ordered by English name.
func (r *CategoryRepository) ListActive(ctx context.Context) (_ []domain.Category, err error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE is_active = TRUE ORDER BY name_en`
	ctx, end := database.TraceQuery(ctx, "ListCategories", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}
	return categories, nil
}

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var c domain.Category
	err := row.Scan(
		&c.ID,
		&c.NameEn,
		&c.NameAr,
		&c.DescriptionEn,
		&c.DescriptionAr,
		&c.ParentID,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
