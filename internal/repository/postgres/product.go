package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/TradeCatalog/internal/domain"
	"github.com/utafrali/TradeCatalog/internal/pricing"
	"github.com/utafrali/TradeCatalog/internal/repository"
	"github.com/utafrali/TradeCatalog/pkg/database"
	apperrors "github.com/utafrali/TradeCatalog/pkg/errors"
)

const productColumns = `id, supplier_id, name_en, name_ar, description_en, description_ar,
		category, subcategory, unit, unit_size,
		end_user_price, retail_price_b2c, retail_price_corporate, retail_price_horeca, wholesale_price,
		wholesale_min_quantity, stock_quantity, is_available, is_deleted, deleted_at,
		created_at, updated_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetByID retrieves a product by its ID, including soft-deleted products.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (_ *domain.Product, err error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	ctx, end := database.TraceQuery(ctx, "GetProduct", query)
	defer func() { end(err) }()

	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ProductNotFound(id)
		}
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

// List returns active products matching filter, newest first, with the total
// count of matches.
func (r *ProductRepository) List(ctx context.Context, filter repository.SearchFilter) (_ []domain.Product, _ int, err error) {
	where, args := buildWhere(filter)
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM products
		WHERE %s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)+1, len(args)+2,
	)
	pageArgs := append(append(make([]any, 0, len(args)+2), args...), filter.PageSize, filter.Offset())

	ctx, end := database.TraceQuery(ctx, "ListProducts", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	total := 0
	for rows.Next() {
		p, err := scanProduct(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	// A page past the end carries no window count.
	if len(products) == 0 && filter.Offset() > 0 {
		if err := r.db.QueryRow(ctx, "SELECT count(*) FROM products WHERE "+where, args...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count products: %w", err)
		}
	}
	return products, total, nil
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`
	ctx, end := database.TraceQuery(ctx, "CreateProduct", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		p.ID,
		p.SupplierID,
		p.NameEn,
		p.NameAr,
		p.DescriptionEn,
		p.DescriptionAr,
		p.Category,
		p.Subcategory,
		p.Unit,
		p.UnitSize,
		p.Prices.EndUser,
		p.Prices.B2C,
		p.Prices.Corporate,
		p.Prices.Horeca,
		p.Prices.Wholesale,
		p.WholesaleMinQuantity,
		p.StockQuantity,
		p.IsAvailable,
		p.Lifecycle.IsDeleted(),
		p.Lifecycle.DeletedTime(),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "id", p.ID)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of an active product. The supplier
// reference and lifecycle are never written here.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) (err error) {
	query := `
		UPDATE products
		SET name_en = $1, name_ar = $2, description_en = $3, description_ar = $4,
		    category = $5, subcategory = $6, unit = $7, unit_size = $8,
		    end_user_price = $9, retail_price_b2c = $10, retail_price_corporate = $11,
		    retail_price_horeca = $12, wholesale_price = $13,
		    wholesale_min_quantity = $14, stock_quantity = $15, is_available = $16,
		    updated_at = $17
		WHERE id = $18 AND is_deleted = FALSE`
	ctx, end := database.TraceQuery(ctx, "UpdateProduct", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query,
		p.NameEn,
		p.NameAr,
		p.DescriptionEn,
		p.DescriptionAr,
		p.Category,
		p.Subcategory,
		p.Unit,
		p.UnitSize,
		p.Prices.EndUser,
		p.Prices.B2C,
		p.Prices.Corporate,
		p.Prices.Horeca,
		p.Prices.Wholesale,
		p.WholesaleMinQuantity,
		p.StockQuantity,
		p.IsAvailable,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ProductNotFound(p.ID)
	}
	return nil
}

// MarkDeleted stamps an active product as deleted. Rows already deleted are
// not touched, so concurrent deletes commute.
func (r *ProductRepository) MarkDeleted(ctx context.Context, id string, at time.Time) (_ bool, err error) {
	query := `
		UPDATE products
		SET is_deleted = TRUE, deleted_at = $2, updated_at = $2
		WHERE id = $1 AND is_deleted = FALSE`
	ctx, end := database.TraceQuery(ctx, "MarkProductDeleted", query)
	defer func() { end(err) }()

	return r.transition(ctx, query, id, at)
}

// Restore clears the deleted state of a product.
func (r *ProductRepository) Restore(ctx context.Context, id string, at time.Time) (_ bool, err error) {
	query := `
		UPDATE products
		SET is_deleted = FALSE, deleted_at = NULL, updated_at = $2
		WHERE id = $1 AND is_deleted = TRUE`
	ctx, end := database.TraceQuery(ctx, "RestoreProduct", query)
	defer func() { end(err) }()

	return r.transition(ctx, query, id, at)
}

// transition runs a lifecycle update. When no row changes it tells a missing
// product apart from one already in the target state.
func (r *ProductRepository) transition(ctx context.Context, query, id string, at time.Time) (bool, error) {
	ct, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("update product %s lifecycle: %w", id, err)
	}
	if ct.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check product %s: %w", id, err)
	}
	if !exists {
		return false, domain.ProductNotFound(id)
	}
	return false, nil
}

// whereBuilder accumulates predicates and numbered placeholders.
type whereBuilder struct {
	conditions []string
	args       []any
}

func (b *whereBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *whereBuilder) add(format string, a ...any) {
	b.conditions = append(b.conditions, fmt.Sprintf(format, a...))
}

// buildWhere renders filter as a WHERE clause. The price bounds compare
// against the same tier expression the resolver uses for filter.Role.
func buildWhere(filter repository.SearchFilter) (string, []any) {
	b := &whereBuilder{}
	b.add("is_deleted = FALSE")

	if filter.AvailableOnly {
		b.add("is_available = TRUE")
	}
	if filter.Category != "" {
		b.add("category = %s", b.arg(filter.Category))
	}
	if filter.Subcategory != "" {
		b.add("subcategory = %s", b.arg(filter.Subcategory))
	}
	if filter.SupplierID != "" {
		b.add("supplier_id = %s", b.arg(filter.SupplierID))
	}
	if filter.Query != "" {
		p := b.arg("%" + escapeLike(filter.Query) + "%")
		b.add("(name_en ILIKE %[1]s OR name_ar ILIKE %[1]s OR description_en ILIKE %[1]s OR description_ar ILIKE %[1]s)", p)
	}
	if filter.MinPrice != nil || filter.MaxPrice != nil {
		qty := ""
		if pricing.HasQuantityTier(filter.Role) {
			qty = b.arg(pricing.NormalizeQuantity(filter.Quantity))
		}
		expr := pricing.SQLExpr(filter.Role, qty)
		if filter.MinPrice != nil {
			b.add("%s >= %s", expr, b.arg(*filter.MinPrice))
		}
		if filter.MaxPrice != nil {
			b.add("%s <= %s", expr, b.arg(*filter.MaxPrice))
		}
	}

	return strings.Join(b.conditions, " AND "), b.args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// scanProduct reads one product row. Extra destinations receive any trailing
// columns, such as a window count.
func scanProduct(row pgx.Row, extra ...any) (*domain.Product, error) {
	var (
		p         domain.Product
		isDeleted bool
		deletedAt *time.Time
	)
	dest := []any{
		&p.ID,
		&p.SupplierID,
		&p.NameEn,
		&p.NameAr,
		&p.DescriptionEn,
		&p.DescriptionAr,
		&p.Category,
		&p.Subcategory,
		&p.Unit,
		&p.UnitSize,
		&p.Prices.EndUser,
		&p.Prices.B2C,
		&p.Prices.Corporate,
		&p.Prices.Horeca,
		&p.Prices.Wholesale,
		&p.WholesaleMinQuantity,
		&p.StockQuantity,
		&p.IsAvailable,
		&isDeleted,
		&deletedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	switch {
	case deletedAt != nil:
		p.Lifecycle = domain.DeletedAt(*deletedAt)
	case isDeleted:
		p.Lifecycle = domain.DeletedAt(p.UpdatedAt)
	default:
		p.Lifecycle = domain.Active()
	}
	return &p, nil
}

// isUniqueViolation checks for SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "23505")
}
