package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/TradeCatalog/internal/domain"
	"github.com/utafrali/TradeCatalog/pkg/database"
	apperrors "github.com/utafrali/TradeCatalog/pkg/errors"
)

const imageColumns = `id, product_id, url, alt_text, is_primary, sort_order, created_at`

// ImageRepository implements repository.ImageRepository using PostgreSQL.
type ImageRepository struct {
	db database.DBTX
}

// NewImageRepository creates a new PostgreSQL-backed image repository.
func NewImageRepository(db database.DBTX) *ImageRepository {
	return &ImageRepository{db: db}
}

// Create inserts an image. When the image is primary, the product's current
// primary image is demoted in the same transaction.
func (r *ImageRepository) Create(ctx context.Context, img *domain.ProductImage) (err error) {
	query := `INSERT INTO product_images (` + imageColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	ctx, end := database.TraceQuery(ctx, "CreateProductImage", query)
	defer func() { end(err) }()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin image tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if img.IsPrimary {
		if _, err = tx.Exec(ctx,
			`UPDATE product_images SET is_primary = FALSE WHERE product_id = $1 AND is_primary`,
			img.ProductID,
		); err != nil {
			return fmt.Errorf("demote primary image: %w", err)
		}
	}

	if _, err = tx.Exec(ctx, query,
		img.ID,
		img.ProductID,
		img.URL,
		img.AltText,
		img.IsPrimary,
		img.SortOrder,
		img.CreatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("image", "id", img.ID)
		}
		return fmt.Errorf("insert image: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit image tx: %w", err)
	}
	return nil
}

// ListByProduct returns a product's images in display order.
func (r *ImageRepository) ListByProduct(ctx context.Context, productID string) (_ []domain.ProductImage, err error) {
	query := `SELECT ` + imageColumns + ` FROM product_images WHERE product_id = $1 ORDER BY sort_order, created_at, id`
	ctx, end := database.TraceQuery(ctx, "ListProductImages", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	images := []domain.ProductImage{}
	for rows.Next() {
		var img domain.ProductImage
		if err := rows.Scan(
			&img.ID,
			&img.ProductID,
			&img.URL,
			&img.AltText,
			&img.IsPrimary,
			&img.SortOrder,
			&img.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan image row: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate image rows: %w", err)
	}
	return images, nil
}

// Delete removes one image of productID.
func (r *ImageRepository) Delete(ctx context.Context, productID, imageID string) (err error) {
	query := `DELETE FROM product_images WHERE id = $1 AND product_id = $2`
	ctx, end := database.TraceQuery(ctx, "DeleteProductImage", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, imageID, productID)
	if err != nil {
		return fmt.Errorf("delete image %s: %w", imageID, err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("image", imageID)
	}
	return nil
}
