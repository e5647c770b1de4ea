package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	"github.com/FeliksML/web-cellar-sub000/pkg/database"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
)

// productSelect loads a product row with its category and images so that
// listing needs a single round trip.
const productSelect = `
	SELECT
		p.id, p.category_id, p.sku, p.name, p.slug, p.description, p.short_description,
		p.price, p.compare_at_price, p.stock_quantity, p.low_stock_threshold,
		p.track_inventory, p.allow_backorder, p.gradient_from, p.gradient_to,
		p.is_featured, p.is_bestseller, p.display_order, p.protein_grams, p.calories,
		p.is_gluten_free, p.is_dairy_free, p.is_vegan, p.is_keto_friendly,
		p.lead_time_hours, p.minimum_quantity, p.quantity_increment, p.allergens,
		p.is_seasonal, p.available_from, p.available_until, p.available_days,
		p.average_rating::float8, p.review_count, p.is_active, p.meta_title,
		p.meta_description, p.created_at, p.updated_at,
		c.name, c.slug,
		COALESCE((
			SELECT JSONB_AGG(JSONB_BUILD_OBJECT(
				'id', pi.id,
				'product_id', pi.product_id,
				'url', pi.url,
				'alt_text', pi.alt_text,
				'display_order', pi.display_order,
				'is_primary', pi.is_primary,
				'storage_key', pi.storage_key,
				'created_at', pi.created_at
			) ORDER BY pi.display_order, pi.created_at)
			FROM product_images pi
			WHERE pi.product_id = p.id
		), '[]'::jsonb) AS images
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id`

var productSortColumns = map[string]string{
	repository.SortByName:         "p.name",
	repository.SortByPrice:        "p.price",
	repository.SortByCreatedAt:    "p.created_at",
	repository.SortByDisplayOrder: "p.display_order",
}

// imageRow mirrors the JSON built in productSelect. storage_key is not part
// of the public image JSON so it is decoded here.
type imageRow struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"product_id"`
	URL          string    `json:"url"`
	AltText      string    `json:"alt_text"`
	DisplayOrder int       `json:"display_order"`
	IsPrimary    bool      `json:"is_primary"`
	StorageKey   string    `json:"storage_key"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a product and its images in one transaction.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO products (
			id, category_id, sku, name, slug, description, short_description,
			price, compare_at_price, stock_quantity, low_stock_threshold,
			track_inventory, allow_backorder, gradient_from, gradient_to,
			is_featured, is_bestseller, display_order, protein_grams, calories,
			is_gluten_free, is_dairy_free, is_vegan, is_keto_friendly,
			lead_time_hours, minimum_quantity, quantity_increment, allergens,
			is_seasonal, available_from, available_until, available_days,
			is_active, meta_title, meta_description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36, $37)`

	if _, err := tx.Exec(ctx, query,
		p.ID,
		p.CategoryID,
		p.SKU,
		p.Name,
		p.Slug,
		p.Description,
		p.ShortDescription,
		p.Price,
		p.CompareAtPrice,
		p.StockQuantity,
		p.LowStockThreshold,
		p.TrackInventory,
		p.AllowBackorder,
		p.GradientFrom,
		p.GradientTo,
		p.IsFeatured,
		p.IsBestseller,
		p.DisplayOrder,
		p.ProteinGrams,
		p.Calories,
		p.IsGlutenFree,
		p.IsDairyFree,
		p.IsVegan,
		p.IsKetoFriendly,
		p.LeadTimeHours,
		p.MinimumQuantity,
		p.QuantityIncrement,
		allergensOf(p),
		p.IsSeasonal,
		p.AvailableFrom,
		p.AvailableUntil,
		p.AvailableDays,
		p.IsActive,
		p.MetaTitle,
		p.MetaDescription,
		p.CreatedAt,
		p.UpdatedAt,
	); err != nil {
		return productWriteError("insert product", err)
	}

	for i := range p.Images {
		if err := insertImage(ctx, tx, &p.Images[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a product by ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, productSelect+` WHERE p.id = $1`, id))
}

// GetBySlug retrieves a product by slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, productSelect+` WHERE p.slug = $1`, slug))
}

// GetByIDs loads the products with the given ids.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	out := make(map[string]*domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx, productSelect+` WHERE p.id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("get products by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return out, nil
}

// List returns products matching the given filter with the total count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	addBool := func(column string, v *bool) {
		if v == nil {
			return
		}
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, *v)
		argIndex++
	}

	if filter.CategorySlug != nil {
		conditions = append(conditions, fmt.Sprintf("c.slug = $%d", argIndex))
		args = append(args, *filter.CategorySlug)
		argIndex++
	}
	addBool("p.is_active", filter.IsActive)
	addBool("p.is_featured", filter.IsFeatured)
	addBool("p.is_bestseller", filter.IsBestseller)
	addBool("p.is_gluten_free", filter.IsGlutenFree)
	addBool("p.is_dairy_free", filter.IsDairyFree)
	addBool("p.is_vegan", filter.IsVegan)
	addBool("p.is_keto_friendly", filter.IsKetoFriendly)

	if filter.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("p.price >= $%d", argIndex))
		args = append(args, *filter.MinPrice)
		argIndex++
	}
	if filter.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("p.price <= $%d", argIndex))
		args = append(args, *filter.MaxPrice)
		argIndex++
	}
	if filter.Search != nil && *filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(p.name ILIKE $%d OR p.description ILIKE $%d OR p.short_description ILIKE $%d)",
			argIndex, argIndex, argIndex))
		args = append(args, "%"+*filter.Search+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	sortColumn, ok := productSortColumns[filter.SortBy]
	if !ok {
		sortColumn = "p.display_order"
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM products p LEFT JOIN categories c ON c.id = p.category_id` + whereClause
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := fmt.Sprintf(`%s%s ORDER BY %s %s, p.name ASC LIMIT $%d OFFSET $%d`,
		productSelect, whereClause, sortColumn, direction, argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, total, nil
}

// Update modifies a product. Images are managed separately.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	query := `
		UPDATE products SET
			category_id = $1, sku = $2, name = $3, slug = $4, description = $5,
			short_description = $6, price = $7, compare_at_price = $8, stock_quantity = $9,
			low_stock_threshold = $10, track_inventory = $11, allow_backorder = $12,
			gradient_from = $13, gradient_to = $14, is_featured = $15, is_bestseller = $16,
			display_order = $17, protein_grams = $18, calories = $19, is_gluten_free = $20,
			is_dairy_free = $21, is_vegan = $22, is_keto_friendly = $23, lead_time_hours = $24,
			minimum_quantity = $25, quantity_increment = $26, allergens = $27, is_seasonal = $28,
			available_from = $29, available_until = $30, available_days = $31, is_active = $32,
			meta_title = $33, meta_description = $34, updated_at = $35
		WHERE id = $36`

	ct, err := r.pool.Exec(ctx, query,
		p.CategoryID,
		p.SKU,
		p.Name,
		p.Slug,
		p.Description,
		p.ShortDescription,
		p.Price,
		p.CompareAtPrice,
		p.StockQuantity,
		p.LowStockThreshold,
		p.TrackInventory,
		p.AllowBackorder,
		p.GradientFrom,
		p.GradientTo,
		p.IsFeatured,
		p.IsBestseller,
		p.DisplayOrder,
		p.ProteinGrams,
		p.Calories,
		p.IsGlutenFree,
		p.IsDairyFree,
		p.IsVegan,
		p.IsKetoFriendly,
		p.LeadTimeHours,
		p.MinimumQuantity,
		p.QuantityIncrement,
		allergensOf(p),
		p.IsSeasonal,
		p.AvailableFrom,
		p.AvailableUntil,
		p.AvailableDays,
		p.IsActive,
		p.MetaTitle,
		p.MetaDescription,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return productWriteError("update product", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SoftDelete deactivates a product.
func (r *ProductRepository) SoftDelete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SetStock overwrites the stock quantity, never below zero.
func (r *ProductRepository) SetStock(ctx context.Context, id string, quantity int) (*domain.Product, error) {
	ct, err := r.pool.Exec(ctx,
		`UPDATE products SET stock_quantity = GREATEST($1, 0), updated_at = NOW() WHERE id = $2`,
		quantity, id,
	)
	if err != nil {
		return nil, fmt.Errorf("set stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, apperrors.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// AddImage attaches an image to a product. A primary image demotes the
// previous primary one.
func (r *ProductRepository) AddImage(ctx context.Context, img *domain.ProductImage) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if img.IsPrimary {
		if _, err := tx.Exec(ctx,
			`UPDATE product_images SET is_primary = FALSE WHERE product_id = $1 AND is_primary`,
			img.ProductID,
		); err != nil {
			return fmt.Errorf("unset primary image: %w", err)
		}
	}
	if err := insertImage(ctx, tx, img); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DeleteImage removes an image of a product.
func (r *ProductRepository) DeleteImage(ctx context.Context, productID, imageID string) (*domain.ProductImage, error) {
	var img domain.ProductImage
	err := r.pool.QueryRow(ctx, `
		DELETE FROM product_images
		WHERE id = $1 AND product_id = $2
		RETURNING id, product_id, url, alt_text, display_order, is_primary, storage_key, created_at`,
		imageID, productID,
	).Scan(
		&img.ID,
		&img.ProductID,
		&img.URL,
		&img.AltText,
		&img.DisplayOrder,
		&img.IsPrimary,
		&img.StorageKey,
		&img.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("delete product image: %w", err)
	}
	return &img, nil
}

func insertImage(ctx context.Context, tx pgx.Tx, img *domain.ProductImage) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO product_images (id, product_id, url, alt_text, display_order, is_primary, storage_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		img.ID,
		img.ProductID,
		img.URL,
		img.AltText,
		img.DisplayOrder,
		img.IsPrimary,
		img.StorageKey,
		img.CreatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("insert product image: %w", err)
	}
	return nil
}

func allergensOf(p *domain.Product) []string {
	if p.Allergens == nil {
		return []string{}
	}
	return p.Allergens
}

func productWriteError(op string, err error) error {
	if constraint, ok := database.IsUniqueViolation(err); ok {
		if strings.Contains(constraint, "sku") {
			return apperrors.AlreadyExists("Product with this SKU already exists")
		}
		return apperrors.AlreadyExists("Product with this slug already exists")
	}
	if database.IsForeignKeyViolation(err) {
		return apperrors.InvalidInput("Category not found")
	}
	return fmt.Errorf("%s: %w", op, err)
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p            domain.Product
		categoryName *string
		categorySlug *string
		imagesJSON   []byte
	)

	err := row.Scan(
		&p.ID,
		&p.CategoryID,
		&p.SKU,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.ShortDescription,
		&p.Price,
		&p.CompareAtPrice,
		&p.StockQuantity,
		&p.LowStockThreshold,
		&p.TrackInventory,
		&p.AllowBackorder,
		&p.GradientFrom,
		&p.GradientTo,
		&p.IsFeatured,
		&p.IsBestseller,
		&p.DisplayOrder,
		&p.ProteinGrams,
		&p.Calories,
		&p.IsGlutenFree,
		&p.IsDairyFree,
		&p.IsVegan,
		&p.IsKetoFriendly,
		&p.LeadTimeHours,
		&p.MinimumQuantity,
		&p.QuantityIncrement,
		&p.Allergens,
		&p.IsSeasonal,
		&p.AvailableFrom,
		&p.AvailableUntil,
		&p.AvailableDays,
		&p.AverageRating,
		&p.ReviewCount,
		&p.IsActive,
		&p.MetaTitle,
		&p.MetaDescription,
		&p.CreatedAt,
		&p.UpdatedAt,
		&categoryName,
		&categorySlug,
		&imagesJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	if p.CategoryID != nil && categoryName != nil {
		p.Category = &domain.Category{ID: *p.CategoryID, Name: *categoryName}
		if categorySlug != nil {
			p.Category.Slug = *categorySlug
		}
	}
	if p.Allergens == nil {
		p.Allergens = []string{}
	}

	var images []imageRow
	if len(imagesJSON) > 0 {
		if err := json.Unmarshal(imagesJSON, &images); err != nil {
			return nil, fmt.Errorf("unmarshal product images: %w", err)
		}
	}
	p.Images = make([]domain.ProductImage, 0, len(images))
	for _, img := range images {
		p.Images = append(p.Images, domain.ProductImage(img))
	}

	return &p, nil
}
