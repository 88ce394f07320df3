package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrProductNotFound = errors.New("product not found")

	// ErrSlugTaken is raised when the slug uniqueness constraint rejects a
	// commit. Callers recover by re-probing the next candidate slug.
	ErrSlugTaken = errors.New("slug already taken")
)

// ProductRow is a product joined with the names of its weak references,
// as needed by listing projections and the search predicate.
type ProductRow struct {
	domain.Product
	CategoryName *string
	BrandName    *string
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product, superseded *domain.SlugHistoryEntry) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListSlugHistory(ctx context.Context, productID uuid.UUID) ([]*domain.SlugHistoryEntry, error)
	Count(ctx context.Context, plan domain.QueryPlan) (int, error)
	Page(ctx context.Context, plan domain.QueryPlan, limit, offset int) ([]*ProductRow, error)
	Related(ctx context.Context, categoryID uuid.UUID, exclude uuid.UUID, limit int) ([]*ProductRow, error)
	Featured(ctx context.Context, limit int) ([]*ProductRow, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

// isSlugViolation reports whether err is a unique-constraint rejection on a
// slug column (SQLSTATE 23505).
func isSlugViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, "slug")
	}
	return false
}

// Create inserts a new product using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, slug, description, price, inventory, category_id, brand_id, is_special, image_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Slug,
		product.Description,
		product.Price,
		product.Inventory,
		product.CategoryID,
		product.BrandID,
		product.IsSpecial,
		product.ImageRef,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		if isSlugViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update rewrites an existing product row. When superseded is non-nil the
// history entry for the replaced slug is inserted in the same transaction,
// so a committed rename always carries its history row.
func (r *productRepository) Update(ctx context.Context, product *domain.Product, superseded *domain.SlugHistoryEntry) error {
	query := `
		UPDATE products
		SET name = $2, slug = $3, description = $4, price = $5, inventory = $6,
		    category_id = $7, brand_id = $8, is_special = $9, image_ref = $10, updated_at = $11
		WHERE id = $1
	`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin product update: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Slug,
		product.Description,
		product.Price,
		product.Inventory,
		product.CategoryID,
		product.BrandID,
		product.IsSpecial,
		product.ImageRef,
		product.UpdatedAt,
	)

	if err != nil {
		if isSlugViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	if superseded != nil {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO slug_history (id, product_id, old_slug, superseded_at) VALUES ($1, $2, $3, $4)`,
			superseded.ID, superseded.ProductID, superseded.OldSlug, superseded.SupersededAt,
		)
		if err != nil {
			return fmt.Errorf("failed to record superseded slug: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isSlugViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to commit product update: %w", err)
	}

	return nil
}

// Delete removes a product; slug history rows cascade with it.
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT id, name, slug, description, price, inventory, category_id, brand_id, is_special, image_ref, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	product := &domain.Product{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Slug,
		&product.Description,
		&product.Price,
		&product.Inventory,
		&product.CategoryID,
		&product.BrandID,
		&product.IsSpecial,
		&product.ImageRef,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// SlugExists reports whether any product currently holds the given slug.
func (r *productRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slug existence: %w", err)
	}
	return exists, nil
}

// ListSlugHistory returns a product's superseded slugs in creation order.
func (r *productRepository) ListSlugHistory(ctx context.Context, productID uuid.UUID) ([]*domain.SlugHistoryEntry, error) {
	query := `
		SELECT id, product_id, old_slug, superseded_at
		FROM slug_history
		WHERE product_id = $1
		ORDER BY superseded_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list slug history: %w", err)
	}
	defer rows.Close()

	entries := []*domain.SlugHistoryEntry{}
	for rows.Next() {
		entry := &domain.SlugHistoryEntry{}
		if err := rows.Scan(&entry.ID, &entry.ProductID, &entry.OldSlug, &entry.SupersededAt); err != nil {
			return nil, fmt.Errorf("failed to scan slug history entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating slug history: %w", err)
	}

	return entries, nil
}

// likeEscaper neutralizes LIKE metacharacters in search input. The search
// term is a literal substring; `r_d` must not match "red".
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildPlanWhere translates a query plan's filters into a WHERE clause.
// All filter classes combine with AND; the id lists are membership tests.
func buildPlanWhere(plan domain.QueryPlan, argIndex int) (string, []interface{}, int) {
	conds := []string{}
	args := []interface{}{}

	if plan.SearchTerm != "" {
		pattern := "%" + likeEscaper.Replace(plan.SearchTerm) + "%"
		conds = append(conds, fmt.Sprintf(
			"(p.name ILIKE $%d OR p.description ILIKE $%d OR p.slug ILIKE $%d OR c.name ILIKE $%d OR b.name ILIKE $%d)",
			argIndex, argIndex, argIndex, argIndex, argIndex,
		))
		args = append(args, pattern)
		argIndex++
	}

	if len(plan.CategoryIDs) > 0 {
		placeholders := make([]string, len(plan.CategoryIDs))
		for i, id := range plan.CategoryIDs {
			placeholders[i] = fmt.Sprintf("$%d", argIndex)
			args = append(args, id)
			argIndex++
		}
		conds = append(conds, fmt.Sprintf("p.category_id IN (%s)", strings.Join(placeholders, ", ")))
	}

	if len(plan.BrandIDs) > 0 {
		placeholders := make([]string, len(plan.BrandIDs))
		for i, id := range plan.BrandIDs {
			placeholders[i] = fmt.Sprintf("$%d", argIndex)
			args = append(args, id)
			argIndex++
		}
		conds = append(conds, fmt.Sprintf("p.brand_id IN (%s)", strings.Join(placeholders, ", ")))
	}

	if plan.MinPrice != nil {
		conds = append(conds, fmt.Sprintf("p.price >= $%d", argIndex))
		args = append(args, *plan.MinPrice)
		argIndex++
	}

	if plan.MaxPrice != nil {
		conds = append(conds, fmt.Sprintf("p.price <= $%d", argIndex))
		args = append(args, *plan.MaxPrice)
		argIndex++
	}

	if plan.InStockOnly {
		conds = append(conds, "p.inventory >= 1")
	}

	if len(conds) == 0 {
		return "", args, argIndex
	}
	return "WHERE " + strings.Join(conds, " AND "), args, argIndex
}

// planOrderBy maps a sort key to an ORDER BY clause. Every ordering carries
// the id as a secondary key so pagination never duplicates or skips a row.
func planOrderBy(sort domain.SortKey) string {
	switch sort {
	case domain.SortPriceAsc:
		return "ORDER BY p.price ASC, p.id ASC"
	case domain.SortPriceDesc:
		return "ORDER BY p.price DESC, p.id ASC"
	case domain.SortOldest:
		return "ORDER BY p.created_at ASC, p.id ASC"
	default:
		return "ORDER BY p.created_at DESC, p.id ASC"
	}
}

const productRowColumns = `
	p.id, p.name, p.slug, p.description, p.price, p.inventory,
	p.category_id, p.brand_id, p.is_special, p.image_ref, p.created_at, p.updated_at,
	c.name, b.name
`

const productRowJoins = `
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id
	LEFT JOIN brands b ON b.id = p.brand_id
`

// Count returns the number of products matching the plan's filters.
func (r *productRepository) Count(ctx context.Context, plan domain.QueryPlan) (int, error) {
	where, args, _ := buildPlanWhere(plan, 1)
	query := fmt.Sprintf("SELECT COUNT(*) %s %s", productRowJoins, where)

	var total int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}

	return total, nil
}

// Page executes the plan's filters and sort for one page of rows.
func (r *productRepository) Page(ctx context.Context, plan domain.QueryPlan, limit, offset int) ([]*ProductRow, error) {
	where, args, argIndex := buildPlanWhere(plan, 1)

	query := fmt.Sprintf(
		"SELECT %s %s %s %s LIMIT $%d OFFSET $%d",
		productRowColumns, productRowJoins, where, planOrderBy(plan.Sort), argIndex, argIndex+1,
	)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query product page: %w", err)
	}
	defer rows.Close()

	return scanProductRows(rows)
}

// Related returns products sharing a category, excluding the product itself.
func (r *productRepository) Related(ctx context.Context, categoryID uuid.UUID, exclude uuid.UUID, limit int) ([]*ProductRow, error) {
	query := fmt.Sprintf(
		"SELECT %s %s WHERE p.category_id = $1 AND p.id <> $2 ORDER BY p.created_at DESC, p.id ASC LIMIT $3",
		productRowColumns, productRowJoins,
	)

	rows, err := r.db.QueryContext(ctx, query, categoryID, exclude, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query related products: %w", err)
	}
	defer rows.Close()

	return scanProductRows(rows)
}

// Featured returns a random selection of products flagged as special.
func (r *productRepository) Featured(ctx context.Context, limit int) ([]*ProductRow, error) {
	query := fmt.Sprintf(
		"SELECT %s %s WHERE p.is_special ORDER BY random() LIMIT $1",
		productRowColumns, productRowJoins,
	)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query featured products: %w", err)
	}
	defer rows.Close()

	return scanProductRows(rows)
}

func scanProductRows(rows *sql.Rows) ([]*ProductRow, error) {
	result := []*ProductRow{}
	for rows.Next() {
		row := &ProductRow{}
		err := rows.Scan(
			&row.ID,
			&row.Name,
			&row.Slug,
			&row.Description,
			&row.Price,
			&row.Inventory,
			&row.CategoryID,
			&row.BrandID,
			&row.IsSpecial,
			&row.ImageRef,
			&row.CreatedAt,
			&row.UpdatedAt,
			&row.CategoryName,
			&row.BrandName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product rows: %w", err)
	}

	return result, nil
}
