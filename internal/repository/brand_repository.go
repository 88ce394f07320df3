package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrBrandNotFound      = errors.New("brand not found")
	ErrBrandAlreadyExists = errors.New("brand with this name already exists")
)

// BrandRepository defines the interface for brand data access
type BrandRepository interface {
	Create(ctx context.Context, brand *domain.Brand) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*domain.Brand, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Brand, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Brand, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
}

type brandRepository struct {
	db *sql.DB
}

// NewBrandRepository creates a new instance of BrandRepository
func NewBrandRepository(db *sql.DB) BrandRepository {
	return &brandRepository{db: db}
}

func (r *brandRepository) Create(ctx context.Context, brand *domain.Brand) error {
	query := `
		INSERT INTO brands (id, name, slug, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query, brand.ID, brand.Name, brand.Slug, brand.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "brands_slug_key" {
				return ErrSlugTaken
			}
			return ErrBrandAlreadyExists
		}
		return fmt.Errorf("failed to create brand: %w", err)
	}

	return nil
}

func (r *brandRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM brands WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete brand: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrBrandNotFound
	}

	return nil
}

func (r *brandRepository) List(ctx context.Context) ([]*domain.Brand, error) {
	query := `
		SELECT id, name, slug, created_at
		FROM brands
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	defer rows.Close()

	brands := []*domain.Brand{}
	for rows.Next() {
		brand := &domain.Brand{}
		if err := rows.Scan(&brand.ID, &brand.Name, &brand.Slug, &brand.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan brand: %w", err)
		}
		brands = append(brands, brand)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating brands: %w", err)
	}

	return brands, nil
}

func (r *brandRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Brand, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *brandRepository) FindBySlug(ctx context.Context, slug string) (*domain.Brand, error) {
	return r.findOne(ctx, `WHERE slug = $1`, slug)
}

func (r *brandRepository) findOne(ctx context.Context, where string, arg interface{}) (*domain.Brand, error) {
	query := fmt.Sprintf(`SELECT id, name, slug, created_at FROM brands %s`, where)

	brand := &domain.Brand{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&brand.ID,
		&brand.Name,
		&brand.Slug,
		&brand.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBrandNotFound
		}
		return nil, fmt.Errorf("failed to find brand: %w", err)
	}

	return brand, nil
}

func (r *brandRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM brands WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check brand slug: %w", err)
	}
	return exists, nil
}
