package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/centerattend/internal/domain"
)

// PostgresCenterRepository implements domain.CenterRepository using PostgreSQL
type PostgresCenterRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresCenterRepository creates a new center repository
func NewPostgresCenterRepository(db *sql.DB, logger *slog.Logger) *PostgresCenterRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCenterRepository{
		db:     db,
		logger: logger,
	}
}

const centerColumns = `id, code, name, town, city, incharge_code, created_at, updated_at`

func scanCenter(row interface{ Scan(...any) error }) (*domain.Center, error) {
	center := &domain.Center{}
	err := row.Scan(
		&center.ID,
		&center.Code,
		&center.Name,
		&center.Town,
		&center.City,
		&center.InchargeCode,
		&center.CreatedAt,
		&center.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return center, nil
}

// Create creates a new center
func (r *PostgresCenterRepository) Create(center *domain.Center) error {
	query := `
		INSERT INTO centers (code, name, town, city, incharge_code)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		center.Code,
		center.Name,
		center.Town,
		center.City,
		center.InchargeCode,
	).Scan(&center.ID, &center.CreatedAt, &center.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err, "") {
			return &domain.DuplicateError{Resource: "center", Key: center.Code}
		}
		r.logger.Error("failed to create center",
			slog.String("code", center.Code),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create center: %w", err)
	}

	return nil
}

// GetByID retrieves a center by ID
func (r *PostgresCenterRepository) GetByID(id string) (*domain.Center, error) {
	query := `SELECT ` + centerColumns + ` FROM centers WHERE id = $1`

	center, err := scanCenter(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "center", Key: id}
		}
		return nil, fmt.Errorf("failed to get center: %w", err)
	}

	return center, nil
}

// GetByCode retrieves a center by its human-facing code
func (r *PostgresCenterRepository) GetByCode(code string) (*domain.Center, error) {
	query := `SELECT ` + centerColumns + ` FROM centers WHERE code = $1`

	center, err := scanCenter(r.db.QueryRow(query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "center", Key: code}
		}
		return nil, fmt.Errorf("failed to get center by code: %w", err)
	}

	return center, nil
}

// Update updates an existing center
func (r *PostgresCenterRepository) Update(center *domain.Center) error {
	query := `
		UPDATE centers
		SET name = $1, town = $2, city = $3, incharge_code = $4, updated_at = now()
		WHERE id = $5
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		query,
		center.Name,
		center.Town,
		center.City,
		center.InchargeCode,
		center.ID,
	).Scan(&center.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.NotFoundError{Resource: "center", Key: center.ID}
		}
		return fmt.Errorf("failed to update center: %w", err)
	}

	return nil
}

// Delete removes a center
func (r *PostgresCenterRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM centers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete center: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rows == 0 {
		return &domain.NotFoundError{Resource: "center", Key: id}
	}

	return nil
}

// List lists all centers ordered by name
func (r *PostgresCenterRepository) List() ([]*domain.Center, error) {
	query := `SELECT ` + centerColumns + ` FROM centers ORDER BY name`

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Error("failed to list centers", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list centers: %w", err)
	}
	defer rows.Close()

	var centers []*domain.Center
	for rows.Next() {
		center, err := scanCenter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan center: %w", err)
		}
		centers = append(centers, center)
	}

	return centers, rows.Err()
}
