package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/centerattend/internal/domain"
)

// PostgresInstructorRepository implements domain.InstructorRepository using PostgreSQL
type PostgresInstructorRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresInstructorRepository creates a new instructor repository
func NewPostgresInstructorRepository(db *sql.DB, logger *slog.Logger) *PostgresInstructorRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresInstructorRepository{
		db:     db,
		logger: logger,
	}
}

const instructorColumns = `id, external_id, name, email, COALESCE(center_id::text, ''), created_at, updated_at`

func scanInstructor(row interface{ Scan(...any) error }) (*domain.Instructor, error) {
	instructor := &domain.Instructor{}
	err := row.Scan(
		&instructor.ID,
		&instructor.ExternalID,
		&instructor.Name,
		&instructor.Email,
		&instructor.CenterID,
		&instructor.CreatedAt,
		&instructor.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return instructor, nil
}

// Create creates a new instructor profile
func (r *PostgresInstructorRepository) Create(instructor *domain.Instructor) error {
	query := `
		INSERT INTO instructors (external_id, name, email, center_id)
		VALUES ($1, $2, $3, NULLIF($4, '')::uuid)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		instructor.ExternalID,
		instructor.Name,
		instructor.Email,
		instructor.CenterID,
	).Scan(&instructor.ID, &instructor.CreatedAt, &instructor.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err, "instructors_external_id_key") {
			return &domain.DuplicateError{Resource: "instructor", Key: instructor.ExternalID}
		}
		if isUniqueViolation(err, "") {
			return &domain.DuplicateError{Resource: "instructor", Key: instructor.Email}
		}
		r.logger.Error("failed to create instructor",
			slog.String("external_id", instructor.ExternalID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create instructor: %w", err)
	}

	return nil
}

// GetByID retrieves an instructor by ID
func (r *PostgresInstructorRepository) GetByID(id string) (*domain.Instructor, error) {
	query := `SELECT ` + instructorColumns + ` FROM instructors WHERE id = $1`

	instructor, err := scanInstructor(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "instructor", Key: id}
		}
		return nil, fmt.Errorf("failed to get instructor: %w", err)
	}

	return instructor, nil
}

// GetByExternalID retrieves an instructor by the human-facing E-YY-NNN ID
func (r *PostgresInstructorRepository) GetByExternalID(externalID string) (*domain.Instructor, error) {
	query := `SELECT ` + instructorColumns + ` FROM instructors WHERE external_id = $1`

	instructor, err := scanInstructor(r.db.QueryRow(query, externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "instructor", Key: externalID}
		}
		return nil, fmt.Errorf("failed to get instructor by external id: %w", err)
	}

	return instructor, nil
}

// Update updates an existing instructor profile
func (r *PostgresInstructorRepository) Update(instructor *domain.Instructor) error {
	query := `
		UPDATE instructors
		SET name = $1, email = $2, center_id = NULLIF($3, '')::uuid, updated_at = now()
		WHERE id = $4
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		query,
		instructor.Name,
		instructor.Email,
		instructor.CenterID,
		instructor.ID,
	).Scan(&instructor.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.NotFoundError{Resource: "instructor", Key: instructor.ID}
		}
		return fmt.Errorf("failed to update instructor: %w", err)
	}

	return nil
}

// Delete removes an instructor profile
func (r *PostgresInstructorRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM instructors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete instructor: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rows == 0 {
		return &domain.NotFoundError{Resource: "instructor", Key: id}
	}

	return nil
}

// List lists instructors, optionally filtered to one center
func (r *PostgresInstructorRepository) List(centerID string) ([]*domain.Instructor, error) {
	query := `SELECT ` + instructorColumns + ` FROM instructors WHERE ($1 = '' OR center_id = $1::uuid) ORDER BY external_id`

	rows, err := r.db.Query(query, centerID)
	if err != nil {
		r.logger.Error("failed to list instructors",
			slog.String("center_id", centerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list instructors: %w", err)
	}
	defer rows.Close()

	var instructors []*domain.Instructor
	for rows.Next() {
		instructor, err := scanInstructor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instructor: %w", err)
		}
		instructors = append(instructors, instructor)
	}

	return instructors, rows.Err()
}
