package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/centerattend/internal/domain"
)

// PostgresSeminarRepository implements domain.SeminarRepository using PostgreSQL
type PostgresSeminarRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresSeminarRepository creates a new seminar repository
func NewPostgresSeminarRepository(db *sql.DB, logger *slog.Logger) *PostgresSeminarRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSeminarRepository{
		db:     db,
		logger: logger,
	}
}

const seminarColumns = `id, title, description, date, center_id, COALESCE(instructor_id::text, ''), status, created_at, updated_at`

func scanSeminar(row interface{ Scan(...any) error }) (*domain.Seminar, error) {
	seminar := &domain.Seminar{}
	err := row.Scan(
		&seminar.ID,
		&seminar.Title,
		&seminar.Description,
		&seminar.Date,
		&seminar.CenterID,
		&seminar.InstructorID,
		&seminar.Status,
		&seminar.CreatedAt,
		&seminar.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return seminar, nil
}

// Create creates a new seminar
func (r *PostgresSeminarRepository) Create(seminar *domain.Seminar) error {
	query := `
		INSERT INTO seminars (title, description, date, center_id, instructor_id, status)
		VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		seminar.Title,
		seminar.Description,
		domain.DateOnly(seminar.Date),
		seminar.CenterID,
		seminar.InstructorID,
		string(seminar.Status),
	).Scan(&seminar.ID, &seminar.CreatedAt, &seminar.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to create seminar",
			slog.String("title", seminar.Title),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create seminar: %w", err)
	}

	return nil
}

// GetByID retrieves a seminar by ID
func (r *PostgresSeminarRepository) GetByID(id string) (*domain.Seminar, error) {
	query := `SELECT ` + seminarColumns + ` FROM seminars WHERE id = $1`

	seminar, err := scanSeminar(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "seminar", Key: id}
		}
		return nil, fmt.Errorf("failed to get seminar: %w", err)
	}

	return seminar, nil
}

// Update updates an existing seminar
func (r *PostgresSeminarRepository) Update(seminar *domain.Seminar) error {
	query := `
		UPDATE seminars
		SET title = $1, description = $2, date = $3, instructor_id = NULLIF($4, '')::uuid, status = $5, updated_at = now()
		WHERE id = $6
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		query,
		seminar.Title,
		seminar.Description,
		domain.DateOnly(seminar.Date),
		seminar.InstructorID,
		string(seminar.Status),
		seminar.ID,
	).Scan(&seminar.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.NotFoundError{Resource: "seminar", Key: seminar.ID}
		}
		return fmt.Errorf("failed to update seminar: %w", err)
	}

	return nil
}

// Delete removes a seminar
func (r *PostgresSeminarRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM seminars WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete seminar: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rows == 0 {
		return &domain.NotFoundError{Resource: "seminar", Key: id}
	}

	return nil
}

// List lists seminars newest first, optionally filtered to one center
func (r *PostgresSeminarRepository) List(centerID string) ([]*domain.Seminar, error) {
	query := `SELECT ` + seminarColumns + ` FROM seminars WHERE ($1 = '' OR center_id = $1::uuid) ORDER BY date DESC`

	rows, err := r.db.Query(query, centerID)
	if err != nil {
		r.logger.Error("failed to list seminars",
			slog.String("center_id", centerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list seminars: %w", err)
	}
	defer rows.Close()

	var seminars []*domain.Seminar
	for rows.Next() {
		seminar, err := scanSeminar(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan seminar: %w", err)
		}
		seminars = append(seminars, seminar)
	}

	return seminars, rows.Err()
}
