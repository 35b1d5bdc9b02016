package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/centerattend/internal/domain"
)

// PostgresStudentRepository implements domain.StudentRepository using PostgreSQL
type PostgresStudentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStudentRepository creates a new student repository
func NewPostgresStudentRepository(db *sql.DB, logger *slog.Logger) *PostgresStudentRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresStudentRepository{
		db:     db,
		logger: logger,
	}
}

const studentColumns = `id, external_id, name, age_or_grade, gender, center_id, created_at, updated_at`

func scanStudent(row interface{ Scan(...any) error }) (*domain.Student, error) {
	student := &domain.Student{}
	err := row.Scan(
		&student.ID,
		&student.ExternalID,
		&student.Name,
		&student.AgeOrGrade,
		&student.Gender,
		&student.CenterID,
		&student.CreatedAt,
		&student.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return student, nil
}

// Create creates a new student profile
func (r *PostgresStudentRepository) Create(student *domain.Student) error {
	query := `
		INSERT INTO students (external_id, name, age_or_grade, gender, center_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		student.ExternalID,
		student.Name,
		student.AgeOrGrade,
		student.Gender,
		student.CenterID,
	).Scan(&student.ID, &student.CreatedAt, &student.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err, "") {
			return &domain.DuplicateError{Resource: "student", Key: student.ExternalID}
		}
		r.logger.Error("failed to create student",
			slog.String("external_id", student.ExternalID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create student: %w", err)
	}

	return nil
}

// GetByID retrieves a student by ID
func (r *PostgresStudentRepository) GetByID(id string) (*domain.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`

	student, err := scanStudent(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "student", Key: id}
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	return student, nil
}

// GetByExternalID retrieves a student by the human-facing student ID
func (r *PostgresStudentRepository) GetByExternalID(externalID string) (*domain.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE external_id = $1`

	student, err := scanStudent(r.db.QueryRow(query, externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "student", Key: externalID}
		}
		return nil, fmt.Errorf("failed to get student by external id: %w", err)
	}

	return student, nil
}

// Update updates an existing student profile
func (r *PostgresStudentRepository) Update(student *domain.Student) error {
	query := `
		UPDATE students
		SET name = $1, age_or_grade = $2, gender = $3, center_id = $4, updated_at = now()
		WHERE id = $5
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		query,
		student.Name,
		student.AgeOrGrade,
		student.Gender,
		student.CenterID,
		student.ID,
	).Scan(&student.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.NotFoundError{Resource: "student", Key: student.ID}
		}
		return fmt.Errorf("failed to update student: %w", err)
	}

	return nil
}

// Delete removes a student profile
func (r *PostgresStudentRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rows == 0 {
		return &domain.NotFoundError{Resource: "student", Key: id}
	}

	return nil
}

// List lists students, optionally filtered to one center
func (r *PostgresStudentRepository) List(centerID string) ([]*domain.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE ($1 = '' OR center_id = $1::uuid) ORDER BY external_id`

	rows, err := r.db.Query(query, centerID)
	if err != nil {
		r.logger.Error("failed to list students",
			slog.String("center_id", centerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var students []*domain.Student
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, student)
	}

	return students, rows.Err()
}
