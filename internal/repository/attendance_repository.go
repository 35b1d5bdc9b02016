package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/centerattend/internal/domain"
)

// PostgresAttendanceRepository implements domain.AttendanceRepository using
// PostgreSQL. The attendance_date_subject_key unique constraint is what makes
// Insert safe under concurrency; the Exists fast path never substitutes for it.
type PostgresAttendanceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresAttendanceRepository creates a new attendance repository
func NewPostgresAttendanceRepository(db *sql.DB, logger *slog.Logger) *PostgresAttendanceRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAttendanceRepository{
		db:     db,
		logger: logger,
	}
}

const attendanceColumns = `id, date, subject_kind, subject_id, center_id, status, marked_by, notes, created_at, updated_at`

func scanAttendance(row interface{ Scan(...any) error }) (*domain.AttendanceRecord, error) {
	record := &domain.AttendanceRecord{}
	err := row.Scan(
		&record.ID,
		&record.Date,
		&record.Subject.Kind,
		&record.Subject.ID,
		&record.CenterID,
		&record.Status,
		&record.MarkedBy,
		&record.Notes,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	record.Date = domain.DateOnly(record.Date)
	return record, nil
}

// Insert creates an attendance record. Two concurrent inserts for the same
// (date, subject) resolve at the unique index: one wins, the other gets a
// DuplicateError.
func (r *PostgresAttendanceRepository) Insert(record *domain.AttendanceRecord) error {
	query := `
		INSERT INTO attendance (date, subject_kind, subject_id, center_id, status, marked_by, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		domain.DateOnly(record.Date),
		string(record.Subject.Kind),
		record.Subject.ID,
		record.CenterID,
		string(record.Status),
		record.MarkedBy,
		record.Notes,
	).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err, "attendance_date_subject_key") {
			return &domain.DuplicateError{
				Resource: "attendance",
				Key:      fmt.Sprintf("%s %s on %s", record.Subject.Kind, record.Subject.ID, record.Date.Format(time.DateOnly)),
			}
		}
		r.logger.Error("failed to insert attendance record",
			slog.String("subject_id", record.Subject.ID),
			slog.String("date", record.Date.Format(time.DateOnly)),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to insert attendance record: %w", err)
	}

	return nil
}

// GetByID retrieves an attendance record by ID
func (r *PostgresAttendanceRepository) GetByID(id string) (*domain.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE id = $1`

	record, err := scanAttendance(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "attendance record", Key: id}
		}
		return nil, fmt.Errorf("failed to get attendance record: %w", err)
	}

	return record, nil
}

// Exists reports whether a record already exists for (date, subject). This is
// an optimization to fail fast before an insert attempt.
func (r *PostgresAttendanceRepository) Exists(date time.Time, subject domain.SubjectRef) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM attendance WHERE date = $1 AND subject_kind = $2 AND subject_id = $3)`

	var exists bool
	err := r.db.QueryRow(query, domain.DateOnly(date), string(subject.Kind), subject.ID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check attendance existence: %w", err)
	}

	return exists, nil
}

// List lists attendance records matching the filter, newest day first
func (r *PostgresAttendanceRepository) List(filter domain.AttendanceFilter) ([]*domain.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance
		WHERE ($1::date IS NULL OR date = $1)
		  AND ($2 = '' OR subject_kind = $2)
		  AND ($3 = '' OR subject_id = $3::uuid)
		  AND ($4 = '' OR center_id = $4::uuid)
		ORDER BY date DESC, created_at DESC`

	var date any
	if filter.Date != nil {
		date = domain.DateOnly(*filter.Date)
	}
	var subjectKind, subjectID string
	if filter.Subject != nil {
		subjectKind = string(filter.Subject.Kind)
		subjectID = filter.Subject.ID
	}

	rows, err := r.db.Query(query, date, subjectKind, subjectID, filter.CenterID)
	if err != nil {
		r.logger.Error("failed to list attendance records", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}
	defer rows.Close()

	var records []*domain.AttendanceRecord
	for rows.Next() {
		record, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// UpdateStatus corrects the status (and notes) of an existing record
func (r *PostgresAttendanceRepository) UpdateStatus(id string, status domain.AttendanceStatus, notes string) (*domain.AttendanceRecord, error) {
	query := `
		UPDATE attendance
		SET status = $1, notes = $2, updated_at = now()
		WHERE id = $3
		RETURNING ` + attendanceColumns

	record, err := scanAttendance(r.db.QueryRow(query, string(status), notes, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "attendance record", Key: id}
		}
		return nil, fmt.Errorf("failed to update attendance record: %w", err)
	}

	return record, nil
}

// Delete removes an attendance record
func (r *PostgresAttendanceRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM attendance WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete attendance record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rows == 0 {
		return &domain.NotFoundError{Resource: "attendance record", Key: id}
	}

	return nil
}

// CountPresentByCenter aggregates present marks per center for one day
func (r *PostgresAttendanceRepository) CountPresentByCenter(date time.Time) (map[string]int, error) {
	query := `SELECT center_id, COUNT(*) FROM attendance WHERE date = $1 AND status = 'present' GROUP BY center_id`

	rows, err := r.db.Query(query, domain.DateOnly(date))
	if err != nil {
		return nil, fmt.Errorf("failed to count attendance by center: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var centerID string
		var count int
		if err := rows.Scan(&centerID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan attendance count: %w", err)
		}
		counts[centerID] = count
	}

	return counts, rows.Err()
}
