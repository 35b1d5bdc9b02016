package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/centerattend/internal/domain"
)

// PostgresAccountRepository implements domain.AccountRepository using PostgreSQL
type PostgresAccountRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresAccountRepository creates a new account repository
func NewPostgresAccountRepository(db *sql.DB, logger *slog.Logger) *PostgresAccountRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAccountRepository{
		db:     db,
		logger: logger,
	}
}

const accountColumns = `id, username, COALESCE(email, ''), password_hash, role, profile_kind, profile_id, active, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (*domain.Account, error) {
	account := &domain.Account{}
	var profileKind, profileID sql.NullString

	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&profileKind,
		&profileID,
		&account.Active,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if profileKind.Valid && profileID.Valid {
		account.Profile = &domain.ProfileRef{
			Kind: domain.ProfileKind(profileKind.String),
			ID:   profileID.String,
		}
	}
	return account, nil
}

// Create creates a new account. A taken username or email surfaces as a
// DuplicateError from the unique constraint, not from a prior read.
func (r *PostgresAccountRepository) Create(account *domain.Account) error {
	query := `
		INSERT INTO accounts (username, email, password_hash, role, profile_kind, profile_id, active)
		VALUES ($1, NULLIF($2, ''), $3, $4, NULLIF($5, ''), $6, $7)
		RETURNING id, created_at, updated_at
	`

	var profileKind string
	var profileID any
	if account.Profile != nil {
		profileKind = string(account.Profile.Kind)
		profileID = account.Profile.ID
	}

	err := r.db.QueryRow(
		query,
		account.Username,
		account.Email,
		account.PasswordHash,
		string(account.Role),
		profileKind,
		profileID,
		account.Active,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err, "accounts_username_key") {
			return &domain.DuplicateError{Resource: "account", Key: account.Username}
		}
		if isUniqueViolation(err, "accounts_email_key") {
			return &domain.DuplicateError{Resource: "account", Key: account.Email}
		}
		if isUniqueViolation(err, "") {
			return &domain.ConflictError{Resource: "account", Detail: "profile already linked to another account"}
		}
		r.logger.Error("failed to create account",
			slog.String("username", account.Username),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by ID
func (r *PostgresAccountRepository) GetByID(id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "account", Key: id}
		}
		r.logger.Error("failed to get account by id",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// GetByUsername retrieves an active account by its credential handle
func (r *PostgresAccountRepository) GetByUsername(username string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1 AND active = true`

	account, err := scanAccount(r.db.QueryRow(query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "account", Key: username}
		}
		return nil, fmt.Errorf("failed to get account by username: %w", err)
	}

	return account, nil
}

// Update updates an existing account
func (r *PostgresAccountRepository) Update(account *domain.Account) error {
	query := `
		UPDATE accounts
		SET username = $1, email = NULLIF($2, ''), password_hash = $3, active = $4
		WHERE id = $5
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		query,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.Active,
		account.ID,
	).Scan(&account.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.NotFoundError{Resource: "account", Key: account.ID}
		}
		return fmt.Errorf("failed to update account: %w", err)
	}

	return nil
}

// SetProfile binds an account to a profile reference. Binding a profile that
// is already linked to a different account violates the (profile_kind,
// profile_id) unique constraint and surfaces as a ConflictError.
func (r *PostgresAccountRepository) SetProfile(accountID string, ref domain.ProfileRef) error {
	query := `
		UPDATE accounts
		SET profile_kind = $1, profile_id = $2
		WHERE id = $3
		RETURNING updated_at
	`

	var updatedAt sql.NullTime
	err := r.db.QueryRow(query, string(ref.Kind), ref.ID, accountID).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.NotFoundError{Resource: "account", Key: accountID}
		}
		if isUniqueViolation(err, "") {
			return &domain.ConflictError{
				Resource: "profile",
				Detail:   fmt.Sprintf("%s %s is already linked to another account", ref.Kind, ref.ID),
			}
		}
		return fmt.Errorf("failed to link profile: %w", err)
	}

	return nil
}

// GetByProfile finds the account bound to a profile reference
func (r *PostgresAccountRepository) GetByProfile(ref domain.ProfileRef) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE profile_kind = $1 AND profile_id = $2`

	account, err := scanAccount(r.db.QueryRow(query, string(ref.Kind), ref.ID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "account", Key: ref.ID}
		}
		return nil, fmt.Errorf("failed to get account by profile: %w", err)
	}

	return account, nil
}

// Deactivate soft-deletes an account (sets active to false)
func (r *PostgresAccountRepository) Deactivate(id string) error {
	query := `
		UPDATE accounts
		SET active = false
		WHERE id = $1
	`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rows == 0 {
		return &domain.NotFoundError{Resource: "account", Key: id}
	}

	return nil
}

// List lists active accounts, optionally restricted to one role
func (r *PostgresAccountRepository) List(role domain.Role) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE active = true AND ($1 = '' OR role = $1) ORDER BY created_at DESC`

	rows, err := r.db.Query(query, string(role))
	if err != nil {
		r.logger.Error("failed to list accounts",
			slog.String("role", string(role)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			r.logger.Error("failed to scan account row",
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}
