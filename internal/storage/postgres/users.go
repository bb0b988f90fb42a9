package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/ong-aas/claims-portal/internal/models"
	"github.com/ong-aas/claims-portal/internal/storage"
)

const userColumns = `id, full_name, phone_number, pin_hash, COALESCE(profile_image, ''),
	COALESCE(driver_license, ''), COALESCE(insurance_image, ''), insurance_start, insurance_end,
	car_number, is_verified, role, version, created_at`

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (full_name, phone_number, pin_hash, profile_image, driver_license, insurance_image,
			insurance_start, insurance_end, car_number, is_verified, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + userColumns
	role := user.Role
	if role == "" {
		role = models.RoleUser
	}
	row := s.pool.QueryRow(ctx, query,
		user.FullName, user.PhoneNumber, user.PINHash,
		nullable(user.ProfileImage), nullable(user.DriverLicense), nullable(user.InsuranceDocument),
		user.InsuranceStart, user.InsuranceEnd, user.CarNumber, user.Verified, role,
	)
	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, err
	}
	return created, nil
}

// FindByID fetches a user by identifier.
func (s *Store) FindByID(ctx context.Context, id string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// FindByPhone fetches a user by phone number.
func (s *Store) FindByPhone(ctx context.Context, phone string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE phone_number = $1`, phone)
	return scanUser(row)
}

// ListUsers returns every user, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// VerifyUser flips is_verified to true when the stored version matches.
func (s *Store) VerifyUser(ctx context.Context, id string, version int) (models.User, error) {
	const query = `
		UPDATE users SET is_verified = TRUE, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING ` + userColumns
	user, err := scanUser(s.pool.QueryRow(ctx, query, id, version))
	if errors.Is(err, storage.ErrNotFound) {
		return models.User{}, s.versionMiss(ctx, "users", id)
	}
	return user, err
}

// SetRole changes a user's role. Used by operator tooling only.
func (s *Store) SetRole(ctx context.Context, id, role string) (models.User, error) {
	const query = `
		UPDATE users SET role = $2, version = version + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(s.pool.QueryRow(ctx, query, id, role))
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID, &user.FullName, &user.PhoneNumber, &user.PINHash, &user.ProfileImage,
		&user.DriverLicense, &user.InsuranceDocument, &user.InsuranceStart, &user.InsuranceEnd,
		&user.CarNumber, &user.Verified, &user.Role, &user.Version, &user.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
