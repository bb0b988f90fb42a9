package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ong-aas/claims-portal/internal/models"
	"github.com/ong-aas/claims-portal/internal/storage"
)

const claimColumns = `c.id, c.user_id, c.title, c.description, c.incident_date, c.accident_images,
	COALESCE(c.police_report, ''), COALESCE(c.insurance_receipt, ''), c.status, c.progress, c.version, c.created_at`

// CreateClaim inserts a claim; the database assigns id and created_at.
func (s *Store) CreateClaim(ctx context.Context, claim models.Claim) (models.Claim, error) {
	const query = `
		INSERT INTO claims AS c (user_id, title, description, incident_date, accident_images,
			police_report, insurance_receipt, status, progress)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + claimColumns
	row := s.pool.QueryRow(ctx, query,
		claim.UserID, claim.Title, claim.Description, claim.IncidentDate, claim.AccidentImages,
		nullable(claim.PoliceReport), nullable(claim.InsuranceReceipt), string(claim.Status), claim.Progress,
	)
	created, err := scanClaim(row)
	if err != nil && isForeignKeyViolation(err) {
		return models.Claim{}, fmt.Errorf("claim owner: %w", storage.ErrNotFound)
	}
	return created, err
}

// ListClaimsByUser returns the user's own claims, newest first.
func (s *Store) ListClaimsByUser(ctx context.Context, userID string) ([]models.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims c WHERE c.user_id = $1 ORDER BY c.created_at DESC, c.id DESC`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	claims := []models.Claim{}
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}

// ListClaims returns every claim with its owner expanded, newest first.
func (s *Store) ListClaims(ctx context.Context) ([]models.Claim, error) {
	query := `SELECT ` + claimColumns + `, u.full_name, u.phone_number, u.car_number
		FROM claims c JOIN users u ON u.id = c.user_id
		ORDER BY c.created_at DESC, c.id DESC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	claims := []models.Claim{}
	for rows.Next() {
		var claim models.Claim
		var status string
		owner := &models.Owner{}
		if err := rows.Scan(
			&claim.ID, &claim.UserID, &claim.Title, &claim.Description, &claim.IncidentDate,
			&claim.AccidentImages, &claim.PoliceReport, &claim.InsuranceReceipt, &status,
			&claim.Progress, &claim.Version, &claim.CreatedAt,
			&owner.FullName, &owner.PhoneNumber, &owner.CarNumber,
		); err != nil {
			return nil, err
		}
		claim.Status = models.ClaimStatus(status)
		claim.Owner = owner
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}

// ListClaimSummaries returns the public progress view of all claims, newest first.
func (s *Store) ListClaimSummaries(ctx context.Context) ([]models.ClaimSummary, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, status, progress, created_at FROM claims ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.ClaimSummary{}
	for rows.Next() {
		var summary models.ClaimSummary
		var status string
		if err := rows.Scan(&summary.ID, &status, &summary.Progress, &summary.CreatedAt); err != nil {
			return nil, err
		}
		summary.Status = models.ClaimStatus(status)
		out = append(out, summary)
	}
	return out, rows.Err()
}

// UpdateClaimStatus applies an admin edit guarded by version and appends the audit row in one transaction.
func (s *Store) UpdateClaimStatus(ctx context.Context, claimID string, version int, update models.ClaimUpdate) (models.Claim, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Claim{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const updateQuery = `
		UPDATE claims AS c SET status = $1, progress = $2, version = c.version + 1, updated_at = NOW()
		WHERE c.id = $3 AND c.version = $4
		RETURNING ` + claimColumns
	claim, err := scanClaim(tx.QueryRow(ctx, updateQuery, string(update.NewStatus), update.NewProgress, claimID, version))
	if errors.Is(err, storage.ErrNotFound) {
		_ = tx.Rollback(ctx)
		return models.Claim{}, s.versionMiss(ctx, "claims", claimID)
	}
	if err != nil {
		return models.Claim{}, err
	}

	const auditQuery = `
		INSERT INTO claim_updates (claim_id, updated_by, new_status, new_progress, note)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.Exec(ctx, auditQuery, claimID, update.UpdatedBy, string(update.NewStatus), update.NewProgress, nullable(update.Note)); err != nil {
		return models.Claim{}, fmt.Errorf("append claim update: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Claim{}, fmt.Errorf("commit: %w", err)
	}
	return claim, nil
}

// ListClaimUpdates returns a claim's audit trail, oldest first.
func (s *Store) ListClaimUpdates(ctx context.Context, claimID string) ([]models.ClaimUpdate, error) {
	const query = `
		SELECT id, claim_id, updated_by, new_status, new_progress, COALESCE(note, ''), created_at
		FROM claim_updates WHERE claim_id = $1 ORDER BY created_at ASC, id ASC`
	rows, err := s.pool.Query(ctx, query, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.ClaimUpdate{}
	for rows.Next() {
		var u models.ClaimUpdate
		var status string
		if err := rows.Scan(&u.ID, &u.ClaimID, &u.UpdatedBy, &status, &u.NewProgress, &u.Note, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.NewStatus = models.ClaimStatus(status)
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanClaim(row pgx.Row) (models.Claim, error) {
	var claim models.Claim
	var status string
	if err := row.Scan(
		&claim.ID, &claim.UserID, &claim.Title, &claim.Description, &claim.IncidentDate,
		&claim.AccidentImages, &claim.PoliceReport, &claim.InsuranceReceipt, &status,
		&claim.Progress, &claim.Version, &claim.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Claim{}, storage.ErrNotFound
		}
		return models.Claim{}, err
	}
	claim.Status = models.ClaimStatus(status)
	return claim, nil
}
