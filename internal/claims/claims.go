// Package claims enforces the evidence rules for submitting claims and records admin edits.
package claims

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ong-aas/claims-portal/internal/models"
	"github.com/ong-aas/claims-portal/internal/storage"
)

// MinAccidentImages is the minimum photo evidence for a claim.
const MinAccidentImages = 2

// Message keys returned to clients for localization.
const (
	MsgLoginRequired     = "claim.login_required"
	MsgNotVerified       = "claim.account_not_verified"
	MsgFieldsRequired    = "claim.fields_required"
	MsgInvalidDate       = "claim.invalid_date"
	MsgTooFewImages      = "claim.too_few_images"
	MsgDocumentsRequired = "claim.documents_required"
	MsgInvalidStatus     = "claim.invalid_status"
	MsgInvalidProgress   = "claim.invalid_progress"
	MsgVersionRequired   = "claim.version_required"
)

// ValidationError aborts a submission or edit before any write.
type ValidationError struct {
	Key     string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(key, message string) error {
	return &ValidationError{Key: key, Message: message}
}

// Submission is what a user sends to open a claim.
type Submission struct {
	Title            string
	Description      string
	Date             string // YYYY-MM-DD
	AccidentImages   []string
	PoliceReport     string
	InsuranceReceipt string
}

// Edit is an admin change to a claim's review state.
type Edit struct {
	Status   models.ClaimStatus
	Progress int
	Note     string
	Version  int
}

// Service runs claim workflows against a ClaimStore.
type Service struct {
	store  storage.ClaimStore
	logger *zap.Logger
}

// NewService builds a claim service.
func NewService(store storage.ClaimStore, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// CheckSubmission applies the submission preconditions in order and returns the parsed incident date.
func CheckSubmission(identity *models.User, sub Submission) (time.Time, error) {
	if identity == nil {
		return time.Time{}, invalid(MsgLoginRequired, "login required")
	}
	if !identity.Verified {
		return time.Time{}, invalid(MsgNotVerified, "account must be verified before submitting claims")
	}
	if strings.TrimSpace(sub.Title) == "" || strings.TrimSpace(sub.Description) == "" || strings.TrimSpace(sub.Date) == "" {
		return time.Time{}, invalid(MsgFieldsRequired, "title, description and date are required")
	}
	date, err := time.Parse(time.DateOnly, strings.TrimSpace(sub.Date))
	if err != nil {
		return time.Time{}, invalid(MsgInvalidDate, "date must be YYYY-MM-DD")
	}
	if len(nonBlank(sub.AccidentImages)) < MinAccidentImages {
		return time.Time{}, invalid(MsgTooFewImages, fmt.Sprintf("at least %d accident images are required", MinAccidentImages))
	}
	if strings.TrimSpace(sub.PoliceReport) == "" || strings.TrimSpace(sub.InsuranceReceipt) == "" {
		return time.Time{}, invalid(MsgDocumentsRequired, "police report and insurance receipt are required")
	}
	return date, nil
}

// Submit validates and inserts a new Pending claim with progress 0. Nothing is written when a
// precondition fails, and a failed insert is not retried.
func (s *Service) Submit(ctx context.Context, identity *models.User, sub Submission) (models.Claim, error) {
	date, err := CheckSubmission(identity, sub)
	if err != nil {
		return models.Claim{}, err
	}

	claim := models.Claim{
		UserID:           identity.ID,
		Title:            strings.TrimSpace(sub.Title),
		Description:      strings.TrimSpace(sub.Description),
		IncidentDate:     date,
		AccidentImages:   nonBlank(sub.AccidentImages),
		PoliceReport:     strings.TrimSpace(sub.PoliceReport),
		InsuranceReceipt: strings.TrimSpace(sub.InsuranceReceipt),
		Status:           models.StatusPending,
		Progress:         0,
	}
	created, err := s.store.CreateClaim(ctx, claim)
	if err != nil {
		s.logger.Error("create claim", zap.String("user_id", identity.ID), zap.Error(err))
		return models.Claim{}, fmt.Errorf("create claim: %w", err)
	}
	return created, nil
}

// ListOwn returns the identity's claims, newest first.
func (s *Service) ListOwn(ctx context.Context, userID string) ([]models.Claim, error) {
	return s.store.ListClaimsByUser(ctx, userID)
}

// ListAll returns every claim with its owner, newest first.
func (s *Service) ListAll(ctx context.Context) ([]models.Claim, error) {
	return s.store.ListClaims(ctx)
}

// Summaries returns the public progress feed.
func (s *Service) Summaries(ctx context.Context) ([]models.ClaimSummary, error) {
	return s.store.ListClaimSummaries(ctx)
}

// Update applies an admin edit guarded by the version the admin last saw, and appends an audit
// entry naming the admin. Any status may follow any other.
func (s *Service) Update(ctx context.Context, admin models.User, claimID string, edit Edit) (models.Claim, error) {
	if !edit.Status.Valid() {
		return models.Claim{}, invalid(MsgInvalidStatus, "status must be Pending, In Progress or Resolved")
	}
	if edit.Progress < 0 || edit.Progress > 100 {
		return models.Claim{}, invalid(MsgInvalidProgress, "progress must be between 0 and 100")
	}
	if edit.Version <= 0 {
		return models.Claim{}, invalid(MsgVersionRequired, "version is required")
	}

	update := models.ClaimUpdate{
		ClaimID:     claimID,
		UpdatedBy:   admin.ID,
		NewStatus:   edit.Status,
		NewProgress: edit.Progress,
		Note:        strings.TrimSpace(edit.Note),
	}
	claim, err := s.store.UpdateClaimStatus(ctx, claimID, edit.Version, update)
	if err != nil {
		if !errors.Is(err, storage.ErrConflict) && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("update claim", zap.String("claim_id", claimID), zap.Error(err))
		}
		return models.Claim{}, fmt.Errorf("update claim %s: %w", claimID, err)
	}
	s.logger.Info("claim updated",
		zap.String("claim_id", claimID),
		zap.String("admin_id", admin.ID),
		zap.String("status", string(edit.Status)),
		zap.Int("progress", edit.Progress),
	)
	return claim, nil
}

// History returns a claim's audit trail, oldest first.
func (s *Service) History(ctx context.Context, claimID string) ([]models.ClaimUpdate, error) {
	return s.store.ListClaimUpdates(ctx, claimID)
}

func nonBlank(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if trimmed := strings.TrimSpace(u); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
