// Package admin implements staff-only management of users, claims and posts.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ong-aas/claims-portal/internal/claims"
	"github.com/ong-aas/claims-portal/internal/models"
	"github.com/ong-aas/claims-portal/internal/storage"
)

// ErrInvalidPost is returned for posts without a title or content.
var ErrInvalidPost = errors.New("title and content are required")

// ErrVersionRequired is returned when an edit omits the version it was based on.
var ErrVersionRequired = errors.New("version is required")

// Store groups the persistence the admin service reads and writes.
type Store interface {
	storage.UserStore
	storage.PostStore
	storage.StatsStore
}

// SessionRefresher re-persists a user's identity in their live sessions.
type SessionRefresher interface {
	Refresh(ctx context.Context, user models.User) error
}

// Service exposes admin operations. Every mutation returns recomputed dashboard stats.
type Service struct {
	store    Store
	claims   *claims.Service
	sessions SessionRefresher
	logger   *zap.Logger
}

// NewService wires the admin service.
func NewService(store Store, claimSvc *claims.Service, sessions SessionRefresher, logger *zap.Logger) *Service {
	return &Service{store: store, claims: claimSvc, sessions: sessions, logger: logger}
}

// Stats returns the dashboard counters.
func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	return s.store.Stats(ctx)
}

// afterMutation recomputes stats. A stats failure does not undo the mutation, so it is only logged.
func (s *Service) afterMutation(ctx context.Context) models.Stats {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		s.logger.Warn("refresh stats", zap.Error(err))
	}
	return stats
}

// ListUsers returns every user, newest first.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}

// VerifyUser marks a user verified if nobody changed them since version, then refreshes
// their live sessions so the change is visible without logging in again.
func (s *Service) VerifyUser(ctx context.Context, id string, version int) (models.User, models.Stats, error) {
	if version <= 0 {
		return models.User{}, models.Stats{}, ErrVersionRequired
	}
	user, err := s.store.VerifyUser(ctx, id, version)
	if err != nil {
		return models.User{}, models.Stats{}, fmt.Errorf("verify user %s: %w", id, err)
	}
	if s.sessions != nil {
		if err := s.sessions.Refresh(ctx, user); err != nil {
			s.logger.Warn("refresh sessions after verify", zap.String("user_id", id), zap.Error(err))
		}
	}
	s.logger.Info("user verified", zap.String("user_id", id))
	return user, s.afterMutation(ctx), nil
}

// ListClaims returns every claim with its owner, newest first.
func (s *Service) ListClaims(ctx context.Context) ([]models.Claim, error) {
	return s.claims.ListAll(ctx)
}

// UpdateClaim applies an admin edit to a claim.
func (s *Service) UpdateClaim(ctx context.Context, admin models.User, id string, edit claims.Edit) (models.Claim, models.Stats, error) {
	claim, err := s.claims.Update(ctx, admin, id, edit)
	if err != nil {
		return models.Claim{}, models.Stats{}, err
	}
	return claim, s.afterMutation(ctx), nil
}

// ClaimHistory returns a claim's audit trail.
func (s *Service) ClaimHistory(ctx context.Context, id string) ([]models.ClaimUpdate, error) {
	return s.claims.History(ctx, id)
}

// ListPosts returns every post, newest first.
func (s *Service) ListPosts(ctx context.Context) ([]models.Post, error) {
	return s.store.ListPosts(ctx)
}

// CreatePost publishes a post authored by admin.
func (s *Service) CreatePost(ctx context.Context, admin models.User, title, content, media string) (models.Post, models.Stats, error) {
	post := models.Post{
		Title:     strings.TrimSpace(title),
		Content:   strings.TrimSpace(content),
		Media:     strings.TrimSpace(media),
		CreatedBy: admin.ID,
	}
	if post.Title == "" || post.Content == "" {
		return models.Post{}, models.Stats{}, ErrInvalidPost
	}
	created, err := s.store.CreatePost(ctx, post)
	if err != nil {
		return models.Post{}, models.Stats{}, fmt.Errorf("create post: %w", err)
	}
	return created, s.afterMutation(ctx), nil
}

// UpdatePost edits a post if it is still at version.
func (s *Service) UpdatePost(ctx context.Context, id, title, content, media string, version int) (models.Post, models.Stats, error) {
	post := models.Post{
		ID:      id,
		Title:   strings.TrimSpace(title),
		Content: strings.TrimSpace(content),
		Media:   strings.TrimSpace(media),
		Version: version,
	}
	if post.Title == "" || post.Content == "" {
		return models.Post{}, models.Stats{}, ErrInvalidPost
	}
	if version <= 0 {
		return models.Post{}, models.Stats{}, ErrVersionRequired
	}
	updated, err := s.store.UpdatePost(ctx, post)
	if err != nil {
		return models.Post{}, models.Stats{}, fmt.Errorf("update post %s: %w", id, err)
	}
	return updated, s.afterMutation(ctx), nil
}

// DeletePost removes a post and its comments.
func (s *Service) DeletePost(ctx context.Context, id string) (models.Stats, error) {
	if err := s.store.DeletePost(ctx, id); err != nil {
		return models.Stats{}, fmt.Errorf("delete post %s: %w", id, err)
	}
	s.logger.Info("post deleted", zap.String("post_id", id))
	return s.afterMutation(ctx), nil
}

// ListComments returns a post's comments, oldest first.
func (s *Service) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	return s.store.ListComments(ctx, postID)
}
