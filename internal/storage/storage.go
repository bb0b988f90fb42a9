package storage

import (
	"context"
	"errors"

	"github.com/ong-aas/claims-portal/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrConflict indicates the record changed since the caller read it.
var ErrConflict = errors.New("record was modified concurrently")

// UserStore captures user persistence operations.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByPhone(ctx context.Context, phone string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	// VerifyUser sets is_verified when the stored version equals version.
	VerifyUser(ctx context.Context, id string, version int) (models.User, error)
	SetRole(ctx context.Context, id, role string) (models.User, error)
}

// ClaimStore captures claim and audit persistence operations.
type ClaimStore interface {
	CreateClaim(ctx context.Context, claim models.Claim) (models.Claim, error)
	ListClaimsByUser(ctx context.Context, userID string) ([]models.Claim, error)
	ListClaims(ctx context.Context) ([]models.Claim, error)
	ListClaimSummaries(ctx context.Context) ([]models.ClaimSummary, error)
	// UpdateClaimStatus applies the edit and appends the audit entry atomically. It fails with
	// ErrConflict when the stored version differs from version.
	UpdateClaimStatus(ctx context.Context, claimID string, version int, update models.ClaimUpdate) (models.Claim, error)
	ListClaimUpdates(ctx context.Context, claimID string) ([]models.ClaimUpdate, error)
}

// PostStore captures post and comment persistence operations.
type PostStore interface {
	CreatePost(ctx context.Context, post models.Post) (models.Post, error)
	UpdatePost(ctx context.Context, post models.Post) (models.Post, error)
	DeletePost(ctx context.Context, id string) error
	ListPosts(ctx context.Context) ([]models.Post, error)
	CreateComment(ctx context.Context, comment models.Comment) (models.Comment, error)
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
}

// StatsStore computes dashboard counters.
type StatsStore interface {
	Stats(ctx context.Context) (models.Stats, error)
}

// Pinger is satisfied by stores that can check connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store is the full persistence surface the server wires together.
type Store interface {
	UserStore
	ClaimStore
	PostStore
	StatsStore
}
