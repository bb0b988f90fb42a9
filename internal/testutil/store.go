// Package testutil holds in-memory collaborators shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ong-aas/claims-portal/internal/models"
	"github.com/ong-aas/claims-portal/internal/storage"
)

var (
	_ storage.UserStore  = (*MemoryStore)(nil)
	_ storage.ClaimStore = (*MemoryStore)(nil)
	_ storage.PostStore  = (*MemoryStore)(nil)
	_ storage.StatsStore = (*MemoryStore)(nil)
)

// MemoryStore is a goroutine-safe in-memory implementation of every store interface.
// Timestamps advance one second per write so ordering is deterministic.
type MemoryStore struct {
	mu       sync.Mutex
	seq      int
	clock    time.Time
	users    map[string]models.User
	claims   map[string]models.Claim
	updates  []models.ClaimUpdate
	posts    map[string]models.Post
	comments []models.Comment

	// FailNext, when set, is returned (and cleared) by the next store call.
	FailNext error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clock:  time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC),
		users:  map[string]models.User{},
		claims: map[string]models.Claim{},
		posts:  map[string]models.Post{},
	}
}

func (m *MemoryStore) next(prefix string) (string, time.Time) {
	m.seq++
	m.clock = m.clock.Add(time.Second)
	return fmt.Sprintf("%s-%d", prefix, m.seq), m.clock
}

func (m *MemoryStore) fail() error {
	err := m.FailNext
	m.FailNext = nil
	return err
}

func (m *MemoryStore) CreateUser(_ context.Context, user models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return models.User{}, err
	}
	for _, existing := range m.users {
		if existing.PhoneNumber == user.PhoneNumber {
			return models.User{}, storage.ErrAlreadyExists
		}
	}
	user.ID, user.CreatedAt = m.next("user")
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	user.Version = 1
	m.users[user.ID] = user
	return user, nil
}

func (m *MemoryStore) FindByID(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return models.User{}, err
	}
	user, ok := m.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

func (m *MemoryStore) FindByPhone(_ context.Context, phone string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return models.User{}, err
	}
	for _, user := range m.users {
		if user.PhoneNumber == phone {
			return user, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (m *MemoryStore) ListUsers(_ context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(m.users))
	for _, user := range m.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (m *MemoryStore) VerifyUser(_ context.Context, id string, version int) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return models.User{}, err
	}
	user, ok := m.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	if user.Version != version {
		return models.User{}, storage.ErrConflict
	}
	user.Verified = true
	user.Version++
	m.users[id] = user
	return user, nil
}

func (m *MemoryStore) SetRole(_ context.Context, id, role string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	user.Role = role
	user.Version++
	m.users[id] = user
	return user, nil
}

func (m *MemoryStore) CreateClaim(_ context.Context, claim models.Claim) (models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return models.Claim{}, err
	}
	if _, ok := m.users[claim.UserID]; !ok {
		return models.Claim{}, storage.ErrNotFound
	}
	claim.ID, claim.CreatedAt = m.next("claim")
	claim.Version = 1
	m.claims[claim.ID] = claim
	return claim, nil
}

func (m *MemoryStore) ListClaimsByUser(_ context.Context, userID string) ([]models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	out := []models.Claim{}
	for _, claim := range m.claims {
		if claim.UserID == userID {
			out = append(out, claim)
		}
	}
	sortClaims(out)
	return out, nil
}

func (m *MemoryStore) ListClaims(_ context.Context) ([]models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	out := make([]models.Claim, 0, len(m.claims))
	for _, claim := range m.claims {
		owner := m.users[claim.UserID]
		claim.Owner = &models.Owner{FullName: owner.FullName, PhoneNumber: owner.PhoneNumber, CarNumber: owner.CarNumber}
		out = append(out, claim)
	}
	sortClaims(out)
	return out, nil
}

func (m *MemoryStore) ListClaimSummaries(ctx context.Context) ([]models.ClaimSummary, error) {
	claims, err := m.ListClaims(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.ClaimSummary, 0, len(claims))
	for _, c := range claims {
		out = append(out, models.ClaimSummary{ID: c.ID, Status: c.Status, Progress: c.Progress, CreatedAt: c.CreatedAt})
	}
	return out, nil
}

func (m *MemoryStore) UpdateClaimStatus(_ context.Context, claimID string, version int, update models.ClaimUpdate) (models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return models.Claim{}, err
	}
	claim, ok := m.claims[claimID]
	if !ok {
		return models.Claim{}, storage.ErrNotFound
	}
	if claim.Version != version {
		return models.Claim{}, storage.ErrConflict
	}
	claim.Status = update.NewStatus
	claim.Progress = update.NewProgress
	claim.Version++
	m.claims[claimID] = claim

	update.ID, update.CreatedAt = m.next("update")
	update.ClaimID = claimID
	m.updates = append(m.updates, update)
	return claim, nil
}

func (m *MemoryStore) ListClaimUpdates(_ context.Context, claimID string) ([]models.ClaimUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	out := []models.ClaimUpdate{}
	for _, u := range m.updates {
		if u.ClaimID == claimID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *MemoryStore) CreatePost(_ context.Context, post models.Post) (models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return models.Post{}, err
	}
	post.ID, post.CreatedAt = m.next("post")
	post.Version = 1
	m.posts[post.ID] = post
	return post, nil
}

func (m *MemoryStore) UpdatePost(_ context.Context, post models.Post) (models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return models.Post{}, err
	}
	stored, ok := m.posts[post.ID]
	if !ok {
		return models.Post{}, storage.ErrNotFound
	}
	if stored.Version != post.Version {
		return models.Post{}, storage.ErrConflict
	}
	stored.Title, stored.Content, stored.Media = post.Title, post.Content, post.Media
	stored.Version++
	m.posts[post.ID] = stored
	return stored, nil
}

func (m *MemoryStore) DeletePost(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	if _, ok := m.posts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.posts, id)
	kept := m.comments[:0]
	for _, c := range m.comments {
		if c.PostID != id {
			kept = append(kept, c)
		}
	}
	m.comments = kept
	return nil
}

func (m *MemoryStore) ListPosts(_ context.Context) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	out := make([]models.Post, 0, len(m.posts))
	for _, post := range m.posts {
		post.Creator = &models.Owner{FullName: m.users[post.CreatedBy].FullName}
		out = append(out, post)
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (m *MemoryStore) CreateComment(_ context.Context, comment models.Comment) (models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return models.Comment{}, err
	}
	if _, ok := m.posts[comment.PostID]; !ok {
		return models.Comment{}, storage.ErrNotFound
	}
	comment.ID, comment.CreatedAt = m.next("comment")
	comment.Author = &models.Owner{FullName: m.users[comment.UserID].FullName}
	m.comments = append(m.comments, comment)
	return comment, nil
}

func (m *MemoryStore) ListComments(_ context.Context, postID string) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	out := []models.Comment{}
	for _, c := range m.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemoryStore) Stats(_ context.Context) (models.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return models.Stats{}, err
	}
	var st models.Stats
	for _, u := range m.users {
		st.TotalUsers++
		if u.Verified {
			st.VerifiedUsers++
		}
	}
	for _, c := range m.claims {
		st.TotalClaims++
		if c.Status == models.StatusPending {
			st.PendingClaims++
		}
	}
	st.TotalPosts = len(m.posts)
	return st, nil
}

func sortClaims(claims []models.Claim) {
	sort.Slice(claims, func(i, j int) bool {
		return newer(claims[i].CreatedAt, claims[j].CreatedAt, claims[i].ID, claims[j].ID)
	})
}

func newer(a, b time.Time, aID, bID string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID > bID
}
