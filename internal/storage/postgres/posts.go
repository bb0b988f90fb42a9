package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ong-aas/claims-portal/internal/models"
	"github.com/ong-aas/claims-portal/internal/storage"
)

const postColumns = `p.id, p.title, p.content, COALESCE(p.media, ''), p.created_by, p.version, p.created_at`

// CreatePost inserts a post.
func (s *Store) CreatePost(ctx context.Context, post models.Post) (models.Post, error) {
	const query = `
		INSERT INTO posts AS p (title, content, media, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + postColumns
	return scanPost(s.pool.QueryRow(ctx, query, post.Title, post.Content, nullable(post.Media), post.CreatedBy))
}

// UpdatePost rewrites title, content and media when post.Version matches the stored version.
func (s *Store) UpdatePost(ctx context.Context, post models.Post) (models.Post, error) {
	const query = `
		UPDATE posts AS p SET title = $1, content = $2, media = $3, version = p.version + 1, updated_at = NOW()
		WHERE p.id = $4 AND p.version = $5
		RETURNING ` + postColumns
	updated, err := scanPost(s.pool.QueryRow(ctx, query, post.Title, post.Content, nullable(post.Media), post.ID, post.Version))
	if errors.Is(err, storage.ErrNotFound) {
		return models.Post{}, s.versionMiss(ctx, "posts", post.ID)
	}
	return updated, err
}

// DeletePost removes a post and, by cascade, its comments.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListPosts returns every post with its creator expanded, newest first.
func (s *Store) ListPosts(ctx context.Context) ([]models.Post, error) {
	query := `SELECT ` + postColumns + `, COALESCE(u.full_name, '')
		FROM posts p LEFT JOIN users u ON u.id = p.created_by
		ORDER BY p.created_at DESC, p.id DESC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		var post models.Post
		creator := &models.Owner{}
		if err := rows.Scan(&post.ID, &post.Title, &post.Content, &post.Media, &post.CreatedBy,
			&post.Version, &post.CreatedAt, &creator.FullName); err != nil {
			return nil, err
		}
		post.Creator = creator
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// CreateComment inserts a comment and returns it with the author expanded.
func (s *Store) CreateComment(ctx context.Context, comment models.Comment) (models.Comment, error) {
	const query = `
		WITH inserted AS (
			INSERT INTO comments (post_id, user_id, content)
			VALUES ($1, $2, $3)
			RETURNING id, post_id, user_id, content, created_at
		)
		SELECT i.id, i.post_id, i.user_id, i.content, i.created_at, u.full_name
		FROM inserted i JOIN users u ON u.id = i.user_id`
	var out models.Comment
	author := &models.Owner{}
	err := s.pool.QueryRow(ctx, query, comment.PostID, comment.UserID, comment.Content).
		Scan(&out.ID, &out.PostID, &out.UserID, &out.Content, &out.CreatedAt, &author.FullName)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Comment{}, fmt.Errorf("comment parent: %w", storage.ErrNotFound)
		}
		return models.Comment{}, err
	}
	out.Author = author
	return out, nil
}

// ListComments returns a post's comments, oldest first, with authors expanded.
func (s *Store) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	const query = `
		SELECT c.id, c.post_id, c.user_id, c.content, c.created_at, u.full_name
		FROM comments c JOIN users u ON u.id = c.user_id
		WHERE c.post_id = $1
		ORDER BY c.created_at ASC, c.id ASC`
	rows, err := s.pool.Query(ctx, query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		author := &models.Owner{}
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Content, &c.CreatedAt, &author.FullName); err != nil {
			return nil, err
		}
		c.Author = author
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// Stats computes the admin dashboard counters in one round trip.
func (s *Store) Stats(ctx context.Context) (models.Stats, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE is_verified),
			(SELECT COUNT(*) FROM claims),
			(SELECT COUNT(*) FROM claims WHERE status = 'Pending'),
			(SELECT COUNT(*) FROM posts)`
	var st models.Stats
	err := s.pool.QueryRow(ctx, query).Scan(&st.TotalUsers, &st.VerifiedUsers, &st.TotalClaims, &st.PendingClaims, &st.TotalPosts)
	return st, err
}

func scanPost(row pgx.Row) (models.Post, error) {
	var post models.Post
	if err := row.Scan(&post.ID, &post.Title, &post.Content, &post.Media, &post.CreatedBy, &post.Version, &post.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Post{}, storage.ErrNotFound
		}
		return models.Post{}, err
	}
	return post, nil
}
