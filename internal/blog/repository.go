// AngelaMos | 2026
// repository.go

package blog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/insighta/internal/core"
)

// Repository stores blogs. A taken slug is reported as
// core.ErrDuplicateKey and a missing blog as core.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, blog *Blog) error
	GetByID(ctx context.Context, id string) (*Blog, error)
	GetBySlug(ctx context.Context, slug string) (*Blog, error)
	// Update writes the editable fields. It only matches while the blog
	// still belongs to blog.AuthorID.
	Update(ctx context.Context, blog *Blog) error
	Delete(ctx context.Context, id, authorID string) error
	List(ctx context.Context, params ListParams) ([]Blog, int, error)
	TogglePublish(ctx context.Context, id string, now time.Time) (*Blog, error)
	IncrementViews(ctx context.Context, id string) error
}

const blogColumns = `id, title, content, tags, cover_image, slug, category,
		       status, is_published, published_at, view_count, author_id,
		       created_at, updated_at`

type postgresRepository struct {
	db core.DBTX
}

func NewPostgresRepository(db core.DBTX) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, blog *Blog) error {
	if blog.ID == "" {
		blog.ID = uuid.New().String()
	}

	query := `
		INSERT INTO blogs (id, title, content, tags, cover_image, slug,
		                   category, status, is_published, published_at, author_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, blog, query,
		blog.ID,
		blog.Title,
		blog.Content,
		blog.Tags,
		blog.CoverImage,
		blog.Slug,
		blog.Category,
		blog.Status,
		blog.IsPublished,
		blog.PublishedAt,
		blog.AuthorID,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create blog: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create blog: %w", err)
	}

	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id string) (*Blog, error) {
	if !validUUID(id) {
		return nil, fmt.Errorf("get blog: %w", core.ErrNotFound)
	}
	return r.getOne(ctx, "get blog", `SELECT `+blogColumns+` FROM blogs WHERE id = $1`, id)
}

func (r *postgresRepository) GetBySlug(ctx context.Context, slug string) (*Blog, error) {
	return r.getOne(ctx, "get blog by slug", `SELECT `+blogColumns+` FROM blogs WHERE slug = $1`, slug)
}

func (r *postgresRepository) getOne(
	ctx context.Context,
	op, query string,
	args ...any,
) (*Blog, error) {
	var blog Blog
	err := r.db.GetContext(ctx, &blog, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &blog, nil
}

func (r *postgresRepository) Update(ctx context.Context, blog *Blog) error {
	if !validUUID(blog.ID) {
		return fmt.Errorf("update blog: %w", core.ErrNotFound)
	}

	query := `
		UPDATE blogs
		SET title = $3, content = $4, tags = $5, cover_image = $6,
		    category = $7, status = $8, is_published = $9,
		    published_at = $10, updated_at = NOW()
		WHERE id = $1 AND author_id = $2
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &blog.UpdatedAt, query,
		blog.ID,
		blog.AuthorID,
		blog.Title,
		blog.Content,
		blog.Tags,
		blog.CoverImage,
		blog.Category,
		blog.Status,
		blog.IsPublished,
		blog.PublishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update blog: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update blog: %w", err)
	}

	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id, authorID string) error {
	if !validUUID(id) {
		return fmt.Errorf("delete blog: %w", core.ErrNotFound)
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM blogs WHERE id = $1 AND author_id = $2`, id, authorID)
	if err != nil {
		return fmt.Errorf("delete blog: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete blog: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete blog: %w", core.ErrNotFound)
	}

	return nil
}

func (r *postgresRepository) List(
	ctx context.Context,
	params ListParams,
) ([]Blog, int, error) {
	params.Normalize()

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if params.PublishedOnly {
		conditions = append(conditions, "is_published = TRUE")
	}

	if params.AuthorID != "" {
		if !validUUID(params.AuthorID) {
			return []Blog{}, 0, nil
		}
		conditions = append(conditions, fmt.Sprintf("author_id = $%d", argIdx))
		args = append(args, params.AuthorID)
		argIdx++
	}

	if params.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, params.Category)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM blogs WHERE %s", whereClause)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count blogs: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM blogs
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		blogColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var blogs []Blog
	if err := r.db.SelectContext(ctx, &blogs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list blogs: %w", err)
	}

	return blogs, total, nil
}

// TogglePublish flips the publish flag in one statement. The CASE
// expressions read the values from before the update.
func (r *postgresRepository) TogglePublish(
	ctx context.Context,
	id string,
	now time.Time,
) (*Blog, error) {
	if !validUUID(id) {
		return nil, fmt.Errorf("toggle publish: %w", core.ErrNotFound)
	}

	query := `
		UPDATE blogs
		SET is_published = NOT is_published,
		    status = CASE WHEN is_published THEN 'draft' ELSE 'published' END,
		    published_at = CASE WHEN is_published THEN NULL ELSE $2::timestamptz END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + blogColumns

	return r.getOne(ctx, "toggle publish", query, id, now)
}

func (r *postgresRepository) IncrementViews(ctx context.Context, id string) error {
	if !validUUID(id) {
		return fmt.Errorf("increment views: %w", core.ErrNotFound)
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE blogs SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}

func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
