// AngelaMos | 2026
// service.go

package blog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/insighta/internal/core"
	"github.com/carterperez-dev/insighta/internal/user"
)

var (
	ErrSlugTaken = errors.New("slug already exists")
	ErrEmptySlug = errors.New("slug is empty")
	ErrNotOwner  = errors.New("blog belongs to another user")
)

// AuthorLookup resolves the author shown next to a blog.
type AuthorLookup interface {
	GetUser(ctx context.Context, id string) (*user.User, error)
}

type Service struct {
	repo    Repository
	authors AuthorLookup
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(repo Repository, authors AuthorLookup, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		authors: authors,
		logger:  logger,
		now:     time.Now,
	}
}

// Create stores a new blog for authorID. The slug falls back to the title
// when none is given.
func (s *Service) Create(
	ctx context.Context,
	authorID string,
	req CreateBlogRequest,
) (*Blog, error) {
	if authorID == "" {
		return nil, fmt.Errorf("create blog: %w", core.ErrUnauthorized)
	}

	source := req.Slug
	if strings.TrimSpace(source) == "" {
		source = req.Title
	}
	slug := NormalizeSlug(source)
	if slug == "" {
		return nil, ErrEmptySlug
	}

	category := req.Category
	if category == "" {
		category = CategoryAll
	}

	blog := &Blog{
		Title:      strings.TrimSpace(req.Title),
		Content:    req.Content,
		Tags:       req.Tags,
		CoverImage: req.CoverImage,
		Slug:       slug,
		Category:   category,
		Status:     StatusDraft,
		AuthorID:   authorID,
	}
	if blog.Tags == nil {
		blog.Tags = Tags{}
	}
	if req.Status == StatusPublished {
		blog.SetStatus(StatusPublished, s.now().UTC())
	}

	if err := s.repo.Create(ctx, blog); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}

	core.AddSpanEvent(ctx, "blog.created",
		attribute.String("blog.id", blog.ID),
		attribute.String("blog.status", blog.Status),
	)

	return blog, nil
}

// GetBySlug returns a blog for reading. Drafts are only visible to their
// author and to admins. Reads of published blogs bump the view count.
func (s *Service) GetBySlug(
	ctx context.Context,
	slug, viewerID string,
	viewerIsAdmin bool,
) (*Blog, error) {
	blog, err := s.repo.GetBySlug(ctx, NormalizeSlug(slug))
	if err != nil {
		return nil, err
	}

	if !blog.IsPublished {
		if !blog.OwnedBy(viewerID) && !viewerIsAdmin {
			return nil, fmt.Errorf("get blog: %w", core.ErrNotFound)
		}
		return blog, nil
	}

	if err := s.repo.IncrementViews(ctx, blog.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to record blog view",
			"blog_id", blog.ID,
			"error", err,
		)
		return blog, nil
	}
	blog.ViewCount++

	return blog, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*Blog, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListPublished(
	ctx context.Context,
	page, pageSize int,
	category string,
) ([]Blog, ListParams, int, error) {
	params := ListParams{
		Page:          page,
		PageSize:      pageSize,
		Category:      category,
		PublishedOnly: true,
	}
	params.Normalize()

	blogs, total, err := s.repo.List(ctx, params)
	return blogs, params, total, err
}

func (s *Service) ListByAuthor(
	ctx context.Context,
	authorID string,
	page, pageSize int,
) ([]Blog, ListParams, int, error) {
	if authorID == "" {
		return nil, ListParams{}, 0, fmt.Errorf("list blogs: %w", core.ErrUnauthorized)
	}

	params := ListParams{Page: page, PageSize: pageSize, AuthorID: authorID}
	params.Normalize()

	blogs, total, err := s.repo.List(ctx, params)
	return blogs, params, total, err
}

func (s *Service) CountBlogs(ctx context.Context, publishedOnly bool) (int, error) {
	_, total, err := s.repo.List(ctx, ListParams{Page: 1, PageSize: 1, PublishedOnly: publishedOnly})
	return total, err
}

// Update applies the non-nil fields of req. Only the author may edit.
func (s *Service) Update(
	ctx context.Context,
	userID, id string,
	req UpdateBlogRequest,
) (*Blog, error) {
	blog, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !blog.OwnedBy(userID) {
		return nil, ErrNotOwner
	}

	if req.Title != nil && strings.TrimSpace(*req.Title) != "" {
		blog.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil && *req.Content != "" {
		blog.Content = *req.Content
	}
	if req.Category != nil && *req.Category != "" {
		blog.Category = *req.Category
	}
	if req.Tags != nil {
		blog.Tags = *req.Tags
	}
	if req.CoverImage != nil && *req.CoverImage != "" {
		blog.CoverImage = *req.CoverImage
	}
	if req.Status != nil {
		blog.SetStatus(*req.Status, s.now().UTC())
	}

	if err := s.repo.Update(ctx, blog); err != nil {
		return nil, err
	}

	return blog, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	blog, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !blog.OwnedBy(userID) {
		return ErrNotOwner
	}

	return s.repo.Delete(ctx, blog.ID, blog.AuthorID)
}

func (s *Service) TogglePublish(ctx context.Context, id string) (*Blog, error) {
	blog, err := s.repo.TogglePublish(ctx, id, s.now().UTC())
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "blog publish state changed",
		"blog_id", blog.ID,
		"published", blog.IsPublished,
	)

	return blog, nil
}

// Authors resolves the authors of blogs, one lookup per distinct author.
// Authors that no longer exist are left out.
func (s *Service) Authors(ctx context.Context, blogs ...Blog) map[string]*AuthorResponse {
	out := make(map[string]*AuthorResponse)

	for i := range blogs {
		id := blogs[i].AuthorID
		if _, seen := out[id]; seen {
			continue
		}

		u, err := s.authors.GetUser(ctx, id)
		if err != nil {
			if !errors.Is(err, core.ErrNotFound) {
				s.logger.WarnContext(ctx, "failed to load blog author",
					"author_id", id,
					"error", err,
				)
			}
			out[id] = nil
			continue
		}

		out[id] = &AuthorResponse{
			ID:       u.ID,
			Username: u.Username,
			Email:    u.Email,
			Avatar:   u.Avatar,
		}
	}

	return out
}
