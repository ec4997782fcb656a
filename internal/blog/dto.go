// AngelaMos | 2026
// dto.go

package blog

import (
	"time"
)

type CreateBlogRequest struct {
	Title      string `json:"title"      validate:"required,min=1,max=200"`
	Content    string `json:"content"    validate:"required"`
	Slug       string `json:"slug"       validate:"omitempty,max=200"`
	Category   string `json:"category"   validate:"omitempty,oneof=All Technology Health Lifestyle Education Entertainment"`
	Tags       Tags   `json:"tags"`
	Status     string `json:"status"     validate:"omitempty,oneof=draft published"`
	CoverImage string `json:"coverImage" validate:"omitempty,url"`
}

type UpdateBlogRequest struct {
	Title      *string `json:"title,omitempty"      validate:"omitempty,min=1,max=200"`
	Content    *string `json:"content,omitempty"    validate:"omitempty,min=1"`
	Category   *string `json:"category,omitempty"   validate:"omitempty,oneof=All Technology Health Lifestyle Education Entertainment"`
	Tags       *Tags   `json:"tags,omitempty"`
	Status     *string `json:"status,omitempty"     validate:"omitempty,oneof=draft published"`
	CoverImage *string `json:"coverImage,omitempty" validate:"omitempty,url"`
}

type ListParams struct {
	Page          int
	PageSize      int
	Category      string
	AuthorID      string
	PublishedOnly bool
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 10
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	if p.Category == CategoryAll {
		p.Category = ""
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type AuthorResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"profile_avatar"`
}

type BlogResponse struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Content     string          `json:"content"`
	Tags        []string        `json:"tags"`
	CoverImage  string          `json:"coverImage"`
	Slug        string          `json:"slug"`
	Category    string          `json:"category"`
	Status      string          `json:"status"`
	IsPublished bool            `json:"isPublished"`
	PublishedAt *time.Time      `json:"publishedAt"`
	ViewCount   int64           `json:"viewCount"`
	Author      *AuthorResponse `json:"author"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func ToBlogResponse(b *Blog, author *AuthorResponse) BlogResponse {
	tags := []string(b.Tags)
	if tags == nil {
		tags = []string{}
	}

	return BlogResponse{
		ID:          b.ID,
		Title:       b.Title,
		Content:     b.Content,
		Tags:        tags,
		CoverImage:  b.CoverImage,
		Slug:        b.Slug,
		Category:    b.Category,
		Status:      b.Status,
		IsPublished: b.IsPublished,
		PublishedAt: b.PublishedAt,
		ViewCount:   b.ViewCount,
		Author:      author,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}
