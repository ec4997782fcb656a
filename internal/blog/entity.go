// AngelaMos | 2026
// entity.go

package blog

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

const (
	CategoryAll           = "All"
	CategoryTechnology    = "Technology"
	CategoryHealth        = "Health"
	CategoryLifestyle     = "Lifestyle"
	CategoryEducation     = "Education"
	CategoryEntertainment = "Entertainment"
)

type Blog struct {
	ID          string     `db:"id"`
	Title       string     `db:"title"`
	Content     string     `db:"content"`
	Tags        Tags       `db:"tags"`
	CoverImage  string     `db:"cover_image"`
	Slug        string     `db:"slug"`
	Category    string     `db:"category"`
	Status      string     `db:"status"`
	IsPublished bool       `db:"is_published"`
	PublishedAt *time.Time `db:"published_at"`
	ViewCount   int64      `db:"view_count"`
	AuthorID    string     `db:"author_id"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

func (b *Blog) OwnedBy(userID string) bool {
	return userID != "" && b.AuthorID == userID
}

// SetStatus moves the blog between draft and published. Publishing an
// already published blog keeps its original publish time.
func (b *Blog) SetStatus(status string, now time.Time) {
	switch status {
	case StatusPublished:
		if !b.IsPublished || b.PublishedAt == nil {
			b.PublishedAt = &now
		}
		b.IsPublished = true
	case StatusDraft:
		b.IsPublished = false
		b.PublishedAt = nil
	default:
		return
	}
	b.Status = status
}

// Tags is stored as a JSON array in Postgres.
type Tags []string

func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}

func (t *Tags) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan tags: unsupported type %T", src)
	}

	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return fmt.Errorf("scan tags: %w", err)
	}
	*t = tags
	return nil
}

// UnmarshalJSON accepts either an array of tags or a single comma separated
// string.
func (t *Tags) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = cleanTags(list)
		return nil
	}

	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("tags must be an array or a comma separated string")
	}
	*t = cleanTags(strings.Split(joined, ","))
	return nil
}

func cleanTags(in []string) Tags {
	out := make(Tags, 0, len(in))
	for _, tag := range in {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

var (
	slugSpaces  = regexp.MustCompile(`\s+`)
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// NormalizeSlug lowercases s, turns whitespace runs into dashes, drops
// anything outside [a-z0-9-] and collapses repeated dashes.
func NormalizeSlug(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugInvalid.ReplaceAllString(s, "")
	return slugDashes.ReplaceAllString(s, "-")
}
