// AngelaMos | 2026
// service_test.go

package blog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/insighta/internal/core"
	"github.com/carterperez-dev/insighta/internal/user"
)

type memRepository struct {
	mu       sync.Mutex
	blogs    map[string]*Blog
	seq      int
	viewErr  error
	clockSeq time.Time
}

func newMemRepository() *memRepository {
	return &memRepository{
		blogs:    make(map[string]*Blog),
		clockSeq: time.Now(),
	}
}

func (m *memRepository) Create(_ context.Context, b *Blog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.blogs {
		if existing.Slug == b.Slug {
			return fmt.Errorf("create blog: %w", core.ErrDuplicateKey)
		}
	}

	m.seq++
	m.clockSeq = m.clockSeq.Add(time.Second)
	b.ID = fmt.Sprintf("blog-%d", m.seq)
	b.CreatedAt = m.clockSeq
	b.UpdatedAt = m.clockSeq

	stored := *b
	m.blogs[b.ID] = &stored
	return nil
}

func (m *memRepository) get(id string) (*Blog, error) {
	b, ok := m.blogs[id]
	if !ok {
		return nil, fmt.Errorf("get blog: %w", core.ErrNotFound)
	}
	out := *b
	return &out, nil
}

func (m *memRepository) GetByID(_ context.Context, id string) (*Blog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id)
}

func (m *memRepository) GetBySlug(_ context.Context, slug string) (*Blog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, b := range m.blogs {
		if b.Slug == slug {
			return m.get(id)
		}
	}
	return nil, fmt.Errorf("get blog by slug: %w", core.ErrNotFound)
}

func (m *memRepository) Update(_ context.Context, b *Blog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.blogs[b.ID]
	if !ok || existing.AuthorID != b.AuthorID {
		return fmt.Errorf("update blog: %w", core.ErrNotFound)
	}

	b.UpdatedAt = time.Now()
	stored := *b
	m.blogs[b.ID] = &stored
	return nil
}

func (m *memRepository) Delete(_ context.Context, id, authorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.blogs[id]
	if !ok || existing.AuthorID != authorID {
		return fmt.Errorf("delete blog: %w", core.ErrNotFound)
	}
	delete(m.blogs, id)
	return nil
}

func (m *memRepository) List(_ context.Context, params ListParams) ([]Blog, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	params.Normalize()

	var matched []Blog
	for _, b := range m.blogs {
		if params.PublishedOnly && !b.IsPublished {
			continue
		}
		if params.AuthorID != "" && b.AuthorID != params.AuthorID {
			continue
		}
		if params.Category != "" && b.Category != params.Category {
			continue
		}
		matched = append(matched, *b)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := min(params.Offset(), total)
	end := min(start+params.PageSize, total)
	return matched[start:end], total, nil
}

func (m *memRepository) TogglePublish(_ context.Context, id string, now time.Time) (*Blog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.blogs[id]
	if !ok {
		return nil, fmt.Errorf("toggle publish: %w", core.ErrNotFound)
	}

	if b.IsPublished {
		b.IsPublished = false
		b.Status = StatusDraft
		b.PublishedAt = nil
	} else {
		b.IsPublished = true
		b.Status = StatusPublished
		b.PublishedAt = &now
	}
	return m.get(id)
}

func (m *memRepository) IncrementViews(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.viewErr != nil {
		return m.viewErr
	}
	b, ok := m.blogs[id]
	if !ok {
		return fmt.Errorf("increment views: %w", core.ErrNotFound)
	}
	b.ViewCount++
	return nil
}

type fakeAuthors map[string]*user.User

func (f fakeAuthors) GetUser(_ context.Context, id string) (*user.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
}

type testEnv struct {
	svc  *Service
	repo *memRepository
	now  time.Time
}

func newTestEnv() *testEnv {
	repo := newMemRepository()
	authors := fakeAuthors{
		"author-1": {ID: "author-1", Username: "ada", Email: "ada@example.com"},
		"author-2": {ID: "author-2", Username: "grace", Email: "grace@example.com"},
	}

	env := &testEnv{
		repo: repo,
		now:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	env.svc = NewService(repo, authors, slog.New(slog.NewTextHandler(io.Discard, nil)))
	env.svc.now = func() time.Time { return env.now }
	return env
}

func TestCreateNormalisesSlug(t *testing.T) {
	env := newTestEnv()

	b, err := env.svc.Create(context.Background(), "author-1", CreateBlogRequest{
		Title:   "Hello",
		Content: "body",
		Slug:    "  My First   Post!! ",
	})
	require.NoError(t, err)

	assert.Equal(t, "my-first-post", b.Slug)
	assert.Equal(t, CategoryAll, b.Category)
	assert.Equal(t, StatusDraft, b.Status)
	assert.False(t, b.IsPublished)
	assert.Nil(t, b.PublishedAt)
	assert.NotNil(t, b.Tags)
}

func TestCreateFallsBackToTitleSlug(t *testing.T) {
	env := newTestEnv()

	b, err := env.svc.Create(context.Background(), "author-1", CreateBlogRequest{
		Title:   "Why Go?",
		Content: "body",
	})
	require.NoError(t, err)
	assert.Equal(t, "why-go", b.Slug)

	_, err = env.svc.Create(context.Background(), "author-1", CreateBlogRequest{
		Title:   "???",
		Content: "body",
	})
	assert.ErrorIs(t, err, ErrEmptySlug)
}

func TestCreateDuplicateSlug(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.svc.Create(ctx, "author-1", CreateBlogRequest{Title: "a", Content: "b", Slug: "same"})
	require.NoError(t, err)

	_, err = env.svc.Create(ctx, "author-2", CreateBlogRequest{Title: "a", Content: "b", Slug: "SAME"})
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestCreatePublishedSetsPublishedAt(t *testing.T) {
	env := newTestEnv()

	b, err := env.svc.Create(context.Background(), "author-1", CreateBlogRequest{
		Title:   "Live",
		Content: "body",
		Status:  StatusPublished,
	})
	require.NoError(t, err)

	assert.True(t, b.IsPublished)
	require.NotNil(t, b.PublishedAt)
	assert.Equal(t, env.now, *b.PublishedAt)
}

func TestGetBySlugHidesDraftsFromOthers(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.svc.Create(ctx, "author-1", CreateBlogRequest{Title: "Draft", Content: "b"})
	require.NoError(t, err)

	_, err = env.svc.GetBySlug(ctx, "draft", "author-2", false)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = env.svc.GetBySlug(ctx, "draft", "", false)
	assert.ErrorIs(t, err, core.ErrNotFound)

	b, err := env.svc.GetBySlug(ctx, "draft", "author-1", false)
	require.NoError(t, err)
	assert.Zero(t, b.ViewCount)

	_, err = env.svc.GetBySlug(ctx, "draft", "author-2", true)
	assert.NoError(t, err)
}

func TestGetBySlugCountsViews(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.svc.Create(ctx, "author-1", CreateBlogRequest{
		Title: "Live", Content: "b", Status: StatusPublished,
	})
	require.NoError(t, err)

	b, err := env.svc.GetBySlug(ctx, "Live", "", false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), b.ViewCount)

	env.repo.viewErr = errors.New("store unavailable")
	b, err = env.svc.GetBySlug(ctx, "live", "", false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), b.ViewCount)
}

func TestUpdateOwnerOnly(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.Create(ctx, "author-1", CreateBlogRequest{Title: "Mine", Content: "b"})
	require.NoError(t, err)

	title := "Stolen"
	_, err = env.svc.Update(ctx, "author-2", created.ID, UpdateBlogRequest{Title: &title})
	assert.ErrorIs(t, err, ErrNotOwner)

	stored, err := env.repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mine", stored.Title)

	err = env.svc.Delete(ctx, "author-2", created.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = env.svc.Update(ctx, "author-1", "blog-missing", UpdateBlogRequest{Title: &title})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdateStatusBookkeeping(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.Create(ctx, "author-1", CreateBlogRequest{Title: "Post", Content: "b"})
	require.NoError(t, err)

	published := StatusPublished
	tags := Tags{"go"}
	b, err := env.svc.Update(ctx, "author-1", created.ID, UpdateBlogRequest{
		Status: &published,
		Tags:   &tags,
	})
	require.NoError(t, err)
	assert.True(t, b.IsPublished)
	require.NotNil(t, b.PublishedAt)
	assert.Equal(t, env.now, *b.PublishedAt)
	assert.Equal(t, Tags{"go"}, b.Tags)

	firstPublish := *b.PublishedAt
	env.now = env.now.Add(time.Hour)
	b, err = env.svc.Update(ctx, "author-1", created.ID, UpdateBlogRequest{Status: &published})
	require.NoError(t, err)
	assert.Equal(t, firstPublish, *b.PublishedAt)

	draft := StatusDraft
	b, err = env.svc.Update(ctx, "author-1", created.ID, UpdateBlogRequest{Status: &draft})
	require.NoError(t, err)
	assert.False(t, b.IsPublished)
	assert.Nil(t, b.PublishedAt)
}

func TestUpdateIgnoresBlankFields(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.Create(ctx, "author-1", CreateBlogRequest{Title: "Post", Content: "body"})
	require.NoError(t, err)

	blank := "  "
	empty := ""
	b, err := env.svc.Update(ctx, "author-1", created.ID, UpdateBlogRequest{
		Title:   &blank,
		Content: &empty,
	})
	require.NoError(t, err)
	assert.Equal(t, "Post", b.Title)
	assert.Equal(t, "body", b.Content)
}

func TestDeleteByOwner(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.Create(ctx, "author-1", CreateBlogRequest{Title: "Post", Content: "b"})
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(ctx, "author-1", created.ID))

	_, err = env.svc.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestListPublishedAndByAuthor(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	for i, req := range []CreateBlogRequest{
		{Title: "one", Content: "b", Status: StatusPublished, Category: CategoryHealth},
		{Title: "two", Content: "b", Status: StatusPublished},
		{Title: "three", Content: "b"},
	} {
		author := "author-1"
		if i == 1 {
			author = "author-2"
		}
		_, err := env.svc.Create(ctx, author, req)
		require.NoError(t, err)
	}

	blogs, params, total, err := env.svc.ListPublished(ctx, 0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 10, params.PageSize)
	require.Len(t, blogs, 2)
	assert.Equal(t, "two", blogs[0].Slug)

	_, _, total, err = env.svc.ListPublished(ctx, 1, 10, CategoryHealth)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	_, _, total, err = env.svc.ListPublished(ctx, 1, 10, CategoryAll)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	mine, _, total, err := env.svc.ListByAuthor(ctx, "author-1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, mine, 2)

	_, _, _, err = env.svc.ListByAuthor(ctx, "", 1, 10)
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestTogglePublish(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.Create(ctx, "author-1", CreateBlogRequest{Title: "Post", Content: "b"})
	require.NoError(t, err)

	b, err := env.svc.TogglePublish(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, b.IsPublished)
	assert.Equal(t, StatusPublished, b.Status)
	require.NotNil(t, b.PublishedAt)

	b, err = env.svc.TogglePublish(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, b.IsPublished)
	assert.Equal(t, StatusDraft, b.Status)
	assert.Nil(t, b.PublishedAt)

	_, err = env.svc.TogglePublish(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAuthorsResolvesEachAuthorOnce(t *testing.T) {
	env := newTestEnv()

	authors := env.svc.Authors(context.Background(),
		Blog{AuthorID: "author-1"},
		Blog{AuthorID: "author-1"},
		Blog{AuthorID: "gone"},
	)

	require.Contains(t, authors, "author-1")
	assert.Equal(t, "ada", authors["author-1"].Username)
	assert.Nil(t, authors["gone"])
}

func TestCountBlogs(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.svc.Create(ctx, "author-1", CreateBlogRequest{Title: "draft", Content: "c"})
	require.NoError(t, err)
	_, err = env.svc.Create(ctx, "author-2", CreateBlogRequest{
		Title: "live", Content: "c", Status: StatusPublished,
	})
	require.NoError(t, err)

	all, err := env.svc.CountBlogs(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, all)

	published, err := env.svc.CountBlogs(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, published)
}
