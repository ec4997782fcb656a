// AngelaMos | 2026
// repository_test.go

package blog

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/carterperez-dev/insighta/internal/core"
)

const (
	testBlogID   = "0d7c8a0e-3b52-4d2e-9f21-6a0c5e4b7f11"
	testAuthorID = "7b5f9a52-6f0e-4d7c-9d0b-2f3c1e8a4b10"
)

var blogColumnNames = []string{
	"id", "title", "content", "tags", "cover_image", "slug", "category",
	"status", "is_published", "published_at", "view_count", "author_id",
	"created_at", "updated_at",
}

func newPostgresRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewPostgresRepository(sqlx.NewDb(db, "pgx")), mock
}

func TestPostgresCreateDuplicateSlug(t *testing.T) {
	repo, mock := newPostgresRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO blogs")).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &Blog{
		Title:    "t",
		Slug:     "taken",
		AuthorID: testAuthorID,
	})
	assert.ErrorIs(t, err, core.ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateStoresTagsAsJSON(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO blogs")).
		WithArgs(
			sqlmock.AnyArg(), "Title", "Body", []byte(`["go","sql"]`), "", "title",
			CategoryAll, StatusDraft, false, sqlmock.AnyArg(), testAuthorID,
		).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	b := &Blog{
		Title:    "Title",
		Content:  "Body",
		Tags:     Tags{"go", "sql"},
		Slug:     "title",
		Category: CategoryAll,
		Status:   StatusDraft,
		AuthorID: testAuthorID,
	}
	require.NoError(t, repo.Create(context.Background(), b))
	assert.True(t, validUUID(b.ID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetBySlugScansTags(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM blogs WHERE slug = $1")).
		WithArgs("hello").
		WillReturnRows(sqlmock.NewRows(blogColumnNames).AddRow(
			testBlogID, "Hello", "Body", []byte(`["a","b"]`), "", "hello", CategoryAll,
			StatusPublished, true, now, int64(3), testAuthorID, now, now,
		))

	b, err := repo.GetBySlug(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, Tags{"a", "b"}, b.Tags)
	assert.Equal(t, int64(3), b.ViewCount)
	require.NotNil(t, b.PublishedAt)
}

func TestPostgresUpdateRequiresOwner(t *testing.T) {
	repo, mock := newPostgresRepo(t)

	mock.ExpectQuery(`UPDATE blogs.*WHERE id = \$1 AND author_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))

	err := repo.Update(context.Background(), &Blog{ID: testBlogID, AuthorID: testAuthorID})
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTogglePublishIsSingleStatement(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	now := time.Now()

	mock.ExpectQuery(`SET is_published = NOT is_published`).
		WithArgs(testBlogID, now).
		WillReturnRows(sqlmock.NewRows(blogColumnNames).AddRow(
			testBlogID, "Hello", "Body", []byte(`[]`), "", "hello", CategoryAll,
			StatusPublished, true, now, int64(0), testAuthorID, now, now,
		))

	b, err := repo.TogglePublish(context.Background(), testBlogID, now)
	require.NoError(t, err)
	assert.True(t, b.IsPublished)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListPublishedByCategory(t *testing.T) {
	repo, mock := newPostgresRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM blogs WHERE TRUE AND is_published = TRUE AND category = $1")).
		WithArgs(CategoryHealth).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	mock.ExpectQuery(`LIMIT \$2 OFFSET \$3`).
		WithArgs(CategoryHealth, 10, 0).
		WillReturnRows(sqlmock.NewRows(blogColumnNames))

	blogs, total, err := repo.List(context.Background(), ListParams{
		Category:      CategoryHealth,
		PublishedOnly: true,
	})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, blogs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteMalformedIDSkipsQuery(t *testing.T) {
	repo, mock := newPostgresRepo(t)

	err := repo.Delete(context.Background(), "blog-1", testAuthorID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMongoListFilter(t *testing.T) {
	author := bson.NewObjectID()

	filter, ok := listFilter(ListParams{
		PublishedOnly: true,
		AuthorID:      author.Hex(),
		Category:      CategoryHealth,
	})
	require.True(t, ok)
	assert.Equal(t, bson.D{
		{Key: "isPublished", Value: true},
		{Key: "author", Value: author},
		{Key: "category", Value: CategoryHealth},
	}, filter)

	_, ok = listFilter(ListParams{AuthorID: "not-an-object-id"})
	assert.False(t, ok)
}

func TestMongoOwnedFilter(t *testing.T) {
	id := bson.NewObjectID()
	author := bson.NewObjectID()

	filter, err := ownedFilter(id.Hex(), author.Hex())
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "_id", Value: id}, {Key: "author", Value: author}}, filter)

	_, err = ownedFilter("bad", author.Hex())
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMongoTogglePipelineReadsStoredFlag(t *testing.T) {
	now := time.Now().UTC()
	pipeline := togglePipeline(now)

	require.Len(t, pipeline, 1)
	stage, ok := pipeline[0].(bson.D)
	require.True(t, ok)
	require.Equal(t, "$set", stage[0].Key)

	set, ok := stage[0].Value.(bson.D)
	require.True(t, ok)

	fields := make(map[string]any, len(set))
	for _, e := range set {
		fields[e.Key] = e.Value
	}

	assert.Equal(t, bson.D{{Key: "$not", Value: bson.A{"$isPublished"}}}, fields["isPublished"])
	assert.Equal(t, bson.D{{Key: "$cond", Value: bson.A{"$isPublished", nil, now}}}, fields["publishedAt"])
	assert.Equal(t, now, fields["updatedAt"])
}
