// AngelaMos | 2026
// mongo_repository.go

package blog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/carterperez-dev/insighta/internal/core"
)

type blogDocument struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	Title       string        `bson:"title"`
	Content     string        `bson:"content"`
	Tags        []string      `bson:"tags"`
	CoverImage  string        `bson:"CoverImage"`
	Slug        string        `bson:"slug"`
	Category    string        `bson:"category"`
	Status      string        `bson:"status"`
	IsPublished bool          `bson:"isPublished"`
	PublishedAt *time.Time    `bson:"publishedAt"`
	ViewCount   int64         `bson:"viewCount"`
	Author      bson.ObjectID `bson:"author"`
	CreatedAt   time.Time     `bson:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt"`
}

func (d *blogDocument) toBlog() *Blog {
	tags := Tags(d.Tags)
	if tags == nil {
		tags = Tags{}
	}

	return &Blog{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Content:     d.Content,
		Tags:        tags,
		CoverImage:  d.CoverImage,
		Slug:        d.Slug,
		Category:    d.Category,
		Status:      d.Status,
		IsPublished: d.IsPublished,
		PublishedAt: d.PublishedAt,
		ViewCount:   d.ViewCount,
		AuthorID:    d.Author.Hex(),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type mongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{
		coll: db.Collection(core.BlogsCollection),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *mongoRepository) Create(ctx context.Context, blog *Blog) error {
	author, err := bson.ObjectIDFromHex(blog.AuthorID)
	if err != nil {
		return fmt.Errorf("create blog: author: %w", core.ErrInvalidInput)
	}

	now := r.now()
	blog.CreatedAt = now
	blog.UpdatedAt = now

	tags := []string(blog.Tags)
	if tags == nil {
		tags = []string{}
	}

	doc := &blogDocument{
		ID:          bson.NewObjectID(),
		Title:       blog.Title,
		Content:     blog.Content,
		Tags:        tags,
		CoverImage:  blog.CoverImage,
		Slug:        blog.Slug,
		Category:    blog.Category,
		Status:      blog.Status,
		IsPublished: blog.IsPublished,
		PublishedAt: blog.PublishedAt,
		Author:      author,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create blog: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create blog: %w", err)
	}

	blog.ID = doc.ID.Hex()
	return nil
}

func (r *mongoRepository) GetByID(ctx context.Context, id string) (*Blog, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("get blog: %w", core.ErrNotFound)
	}
	return r.findOne(ctx, "get blog", bson.D{{Key: "_id", Value: oid}})
}

func (r *mongoRepository) GetBySlug(ctx context.Context, slug string) (*Blog, error) {
	return r.findOne(ctx, "get blog by slug", bson.D{{Key: "slug", Value: slug}})
}

func (r *mongoRepository) findOne(ctx context.Context, op string, filter bson.D) (*Blog, error) {
	var doc blogDocument
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toBlog(), nil
}

func (r *mongoRepository) Update(ctx context.Context, blog *Blog) error {
	filter, err := ownedFilter(blog.ID, blog.AuthorID)
	if err != nil {
		return fmt.Errorf("update blog: %w", err)
	}

	now := r.now()
	tags := []string(blog.Tags)
	if tags == nil {
		tags = []string{}
	}

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "title", Value: blog.Title},
		{Key: "content", Value: blog.Content},
		{Key: "tags", Value: tags},
		{Key: "CoverImage", Value: blog.CoverImage},
		{Key: "category", Value: blog.Category},
		{Key: "status", Value: blog.Status},
		{Key: "isPublished", Value: blog.IsPublished},
		{Key: "publishedAt", Value: blog.PublishedAt},
		{Key: "updatedAt", Value: now},
	}}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update blog: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update blog: %w", core.ErrNotFound)
	}

	blog.UpdatedAt = now
	return nil
}

func (r *mongoRepository) Delete(ctx context.Context, id, authorID string) error {
	filter, err := ownedFilter(id, authorID)
	if err != nil {
		return fmt.Errorf("delete blog: %w", err)
	}

	res, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete blog: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete blog: %w", core.ErrNotFound)
	}

	return nil
}

func (r *mongoRepository) List(
	ctx context.Context,
	params ListParams,
) ([]Blog, int, error) {
	params.Normalize()

	filter, ok := listFilter(params)
	if !ok {
		return []Blog{}, 0, nil
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count blogs: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(params.Offset())).
		SetLimit(int64(params.PageSize))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list blogs: %w", err)
	}

	var docs []blogDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("list blogs: %w", err)
	}

	blogs := make([]Blog, 0, len(docs))
	for i := range docs {
		blogs = append(blogs, *docs[i].toBlog())
	}

	return blogs, int(total), nil
}

// TogglePublish uses a pipeline update so the new values are computed from
// the stored flag inside the same write.
func (r *mongoRepository) TogglePublish(
	ctx context.Context,
	id string,
	now time.Time,
) (*Blog, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("toggle publish: %w", core.ErrNotFound)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc blogDocument
	err = r.coll.FindOneAndUpdate(
		ctx,
		bson.D{{Key: "_id", Value: oid}},
		togglePipeline(now),
		opts,
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("toggle publish: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("toggle publish: %w", err)
	}

	return doc.toBlog(), nil
}

func (r *mongoRepository) IncrementViews(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("increment views: %w", core.ErrNotFound)
	}

	_, err = r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "viewCount", Value: 1}}}},
	)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}

func ownedFilter(id, authorID string) (bson.D, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, core.ErrNotFound
	}
	author, err := bson.ObjectIDFromHex(authorID)
	if err != nil {
		return nil, core.ErrNotFound
	}
	return bson.D{{Key: "_id", Value: oid}, {Key: "author", Value: author}}, nil
}

// listFilter reports false when the filter can match nothing.
func listFilter(params ListParams) (bson.D, bool) {
	filter := bson.D{}

	if params.PublishedOnly {
		filter = append(filter, bson.E{Key: "isPublished", Value: true})
	}

	if params.AuthorID != "" {
		author, err := bson.ObjectIDFromHex(params.AuthorID)
		if err != nil {
			return nil, false
		}
		filter = append(filter, bson.E{Key: "author", Value: author})
	}

	if params.Category != "" {
		filter = append(filter, bson.E{Key: "category", Value: params.Category})
	}

	return filter, true
}

func togglePipeline(now time.Time) bson.A {
	return bson.A{
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "isPublished", Value: bson.D{{Key: "$not", Value: bson.A{"$isPublished"}}}},
			{Key: "status", Value: bson.D{{Key: "$cond", Value: bson.A{
				"$isPublished", StatusDraft, StatusPublished,
			}}}},
			{Key: "publishedAt", Value: bson.D{{Key: "$cond", Value: bson.A{
				"$isPublished", nil, now,
			}}}},
			{Key: "updatedAt", Value: now},
		}}},
	}
}
