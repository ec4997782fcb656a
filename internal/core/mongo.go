// AngelaMos | 2026
// mongo.go

package core

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/carterperez-dev/insighta/internal/config"
)

const (
	UsersCollection = "users"
	BlogsCollection = "blogs"
)

type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
}

func NewMongo(ctx context.Context, cfg config.MongoConfig) (*Mongo, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetTimeout(cfg.Timeout)

	if cfg.MaxPool > 0 {
		opts.SetMaxPoolSize(cfg.MaxPool)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx) //nolint:errcheck // cleanup on connection failure
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Mongo{
		Client: client,
		DB:     client.Database(cfg.Database),
	}, nil
}

// EnsureIndexes creates the unique indexes the repositories rely on for
// email and slug uniqueness.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("email_unique"),
			},
			{
				Keys: bson.D{{Key: "createdAt", Value: -1}},
			},
		},
		BlogsCollection: {
			{
				Keys:    bson.D{{Key: "slug", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("slug_unique"),
			},
			{
				Keys: bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}},
			},
			{
				Keys: bson.D{{Key: "isPublished", Value: 1}, {Key: "publishedAt", Value: -1}},
			},
		},
	}

	for name, models := range indexes {
		if _, err := m.DB.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}

	return nil
}

func (m *Mongo) Driver() string {
	return config.DriverMongo
}

func (m *Mongo) Close(ctx context.Context) error {
	if m.Client != nil {
		return m.Client.Disconnect(ctx)
	}
	return nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := m.Client.Ping(pingCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping failed: %w", err)
	}

	return nil
}

type MongoStats struct {
	Collections int64   `bson:"collections" json:"collections"`
	Objects     int64   `bson:"objects"     json:"objects"`
	DataSize    float64 `bson:"dataSize"    json:"data_size"`
	StorageSize float64 `bson:"storageSize" json:"storage_size"`
	Indexes     int64   `bson:"indexes"     json:"indexes"`
	IndexSize   float64 `bson:"indexSize"   json:"index_size"`
}

func (m *Mongo) Stats(ctx context.Context) (any, error) {
	var stats MongoStats
	err := m.DB.RunCommand(ctx, bson.D{{Key: "dbStats", Value: 1}}).Decode(&stats)
	if err != nil {
		return nil, fmt.Errorf("mongo dbStats: %w", err)
	}
	return &stats, nil
}
