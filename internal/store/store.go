// Package store is the persistent collaborator: templates, active orders,
// settings, and positions in MongoDB. The core consumes it as a repository
// of value objects; schema details stay here.
package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const defaultDatabase = "tradedesk"

// Store wraps the MongoDB client and database.
type Store struct {
	log    zerolog.Logger
	client *mongo.Client
	db     *mongo.Database
}

// New connects to MongoDB and returns a Store. The URI should include the
// database name (e.g. mongodb://localhost:27017/tradedesk); without one,
// "tradedesk" is used.
func New(ctx context.Context, uri string, log zerolog.Logger) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	dbName := defaultDatabase
	if u, err := url.Parse(uri); err == nil {
		if name := strings.TrimPrefix(u.Path, "/"); name != "" {
			dbName = name
		}
	}

	log = log.With().Str("component", "store").Logger()
	log.Info().Str("db", dbName).Msg("connected to MongoDB")
	return &Store{log: log, client: client, db: client.Database(dbName)}, nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) {
	s.client.Disconnect(ctx)
}

// DB returns the underlying mongo.Database.
func (s *Store) DB() *mongo.Database {
	return s.db
}

// Migrate creates indexes and seeds default settings.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.ensureIndexes(ctx); err != nil {
		return err
	}
	return s.seedDefaultSettings(ctx)
}
