// Package mongodb implements the credential store on MongoDB.
//
// Each user is one document; reset and verification state live in optional
// sub-documents so a single UpdateOne can guard and swap them atomically.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const ColUsers = "users"

// Store owns the client and database handle.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects, pings and ensures indexes.
//
// uri: e.g. "mongodb://localhost:27017"
func NewStore(ctx context.Context, uri, dbName string, logger *logrus.Logger) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	s := &Store{client: client, db: client.Database(dbName)}
	if err := s.ensureIndexes(pingCtx); err != nil && logger != nil {
		logger.WithError(err).Warn("mongo: ensure indexes failed")
	}
	return s, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		// empty phones belong to pending records and must not collide
		{
			Keys: bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "phone", Value: bson.D{{Key: "$type", Value: "string"}, {Key: "$gt", Value: ""}}}}),
		},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "reset.secret_hash", Value: 1}}, Options: options.Index().SetSparse(true)},
	}
	if _, err := s.col(ColUsers).Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create indexes on %s: %w", ColUsers, err)
	}
	return nil
}
