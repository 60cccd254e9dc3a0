package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ConnectMongo opens a client and verifies it with a ping, like Connect does for Postgres.
func ConnectMongo(uri, database string, timeout time.Duration) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(25).
		SetMaxConnIdleTime(5 * time.Minute)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping mongo within %v: %w", timeout, err)
	}

	return client, client.Database(database), nil
}

// MongoPinger adapts a mongo client to the PingContext shape *sql.DB has.
type MongoPinger struct {
	Client *mongo.Client
}

func (p MongoPinger) PingContext(ctx context.Context) error {
	return p.Client.Ping(ctx, readpref.Primary())
}
