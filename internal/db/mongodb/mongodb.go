// Package mongodb stores users and journal records as documents in MongoDB,
// using the "users" and "records" collections. The client keeps its own
// connection pool; each operation checks a connection out for one command only.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/patric-chuzhbe/moodjournal/internal/models"
	"github.com/patric-chuzhbe/moodjournal/internal/user"
)

const (
	usersCollection   = "users"
	recordsCollection = "records"
)

type MongoDB struct {
	client            *mongo.Client
	users             *mongo.Collection
	records           *mongo.Collection
	connectionTimeout time.Duration
}

// New connects to uri, verifies the primary is reachable and ensures lookup indexes exist.
func New(ctx context.Context, uri, dbName string, connectionTimeout time.Duration) (*MongoDB, error) {
	client, err := mongo.Connect(
		options.Client().
			ApplyURI(uri).
			SetConnectTimeout(connectionTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/mongodb/mongodb.go/New(): error while `mongo.Connect()` calling: %w", err)
	}

	database := client.Database(dbName)
	result := &MongoDB{
		client:            client,
		users:             database.Collection(usersCollection),
		records:           database.Collection(recordsCollection),
		connectionTimeout: connectionTimeout,
	}

	if err := result.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("in internal/db/mongodb/mongodb.go/New(): error while `result.Ping()` calling: %w", err)
	}

	if err := result.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("in internal/db/mongodb/mongodb.go/New(): error while `result.ensureIndexes()` calling: %w", err)
	}

	return result, nil
}

func (db *MongoDB) ensureIndexes(ctx context.Context) error {
	_, err := db.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
	})
	if err != nil {
		return err
	}

	_, err = db.records.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdDate", Value: -1}},
	})

	return err
}

func (db *MongoDB) CreateUser(ctx context.Context, usr *user.User) error {
	if _, err := db.users.InsertOne(ctx, usr); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// GetUserByEmail returns the earliest registered user with exactly this email.
func (db *MongoDB) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	usr := &user.User{}
	err := db.users.FindOne(
		ctx,
		bson.D{{Key: "email", Value: email}},
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}}),
	).Decode(usr)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return usr, nil
}

func (db *MongoDB) InsertRecord(ctx context.Context, record *models.Record) error {
	if _, err := db.records.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// GetUserRecords streams the user's records from a cursor sorted by createdDate descending.
func (db *MongoDB) GetUserRecords(ctx context.Context, userID string) (models.Records, error) {
	cursor, err := db.records.Find(
		ctx,
		bson.D{{Key: "userId", Value: userID}},
		options.Find().SetSort(bson.D{{Key: "createdDate", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer cursor.Close(ctx)

	result := models.Records{}
	for cursor.Next(ctx) {
		var record models.Record
		if err := cursor.Decode(&record); err != nil {
			return nil, err
		}
		result = append(result, record)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (db *MongoDB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.client.Ping(ctx, readpref.Primary())
}

func (db *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), db.connectionTimeout)
	defer cancel()

	return db.client.Disconnect(ctx)
}
