// This file contains the SessionManager implementation, which is responsible for interacting with the MongoDB sessions collection.
// The SessionManager struct contains a pointer to the <database>.sessions MongoDB collection and a logger. It provides methods to
// create, get and delete sessions. There is no update: a session is either present or absent, and expiry is left to the token itself.

package session

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mflix/webserver/internal/log"
	"github.com/mflix/webserver/internal/models/dberr"
)

// CollectionName is the name of the MongoDB collection holding sessions.
const CollectionName = "sessions"

type SessionManager struct {
	collection *mongo.Collection
	logger     *log.Logger
}

// NewSessionManager creates a new instance of SessionManager on the given database.
func NewSessionManager(client *mongo.Client, database string, logger *log.Logger) *SessionManager {
	db := client.Database(database)
	return &SessionManager{
		collection: db.Collection(CollectionName),
		logger:     logger,
	}
}

// EnsureIndexes creates the unique jwt index and the user_id lookup index. Safe to call on every startup.
func (sm *SessionManager) EnsureIndexes(ctx context.Context) error {
	_, err := sm.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "jwt", Value: 1}},
			Options: options.Index().SetName("jwt_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("user_id"),
		},
	})
	if err != nil {
		return dberr.FromMongo("EnsureIndexes", CollectionName, err)
	}
	return nil
}

// CreateSession inserts a new session document for userID and jwt.
// Returns a dberr conflict if a session for jwt already exists, or a transient error for any other insert failure.
func (sm *SessionManager) CreateSession(ctx context.Context, userID, jwt string) error {
	if userID == "" {
		return dberr.Validation("CreateSession", userID, "user id is required")
	}
	if jwt == "" {
		return dberr.Validation("CreateSession", userID, "jwt is required")
	}

	_, err := sm.collection.InsertOne(ctx, &Session{UserID: userID, JWT: jwt})
	if err != nil {
		err = dberr.FromMongo("CreateSession", userID, err)
		if errors.Is(err, dberr.ErrConflict) {
			sm.logger.Infof("Session for user %s already exists for this token", userID)
		} else {
			sm.logger.Errorf("Failed to create session for user %s: %v", userID, err)
		}
		return err
	}

	sm.logger.Debugf("Session created for user %s", userID)
	return nil
}

// GetSession returns the most recently created session of userID.
// Returns nil, nil if the user has no session.
func (sm *SessionManager) GetSession(ctx context.Context, userID string) (*Session, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})
	return sm.findOne(ctx, "GetSession", userID, bson.M{"user_id": userID}, opts)
}

// GetSessionByJWT returns the session issued for jwt, or nil, nil if it does not exist (never issued, or logged out).
func (sm *SessionManager) GetSessionByJWT(ctx context.Context, jwt string) (*Session, error) {
	return sm.findOne(ctx, "GetSessionByJWT", "", bson.M{"jwt": jwt})
}

func (sm *SessionManager) findOne(ctx context.Context, op, key string, filter bson.M, opts ...*options.FindOneOptions) (*Session, error) {
	var session Session
	err := sm.collection.FindOne(ctx, filter, opts...).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		sm.logger.Errorf("%s failed for %q: %v", op, key, err)
		return nil, dberr.FromMongo(op, key, err)
	}
	return &session, nil
}

// DeleteSessions deletes every session of userID. Deleting zero sessions is not an error, so the call is idempotent.
func (sm *SessionManager) DeleteSessions(ctx context.Context, userID string) error {
	result, err := sm.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		sm.logger.Errorf("Failed to delete sessions of user %s: %v", userID, err)
		return dberr.FromMongo("DeleteSessions", userID, err)
	}

	sm.logger.Debugf("Deleted %d session(s) of user %s", result.DeletedCount, userID)
	return nil
}
