// This file contains the UserManager implementation, which is responsible for interacting with the MongoDB users collection.
// The UserManager struct contains a pointer to the <database>.users MongoDB collection, the SessionManager used to cascade
// deletions, and a logger. Interaction with users is always by email, which is enforced unique by the email_unique index.
// The only field that can be updated after creation is preferences, and it is always replaced as a whole.

package user

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mflix/webserver/internal/log"
	"github.com/mflix/webserver/internal/models/dberr"
	"github.com/mflix/webserver/internal/models/session"
)

// CollectionName is the name of the MongoDB collection holding users.
const CollectionName = "users"

type UserManager struct {
	client        *mongo.Client
	collection    *mongo.Collection
	sessions      *session.SessionManager
	transactional bool
	logger        *log.Logger
}

// Option configures a UserManager.
type Option func(*UserManager)

// WithTransactions makes DeleteUser remove the user and its sessions in a single multi-document transaction.
// Requires a replica set or sharded cluster.
func WithTransactions() Option {
	return func(um *UserManager) {
		um.transactional = true
	}
}

// NewUserManager creates a new instance of UserManager on the given database.
func NewUserManager(client *mongo.Client, database string, sessions *session.SessionManager, logger *log.Logger, opts ...Option) *UserManager {
	db := client.Database(database)
	um := &UserManager{
		client:     client,
		collection: db.Collection(CollectionName),
		sessions:   sessions,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(um)
	}
	return um
}

// EnsureIndexes creates the unique email index AddUser relies on to detect duplicates.
func (um *UserManager) EnsureIndexes(ctx context.Context) error {
	_, err := um.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("email_unique").SetUnique(true),
	})
	if err != nil {
		return dberr.FromMongo("EnsureIndexes", CollectionName, err)
	}
	return nil
}

// AddUser inserts a new user document.
// Returns a dberr conflict if a user with the same email already exists. There is no pre-check: the duplicate
// is detected from the insert failing on the email index.
func (um *UserManager) AddUser(ctx context.Context, user *User) error {
	if user == nil {
		return dberr.Validation("AddUser", "", "user is required")
	}
	if user.Email == "" {
		return dberr.Validation("AddUser", "", "email is required")
	}

	result, err := um.collection.InsertOne(ctx, user)
	if err != nil {
		err = dberr.FromMongo("AddUser", user.Email, err)
		if errors.Is(err, dberr.ErrConflict) {
			um.logger.Infof("User already exists with email %s", user.Email)
		} else {
			um.logger.Errorf("Failed to insert user %s: %v", user.Email, err)
		}
		return err
	}

	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		user.ID = id
	}
	um.logger.Infof("User %s added", user.Email)
	return nil
}

// GetUser retrieves the user with the given email.
// Returns nil, nil if no such user exists; only a failing query is an error.
func (um *UserManager) GetUser(ctx context.Context, email string) (*User, error) {
	var user User
	err := um.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		um.logger.Errorf("Failed to look up user %s: %v", email, err)
		return nil, dberr.FromMongo("GetUser", email, err)
	}
	return &user, nil
}

// DeleteUser deletes every session of the user, then the user document itself.
// Deleting a user that does not exist is not an error.
//
// Without WithTransactions the two deletes are independent. A failure between them leaves the user without
// sessions; calling DeleteUser again completes the removal.
func (um *UserManager) DeleteUser(ctx context.Context, email string) error {
	if !um.transactional {
		return um.deleteCascade(ctx, email)
	}

	sess, err := um.client.StartSession()
	if err != nil {
		return dberr.FromMongo("DeleteUser", email, err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, um.deleteCascade(sc, email)
	})
	if err != nil {
		return dberr.FromMongo("DeleteUser", email, err)
	}
	return nil
}

func (um *UserManager) deleteCascade(ctx context.Context, email string) error {
	if err := um.sessions.DeleteSessions(ctx, email); err != nil {
		return dberr.FromMongo("DeleteUser", email, err)
	}

	result, err := um.collection.DeleteMany(ctx, bson.M{"email": email})
	if err != nil {
		um.logger.Errorf("Failed to delete user %s: %v", email, err)
		return dberr.FromMongo("DeleteUser", email, err)
	}

	um.logger.Infof("Deleted %d user document(s) for %s", result.DeletedCount, email)
	return nil
}

// UpdateUserPreferences replaces the preferences of the user with the given email. The stored map is overwritten,
// never merged. A nil map is rejected before touching the database; an empty map clears the preferences.
// An update that modifies nothing (unknown email, or identical preferences) is logged and still reported as success.
func (um *UserManager) UpdateUserPreferences(ctx context.Context, email string, preferences map[string]interface{}) error {
	if preferences == nil {
		return dberr.Validation("UpdateUserPreferences", email, "preferences cannot be set to null")
	}

	result, err := um.collection.UpdateOne(
		ctx,
		bson.M{"email": email},
		bson.M{"$set": bson.M{"preferences": preferences}},
	)
	if err != nil {
		um.logger.Errorf("Failed to update preferences of user %s: %v", email, err)
		return dberr.FromMongo("UpdateUserPreferences", email, err)
	}

	if result.ModifiedCount < 1 {
		um.logger.Warnf("User `%s` was not updated. Trying to re-write the same `preferences` field: `%v`", email, preferences)
	}
	return nil
}
