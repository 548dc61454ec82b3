// This file contains the Session struct. A Session is the server-side record of an issued JWT.
// Sessions reference users by user_id (the user's email) but are not owned by the user document;
// a user may have zero or more live sessions.

package session

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session represents a login session stored in the sessions collection.
type Session struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID string             `bson:"user_id" json:"user_id"`
	JWT    string             `bson:"jwt" json:"jwt"`
}

// CreatedAt returns the creation time embedded in the session's ObjectID.
func (s *Session) CreatedAt() time.Time {
	return s.ID.Timestamp()
}
