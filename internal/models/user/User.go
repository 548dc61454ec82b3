package user

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a user in the system. Email is the user's identifier and is unique across the collection.
// Password is stored exactly as given; hashing happens before a User reaches the UserManager.
type User struct {
	ID          primitive.ObjectID     `bson:"_id,omitempty" json:"-"`
	Name        string                 `bson:"name" json:"name"`
	Email       string                 `bson:"email" json:"email"`
	Password    string                 `bson:"password" json:"-"`
	Preferences map[string]interface{} `bson:"preferences,omitempty" json:"preferences,omitempty"`
}
