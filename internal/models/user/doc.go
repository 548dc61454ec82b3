// Package user contains the implementation of interacting with the MongoDB users collection.
// The UserManager struct is responsible for interacting with the MongoDB users collection. It is CRUD for the user collection,
// keyed by email. Deleting a user cascades to the user's sessions through the session.SessionManager.
// The User struct is used to represent a user and their preferences. BSON is used to interact with the database.
package user
