// Package session contains the implementation of interacting with the MongoDB sessions collection.
// The SessionManager struct is responsible for creating, reading and deleting sessions. Sessions are looked up
// by user_id (the user's email) or by the jwt they were issued for. The jwt field carries a unique index,
// so inserting a session for an already stored token fails with a dberr conflict.
package session
