// Package dberr defines the error kinds returned by the MongoDB managers.
// Every manager method that talks to the database returns either nil or an *Error carrying the operation name,
// the offending key (email or user id) and one of a closed set of kinds. Callers branch on the kind with errors.Is:
//
//	if errors.Is(err, dberr.ErrConflict) { ... }
//
// Not found is never reported by plain lookups (they return nil, nil); it is only produced by callers that
// require a document to exist.
package dberr
