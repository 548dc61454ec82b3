// Package web contains the fiber HTTP server exposing the account API under /api/v1/user.
// Handlers validate the request body, call the AccountService and translate its errors into status codes:
// validation errors are 400, bad credentials or revoked tokens 401, missing users 404, duplicates 409
// and store failures 503.
package web
