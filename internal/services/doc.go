// Package services contains the implementation of all services used by the web server.
//
// The services are responsible for interacting with the database and performing anything that is not strictly HTTP-related.
// The services are injected into the web server, and are used to handle requests dispatched by it.
//
// Current services include:
//   - ClientService:
//     Is the main handler for dispatched http requests to the client. It registers and logs in users, issues and revokes
//     sessions, deletes accounts and updates user preferences, on top of the user and session managers.
//   - TokenService:
//     Signs and verifies the HS256 JWTs handed to clients. Every token carries a random jti, so two logins never
//     produce the same token (the sessions collection enforces jwt uniqueness).
//   - AMQPService:
//     Is a ampq 0.9.1 broker-agnostic publisher of account lifecycle events (registered, logged in, deleted, ...).
//     When no broker is configured a NoopPublisher is used instead.
package services
