package services

import (
	"context"
	"errors"
	"time"

	"github.com/mflix/webserver/internal/log"
	"github.com/mflix/webserver/internal/models/dberr"
	"github.com/mflix/webserver/internal/models/session"
	"github.com/mflix/webserver/internal/models/user"
)

var (
	// ErrInvalidCredentials is returned when the email is unknown or the password does not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrSessionRevoked is returned when a valid token no longer has a session (the user logged out).
	ErrSessionRevoked = errors.New("session is no longer valid")
)

// UserStore is the subset of user.UserManager used by ClientService.
type UserStore interface {
	AddUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, email string) (*user.User, error)
	DeleteUser(ctx context.Context, email string) error
	UpdateUserPreferences(ctx context.Context, email string, preferences map[string]interface{}) error
}

// SessionStore is the subset of session.SessionManager used by ClientService.
type SessionStore interface {
	CreateSession(ctx context.Context, userID, jwt string) error
	GetSessionByJWT(ctx context.Context, jwt string) (*session.Session, error)
	DeleteSessions(ctx context.Context, userID string) error
}

// AuthResult is returned by a successful registration or login.
type AuthResult struct {
	Token string
	User  *user.User
}

type ClientService struct {
	users    UserStore
	sessions SessionStore
	tokens   *TokenService
	events   EventPublisher
	logger   *log.Logger
}

func NewClientService(users UserStore, sessions SessionStore, tokens *TokenService, events EventPublisher, logger *log.Logger) *ClientService {
	if events == nil {
		events = NoopPublisher{}
	}
	return &ClientService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		events:   events,
		logger:   logger,
	}
}

// RegisterUser creates a new user with a hashed password and logs them in.
// Returns a dberr conflict if the email is already registered.
func (s *ClientService) RegisterUser(ctx context.Context, name, email, password string) (*AuthResult, error) {
	hashed, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &user.User{
		Name:     name,
		Email:    email,
		Password: hashed,
	}
	if err := s.users.AddUser(ctx, u); err != nil {
		return nil, err
	}
	s.publish(ctx, EventUserRegistered, email)

	return s.startSession(ctx, u)
}

// LoginUser checks the email and password and opens a new session.
// Returns ErrInvalidCredentials if the user does not exist or the password is wrong.
func (s *ClientService) LoginUser(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, u)
}

func (s *ClientService) authenticate(ctx context.Context, email, password string) (*user.User, error) {
	u, err := s.users.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		s.logger.Infof("Login attempt for unknown user %s", email)
		return nil, ErrInvalidCredentials
	}
	if err := CheckPassword(u.Password, password); err != nil {
		s.logger.Infof("Wrong password for user %s", email)
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *ClientService) startSession(ctx context.Context, u *user.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(u.Email)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.CreateSession(ctx, u.Email, token); err != nil {
		return nil, err
	}
	s.publish(ctx, EventUserLoggedIn, u.Email)

	return &AuthResult{Token: token, User: u}, nil
}

// LogoutUser removes every session of the user, revoking all of their tokens.
func (s *ClientService) LogoutUser(ctx context.Context, email string) error {
	if err := s.sessions.DeleteSessions(ctx, email); err != nil {
		return err
	}
	s.publish(ctx, EventUserLoggedOut, email)
	return nil
}

// DeleteUser removes the user and all of their sessions after re-checking the password.
func (s *ClientService) DeleteUser(ctx context.Context, email, password string) error {
	if _, err := s.authenticate(ctx, email, password); err != nil {
		return err
	}
	if err := s.users.DeleteUser(ctx, email); err != nil {
		return err
	}
	s.publish(ctx, EventUserDeleted, email)
	return nil
}

// GetUser returns the user, or a dberr not found error if it does not exist.
func (s *ClientService) GetUser(ctx context.Context, email string) (*user.User, error) {
	u, err := s.users.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, dberr.NotFound("GetUser", email)
	}
	return u, nil
}

// UpdatePreferences replaces the user's preferences and returns the updated user.
func (s *ClientService) UpdatePreferences(ctx context.Context, email string, preferences map[string]interface{}) (*user.User, error) {
	if err := s.users.UpdateUserPreferences(ctx, email, preferences); err != nil {
		return nil, err
	}
	s.publish(ctx, EventUserPreferencesUpdated, email)
	return s.GetUser(ctx, email)
}

// VerifyToken checks the token's signature and expiry, and that its session has not been revoked.
// Returns the email of the token's user.
func (s *ClientService) VerifyToken(ctx context.Context, token string) (string, error) {
	email, err := s.tokens.Parse(token)
	if err != nil {
		return "", err
	}

	sess, err := s.sessions.GetSessionByJWT(ctx, token)
	if err != nil {
		return "", err
	}
	if sess == nil || sess.UserID != email {
		return "", ErrSessionRevoked
	}
	return email, nil
}

// publish sends an account event. Failures are logged and never fail the request.
func (s *ClientService) publish(ctx context.Context, eventType, email string) {
	event := AccountEvent{Type: eventType, Email: email, Timestamp: time.Now().UTC()}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Errorf("Failed to publish %s event for %s: %v", eventType, email, err)
	}
}
