package services

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/mflix/webserver/internal/models/dberr"
	"github.com/mflix/webserver/internal/models/session"
	"github.com/mflix/webserver/internal/models/user"
)

func init() {
	bcryptCost = bcrypt.MinCost
}

// memoryStore implements UserStore and SessionStore over maps, with the same conflict semantics as the
// MongoDB managers running on indexed collections.
type memoryStore struct {
	mu       sync.Mutex
	users    map[string]user.User
	sessions []session.Session
	failNext error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: make(map[string]user.User)}
}

func (m *memoryStore) fail() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *memoryStore) AddUser(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	if _, ok := m.users[u.Email]; ok {
		return dberr.New(dberr.KindConflict, "AddUser", u.Email, errors.New("duplicate key"))
	}
	m.users[u.Email] = *u
	return nil
}

func (m *memoryStore) GetUser(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	u, ok := m.users[email]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *memoryStore) DeleteUser(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.deleteSessionsLocked(email)
	delete(m.users, email)
	return nil
}

func (m *memoryStore) UpdateUserPreferences(_ context.Context, email string, prefs map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prefs == nil {
		return dberr.Validation("UpdateUserPreferences", email, "preferences cannot be set to null")
	}
	if err := m.fail(); err != nil {
		return err
	}
	if u, ok := m.users[email]; ok {
		u.Preferences = prefs
		m.users[email] = u
	}
	return nil
}

func (m *memoryStore) CreateSession(_ context.Context, userID, jwt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	for _, s := range m.sessions {
		if s.JWT == jwt {
			return dberr.New(dberr.KindConflict, "CreateSession", userID, errors.New("duplicate key"))
		}
	}
	m.sessions = append(m.sessions, session.Session{UserID: userID, JWT: jwt})
	return nil
}

func (m *memoryStore) GetSessionByJWT(_ context.Context, jwt string) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	for _, s := range m.sessions {
		if s.JWT == jwt {
			found := s
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) DeleteSessions(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.deleteSessionsLocked(userID)
	return nil
}

func (m *memoryStore) deleteSessionsLocked(userID string) {
	kept := m.sessions[:0]
	for _, s := range m.sessions {
		if s.UserID != userID {
			kept = append(kept, s)
		}
	}
	m.sessions = kept
}

func (m *memoryStore) sessionCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

// recordingPublisher keeps every published event type in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []AccountEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event AccountEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}
