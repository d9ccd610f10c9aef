package session

import (
	"crypto/rsa"
	"errors"
	"sort"
	"sync"

	"relaychat/internal/domain"
)

var (
	// ErrUnknownSession is returned for operations on an id that is not
	// registered (never created, or already removed).
	ErrUnknownSession = errors.New("unknown session")
	// ErrDuplicateSession is returned by Create for an id already present.
	ErrDuplicateSession = errors.New("duplicate session")
	// ErrUsernameAlreadyOnline is returned by Authenticate when another
	// session holds the username.
	ErrUsernameAlreadyOnline = errors.New("user is already online")
)

// Registry is the set of live sessions. The zero value is not usable; call
// NewRegistry.
type Registry struct {
	mu         sync.RWMutex
	sessions   map[domain.SessionID]*domain.Session
	byUsername map[domain.Username]domain.SessionID
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions:   make(map[domain.SessionID]*domain.Session),
		byUsername: make(map[domain.Username]domain.SessionID),
	}
}

// Create registers a fresh, unauthenticated session.
func (r *Registry) Create(id domain.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; ok {
		return ErrDuplicateSession
	}
	r.sessions[id] = &domain.Session{ID: id}
	return nil
}

// Remove deletes the session and its username index entry.
func (r *Registry) Remove(id domain.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return ErrUnknownSession
	}
	r.unindex(s)
	delete(r.sessions, id)
	return nil
}

// Get returns a snapshot of the session.
func (r *Registry) Get(id domain.SessionID) (domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return domain.Session{}, ErrUnknownSession
	}
	return *s, nil
}

// SetPublicKey stores the client's public key.
func (r *Registry) SetPublicKey(id domain.SessionID, key *rsa.PublicKey) error {
	return r.update(id, func(s *domain.Session) { s.ClientKey = key })
}

// SetMAC stores the challenge issued to the session.
func (r *Registry) SetMAC(id domain.SessionID, mac string) error {
	return r.update(id, func(s *domain.Session) { s.MAC = mac })
}

// PublicKey returns the client's public key, nil if none was presented yet.
func (r *Registry) PublicKey(id domain.SessionID) (*rsa.PublicKey, error) {
	s, err := r.Get(id)
	return s.ClientKey, err
}

// MAC returns the issued challenge, empty if none was issued yet.
func (r *Registry) MAC(id domain.SessionID) (string, error) {
	s, err := r.Get(id)
	return s.MAC, err
}

// Authenticate binds username to the session. The presence check and the
// binding happen under one lock. Re-authenticating a session under a new
// name releases the old one.
func (r *Registry) Authenticate(id domain.SessionID, username domain.Username) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return ErrUnknownSession
	}
	if holder, ok := r.byUsername[username]; ok && holder != id {
		return ErrUsernameAlreadyOnline
	}
	r.unindex(s)
	s.Authenticated = true
	s.Username = username
	r.byUsername[username] = id
	return nil
}

// Deauthenticate clears the session's username; the key and MAC remain.
func (r *Registry) Deauthenticate(id domain.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return ErrUnknownSession
	}
	r.unindex(s)
	s.Authenticated = false
	s.Username = ""
	return nil
}

// FindByUsername returns the session currently authenticated as username.
func (r *Registry) FindByUsername(username domain.Username) (domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return domain.Session{}, false
	}
	return *r.sessions[id], true
}

// ListOnline returns every authenticated session except exclude, sorted by
// username.
func (r *Registry) ListOnline(exclude domain.SessionID) []domain.OnlineUser {
	r.mu.RLock()
	users := make([]domain.OnlineUser, 0, len(r.byUsername))
	for name, id := range r.byUsername {
		if id == exclude {
			continue
		}
		users = append(users, domain.OnlineUser{Username: name, ID: id})
	}
	r.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Online returns the number of authenticated sessions.
func (r *Registry) Online() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUsername)
}

func (r *Registry) update(id domain.SessionID, fn func(*domain.Session)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return ErrUnknownSession
	}
	fn(s)
	return nil
}

// unindex drops s from the username index if it holds an entry. Callers
// hold r.mu.
func (r *Registry) unindex(s *domain.Session) {
	if !s.Authenticated {
		return
	}
	if r.byUsername[s.Username] == s.ID {
		delete(r.byUsername, s.Username)
	}
}
