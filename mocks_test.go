package authcore_test

import (
	"context"
	"sync"
	"time"

	authcore "github.com/ravenmill/go-authcore"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func jwtSubject(email string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{Subject: email}
}

// memoryUsers is a map-backed UserStore used across the package tests.
type memoryUsers struct {
	mu        sync.Mutex
	byEmail   map[string]*authcore.User
	saves     int
	createErr error
	saveErr   error
	recordErr error
}

func newMemoryUsers(users ...*authcore.User) *memoryUsers {
	m := &memoryUsers{byEmail: map[string]*authcore.User{}}
	for _, u := range users {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		m.byEmail[u.Email] = u
	}
	return m
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*authcore.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, authcore.ErrIdentityNotFound
}

func (m *memoryUsers) GetByClientID(_ context.Context, clientID string) (*authcore.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var owners []*authcore.User
	for _, u := range m.byEmail {
		if _, ok := u.APIKey(clientID); ok {
			owners = append(owners, u)
		}
	}

	switch len(owners) {
	case 0:
		return nil, authcore.ErrIdentityNotFound
	case 1:
		return owners[0], nil
	default:
		return nil, authcore.ErrAmbiguousClientID
	}
}

func (m *memoryUsers) Create(_ context.Context, user *authcore.User) (*authcore.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return nil, m.createErr
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	m.byEmail[user.Email] = user
	return user, nil
}

func (m *memoryUsers) Save(_ context.Context, user *authcore.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	m.byEmail[user.Email] = user
	m.saves++
	return nil
}

func (m *memoryUsers) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *memoryUsers) RecordLogin(_ context.Context, user *authcore.User, event authcore.LoginEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.recordErr != nil {
		return m.recordErr
	}
	user.LogLogin(event)
	return nil
}

func (m *memoryUsers) FindByRoleRef(_ context.Context, roleID uuid.UUID) ([]*authcore.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var holders []*authcore.User
	for _, u := range m.byEmail {
		if u.HasRoleRef(roleID) {
			holders = append(holders, u)
		}
	}
	return holders, nil
}

// memoryRoles is a map-backed RoleStore. Missing ids are silently absent
// from GetByIDs, matching the dangling-ref contract.
type memoryRoles struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*authcore.Role
}

func newMemoryRoles(roles ...*authcore.Role) *memoryRoles {
	m := &memoryRoles{byID: map[uuid.UUID]*authcore.Role{}}
	for _, r := range roles {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		m.byID[r.ID] = r
	}
	return m
}

func (m *memoryRoles) GetByID(_ context.Context, id uuid.UUID) (*authcore.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.byID[id]; ok {
		return r, nil
	}
	return nil, authcore.ErrIdentityNotFound
}

func (m *memoryRoles) GetByName(_ context.Context, name string) (*authcore.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.byID {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, authcore.ErrIdentityNotFound
}

func (m *memoryRoles) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*authcore.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*authcore.Role
	for _, id := range ids {
		if r, ok := m.byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryRoles) Create(_ context.Context, role *authcore.Role) (*authcore.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	m.byID[role.ID] = role
	return role, nil
}

func (m *memoryRoles) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.byID, id)
	return nil
}

// memoryLinks is a map-backed MagicLinkStore with a mutex-serialized
// consume, mirroring the store contract's compare-and-set.
type memoryLinks struct {
	mu      sync.Mutex
	byNonce map[uuid.UUID]*authcore.MagicLink
}

func newMemoryLinks() *memoryLinks {
	return &memoryLinks{byNonce: map[uuid.UUID]*authcore.MagicLink{}}
}

func (m *memoryLinks) Create(_ context.Context, link *authcore.MagicLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.byNonce[link.Nonce] = link
	return nil
}

func (m *memoryLinks) Consume(_ context.Context, nonce uuid.UUID) (*authcore.MagicLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.byNonce[nonce]
	if !ok {
		return nil, authcore.ErrMagicLinkNotFound
	}
	if link.Consumed {
		return nil, authcore.ErrAlreadyConsumed
	}

	link.Consumed = true
	now := time.Now().UTC()
	link.ConsumedAt = &now
	return link, nil
}

// capturingMailer records every rendered message.
type capturingMailer struct {
	mu       sync.Mutex
	messages []authcore.EmailMessage
	sendErr  error
}

func (c *capturingMailer) Send(_ context.Context, msg authcore.EmailMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, msg)
	return c.sendErr
}

func (c *capturingMailer) sent() []authcore.EmailMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]authcore.EmailMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// capturingSink records activity events.
type capturingSink struct {
	mu     sync.Mutex
	events []authcore.ActivityEvent
}

func (c *capturingSink) Record(_ context.Context, event authcore.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, event)
	return nil
}

func (c *capturingSink) recorded() []authcore.ActivityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]authcore.ActivityEvent, len(c.events))
	copy(out, c.events)
	return out
}

func testConfig() authcore.Config {
	return authcore.Config{
		AccessSigningKey:    []byte("test-access-signing-key"),
		RefreshSigningKey:   []byte("test-refresh-signing-key"),
		MagicLinkSigningKey: []byte("test-magic-link-signing-key"),
		AccessTokenTTL:      30 * time.Minute,
		RefreshTokenTTL:     60 * time.Minute,
		MagicLinkTTL:        15 * time.Minute,
		Issuer:              "authcore-test",
		AllowNewUsers:       true,
		MagicLinkEnabled:    true,
		PasswordPolicy:      authcore.DefaultPasswordPolicy(),
	}
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
