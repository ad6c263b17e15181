package oauth

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for local runs and tests.
// Records are copied on the way in and out. Grants and codes are dropped
// once their TTL has passed.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	clients map[string]Client
	grants  map[string]memoryGrant
	codes   map[string]memoryCode
}

type memoryGrant struct {
	grant    Grant
	deadline time.Time
}

type memoryCode struct {
	code     AuthCode
	deadline time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:     time.Now,
		clients: make(map[string]Client),
		grants:  make(map[string]memoryGrant),
		codes:   make(map[string]memoryCode),
	}
}

func (s *MemoryStore) SaveClient(ctx context.Context, client *Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *client
	c.RedirectURIs = append([]string(nil), client.RedirectURIs...)
	s.clients[client.ClientID] = c
	return nil
}

func (s *MemoryStore) GetClient(ctx context.Context, clientID string) (*Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[clientID]
	if !ok {
		return nil, nil
	}
	c.RedirectURIs = append([]string(nil), c.RedirectURIs...)
	return &c, nil
}

func (s *MemoryStore) SaveGrant(ctx context.Context, grant *Grant, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("grant ttl must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweep(now)
	s.grants[grant.ID] = memoryGrant{grant: *grant, deadline: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) GetGrant(ctx context.Context, grantID string) (*Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[grantID]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(g.deadline) {
		delete(s.grants, grantID)
		return nil, nil
	}
	return &g.grant, nil
}

// DeleteGrant removes a grant, revoking tokens issued from it
func (s *MemoryStore) DeleteGrant(ctx context.Context, grantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.grants, grantID)
}

func (s *MemoryStore) SaveAuthCode(ctx context.Context, code *AuthCode, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("code has already expired")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweep(now)
	s.codes[codeKey(code.ClientID, code.Code)] = memoryCode{code: *code, deadline: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) ConsumeAuthCode(ctx context.Context, clientID, code string) (*AuthCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := codeKey(clientID, code)
	c, ok := s.codes[key]
	if !ok {
		return nil, nil
	}
	delete(s.codes, key)
	if !s.now().Before(c.deadline) {
		return nil, nil
	}
	return &c.code, nil
}

func (s *MemoryStore) CheckHealth(ctx context.Context) error {
	return nil
}

// sweep drops expired grants and codes. Callers hold mu.
func (s *MemoryStore) sweep(now time.Time) {
	for id, g := range s.grants {
		if !now.Before(g.deadline) {
			delete(s.grants, id)
		}
	}
	for key, c := range s.codes {
		if !now.Before(c.deadline) {
			delete(s.codes, key)
		}
	}
}
