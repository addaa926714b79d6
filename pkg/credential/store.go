package credential

import (
	"context"
	"sync"
)

// Store is the `credentials` table persistence boundary: it holds Sealed
// bytes only, never plaintext, so the store's own implementation cannot
// leak a secret even if logged verbatim.
type Store interface {
	Get(ctx context.Context, companyID, name string) (Sealed, error)
	Put(ctx context.Context, companyID, name string, sealed Sealed) error
	Delete(ctx context.Context, companyID, name string) error
}

// MemoryStore is an in-process Store, used by tests. The `credentials`
// table has an ent schema, but no ent-backed Store exists in this module.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]Sealed
}

// NewMemoryStore constructs an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: map[string]Sealed{}}
}

func (s *MemoryStore) Get(_ context.Context, companyID, name string) (Sealed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sealed, ok := s.rows[key(companyID, name)]
	if !ok {
		return Sealed{}, ErrCredentialNotFound
	}
	return sealed, nil
}

func (s *MemoryStore) Put(_ context.Context, companyID, name string, sealed Sealed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[key(companyID, name)] = sealed
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, companyID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, key(companyID, name))
	return nil
}

func key(companyID, name string) string {
	return companyID + "/" + name
}

// Proxy is the chokepoint agent-facing code calls through: it never hands
// back plaintext, only a Handle, and resolves a Handle to plaintext solely
// when handing off to a capability adapter (spec §9 "opaque credential
// proxy").
type Proxy struct {
	vault *Vault
	store Store
}

// NewProxy constructs a Proxy over a Vault and a Store.
func NewProxy(vault *Vault, store Store) *Proxy {
	return &Proxy{vault: vault, store: store}
}

// Register seals plaintext and stores it, returning the Handle callers use
// from then on. Plaintext is never retained after this call returns.
func (p *Proxy) Register(ctx context.Context, companyID, name string, plaintext []byte) (Handle, error) {
	sealed, err := p.vault.Seal(companyID, name, plaintext)
	if err != nil {
		return Handle{}, err
	}
	if err := p.store.Put(ctx, companyID, name, sealed); err != nil {
		return Handle{}, err
	}
	return Handle{CompanyID: companyID, Name: name}, nil
}

// Resolve exchanges a Handle for plaintext. Callers must pass the result
// directly to the capability adapter that needs it and never log, store,
// or echo it back.
func (p *Proxy) Resolve(ctx context.Context, h Handle) ([]byte, error) {
	sealed, err := p.store.Get(ctx, h.CompanyID, h.Name)
	if err != nil {
		return nil, err
	}
	return p.vault.Reveal(h.CompanyID, h.Name, sealed)
}

// Revoke deletes a credential's sealed row; existing Handles become
// unresolvable.
func (p *Proxy) Revoke(ctx context.Context, h Handle) error {
	return p.store.Delete(ctx, h.CompanyID, h.Name)
}
