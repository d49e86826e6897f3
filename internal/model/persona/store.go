package persona

// Store exposes persona retrieval for the relay and HTTP handlers.
type Store interface {
	List() []Persona
	ForDomain(domain string) Persona
}

// MemoryStore implements Store over a parsed catalogue.
type MemoryStore struct {
	base  Persona
	items []Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied catalogue.
func NewMemoryStore(f File) *MemoryStore {
	return &MemoryStore{base: f.Default, items: append([]Persona(nil), f.Personas...)}
}

// List returns the dedicated personas, resolved against the default.
func (s *MemoryStore) List() []Persona {
	out := make([]Persona, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, merge(s.base, item, item.Domain))
	}
	return out
}

// ForDomain returns the persona for domain, falling back to the default
// persona. Domain matching is exact.
func (s *MemoryStore) ForDomain(domain string) Persona {
	for _, item := range s.items {
		if item.Domain == domain {
			return merge(s.base, item, domain)
		}
	}
	return merge(s.base, Persona{}, domain)
}
