package linefile

import (
	"fmt"

	"github.com/fulldump/flatfile"
)

// Registry maps type names to prototype records used to reconstruct
// concrete instances during reads. It is fixed at construction and never
// mutated afterwards, so a store's registered types cannot drift while the
// store is open.
type Registry struct {
	prototypes map[string]Record
}

// NewRegistry builds a registry from prototypes. Nil prototypes are
// ignored; a duplicated type name is rejected.
func NewRegistry(prototypes ...Record) (*Registry, error) {
	r := &Registry{
		prototypes: map[string]Record{},
	}
	for _, p := range prototypes {
		if p == nil {
			continue
		}
		name := p.TypeName()
		if name == "" {
			return nil, fmt.Errorf("%w: prototype with empty type name", flatfile.ErrInvalidArgument)
		}
		if _, exists := r.prototypes[name]; exists {
			return nil, fmt.Errorf("%w: type '%s' registered twice", flatfile.ErrInvalidArgument, name)
		}
		r.prototypes[name] = p
	}
	return r, nil
}

// Clone returns a blank instance of the named type, or ErrNotSupported if
// the type was never registered.
func (r *Registry) Clone(typeName string) (Record, error) {
	p, ok := r.prototypes[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: type '%s' is not registered", flatfile.ErrNotSupported, typeName)
	}
	return p.Clone(), nil
}
