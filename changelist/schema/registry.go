package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// Registry holds the registered models and links relation targets.
type Registry struct {
	byType map[reflect.Type]*Model
	order  []*Model
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[reflect.Type]*Model)}
}

// Register parses v and adds its model. Relations whose target type is
// already registered are linked immediately; earlier models pointing at
// this type are linked as well, so registration order does not matter.
func (r *Registry) Register(v any) (*Model, error) {
	m, err := ParseModel(v)
	if err != nil {
		return nil, err
	}
	if existing, ok := r.byType[m.typ]; ok {
		return existing, nil
	}
	r.byType[m.typ] = m
	r.order = append(r.order, m)
	r.link()
	return m, nil
}

// MustRegister is Register for program setup paths where a tag error is
// a programming error.
func (r *Registry) MustRegister(v any) *Model {
	m, err := r.Register(v)
	if err != nil {
		panic(err)
	}
	return m
}

// Lookup finds a model by table name or type name, case-insensitively.
func (r *Registry) Lookup(name string) (*Model, bool) {
	name = strings.ToLower(name)
	for _, m := range r.order {
		if strings.ToLower(m.Table) == name || strings.ToLower(m.Name) == name {
			return m, true
		}
	}
	return nil, false
}

// Models returns the registered models in registration order.
func (r *Registry) Models() []*Model {
	return r.order
}

// link resolves every relation whose target type is now registered.
func (r *Registry) link() {
	for _, m := range r.order {
		for _, f := range m.Fields {
			if f.Rel != nil && f.Rel.To == nil {
				if target, ok := r.byType[f.Rel.target]; ok {
					f.Rel.To = target
				}
			}
		}
	}
}

// checkResolved errors when a relation field's target was never
// registered. Resolution paths call it before traversing.
func checkResolved(m *Model, f *Field) error {
	if f.Rel != nil && f.Rel.To == nil {
		return fmt.Errorf("relation field %q of model %s: target model %s not registered", f.Column, m.Table, f.Rel.target.Name())
	}
	return nil
}
