// Package registry maps configured adapter ids to their handles, one
// typed map per adapter kind. It is populated once at startup and
// read-only afterwards.
package registry

import "github.com/semmidev/custos/internal/domain"

type Registry struct {
	sources      map[string]domain.Database
	destinations map[string]domain.Storage
	channels     map[string]domain.Notifier
}

func New() *Registry {
	return &Registry{
		sources:      map[string]domain.Database{},
		destinations: map[string]domain.Storage{},
		channels:     map[string]domain.Notifier{},
	}
}

func (r *Registry) RegisterSource(id string, db domain.Database) {
	r.sources[id] = db
}

func (r *Registry) RegisterDestination(id string, st domain.Storage) {
	r.destinations[id] = st
}

func (r *Registry) RegisterChannel(id string, n domain.Notifier) {
	r.channels[id] = n
}

func (r *Registry) Source(id string) (domain.Database, bool) {
	db, ok := r.sources[id]
	return db, ok
}

func (r *Registry) Destination(id string) (domain.Storage, bool) {
	st, ok := r.destinations[id]
	return st, ok
}

func (r *Registry) Channel(id string) (domain.Notifier, bool) {
	n, ok := r.channels[id]
	return n, ok
}
