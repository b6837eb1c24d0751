package world

import (
	"fmt"
	"strings"
)

// Registry owns every actor and its current-room assignment. Iteration
// order is registration order, which also fixes the engine's round order.
type Registry struct {
	actors map[string]*Actor
	byName map[string]string
	order  []string
}

func NewRegistry() *Registry {
	return &Registry{
		actors: map[string]*Actor{},
		byName: map[string]string{},
	}
}

// Register adds a new actor. Names are unique per world.
func (reg *Registry) Register(a *Actor) error {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return fmt.Errorf("empty actor name")
	}
	if _, taken := reg.byName[name]; taken {
		return fmt.Errorf("%w: %s", ErrDuplicateActor, name)
	}
	if _, dup := reg.actors[a.ID]; dup {
		return fmt.Errorf("%w: id %s", ErrDuplicateActor, a.ID)
	}
	a.Name = name
	a.Active = true
	reg.actors[a.ID] = a
	reg.byName[name] = a.ID
	reg.order = append(reg.order, a.ID)
	return nil
}

func (reg *Registry) Get(id string) (*Actor, error) {
	a, ok := reg.actors[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrActorNotFound, id)
	}
	return a, nil
}

func (reg *Registry) GetByName(name string) (*Actor, error) {
	id, ok := reg.byName[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrActorNotFound, name)
	}
	return reg.actors[id], nil
}

// AllIDs returns actor ids in registration order.
func (reg *Registry) AllIDs() []string {
	out := make([]string, len(reg.order))
	copy(out, reg.order)
	return out
}

func (reg *Registry) Len() int { return len(reg.actors) }

// SetActive marks an actor schedulable or not. Inactive actors are skipped
// by the engine but retained for queries.
func (reg *Registry) SetActive(id string, active bool) error {
	a, ok := reg.actors[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrActorNotFound, id)
	}
	a.Active = active
	return nil
}
