package pss

import (
	"fmt"
	"strings"

	"github.com/superloach/pss/pkg/transfo"
)

const (
	// MaxWorlds is the number of world identifiers, 0 being the base world
	MaxWorlds = 256
	BaseWorld = 0
)

type world struct {
	// relation from the world's coordinates to its reference's
	model           transfo.Model
	ref             int
	usedAsReference bool
}

// WorldRegistry holds the coordinate worlds of a session as a forest
// rooted at the base world. A world may only be defined once, and only
// while no other world refers to it.
type WorldRegistry struct {
	worlds [MaxWorlds]*world
}

func NewWorldRegistry() *WorldRegistry {
	r := &WorldRegistry{}
	r.worlds[BaseWorld] = &world{model: transfo.NewIdentity(), ref: BaseWorld}
	return r
}

func validWorldID(id int) bool {
	return id >= 0 && id < MaxWorlds
}

func (r *WorldRegistry) Defined(id int) bool {
	return validWorldID(id) && r.worlds[id] != nil
}

// Define adds world id related to the world ref by model. Failures are
// reported as Err values without a position.
func (r *WorldRegistry) Define(id int, model transfo.Model, ref int) error {
	if id <= BaseWorld || id >= MaxWorlds {
		return outOfRange(position{}, 1, MaxWorlds-1)
	}
	if w := r.worlds[id]; w != nil {
		if w.usedAsReference {
			return Err{reason: ErrWorldAlreadyUsed, message: fmt.Sprintf("world %d is already used as a reference", id)}
		}
		return Err{reason: ErrWorldAlreadyDefined, message: fmt.Sprintf("world %d is already defined", id)}
	}
	if !r.Defined(ref) {
		return Err{reason: ErrInvalidWorld, message: fmt.Sprintf("reference world %d is not defined", ref)}
	}

	r.worlds[id] = &world{model: model.Clone(), ref: ref}
	r.worlds[ref].usedAsReference = true
	return nil
}

// ToBase returns the relation from world id's coordinates to the base
// world's.
func (r *WorldRegistry) ToBase(id int) (transfo.Model, bool) {
	if !r.Defined(id) {
		return nil, false
	}

	chain := []transfo.Model{}
	for id != BaseWorld {
		w := r.worlds[id]
		chain = append(chain, w.model)
		id = w.ref
	}
	return transfo.Compose(chain...), true
}

// Clone returns an independent copy of the registry.
func (r *WorldRegistry) Clone() *WorldRegistry {
	c := &WorldRegistry{}
	for i, w := range r.worlds {
		if w != nil {
			c.worlds[i] = &world{model: w.model.Clone(), ref: w.ref, usedAsReference: w.usedAsReference}
		}
	}
	return c
}

func (r *WorldRegistry) String() string {
	entries := []string{}
	for i, w := range r.worlds {
		if w == nil || i == BaseWorld {
			continue
		}
		entries = append(entries, fmt.Sprintf("%d -> %d %s", i, w.ref, w.model))
	}
	return "worlds {" + strings.Join(entries, "; ") + "}"
}
