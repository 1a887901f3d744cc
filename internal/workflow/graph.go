// README: Legal state graphs encoded as data, optionally gated by actor role.
package workflow

import "fmt"

// Actor identifies who requests a transition. Graphs may restrict edges to
// specific actors; an edge with no actors is open to everyone.
type Actor string

const (
	ActorAdmin  Actor = "ADMIN"
	ActorSystem Actor = "SYSTEM"
	ActorAgency Actor = "AGENCY"
)

// Rule is one outgoing edge of the graph.
type Rule[S ~string] struct {
	To     S
	Actors []Actor
}

// Graph maps each status to its allowed next statuses. Statuses absent from
// the map are terminal.
type Graph[S ~string] map[S][]Rule[S]

// Can reports whether actor may move an entity from one status to another.
func (g Graph[S]) Can(from, to S, actor Actor) bool {
	for _, r := range g[from] {
		if r.To != to {
			continue
		}
		if len(r.Actors) == 0 {
			return true
		}
		for _, a := range r.Actors {
			if a == actor {
				return true
			}
		}
	}
	return false
}

// Validate returns an ErrInvalidTransition naming the illegal edge, or nil.
func (g Graph[S]) Validate(entity string, from, to S, actor Actor) error {
	if g.Can(from, to, actor) {
		return nil
	}
	return fmt.Errorf("%w: %s cannot go from %s to %s (actor %s)", ErrInvalidTransition, entity, from, to, actor)
}
