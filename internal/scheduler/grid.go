package scheduler

// dimension selects one of the three independent occupancy indexes.
type dimension int

const (
	dimFaculty dimension = iota
	dimRoom
	dimGroup
)

// slotRef keys occupancy by working day and time-slot id.
type slotRef struct {
	day  string
	slot int
}

// occupancyGrid tracks which (day, slot) keys each faculty member, room,
// and student group currently holds. It is the sole source of truth for
// hard-constraint checks; no constraint logic lives here.
type occupancyGrid struct {
	occupied [3]map[string]map[slotRef]struct{}
}

func newOccupancyGrid() *occupancyGrid {
	g := &occupancyGrid{}
	for d := range g.occupied {
		g.occupied[d] = make(map[string]map[slotRef]struct{})
	}
	return g
}

func (g *occupancyGrid) mark(dim dimension, id string, key slotRef) {
	set := g.occupied[dim][id]
	if set == nil {
		set = make(map[slotRef]struct{})
		g.occupied[dim][id] = set
	}
	set[key] = struct{}{}
}

func (g *occupancyGrid) unmark(dim dimension, id string, key slotRef) {
	if set := g.occupied[dim][id]; set != nil {
		delete(set, key)
	}
}

func (g *occupancyGrid) isOccupied(dim dimension, id string, key slotRef) bool {
	set := g.occupied[dim][id]
	if set == nil {
		return false
	}
	_, ok := set[key]
	return ok
}
