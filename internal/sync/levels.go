package sync

import (
	"fmt"
	"strings"

	"github.com/epccs/parts-epccs/internal/models"
)

type visitState uint8

const (
	unvisited visitState = iota
	visiting
	done
	failed
)

// levelWalker runs the memoized longest-path computation over one graph.
// A tri-state visit mark guards against re-entering an item mid-computation,
// so a cycle fails its members instead of recursing unboundedly, and the
// memo stays valid for everything outside the cycle.
type levelWalker struct {
	graph  *Graph
	levels map[models.PartKey]int
	state  map[models.PartKey]visitState
	stack  []models.PartKey
	errs   []error
}

// ComputeLevels assigns every item its dependency level: 1 for items with
// no dependencies, otherwise one more than the deepest dependency. Items on
// a cycle, and items that depend on one, get an error instead of a level.
// Results are deterministic regardless of input ordering.
func (g *Graph) ComputeLevels() (map[models.PartKey]int, []error) {
	w := &levelWalker{
		graph:  g,
		levels: make(map[models.PartKey]int),
		state:  make(map[models.PartKey]visitState),
	}
	for _, key := range g.Keys() {
		w.visit(key)
	}
	return w.levels, w.errs
}

func (w *levelWalker) visit(key models.PartKey) (int, bool) {
	switch w.state[key] {
	case done:
		return w.levels[key], true
	case failed:
		return 0, false
	case visiting:
		w.reportCycle(key)
		return 0, false
	}

	w.state[key] = visiting
	w.stack = append(w.stack, key)

	level := 1
	ok := true
	for _, dep := range w.graph.DependenciesOf(key) {
		depLevel, depOK := w.visit(dep)
		if !depOK {
			ok = false
			continue
		}
		if depLevel+1 > level {
			level = depLevel + 1
		}
	}

	w.stack = w.stack[:len(w.stack)-1]
	if !ok {
		// A failed state left by reportCycle stands; anything else failed
		// because a dependency did.
		if w.state[key] == visiting {
			w.state[key] = failed
			w.errs = append(w.errs, fmt.Errorf(
				"%s: level unavailable, depends on a failed item", key))
		}
		return 0, false
	}
	if w.state[key] == failed {
		return 0, false
	}
	w.state[key] = done
	w.levels[key] = level
	return level, true
}

// reportCycle marks every member of the detected cycle failed and emits one
// error naming the participants.
func (w *levelWalker) reportCycle(entry models.PartKey) {
	start := 0
	for i, k := range w.stack {
		if k == entry {
			start = i
			break
		}
	}
	members := w.stack[start:]
	names := make([]string, 0, len(members)+1)
	for _, k := range members {
		names = append(names, k.String())
		w.state[k] = failed
	}
	names = append(names, entry.String())
	w.errs = append(w.errs, fmt.Errorf("dependency cycle: %s", strings.Join(names, " -> ")))
}
