package resolve

import (
	"slices"
	"strings"
)

// importGraph is the import graph over the loaded files, indexed in load
// order.
type importGraph struct {
	files []string
	index map[string]int
	out   [][]int
	in    [][]int
}

func (r *resolver) importGraph() *importGraph {
	g := &importGraph{
		files: r.order,
		index: make(map[string]int, len(r.order)),
		out:   make([][]int, len(r.order)),
		in:    make([][]int, len(r.order)),
	}
	for i, f := range r.order {
		g.index[f] = i
	}
	for i, f := range r.order {
		for _, e := range r.edges[f] {
			j, ok := g.index[e.to]
			if !ok || slices.Contains(g.out[i], j) {
				continue
			}
			g.out[i] = append(g.out[i], j)
			g.in[j] = append(g.in[j], i)
		}
	}
	return g
}

// cyclic runs Kahn's algorithm and returns the files that lie on a cycle,
// sorted. Nodes left over by the sort are trimmed to those with both a
// predecessor and a successor among the leftovers, which removes files
// that merely depend on a cycle.
func (g *importGraph) cyclic() []string {
	n := len(g.files)
	indeg := make([]int, n)
	for i := range n {
		indeg[i] = len(g.in[i])
	}

	var current []int
	for i := range n {
		if indeg[i] == 0 {
			current = append(current, i)
		}
	}
	visited := 0
	for len(current) > 0 {
		var next []int
		for _, id := range current {
			visited++
			for _, to := range g.out[id] {
				indeg[to]--
				if indeg[to] == 0 {
					next = append(next, to)
				}
			}
		}
		slices.Sort(next)
		current = next
	}
	if visited == n {
		return nil
	}

	left := make([]bool, n)
	for i := range n {
		left[i] = indeg[i] > 0
	}
	for changed := true; changed; {
		changed = false
		for i := range n {
			if left[i] && (!anyIn(g.out[i], left) || !anyIn(g.in[i], left)) {
				left[i] = false
				changed = true
			}
		}
	}

	var cycle []string
	for i := range n {
		if left[i] {
			cycle = append(cycle, g.files[i])
		}
	}
	slices.Sort(cycle)
	return cycle
}

func anyIn(ids []int, set []bool) bool {
	for _, id := range ids {
		if set[id] {
			return true
		}
	}
	return false
}

// checkCycles reports an import cycle with one diagnostic per member
// file, positioned at its import of another member.
func (r *resolver) checkCycles() {
	members := r.importGraph().cyclic()
	if len(members) == 0 {
		return
	}
	r.cycle = true
	names := strings.Join(members, ", ")
	for _, f := range members {
		for _, e := range r.edges[f] {
			if slices.Contains(members, e.to) {
				r.diags.Errorf(e.span, "import cycle between %s", names)
				break
			}
		}
	}
}
