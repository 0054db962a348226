package ir

import (
	"github.com/gogpu/wesl/wgsl"
)

// References returns the declarations a declaration refers to, in first-use
// order and without duplicates.
func References(d wgsl.Decl) []wgsl.DeclID {
	var out []wgsl.DeclID
	seen := map[wgsl.DeclID]bool{}
	add := func(id wgsl.DeclID) {
		if id != wgsl.NoDecl && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	wgsl.Inspect(d, func(n wgsl.Node) bool {
		switch n := n.(type) {
		case *wgsl.Ident:
			add(n.Ref)
		case *wgsl.NamedType:
			add(n.Ref)
		}
		return true
	})
	return out
}

// Graph is the reference graph of a module: node i is m.Decls[i] and
// edges point from a declaration to the declarations it references.
type Graph struct {
	module *Module
	index  map[wgsl.DeclID]int
	adj    [][]int
}

// BuildGraph computes the reference graph of m.
func BuildGraph(m *Module) *Graph {
	g := &Graph{
		module: m,
		index:  make(map[wgsl.DeclID]int, len(m.Decls)),
		adj:    make([][]int, len(m.Decls)),
	}
	for i, d := range m.Decls {
		g.index[d.ID] = i
	}
	for i, d := range m.Decls {
		for _, ref := range References(d.Node) {
			if j, ok := g.index[ref]; ok {
				g.adj[i] = append(g.adj[i], j)
			}
		}
	}
	return g
}

// Edges returns the IDs referenced by the declaration with the given ID.
func (g *Graph) Edges(id wgsl.DeclID) []wgsl.DeclID {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]wgsl.DeclID, len(g.adj[i]))
	for k, j := range g.adj[i] {
		out[k] = g.module.Decls[j].ID
	}
	return out
}

// Reachable returns the transitive closure of roots over the reference
// graph, roots included. Unknown IDs are ignored.
func (g *Graph) Reachable(roots []wgsl.DeclID) map[wgsl.DeclID]bool {
	visited := make([]bool, len(g.adj))
	queue := make([]int, 0, len(roots))
	for _, id := range roots {
		if i, ok := g.index[id]; ok && !visited[i] {
			visited[i] = true
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		for _, j := range g.adj[i] {
			if !visited[j] {
				visited[j] = true
				queue = append(queue, j)
			}
		}
	}

	out := make(map[wgsl.DeclID]bool)
	for i, ok := range visited {
		if ok {
			out[g.module.Decls[i].ID] = true
		}
	}
	return out
}

// Users returns the declarations that reference id.
func (g *Graph) Users(id wgsl.DeclID) []wgsl.DeclID {
	target, ok := g.index[id]
	if !ok {
		return nil
	}
	var out []wgsl.DeclID
	for i, edges := range g.adj {
		for _, j := range edges {
			if j == target {
				out = append(out, g.module.Decls[i].ID)
				break
			}
		}
	}
	return out
}
