// Package graph models dependencies between schema modules as a directed
// graph with typed edges. It answers two questions the compilation pipeline
// asks: in what order can modules be emitted (topological sort), and which
// modules form dependency cycles (strongly connected components).
package graph

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// EdgeKind classifies why one module depends on another.
type EdgeKind int

const (
	// EdgeImport is a direct import declared by the module.
	EdgeImport EdgeKind = iota
	// EdgeTypeReference is a dependency discovered by walking type trees.
	EdgeTypeReference
	// EdgeTransitive is a dependency inherited through another module.
	EdgeTransitive
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeImport:
		return "import"
	case EdgeTypeReference:
		return "type_reference"
	case EdgeTransitive:
		return "transitive"
	default:
		return "unknown"
	}
}

// MarshalJSON serializes the kind as its string name.
func (k EdgeKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON parses the string form produced by MarshalJSON.
func (k *EdgeKind) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "import":
		*k = EdgeImport
	case "type_reference":
		*k = EdgeTypeReference
	case "transitive":
		*k = EdgeTransitive
	default:
		return fmt.Errorf("unknown edge kind: %s", data)
	}
	return nil
}

// Edge is one dependency between two registered modules.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind EdgeKind `json:"kind"`
}

// CycleError reports that the graph cannot be topologically ordered. Members
// holds every module implicated in a cycle.
type CycleError struct {
	Members []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency detected among modules: %s", strings.Join(e.Members, ", "))
}

// Graph is a directed dependency graph over named modules. Edges between
// unregistered modules are dropped. All queries are safe for concurrent use.
type Graph struct {
	mu         sync.RWMutex
	order      []string
	nodes      map[string]int
	edges      map[string]map[string]EdgeKind
	dependents map[string]map[string]struct{}
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:      make(map[string]int),
		edges:      make(map[string]map[string]EdgeKind),
		dependents: make(map[string]map[string]struct{}),
	}
}

// AddModule registers a module node. Re-adding an existing module is a no-op.
func (g *Graph) AddModule(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[name]; ok {
		return
	}
	g.nodes[name] = len(g.order)
	g.order = append(g.order, name)
}

// AddDependency records that from depends on to. Both endpoints must already
// be registered; edges to unknown modules are silently dropped. The first
// recorded kind between a pair wins.
func (g *Graph) AddDependency(from, to string, kind EdgeKind) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[from]; !ok {
		return
	}
	if _, ok := g.nodes[to]; !ok {
		return
	}

	if g.edges[from] == nil {
		g.edges[from] = make(map[string]EdgeKind)
	}
	if _, exists := g.edges[from][to]; exists {
		return
	}
	g.edges[from][to] = kind

	if g.dependents[to] == nil {
		g.dependents[to] = make(map[string]struct{})
	}
	g.dependents[to][from] = struct{}{}
}

// HasModule reports whether a module is registered.
func (g *Graph) HasModule(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[name]
	return ok
}

// Len returns the number of registered modules.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.order)
}

// Modules returns all module names in registration order.
func (g *Graph) Modules() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Edges returns every recorded edge, ordered by the registration order of
// the source module, then of the target.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Edge
	for _, from := range g.order {
		targets := g.edges[from]
		if len(targets) == 0 {
			continue
		}
		names := make([]string, 0, len(targets))
		for to := range targets {
			names = append(names, to)
		}
		g.sortByRegistration(names)
		for _, to := range names {
			out = append(out, Edge{From: from, To: to, Kind: targets[to]})
		}
	}
	return out
}

// Dependencies returns the modules that name directly depends on.
func (g *Graph) Dependencies(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]string, 0, len(g.edges[name]))
	for to := range g.edges[name] {
		out = append(out, to)
	}
	g.sortByRegistration(out)
	return out
}

// Dependents returns the modules that directly depend on name.
func (g *Graph) Dependents(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]string, 0, len(g.dependents[name]))
	for from := range g.dependents[name] {
		out = append(out, from)
	}
	g.sortByRegistration(out)
	return out
}

// TransitiveDependents returns every module that depends on name directly
// or through other modules. Used to decide what to regenerate when one
// module's schema changes.
func (g *Graph) TransitiveDependents(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[string]struct{})
	var visit func(string)
	visit = func(current string) {
		for from := range g.dependents[current] {
			if _, seen := visited[from]; seen {
				continue
			}
			visited[from] = struct{}{}
			visit(from)
		}
	}
	visit(name)

	out := make([]string, 0, len(visited))
	for name := range visited {
		out = append(out, name)
	}
	g.sortByRegistration(out)
	return out
}

// TopologicalSort orders modules so that every module appears after the
// modules it depends on. Self-edges are ignored. Returns a *CycleError
// naming the implicated modules when the graph is cyclic.
func (g *Graph) TopologicalSort() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	inDegree := make(map[string]int, len(g.order))
	for _, name := range g.order {
		inDegree[name] = 0
	}
	for from, targets := range g.edges {
		for to := range targets {
			if from == to {
				continue
			}
			inDegree[from]++
		}
	}

	var queue []string
	for _, name := range g.order {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	sorted := make([]string, 0, len(g.order))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		sorted = append(sorted, current)

		var freed []string
		for from := range g.dependents[current] {
			if from == current {
				continue
			}
			inDegree[from]--
			if inDegree[from] == 0 {
				freed = append(freed, from)
			}
		}
		g.sortByRegistration(freed)
		queue = append(queue, freed...)
	}

	if len(sorted) != len(g.order) {
		return nil, &CycleError{Members: g.cycleMembers()}
	}
	return sorted, nil
}

// DetectCycles returns every dependency cycle as the members of a strongly
// connected component of size greater than one. Self-referential modules
// are not reported. Each cycle is sorted; cycles are ordered by their
// smallest member.
func (g *Graph) DetectCycles() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cyclesLocked()
}

// cycleMembers flattens all detected cycles into one sorted name list.
func (g *Graph) cycleMembers() []string {
	var members []string
	for _, cycle := range g.cyclesLocked() {
		members = append(members, cycle...)
	}
	sort.Strings(members)
	return members
}

// cyclesLocked runs Tarjan's algorithm. Caller holds at least a read lock.
func (g *Graph) cyclesLocked() [][]string {
	index := 0
	indices := make(map[string]int)
	lowlink := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	var components [][]string

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		targets := make([]string, 0, len(g.edges[v]))
		for to := range g.edges[v] {
			targets = append(targets, to)
		}
		g.sortByRegistration(targets)
		for _, w := range targets {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			var component []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				component = append(component, w)
				if w == v {
					break
				}
			}
			if len(component) > 1 {
				sort.Strings(component)
				components = append(components, component)
			}
		}
	}

	for _, name := range g.order {
		if _, visited := indices[name]; !visited {
			strongConnect(name)
		}
	}

	sort.Slice(components, func(i, j int) bool {
		return components[i][0] < components[j][0]
	})
	return components
}

// sortByRegistration orders names by when their modules were added.
func (g *Graph) sortByRegistration(names []string) {
	sort.Slice(names, func(i, j int) bool {
		return g.nodes[names[i]] < g.nodes[names[j]]
	})
}
