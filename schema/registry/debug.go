package registry

import (
	"encoding/json"
	"sort"

	"github.com/smelter-dev/smelter/schema/graph"
)

// DebugData is the JSON-serializable snapshot of a registry, used by
// tooling to inspect and replay a compilation run's module index.
type DebugData struct {
	Modules         map[string]*ModuleInfo `json:"modules"`
	DependencyEdges []graph.Edge           `json:"dependency_edges"`
	Cycles          [][]string             `json:"cycles"`
}

// ToDebugData exports the registry's modules, edges, and detected cycles.
func (r *Registry) ToDebugData() DebugData {
	modules := make(map[string]*ModuleInfo, len(r.modules))
	for name, info := range r.modules {
		clone := *info
		clone.Types = append([]string(nil), info.Types...)
		modules[name] = &clone
	}

	data := DebugData{Modules: modules, Cycles: r.DetectCycles()}
	if r.graph != nil {
		data.DependencyEdges = r.graph.Edges()
	}
	return data
}

// FromDebugData rebuilds a registry from an exported snapshot. Modules are
// re-registered in name order and the dependency graph is rebuilt from the
// recorded edges.
func FromDebugData(data DebugData) *Registry {
	r := &Registry{modules: make(map[string]*ModuleInfo, len(data.Modules))}

	names := make([]string, 0, len(data.Modules))
	for name := range data.Modules {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		info := data.Modules[name]
		clone := *info
		clone.Types = append([]string(nil), info.Types...)
		sort.Strings(clone.Types)
		r.modules[name] = &clone
		r.order = append(r.order, name)
	}

	g := graph.New()
	for _, name := range r.order {
		g.AddModule(name)
	}
	for _, edge := range data.DependencyEdges {
		g.AddDependency(edge.From, edge.To, edge.Kind)
	}
	r.graph = g
	return r
}

// EncodeDebugData serializes the snapshot as indented JSON.
func EncodeDebugData(data DebugData) ([]byte, error) {
	return json.MarshalIndent(data, "", "  ")
}

// DecodeDebugData parses a snapshot produced by EncodeDebugData.
func DecodeDebugData(raw []byte) (DebugData, error) {
	var data DebugData
	if err := json.Unmarshal(raw, &data); err != nil {
		return DebugData{}, err
	}
	return data, nil
}
