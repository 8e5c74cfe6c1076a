package flowgraph

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// compileConfig holds options that tighten compile-time validation.
type compileConfig struct {
	requireAcyclic bool
}

// CompileOption configures Compile.
type CompileOption func(*compileConfig)

// RequireAcyclic makes Compile fail with ErrCycle when any node can reach
// itself. Conditional edges without a path map are assumed to reach every
// node, so graphs that need this check should label their routes.
func RequireAcyclic() CompileOption {
	return func(c *compileConfig) {
		c.requireAcyclic = true
	}
}

// Compile validates the graph and creates an executable CompiledGraph.
// Returns an error if validation fails. Multiple errors are joined together.
//
// Validation checks (in order):
//  1. Entry point must be set
//  2. Entry point must reference an existing node
//  3. Each node has at most one static edge
//  4. All edge sources and targets (including path map targets) must exist
//  5. A path to END must exist from the entry point
//  6. With RequireAcyclic, no node may reach itself
//
// Unreachable nodes (not reachable from entry) are logged as warnings
// but do not cause compilation to fail.
func (g *Graph[S]) Compile(opts ...CompileOption) (*CompiledGraph[S], error) {
	var cfg compileConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	if g.entryPoint == "" {
		errs = append(errs, ErrNoEntryPoint)
	} else if _, exists := g.nodes[g.entryPoint]; !exists {
		errs = append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, g.entryPoint))
	}

	for _, from := range g.duplicateEdges {
		errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateEdge, from))
	}

	for from, to := range g.edges {
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: edge source '%s' does not exist", ErrNodeNotFound, from))
		}
		if !g.isTarget(to) {
			errs = append(errs, fmt.Errorf("%w: edge target '%s' does not exist", ErrNodeNotFound, to))
		}
	}

	for from, edge := range g.conditionalEdges {
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: conditional edge source '%s' does not exist", ErrNodeNotFound, from))
		}
		for label, to := range edge.paths {
			if !g.isTarget(to) {
				errs = append(errs, fmt.Errorf("%w: route '%s' from '%s' targets '%s'", ErrNodeNotFound, label, from, to))
			}
		}
	}

	if _, exists := g.nodes[g.entryPoint]; exists && !g.hasPathToEnd() {
		errs = append(errs, ErrNoPathToEnd)
	}

	acyclic := true
	if len(errs) == 0 {
		if cycle := g.findCycle(); cycle != nil {
			acyclic = false
			if cfg.requireAcyclic {
				errs = append(errs, fmt.Errorf("%w: %v", ErrCycle, cycle))
			}
		}
	}

	g.warnUnreachableNodes()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return g.buildCompiledGraph(acyclic), nil
}

// isTarget reports whether id may be used as an edge target.
func (g *Graph[S]) isTarget(id string) bool {
	if id == END {
		return true
	}
	_, exists := g.nodes[id]
	return exists
}

// targets returns every node a given node may hand control to.
// Unlabelled conditional edges may reach any node, including END.
func (g *Graph[S]) targets(id string) []string {
	if edge, ok := g.conditionalEdges[id]; ok {
		if edge.paths == nil {
			all := make([]string, 0, len(g.nodes)+1)
			for nodeID := range g.nodes {
				all = append(all, nodeID)
			}
			sort.Strings(all)
			return append(all, END)
		}
		out := make([]string, 0, len(edge.paths))
		for _, to := range edge.paths {
			out = append(out, to)
		}
		sort.Strings(out)
		return out
	}
	if to, ok := g.edges[id]; ok {
		return []string{to}
	}
	return nil
}

// hasPathToEnd checks if there's a path from entry to END.
func (g *Graph[S]) hasPathToEnd() bool {
	canReachEnd := map[string]bool{END: true}

	changed := true
	for changed {
		changed = false
		for nodeID := range g.nodes {
			if canReachEnd[nodeID] {
				continue
			}
			for _, to := range g.targets(nodeID) {
				if canReachEnd[to] {
					canReachEnd[nodeID] = true
					changed = true
					break
				}
			}
		}
	}

	return canReachEnd[g.entryPoint]
}

// findCycle returns the node IDs of one cycle, or nil if the graph is acyclic.
func (g *Graph[S]) findCycle() []string {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(g.nodes))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = grey
		stack = append(stack, id)
		for _, to := range g.targets(id) {
			if to == END {
				continue
			}
			switch color[to] {
			case grey:
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == to {
						cycle = append([]string(nil), stack[i:]...)
						break
					}
				}
				return true
			case white:
				if visit(to) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if color[id] == white && visit(id) {
			return cycle
		}
	}
	return nil
}

// warnUnreachableNodes logs warnings for nodes not reachable from entry.
func (g *Graph[S]) warnUnreachableNodes() {
	if g.entryPoint == "" {
		return
	}

	reachable := g.findReachableNodes()

	for nodeID := range g.nodes {
		if !reachable[nodeID] {
			slog.Warn("node is unreachable from entry", "node_id", nodeID)
		}
	}
}

// findReachableNodes returns the set of nodes reachable from the entry point.
func (g *Graph[S]) findReachableNodes() map[string]bool {
	reachable := make(map[string]bool)
	if g.entryPoint == "" {
		return reachable
	}

	queue := []string{g.entryPoint}
	reachable[g.entryPoint] = true

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, target := range g.targets(current) {
			if target != END && !reachable[target] {
				reachable[target] = true
				queue = append(queue, target)
			}
		}
	}

	return reachable
}

// buildCompiledGraph creates the immutable CompiledGraph from the builder state.
func (g *Graph[S]) buildCompiledGraph(acyclic bool) *CompiledGraph[S] {
	nodes := make(map[string]NodeFunc[S], len(g.nodes))
	for id, fn := range g.nodes {
		nodes[id] = fn
	}

	edges := make(map[string]string, len(g.edges))
	for from, to := range g.edges {
		edges[from] = to
	}

	conditionalEdges := make(map[string]conditionalEdge[S], len(g.conditionalEdges))
	for from, edge := range g.conditionalEdges {
		conditionalEdges[from] = edge
	}

	successors := make(map[string][]string, len(nodes))
	predecessors := make(map[string][]string)
	for id := range nodes {
		targets := g.targets(id)
		successors[id] = targets
		for _, to := range targets {
			if to != END {
				predecessors[to] = append(predecessors[to], id)
			}
		}
	}
	for to := range predecessors {
		sort.Strings(predecessors[to])
	}

	return &CompiledGraph[S]{
		nodes:            nodes,
		edges:            edges,
		conditionalEdges: conditionalEdges,
		entryPoint:       g.entryPoint,
		successors:       successors,
		predecessors:     predecessors,
		acyclic:          acyclic,
	}
}
