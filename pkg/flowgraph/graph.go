package flowgraph

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable builder for creating execution graphs.
// Use NewGraph to create a new graph, then chain AddNode, AddEdge,
// AddConditionalEdge and SetEntry calls to define the workflow.
//
// Graph is NOT thread-safe during building. Use a single goroutine
// to construct the graph, then call Compile() to create an immutable
// CompiledGraph that can be safely shared.
//
// Example:
//
//	graph := flowgraph.NewGraph[MyState]().
//	    AddNode("classify", classifyNode).
//	    AddNode("answer", answerNode).
//	    AddNode("fail", failNode).
//	    AddConditionalEdge("classify", route, map[string]string{
//	        "ok":    "answer",
//	        "error": "fail",
//	    }).
//	    AddEdge("answer", flowgraph.END).
//	    AddEdge("fail", flowgraph.END).
//	    SetEntry("classify")
//
//	compiled, err := graph.Compile(flowgraph.RequireAcyclic())
type Graph[S any] struct {
	mu               sync.RWMutex
	nodes            map[string]NodeFunc[S]
	edges            map[string]string
	conditionalEdges map[string]conditionalEdge[S]
	entryPoint       string

	// duplicateEdges records sources that received more than one static edge.
	duplicateEdges []string
}

// conditionalEdge pairs a router with an optional label -> node path map.
type conditionalEdge[S any] struct {
	router RouterFunc[S]
	paths  map[string]string
}

// NewGraph creates a new graph builder for state type S.
// The type parameter S defines the state that flows through the graph.
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:            make(map[string]NodeFunc[S]),
		edges:            make(map[string]string),
		conditionalEdges: make(map[string]conditionalEdge[S]),
	}
}

// AddNode adds a named node to the graph.
// Returns the graph for method chaining.
//
// Panics if:
//   - id is empty
//   - id is the reserved word "END" or "__end__" (case-insensitive)
//   - id contains whitespace (space, tab, newline)
//   - fn is nil
//   - id already exists in the graph
func (g *Graph[S]) AddNode(id string, fn NodeFunc[S]) *Graph[S] {
	if id == "" {
		panic("flowgraph: node ID cannot be empty")
	}

	idLower := strings.ToLower(id)
	if idLower == "end" || idLower == "__end__" {
		panic("flowgraph: node ID cannot be reserved word 'END'")
	}

	if strings.ContainsAny(id, " \t\n\r") {
		panic("flowgraph: node ID cannot contain whitespace")
	}

	if fn == nil {
		panic("flowgraph: node function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; exists {
		panic(fmt.Sprintf("flowgraph: duplicate node ID: %s", id))
	}

	g.nodes[id] = fn
	return g
}

// AddEdge adds the static successor of a node.
// The target can be a node ID or flowgraph.END.
// Returns the graph for method chaining.
//
// A node has exactly one static successor; adding a second one is
// reported by Compile as ErrDuplicateEdge.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.edges[from]; exists {
		g.duplicateEdges = append(g.duplicateEdges, from)
	}
	g.edges[from] = to
	return g
}

// AddConditionalEdge adds a conditional edge where a RouterFunc
// determines the next hop at runtime based on state.
// Returns the graph for method chaining.
//
// paths is optional. When given, the router's return value is treated as
// a label and translated through paths; every target in paths is
// validated at compile time, which lets Compile prove the graph acyclic.
// When paths is nil the router must return a node ID or flowgraph.END.
//
// If a node has both a static edge and a conditional edge, the conditional
// edge takes precedence.
func (g *Graph[S]) AddConditionalEdge(from string, router RouterFunc[S], paths map[string]string) *Graph[S] {
	if router == nil {
		panic("flowgraph: router function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var copied map[string]string
	if paths != nil {
		copied = make(map[string]string, len(paths))
		for label, target := range paths {
			copied[label] = target
		}
	}

	g.conditionalEdges[from] = conditionalEdge[S]{router: router, paths: copied}
	return g
}

// SetEntry designates the entry point node.
// This must be called before Compile().
// Returns the graph for method chaining.
func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}
