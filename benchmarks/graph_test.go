package benchmarks

import (
	"context"
	"testing"

	"github.com/banghyang/scentflow/pkg/flowgraph"
)

// State for executor benchmarks.
type State struct {
	Value int
	Next  string
}

// noopNode does minimal work to measure framework overhead.
func noopNode(ctx flowgraph.Context, s State) (State, error) {
	return s, nil
}

func nodeID(n int) string {
	return string(rune('a'+n%26)) + string(rune('0'+n/26%10))
}

func buildLinearGraph(n int) *flowgraph.Graph[State] {
	graph := flowgraph.NewGraph[State]()
	for i := range n {
		graph.AddNode(nodeID(i), noopNode)
	}
	for i := 0; i < n-1; i++ {
		graph.AddEdge(nodeID(i), nodeID(i+1))
	}
	graph.AddEdge(nodeID(n-1), flowgraph.END)
	graph.SetEntry(nodeID(0))
	return graph
}

// buildRoutedGraph mirrors the shape of the perfume workflow: one
// classifier fanning out through labelled paths, every branch ending.
func buildRoutedGraph() *flowgraph.Graph[State] {
	classify := func(ctx flowgraph.Context, s State) (State, error) {
		switch s.Value % 3 {
		case 0:
			s.Next = "recommend"
		case 1:
			s.Next = "fashion"
		default:
			s.Next = "chat"
		}
		return s, nil
	}
	route := func(ctx flowgraph.Context, s State) string { return s.Next }

	return flowgraph.NewGraph[State]().
		AddNode("classify", classify).
		AddNode("recommend", noopNode).
		AddNode("fashion", noopNode).
		AddNode("chat", noopNode).
		AddNode("image", noopNode).
		AddConditionalEdge("classify", route, map[string]string{
			"recommend": "recommend",
			"fashion":   "fashion",
			"chat":      "chat",
		}).
		AddEdge("recommend", "image").
		AddEdge("image", flowgraph.END).
		AddEdge("fashion", flowgraph.END).
		AddEdge("chat", flowgraph.END).
		SetEntry("classify")
}

func mustCompile(g *flowgraph.Graph[State], opts ...flowgraph.CompileOption) *flowgraph.CompiledGraph[State] {
	compiled, err := g.Compile(opts...)
	if err != nil {
		panic(err)
	}
	return compiled
}

// BenchmarkCompile_Linear_10 compiles a 10-node linear graph.
func BenchmarkCompile_Linear_10(b *testing.B) {
	graph := buildLinearGraph(10)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = graph.Compile()
	}
}

// BenchmarkCompile_Routed_Acyclic compiles the routed graph with the
// acyclicity proof.
func BenchmarkCompile_Routed_Acyclic(b *testing.B) {
	graph := buildRoutedGraph()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = graph.Compile(flowgraph.RequireAcyclic())
	}
}

// BenchmarkRun_Linear_10 runs a 10-node linear graph.
func BenchmarkRun_Linear_10(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(10))
	ctx := flowgraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, State{})
	}
}

// BenchmarkRun_Routed runs the routed graph across all three branches.
func BenchmarkRun_Routed(b *testing.B) {
	compiled := mustCompile(buildRoutedGraph(), flowgraph.RequireAcyclic())
	ctx := flowgraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, State{Value: i})
	}
}

// BenchmarkContextCreation measures context creation overhead.
func BenchmarkContextCreation(b *testing.B) {
	bg := context.Background()
	for i := 0; i < b.N; i++ {
		flowgraph.NewContext(bg)
	}
}
