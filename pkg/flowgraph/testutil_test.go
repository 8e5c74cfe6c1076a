package flowgraph

import (
	"context"
)

// Test state types used across tests

// Counter is a simple state for testing incrementing.
type Counter struct {
	Value int
}

// State is a richer state for routing scenarios.
type State struct {
	Progress []string
	Route    string
	Output   string
}

// increment is a node that increments the counter.
func increment(ctx Context, s Counter) (Counter, error) {
	s.Value++
	return s, nil
}

// passthrough returns the state unchanged.
func passthrough[S any](ctx Context, s S) (S, error) {
	return s, nil
}

// makeTrackingNode creates a node that records its execution.
func makeTrackingNode(name string) NodeFunc[State] {
	return func(ctx Context, s State) (State, error) {
		s.Progress = append(s.Progress, name)
		return s, nil
	}
}

// makeFailingNode creates a node that returns the given error.
func makeFailingNode(err error) NodeFunc[State] {
	return func(ctx Context, s State) (State, error) {
		return s, err
	}
}

// makePanicNode creates a node that panics with the given value.
func makePanicNode(value any) NodeFunc[State] {
	return func(ctx Context, s State) (State, error) {
		panic(value)
	}
}

// routeByField is a labelled router returning State.Route.
func routeByField(ctx Context, s State) string {
	return s.Route
}

// testCtx creates a simple test context.
func testCtx() Context {
	return NewContext(context.Background())
}

// branchingGraph builds classify -> {left, right} -> END with labelled routes.
func branchingGraph() *Graph[State] {
	return NewGraph[State]().
		AddNode("classify", makeTrackingNode("classify")).
		AddNode("left", makeTrackingNode("left")).
		AddNode("right", makeTrackingNode("right")).
		AddConditionalEdge("classify", routeByField, map[string]string{
			"l":    "left",
			"r":    "right",
			"done": END,
		}).
		AddEdge("left", END).
		AddEdge("right", END).
		SetEntry("classify")
}
