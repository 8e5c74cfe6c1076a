package flowgraph

// END is the terminal node identifier.
// Use this as an edge target to indicate the graph should terminate.
const END = "__end__"

// NodeFunc is the signature for all node functions.
// Nodes receive the execution context and current state,
// and return the updated state and any error.
//
// The state parameter is passed by value. A node owns the value it receives
// until it returns it; the executor hands the returned value to the next node.
//
// Example:
//
//	func classify(ctx flowgraph.Context, s Request) (Request, error) {
//	    s.Intent = parse(s.Input)
//	    return s, nil
//	}
type NodeFunc[S any] func(ctx Context, state S) (S, error)

// RouterFunc determines the next hop based on state.
//
// Without a path map the router returns a node ID or flowgraph.END.
// With a path map (see AddConditionalEdge) it returns a label that the
// path map translates into a node ID.
//
// Example:
//
//	func router(ctx flowgraph.Context, s State) string {
//	    if s.Err != "" {
//	        return "failed"
//	    }
//	    return "ok"
//	}
type RouterFunc[S any] func(ctx Context, state S) string
