/*
Package flowgraph provides the graph executor used by scentflow.

# Overview

A graph is a table of named nodes over one state value. Each node has
either a static successor or a router; the executor runs one node at a time
from the entry point until a node hands control to END.

	type State struct {
	    Input  string
	    Output string
	}

	func echo(ctx flowgraph.Context, s State) (State, error) {
	    s.Output = s.Input
	    return s, nil
	}

	compiled, err := flowgraph.NewGraph[State]().
	    AddNode("echo", echo).
	    AddEdge("echo", flowgraph.END).
	    SetEntry("echo").
	    Compile()
	if err != nil {
	    log.Fatal(err)
	}

	result, err := compiled.Run(flowgraph.NewContext(ctx), State{Input: "hello"})

# Conditional Branching

Routers return a label; the path map translates labels to nodes. Labelled
routes are validated at compile time and let RequireAcyclic prove that
every run terminates:

	graph.AddConditionalEdge("classify", func(ctx flowgraph.Context, s State) string {
	    if s.Err != "" {
	        return "error"
	    }
	    return "answer"
	}, map[string]string{
	    "answer": "answer",
	    "error":  "error_handler",
	})

A nil path map means the router returns node IDs directly. Such routers
may reach any node, so graphs using them are bounded only by
WithMaxIterations (default 1000).

# Services

Nodes get their collaborators (model clients, stores) by closure when the
graph is built, not through the Context. The Context carries the
cancellation signal, a logger enriched with run_id and node_id, and the
run identifier.

# Observability

	result, err := compiled.Run(ctx, state,
	    flowgraph.WithObservabilityLogger(logger),
	    flowgraph.WithMetrics(true),
	    flowgraph.WithTracing(true),
	    flowgraph.WithRunID("run-123"))

OpenTelemetry metrics: flowgraph.node.executions, flowgraph.node.latency_ms,
flowgraph.graph.runs. Spans: flowgraph.run > flowgraph.node.{id}.

# Error Handling

Node errors are wrapped in NodeError; panics are recovered into PanicError
with a stack trace. Graphs whose nodes record failures in state instead of
returning them never see either.

# Thread Safety

  - Graph[S] is NOT safe for concurrent use during construction
  - CompiledGraph[S] IS safe for concurrent use (immutable)
  - Context IS safe for concurrent use

# Subpackages

  - config: file-backed configuration with typed accessors
  - errors: failure taxonomy, categorization and retry
  - llm: language model client interface and providers
  - observability: logging, metrics, and tracing helpers
  - registry: concurrent keyed registry
  - template: ${var} expansion
*/
package flowgraph
