package flowgraph

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRun_LinearFlow tests basic linear execution.
func TestRun_LinearFlow(t *testing.T) {
	graph := NewGraph[Counter]().
		AddNode("inc1", increment).
		AddNode("inc2", increment).
		AddNode("inc3", increment).
		AddEdge("inc1", "inc2").
		AddEdge("inc2", "inc3").
		AddEdge("inc3", END).
		SetEntry("inc1")

	compiled, err := graph.Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Counter{Value: 0})

	require.NoError(t, err)
	assert.Equal(t, 3, result.Value)
}

func TestRun_LabelledRouting(t *testing.T) {
	compiled, err := branchingGraph().Compile(RequireAcyclic())
	require.NoError(t, err)

	tests := []struct {
		route string
		want  []string
	}{
		{"l", []string{"classify", "left"}},
		{"r", []string{"classify", "right"}},
		{"done", []string{"classify"}},
	}

	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			result, err := compiled.Run(testCtx(), State{Route: tt.route})
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Progress)
		})
	}
}

func TestRun_UnlabelledRouterReturnsNodeID(t *testing.T) {
	compiled, err := NewGraph[State]().
		AddNode("start", makeTrackingNode("start")).
		AddNode("target", makeTrackingNode("target")).
		AddConditionalEdge("start", func(ctx Context, s State) string { return "target" }, nil).
		AddEdge("target", END).
		SetEntry("start").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), State{})
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "target"}, result.Progress)
}

func TestRun_UnknownLabel(t *testing.T) {
	compiled, err := branchingGraph().Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), State{Route: "sideways"})

	var routerErr *RouterError
	require.ErrorAs(t, err, &routerErr)
	assert.Equal(t, "classify", routerErr.FromNode)
	assert.Equal(t, "sideways", routerErr.Returned)
	assert.ErrorIs(t, err, ErrUnknownRouteLabel)
	assert.Equal(t, []string{"classify"}, result.Progress)
}

func TestRun_EmptyRouterResult(t *testing.T) {
	compiled, err := branchingGraph().Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), State{Route: ""})
	assert.ErrorIs(t, err, ErrInvalidRouterResult)
}

func TestRun_UnlabelledRouterUnknownTarget(t *testing.T) {
	compiled, err := NewGraph[State]().
		AddNode("start", passthrough[State]).
		AddConditionalEdge("start", func(ctx Context, s State) string { return "nowhere" }, nil).
		SetEntry("start").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), State{})
	assert.ErrorIs(t, err, ErrRouterTargetNotFound)
}

func TestRun_NodeError(t *testing.T) {
	boom := errors.New("boom")
	compiled, err := NewGraph[State]().
		AddNode("a", makeTrackingNode("a")).
		AddNode("fail", makeFailingNode(boom)).
		AddEdge("a", "fail").
		AddEdge("fail", END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), State{})

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "fail", nodeErr.NodeID)
	assert.Equal(t, "execute", nodeErr.Op)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a"}, result.Progress)
}

func TestRun_PanicRecovered(t *testing.T) {
	compiled, err := NewGraph[State]().
		AddNode("a", makeTrackingNode("a")).
		AddNode("explode", makePanicNode("kaboom")).
		AddEdge("a", "explode").
		AddEdge("explode", END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), State{})

	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "explode", panicErr.NodeID)
	assert.Equal(t, "kaboom", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)
	assert.Equal(t, []string{"a"}, result.Progress)
}

func TestRun_NilContext(t *testing.T) {
	compiled, err := branchingGraph().Compile()
	require.NoError(t, err)

	//nolint:staticcheck // nil context is the case under test
	_, err = compiled.Run(nil, State{})
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	compiled, err := branchingGraph().Compile()
	require.NoError(t, err)

	base, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = compiled.Run(NewContext(base), State{Route: "l"})

	var cancelErr *CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.Equal(t, "classify", cancelErr.NodeID)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_CancelledBetweenNodes(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	defer cancel()

	compiled, err := NewGraph[State]().
		AddNode("first", func(ctx Context, s State) (State, error) {
			cancel()
			s.Progress = append(s.Progress, "first")
			return s, nil
		}).
		AddNode("second", makeTrackingNode("second")).
		AddEdge("first", "second").
		AddEdge("second", END).
		SetEntry("first").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(NewContext(base), State{})

	var cancelErr *CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.Equal(t, "second", cancelErr.NodeID)
	assert.Equal(t, []string{"first"}, result.Progress)
}

func TestRun_DeadlineExceeded(t *testing.T) {
	base, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	compiled, err := branchingGraph().Compile()
	require.NoError(t, err)

	_, err = compiled.Run(NewContext(base), State{Route: "l"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_MaxIterations(t *testing.T) {
	compiled, err := NewGraph[Counter]().
		AddNode("loop", increment).
		AddConditionalEdge("loop", func(ctx Context, s Counter) string {
			return "again"
		}, map[string]string{"again": "loop", "stop": END}).
		SetEntry("loop").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Counter{}, WithMaxIterations(5))

	var maxErr *MaxIterationsError
	require.ErrorAs(t, err, &maxErr)
	assert.Equal(t, 5, maxErr.Max)
	assert.Equal(t, "loop", maxErr.LastNodeID)
	assert.ErrorIs(t, err, ErrMaxIterations)
	assert.Equal(t, 5, result.Value)
}

func TestRun_LoopTerminatesByRouter(t *testing.T) {
	compiled, err := NewGraph[Counter]().
		AddNode("loop", increment).
		AddConditionalEdge("loop", func(ctx Context, s Counter) string {
			if s.Value >= 3 {
				return "stop"
			}
			return "again"
		}, map[string]string{"again": "loop", "stop": END}).
		SetEntry("loop").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Counter{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Value)
}

func TestRun_NodeContextMetadata(t *testing.T) {
	var seenNode, seenRun string
	compiled, err := NewGraph[State]().
		AddNode("inspect", func(ctx Context, s State) (State, error) {
			seenNode = ctx.NodeID()
			seenRun = ctx.RunID()
			assert.NotNil(t, ctx.Logger())
			return s, nil
		}).
		AddEdge("inspect", END).
		SetEntry("inspect").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(NewContext(context.Background(), WithContextRunID("run-42")), State{})
	require.NoError(t, err)
	assert.Equal(t, "inspect", seenNode)
	assert.Equal(t, "run-42", seenRun)
}

func TestRun_NodeLoggerCarriesRunAndNode(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	compiled, err := NewGraph[State]().
		AddNode("chat_handler", func(ctx Context, s State) (State, error) {
			ctx.Logger().Info("inside node")
			return s, nil
		}).
		AddEdge("chat_handler", END).
		SetEntry("chat_handler").
		Compile()
	require.NoError(t, err)

	ctx := NewContext(context.Background(), WithLogger(logger), WithContextRunID("run-7"))
	_, err = compiled.Run(ctx, State{})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"msg":"inside node","run_id":"run-7","node_id":"chat_handler"`)
}

func TestRun_RouterSeesNodeID(t *testing.T) {
	var routerNode string
	compiled, err := NewGraph[State]().
		AddNode("decide", passthrough[State]).
		AddConditionalEdge("decide", func(ctx Context, s State) string {
			routerNode = ctx.NodeID()
			return "end"
		}, map[string]string{"end": END}).
		SetEntry("decide").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), State{})
	require.NoError(t, err)
	assert.Equal(t, "decide", routerNode)
}

func TestRun_ConcurrentRunsShareCompiledGraph(t *testing.T) {
	compiled, err := branchingGraph().Compile(RequireAcyclic())
	require.NoError(t, err)

	const runs = 20
	results := make(chan []string, runs)
	for i := 0; i < runs; i++ {
		route := "l"
		if i%2 == 1 {
			route = "r"
		}
		go func(route string) {
			result, err := compiled.Run(testCtx(), State{Route: route})
			if err != nil {
				results <- nil
				return
			}
			results <- result.Progress
		}(route)
	}

	for i := 0; i < runs; i++ {
		progress := <-results
		require.Len(t, progress, 2)
		assert.Equal(t, "classify", progress[0])
	}
}

func TestLastNodeOf(t *testing.T) {
	assert.Equal(t, "n", lastNodeOf(&NodeError{NodeID: "n", Err: errors.New("x")}))
	assert.Equal(t, "p", lastNodeOf(&PanicError{NodeID: "p"}))
	assert.Equal(t, "m", lastNodeOf(&MaxIterationsError{LastNodeID: "m"}))
	assert.Equal(t, "c", lastNodeOf(&CancellationError{NodeID: "c", Cause: context.Canceled}))
	assert.Equal(t, "r", lastNodeOf(&RouterError{FromNode: "r", Err: ErrUnknownRouteLabel}))
	assert.Equal(t, "", lastNodeOf(errors.New("plain")))
}
