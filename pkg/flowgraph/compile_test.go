package flowgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_NoEntryPoint(t *testing.T) {
	_, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddEdge("a", END).
		Compile()

	assert.ErrorIs(t, err, ErrNoEntryPoint)
}

func TestCompile_EntryNotFound(t *testing.T) {
	_, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddEdge("a", END).
		SetEntry("missing").
		Compile()

	assert.ErrorIs(t, err, ErrEntryNotFound)
	assert.Contains(t, err.Error(), "missing")
}

func TestCompile_EdgeToMissingNode(t *testing.T) {
	_, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddEdge("a", "ghost").
		SetEntry("a").
		Compile()

	assert.ErrorIs(t, err, ErrNodeNotFound)
	assert.Contains(t, err.Error(), "ghost")
}

func TestCompile_EdgeFromMissingNode(t *testing.T) {
	_, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddEdge("a", END).
		AddEdge("ghost", "a").
		SetEntry("a").
		Compile()

	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestCompile_PathMapTargetMissing(t *testing.T) {
	_, err := NewGraph[State]().
		AddNode("a", passthrough[State]).
		AddConditionalEdge("a", routeByField, map[string]string{
			"ok":  END,
			"bad": "nowhere",
		}).
		SetEntry("a").
		Compile()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNodeNotFound)
	assert.Contains(t, err.Error(), "route 'bad'")
}

func TestCompile_DuplicateEdge(t *testing.T) {
	_, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddNode("b", increment).
		AddEdge("a", "b").
		AddEdge("a", END).
		AddEdge("b", END).
		SetEntry("a").
		Compile()

	assert.ErrorIs(t, err, ErrDuplicateEdge)
}

func TestCompile_NoPathToEnd(t *testing.T) {
	_, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddNode("b", increment).
		AddEdge("a", "b").
		AddEdge("b", "a").
		SetEntry("a").
		Compile()

	assert.ErrorIs(t, err, ErrNoPathToEnd)
}

func TestCompile_MultipleErrorsJoined(t *testing.T) {
	_, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddEdge("a", "ghost").
		AddEdge("phantom", END).
		Compile()

	assert.ErrorIs(t, err, ErrNoEntryPoint)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestCompile_CycleAllowedByDefault(t *testing.T) {
	compiled, err := NewGraph[State]().
		AddNode("loop", passthrough[State]).
		AddConditionalEdge("loop", routeByField, map[string]string{
			"again": "loop",
			"stop":  END,
		}).
		SetEntry("loop").
		Compile()

	require.NoError(t, err)
	assert.False(t, compiled.IsAcyclic())
}

func TestCompile_RequireAcyclicRejectsCycle(t *testing.T) {
	_, err := NewGraph[State]().
		AddNode("a", passthrough[State]).
		AddNode("b", passthrough[State]).
		AddEdge("a", "b").
		AddConditionalEdge("b", routeByField, map[string]string{
			"back": "a",
			"stop": END,
		}).
		SetEntry("a").
		Compile(RequireAcyclic())

	assert.ErrorIs(t, err, ErrCycle)
}

func TestCompile_RequireAcyclicAcceptsLabelledBranches(t *testing.T) {
	compiled, err := branchingGraph().Compile(RequireAcyclic())

	require.NoError(t, err)
	assert.True(t, compiled.IsAcyclic())
}

func TestCompile_UnlabelledRouterIsNotAcyclic(t *testing.T) {
	compiled, err := NewGraph[State]().
		AddNode("a", passthrough[State]).
		AddConditionalEdge("a", routeByField, nil).
		SetEntry("a").
		Compile()

	require.NoError(t, err)
	assert.False(t, compiled.IsAcyclic())
}

func TestCompile_UnreachableNodeStillCompiles(t *testing.T) {
	compiled, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddNode("orphan", increment).
		AddEdge("a", END).
		AddEdge("orphan", END).
		SetEntry("a").
		Compile()

	require.NoError(t, err)
	assert.True(t, compiled.HasNode("orphan"))
}

func TestCompiledGraph_Introspection(t *testing.T) {
	compiled, err := branchingGraph().Compile()
	require.NoError(t, err)

	assert.Equal(t, "classify", compiled.EntryPoint())
	assert.Equal(t, []string{"classify", "left", "right"}, compiled.NodeIDs())
	assert.True(t, compiled.HasNode("left"))
	assert.False(t, compiled.HasNode("missing"))

	assert.ElementsMatch(t, []string{"left", "right", END}, compiled.Successors("classify"))
	assert.Equal(t, []string{END}, compiled.Successors("left"))
	assert.Nil(t, compiled.Successors(END))

	assert.Equal(t, []string{"classify"}, compiled.Predecessors("left"))
	assert.Nil(t, compiled.Predecessors("classify"))

	assert.True(t, compiled.IsConditional("classify"))
	assert.False(t, compiled.IsConditional("left"))
}
