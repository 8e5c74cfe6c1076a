package perfume

import "github.com/banghyang/scentflow/pkg/flowgraph"

// Node identifiers.
const (
	NodeInputProcessor   = "input_processor"
	NodeIntentClassifier = "intent_classifier"
	NodeRecommendation   = "recommendation_generator"
	NodeFashion          = "fashion_recommendation_generator"
	NodeChat             = "chat_handler"
	NodeImageGenerator   = "image_generator"
	NodeErrorHandler     = "error_handler"
)

// routeNext follows the hop the node wrote to State.Next. The path maps
// below restrict where each node may go.
func routeNext(_ flowgraph.Context, s State) string {
	return s.Next
}

func pathsTo(targets ...string) map[string]string {
	paths := make(map[string]string, len(targets))
	for _, t := range targets {
		paths[t] = t
	}
	return paths
}

// buildGraph wires the workflow. Every path ends at END after at most
// four nodes; Compile rejects the graph if that ever stops being true.
func (e *Engine) buildGraph() (*flowgraph.CompiledGraph[State], error) {
	return flowgraph.NewGraph[State]().
		AddNode(NodeInputProcessor, e.processInput).
		AddNode(NodeIntentClassifier, e.classifyIntent).
		AddNode(NodeRecommendation, e.recommendationNode(IntentRecommendation, NodeImageGenerator)).
		AddNode(NodeFashion, e.recommendationNode(IntentFashionRecommendation, flowgraph.END)).
		AddNode(NodeChat, e.chat).
		AddNode(NodeImageGenerator, e.generateImage).
		AddNode(NodeErrorHandler, e.handleError).
		AddConditionalEdge(NodeInputProcessor, routeNext, pathsTo(NodeIntentClassifier, NodeErrorHandler)).
		AddConditionalEdge(NodeIntentClassifier, routeNext, pathsTo(NodeRecommendation, NodeFashion, NodeChat)).
		AddConditionalEdge(NodeRecommendation, routeNext, pathsTo(NodeImageGenerator, NodeErrorHandler)).
		AddConditionalEdge(NodeFashion, routeNext, pathsTo(flowgraph.END, NodeErrorHandler)).
		AddConditionalEdge(NodeChat, routeNext, pathsTo(flowgraph.END, NodeErrorHandler)).
		AddEdge(NodeImageGenerator, flowgraph.END).
		AddEdge(NodeErrorHandler, flowgraph.END).
		SetEntry(NodeInputProcessor).
		Compile(flowgraph.RequireAcyclic())
}

// intentNodes maps a classified intent to the node that serves it.
var intentNodes = map[Intent]string{
	IntentRecommendation:        NodeRecommendation,
	IntentFashionRecommendation: NodeFashion,
	IntentChat:                  NodeChat,
}
