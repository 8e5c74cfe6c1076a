// Package perfume routes a natural-language request to one of three
// workflows and assembles the reply.
//
// The workflow is a flowgraph over State:
//
//	input_processor -> intent_classifier -+-> recommendation_generator -+-> image_generator -> END
//	                                      |                             +-> error_handler -> END
//	                                      +-> fashion_recommendation_generator -> END | error_handler
//	                                      +-> chat_handler -> END | error_handler
//
// Nodes never return errors. A node that cannot do its job either
// degrades (a failed classification becomes chat, a failed image leaves
// ImagePath nil) or writes State.Error and hands control to
// error_handler, which turns it into a Failure.
//
// Recommendations come from the language model first. When the reply is
// unusable the engine falls back to the catalog, matching perfumes whose
// middle notes overlap the spices of the requested scent line.
//
// Basic usage:
//
//	engine, err := perfume.New(perfume.Deps{
//	    LLM:     client,
//	    Catalog: gateway,
//	    Images:  images,
//	})
//	result := engine.Run(ctx, perfume.Request{Input: "recommend a musk perfume"})
package perfume
