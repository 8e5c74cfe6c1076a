package perfume

import (
	"strings"

	"github.com/banghyang/scentflow/pkg/flowgraph/template"
	"github.com/banghyang/scentflow/pkg/history"
)

// Prompt templates use ${name} placeholders. They are compiled into the
// binary, so a missing variable is a programming error.
var prompts = template.NewExpander(template.WithMissingAction(template.MissingError))

const intentPrompt = `Input: ${input}
Classify the intent of the user input above.
Intents:
(1) perfume recommendation
(2) general conversation
(3) fashion-based perfume recommendation
Answer with the number of the intent.`

const recommendationPrompt = `You are a perfume expert. Recommend up to three perfumes for the request below.
Reply with a single JSON object and nothing else, in this shape:
{"recommendations": [{"name": "", "brand": "", "reason": "", "situation": ""}], "content": "", "line_id": null}
"content" is a short narrative tying the picks together. "line_id" is the
scent line that best fits the request: ${lines}.

Request: ${input}`

const fashionPrompt = `You are a perfume stylist. The user describes an outfit or a look.
Recommend up to three perfumes that complement it.
Reply with a single JSON object and nothing else, in this shape:
{"recommendations": [{"name": "", "brand": "", "reason": "", "situation": ""}], "content": "", "line_id": null}
"line_id" is the scent line that best fits the look: ${lines}.

Outfit: ${input}`

const chatPrompt = `You are a perfume expert. Answer the user kindly and professionally.
${history}
User: ${input}`

// lineGuide lists the scent lines the model may pick for line_id.
const lineGuide = "1 Citrus, 2 Fruity, 3 Green, 4 Floral, 5 Woody, 6 Musk, 7 Spicy, 8 Aquatic"

func buildIntentPrompt(input string) string {
	return prompts.MustExpand(intentPrompt, map[string]any{"input": input})
}

func buildRecommendationPrompt(intent Intent, input string) string {
	tmpl := recommendationPrompt
	if intent == IntentFashionRecommendation {
		tmpl = fashionPrompt
	}
	return prompts.MustExpand(tmpl, map[string]any{"input": input, "lines": lineGuide})
}

func buildChatPrompt(input string, past history.Context) string {
	var b strings.Builder
	if past.Summary != "" {
		b.WriteString("\nEarlier conversation, summarized:\n")
		b.WriteString(past.Summary)
		b.WriteByte('\n')
	}
	if len(past.Recent) > 0 {
		b.WriteString("\nRecent messages:\n")
		b.WriteString(history.Transcript(past.Recent))
		b.WriteByte('\n')
	}
	return prompts.MustExpand(chatPrompt, map[string]any{"input": input, "history": b.String()})
}
