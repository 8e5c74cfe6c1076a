package perfume

import (
	"encoding/json"
	"strings"

	"github.com/mitchellh/mapstructure"

	flowerrors "github.com/banghyang/scentflow/pkg/flowgraph/errors"
)

// recommendationReply is the JSON object the recommendation prompts ask for.
type recommendationReply struct {
	Recommendations []Recommendation `mapstructure:"recommendations"`
	Content         string           `mapstructure:"content"`
	LineID          *int             `mapstructure:"line_id"`
}

// decodeRecommendationReply extracts the JSON object from a model reply.
// Markdown fences and surrounding prose are ignored, and loosely typed
// values ("6" for a number) are accepted. A line id below 1 means the
// model picked none and decodes as nil. Entries without a name are
// dropped; a reply with none left is an EmptyResponseError. When the
// error is an EmptyResponseError the returned reply still carries the
// decoded line id.
func decodeRecommendationReply(text string) (recommendationReply, error) {
	body, ok := extractJSONObject(text)
	if !ok {
		return recommendationReply{}, &flowerrors.FormatError{Input: text, Message: "no JSON object in reply"}
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return recommendationReply{}, &flowerrors.FormatError{Input: text, Message: "invalid JSON", Err: err}
	}
	if _, ok := raw["recommendations"]; !ok {
		if alt, ok := raw["recommendation"]; ok {
			raw["recommendations"] = alt
		}
	}

	var reply recommendationReply
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &reply,
	})
	if err != nil {
		return recommendationReply{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return recommendationReply{}, &flowerrors.FormatError{Input: text, Message: "unexpected reply shape", Err: err}
	}

	kept := reply.Recommendations[:0]
	for _, rec := range reply.Recommendations {
		rec.Name = strings.TrimSpace(rec.Name)
		if rec.Name == "" {
			continue
		}
		rec.Brand = strings.TrimSpace(rec.Brand)
		kept = append(kept, rec)
	}
	reply.Recommendations = kept
	reply.Content = strings.TrimSpace(reply.Content)
	if reply.LineID != nil && *reply.LineID <= 0 {
		reply.LineID = nil
	}

	if len(reply.Recommendations) == 0 {
		return reply, &flowerrors.EmptyResponseError{Dependency: "llm", Op: "recommend"}
	}
	return reply, nil
}

// extractJSONObject returns the outermost {...} span of text after
// removing a Markdown code fence, if any.
func extractJSONObject(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:] // drop the language tag line
		}
		if end := strings.LastIndex(text, "```"); end >= 0 {
			text = text[:end]
		}
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
