package perfume

import (
	"fmt"
	"strings"
)

// imagePromptEntries is how many recommendations feed the image prompt.
const imagePromptEntries = 3

const imageStyle = "Requirements:\n" +
	"- Elegant and luxurious composition\n" +
	"- Soft, diffused lighting\n" +
	"- High-end product photography style\n" +
	"- Crystal clear perfume bottles\n" +
	"- Premium background with subtle textures\n" +
	"- Professional color grading\n"

// BuildImagePrompt describes an advertisement for the first three
// recommendations. It reports false, and returns "", when recs is empty.
func BuildImagePrompt(recs []Recommendation) (string, bool) {
	if len(recs) == 0 {
		return "", false
	}
	if len(recs) > imagePromptEntries {
		recs = recs[:imagePromptEntries]
	}

	names := make([]string, len(recs))
	for i, rec := range recs {
		names[i] = fmt.Sprintf("%s by %s", rec.Name, rec.Brand)
	}
	parts := []string{"Luxury perfume bottles of " + strings.Join(names, ", ")}

	for _, rec := range recs {
		if rec.Reason != "" {
			parts = append(parts, rec.Reason)
		}
		if rec.Situation != "" {
			parts = append(parts, strings.SplitN(rec.Situation, ",", 2)[0])
		}
	}

	return "Create a professional perfume advertisement featuring:\n" +
		strings.Join(parts, ". ") + ".\n" +
		imageStyle, true
}
