package perfume

import "strings"

// ParseIntent maps a classifier reply to an intent. "1" anywhere in the
// reply wins, then "3"; everything else, including "2" and replies with
// no digit, is chat.
func ParseIntent(reply string) Intent {
	switch {
	case strings.Contains(reply, "1"):
		return IntentRecommendation
	case strings.Contains(reply, "3"):
		return IntentFashionRecommendation
	default:
		return IntentChat
	}
}
