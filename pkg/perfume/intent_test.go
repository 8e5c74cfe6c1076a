package perfume

import "testing"

func TestParseIntent(t *testing.T) {
	tests := []struct {
		reply string
		want  Intent
	}{
		{"1", IntentRecommendation},
		{"1. recommendation", IntentRecommendation},
		{"The intent is (1) perfume recommendation.", IntentRecommendation},
		{"3", IntentFashionRecommendation},
		{"(3) fashion-based", IntentFashionRecommendation},
		{"1 or 3", IntentRecommendation},
		{"3, maybe 1", IntentRecommendation},
		{"13", IntentRecommendation},
		{"2", IntentChat},
		{"this is general conversation", IntentChat},
		{"", IntentChat},
		{"(2) general conversation, not 3", IntentFashionRecommendation},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			if got := ParseIntent(tt.reply); got != tt.want {
				t.Errorf("ParseIntent(%q) = %s, want %s", tt.reply, got, tt.want)
			}
		})
	}
}
