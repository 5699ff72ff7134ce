package scorer

import (
	"regexp"
	"strconv"
	"strings"
)

// Stage-1 point values. The local stage stays within [0, LocalMax] and never
// performs I/O.
const (
	LocalMax = 40

	localBase          = 10
	simplicityBonus    = 10
	simplicityBonusLow = 5
	recencyBonus       = 8
	brandBonus         = 6
	viralBonus         = 6
	technicalPenalty   = 10
	jargonPenalty      = 8
)

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// recencyMarkers are content signals tied to the configured recent window.
var recencyMarkers = map[string]bool{
	"tiktok": true, "reels": true, "shorts": true, "streaming": true,
	"viral": true, "meme": true, "ai": true, "chatbot": true,
	"crypto": true, "nft": true, "metaverse": true, "vaping": true,
	"zoom": true, "podcast": true, "influencer": true,
}

var brandNames = map[string]bool{
	"netflix": true, "youtube": true, "instagram": true, "spotify": true,
	"iphone": true, "android": true, "xbox": true, "playstation": true,
	"nintendo": true, "disney": true, "marvel": true, "amazon": true,
	"google": true, "tesla": true, "uber": true, "airbnb": true,
	"twitter": true, "facebook": true, "snapchat": true, "wordle": true,
}

var viralPatterns = []string{
	"challenge", "dance", "trend", "filter", "unboxing", "reaction",
	"prank", "hack", "fail",
}

var technicalSuffixes = []string{
	"ology", "ification", "ization", "osis", "itis", "ectomy", "emia",
}

var jargonWords = map[string]bool{
	"protocol": true, "algorithm": true, "paradigm": true, "synergy": true,
	"infrastructure": true, "implementation": true, "optimization": true,
	"enterprise": true, "framework": true, "methodology": true,
	"quantum": true, "bandwidth": true, "throughput": true,
}

// localScore is a pure function of the normalized text: word-simplicity,
// recency-marker, brand and viral bonuses minus technical/jargon penalties,
// clamped to [0, LocalMax]. The second return reports whether the text
// carries a recent-window marker.
func localScore(text string, recentYearFrom, recentYearTo int) (int, bool) {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0, false
	}

	score := localBase
	recent := false

	totalLen := 0
	for _, w := range words {
		totalLen += len(w)
	}
	avgLen := float64(totalLen) / float64(len(words))
	switch {
	case avgLen <= 5:
		score += simplicityBonus
	case avgLen <= 7:
		score += simplicityBonusLow
	}

	for _, w := range words {
		bare := strings.Trim(w, "'\".,!?&-")
		if recencyMarkers[bare] {
			score += recencyBonus
			recent = true
			break
		}
	}
	if !recent {
		if y := mentionedYear(text); y >= recentYearFrom && y <= recentYearTo {
			score += recencyBonus
			recent = true
		}
	}

	for _, w := range words {
		bare := strings.Trim(w, "'\".,!?&-")
		if brandNames[bare] {
			score += brandBonus
			break
		}
	}

	for _, p := range viralPatterns {
		if strings.Contains(strings.ToLower(text), p) {
			score += viralBonus
			break
		}
	}

	for _, w := range words {
		bare := strings.Trim(w, "'\".,!?&-")
		for _, suf := range technicalSuffixes {
			if len(bare) > len(suf) && strings.HasSuffix(bare, suf) {
				score -= technicalPenalty
			}
		}
		if jargonWords[bare] {
			score -= jargonPenalty
		}
	}

	if score < 0 {
		score = 0
	}
	if score > LocalMax {
		score = LocalMax
	}
	return score, recent
}

func mentionedYear(text string) int {
	m := yearPattern.FindString(text)
	if m == "" {
		return 0
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return y
}
