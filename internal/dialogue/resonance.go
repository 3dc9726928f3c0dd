package dialogue

import "strings"

// scanResonance reports whether text contains any configured affective
// token (spec §4.6 step 7: "emotional_resonance inferred by scanning the
// reply for configured affective tokens"), grounded on the same
// closed-marker-set pattern internal/context uses for continuation
// phrases — a denylist-shaped lookup rather than sentiment modeling.
func scanResonance(text string, tokens []string) bool {
	lower := strings.ToLower(text)
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(tok)) {
			return true
		}
	}
	return false
}

// collaborationHints extracts a collaboration sub-bag from tool-result
// tags carrying "diary"/"co_creation"/"gift" counters (spec §4.6 step 7:
// "any collaboration hints discovered in tool-result tags").
func collaborationHints(tags map[string]int) (diary, coCreation, gift int) {
	return tags["diary"], tags["co_creation"], tags["gift"]
}
