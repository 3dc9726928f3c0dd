package relationship

import (
	"fmt"
	"time"

	"github.com/rcitylucas/dialogengine/internal/domain/models"
)

// Band is one of the seven named relationship stages the Dialogue
// Manager's prompt block classifies into (spec §4.5 "Prompt influence";
// SPEC_FULL.md SUPPLEMENTAL FEATURES item 1), grounded on
// relationship/models.py's RelationshipStage enum, renamed to English.
type Band string

const (
	BandFirstMeet           Band = "first_meet"
	BandResonance           Band = "resonance"
	BandEmotionalLink       Band = "emotional_link"
	BandDeepResonance       Band = "deep_resonance"
	BandWarming             Band = "warming"
	BandMutualUnderstanding Band = "mutual_understanding"
	BandSoulCompanion       Band = "soul_companion"
)

// BandOf classifies a record's (status, RIS, interaction rounds) into one
// of the seven named bands. spec.md leaves exact thresholds for this axis
// open (only RIS's five-way level banding is normative); this derivation
// is recorded as an Open Question Decision in SPEC_FULL.md, modeled the
// way the source derives RelationshipStage from (interaction count, RIS)
// rather than purely from RIS.
func BandOf(r *models.Record, ris float64, status models.RelationshipStatus) Band {
	switch {
	case status == models.RelationshipBroken:
		return BandFirstMeet
	case r.TotalInteractionRounds <= 1:
		return BandFirstMeet
	case status == models.RelationshipSilent:
		return BandResonance
	case ris <= 0.2:
		return BandResonance
	case ris <= 0.4:
		return BandEmotionalLink
	case ris <= 0.6:
		if status == models.RelationshipCooling {
			return BandWarming
		}
		return BandDeepResonance
	case ris <= 0.8:
		return BandMutualUnderstanding
	default:
		return BandSoulCompanion
	}
}

var bandParagraphs = map[Band]string{
	BandFirstMeet:           "This is an early exchange; be warm, curious, and avoid presuming shared history.",
	BandResonance:           "The relationship is still light; acknowledge the thread so far without overstating closeness.",
	BandEmotionalLink:       "An emotional connection is forming; respond with attentiveness to the user's feelings.",
	BandDeepResonance:       "This relationship has real depth; reference shared context naturally and speak candidly.",
	BandWarming:             "Interaction has cooled; gently re-engage and invite continued conversation.",
	BandMutualUnderstanding: "The two of you understand each other well; speak plainly, with established trust.",
	BandSoulCompanion:       "This is among the closest relationships tracked; respond with full familiarity and care.",
}

// ContextFor builds the tone-shaping system-message block the Dialogue
// Manager prepends whenever the pair has any history (spec §4.5 "Prompt
// influence"). Exact wording is non-normative; only the Band
// classification is observable/testable.
func ContextFor(r *models.Record, now time.Time) string {
	status := r.Status(now, activeWindowDays, silentThresholdDays, activeMinRounds7d)
	ris := RIS(r)
	band := BandOf(r, ris, status)
	return fmt.Sprintf("Relationship context: %s status=%s level=%s rounds=%d ris=%.2f.",
		bandParagraphs[band], status, LevelOf(ris), r.TotalInteractionRounds, ris)
}
