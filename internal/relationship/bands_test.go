package relationship

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rcitylucas/dialogengine/internal/domain/models"
)

func TestBandOf_FirstInteractionIsFirstMeet(t *testing.T) {
	r := models.NewRecord("r1", models.EntityRef{ID: "u1"}, models.EntityRef{ID: "ai"}, time.Now())
	r.TotalInteractionRounds = 1
	assert.Equal(t, BandFirstMeet, BandOf(r, 0, models.RelationshipActive))
}

func TestBandOf_HighRISActiveIsSoulCompanion(t *testing.T) {
	r := models.NewRecord("r1", models.EntityRef{ID: "u1"}, models.EntityRef{ID: "ai"}, time.Now())
	r.TotalInteractionRounds = 300
	assert.Equal(t, BandSoulCompanion, BandOf(r, 0.95, models.RelationshipActive))
}

func TestBandOf_SilentIsResonance(t *testing.T) {
	r := models.NewRecord("r1", models.EntityRef{ID: "u1"}, models.EntityRef{ID: "ai"}, time.Now())
	r.TotalInteractionRounds = 50
	assert.Equal(t, BandResonance, BandOf(r, 0.1, models.RelationshipSilent))
}

func TestContextFor_ContainsBandStatusAndLevel(t *testing.T) {
	r := models.NewRecord("r1", models.EntityRef{ID: "u1"}, models.EntityRef{ID: "ai"}, time.Now())
	r.TotalInteractionRounds = 300
	r.RecentRounds = 200
	now := time.Now()
	block := ContextFor(r, now)
	assert.Contains(t, block, "status=")
	assert.Contains(t, block, "level=")
	assert.Contains(t, block, "ris=")
}
