package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcitylucas/dialogengine/internal/domain/models"
)

func TestConversationBuffer_AppendAndRecent(t *testing.T) {
	buf := NewConversationBuffer(10)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		msg := models.NewMessage("m"+string(rune('0'+i)), "t1", "hello", models.MessageText, "u1", models.ParticipantHuman, fixedTime())
		require.NoError(t, buf.Append(ctx, "conv1", msg))
	}

	all, err := buf.All(ctx, "conv1")
	require.NoError(t, err)
	assert.Len(t, all, 5)

	recent, err := buf.Recent(ctx, "conv1", 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
	assert.Equal(t, "m3", recent[0].ID)
	assert.Equal(t, "m4", recent[1].ID)
}

func TestConversationBuffer_TrimKeepsSystemMessages(t *testing.T) {
	buf := NewConversationBuffer(10)
	ctx := context.Background()

	sys := models.NewMessage("sys1", "t1", "system prompt", models.MessageText, "sys", models.ParticipantSystem, fixedTime())
	require.NoError(t, buf.Append(ctx, "conv1", sys))

	for i := 0; i < 10; i++ {
		msg := models.NewMessage("m"+string(rune('a'+i)), "t1", "hi", models.MessageText, "u1", models.ParticipantHuman, fixedTime())
		require.NoError(t, buf.Append(ctx, "conv1", msg))
	}

	require.NoError(t, buf.TrimToRounds(ctx, "conv1", 2))

	all, err := buf.All(ctx, "conv1")
	require.NoError(t, err)

	systemCount := 0
	for _, m := range all {
		if m.Sender == models.ParticipantSystem {
			systemCount++
		}
	}
	assert.Equal(t, 1, systemCount)
	assert.LessOrEqual(t, len(all)-systemCount, 4)
}

func TestConversationBuffer_LRUEviction(t *testing.T) {
	buf := NewConversationBuffer(2)
	ctx := context.Background()

	msg := models.NewMessage("m1", "t1", "hi", models.MessageText, "u1", models.ParticipantHuman, fixedTime())
	require.NoError(t, buf.Append(ctx, "conv1", msg))
	require.NoError(t, buf.Append(ctx, "conv2", msg))
	require.NoError(t, buf.Append(ctx, "conv3", msg))

	all1, _ := buf.All(ctx, "conv1")
	assert.Empty(t, all1, "conv1 should have been evicted as least-recently-used")

	all3, _ := buf.All(ctx, "conv3")
	assert.Len(t, all3, 1)
}
