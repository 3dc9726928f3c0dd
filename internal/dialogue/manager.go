package dialogue

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	dctx "github.com/rcitylucas/dialogengine/internal/context"
	"github.com/rcitylucas/dialogengine/internal/domain"
	"github.com/rcitylucas/dialogengine/internal/domain/models"
	"github.com/rcitylucas/dialogengine/internal/invoker"
	"github.com/rcitylucas/dialogengine/internal/metrics"
	"github.com/rcitylucas/dialogengine/internal/ports"
	"github.com/rcitylucas/dialogengine/internal/relationship"
)

var tracer = otel.Tracer("dialogengine/dialogue")

// Manager owns the per-utterance control flow and the session/turn state
// machine (spec §4.6), orchestrating the Context Processor/Injector (C2),
// the Tool Invoker (C4), and the Relationship Engine (C5) around the
// Model Interface. Grounded on the teacher's
// usecases.ProcessUserMessage — same shape (fetch parent, allocate
// child, transaction around the writes, best-effort secondary updates
// logged rather than failing the call) generalized from a single
// message-append into the full turn lifecycle.
type Manager struct {
	sessions ports.SessionRepository
	turns    ports.TurnRepository
	messages ports.MessageRepository
	idGen    ports.IDGenerator

	processor   *dctx.Processor
	injector    *dctx.Injector
	relationships *relationship.Engine
	toolInvoker *invoker.Invoker
	model       ports.ModelService

	cfg Config

	metrics *metrics.Recorder

	sessionLocksMu sync.Mutex
	sessionLocks   map[string]*sync.Mutex
}

func NewManager(
	sessions ports.SessionRepository,
	turns ports.TurnRepository,
	messages ports.MessageRepository,
	idGen ports.IDGenerator,
	processor *dctx.Processor,
	injector *dctx.Injector,
	relationships *relationship.Engine,
	toolInvoker *invoker.Invoker,
	model ports.ModelService,
	cfg Config,
) *Manager {
	return &Manager{
		sessions:      sessions,
		turns:         turns,
		messages:      messages,
		idGen:         idGen,
		processor:     processor,
		injector:      injector,
		relationships: relationships,
		toolInvoker:   toolInvoker,
		model:         model,
		cfg:           cfg,
		sessionLocks:  make(map[string]*sync.Mutex),
	}
}

// SetMetrics attaches a metrics.Recorder that Process observes turn
// duration into. Optional: a Manager with no recorder skips recording.
func (m *Manager) SetMetrics(r *metrics.Recorder) {
	m.metrics = r
}

// lockFor returns the per-session mutex, serializing Turn processing
// within a Session while letting different Sessions run fully in parallel
// (spec §5 "Per-session ordering").
func (m *Manager) lockFor(sessionID string) *sync.Mutex {
	m.sessionLocksMu.Lock()
	defer m.sessionLocksMu.Unlock()
	lock, ok := m.sessionLocks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		m.sessionLocks[sessionID] = lock
	}
	return lock
}

// Process implements spec §4.6's eight-step algorithm for the
// human↔ai private dialogue kind — the only kind specified in detail;
// other kinds share the same skeleton (spec §4.6 "Dialogue kinds").
func (m *Manager) Process(ctx context.Context, in ProcessInput) (*ProcessOutput, error) {
	ctx, span := tracer.Start(ctx, "dialogue.Manager.Process")
	defer span.End()

	started := time.Now()

	session, err := m.resolveSession(ctx, in, started)
	if err != nil {
		return nil, err
	}

	lock := m.lockFor(session.ID)
	lock.Lock()
	defer lock.Unlock()

	// History must be fetched before the inbound message is persisted,
	// else RecentBySession's newest row is the very utterance
	// assembleContext appends again as "the new user message" (spec §4.6
	// step 4 names history and the new user message as distinct pieces).
	history, err := m.messages.RecentBySession(ctx, session.ID, m.cfg.HistoryWindow)
	if err != nil {
		return nil, err
	}

	turn, err := m.createTurn(ctx, session, in, started)
	if err != nil {
		return nil, err
	}

	chatMessages, err := m.assembleContext(ctx, session, history, in, started)
	if err != nil {
		turn.Fail(started)
		return nil, err
	}

	invocations, finalReply, toolErr := m.runToolLoop(ctx, turn, in.Content, chatMessages)
	for _, inv := range invocations {
		turn.AddToolInvocation(inv)
	}
	if toolErr != nil {
		failTime := time.Now()
		turn.Fail(failTime)
		m.appendFailureMessage(ctx, turn, toolErr, failTime)
		return nil, toolErr
	}

	now := time.Now()
	responseMsg := models.NewMessage(m.idGen.GenerateMessageID(), turn.ID, finalReply, models.MessageText, "assistant", models.ParticipantAI, now)
	if err := m.messages.Create(ctx, responseMsg); err != nil {
		return nil, err
	}
	turn.AddResponseMessage(responseMsg)

	if err := turn.Complete(now); err != nil {
		return nil, err
	}
	if err := m.turns.Update(ctx, turn); err != nil {
		return nil, err
	}

	band, ris := m.updateRelationship(ctx, in.UserID, finalReply, invocations, now)

	session.Touch(now)
	if err := m.sessions.Update(ctx, session); err != nil {
		// Non-critical: the session row's last_activity is best-effort.
		log.Printf("dialogue: failed to persist session touch %s: %v", session.ID, err)
	}

	summaries := make([]ToolInvocationSummary, 0, len(invocations))
	for _, inv := range invocations {
		summaries = append(summaries, ToolInvocationSummary{ToolName: inv.ToolName, Version: inv.ToolVersion, Status: inv.Status})
	}

	m.metrics.ObserveTurnDuration(time.Since(started).Seconds())

	return &ProcessOutput{
		ReplyText:        finalReply,
		SessionID:        session.ID,
		TurnID:           turn.ID,
		ToolInvocations:  summaries,
		ProcessingTimeMs: time.Since(started).Milliseconds(),
		RelationshipBand: string(band),
		RelationshipRIS:  ris,
	}, nil
}

// resolveSession implements spec §4.6 step 1.
func (m *Manager) resolveSession(ctx context.Context, in ProcessInput, now time.Time) (*models.Session, error) {
	if in.SessionID == "" {
		session, err := models.NewSession(
			m.idGen.GenerateSessionID(),
			in.UserID,
			models.DialogueHumanAIPrivate,
			[]models.Participant{
				{ID: in.UserID, Kind: models.ParticipantHuman},
				{ID: "assistant", DisplayName: "assistant", Kind: models.ParticipantAI},
			},
			now,
		)
		if err != nil {
			return nil, err
		}
		if err := m.sessions.Create(ctx, session); err != nil {
			return nil, err
		}
		return session, nil
	}

	session, err := m.sessions.Get(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.NewError(domain.KindNotFound, "session not found: "+in.SessionID, domain.ErrSessionNotFound)
	}
	session.Touch(now)
	return session, nil
}

// createTurn implements spec §4.6 step 2.
func (m *Manager) createTurn(ctx context.Context, session *models.Session, in ProcessInput, now time.Time) (*models.Turn, error) {
	maxOrdinal, err := m.turns.MaxOrdinal(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	turn := models.NewTurn(m.idGen.GenerateTurnID(), session.ID, maxOrdinal+1, in.UserID, models.ParticipantHuman, "assistant", models.ParticipantAI, now)

	inbound := models.NewMessage(m.idGen.GenerateMessageID(), turn.ID, in.Content, in.ContentKind, in.UserID, models.ParticipantHuman, now)
	turn.AddRequestMessage(inbound)

	if err := m.turns.Create(ctx, turn); err != nil {
		return nil, err
	}
	if err := m.messages.Create(ctx, inbound); err != nil {
		return nil, err
	}
	if err := turn.Start(); err != nil {
		return nil, err
	}
	if err := m.turns.Update(ctx, turn); err != nil {
		return nil, err
	}
	return turn, nil
}

// assembleContext implements spec §4.6 step 4: a composite message list
// whose head is {system_prompt, relationship_block?, context_prefix?}
// followed by history and the new user message, with the continuity rule
// (§4.2) applied by the Injector.
func (m *Manager) assembleContext(ctx context.Context, session *models.Session, history []*models.Message, in ProcessInput, now time.Time) ([]ports.ChatMessage, error) {
	chatMessages := []ports.ChatMessage{{Role: ports.RoleSystem, Content: m.cfg.SystemPrompt}}

	if m.relationships != nil && len(history) > 0 {
		record, err := m.relationships.RecordFor(ctx, in.UserID, "assistant")
		if err != nil {
			// INTENTIONAL ERROR SWALLOWING: the tone-shaping block is an
			// enhancement, not a requirement for replying.
			log.Printf("dialogue: relationship lookup failed, continuing without tone block: %v", err)
		} else if record != nil {
			chatMessages = append(chatMessages, ports.ChatMessage{Role: ports.RoleSystem, Content: relationship.ContextFor(record, now)})
		}
	}

	if m.processor != nil && in.SideChannel != nil {
		normalized := m.processor.Process(in.SideChannel)
		lastUser, priorUsers, lastAssistant := splitRoles(history)
		if m.injector.ShouldInject(len(history)) {
			prefix := m.injector.BuildPrefix(normalized, lastUser, priorUsers, lastAssistant)
			chatMessages = m.injector.InjectToMessages(chatMessages, prefix)
		}
	}

	for _, msg := range history {
		chatMessages = append(chatMessages, ports.ChatMessage{Role: roleOf(msg.Sender), Content: msg.Content})
	}
	chatMessages = append(chatMessages, ports.ChatMessage{Role: ports.RoleUser, Content: in.Content})

	return chatMessages, nil
}

func roleOf(kind models.ParticipantKind) ports.Role {
	if kind == models.ParticipantAI {
		return ports.RoleAssistant
	}
	return ports.RoleUser
}

// splitRoles separates history into the pieces the continuity rule needs:
// the last user message, every prior user message (oldest first), and the
// last assistant message (spec §4.2).
func splitRoles(history []*models.Message) (lastUser string, priorUsers []string, lastAssistant string) {
	var userTexts []string
	for _, msg := range history {
		switch msg.Sender {
		case models.ParticipantHuman:
			userTexts = append(userTexts, msg.Content)
		case models.ParticipantAI:
			lastAssistant = msg.Content
		}
	}
	if len(userTexts) > 0 {
		lastUser = userTexts[len(userTexts)-1]
		priorUsers = userTexts[:len(userTexts)-1]
	}
	return lastUser, priorUsers, lastAssistant
}

// runToolLoop implements spec §4.6 step 5: invoke the decision step,
// execute and append a tool-result synthetic message, re-issue the model
// call, repeat until no tool is requested or the per-turn cap is reached.
func (m *Manager) runToolLoop(ctx context.Context, turn *models.Turn, utterance string, chatMessages []ports.ChatMessage) ([]*models.ToolInvocation, string, error) {
	var invocations []*models.ToolInvocation
	next := utterance

	for i := 0; i < m.cfg.MaxToolCalls; i++ {
		outcome, err := m.toolInvoker.Invoke(ctx, turn.ID, next, nil, "", time.Now())
		if err != nil {
			return invocations, "", err
		}
		if outcome == nil {
			break
		}
		invocations = append(invocations, outcome.Invocation)
		chatMessages = append(chatMessages, ports.ChatMessage{Role: ports.RoleTool, Content: outcome.ResultBlock})
		next = outcome.ResultBlock
	}

	text, _, err := m.model.Generate(ctx, chatMessages, ports.ModelConfig{})
	if err != nil {
		return invocations, "", err
	}
	return invocations, text, nil
}

// appendFailureMessage keeps the transcript linear on a failed turn
// (spec §4.6 "A failed turn still produces a response Message containing
// the error message").
func (m *Manager) appendFailureMessage(ctx context.Context, turn *models.Turn, cause error, now time.Time) {
	msg := models.NewMessage(m.idGen.GenerateMessageID(), turn.ID, cause.Error(), models.MessageText, "assistant", models.ParticipantAI, now)
	if err := m.messages.Create(ctx, msg); err != nil {
		log.Printf("dialogue: failed to persist failure message for turn %s: %v", turn.ID, err)
		return
	}
	turn.AddResponseMessage(msg)
	if err := m.turns.Update(ctx, turn); err != nil {
		log.Printf("dialogue: failed to persist failed turn %s: %v", turn.ID, err)
	}
}

// updateRelationship implements spec §4.6 step 7.
func (m *Manager) updateRelationship(ctx context.Context, userID, reply string, invocations []*models.ToolInvocation, now time.Time) (relationship.Band, float64) {
	if m.relationships == nil {
		return "", 0
	}

	var collab *models.Collaboration
	for _, inv := range invocations {
		diary, coCreation, gift := collaborationHints(tagsAsInts(inv))
		if diary > 0 || coCreation > 0 || gift > 0 {
			if collab == nil {
				collab = &models.Collaboration{}
			}
			collab.Diary += diary
			collab.CoCreation += coCreation
			collab.GiftCount += gift
		}
	}

	record, err := m.relationships.Observe(ctx, relationship.Update{
		SenderID:           userID,
		SenderKind:         models.ParticipantHuman,
		ReceiverID:         "assistant",
		ReceiverKind:       models.ParticipantAI,
		EmotionalResonance: scanResonance(reply, m.cfg.AffectiveTokens),
		Collaboration:      collab,
	}, now)
	if err != nil {
		// INTENTIONAL ERROR SWALLOWING: the relationship snapshot is a
		// reply-tag enhancement; the turn has already completed successfully.
		log.Printf("dialogue: relationship update failed: %v", err)
		return "", 0
	}

	ris := relationship.RIS(record)
	status := m.relationships.Status(record, now)
	return relationship.BandOf(record, ris, status), ris
}

// tagsAsInts reads the collaboration counters a tool result may carry
// (spec §4.6 step 7: "collaboration hints discovered in tool-result
// tags"). Only structured (non-text) results can carry them; a plain
// string result yields no hints.
func tagsAsInts(inv *models.ToolInvocation) map[string]int {
	fields, ok := inv.Result.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]int, 3)
	for _, key := range []string{"diary", "co_creation", "gift"} {
		if n, ok := fields[key].(int); ok {
			out[key] = n
		} else if f, ok := fields[key].(float64); ok {
			out[key] = int(f)
		}
	}
	return out
}
