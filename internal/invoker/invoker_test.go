package invoker

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcitylucas/dialogengine/internal/domain"
	"github.com/rcitylucas/dialogengine/internal/domain/models"
	"github.com/rcitylucas/dialogengine/internal/ports"
	"github.com/rcitylucas/dialogengine/internal/tools"
)

// fakeIDs is a monotonic stub satisfying ports.IDGenerator for tests.
type fakeIDs struct{ n int }

func (f *fakeIDs) next(prefix string) string { f.n++; return prefix }
func (f *fakeIDs) GenerateSessionID() string             { return f.next("session") }
func (f *fakeIDs) GenerateTurnID() string                { return f.next("turn") }
func (f *fakeIDs) GenerateMessageID() string             { return f.next("message") }
func (f *fakeIDs) GenerateToolInvocationID() string      { return f.next("invocation") }
func (f *fakeIDs) GenerateMemoryItemID() string          { return f.next("memory") }
func (f *fakeIDs) GenerateRelationshipID() string        { return f.next("relationship") }
func (f *fakeIDs) GenerateRelationshipTaskID() string    { return f.next("task") }

// fixedDecision always returns the same Decision.
type fixedDecision struct {
	decision Decision
	err      error
}

func (d fixedDecision) Decide(ctx context.Context, utterance string, hints map[string]any) (Decision, error) {
	return d.decision, d.err
}

func newRegistryWithTool(t *testing.T, tool *tools.Versioned) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	require.NoError(t, r.Register(tool, "core", ports.VersionActive, true))
	return r
}

func TestInvoker_NoToolUseReturnsNilOutcome(t *testing.T) {
	vm := tools.NewVersionManager(tools.NewRegistry())
	inv := NewInvoker(vm, fixedDecision{decision: Decision{ShouldUseTool: false}}, &fakeIDs{}, time.Second)

	outcome, err := inv.Invoke(context.Background(), "turn-1", "hello", nil, "", time.Now())
	require.NoError(t, err)
	assert.Nil(t, outcome)
}

func TestInvoker_ExecutesAndFormatsStringResult(t *testing.T) {
	base := tools.NewBasic("weather", "reports weather", "weather(city)", []ports.Modality{ports.ModalityText},
		func(ctx context.Context, args map[string]any) (any, error) {
			return "sunny", nil
		})
	tool := tools.NewVersioned(base, "1.0.0", "1.0.0", ports.VersionActive)
	vm := tools.NewVersionManager(newRegistryWithTool(t, tool))

	decider := fixedDecision{decision: Decision{ShouldUseTool: true, ToolName: "weather", ToolArgs: map[string]any{"city": "nyc"}}}
	inv := NewInvoker(vm, decider, &fakeIDs{}, time.Second)

	outcome, err := inv.Invoke(context.Background(), "turn-1", "what's the weather", nil, "", time.Now())
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, models.InvocationCompleted, outcome.Invocation.Status)
	assert.Contains(t, outcome.ResultBlock, "weather")
	assert.Contains(t, outcome.ResultBlock, "sunny")
	assert.Empty(t, outcome.Deprecation)
}

func TestInvoker_StructuredResultIsSerialized(t *testing.T) {
	base := tools.NewBasic("calc", "adds numbers", "calc(a,b)", []ports.Modality{ports.ModalityText},
		func(ctx context.Context, args map[string]any) (any, error) {
			return map[string]any{"sum": 3}, nil
		})
	tool := tools.NewVersioned(base, "1.0.0", "1.0.0", ports.VersionActive)
	vm := tools.NewVersionManager(newRegistryWithTool(t, tool))

	decider := fixedDecision{decision: Decision{ShouldUseTool: true, ToolName: "calc"}}
	inv := NewInvoker(vm, decider, &fakeIDs{}, time.Second)

	outcome, err := inv.Invoke(context.Background(), "turn-1", "1+2", nil, "", time.Now())
	require.NoError(t, err)
	assert.Contains(t, outcome.ResultBlock, `"sum":3`)
}

func TestInvoker_UnknownToolReturnsNotFound(t *testing.T) {
	vm := tools.NewVersionManager(tools.NewRegistry())
	decider := fixedDecision{decision: Decision{ShouldUseTool: true, ToolName: "missing"}}
	inv := NewInvoker(vm, decider, &fakeIDs{}, time.Second)

	_, err := inv.Invoke(context.Background(), "turn-1", "use missing tool", nil, "", time.Now())
	require.Error(t, err)
	var domainErr *domain.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, domain.KindNotFound, domainErr.Kind)
}

func TestInvoker_IncompatibleVersionRequest(t *testing.T) {
	base := tools.NewBasic("echo", "echoes", "echo(x)", []ports.Modality{ports.ModalityText},
		func(ctx context.Context, args map[string]any) (any, error) { return args, nil })
	tool := tools.NewVersioned(base, "1.0.0", "1.0.0", ports.VersionActive)
	vm := tools.NewVersionManager(newRegistryWithTool(t, tool))

	decider := fixedDecision{decision: Decision{ShouldUseTool: true, ToolName: "echo"}}
	inv := NewInvoker(vm, decider, &fakeIDs{}, time.Second)

	_, err := inv.Invoke(context.Background(), "turn-1", "use echo v0.1", nil, "0.1.0", time.Now())
	require.Error(t, err)
}

func TestInvoker_ToolErrorIsRecordedAsFailed(t *testing.T) {
	base := tools.NewBasic("breaker", "always fails", "breaker()", []ports.Modality{ports.ModalityText},
		func(ctx context.Context, args map[string]any) (any, error) {
			return nil, errors.New("boom")
		})
	tool := tools.NewVersioned(base, "1.0.0", "1.0.0", ports.VersionActive)
	vm := tools.NewVersionManager(newRegistryWithTool(t, tool))

	decider := fixedDecision{decision: Decision{ShouldUseTool: true, ToolName: "breaker"}}
	inv := NewInvoker(vm, decider, &fakeIDs{}, time.Second)

	outcome, err := inv.Invoke(context.Background(), "turn-1", "break it", nil, "", time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.InvocationFailed, outcome.Invocation.Status)
	assert.Equal(t, "boom", outcome.Invocation.ErrorDesc)
	assert.Contains(t, outcome.ResultBlock, "error")
}

// TestInvoker_TimeoutIsTreatedAsFailed mirrors spec §4.4/§7: a tool call
// exceeding its timeout is treated as a failed invocation, not a crash.
func TestInvoker_TimeoutIsTreatedAsFailed(t *testing.T) {
	base := tools.NewBasic("slow", "never returns in time", "slow()", []ports.Modality{ports.ModalityText},
		func(ctx context.Context, args map[string]any) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
	tool := tools.NewVersioned(base, "1.0.0", "1.0.0", ports.VersionActive)
	vm := tools.NewVersionManager(newRegistryWithTool(t, tool))

	decider := fixedDecision{decision: Decision{ShouldUseTool: true, ToolName: "slow"}}
	inv := NewInvoker(vm, decider, &fakeIDs{}, 10*time.Millisecond)

	outcome, err := inv.Invoke(context.Background(), "turn-1", "be slow", nil, "", time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.InvocationFailed, outcome.Invocation.Status)
	assert.Contains(t, outcome.Invocation.ErrorDesc, "timed out")
}

// TestInvoker_DeprecatedVersionSurfacesNotice mirrors spec §8 scenario 4:
// resolving a deprecated-but-still-registered version must surface its
// deprecation notice to the caller.
func TestInvoker_DeprecatedVersionSurfacesNotice(t *testing.T) {
	base := tools.NewBasic("search", "looks things up", "search(q)", []ports.Modality{ports.ModalityText},
		func(ctx context.Context, args map[string]any) (any, error) { return "result", nil })
	tool := tools.NewVersioned(base, "1.0.0", "1.0.0", ports.VersionDeprecated, tools.WithDeprecation("use v2 instead"))
	vm := tools.NewVersionManager(newRegistryWithTool(t, tool))

	decider := fixedDecision{decision: Decision{ShouldUseTool: true, ToolName: "search"}}
	inv := NewInvoker(vm, decider, &fakeIDs{}, time.Second)

	outcome, err := inv.Invoke(context.Background(), "turn-1", "search something", nil, "1.0.0", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "use v2 instead", outcome.Deprecation)
}

func TestInvoker_MultimodalArgMaterializesArtifactAndCleansUp(t *testing.T) {
	var sawPath string
	base := tools.NewBasic("vision", "looks at an image", "vision(ref)", []ports.Modality{ports.ModalityImage},
		func(ctx context.Context, args map[string]any) (any, error) {
			sawPath, _ = args["artifact_path"].(string)
			return "described", nil
		})
	tool := tools.NewVersioned(base, "1.0.0", "1.0.0", ports.VersionActive)
	vm := tools.NewVersionManager(newRegistryWithTool(t, tool))

	decider := fixedDecision{decision: Decision{ShouldUseTool: true, ToolName: "vision", ToolArgs: map[string]any{"ref": "aGVsbG8="}}}
	inv := NewInvoker(vm, decider, &fakeIDs{}, time.Second)

	outcome, err := inv.Invoke(context.Background(), "turn-1", "look at this", nil, "", time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.InvocationCompleted, outcome.Invocation.Status)
	require.NotEmpty(t, sawPath)
	_, statErr := os.Stat(sawPath)
	assert.Error(t, statErr, "temporary artifact must be removed after invocation")
}
