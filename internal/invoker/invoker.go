package invoker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/rcitylucas/dialogengine/internal/domain"
	"github.com/rcitylucas/dialogengine/internal/domain/models"
	"github.com/rcitylucas/dialogengine/internal/metrics"
	"github.com/rcitylucas/dialogengine/internal/ports"
	"github.com/rcitylucas/dialogengine/internal/tools"
)

var tracer = otel.Tracer("dialogengine/invoker")

// Invoker resolves, executes, and formats tool calls against the Tool
// Registry (spec §4.4). It holds no tool state of its own — the Tool
// Registry/VersionManager is the source of truth, the Invoker is a pure
// orchestration layer over it.
type Invoker struct {
	versionManager *tools.VersionManager
	decider        Decider
	idGen          ports.IDGenerator
	defaultTimeout time.Duration
	httpClient     *http.Client
	metrics        *metrics.Recorder
}

func NewInvoker(vm *tools.VersionManager, decider Decider, idGen ports.IDGenerator, defaultTimeout time.Duration) *Invoker {
	return &Invoker{
		versionManager: vm,
		decider:        decider,
		idGen:          idGen,
		defaultTimeout: defaultTimeout,
		httpClient:     defaultHTTPClient(),
	}
}

// SetMetrics attaches a metrics.Recorder that Invoke counts invocations
// into, keyed by tool name and terminal status. Optional.
func (inv *Invoker) SetMetrics(r *metrics.Recorder) {
	inv.metrics = r
}

// Outcome is what one Invoke call produces for the Dialogue Manager's
// prompt-assembly loop (spec §4.4 "Formatting").
type Outcome struct {
	Invocation  *models.ToolInvocation
	ResultBlock string // synthetic "tool result" message content
	Deprecation string // non-empty if the resolved tool version is deprecated
}

// Invoke runs the full decide→resolve→execute→format pipeline for one
// utterance. A nil Outcome with a nil error means the decider chose not
// to use a tool.
func (inv *Invoker) Invoke(ctx context.Context, turnID, utterance string, hints map[string]any, requestedVersion string, now time.Time) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "invoker.Invoker.Invoke")
	defer span.End()

	decision, err := inv.decider.Decide(ctx, utterance, hints)
	if err != nil {
		return nil, err
	}
	if !decision.ShouldUseTool {
		return nil, nil
	}

	res, err := inv.versionManager.Resolve(decision.ToolName, requestedVersion)
	if err != nil {
		return nil, err
	}

	args, err := inv.versionManager.MigrateArgs(res, requestedVersion, decision.ToolArgs)
	if err != nil {
		return nil, err
	}

	invocation := models.NewToolInvocation(inv.idGen.GenerateToolInvocationID(), turnID, res.Tool.Name(), res.Version, args, now)
	if err := invocation.Start(); err != nil {
		return nil, err
	}

	var cleanup func()
	args, cleanup, err = inv.prepareMultimodalArgs(ctx, res.Tool, args)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		invocation.Fail(err.Error(), now)
		return &Outcome{Invocation: invocation, ResultBlock: formatError(res.Tool.Name(), err), Deprecation: res.DeprecationNotice}, nil
	}

	result, execErr := inv.executeWithTimeout(ctx, res.Tool, args)
	completedAt := now
	if execErr != nil {
		invocation.Fail(execErr.Error(), completedAt)
		inv.metrics.IncToolInvocation(res.Tool.Name(), string(invocation.Status))
		return &Outcome{Invocation: invocation, ResultBlock: formatError(res.Tool.Name(), execErr), Deprecation: res.DeprecationNotice}, nil
	}

	invocation.Complete(result, completedAt)
	inv.metrics.IncToolInvocation(res.Tool.Name(), string(invocation.Status))
	return &Outcome{Invocation: invocation, ResultBlock: formatResult(res.Tool.Name(), result), Deprecation: res.DeprecationNotice}, nil
}

// executeWithTimeout runs the tool's Invoke in a goroutine and races it
// against ctx's deadline, mirroring the teacher's HandleToolCall.
// executeWithTimeout (spec §4.4 "Timeouts per tool call are configurable
// and treated as failed").
func (inv *Invoker) executeWithTimeout(ctx context.Context, tool ports.Tool, args map[string]any) (any, error) {
	timeout := inv.defaultTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result any
		err    error
	}
	resultCh := make(chan outcome, 1)

	go func() {
		result, err := tool.Invoke(execCtx, args)
		resultCh <- outcome{result: result, err: err}
	}()

	select {
	case <-execCtx.Done():
		if execCtx.Err() == context.DeadlineExceeded {
			return nil, domain.NewError(domain.KindTimeout, "tool "+tool.Name()+" timed out", domain.ErrTimeout)
		}
		return nil, domain.NewError(domain.KindCancelled, "tool "+tool.Name()+" cancelled", domain.ErrCancelled)
	case o := <-resultCh:
		return o.result, o.err
	}
}

// prepareMultimodalArgs materializes an image/audio reference into a
// temporary artifact when the resolved tool declares that modality and
// args carries a "ref" field, normalizing args to reference the local
// path instead (spec §4.4 "Multimodal dispatch").
func (inv *Invoker) prepareMultimodalArgs(ctx context.Context, tool ports.Tool, args map[string]any) (map[string]any, func(), error) {
	ref, ok := args["ref"].(string)
	if !ok || ref == "" {
		return args, nil, nil
	}
	if !declaresMultimodal(tool.Modalities()) {
		return args, nil, nil
	}

	art, err := materializeArtifact(ctx, inv.httpClient, ref)
	if err != nil {
		return args, nil, fmt.Errorf("prepare multimodal artifact: %w", err)
	}

	normalized := make(map[string]any, len(args))
	for k, v := range args {
		normalized[k] = v
	}
	normalized["artifact_path"] = art.Path
	delete(normalized, "ref")

	return normalized, art.cleanup, nil
}

func declaresMultimodal(modalities []ports.Modality) bool {
	for _, m := range modalities {
		if m == ports.ModalityImage || m == ports.ModalityAudio || m == ports.ModalityVideo {
			return true
		}
	}
	return false
}

// formatResult appends a synthetic "tool result" block per spec §4.4:
// text results pass through verbatim, structured results are serialized.
func formatResult(toolName string, result any) string {
	if s, ok := result.(string); ok {
		return fmt.Sprintf("[tool:%s] %s", toolName, s)
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("[tool:%s] %v", toolName, result)
	}
	return fmt.Sprintf("[tool:%s] %s", toolName, string(encoded))
}

func formatError(toolName string, err error) string {
	return fmt.Sprintf("[tool:%s] error: %s", toolName, err.Error())
}
