package flow

import (
	"fmt"

	"github.com/agentlab-dev/agentlab/core"
	"github.com/agentlab-dev/agentlab/model"
)

// BaseFlow is a minimal single-agent flow implementation that supports a
// request -> LLM -> (optional tool loop) cycle with pluggable pre/post
// processors. Function calls within one assistant turn are executed through
// the configured FunctionExecutor and their responses merged into a single
// tool event preserving call order.
type BaseFlow struct {
	agent              FlowAgent
	requestProcessors  []RequestProcessor
	responseProcessors []ResponseProcessor
	executor           FunctionExecutor
}

// NewBaseFlow creates a new basic single-agent flow.
func NewBaseFlow(agent FlowAgent) *BaseFlow {
	return &BaseFlow{
		agent:              agent,
		requestProcessors:  []RequestProcessor{},
		responseProcessors: []ResponseProcessor{},
		executor:           NewParallelFunctionExecutor(FunctionExecutorConfig{PreserveOrder: true}),
	}
}

// AddRequestProcessor appends a request processor; order of registration defines execution order.
func (f *BaseFlow) AddRequestProcessor(processor RequestProcessor) {
	f.requestProcessors = append(f.requestProcessors, processor)
}

// AddResponseProcessor appends a response processor executed after each model chunk.
func (f *BaseFlow) AddResponseProcessor(processor ResponseProcessor) {
	f.responseProcessors = append(f.responseProcessors, processor)
}

// SetFunctionExecutor overrides the default parallel executor.
func (f *BaseFlow) SetFunctionExecutor(e FunctionExecutor) { f.executor = e }

// Execute launches the flow asynchronously and returns event + error channels.
// Both channels are closed when a final response is emitted or an
// unrecoverable error occurs. Callers should range over the event channel.
func (f *BaseFlow) Execute(runCtx *core.RunContext) (<-chan core.Event, <-chan error, error) {
	eventChan := make(chan core.Event, 100)
	errChan := make(chan error, 1)

	go func() {
		defer close(eventChan)
		defer close(errChan)

		for {
			last, err := f.runOnce(runCtx, eventChan)
			if err != nil {
				errChan <- err
				return
			}
			if last == nil {
				return
			}
			// A transfer hands control back to the owning agent.
			if last.Actions.TransferToAgent != nil {
				return
			}
			// A merged function response triggers another model turn
			if len(last.GetFunctionResponses()) > 0 {
				continue
			}
			if last.IsFinalResponse() {
				return
			}
		}
	}()

	return eventChan, errChan, nil
}

// runOnce performs one model turn (including any tool executions) and returns
// the last emitted Event (final or intermediate). A nil return signals termination.
func (f *BaseFlow) runOnce(runCtx *core.RunContext, eventChan chan<- core.Event) (*core.Event, error) {
	// Refresh session snapshot so request processors see the latest
	// conversation (including tool responses from prior turns).
	if runCtx.SessionStore != nil {
		if latest, err := runCtx.SessionStore.Get(runCtx.SessionID); err == nil && latest != nil {
			runCtx.Session = latest
		}
	}

	req := new(model.Request)
	req.Stream = f.agent.IsStreamingEnabled()

	for _, processor := range f.requestProcessors {
		if err := processor.ProcessRequest(runCtx, req, f.agent); err != nil {
			return nil, fmt.Errorf("request processor %s failed: %w", processor.Name(), err)
		}
	}

	tools := f.agent.GetTools()
	if f.agent.IsFunctionCallingEnabled() && len(tools) > 0 {
		for _, t := range tools {
			req.Tools = append(req.Tools, model.ToolDefinition{
				Type: "function",
				Function: model.FunctionDefinition{
					Name:        t.Name(),
					Description: t.Description(),
					Parameters:  t.Parameters(),
				},
			})
		}
	}

	if runCtx.Limiter != nil {
		if err := runCtx.Limiter.Increment(); err != nil {
			return nil, err
		}
	}

	llm := f.agent.GetLLM()
	respCh, errCh := llm.Generate(runCtx.Context, *req)

	var lastEvent *core.Event

loop:
	for {
		select {
		case <-runCtx.Done():
			return lastEvent, runCtx.Err()
		case resp, ok := <-respCh:
			if !ok {
				break loop
			}

			for _, processor := range f.responseProcessors {
				if err := processor.ProcessResponse(runCtx, &resp, f.agent); err != nil {
					return nil, fmt.Errorf("response processor %s failed: %w", processor.Name(), err)
				}
			}

			ev := core.NewEvent(runCtx.RunID, f.agent.GetName())
			ev.Content = &resp.Content
			ev.Partial = &resp.Partial

			if !resp.Partial && len(ev.GetFunctionCalls()) == 0 {
				complete := true
				ev.TurnComplete = &complete
			}

			if key := f.agent.GetOutputKey(); key != "" && !resp.Partial {
				if text := resp.Content.Text(); text != "" {
					if ev.Actions.StateDelta == nil {
						ev.Actions.StateDelta = map[string]any{}
					}
					ev.Actions.StateDelta[key] = text
				}
			}

			lastEvent = &ev

			select {
			case <-runCtx.Done():
				return lastEvent, runCtx.Err()
			case eventChan <- ev:
			}

			// Wait for session persistence (runner signals resume after append)
			if !ev.IsPartial() && runCtx.Resume != nil {
				select {
				case <-runCtx.Done():
					return lastEvent, runCtx.Err()
				case <-runCtx.Resume:
				}
			}

			if fnCalls := ev.GetFunctionCalls(); len(fnCalls) > 0 {
				merged, err := f.executeFunctions(runCtx, fnCalls)
				if err != nil {
					return lastEvent, err
				}

				lastEvent = merged

				select {
				case <-runCtx.Done():
					return lastEvent, runCtx.Err()
				case eventChan <- *merged:
				}

				if runCtx.Resume != nil {
					select {
					case <-runCtx.Done():
						return lastEvent, runCtx.Err()
					case <-runCtx.Resume:
					}
				}
			}
		case err, ok := <-errCh:
			if !ok {
				// The model may still have buffered responses after the
				// error channel closes. Nil the channel so the select
				// keeps draining respCh until it closes too.
				errCh = nil
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("model generation failed: %w", err)
			}
		}
	}

	return lastEvent, nil
}

// executeFunctions runs all function calls of one assistant turn through the
// executor and merges their response events into a single tool event with
// combined actions.
func (f *BaseFlow) executeFunctions(runCtx *core.RunContext, fnCalls []core.FunctionCall) (*core.Event, error) {
	var responses []core.Event
	f.executor.Execute(runCtx, f.agent, f.agent.GetTools(), fnCalls, func(ev core.Event) error {
		responses = append(responses, ev)
		return nil
	})

	if err := runCtx.Err(); err != nil {
		return nil, err
	}

	merged := core.NewEvent(runCtx.RunID, f.agent.GetName())
	merged.Content = &core.Content{Role: "tool"}

	for _, ev := range responses {
		if ev.Content != nil {
			merged.Content.Parts = append(merged.Content.Parts, ev.Content.Parts...)
		}

		if len(ev.Actions.StateDelta) > 0 {
			if merged.Actions.StateDelta == nil {
				merged.Actions.StateDelta = map[string]any{}
			}
			for k, v := range ev.Actions.StateDelta {
				merged.Actions.StateDelta[k] = v
			}
		}
		if ev.Actions.TransferToAgent != nil {
			merged.Actions.TransferToAgent = ev.Actions.TransferToAgent
		}
		if ev.Actions.Escalate != nil && *ev.Actions.Escalate {
			merged.Actions.Escalate = ev.Actions.Escalate
		}
		if len(ev.Actions.ArtifactDelta) > 0 {
			if merged.Actions.ArtifactDelta == nil {
				merged.Actions.ArtifactDelta = map[string]int{}
			}
			for k, v := range ev.Actions.ArtifactDelta {
				merged.Actions.ArtifactDelta[k] = v
			}
		}
	}

	return &merged, nil
}
