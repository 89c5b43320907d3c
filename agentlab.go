// Package agentlab provides a high-level façade over the runner and service
// abstractions (sessions, artifacts, memory & logging) for building
// multi-agent LLM applications. Most applications interact with this package
// by:
//  1. Creating an AgentLab via New() around a root agent (optionally
//     overriding the default in-memory services)
//  2. Invoking the agent asynchronously (Invoke) or synchronously
//     (InvokeSync)
//
// All defaults are safe for local development and testing; production
// deployments typically supply durable store implementations and a
// structured logger.
package agentlab

import (
	"context"

	"github.com/agentlab-dev/agentlab/artifact"
	"github.com/agentlab-dev/agentlab/core"
	"github.com/agentlab-dev/agentlab/logging"
	"github.com/agentlab-dev/agentlab/memory"
	"github.com/agentlab-dev/agentlab/runner"
	"github.com/agentlab-dev/agentlab/session"
)

// Options configures the AgentLab instance.
type Options struct {
	// EventBufferSize sets the channel buffer size for event delivery.
	EventBufferSize int

	// MaxModelCalls caps model invocations per run.
	MaxModelCalls int

	// Stores (defaults to in-memory implementations if not provided).
	SessionStore  core.SessionStore
	ArtifactStore core.ArtifactStore
	MemoryStore   core.MemoryStore

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// AgentLab is the high-level façade aggregating the runner and its services.
type AgentLab struct {
	opts   Options
	runner *runner.Runner
}

// New creates an AgentLab around the root agent. Any unset service is
// initialized with an in-memory implementation.
func New(rootAgent core.Agent, optFns ...func(o *Options)) *AgentLab {
	opts := Options{
		EventBufferSize: 100,
		MaxModelCalls:   100,
		SessionStore:    session.NewInMemoryStore(),
		ArtifactStore:   artifact.NewInMemoryStore(),
		MemoryStore:     memory.NewInMemoryStore(),
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	r := runner.New(rootAgent, func(o *runner.Options) {
		o.EventBufferSize = opts.EventBufferSize
		o.MaxModelCalls = opts.MaxModelCalls
		o.SessionStore = opts.SessionStore
		o.ArtifactStore = opts.ArtifactStore
		o.MemoryStore = opts.MemoryStore
		o.Logger = opts.Logger
	})

	return &AgentLab{opts: opts, runner: r}
}

// SessionStore exposes the configured session store.
func (l *AgentLab) SessionStore() core.SessionStore { return l.opts.SessionStore }

// ArtifactStore exposes the configured artifact store.
func (l *AgentLab) ArtifactStore() core.ArtifactStore { return l.opts.ArtifactStore }

// Invoke starts an asynchronous run returning the run ID plus event and
// error channels.
func (l *AgentLab) Invoke(
	ctx context.Context,
	sessionID string,
	userContent core.Content,
) (string, <-chan core.Event, <-chan error, error) {
	return l.runner.Run(ctx, sessionID, userContent)
}

// InvokeSync runs to completion, accumulating all emitted events.
func (l *AgentLab) InvokeSync(
	ctx context.Context,
	sessionID string,
	userContent core.Content,
) (string, []core.Event, error) {
	runID, eventsCh, errorsCh, err := l.runner.Run(ctx, sessionID, userContent)
	if err != nil {
		return "", nil, err
	}

	var events []core.Event
	for {
		select {
		case <-ctx.Done():
			return runID, events, ctx.Err()

		case event, ok := <-eventsCh:
			if !ok {
				select {
				case err := <-errorsCh:
					return runID, events, err
				default:
					return runID, events, nil
				}
			}
			events = append(events, event)

		case err, ok := <-errorsCh:
			if !ok {
				errorsCh = nil
				continue
			}
			if err != nil {
				return runID, events, err
			}
		}
	}
}

// Cancel aborts an active run by ID.
func (l *AgentLab) Cancel(runID string) error { return l.runner.Cancel(runID) }
