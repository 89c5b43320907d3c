package guardrails

import (
	"strings"

	"github.com/agentlab-dev/agentlab/logging"
)

// PendingReviewMessage is returned for queries held for human review.
const PendingReviewMessage = "Pending human review before final decision."

// DefaultReviewTriggers hold queries about decisions that must not be fully
// automated.
var DefaultReviewTriggers = []string{"medical diagnosis", "loan approval"}

// ReviewGateOptions configures the gate.
type ReviewGateOptions struct {
	// Triggers replaces DefaultReviewTriggers. Matching is case insensitive.
	Triggers []string
	// Logger receives hold events.
	Logger logging.Logger
}

// ReviewGate holds critical queries for a human decision instead of letting
// the model answer autonomously.
type ReviewGate struct {
	triggers []string
	logger   logging.Logger
}

// NewReviewGate creates a gate with the given trigger phrases.
func NewReviewGate(optFns ...func(o *ReviewGateOptions)) *ReviewGate {
	opts := ReviewGateOptions{Triggers: DefaultReviewTriggers, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	triggers := make([]string, len(opts.Triggers))
	for i, trigger := range opts.Triggers {
		triggers[i] = strings.ToLower(trigger)
	}
	return &ReviewGate{triggers: triggers, logger: opts.Logger}
}

// RequiresReview reports whether the query must be held for a human, along
// with the trigger phrase that matched.
func (g *ReviewGate) RequiresReview(query string) (bool, string) {
	lower := strings.ToLower(query)
	for _, trigger := range g.triggers {
		if strings.Contains(lower, trigger) {
			g.logger.Info("guardrails.review.hold", "trigger", trigger)
			return true, trigger
		}
	}
	return false, ""
}
