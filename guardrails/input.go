package guardrails

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/agentlab-dev/agentlab/logging"
)

// ErrBlockedInput is returned when user input matches a blocked pattern.
var ErrBlockedInput = errors.New("potentially adversarial input detected")

// DefaultBlockedPatterns screen for prompt injection and credential
// extraction attempts.
var DefaultBlockedPatterns = []string{
	`bypass security`,
	`ignore all instructions`,
	`repeat this password`,
}

// InputValidatorOptions configures the validator.
type InputValidatorOptions struct {
	// Patterns replaces DefaultBlockedPatterns. Matching is case
	// insensitive.
	Patterns []string
	// Logger receives block events.
	Logger logging.Logger
}

// InputValidator screens user queries against a blocked pattern list before
// they reach a model.
type InputValidator struct {
	patterns []*regexp.Regexp
	logger   logging.Logger
}

// NewInputValidator compiles the blocked patterns into a validator.
func NewInputValidator(optFns ...func(o *InputValidatorOptions)) (*InputValidator, error) {
	opts := InputValidatorOptions{Patterns: DefaultBlockedPatterns, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	patterns := make([]*regexp.Regexp, 0, len(opts.Patterns))
	for _, raw := range opts.Patterns {
		re, err := regexp.Compile(`(?i)` + raw)
		if err != nil {
			return nil, fmt.Errorf("invalid blocked pattern %q: %w", raw, err)
		}
		patterns = append(patterns, re)
	}

	return &InputValidator{patterns: patterns, logger: opts.Logger}, nil
}

// Validate returns ErrBlockedInput (wrapped with the matched pattern) when
// the query trips a blocked pattern, nil otherwise.
func (v *InputValidator) Validate(userQuery string) error {
	for _, re := range v.patterns {
		if re.MatchString(userQuery) {
			v.logger.Warn("guardrails.input.blocked", "pattern", re.String())
			return fmt.Errorf("%w: matched %q", ErrBlockedInput, re.String())
		}
	}
	return nil
}
