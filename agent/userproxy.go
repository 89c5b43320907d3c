package agent

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/agentlab-dev/agentlab/core"
)

// HumanInputMode controls when a UserProxyAgent solicits human input.
type HumanInputMode string

const (
	// HumanInputNever replies automatically and never prompts the human.
	HumanInputNever HumanInputMode = "never"
	// HumanInputTerminate prompts the human only when a termination message
	// is detected or the auto-reply budget is exhausted.
	HumanInputTerminate HumanInputMode = "terminate"
)

// UserProxyAgentOptions configures a UserProxyAgent.
type UserProxyAgentOptions struct {
	HumanInputMode          HumanInputMode
	IsTerminationMsg        func(message string) bool
	MaxConsecutiveAutoReply int
	DefaultAutoReply        string
	// InputFunc supplies human input when the mode requires it. Defaults to
	// reading one line from stdin.
	InputFunc func(prompt string) (string, error)
}

// UserProxyAgent stands in for the human user in agent conversations. It
// relays (or auto-generates) user turns, watches for termination messages and
// ends the conversation by escalating when the human is done or the
// auto-reply budget runs out.
type UserProxyAgent struct {
	BaseAgent
	mode             HumanInputMode
	isTerminationMsg func(string) bool
	maxAutoReply     int
	defaultAutoReply string
	inputFunc        func(prompt string) (string, error)
	autoReplyCount   int
}

// NewUserProxyAgent creates a user proxy with termination-gated human input,
// a "TERMINATE" substring termination predicate and a budget of 5 consecutive
// auto-replies.
func NewUserProxyAgent(name string, optFns ...func(o *UserProxyAgentOptions)) *UserProxyAgent {
	opts := UserProxyAgentOptions{
		HumanInputMode:          HumanInputTerminate,
		MaxConsecutiveAutoReply: 5,
		IsTerminationMsg: func(message string) bool {
			return strings.Contains(message, "TERMINATE")
		},
		InputFunc: readLine,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	a := &UserProxyAgent{
		BaseAgent:        NewBaseAgent(name),
		mode:             opts.HumanInputMode,
		isTerminationMsg: opts.IsTerminationMsg,
		maxAutoReply:     opts.MaxConsecutiveAutoReply,
		defaultAutoReply: opts.DefaultAutoReply,
		inputFunc:        opts.InputFunc,
	}
	a.SetDescription("A proxy for the human user.")
	return a
}

// Run inspects the latest conversation turn and produces the next user
// message, asks the human, or ends the conversation.
//
// Decision order:
//  1. Termination message from the counterpart ends the chat (after an
//     optional final human check in terminate mode).
//  2. Exhausted auto-reply budget ends the chat in never mode, or hands
//     control to the human in terminate mode.
//  3. Otherwise the default auto-reply (if any) is sent.
func (a *UserProxyAgent) Run(runCtx *core.RunContext) error {
	last := a.lastAssistantText(runCtx)

	terminated := last != "" && a.isTerminationMsg != nil && a.isTerminationMsg(last)
	budgetSpent := a.maxAutoReply > 0 && a.autoReplyCount >= a.maxAutoReply

	if a.mode == HumanInputTerminate && (terminated || budgetSpent) {
		reply, err := a.inputFunc(fmt.Sprintf("%s (reply, or press enter to end): ", a.Name()))
		if err != nil {
			return fmt.Errorf("human input failed: %w", err)
		}
		reply = strings.TrimSpace(reply)
		if reply == "" || strings.EqualFold(reply, "exit") {
			return a.endConversation(runCtx)
		}
		a.autoReplyCount = 0
		return a.emitUserMessage(runCtx, reply)
	}

	if terminated || budgetSpent {
		return a.endConversation(runCtx)
	}

	if a.defaultAutoReply == "" {
		return a.endConversation(runCtx)
	}

	a.autoReplyCount++
	runCtx.LogDebug("userproxy.auto_reply", "agent", a.Name(), "count", a.autoReplyCount)
	return a.emitUserMessage(runCtx, a.defaultAutoReply)
}

// ResetAutoReplyCount clears the consecutive auto-reply counter, e.g. between
// conversations.
func (a *UserProxyAgent) ResetAutoReplyCount() { a.autoReplyCount = 0 }

func (a *UserProxyAgent) lastAssistantText(runCtx *core.RunContext) string {
	if runCtx.Session == nil {
		return ""
	}
	events := runCtx.Session.GetConversationHistory()
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if ev.Content != nil && ev.Content.Role == "assistant" {
			return ev.Text()
		}
	}
	return ""
}

func (a *UserProxyAgent) emitUserMessage(runCtx *core.RunContext, message string) error {
	ev := core.NewUserMessageEvent(runCtx.RunID, message)
	ev.Author = a.Name()

	select {
	case runCtx.Emit <- ev:
	case <-runCtx.Context.Done():
		return runCtx.Context.Err()
	}
	return runCtx.WaitForResume()
}

func (a *UserProxyAgent) endConversation(runCtx *core.RunContext) error {
	escalate := true
	complete := true
	ev := core.NewEvent(runCtx.RunID, a.Name())
	ev.Actions.Escalate = &escalate
	ev.TurnComplete = &complete

	runCtx.LogInfo("userproxy.end", "agent", a.Name())

	select {
	case runCtx.Emit <- ev:
	case <-runCtx.Context.Done():
		return runCtx.Context.Err()
	}
	return runCtx.WaitForResume()
}

func readLine(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
