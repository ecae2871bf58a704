// Package status infers assistant activity state from captured pane text.
//
// Classification is heuristic by nature: every assistant tool renders its
// prompt differently, and transient generation output can contain strings
// that look like prompts. The classifier is a fixed, ordered rule table —
// first match wins — so the fuzziness stays in the individual predicates
// and the precedence is explicit and testable.
package status

import (
	"regexp"
	"strings"
)

// State is the inferred activity state of a feature's session. It is
// recomputed from live pane text on every poll and never persisted; a
// dead tmux server naturally reports StateNotRunning on the next poll.
type State string

const (
	StateNotRunning State = "not_running"
	StateIdle       State = "idle"
	StateWaiting    State = "waiting"
	StateWorking    State = "working"
	StateActive     State = "active"
)

// workingMarker appears in Claude Code's output while it is generating.
// Checked before the waiting and idle rules: generation output scrolls
// look-alike prompt fragments through the capture, and matching those
// first would make the state flap.
const workingMarker = "esc to interrupt"

// Waiting detection: the choice prompt symbol plus a numbered option in
// the tail of the capture. Only the tail counts, because old menus higher
// in the scrollback are history, not a live prompt.
const (
	choicePromptSymbol = "❯"
	waitingTailLines   = 15
)

var numberedOption = regexp.MustCompile(`^\s*\d+\.`)

// Idle detection for the primary tool: the input box opens with a box
// corner and the trimmed capture ends on the closing corner, meaning the
// last thing on screen is an empty prompt waiting for input.
const (
	idleBoxStart = "╭"
	idleBoxEnd   = "╯"
)

// altIdleMarkers recognizes idle prompts of other assistant tools. A
// static table evaluated unconditionally; adding a tool is a one-line
// change here.
var altIdleMarkers = []string{
	"aider>",
	"> Type your message",
	"gemini>",
	"codex>",
}

// rule pairs a predicate with the state it implies.
type rule struct {
	name  string
	match func(text string) bool
	state State
}

// rules is evaluated in order; the order is load-bearing (see package
// comment). StateActive is the fallthrough, not a rule.
var rules = []rule{
	{
		name:  "working",
		state: StateWorking,
		match: func(text string) bool {
			return strings.Contains(text, workingMarker)
		},
	},
	{
		name:  "waiting",
		state: StateWaiting,
		match: func(text string) bool {
			if !strings.Contains(text, choicePromptSymbol) {
				return false
			}
			for _, line := range tailLines(text, waitingTailLines) {
				if numberedOption.MatchString(line) {
					return true
				}
			}
			return false
		},
	},
	{
		name:  "idle",
		state: StateIdle,
		match: func(text string) bool {
			return strings.Contains(text, idleBoxStart) &&
				strings.HasSuffix(strings.TrimSpace(text), idleBoxEnd)
		},
	},
	{
		name:  "idle-alt",
		state: StateIdle,
		match: func(text string) bool {
			for _, marker := range altIdleMarkers {
				if strings.Contains(text, marker) {
					return true
				}
			}
			return false
		},
	},
}

// Classify converts captured pane text into a State. It never fails:
// empty capture means the session is not running, and text matching no
// rule is a running-but-unrecognized tool, reported as StateActive so the
// caller assumes no attention is needed yet.
func Classify(captured string) State {
	if strings.TrimSpace(captured) == "" {
		return StateNotRunning
	}
	for _, r := range rules {
		if r.match(captured) {
			return r.state
		}
	}
	return StateActive
}

// tailLines returns the last n lines of text.
func tailLines(text string, n int) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
