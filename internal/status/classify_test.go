package status

import "testing"

func TestClassifyEmpty(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "  \n\t\n  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.input); got != StateNotRunning {
				t.Errorf("Classify(%q) = %v, want %v", tt.input, got, StateNotRunning)
			}
		})
	}
}

func TestClassifyWorking(t *testing.T) {
	capture := "✻ Churning… (12s · esc to interrupt)\n"
	if got := Classify(capture); got != StateWorking {
		t.Errorf("Classify = %v, want %v", got, StateWorking)
	}
}

// The working marker must win over a look-alike waiting prompt: transient
// generation output can scroll numbered lists and prompt symbols through
// the capture.
func TestClassifyWorkingBeatsWaiting(t *testing.T) {
	capture := "❯ 1. Yes, proceed\n  2. No\n\n✻ Thinking… (esc to interrupt)\n"
	if got := Classify(capture); got != StateWorking {
		t.Errorf("Classify = %v, want %v (working must take precedence)", got, StateWorking)
	}
}

func TestClassifyWaiting(t *testing.T) {
	capture := "Do you want to make this edit?\n❯ 1. Yes\n  2. Yes, and don't ask again\n  3. No\n"
	if got := Classify(capture); got != StateWaiting {
		t.Errorf("Classify = %v, want %v", got, StateWaiting)
	}
}

// A numbered menu far above the tail is history, not a live prompt.
func TestClassifyWaitingRequiresTailOptions(t *testing.T) {
	capture := "❯ 1. Old menu choice\n"
	for i := 0; i < 30; i++ {
		capture += "scrolled output line\n"
	}
	if got := Classify(capture); got == StateWaiting {
		t.Errorf("Classify = %v; options outside the tail must not classify as waiting", got)
	}
}

func TestClassifyIdle(t *testing.T) {
	capture := "Some earlier output\n╭──────────────╮\n│ >            │\n╰──────────────╯\n"
	if got := Classify(capture); got != StateIdle {
		t.Errorf("Classify = %v, want %v", got, StateIdle)
	}
}

func TestClassifyIdleRequiresBoxEnd(t *testing.T) {
	capture := "╭──────────────╮\n│ >            │\nrunning tool output...\n"
	if got := Classify(capture); got == StateIdle {
		t.Errorf("Classify = %v; open box without closing corner is not idle", got)
	}
}

func TestClassifyAltIdleMarkers(t *testing.T) {
	tests := []struct {
		name    string
		capture string
	}{
		{"aider", "some diff output\naider> "},
		{"gemini", "done\ngemini> "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.capture); got != StateIdle {
				t.Errorf("Classify(%q) = %v, want %v", tt.capture, got, StateIdle)
			}
		})
	}
}

func TestClassifyFallthroughActive(t *testing.T) {
	tests := []struct {
		name    string
		capture string
	}{
		{"plain shell output", "make: nothing to be done\n$ _"},
		{"garbled", "\x1b[38;5;196m�� binary soup \x00\x01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.capture); got != StateActive {
				t.Errorf("Classify = %v, want %v", got, StateActive)
			}
		})
	}
}
