package pane

import "testing"

func TestChildEnvironSetsTermAndProgram(t *testing.T) {
	env := childEnviron([]string{"PATH=/bin", "TERM=screen"}, "abc123")

	var term, program string
	for _, kv := range env {
		switch {
		case hasPrefix(kv, "TERM="):
			term = kv
		case hasPrefix(kv, "TERM_PROGRAM="):
			program = kv
		}
	}
	if term != "TERM=xterm-abc123" {
		t.Errorf("expected TERM=xterm-abc123, got %q", term)
	}
	if program != "TERM_PROGRAM=abc123" {
		t.Errorf("expected TERM_PROGRAM=abc123, got %q", program)
	}
}

func TestChildEnvironPreservesOtherVars(t *testing.T) {
	env := childEnviron([]string{"PATH=/bin", "LANG=en_US.UTF-8"}, "p1")
	found := false
	for _, kv := range env {
		if kv == "LANG=en_US.UTF-8" {
			found = true
		}
	}
	if !found {
		t.Error("expected unrelated env vars to be preserved")
	}
}

func TestChildEnvironDefaultsToOSEnvironWhenNil(t *testing.T) {
	env := childEnviron(nil, "p2")
	if len(env) == 0 {
		t.Error("expected non-empty environment when base is nil")
	}
}
