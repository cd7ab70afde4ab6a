package pane

import (
	"bytes"
	"strconv"
)

// progressIntroducer is the OSC 9;4 prefix (ConEmu/Windows Terminal
// progress-state reporting): "ESC ] 9 ; 4 ; <state> ; <value> (BEL|ST)".
var progressIntroducer = []byte("\x1b]9;4;")

// scanProgress looks for OSC 9;4 sequences in newly fed bytes and latches
// the decoded state/value as a one-shot event, mirroring scanSyncOutput and
// scanInBandResizeMode: go-ansicode's OSC dispatch has a case for codes 0-2,
// 4, 7, 8, 10-12, 52, 99, 133, and 1337, but none for 9, so progress state
// has to be read off the raw stream instead of through a grid.Middleware
// hook.
func (p *Pane) scanProgress(data []byte) {
	for {
		idx := bytes.Index(data, progressIntroducer)
		if idx < 0 {
			return
		}
		rest := data[idx+len(progressIntroducer):]
		end, width := indexOSCTerminator(rest)
		if end < 0 {
			return
		}
		p.applyProgress(rest[:end])
		data = rest[end+width:]
	}
}

func (p *Pane) applyProgress(payload []byte) {
	parts := bytes.SplitN(payload, []byte(";"), 2)
	state, err := strconv.Atoi(string(parts[0]))
	if err != nil {
		return
	}
	value := 0
	if len(parts) == 2 {
		value, _ = strconv.Atoi(string(parts[1]))
	}
	p.progressState = state
	p.progressValue = value
	p.progressChanged = true
}

// TakeProgress returns and clears the most recently reported OSC 9;4
// progress state, if any, since the last call. state is 0 (remove), 1
// (normal), 2 (error), 3 (indeterminate), or 4 (paused); value is the 0-100
// completion percentage, meaningful for states 1 and 2.
func (p *Pane) TakeProgress() (state, value int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.progressChanged {
		return 0, 0, false
	}
	p.progressChanged = false
	return p.progressState, p.progressValue, true
}
