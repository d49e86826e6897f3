package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/zhouzirui/dealer-chat/backend/internal/widget"
)

// terminalView prints messages as they are appended to the log.
type terminalView struct {
	out   io.Writer
	title string

	mu      sync.Mutex
	printed int
	open    bool
	sending bool
}

func newTerminalView(out io.Writer) *terminalView {
	return &terminalView{out: out, title: "Chat Support"}
}

func (v *terminalView) Render(s widget.State) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if s.Open != v.open {
		v.open = s.Open
		if s.Open {
			header := color.New(color.FgWhite, color.BgBlue, color.Bold)
			fmt.Fprintln(v.out, header.Sprintf(" %s ", v.title))
			// Reopening replays the whole log.
			v.printed = 0
		} else {
			fmt.Fprintln(v.out, color.New(color.Faint).Sprint("(chat closed)"))
		}
	}
	if !s.Open {
		return
	}

	for _, m := range s.Messages[min(v.printed, len(s.Messages)):] {
		// The user's own line is already on screen.
		if m.Sender == widget.SenderUser && s.Sending {
			v.printed++
			continue
		}
		v.printLocked(m)
		v.printed++
	}

	if s.Sending && !v.sending {
		fmt.Fprintln(v.out, color.New(color.Faint).Sprint("..."))
	}
	v.sending = s.Sending
}

func (v *terminalView) ScrollToBottom() {}

func (v *terminalView) replay(messages []widget.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, m := range messages {
		v.printLocked(m)
	}
}

func (v *terminalView) printLocked(m widget.Message) {
	stamp := color.New(color.Faint).Sprint(m.Timestamp.Local().Format("15:04"))
	name := color.New(color.FgCyan, color.Bold).Sprint("Assistant:")
	if m.Sender == widget.SenderUser {
		name = color.New(color.FgGreen, color.Bold).Sprint("You:")
	}
	fmt.Fprintf(v.out, "%s %s %s\n", stamp, name, m.Content)
}
