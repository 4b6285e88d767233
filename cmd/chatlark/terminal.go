package main

import (
	"chatlark/contract"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/gookit/color"
)

// console serializes writes so pushes and prompts never interleave mid-line.
type console struct {
	mu  sync.Mutex
	out io.Writer
}

func newConsole(out io.Writer) *console {
	return &console{out: out}
}

func (c *console) println(style color.Color, msg string) {
	c.write(style.Sprint(msg))
}

func (c *console) write(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintln(c.out, line)
}

// terminalNotifier renders toasts as colored lines.
type terminalNotifier struct {
	console *console
}

func (n terminalNotifier) Success(msg string) { n.console.println(color.Green, "✔ "+msg) }
func (n terminalNotifier) Info(msg string)    { n.console.println(color.Cyan, "ℹ "+msg) }
func (n terminalNotifier) Error(msg string)   { n.console.println(color.Red, "✖ "+msg) }

// terminalSystem rings the bell and prints a banner.
// Permission is fixed at startup with --notify.
type terminalSystem struct {
	console *console
	enabled bool
}

func (s terminalSystem) RequestPermission(_ context.Context) (contract.Permission, error) {
	if !s.enabled {
		return contract.PermissionDenied, nil
	}
	return contract.PermissionGranted, nil
}

func (s terminalSystem) Show(_ context.Context, n contract.Notification) error {
	s.console.mu.Lock()
	defer s.console.mu.Unlock()
	_, err := fmt.Fprintf(s.console.out, "\a%s %s\n", color.Yellow.Sprintf("🔔 %s:", n.Title), n.Body)
	return err
}

// terminalFocus is toggled by /focus. The view starts focused.
type terminalFocus struct {
	away atomic.Bool
}

func (f *terminalFocus) HasFocus() bool   { return !f.away.Load() }
func (f *terminalFocus) Set(focused bool) { f.away.Store(!focused) }

// terminalViewport has nothing to scroll: new lines always land at the bottom.
// It only keeps a count for /stats.
type terminalViewport struct {
	scrolls atomic.Int64
}

func (v *terminalViewport) ScrollToLatest() { v.scrolls.Add(1) }
