package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// status prints human-readable lines and, on a terminal, a progress bar
// underneath them.
type status struct {
	mu  sync.Mutex
	w   io.Writer
	bar *progressbar.ProgressBar
}

func newStatus(w io.Writer) *status {
	return &status{w: w}
}

// Line prints msg above the progress bar.
func (s *status) Line(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bar != nil {
		_ = s.bar.Clear()
	}
	fmt.Fprintln(s.w, msg)
}

// Progress updates the bar, creating it on first use.
func (s *status) Progress(description string, done, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if total <= 0 || !isTerminal(s.w) {
		return
	}
	if s.bar == nil {
		s.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(s.w),
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionFullWidth(),
		)
	}
	if s.bar.GetMax() != total {
		s.bar.ChangeMax(total)
	}
	_ = s.bar.Set(done)
}

// Finish removes the bar.
func (s *status) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bar != nil {
		_ = s.bar.Finish()
		s.bar = nil
	}
}

// palette colours summary output when stdout is a terminal.
type palette struct {
	ok, warn, bad, heading *color.Color
}

func newPalette(w io.Writer) palette {
	p := palette{
		ok:      color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		bad:     color.New(color.FgRed, color.Bold),
		heading: color.New(color.FgCyan, color.Bold),
	}
	enable := isTerminal(w)
	for _, c := range []*color.Color{p.ok, p.warn, p.bad, p.heading} {
		if enable {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// count colours n green when zero is good and red otherwise.
func (p palette) count(n int) string {
	if n == 0 {
		return p.ok.Sprint(n)
	}
	return p.bad.Sprint(n)
}
