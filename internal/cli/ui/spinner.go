package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates an indeterminate operation on a single terminal line.
type Spinner struct {
	writer   io.Writer
	message  string
	interval time.Duration
	active   bool
	done     chan struct{}
	noColor  bool
}

// NewSpinner creates a spinner with the given message.
func NewSpinner(w io.Writer, message string, noColor bool) *Spinner {
	return &Spinner{
		writer:   w,
		message:  message,
		interval: 100 * time.Millisecond,
		done:     make(chan struct{}),
		noColor:  noColor,
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.active = true
	go s.animate()
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	if !s.active {
		return
	}
	s.active = false
	s.done <- struct{}{}
	fmt.Fprint(s.writer, "\r\033[K")
}

// Success stops the spinner and prints a confirmation line.
func (s *Spinner) Success(message string) {
	s.Stop()
	WriteSuccess(s.writer, message, s.noColor)
}

// Error stops the spinner and prints a failure line.
func (s *Spinner) Error(message string) {
	s.Stop()
	WriteError(s.writer, message, s.noColor)
}

func (s *Spinner) animate() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	cyan := color.New(color.FgCyan)
	if s.noColor {
		cyan.DisableColor()
	}

	frame := 0
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			cyan.Fprintf(s.writer, "\r%s %s", spinnerFrames[frame], s.message)
			frame = (frame + 1) % len(spinnerFrames)
		}
	}
}

// WithSpinner runs fn behind a spinner, reporting success or failure when
// it returns.
func WithSpinner(w io.Writer, message string, noColor bool, fn func() error) error {
	spinner := NewSpinner(w, message, noColor)
	spinner.Start()
	defer spinner.Stop()

	if err := fn(); err != nil {
		spinner.Error(fmt.Sprintf("%s failed", message))
		return err
	}

	spinner.Success(message)
	return nil
}
