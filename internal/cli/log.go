package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// spinnerInterval is the delay between spinner frames.
const spinnerInterval = 120 * time.Millisecond

// spinnerFrames is the animation cycle drawn while an operation runs.
var spinnerFrames = []string{"◐", "◓", "◑", "◒"}

// progress tracks the start time of an operation, optionally animating a
// spinner on stderr while it runs, and logs completion with elapsed
// duration. It is safe for sequential use by a single goroutine.
type progress struct {
	logger *log.Logger
	start  time.Time
	stop   func() // set while a spinner runs
}

// newProgress creates a progress tracker that captures the current time as start.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// spin starts a spinner on stderr with the given message. The animation
// stops and the line is cleared when done or fail is called, or when ctx
// is cancelled.
func (p *progress) spin(ctx context.Context, message string) {
	halt := make(chan struct{})
	finished := make(chan struct{})
	p.stop = func() {
		close(halt)
		<-finished
	}

	go func() {
		defer close(finished)
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()

		clear := func() {
			fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", len(message)+2))
		}
		frame := 0
		for {
			select {
			case <-ctx.Done():
				clear()
				return
			case <-halt:
				clear()
				return
			case <-ticker.C:
				glyph := spinnerFrames[frame%len(spinnerFrames)]
				fmt.Fprintf(os.Stderr, "\r%s %s", styleIconSpinner.Render(glyph), StyleDim.Render(message))
				frame++
			}
		}
	}()
}

// done stops any running spinner and logs msg along with the elapsed time
// since progress was created. Example output: "Evaluated 42 nodes (1.234s)"
func (p *progress) done(msg string) {
	p.stopSpin()
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// fail stops any running spinner and prints msg as an error line.
func (p *progress) fail(msg string) {
	p.stopSpin()
	printError("%s", msg)
}

func (p *progress) stopSpin() {
	if p.stop != nil {
		p.stop()
		p.stop = nil
	}
}

// ctxKey is the type for context keys used in this package.
type ctxKey int

// loggerKey is the context key for storing a logger.
const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx.
// If no logger is attached, it returns log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
